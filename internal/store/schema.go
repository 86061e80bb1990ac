package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	InverseIndexName = "GSI1_PK-GSI1_SK-index"
	RoleIndexName    = "role-user_event_id-index"
)

type IndexSpec struct {
	Name         string
	PartitionKey string
	SortKey      string
}

type TableSpec struct {
	Name         string
	PartitionKey string
	// SortKey is empty for tables keyed by partition only.
	SortKey string
	Indexes []IndexSpec
}

func (t TableSpec) Index(name string) (IndexSpec, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexSpec{}, false
}

// KeyAttributes returns the base key attribute names.
func (t TableSpec) KeyAttributes() []string {
	if t.SortKey == "" {
		return []string{t.PartitionKey}
	}
	return []string{t.PartitionKey, t.SortKey}
}

// KeyOf extracts the base key of an item.
func (t TableSpec) KeyOf(item Item) Key {
	key := make(Key, 2)
	for _, name := range t.KeyAttributes() {
		key[name] = StringAttr(item, name)
	}
	return key
}

// PositionOf extracts the base key plus the index key of an item, which is
// what a query against that index resumes from.
func (t TableSpec) PositionOf(item Item, index string) Key {
	key := t.KeyOf(item)
	if idx, ok := t.Index(index); ok {
		key[idx.PartitionKey] = StringAttr(item, idx.PartitionKey)
		if idx.SortKey != "" {
			key[idx.SortKey] = StringAttr(item, idx.SortKey)
		}
	}
	return key
}

func (t TableSpec) validateKey(key Key) error {
	for _, name := range t.KeyAttributes() {
		if key[name] == "" {
			return fmt.Errorf("table %s: key attribute %s is missing", t.Name, name)
		}
	}
	return nil
}

type TableNames struct {
	Users     string
	Events    string
	Relations string
	EmailLogs string
}

func DefaultTableNames() TableNames {
	return TableNames{
		Users:     "Users",
		Events:    "Events",
		Relations: "UserEventRelations",
		EmailLogs: "EmailLogs",
	}
}

// Schema holds the table layout shared by every backend.
type Schema struct {
	Users     TableSpec
	Events    TableSpec
	Relations TableSpec
	EmailLogs TableSpec
}

func NewSchema(names TableNames) Schema {
	return Schema{
		Users:  TableSpec{Name: names.Users, PartitionKey: "user_id"},
		Events: TableSpec{Name: names.Events, PartitionKey: "event_id"},
		Relations: TableSpec{
			Name:         names.Relations,
			PartitionKey: "PK",
			SortKey:      "SK",
			Indexes: []IndexSpec{
				{Name: InverseIndexName, PartitionKey: "GSI1_PK", SortKey: "GSI1_SK"},
				{Name: RoleIndexName, PartitionKey: "role", SortKey: "user_event_id"},
			},
		},
		EmailLogs: TableSpec{Name: names.EmailLogs, PartitionKey: "email_id"},
	}
}

func (s Schema) Tables() []TableSpec {
	return []TableSpec{s.Users, s.Events, s.Relations, s.EmailLogs}
}

func (s Schema) Table(name string) (TableSpec, error) {
	for _, t := range s.Tables() {
		if t.Name == name {
			return t, nil
		}
	}
	return TableSpec{}, fmt.Errorf("unknown table %q", name)
}

// StringAttr returns the string form of a scalar attribute, or "" when the
// attribute is absent or not a scalar.
func StringAttr(item Item, name string) string {
	switch v := item[name].(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func keyItem(key Key) Item {
	item := make(Item, len(key))
	for name, value := range key {
		item[name] = &types.AttributeValueMemberS{Value: value}
	}
	return item
}

func itemKey(item Item) Key {
	if len(item) == 0 {
		return nil
	}
	key := make(Key, len(item))
	for name, value := range item {
		if s, ok := value.(*types.AttributeValueMemberS); ok {
			key[name] = s.Value
		}
	}
	return key
}
