// Package store is the key-value layer under the repositories. Items are
// DynamoDB attribute maps regardless of backend; the memory and postgres
// backends reproduce the subset of DynamoDB semantics the service relies on:
// point reads, conditional puts, attribute-level updates, partition queries
// with a sort-key prefix on the base table or a secondary index, and filtered
// scans, all paginated with a continuation key.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is one stored record.
type Item = map[string]types.AttributeValue

// Key identifies an item, or a position within a query or scan. Every key
// attribute in this service is a string.
type Key map[string]string

// ErrConditionFailed is returned by PutItem when IfNotExists is set and the
// item is already present.
var ErrConditionFailed = errors.New("store: condition failed")

type Backend interface {
	// GetItem returns nil, nil when the item does not exist.
	GetItem(ctx context.Context, table string, key Key) (Item, error)
	PutItem(ctx context.Context, table string, item Item, opts ...PutOption) error
	// UpdateItem sets the given attributes on an existing item and returns
	// the updated item, or nil, nil when the item does not exist.
	UpdateItem(ctx context.Context, table string, key Key, changes map[string]any) (Item, error)
	// DeleteItem reports whether an item was removed.
	DeleteItem(ctx context.Context, table string, key Key) (bool, error)
	Query(ctx context.Context, in QueryInput) (Page, error)
	Scan(ctx context.Context, in ScanInput) (Page, error)
}

// Provisioner is implemented by backends that can create their tables.
type Provisioner interface {
	EnsureTables(ctx context.Context) error
}

type PutOptions struct {
	IfNotExists bool
}

type PutOption func(*PutOptions)

func IfNotExists() PutOption {
	return func(o *PutOptions) {
		o.IfNotExists = true
	}
}

func collectPutOptions(opts []PutOption) PutOptions {
	var o PutOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// QueryInput selects items whose partition attribute equals PartitionValue
// and whose sort attribute starts with SortPrefix, on the base table when
// Index is empty or on the named index otherwise.
type QueryInput struct {
	Table          string
	Index          string
	PartitionValue string
	SortPrefix     string
	Limit          int32
	StartKey       Key
}

type Op string

const (
	OpContains Op = "contains"
	OpEquals   Op = "equals"
)

type Condition struct {
	Attribute string
	Op        Op
	Value     string
}

func Contains(attribute, value string) Condition {
	return Condition{Attribute: attribute, Op: OpContains, Value: value}
}

func Equals(attribute, value string) Condition {
	return Condition{Attribute: attribute, Op: OpEquals, Value: value}
}

// ScanInput reads a table in key order. Conditions are combined with AND.
type ScanInput struct {
	Table      string
	Conditions []Condition
	Limit      int32
	StartKey   Key
}

// Page is one underlying fetch. LastKey is nil when the read is complete.
type Page struct {
	Items   []Item
	LastKey Key
}

// marshalChange converts one UpdateItem value for backends that apply
// updates themselves.
func marshalChange(name string, value any) (types.AttributeValue, error) {
	av, err := attributevalue.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	return av, nil
}
