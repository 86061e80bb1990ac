package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kvItem stores every table in one relation. Up to two secondary indexes per
// table are projected into the idx1/idx2 column pairs.
type kvItem struct {
	Collection string    `gorm:"primaryKey;size:128;index:idx_kv_items_idx1,priority:1;index:idx_kv_items_idx2,priority:1"`
	PK         string    `gorm:"column:pk;primaryKey;size:512"`
	SK         string    `gorm:"column:sk;primaryKey;size:512"`
	Idx1PK     *string   `gorm:"column:idx1_pk;size:512;index:idx_kv_items_idx1,priority:2"`
	Idx1SK     *string   `gorm:"column:idx1_sk;size:512;index:idx_kv_items_idx1,priority:3"`
	Idx2PK     *string   `gorm:"column:idx2_pk;size:512;index:idx_kv_items_idx2,priority:2"`
	Idx2SK     *string   `gorm:"column:idx2_sk;size:512;index:idx_kv_items_idx2,priority:3"`
	Body       string    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (kvItem) TableName() string {
	return "kv_items"
}

var indexColumns = [][2]string{
	{"idx1_pk", "idx1_sk"},
	{"idx2_pk", "idx2_sk"},
}

type PostgresBackend struct {
	db     *gorm.DB
	schema Schema
}

func NewPostgresBackend(db *gorm.DB, schema Schema) (*PostgresBackend, error) {
	for _, t := range schema.Tables() {
		if len(t.Indexes) > len(indexColumns) {
			return nil, fmt.Errorf("table %s has %d indexes, postgres backend supports %d", t.Name, len(t.Indexes), len(indexColumns))
		}
	}
	return &PostgresBackend{db: db, schema: schema}, nil
}

func (p *PostgresBackend) EnsureTables(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&kvItem{}); err != nil {
		return fmt.Errorf("migrate kv_items: %w", err)
	}
	return nil
}

func (p *PostgresBackend) GetItem(ctx context.Context, table string, key Key) (Item, error) {
	spec, err := p.schema.Table(table)
	if err != nil {
		return nil, err
	}
	if err := spec.validateKey(key); err != nil {
		return nil, err
	}
	pk, sk := baseKey(spec, key)

	var row kvItem
	err = p.db.WithContext(ctx).
		Where("collection = ? AND pk = ? AND sk = ?", table, pk, sk).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item from %s: %w", table, err)
	}
	return decodeBody(row.Body)
}

func (p *PostgresBackend) PutItem(ctx context.Context, table string, item Item, opts ...PutOption) error {
	spec, err := p.schema.Table(table)
	if err != nil {
		return err
	}
	if err := spec.validateKey(spec.KeyOf(item)); err != nil {
		return err
	}
	row, err := newKVItem(spec, item)
	if err != nil {
		return err
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "pk"}, {Name: "sk"}},
		UpdateAll: true,
	}
	ifNotExists := collectPutOptions(opts).IfNotExists
	if ifNotExists {
		conflict = clause.OnConflict{DoNothing: true}
	}

	result := p.db.WithContext(ctx).Clauses(conflict).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("put item into %s: %w", table, result.Error)
	}
	if ifNotExists && result.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (p *PostgresBackend) UpdateItem(ctx context.Context, table string, key Key, changes map[string]any) (Item, error) {
	spec, err := p.schema.Table(table)
	if err != nil {
		return nil, err
	}
	if err := spec.validateKey(key); err != nil {
		return nil, err
	}
	pk, sk := baseKey(spec, key)

	var updated Item
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row kvItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND pk = ? AND sk = ?", table, pk, sk).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		item, err := decodeBody(row.Body)
		if err != nil {
			return err
		}
		for name, value := range changes {
			if slices.Contains(spec.KeyAttributes(), name) {
				return fmt.Errorf("table %s: cannot update key attribute %s", table, name)
			}
			av, err := marshalChange(name, value)
			if err != nil {
				return err
			}
			item[name] = av
		}

		next, err := newKVItem(spec, item)
		if err != nil {
			return err
		}
		err = tx.Model(&kvItem{}).
			Where("collection = ? AND pk = ? AND sk = ?", table, pk, sk).
			Updates(map[string]any{
				"body":    next.Body,
				"idx1_pk": next.Idx1PK,
				"idx1_sk": next.Idx1SK,
				"idx2_pk": next.Idx2PK,
				"idx2_sk": next.Idx2SK,
			}).Error
		if err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update item in %s: %w", table, err)
	}
	return updated, nil
}

func (p *PostgresBackend) DeleteItem(ctx context.Context, table string, key Key) (bool, error) {
	spec, err := p.schema.Table(table)
	if err != nil {
		return false, err
	}
	if err := spec.validateKey(key); err != nil {
		return false, err
	}
	pk, sk := baseKey(spec, key)

	result := p.db.WithContext(ctx).
		Where("collection = ? AND pk = ? AND sk = ?", table, pk, sk).
		Delete(&kvItem{})
	if result.Error != nil {
		return false, fmt.Errorf("delete item from %s: %w", table, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (p *PostgresBackend) Query(ctx context.Context, in QueryInput) (Page, error) {
	spec, err := p.schema.Table(in.Table)
	if err != nil {
		return Page{}, err
	}

	tx := p.db.WithContext(ctx).Model(&kvItem{}).Where("collection = ?", in.Table)
	if in.Index == "" {
		tx = tx.Where("pk = ?", in.PartitionValue)
		if in.SortPrefix != "" {
			tx = tx.Where("starts_with(sk, ?)", in.SortPrefix)
		}
		if len(in.StartKey) > 0 {
			_, sk := baseKey(spec, in.StartKey)
			tx = tx.Where("sk > ?", sk)
		}
		tx = tx.Order("sk")
	} else {
		pos := slices.IndexFunc(spec.Indexes, func(idx IndexSpec) bool { return idx.Name == in.Index })
		if pos < 0 {
			return Page{}, fmt.Errorf("table %s has no index %s", in.Table, in.Index)
		}
		idx, cols := spec.Indexes[pos], indexColumns[pos]
		tx = tx.Where(cols[0]+" = ?", in.PartitionValue)
		if in.SortPrefix != "" {
			tx = tx.Where("starts_with("+cols[1]+", ?)", in.SortPrefix)
		}
		if len(in.StartKey) > 0 {
			pk, sk := baseKey(spec, in.StartKey)
			tx = tx.Where("("+cols[1]+", pk, sk) > (?, ?, ?)", in.StartKey[idx.SortKey], pk, sk)
		}
		tx = tx.Order(cols[1]).Order("pk").Order("sk")
	}

	return p.fetch(tx, in.Limit, func(item Item) Key {
		return spec.PositionOf(item, in.Index)
	})
}

func (p *PostgresBackend) Scan(ctx context.Context, in ScanInput) (Page, error) {
	spec, err := p.schema.Table(in.Table)
	if err != nil {
		return Page{}, err
	}

	tx := p.db.WithContext(ctx).Model(&kvItem{}).Where("collection = ?", in.Table)
	for _, c := range in.Conditions {
		query, args, err := conditionClause(c)
		if err != nil {
			return Page{}, err
		}
		tx = tx.Where(query, args...)
	}
	if len(in.StartKey) > 0 {
		pk, sk := baseKey(spec, in.StartKey)
		tx = tx.Where("(pk, sk) > (?, ?)", pk, sk)
	}
	tx = tx.Order("pk").Order("sk")

	return p.fetch(tx, in.Limit, spec.KeyOf)
}

// conditionClause renders a filter over the jsonb body. Contains matches list
// elements exactly and scalars by substring, like DynamoDB's contains().
func conditionClause(c Condition) (string, []any, error) {
	switch c.Op {
	case OpContains:
		return "(CASE WHEN jsonb_typeof(body->?) = 'array' THEN jsonb_exists(body->?, ?) ELSE strpos(body->>?, ?) > 0 END)",
			[]any{c.Attribute, c.Attribute, c.Value, c.Attribute, c.Value}, nil
	case OpEquals:
		return "body->>? = ?", []any{c.Attribute, c.Value}, nil
	}
	return "", nil, fmt.Errorf("unsupported condition %q", c.Op)
}

// fetch reads one more row than asked so it can tell whether a continuation
// key is needed.
func (p *PostgresBackend) fetch(tx *gorm.DB, limit int32, keyOf func(Item) Key) (Page, error) {
	if limit > 0 {
		tx = tx.Limit(int(limit) + 1)
	}
	var rows []kvItem
	if err := tx.Find(&rows).Error; err != nil {
		return Page{}, fmt.Errorf("read kv_items: %w", err)
	}

	more := limit > 0 && len(rows) > int(limit)
	if more {
		rows = rows[:limit]
	}

	page := Page{Items: make([]Item, 0, len(rows))}
	for _, row := range rows {
		item, err := decodeBody(row.Body)
		if err != nil {
			return Page{}, err
		}
		page.Items = append(page.Items, item)
	}
	if more && len(page.Items) > 0 {
		page.LastKey = keyOf(page.Items[len(page.Items)-1])
	}
	return page, nil
}

func baseKey(spec TableSpec, key Key) (string, string) {
	if spec.SortKey == "" {
		return key[spec.PartitionKey], ""
	}
	return key[spec.PartitionKey], key[spec.SortKey]
}

func newKVItem(spec TableSpec, item Item) (kvItem, error) {
	body, err := encodeBody(item)
	if err != nil {
		return kvItem{}, err
	}
	pk, sk := baseKey(spec, spec.KeyOf(item))
	row := kvItem{Collection: spec.Name, PK: pk, SK: sk, Body: body}

	project := func(attr string) *string {
		if _, ok := item[attr]; !ok {
			return nil
		}
		v := StringAttr(item, attr)
		return &v
	}
	for i, idx := range spec.Indexes {
		idxPK, idxSK := project(idx.PartitionKey), project(idx.SortKey)
		if idxPK == nil {
			continue
		}
		switch i {
		case 0:
			row.Idx1PK, row.Idx1SK = idxPK, idxSK
		case 1:
			row.Idx2PK, row.Idx2SK = idxPK, idxSK
		}
	}
	return row, nil
}

func encodeBody(item Item) (string, error) {
	var doc map[string]any
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return "", fmt.Errorf("decode item attributes: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode item body: %w", err)
	}
	return string(raw), nil
}

func decodeBody(body string) (Item, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode item body: %w", err)
	}
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return nil, fmt.Errorf("encode item attributes: %w", err)
	}
	return item, nil
}
