package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MemoryBackend keeps every table in process. With a page size set, each
// Query or Scan evaluates at most that many items before applying filter
// conditions, the way DynamoDB applies Limit, so callers have to follow
// LastKey to see everything.
type MemoryBackend struct {
	mu       sync.RWMutex
	schema   Schema
	tables   map[string]map[string]Item
	pageSize int32
}

type MemoryOption func(*MemoryBackend)

// WithPageSize caps how many items one Query or Scan call evaluates.
func WithPageSize(n int32) MemoryOption {
	return func(m *MemoryBackend) {
		m.pageSize = n
	}
}

func NewMemoryBackend(schema Schema, opts ...MemoryOption) *MemoryBackend {
	m := &MemoryBackend{
		schema: schema,
		tables: make(map[string]map[string]Item),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, t := range schema.Tables() {
		m.tables[t.Name] = make(map[string]Item)
	}
	return m
}

func (m *MemoryBackend) EnsureTables(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.schema.Tables() {
		if _, ok := m.tables[t.Name]; !ok {
			m.tables[t.Name] = make(map[string]Item)
		}
	}
	return nil
}

func (m *MemoryBackend) GetItem(ctx context.Context, table string, key Key) (Item, error) {
	spec, err := m.schema.Table(table)
	if err != nil {
		return nil, err
	}
	if err := spec.validateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.tables[table][storageKey(spec, key)]
	if !ok {
		return nil, nil
	}
	return maps.Clone(item), nil
}

func (m *MemoryBackend) PutItem(ctx context.Context, table string, item Item, opts ...PutOption) error {
	spec, err := m.schema.Table(table)
	if err != nil {
		return err
	}
	key := spec.KeyOf(item)
	if err := spec.validateKey(key); err != nil {
		return err
	}
	o := collectPutOptions(opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	id := storageKey(spec, key)
	if _, exists := m.tables[table][id]; exists && o.IfNotExists {
		return ErrConditionFailed
	}
	m.tables[table][id] = maps.Clone(item)
	return nil
}

func (m *MemoryBackend) UpdateItem(ctx context.Context, table string, key Key, changes map[string]any) (Item, error) {
	spec, err := m.schema.Table(table)
	if err != nil {
		return nil, err
	}
	if err := spec.validateKey(key); err != nil {
		return nil, err
	}
	values := make(Item, len(changes))
	for name, value := range changes {
		if slices.Contains(spec.KeyAttributes(), name) {
			return nil, fmt.Errorf("table %s: cannot update key attribute %s", table, name)
		}
		av, err := marshalChange(name, value)
		if err != nil {
			return nil, err
		}
		values[name] = av
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := storageKey(spec, key)
	current, ok := m.tables[table][id]
	if !ok {
		return nil, nil
	}
	updated := maps.Clone(current)
	maps.Copy(updated, values)
	m.tables[table][id] = updated
	return maps.Clone(updated), nil
}

func (m *MemoryBackend) DeleteItem(ctx context.Context, table string, key Key) (bool, error) {
	spec, err := m.schema.Table(table)
	if err != nil {
		return false, err
	}
	if err := spec.validateKey(key); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := storageKey(spec, key)
	if _, ok := m.tables[table][id]; !ok {
		return false, nil
	}
	delete(m.tables[table], id)
	return true, nil
}

func (m *MemoryBackend) Query(ctx context.Context, in QueryInput) (Page, error) {
	spec, err := m.schema.Table(in.Table)
	if err != nil {
		return Page{}, err
	}
	pkAttr, skAttr := spec.PartitionKey, spec.SortKey
	if in.Index != "" {
		idx, ok := spec.Index(in.Index)
		if !ok {
			return Page{}, fmt.Errorf("table %s has no index %s", in.Table, in.Index)
		}
		pkAttr, skAttr = idx.PartitionKey, idx.SortKey
	}

	m.mu.RLock()
	var matched []Item
	for _, item := range m.tables[in.Table] {
		if StringAttr(item, pkAttr) != in.PartitionValue {
			continue
		}
		if skAttr != "" {
			if _, present := item[skAttr]; !present {
				continue
			}
			if !strings.HasPrefix(StringAttr(item, skAttr), in.SortPrefix) {
				continue
			}
		}
		matched = append(matched, maps.Clone(item))
	}
	m.mu.RUnlock()

	order := func(item Item) []string {
		pos := []string{StringAttr(item, skAttr)}
		for _, name := range spec.KeyAttributes() {
			pos = append(pos, StringAttr(item, name))
		}
		return pos
	}
	return m.paginate(matched, order, in.StartKey, in.Limit, nil, func(item Item) Key {
		return spec.PositionOf(item, in.Index)
	}), nil
}

func (m *MemoryBackend) Scan(ctx context.Context, in ScanInput) (Page, error) {
	spec, err := m.schema.Table(in.Table)
	if err != nil {
		return Page{}, err
	}

	m.mu.RLock()
	all := make([]Item, 0, len(m.tables[in.Table]))
	for _, item := range m.tables[in.Table] {
		all = append(all, maps.Clone(item))
	}
	m.mu.RUnlock()

	order := func(item Item) []string {
		var pos []string
		for _, name := range spec.KeyAttributes() {
			pos = append(pos, StringAttr(item, name))
		}
		return pos
	}
	return m.paginate(all, order, in.StartKey, in.Limit, in.Conditions, spec.KeyOf), nil
}

// paginate sorts candidates by position, skips everything up to and including
// startKey, evaluates at most the effective limit and keeps those matching
// every condition.
func (m *MemoryBackend) paginate(items []Item, position func(Item) []string, startKey Key, limit int32, conds []Condition, keyOf func(Item) Key) Page {
	slices.SortFunc(items, func(a, b Item) int {
		return slices.Compare(position(a), position(b))
	})

	start := 0
	if len(startKey) > 0 {
		resume := position(keyItem(startKey))
		start = len(items)
		for i, item := range items {
			if slices.Compare(position(item), resume) > 0 {
				start = i
				break
			}
		}
	}

	window := int32(len(items) - start)
	if limit > 0 && limit < window {
		window = limit
	}
	if m.pageSize > 0 && m.pageSize < window {
		window = m.pageSize
	}
	end := start + int(window)

	var page Page
	for _, item := range items[start:end] {
		if matchesAll(item, conds) {
			page.Items = append(page.Items, item)
		}
	}
	if end < len(items) && end > start {
		page.LastKey = keyOf(items[end-1])
	}
	return page
}

func matchesAll(item Item, conds []Condition) bool {
	for _, c := range conds {
		if !matches(item, c) {
			return false
		}
	}
	return true
}

func matches(item Item, c Condition) bool {
	switch c.Op {
	case OpEquals:
		return StringAttr(item, c.Attribute) == c.Value
	case OpContains:
		switch v := item[c.Attribute].(type) {
		case *types.AttributeValueMemberS:
			return strings.Contains(v.Value, c.Value)
		case *types.AttributeValueMemberN:
			return strings.Contains(v.Value, c.Value)
		case *types.AttributeValueMemberSS:
			return slices.Contains(v.Value, c.Value)
		case *types.AttributeValueMemberL:
			for _, elem := range v.Value {
				if s, ok := elem.(*types.AttributeValueMemberS); ok && s.Value == c.Value {
					return true
				}
			}
		}
	}
	return false
}

func storageKey(spec TableSpec, key Key) string {
	parts := make([]string, 0, 2)
	for _, name := range spec.KeyAttributes() {
		parts = append(parts, key[name])
	}
	return strings.Join(parts, "\x00")
}
