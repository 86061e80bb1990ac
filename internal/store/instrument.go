package store

import (
	"context"
	"errors"
	"time"

	"github.com/farellandr/userevents/internal/metrics"
)

type instrumented struct {
	next Backend
	name string
}

// Instrument records latency and errors of every call on b under the given
// backend label. A failed conditional put is not counted as an error.
func Instrument(b Backend, name string) Backend {
	return &instrumented{next: b, name: name}
}

func (i *instrumented) observe(op, table string, started time.Time, err error) {
	if errors.Is(err, ErrConditionFailed) {
		err = nil
	}
	metrics.ObserveStoreOperation(i.name, op, table, started, err)
}

func (i *instrumented) GetItem(ctx context.Context, table string, key Key) (Item, error) {
	started := time.Now()
	item, err := i.next.GetItem(ctx, table, key)
	i.observe("get_item", table, started, err)
	return item, err
}

func (i *instrumented) PutItem(ctx context.Context, table string, item Item, opts ...PutOption) error {
	started := time.Now()
	err := i.next.PutItem(ctx, table, item, opts...)
	i.observe("put_item", table, started, err)
	return err
}

func (i *instrumented) UpdateItem(ctx context.Context, table string, key Key, changes map[string]any) (Item, error) {
	started := time.Now()
	item, err := i.next.UpdateItem(ctx, table, key, changes)
	i.observe("update_item", table, started, err)
	return item, err
}

func (i *instrumented) DeleteItem(ctx context.Context, table string, key Key) (bool, error) {
	started := time.Now()
	existed, err := i.next.DeleteItem(ctx, table, key)
	i.observe("delete_item", table, started, err)
	return existed, err
}

func (i *instrumented) Query(ctx context.Context, in QueryInput) (Page, error) {
	started := time.Now()
	page, err := i.next.Query(ctx, in)
	i.observe("query", in.Table, started, err)
	return page, err
}

func (i *instrumented) Scan(ctx context.Context, in ScanInput) (Page, error) {
	started := time.Now()
	page, err := i.next.Scan(ctx, in)
	i.observe("scan", in.Table, started, err)
	return page, err
}

// EnsureTables forwards to the wrapped backend when it can provision.
func (i *instrumented) EnsureTables(ctx context.Context) error {
	if p, ok := i.next.(Provisioner); ok {
		return p.EnsureTables(ctx)
	}
	return nil
}
