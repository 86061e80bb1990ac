package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/store"
)

var errUnavailable = errors.New("connection refused")

func newMemory(pageSize int32) (*store.MemoryBackend, store.Schema) {
	schema := store.NewSchema(store.DefaultTableNames())
	var opts []store.MemoryOption
	if pageSize > 0 {
		opts = append(opts, store.WithPageSize(pageSize))
	}
	return store.NewMemoryBackend(schema, opts...), schema
}

// failingBackend fails every Query and Scan after the first okCalls of them.
type failingBackend struct {
	store.Backend
	okCalls int
	calls   int
}

func (f *failingBackend) Query(ctx context.Context, in store.QueryInput) (store.Page, error) {
	f.calls++
	if f.calls > f.okCalls {
		return store.Page{}, errUnavailable
	}
	return f.Backend.Query(ctx, in)
}

func (f *failingBackend) Scan(ctx context.Context, in store.ScanInput) (store.Page, error) {
	f.calls++
	if f.calls > f.okCalls {
		return store.Page{}, errUnavailable
	}
	return f.Backend.Scan(ctx, in)
}

// countingBackend records how many underlying paginated calls were made.
type countingBackend struct {
	store.Backend
	queries int
	scans   int
}

func (c *countingBackend) Query(ctx context.Context, in store.QueryInput) (store.Page, error) {
	c.queries++
	return c.Backend.Query(ctx, in)
}

func (c *countingBackend) Scan(ctx context.Context, in store.ScanInput) (store.Page, error) {
	c.scans++
	return c.Backend.Scan(ctx, in)
}

func testUser(id string) models.User {
	return models.User{
		UserID:      id,
		FirstName:   "First " + id,
		LastName:    "Last " + id,
		PhoneNumber: "555-" + id,
		Email:       id + "@example.com",
		Company:     "Company " + id,
	}
}

func testEvent(id string) models.Event {
	return models.Event{
		EventID: id,
		Slug:    "slug-" + id,
		Title:   "Event " + id,
		StartAt: "2025-08-01T10:00:00Z",
		EndAt:   "2025-08-01T12:00:00Z",
		Venue:   "Venue " + id,
	}
}

func numbered(prefix string, i int) string {
	return fmt.Sprintf("%s%02d", prefix, i)
}
