package repository

import (
	"context"
	"errors"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/store"
)

type EventRepository struct {
	backend store.Backend
	table   store.TableSpec
}

func NewEventRepository(backend store.Backend, schema store.Schema) *EventRepository {
	return &EventRepository{backend: backend, table: schema.Events}
}

func (r *EventRepository) key(eventID string) store.Key {
	return store.Key{r.table.PartitionKey: eventID}
}

func (r *EventRepository) Get(ctx context.Context, eventID string) (models.Event, bool, error) {
	item, err := r.backend.GetItem(ctx, r.table.Name, r.key(eventID))
	if err != nil {
		return models.Event{}, false, storeError("get event", err)
	}
	if item == nil {
		return models.Event{}, false, nil
	}
	event, err := decode[models.Event]("get event", item)
	return event, err == nil, err
}

func (r *EventRepository) Create(ctx context.Context, event models.Event) error {
	if event.EventID == "" {
		return apperrors.Validation("create event", "event_id is required")
	}
	item, err := encode("create event", event)
	if err != nil {
		return err
	}
	err = r.backend.PutItem(ctx, r.table.Name, item, store.IfNotExists())
	if errors.Is(err, store.ErrConditionFailed) {
		return apperrors.Conflict("create event", "event "+event.EventID+" already exists")
	}
	if err != nil {
		return storeError("create event", err)
	}
	return nil
}

func (r *EventRepository) Update(ctx context.Context, eventID string, update models.EventUpdate) (models.Event, bool, error) {
	changes := update.Changes()
	if len(changes) == 0 {
		return models.Event{}, false, apperrors.Validation("update event", "no fields to update")
	}
	item, err := r.backend.UpdateItem(ctx, r.table.Name, r.key(eventID), changes)
	if err != nil {
		return models.Event{}, false, storeError("update event", err)
	}
	if item == nil {
		return models.Event{}, false, nil
	}
	event, err := decode[models.Event]("update event", item)
	return event, err == nil, err
}

// Delete removes the event record only; its relations stay.
func (r *EventRepository) Delete(ctx context.Context, eventID string) (bool, error) {
	existed, err := r.backend.DeleteItem(ctx, r.table.Name, r.key(eventID))
	if err != nil {
		return false, storeError("delete event", err)
	}
	return existed, nil
}
