package repository

import (
	"context"
	"time"

	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/store"
)

type EmailLogRepository struct {
	backend store.Backend
	table   store.TableSpec
	opts    Options
	now     func() time.Time
}

func NewEmailLogRepository(backend store.Backend, schema store.Schema, opts Options) *EmailLogRepository {
	return &EmailLogRepository{
		backend: backend,
		table:   schema.EmailLogs,
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

// LogEmailStatus writes or overwrites the delivery record for emailID.
func (r *EmailLogRepository) LogEmailStatus(ctx context.Context, emailID, recipient, status string) error {
	item, err := encode("log email status", models.EmailLog{
		EmailID:        emailID,
		RecipientEmail: recipient,
		Status:         status,
		CreatedAt:      r.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := r.backend.PutItem(ctx, r.table.Name, item); err != nil {
		return storeError("log email status", err)
	}
	return nil
}

func (r *EmailLogRepository) Get(ctx context.Context, emailID string) (models.EmailLog, bool, error) {
	item, err := r.backend.GetItem(ctx, r.table.Name, store.Key{r.table.PartitionKey: emailID})
	if err != nil {
		return models.EmailLog{}, false, storeError("get email log", err)
	}
	if item == nil {
		return models.EmailLog{}, false, nil
	}
	log, err := decode[models.EmailLog]("get email log", item)
	return log, err == nil, err
}

// List returns one page of delivery records in store order.
func (r *EmailLogRepository) List(ctx context.Context, limit int, cursor string) (models.Page[models.EmailLog], error) {
	sr, err := newScanRequest("list email logs", r.table, models.FilterRequest{
		Limit:             limit,
		ExclusiveStartKey: cursor,
	}, nil)
	if err != nil {
		return models.Page[models.EmailLog]{}, err
	}
	items, next, err := scanAccumulate(ctx, r.backend, r.table, sr, r.opts)
	if err != nil {
		return models.Page[models.EmailLog]{}, err
	}
	logs, err := decodeAll[models.EmailLog]("list email logs", items)
	if err != nil {
		return models.Page[models.EmailLog]{}, err
	}
	return models.Page[models.EmailLog]{
		Items:            logs,
		LastEvaluatedKey: cursorToken(next),
		Limit:            sr.limit,
	}, nil
}
