package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/store"
)

type RelationRepository struct {
	backend store.Backend
	table   store.TableSpec
	opts    Options
}

func NewRelationRepository(backend store.Backend, schema store.Schema, opts Options) *RelationRepository {
	return &RelationRepository{backend: backend, table: schema.Relations, opts: opts.withDefaults()}
}

// EventsForUser returns every relation on the user's forward partition, in
// sort-key order.
func (r *RelationRepository) EventsForUser(ctx context.Context, userID string) ([]models.Relation, error) {
	return r.queryAll(ctx, "events for user", store.QueryInput{
		Table:          r.table.Name,
		PartitionValue: models.UserPartitionKey(userID),
		SortPrefix:     models.EventKeyPrefix,
	})
}

// UsersForEvent reads the inverse index for the event.
func (r *RelationRepository) UsersForEvent(ctx context.Context, eventID string) ([]models.Relation, error) {
	return r.queryAll(ctx, "users for event", store.QueryInput{
		Table:          r.table.Name,
		Index:          store.InverseIndexName,
		PartitionValue: models.EventPartitionKey(eventID),
		SortPrefix:     models.UserKeyPrefix,
	})
}

// RelationsByRole returns every relation tagged with role, across all pages.
func (r *RelationRepository) RelationsByRole(ctx context.Context, role models.Role) ([]models.Relation, error) {
	if r.opts.RoleStrategy == RoleStrategyScan {
		return r.scanByRole(ctx, role)
	}
	return r.queryAll(ctx, "relations by role", store.QueryInput{
		Table:          r.table.Name,
		Index:          store.RoleIndexName,
		PartitionValue: string(role),
	})
}

func (r *RelationRepository) queryAll(ctx context.Context, op string, in store.QueryInput) ([]models.Relation, error) {
	in.Limit = r.opts.ScanBatchSize
	var items []store.Item
	for {
		page, err := r.backend.Query(ctx, in)
		if err != nil {
			return nil, storeError(op, err)
		}
		items = append(items, page.Items...)
		if page.LastKey == nil {
			break
		}
		in.StartKey = page.LastKey
	}
	return decodeRelations(op, items)
}

func (r *RelationRepository) scanByRole(ctx context.Context, role models.Role) ([]models.Relation, error) {
	const op = "relations by role"
	in := store.ScanInput{
		Table:      r.table.Name,
		Conditions: []store.Condition{store.Equals("role", string(role))},
		Limit:      r.opts.ScanBatchSize,
	}
	var items []store.Item
	for {
		page, err := r.backend.Scan(ctx, in)
		if err != nil {
			return nil, storeError(op, err)
		}
		items = append(items, page.Items...)
		if page.LastKey == nil {
			break
		}
		in.StartKey = page.LastKey
	}
	return decodeRelations(op, items)
}

func decodeRelations(op string, items []store.Item) ([]models.Relation, error) {
	rels, err := decodeAll[models.Relation](op, items)
	if err != nil {
		return nil, err
	}
	for i := range rels {
		rels[i] = rels[i].Normalize()
	}
	return rels, nil
}

// Create stores a relation with its role tag lower-cased. Each
// (user, event, role) may exist once.
func (r *RelationRepository) Create(ctx context.Context, rel models.Relation) error {
	rel = rel.Normalize()
	if rel.UserID == "" || rel.EventID == "" || rel.Role == "" {
		return apperrors.Validation("create relation", "user_id, event_id and role are required")
	}
	item, err := encode("create relation", rel)
	if err != nil {
		return err
	}
	err = r.backend.PutItem(ctx, r.table.Name, item, store.IfNotExists())
	if errors.Is(err, store.ErrConditionFailed) {
		return apperrors.Conflict("create relation", fmt.Sprintf("user %s already has role %s on event %s", rel.UserID, rel.Role, rel.EventID))
	}
	if err != nil {
		return storeError("create relation", err)
	}
	return nil
}

// Link builds a relation from the current user and event records and stores it.
func (r *RelationRepository) Link(ctx context.Context, user models.User, event models.Event, role models.Role) (models.Relation, error) {
	rel := models.NewRelation(user, event, role).Normalize()
	if err := r.Create(ctx, rel); err != nil {
		return models.Relation{}, err
	}
	return rel, nil
}
