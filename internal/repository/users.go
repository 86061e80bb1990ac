package repository

import (
	"context"
	"errors"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/store"
)

type UserRepository struct {
	backend store.Backend
	table   store.TableSpec
	opts    Options
}

func NewUserRepository(backend store.Backend, schema store.Schema, opts Options) *UserRepository {
	return &UserRepository{backend: backend, table: schema.Users, opts: opts.withDefaults()}
}

func (r *UserRepository) key(userID string) store.Key {
	return store.Key{r.table.PartitionKey: userID}
}

// Get returns found=false, and no error, when the user does not exist.
func (r *UserRepository) Get(ctx context.Context, userID string) (models.User, bool, error) {
	item, err := r.backend.GetItem(ctx, r.table.Name, r.key(userID))
	if err != nil {
		return models.User{}, false, storeError("get user", err)
	}
	if item == nil {
		return models.User{}, false, nil
	}
	user, err := decode[models.User]("get user", item)
	return user, err == nil, err
}

// Create inserts a new user. An existing user with the same id is a conflict.
func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	if user.UserID == "" {
		return apperrors.Validation("create user", "user_id is required")
	}
	item, err := encode("create user", user)
	if err != nil {
		return err
	}
	err = r.backend.PutItem(ctx, r.table.Name, item, store.IfNotExists())
	if errors.Is(err, store.ErrConditionFailed) {
		return apperrors.Conflict("create user", "user "+user.UserID+" already exists")
	}
	if err != nil {
		return storeError("create user", err)
	}
	return nil
}

// Update applies the supplied fields and returns the stored result.
func (r *UserRepository) Update(ctx context.Context, userID string, update models.UserUpdate) (models.User, bool, error) {
	changes := update.Changes()
	if len(changes) == 0 {
		return models.User{}, false, apperrors.Validation("update user", "no fields to update")
	}
	item, err := r.backend.UpdateItem(ctx, r.table.Name, r.key(userID), changes)
	if err != nil {
		return models.User{}, false, storeError("update user", err)
	}
	if item == nil {
		return models.User{}, false, nil
	}
	user, err := decode[models.User]("update user", item)
	return user, err == nil, err
}

// Delete removes the user record only. Relation records that reference the
// user are left in place.
func (r *UserRepository) Delete(ctx context.Context, userID string) (bool, error) {
	existed, err := r.backend.DeleteItem(ctx, r.table.Name, r.key(userID))
	if err != nil {
		return false, storeError("delete user", err)
	}
	return existed, nil
}

// Scan returns one page of users matching every non-blank filter.
func (r *UserRepository) Scan(ctx context.Context, req models.FilterRequest) (models.Page[models.User], error) {
	sr, err := newScanRequest("scan users", r.table, req, models.UserAttributes)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	items, next, err := scanAccumulate(ctx, r.backend, r.table, sr, r.opts)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	users, err := decodeAll[models.User]("scan users", items)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	return models.Page[models.User]{
		Items:            users,
		LastEvaluatedKey: cursorToken(next),
		Limit:            sr.limit,
	}, nil
}

// GetMany looks up each id in order and skips ids that do not exist.
func (r *UserRepository) GetMany(ctx context.Context, userIDs []string) ([]models.User, error) {
	users := make([]models.User, 0, len(userIDs))
	for _, id := range userIDs {
		user, found, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			users = append(users, user)
		}
	}
	return users, nil
}
