package seed

import (
	"context"
	"testing"

	"github.com/farellandr/userevents/internal/aggregation"
	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/repository"
	"github.com/farellandr/userevents/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepositories(t *testing.T) (*repository.UserRepository, *repository.EventRepository, *repository.RelationRepository) {
	t.Helper()
	schema := store.NewSchema(store.DefaultTableNames())
	backend := store.NewMemoryBackend(schema, store.WithPageSize(2))
	require.NoError(t, backend.EnsureTables(context.Background()))
	opts := repository.DefaultOptions()
	return repository.NewUserRepository(backend, schema, opts),
		repository.NewEventRepository(backend, schema),
		repository.NewRelationRepository(backend, schema, opts)
}

func TestRunSeedsSampleData(t *testing.T) {
	ctx := context.Background()
	users, events, relations := newRepositories(t)

	res, err := Run(ctx, users, events, relations)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 3, Events: 3, Relations: 7}, res)

	alice, found, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice@example.com", alice.Email)

	rels, err := relations.UsersForEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, rels, 3)

	rels, err = relations.EventsForUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, rels, 3)
}

func TestRunIsRepeatable(t *testing.T) {
	ctx := context.Background()
	users, events, relations := newRepositories(t)

	_, err := Run(ctx, users, events, relations)
	require.NoError(t, err)

	res, err := Run(ctx, users, events, relations)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	rels, err := relations.RelationsByRole(ctx, models.RoleHost)
	require.NoError(t, err)
	assert.Len(t, rels, 4)
}

func TestSampleHostsByMinEvents(t *testing.T) {
	ctx := context.Background()
	users, events, relations := newRepositories(t)
	_, err := Run(ctx, users, events, relations)
	require.NoError(t, err)

	engine := aggregation.NewEngine(relations)

	hosts, err := engine.UsersByRoleWithMinEvents(ctx, models.RoleHost, 2)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "u2", hosts[0].UserID)
	assert.Equal(t, 2, hosts[0].EventCount)

	owners, err := engine.UsersByRoleWithMinEvents(ctx, models.RoleOwner, 1)
	require.NoError(t, err)
	ids := make([]string, 0, len(owners))
	for _, o := range owners {
		ids = append(ids, o.UserID)
	}
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)
}
