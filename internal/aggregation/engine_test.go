package aggregation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/repository"
	"github.com/farellandr/userevents/internal/store"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	rels  []models.Relation
	err   error
	calls int
}

func (s *staticSource) RelationsByRole(ctx context.Context, role models.Role) ([]models.Relation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Relation
	for _, rel := range s.rels {
		if rel.Role == role {
			out = append(out, rel)
		}
	}
	return out, nil
}

func relation(user, event string, role models.Role) models.Relation {
	return models.NewRelation(
		models.User{UserID: user, FirstName: "First " + user},
		models.Event{EventID: event, Title: "Event " + event},
		role,
	)
}

func userIDs(summaries []models.RoleUserSummary) []string {
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.UserID)
	}
	return ids
}

func TestUsersByRoleWithMinEventsScenario(t *testing.T) {
	ctx := context.Background()
	schema := store.NewSchema(store.DefaultTableNames())
	backend := store.NewMemoryBackend(schema, store.WithPageSize(1))
	relations := repository.NewRelationRepository(backend, schema, repository.Options{ScanBatchSize: 1})

	for _, r := range []models.Relation{
		relation("u1", "e1", models.RoleHost),
		relation("u1", "e2", models.RoleHost),
		relation("u2", "e1", models.RoleHost),
		relation("u3", "e1", models.RoleOwner),
	} {
		require.NoError(t, relations.Create(ctx, r))
	}
	engine := NewEngine(relations)

	got, err := engine.UsersByRoleWithMinEvents(ctx, models.RoleHost, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, userIDs(got))
	assert.Equal(t, 2, got[0].EventCount)
	assert.Equal(t, "EventHosting", got[0].Type)
	assert.Equal(t, "First u1", got[0].FirstName)

	got, err = engine.UsersByRoleWithMinEvents(ctx, models.RoleHost, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, userIDs(got))

	got, err = engine.UsersByRoleWithMinEvents(ctx, models.RoleHost, 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = engine.UsersByRoleWithMinEvents(ctx, models.RoleAttendee, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUsersByRoleWithMinEventsSkipsMissingUser(t *testing.T) {
	orphan := relation("", "e9", models.RoleHost)
	source := &staticSource{rels: []models.Relation{orphan, relation("u1", "e1", models.RoleHost)}}

	got, err := NewEngine(source).UsersByRoleWithMinEvents(context.Background(), models.RoleHost, -5)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, userIDs(got))
}

func TestUsersByRoleWithMinEventsFailure(t *testing.T) {
	cause := apperrors.Infrastructure("relations by role", errors.New("throttled"))
	source := &staticSource{err: cause}

	got, err := NewEngine(source).UsersByRoleWithMinEvents(context.Background(), models.RoleHost, 1)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrAggregation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperrors.KindAggregation, apperrors.KindOf(err))
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, 1, source.calls)
}

// genRelations builds host relations over six users and eight events from
// generated codes; duplicates of the same (user, event) are dropped.
func genRelations(codes []int) []models.Relation {
	seen := make(map[int]bool)
	var rels []models.Relation
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		rels = append(rels, relation(fmt.Sprintf("u%d", code%6), fmt.Sprintf("e%d", code/6), models.RoleHost))
	}
	return rels
}

func TestUsersByRoleWithMinEventsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("min_events 0 returns every distinct user once", prop.ForAll(
		func(codes []int) bool {
			rels := genRelations(codes)
			got, err := NewEngine(&staticSource{rels: rels}).UsersByRoleWithMinEvents(ctx, models.RoleHost, 0)
			if err != nil {
				return false
			}
			distinct := make(map[string]bool)
			for _, rel := range rels {
				distinct[rel.UserID] = true
			}
			seen := make(map[string]bool)
			for _, s := range got {
				if seen[s.UserID] || !distinct[s.UserID] {
					return false
				}
				seen[s.UserID] = true
			}
			return len(seen) == len(distinct)
		},
		gen.SliceOf(gen.IntRange(0, 47)),
	))

	properties.Property("raising min_events never adds users", prop.ForAll(
		func(codes []int, n int) bool {
			engine := NewEngine(&staticSource{rels: genRelations(codes)})
			lower, err := engine.UsersByRoleWithMinEvents(ctx, models.RoleHost, n)
			if err != nil {
				return false
			}
			higher, err := engine.UsersByRoleWithMinEvents(ctx, models.RoleHost, n+1)
			if err != nil {
				return false
			}
			allowed := make(map[string]bool)
			for _, s := range lower {
				allowed[s.UserID] = true
			}
			for _, s := range higher {
				if !allowed[s.UserID] {
					return false
				}
			}
			return len(higher) <= len(lower)
		},
		gen.SliceOf(gen.IntRange(0, 47)),
		gen.IntRange(-2, 9),
	))

	properties.Property("repeated calls return identical output", prop.ForAll(
		func(codes []int, n int) bool {
			engine := NewEngine(&staticSource{rels: genRelations(codes)})
			first, err := engine.UsersByRoleWithMinEvents(ctx, models.RoleHost, n)
			if err != nil {
				return false
			}
			second, err := engine.UsersByRoleWithMinEvents(ctx, models.RoleHost, n)
			if err != nil || len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 47)),
		gen.IntRange(0, 9),
	))

	properties.Property("event counts match the tally", prop.ForAll(
		func(codes []int, n int) bool {
			rels := genRelations(codes)
			counts := make(map[string]int)
			for _, rel := range rels {
				counts[rel.UserID]++
			}
			got, err := NewEngine(&staticSource{rels: rels}).UsersByRoleWithMinEvents(ctx, models.RoleHost, n)
			if err != nil {
				return false
			}
			for _, s := range got {
				if s.EventCount != counts[s.UserID] || s.EventCount < n {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 47)),
		gen.IntRange(0, 9),
	))

	properties.TestingRun(t)
}
