package repository

import (
	"context"
	"testing"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	backend, schema := newMemory(0)
	repo := NewUserRepository(backend, schema, Options{})

	_, found, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Create(ctx, testUser("u1")))
	err = repo.Create(ctx, testUser("u1"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	user, found, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, testUser("u1"), user)

	city := "Hanoi"
	updated, found, err := repo.Update(ctx, "u1", models.UserUpdate{City: &city})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Hanoi", updated.City)
	assert.Equal(t, "First u1", updated.FirstName)

	_, found, err = repo.Update(ctx, "missing", models.UserUpdate{City: &city})
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = repo.Update(ctx, "u1", models.UserUpdate{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	existed, err := repo.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, found, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUserRepositoryGetMany(t *testing.T) {
	ctx := context.Background()
	backend, schema := newMemory(0)
	repo := NewUserRepository(backend, schema, Options{})
	require.NoError(t, repo.Create(ctx, testUser("u1")))
	require.NoError(t, repo.Create(ctx, testUser("u2")))

	users, err := repo.GetMany(ctx, []string{"u2", "ghost", "u1"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].UserID)
	assert.Equal(t, "u1", users[1].UserID)
}

// 12 users, seven of which work somewhere with "Tech" in the name.
func seedCompanies(t *testing.T, repo *UserRepository) []string {
	t.Helper()
	companies := []string{
		"Global Tech Co", "Acme", "TechWorks", "Tech Corp", "Data Insights", "FinTech Labs",
		"Innovate Solutions", "Big Tech", "Techno", "Acme", "EdTech", "Acme",
	}
	var techIDs []string
	for i, company := range companies {
		user := testUser(numbered("u", i))
		user.Company = company
		require.NoError(t, repo.Create(context.Background(), user))
		if company != "Acme" && company != "Data Insights" && company != "Innovate Solutions" {
			techIDs = append(techIDs, user.UserID)
		}
	}
	require.Len(t, techIDs, 7)
	return techIDs
}

func TestUserScanPaginatesFilteredResults(t *testing.T) {
	ctx := context.Background()
	backend, schema := newMemory(3)
	repo := NewUserRepository(backend, schema, Options{ScanBatchSize: 4})
	techIDs := seedCompanies(t, repo)

	req := models.FilterRequest{Filter: []models.Filter{{Field: "company", Value: "Tech"}}, Limit: 5}
	first, err := repo.Scan(ctx, req)
	require.NoError(t, err)
	assert.Len(t, first.Items, 5)
	assert.Equal(t, 5, first.Limit)
	require.NotNil(t, first.LastEvaluatedKey)

	req.ExclusiveStartKey = *first.LastEvaluatedKey
	second, err := repo.Scan(ctx, req)
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.Nil(t, second.LastEvaluatedKey)

	var seen []string
	for _, u := range append(first.Items, second.Items...) {
		assert.Contains(t, u.Company, "Tech")
		seen = append(seen, u.UserID)
	}
	assert.ElementsMatch(t, techIDs, seen)
}

func TestUserScanStopsAtMaxRounds(t *testing.T) {
	ctx := context.Background()
	backend, schema := newMemory(1)
	counting := &countingBackend{Backend: backend}
	repo := NewUserRepository(counting, schema, Options{ScanBatchSize: 1, ScanMaxRounds: 2})
	seedCompanies(t, NewUserRepository(backend, schema, Options{}))

	page, err := repo.Scan(ctx, models.FilterRequest{Filter: []models.Filter{{Field: "company", Value: "Tech"}}, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, counting.scans)
	// u00 matches, u01 does not
	assert.Len(t, page.Items, 1)
	require.NotNil(t, page.LastEvaluatedKey)

	next, err := repo.Scan(ctx, models.FilterRequest{
		Filter:            []models.Filter{{Field: "company", Value: "Tech"}},
		Limit:             5,
		ExclusiveStartKey: *page.LastEvaluatedKey,
	})
	require.NoError(t, err)
	require.Len(t, next.Items, 2)
	assert.Equal(t, "u02", next.Items[0].UserID)
	assert.Equal(t, "u03", next.Items[1].UserID)
}

func TestUserScanIgnoresBlankFilters(t *testing.T) {
	ctx := context.Background()
	backend, schema := newMemory(0)
	repo := NewUserRepository(backend, schema, Options{})
	seedCompanies(t, repo)

	page, err := repo.Scan(ctx, models.FilterRequest{
		Filter: []models.Filter{{Field: "company", Value: ""}, {Field: "city", Value: "  "}},
		Limit:  100,
	})
	require.NoError(t, err)
	assert.Len(t, page.Items, 12)
	assert.Nil(t, page.LastEvaluatedKey)
}

func TestUserScanSortsAfterAccumulating(t *testing.T) {
	ctx := context.Background()
	backend, schema := newMemory(2)
	repo := NewUserRepository(backend, schema, Options{ScanBatchSize: 2})
	seedCompanies(t, repo)

	page, err := repo.Scan(ctx, models.FilterRequest{
		Filter:    []models.Filter{{Field: "company", Value: "Tech"}},
		Limit:     100,
		SortBy:    "company",
		SortOrder: "desc",
	})
	require.NoError(t, err)

	var companies []string
	for _, u := range page.Items {
		companies = append(companies, u.Company)
	}
	assert.Equal(t, []string{"Techno", "TechWorks", "Tech Corp", "Global Tech Co", "FinTech Labs", "EdTech", "Big Tech"}, companies)
}

func TestUserScanValidation(t *testing.T) {
	ctx := context.Background()
	backend, schema := newMemory(0)
	repo := NewUserRepository(backend, schema, Options{})

	cases := map[string]models.FilterRequest{
		"unknown field":    {Filter: []models.Filter{{Field: "password", Value: "x"}}},
		"limit too high":   {Limit: models.MaxPageLimit + 1},
		"negative limit":   {Limit: -1},
		"bad sort field":   {SortBy: "salary"},
		"bad sort order":   {SortBy: "company", SortOrder: "sideways"},
		"bad cursor":       {ExclusiveStartKey: "%%%"},
		"relation cursor":  {ExclusiveStartKey: store.EncodeCursor(store.Key{"PK": "USER#u1", "SK": "EVENT#e1#HOST"})},
		"blank key cursor": {ExclusiveStartKey: store.EncodeCursor(store.Key{"user_id": ""})},
		"extra key cursor": {ExclusiveStartKey: store.EncodeCursor(store.Key{"user_id": "u1", "PK": "USER#u1"})},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Scan(ctx, req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestUserScanResumesFromOwnCursor(t *testing.T) {
	ctx := context.Background()
	backend, schema := newMemory(0)
	repo := NewUserRepository(backend, schema, Options{})
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, testUser(numbered("u", i))))
	}

	first, err := repo.Scan(ctx, models.FilterRequest{Limit: 2})
	require.NoError(t, err)
	require.NotNil(t, first.LastEvaluatedKey)

	second, err := repo.Scan(ctx, models.FilterRequest{Limit: 2, ExclusiveStartKey: *first.LastEvaluatedKey})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, numbered("u", 2), second.Items[0].UserID)
}

func TestUserScanInfrastructureFailure(t *testing.T) {
	backend, schema := newMemory(0)
	repo := NewUserRepository(&failingBackend{Backend: backend}, schema, Options{})

	_, err := repo.Scan(context.Background(), models.FilterRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInfrastructure)
	assert.ErrorIs(t, err, errUnavailable)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, compareValues("9", "10"))
	assert.Equal(t, 1, compareValues("9", "10a"))
	assert.Equal(t, 0, compareValues("2.0", "2"))
	assert.Equal(t, -1, compareValues("", "a"))
}
