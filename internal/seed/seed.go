package seed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/repository"
)

type Result struct {
	Users     int
	Events    int
	Relations int
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

var sampleUsers = []models.User{
	{
		UserID:      "u1",
		FirstName:   "Alice",
		LastName:    "Smith",
		PhoneNumber: "+84901234567",
		Email:       "alice@example.com",
		Avatar:      "https://example.com/avatars/alice.jpg",
		Gender:      "Female",
		JobTitle:    "Lead Software Engineer",
		Company:     "Innovate Solutions",
		City:        "Ho Chi Minh City",
		State:       "Ho Chi Minh",
	},
	{
		UserID:      "u2",
		FirstName:   "Bob",
		LastName:    "Johnson",
		PhoneNumber: "+84912345678",
		Email:       "bob@example.com",
		Avatar:      "https://example.com/avatars/bob.jpg",
		Gender:      "Male",
		JobTitle:    "Cloud Architect",
		Company:     "Global Tech Co",
		City:        "Hanoi",
		State:       "Hanoi",
	},
	{
		UserID:      "u3",
		FirstName:   "Charlie",
		LastName:    "Brown",
		PhoneNumber: "+84923456789",
		Email:       "charlie@example.com",
		Avatar:      "https://example.com/avatars/charlie.jpg",
		Gender:      "Male",
		JobTitle:    "Data Analyst",
		Company:     "Data Insights",
		City:        "Da Nang",
		State:       "Da Nang",
	},
}

var sampleEvents = []models.Event{
	{
		EventID:     "e1",
		Slug:        "go-basics-workshop",
		Title:       "Go Basics Workshop",
		Description: strPtr("An interactive workshop covering the fundamentals of Go web services."),
		StartAt:     "2025-08-01T10:00:00Z",
		EndAt:       "2025-08-01T12:00:00Z",
		Venue:       "Online (Zoom Link Provided)",
		MaxCapacity: intPtr(100),
		OwnerID:     "u1",
		HostIDs:     []string{"u1", "u2"},
	},
	{
		EventID:     "e2",
		Slug:        "advanced-dynamodb-deep-dive",
		Title:       "Advanced DynamoDB Deep Dive",
		Description: strPtr("Explore advanced data modeling and optimization techniques in DynamoDB."),
		StartAt:     "2025-08-15T09:00:00Z",
		EndAt:       "2025-08-15T17:00:00Z",
		Venue:       "Saigon Exhibition and Convention Center",
		MaxCapacity: intPtr(500),
		OwnerID:     "u2",
		HostIDs:     []string{"u2"},
	},
	{
		EventID:     "e3",
		Slug:        "web-dev-meetup-september",
		Title:       "Web Dev Meetup - September Edition",
		Description: strPtr("Monthly gathering for web developers to share knowledge and network."),
		StartAt:     "2025-09-01T18:30:00Z",
		EndAt:       "2025-09-01T20:30:00Z",
		Venue:       "Local Cafe, District 1",
		MaxCapacity: intPtr(50),
		OwnerID:     "u1",
		HostIDs:     []string{"u3"},
	},
}

// Run writes the sample users, events and their owner/host relations.
// Records that already exist are left alone, so it can be run repeatedly.
func Run(ctx context.Context, users *repository.UserRepository, events *repository.EventRepository, relations *repository.RelationRepository) (Result, error) {
	var res Result
	byID := make(map[string]models.User, len(sampleUsers))

	for _, user := range sampleUsers {
		byID[user.UserID] = user
		created, err := ignoreConflict(users.Create(ctx, user))
		if err != nil {
			return res, err
		}
		if created {
			res.Users++
		}
	}

	for _, event := range sampleEvents {
		created, err := ignoreConflict(events.Create(ctx, event))
		if err != nil {
			return res, err
		}
		if created {
			res.Events++
		}

		for _, member := range event.Members() {
			_, err := relations.Link(ctx, byID[member.UserID], event, member.Role)
			linked, err := ignoreConflict(err)
			if err != nil {
				return res, err
			}
			if linked {
				res.Relations++
			}
		}
	}

	slog.Info("sample data seeded", "users", res.Users, "events", res.Events, "relations", res.Relations)
	return res, nil
}

func ignoreConflict(err error) (bool, error) {
	if errors.Is(err, apperrors.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}
