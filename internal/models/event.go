package models

import (
	"github.com/google/uuid"
)

type Event struct {
	EventID     string   `json:"event_id" dynamodbav:"event_id"`
	Slug        string   `json:"slug" dynamodbav:"slug"`
	Title       string   `json:"title" dynamodbav:"title"`
	Description *string  `json:"description,omitempty" dynamodbav:"description,omitempty"`
	StartAt     string   `json:"start_at" dynamodbav:"start_at"`
	EndAt       string   `json:"end_at" dynamodbav:"end_at"`
	Venue       string   `json:"venue" dynamodbav:"venue"`
	MaxCapacity *int     `json:"max_capacity,omitempty" dynamodbav:"max_capacity,omitempty"`
	OwnerID     string   `json:"owner_id,omitempty" dynamodbav:"owner_id,omitempty"`
	HostIDs     []string `json:"host_ids,omitempty" dynamodbav:"host_ids,omitempty"`
}

type EventRequest struct {
	Slug        string   `json:"slug" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description *string  `json:"description"`
	StartAt     string   `json:"start_at" binding:"required"`
	EndAt       string   `json:"end_at" binding:"required"`
	Venue       string   `json:"venue" binding:"required"`
	MaxCapacity *int     `json:"max_capacity" binding:"omitempty,min=0"`
	OwnerID     string   `json:"owner_id"`
	HostIDs     []string `json:"host_ids"`
}

func NewEvent(req EventRequest) Event {
	return Event{
		EventID:     uuid.New().String(),
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Venue:       req.Venue,
		MaxCapacity: req.MaxCapacity,
		OwnerID:     req.OwnerID,
		HostIDs:     req.HostIDs,
	}
}

type EventUpdate struct {
	Slug        *string   `json:"slug"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	StartAt     *string   `json:"start_at"`
	EndAt       *string   `json:"end_at"`
	Venue       *string   `json:"venue"`
	MaxCapacity *int      `json:"max_capacity" binding:"omitempty,min=0"`
	OwnerID     *string   `json:"owner_id"`
	HostIDs     *[]string `json:"host_ids"`
}

func (u EventUpdate) Changes() map[string]any {
	changes := make(map[string]any)
	setIfPresent(changes, "slug", u.Slug)
	setIfPresent(changes, "title", u.Title)
	setIfPresent(changes, "description", u.Description)
	setIfPresent(changes, "start_at", u.StartAt)
	setIfPresent(changes, "end_at", u.EndAt)
	setIfPresent(changes, "venue", u.Venue)
	setIfPresent(changes, "max_capacity", u.MaxCapacity)
	setIfPresent(changes, "owner_id", u.OwnerID)
	setIfPresent(changes, "host_ids", u.HostIDs)
	return changes
}

// Members returns the (user, role) pairs an event implies: its owner and each
// host, in that order, skipping blanks.
func (e Event) Members() []Member {
	var members []Member
	if e.OwnerID != "" {
		members = append(members, Member{UserID: e.OwnerID, Role: RoleOwner})
	}
	for _, hostID := range e.HostIDs {
		if hostID != "" {
			members = append(members, Member{UserID: hostID, Role: RoleHost})
		}
	}
	return members
}

type Member struct {
	UserID string `json:"user_id" binding:"required"`
	Role   Role   `json:"role" binding:"required"`
}
