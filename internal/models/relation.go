package models

import "strings"

const (
	UserKeyPrefix  = "USER#"
	EventKeyPrefix = "EVENT#"
)

// Relation is one (user, event, role) fact. The user and event display fields
// are copied in at write time and are not kept in sync afterwards.
type Relation struct {
	PK          string `json:"-" dynamodbav:"PK"`
	SK          string `json:"-" dynamodbav:"SK"`
	GSI1PK      string `json:"-" dynamodbav:"GSI1_PK"`
	GSI1SK      string `json:"-" dynamodbav:"GSI1_SK"`
	Role        Role   `json:"role" dynamodbav:"role"`
	UserID      string `json:"user_id" dynamodbav:"user_id"`
	EventID     string `json:"event_id" dynamodbav:"event_id"`
	UserEventID string `json:"user_event_id" dynamodbav:"user_event_id"`

	FirstName   string `json:"first_name,omitempty" dynamodbav:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty" dynamodbav:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	Email       string `json:"email,omitempty" dynamodbav:"email,omitempty"`
	JobTitle    string `json:"job_title,omitempty" dynamodbav:"job_title,omitempty"`
	Company     string `json:"company,omitempty" dynamodbav:"company,omitempty"`
	City        string `json:"city,omitempty" dynamodbav:"city,omitempty"`
	State       string `json:"state,omitempty" dynamodbav:"state,omitempty"`

	EventTitle string `json:"event_title,omitempty" dynamodbav:"event_title,omitempty"`
	EventDate  string `json:"event_date,omitempty" dynamodbav:"event_date,omitempty"`
}

func NewRelation(user User, event Event, role Role) Relation {
	return Relation{
		PK:          UserPartitionKey(user.UserID),
		SK:          EventKeyPrefix + event.EventID + "#" + role.KeySuffix(),
		GSI1PK:      EventPartitionKey(event.EventID),
		GSI1SK:      UserKeyPrefix + user.UserID + "#" + role.KeySuffix(),
		Role:        role,
		UserID:      user.UserID,
		EventID:     event.EventID,
		UserEventID: UserEventID(user.UserID, event.EventID),
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		Email:       user.Email,
		JobTitle:    user.JobTitle,
		Company:     user.Company,
		City:        user.City,
		State:       user.State,
		EventTitle:  event.Title,
		EventDate:   event.StartAt,
	}
}

func UserPartitionKey(userID string) string {
	return UserKeyPrefix + userID
}

func EventPartitionKey(eventID string) string {
	return EventKeyPrefix + eventID
}

func UserEventID(userID, eventID string) string {
	return userID + "#" + eventID
}

// Normalize lower-cases the role tag. Role lookups match the stored tag
// exactly, so relations are normalized before they are written as well as
// after they are read.
func (r Relation) Normalize() Relation {
	r.Role = Role(strings.ToLower(string(r.Role)))
	return r
}

// UserEventListItem is a row of "events for a user".
type UserEventListItem struct {
	EventID    string `json:"event_id"`
	EventTitle string `json:"event_title"`
	Role       Role   `json:"role"`
	Type       string `json:"type"`
	EventDate  string `json:"event_date,omitempty"`
}

func (r Relation) EventListItem() UserEventListItem {
	return UserEventListItem{
		EventID:    r.EventID,
		EventTitle: r.EventTitle,
		Role:       r.Role,
		Type:       r.Role.Type(),
		EventDate:  r.EventDate,
	}
}

// EventUserListItem is a row of "users for an event".
type EventUserListItem struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      Role   `json:"role"`
	Type      string `json:"type"`
}

func (r Relation) UserListItem() EventUserListItem {
	return EventUserListItem{
		UserID:    r.UserID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      r.Role,
		Type:      r.Role.Type(),
	}
}

// RoleUserSummary is the per-user identity card returned by the role
// aggregation, built from the first qualifying relation seen for that user.
type RoleUserSummary struct {
	UserID      string `json:"user_id"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	Company     string `json:"company,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Role        Role   `json:"role"`
	Type        string `json:"type"`
	EventCount  int    `json:"event_count"`
}

func (r Relation) Summary(eventCount int) RoleUserSummary {
	return RoleUserSummary{
		UserID:      r.UserID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		JobTitle:    r.JobTitle,
		Company:     r.Company,
		City:        r.City,
		State:       r.State,
		Role:        r.Role,
		Type:        r.Role.Type(),
		EventCount:  eventCount,
	}
}
