package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRelationKeys(t *testing.T) {
	user := User{UserID: "u1", FirstName: "Alice", LastName: "Smith", Company: "Innovate Solutions"}
	event := Event{EventID: "e1", Title: "FastAPI Basics Workshop", StartAt: "2025-08-01T10:00:00Z"}

	rel := NewRelation(user, event, RoleHost)

	assert.Equal(t, "USER#u1", rel.PK)
	assert.Equal(t, "EVENT#e1#HOST", rel.SK)
	assert.Equal(t, "EVENT#e1", rel.GSI1PK)
	assert.Equal(t, "USER#u1#HOST", rel.GSI1SK)
	assert.Equal(t, "u1#e1", rel.UserEventID)
	assert.Equal(t, "Alice", rel.FirstName)
	assert.Equal(t, "Innovate Solutions", rel.Company)
	assert.Equal(t, "FastAPI Basics Workshop", rel.EventTitle)
	assert.Equal(t, "2025-08-01T10:00:00Z", rel.EventDate)
}

func TestRoleType(t *testing.T) {
	cases := []struct {
		role Role
		want string
	}{
		{RoleOwner, "EventOwnership"},
		{RoleHost, "EventHosting"},
		{RoleAttendee, "EventAttendance"},
		{Role("co_host"), "EventCoHost"},
		{Role("speaker"), "EventSpeaker"},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.role.Type())
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Host ")
	require.NoError(t, err)
	assert.Equal(t, RoleHost, role)

	role, err = ParseRole("speaker")
	require.NoError(t, err)
	assert.Equal(t, Role("speaker"), role)

	for _, bad := range []string{"", "host#1", "9lives", "a b"} {
		_, err := ParseRole(bad)
		assert.Error(t, err, bad)
	}
}

func TestEventMembers(t *testing.T) {
	event := Event{OwnerID: "u1", HostIDs: []string{"u1", "", "u2"}}
	assert.Equal(t, []Member{
		{UserID: "u1", Role: RoleOwner},
		{UserID: "u1", Role: RoleHost},
		{UserID: "u2", Role: RoleHost},
	}, event.Members())

	assert.Empty(t, Event{}.Members())
}

func TestUpdateChangesOnlySuppliedFields(t *testing.T) {
	company := "Tech Corp"
	capacity := 40
	assert.Equal(t, map[string]any{"company": "Tech Corp"}, UserUpdate{Company: &company}.Changes())
	assert.Equal(t, map[string]any{"max_capacity": 40}, EventUpdate{MaxCapacity: &capacity}.Changes())
	assert.Empty(t, UserUpdate{}.Changes())
}
