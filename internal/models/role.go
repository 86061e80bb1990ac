package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Role tags a user's part in an event. The set is open: any lower-case tag is
// accepted, the constants are just the ones the service itself writes.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleHost     Role = "host"
	RoleAttendee Role = "attendee"
)

var roleTagPattern = regexp.MustCompile(`^[a-z][a-z_]*$`)

func ParseRole(s string) (Role, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	if !roleTagPattern.MatchString(tag) {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return Role(tag), nil
}

// Type is the display classification for a role. It is always derived, never
// read back from storage.
func (r Role) Type() string {
	switch r {
	case RoleOwner:
		return "EventOwnership"
	case RoleHost:
		return "EventHosting"
	case RoleAttendee:
		return "EventAttendance"
	}
	var b strings.Builder
	b.WriteString("Event")
	for _, part := range strings.Split(string(r), "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// KeySuffix is the upper-cased form used inside composite sort keys.
func (r Role) KeySuffix() string {
	return strings.ToUpper(string(r))
}
