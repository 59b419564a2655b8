package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatherd/gatherd/store"
)

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(&Identity{ID: "u1", Role: store.RoleAdmin}))
	assert.False(t, IsAdmin(&Identity{ID: "u1", Role: store.RoleOrganizer}))
	assert.False(t, IsAdmin(&Identity{ID: "u1", Role: store.RoleAttendee}))
	assert.False(t, IsAdmin(nil))
}

func TestCanModifyEvent(t *testing.T) {
	event := &store.Event{ID: "e1", OrganizerID: "owner"}

	tests := []struct {
		name     string
		identity *Identity
		want     bool
	}{
		{"owning organizer", &Identity{ID: "owner", Role: store.RoleOrganizer}, true},
		{"other organizer", &Identity{ID: "other", Role: store.RoleOrganizer}, false},
		{"admin overrides ownership", &Identity{ID: "other", Role: store.RoleAdmin}, true},
		{"attendee with matching id", &Identity{ID: "owner", Role: store.RoleAttendee}, true},
		{"unrelated attendee", &Identity{ID: "other", Role: store.RoleAttendee}, false},
		{"anonymous", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModifyEvent(tt.identity, event))
		})
	}

	assert.False(t, CanModifyEvent(&Identity{ID: "owner", Role: store.RoleAdmin}, nil))
}

func TestCanCreateEvent(t *testing.T) {
	assert.True(t, CanCreateEvent(&Identity{ID: "u1", Role: store.RoleOrganizer}))
	assert.True(t, CanCreateEvent(&Identity{ID: "u1", Role: store.RoleAdmin}))
	assert.False(t, CanCreateEvent(&Identity{ID: "u1", Role: store.RoleAttendee}))
	assert.False(t, CanCreateEvent(nil))
}

func TestAuthorizationErrorMessage(t *testing.T) {
	assert.Equal(t, "Unauthorized to update the event", AuthorizationErrorMessage("update"))
	assert.Equal(t, "Unauthorized to delete the event", AuthorizationErrorMessage("delete"))
}
