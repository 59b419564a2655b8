package auth

import (
	"fmt"

	"github.com/gatherd/gatherd/store"
)

// IsAdmin reports whether the identity holds the ADMIN role
func IsAdmin(id *Identity) bool {
	return id != nil && id.Role == store.RoleAdmin
}

// CanModifyEvent reports whether the identity may update or delete the
// event: admins always, otherwise only the organizer who owns it.
func CanModifyEvent(id *Identity, event *store.Event) bool {
	if id == nil || event == nil {
		return false
	}
	return id.Role == store.RoleAdmin || event.OrganizerID == id.ID
}

// CanCreateEvent reports whether the identity may create events
func CanCreateEvent(id *Identity) bool {
	if id == nil {
		return false
	}
	return id.Role == store.RoleOrganizer || id.Role == store.RoleAdmin
}

// AuthorizationErrorMessage builds the client-facing message for a
// rejected event mutation, e.g. "Unauthorized to update the event".
func AuthorizationErrorMessage(action string) string {
	return fmt.Sprintf("Unauthorized to %s the event", action)
}
