// Package store defines the persistent record store for gatherd.
// It holds user accounts, events, event signups, and the revoked token
// registry behind a single Store interface with interchangeable backends.
package store

import (
	"context"
	"errors"
	"time"
)

// Common store errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// Role is the access level assigned to a user account.
type Role string

const (
	RoleAttendee  Role = "ATTENDEE"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAttendee, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// User is a registered account. Email is stored normalized
// (trimmed, lowercase) and is unique across the table.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Event is an event listing owned by its organizer.
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Location     string    `json:"location"`
	OrganizerID  string    `json:"organizerId"`
	ImageURL     *string   `json:"imageUrl"`
	MaxAttendees *int      `json:"maxAttendees"`
	Category     *string   `json:"category"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Attendee is a signup linking a user to an event.
type Attendee struct {
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	SignedUpAt time.Time `json:"signedUpAt"`
}

// RevokedToken is a blacklist entry keyed by the exact token string.
// An entry whose ExpiresAt has passed no longer blocks anything and is
// removed by the periodic sweep.
type RevokedToken struct {
	Token         string    `json:"token"`
	InvalidatedAt time.Time `json:"invalidated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Store defines the interface for record storage operations
type Store interface {
	// CreateUser inserts a new user; returns ErrAlreadyExists when the
	// email is taken.
	CreateUser(ctx context.Context, u *User) error

	// GetUserByEmail retrieves a user by normalized email
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByID retrieves a user by ID
	GetUserByID(ctx context.Context, id string) (*User, error)

	// CreateEvent inserts a new event
	CreateEvent(ctx context.Context, e *Event) error

	// GetEvent retrieves an event by ID
	GetEvent(ctx context.Context, id string) (*Event, error)

	// ListEvents returns all events ordered by start time
	ListEvents(ctx context.Context) ([]*Event, error)

	// UpdateEvent replaces the stored row; returns ErrNotFound when
	// the event does not exist.
	UpdateEvent(ctx context.Context, e *Event) error

	// DeleteEvent removes an event and its signups
	DeleteEvent(ctx context.Context, id string) error

	// AddAttendee records a signup; returns ErrAlreadyExists for a
	// duplicate (event, user) pair.
	AddAttendee(ctx context.Context, eventID, userID string) error

	// RemoveAttendee removes a signup; returns ErrNotFound when the
	// user is not signed up.
	RemoveAttendee(ctx context.Context, eventID, userID string) error

	// ListAttendees returns all signups for an event
	ListAttendees(ctx context.Context, eventID string) ([]*Attendee, error)

	// CountAttendees returns the number of signups for an event
	CountAttendees(ctx context.Context, eventID string) (int, error)

	// CreateRevokedToken inserts a blacklist entry keyed by token string
	CreateRevokedToken(ctx context.Context, rt *RevokedToken) error

	// GetRevokedToken retrieves a blacklist entry by exact token string
	GetRevokedToken(ctx context.Context, token string) (*RevokedToken, error)

	// DeleteExpiredRevokedTokens removes entries whose expiry has passed
	// and returns the count of removed entries
	DeleteExpiredRevokedTokens(ctx context.Context, before time.Time) (int, error)

	// Close closes the store connection
	Close() error
}
