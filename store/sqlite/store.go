package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go.uber.org/zap"

	"github.com/gatherd/gatherd/store"
)

// SQLiteStore implements the store.Store interface using SQLite.
// It is intended for development and single-node deployments.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('ATTENDEE', 'ORGANIZER', 'ADMIN')),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    location TEXT NOT NULL,
    organizer_id TEXT NOT NULL REFERENCES users(id),
    image_url TEXT,
    max_attendees INTEGER,
    category TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_organizer_id ON events(organizer_id);
CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);

CREATE TABLE IF NOT EXISTS event_attendees (
    event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    signed_up_at TEXT NOT NULL,
    PRIMARY KEY (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    token TEXT PRIMARY KEY,
    invalidated_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens(expires_at);
`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// CreateUser inserts a new user row
func (s *SQLiteStore) CreateUser(ctx context.Context, u *store.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, string(u.Role),
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by normalized email
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = ?`

	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByID retrieves a user by ID
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = ?`

	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	var role, createdAt, updatedAt string

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Role = store.Role(role)
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &u, nil
}

// CreateEvent inserts a new event row
func (s *SQLiteStore) CreateEvent(ctx context.Context, e *store.Event) error {
	query := `
		INSERT INTO events (id, title, description, start_time, end_time, location,
			organizer_id, image_url, max_attendees, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Description,
		formatTime(e.StartTime), formatTime(e.EndTime),
		e.Location, e.OrganizerID, e.ImageURL, e.MaxAttendees, e.Category,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

const eventColumns = `id, title, description, start_time, end_time, location,
	organizer_id, image_url, max_attendees, category, created_at, updated_at`

// GetEvent retrieves an event by ID
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*store.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	e, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListEvents returns all events ordered by start time
func (s *SQLiteStore) ListEvents(ctx context.Context) ([]*store.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_time`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*store.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// UpdateEvent replaces an existing event row
func (s *SQLiteStore) UpdateEvent(ctx context.Context, e *store.Event) error {
	query := `
		UPDATE events
		SET title = ?, description = ?, start_time = ?, end_time = ?,
		    location = ?, image_url = ?, max_attendees = ?, category = ?,
		    updated_at = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		e.Title, e.Description,
		formatTime(e.StartTime), formatTime(e.EndTime),
		e.Location, e.ImageURL, e.MaxAttendees, e.Category,
		formatTime(e.UpdatedAt), e.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return requireRows(result)
}

// DeleteEvent removes an event; signups are removed by the FK cascade
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return requireRows(result)
}

// AddAttendee records a signup for an event
func (s *SQLiteStore) AddAttendee(ctx context.Context, eventID, userID string) error {
	query := `
		INSERT INTO event_attendees (event_id, user_id, signed_up_at)
		VALUES (?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, eventID, userID, formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to add attendee: %w", err)
	}

	return nil
}

// RemoveAttendee removes a signup for an event
func (s *SQLiteStore) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	query := `DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?`

	result, err := s.db.ExecContext(ctx, query, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove attendee: %w", err)
	}

	return requireRows(result)
}

// ListAttendees returns all signups for an event
func (s *SQLiteStore) ListAttendees(ctx context.Context, eventID string) ([]*store.Attendee, error) {
	query := `
		SELECT event_id, user_id, signed_up_at
		FROM event_attendees
		WHERE event_id = ?
		ORDER BY signed_up_at`

	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []*store.Attendee
	for rows.Next() {
		var a store.Attendee
		var signedUpAt string
		if err := rows.Scan(&a.EventID, &a.UserID, &signedUpAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		if a.SignedUpAt, err = parseTime(signedUpAt); err != nil {
			return nil, err
		}
		attendees = append(attendees, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendees: %w", err)
	}

	return attendees, nil
}

// CountAttendees returns the number of signups for an event
func (s *SQLiteStore) CountAttendees(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_attendees WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendees: %w", err)
	}
	return count, nil
}

// CreateRevokedToken inserts a blacklist entry keyed by the exact token string
func (s *SQLiteStore) CreateRevokedToken(ctx context.Context, rt *store.RevokedToken) error {
	query := `
		INSERT INTO revoked_tokens (token, invalidated_at, expires_at)
		VALUES (?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rt.Token, formatTime(rt.InvalidatedAt), formatTime(rt.ExpiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create revoked token: %w", err)
	}

	return nil
}

// GetRevokedToken retrieves a blacklist entry by exact token string
func (s *SQLiteStore) GetRevokedToken(ctx context.Context, token string) (*store.RevokedToken, error) {
	query := `
		SELECT token, invalidated_at, expires_at
		FROM revoked_tokens
		WHERE token = ?`

	var rt store.RevokedToken
	var invalidatedAt, expiresAt string

	err := s.db.QueryRowContext(ctx, query, token).Scan(&rt.Token, &invalidatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get revoked token: %w", err)
	}

	if rt.InvalidatedAt, err = parseTime(invalidatedAt); err != nil {
		return nil, err
	}
	if rt.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}

	return &rt, nil
}

// DeleteExpiredRevokedTokens removes entries whose expiry has passed
func (s *SQLiteStore) DeleteExpiredRevokedTokens(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired revoked tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		s.logger.Debug("Deleted expired revoked tokens",
			zap.Int64("count", rowsAffected),
			zap.Time("before", before))
	}

	return int(rowsAffected), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*store.Event, error) {
	var e store.Event
	var description, imageURL, category sql.NullString
	var maxAttendees sql.NullInt64
	var startTime, endTime, createdAt, updatedAt string

	err := row.Scan(
		&e.ID, &e.Title, &description, &startTime, &endTime, &e.Location,
		&e.OrganizerID, &imageURL, &maxAttendees, &category, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	if description.Valid {
		e.Description = &description.String
	}
	if imageURL.Valid {
		e.ImageURL = &imageURL.String
	}
	if category.Valid {
		e.Category = &category.String
	}
	if maxAttendees.Valid {
		n := int(maxAttendees.Int64)
		e.MaxAttendees = &n
	}

	if e.StartTime, err = parseTime(startTime); err != nil {
		return nil, err
	}
	if e.EndTime, err = parseTime(endTime); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &e, nil
}

func requireRows(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
