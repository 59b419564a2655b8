package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gatherd/gatherd/store"
)

const eventColumns = `id, title, description, start_time, end_time, location,
	organizer_id, image_url, max_attendees, category, created_at, updated_at`

// CreateEvent inserts a new event row
func (s *PostgresStore) CreateEvent(ctx context.Context, e *store.Event) error {
	query := `
		INSERT INTO events (id, title, description, start_time, end_time, location,
			organizer_id, image_url, max_attendees, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Title,
		e.Description,
		e.StartTime,
		e.EndTime,
		e.Location,
		e.OrganizerID,
		e.ImageURL,
		e.MaxAttendees,
		e.Category,
		e.CreatedAt,
		e.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// GetEvent retrieves an event by ID
func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*store.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

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
func (s *PostgresStore) ListEvents(ctx context.Context) ([]*store.Event, error) {
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
func (s *PostgresStore) UpdateEvent(ctx context.Context, e *store.Event) error {
	query := `
		UPDATE events
		SET title = $2,
		    description = $3,
		    start_time = $4,
		    end_time = $5,
		    location = $6,
		    image_url = $7,
		    max_attendees = $8,
		    category = $9,
		    updated_at = $10
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Title,
		e.Description,
		e.StartTime,
		e.EndTime,
		e.Location,
		e.ImageURL,
		e.MaxAttendees,
		e.Category,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

// DeleteEvent removes an event; signups are removed by the FK cascade
func (s *PostgresStore) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

// AddAttendee records a signup for an event
func (s *PostgresStore) AddAttendee(ctx context.Context, eventID, userID string) error {
	query := `
		INSERT INTO event_attendees (event_id, user_id, signed_up_at)
		VALUES ($1, $2, NOW())`

	_, err := s.db.ExecContext(ctx, query, eventID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to add attendee: %w", err)
	}

	return nil
}

// RemoveAttendee removes a signup for an event
func (s *PostgresStore) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	query := `DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove attendee: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

// ListAttendees returns all signups for an event
func (s *PostgresStore) ListAttendees(ctx context.Context, eventID string) ([]*store.Attendee, error) {
	query := `
		SELECT event_id, user_id, signed_up_at
		FROM event_attendees
		WHERE event_id = $1
		ORDER BY signed_up_at`

	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []*store.Attendee
	for rows.Next() {
		var a store.Attendee
		if err := rows.Scan(&a.EventID, &a.UserID, &a.SignedUpAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendees = append(attendees, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendees: %w", err)
	}

	return attendees, nil
}

// CountAttendees returns the number of signups for an event
func (s *PostgresStore) CountAttendees(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_attendees WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendees: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*store.Event, error) {
	var e store.Event
	var description, imageURL, category sql.NullString
	var maxAttendees sql.NullInt64

	err := row.Scan(
		&e.ID,
		&e.Title,
		&description,
		&e.StartTime,
		&e.EndTime,
		&e.Location,
		&e.OrganizerID,
		&imageURL,
		&maxAttendees,
		&category,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
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

	return &e, nil
}
