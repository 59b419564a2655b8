package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gatherd/gatherd/store"
)

// CreateRevokedToken inserts a blacklist entry keyed by the exact token string
func (s *PostgresStore) CreateRevokedToken(ctx context.Context, rt *store.RevokedToken) error {
	query := `
		INSERT INTO revoked_tokens (token, invalidated_at, expires_at)
		VALUES ($1, $2, $3)`

	_, err := s.db.ExecContext(ctx, query, rt.Token, rt.InvalidatedAt, rt.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create revoked token: %w", err)
	}

	return nil
}

// GetRevokedToken retrieves a blacklist entry by exact token string.
// This is a point lookup on the primary key and runs on every
// authenticated request.
func (s *PostgresStore) GetRevokedToken(ctx context.Context, token string) (*store.RevokedToken, error) {
	query := `
		SELECT token, invalidated_at, expires_at
		FROM revoked_tokens
		WHERE token = $1`

	var rt store.RevokedToken
	err := s.db.QueryRowContext(ctx, query, token).Scan(&rt.Token, &rt.InvalidatedAt, &rt.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get revoked token: %w", err)
	}

	return &rt, nil
}

// DeleteExpiredRevokedTokens removes entries whose expiry has passed
func (s *PostgresStore) DeleteExpiredRevokedTokens(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < $1`, before)
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
