// Package revocation implements the token revocation registry.
// Revoked tokens are persisted keyed by the exact token string and block
// authentication until their retention window passes; expired entries are
// removed by a periodic sweep.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gatherd/gatherd/metrics"
	"github.com/gatherd/gatherd/store"
)

// Registry answers membership queries for revoked tokens.
type Registry interface {
	// Revoke adds the token to the registry with a retention window
	// at least as long as the maximum token lifetime.
	Revoke(ctx context.Context, token string) error

	// IsRevoked reports whether the token has an unexpired registry
	// entry. A present-but-expired entry is treated as not revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// Sweep removes entries whose retention window has passed and
	// returns the count of removed entries.
	Sweep(ctx context.Context) (int, error)

	// Close releases any resources owned by the registry
	Close() error
}

// RevocationStore is the subset of store.Store the registry depends on
type RevocationStore interface {
	CreateRevokedToken(ctx context.Context, rt *store.RevokedToken) error
	GetRevokedToken(ctx context.Context, token string) (*store.RevokedToken, error)
	DeleteExpiredRevokedTokens(ctx context.Context, before time.Time) (int, error)
}

// StoreRegistry implements Registry on top of the record store
type StoreRegistry struct {
	store  RevocationStore
	window time.Duration
	logger *zap.Logger
}

// NewStoreRegistry creates a store-backed registry. The window must be at
// least the maximum token lifetime so an entry always outlives the token
// it blocks.
func NewStoreRegistry(st RevocationStore, window time.Duration, logger *zap.Logger) (*StoreRegistry, error) {
	if st == nil {
		return nil, errors.New("store cannot be nil")
	}
	if window <= 0 {
		return nil, errors.New("retention window must be positive")
	}

	return &StoreRegistry{
		store:  st,
		window: window,
		logger: logger,
	}, nil
}

// Revoke inserts a registry entry for the token. Revoking an already
// revoked token is not an error.
func (r *StoreRegistry) Revoke(ctx context.Context, token string) error {
	now := time.Now()
	entry := &store.RevokedToken{
		Token:         token,
		InvalidatedAt: now,
		ExpiresAt:     now.Add(r.window),
	}

	if err := r.store.CreateRevokedToken(ctx, entry); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			r.logger.Debug("Token already revoked")
			return nil
		}
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	metrics.TokenRevocationsTotal.Inc()

	r.logger.Info("Token added to revocation registry",
		zap.Time("expires_at", entry.ExpiresAt))

	return nil
}

// IsRevoked looks up the token by exact string. Expired entries are
// reported as not revoked; the sweep removes them physically.
func (r *StoreRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	entry, err := r.store.GetRevokedToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query revocation registry: %w", err)
	}

	if entry.ExpiresAt.Before(time.Now()) {
		return false, nil
	}

	return true, nil
}

// Sweep deletes all entries whose retention window has passed
func (r *StoreRegistry) Sweep(ctx context.Context) (int, error) {
	count, err := r.store.DeleteExpiredRevokedTokens(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep revocation registry: %w", err)
	}
	return count, nil
}

// Close is a no-op; the underlying store is owned by the caller
func (r *StoreRegistry) Close() error {
	return nil
}
