package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/gatherd/gatherd/metrics"
)

// RedisRegistry implements Registry using Redis. Entries carry a native
// TTL equal to the retention window, so expiry needs no sweep.
type RedisRegistry struct {
	client    *redis.Client
	window    time.Duration
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisRegistry creates a Redis-backed registry
func NewRedisRegistry(addr, password string, db int, keyPrefix string, window time.Duration, logger *zap.Logger) (*RedisRegistry, error) {
	if window <= 0 {
		return nil, fmt.Errorf("retention window must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRegistry{
		client:    client,
		window:    window,
		keyPrefix: keyPrefix,
		logger:    logger,
	}, nil
}

func (r *RedisRegistry) key(token string) string {
	return r.keyPrefix + "revoked:" + token
}

// Revoke stores the token with a TTL equal to the retention window
func (r *RedisRegistry) Revoke(ctx context.Context, token string) error {
	invalidatedAt := time.Now().UTC().Format(time.RFC3339Nano)

	if err := r.client.Set(ctx, r.key(token), invalidatedAt, r.window).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	metrics.TokenRevocationsTotal.Inc()

	r.logger.Info("Token added to revocation registry",
		zap.Duration("ttl", r.window))

	return nil
}

// IsRevoked reports whether an unexpired entry exists for the token
func (r *RedisRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query revocation registry: %w", err)
	}
	return n > 0, nil
}

// Sweep is a no-op; Redis expires entries via their TTL
func (r *RedisRegistry) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

// Close closes the Redis client
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
