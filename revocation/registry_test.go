package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatherd/gatherd/store"
	"github.com/gatherd/gatherd/store/memory"
)

func newTestRegistry(t *testing.T) (*StoreRegistry, *memory.MemoryStore) {
	t.Helper()

	st := memory.NewMemoryStore()
	registry, err := NewStoreRegistry(st, time.Hour, zap.NewNop())
	require.NoError(t, err)
	return registry, st
}

func TestNewStoreRegistryValidation(t *testing.T) {
	_, err := NewStoreRegistry(nil, time.Hour, zap.NewNop())
	assert.Error(t, err)

	_, err = NewStoreRegistry(memory.NewMemoryStore(), 0, zap.NewNop())
	assert.Error(t, err)
}

func TestRevokeAndIsRevoked(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	revoked, err := registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, registry.Revoke(ctx, "token-a"))

	revoked, err = registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	// An unrelated token stays unaffected
	revoked, err = registry.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeIdempotent(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "token-a"))
	require.NoError(t, registry.Revoke(ctx, "token-a"))

	revoked, err := registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestIsRevokedIgnoresExpiredEntry(t *testing.T) {
	registry, st := newTestRegistry(t)
	ctx := context.Background()

	// Insert an entry whose retention window has already passed
	err := st.CreateRevokedToken(ctx, &store.RevokedToken{
		Token:         "stale-token",
		InvalidatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt:     time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	revoked, err := registry.IsRevoked(ctx, "stale-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSweepRemovesOnlyExpiredEntries(t *testing.T) {
	registry, st := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "live-token"))
	err := st.CreateRevokedToken(ctx, &store.RevokedToken{
		Token:         "stale-token",
		InvalidatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt:     time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	count, err := registry.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	revoked, err := registry.IsRevoked(ctx, "live-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = st.GetRevokedToken(ctx, "stale-token")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSweepWorkerRuns(t *testing.T) {
	registry, st := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := st.CreateRevokedToken(ctx, &store.RevokedToken{
		Token:         "stale-token",
		InvalidatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt:     time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	StartSweepWorker(ctx, registry, 10*time.Millisecond, zap.NewNop())

	assert.Eventually(t, func() bool {
		_, err := st.GetRevokedToken(context.Background(), "stale-token")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
