package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatherd/gatherd/revocation"
	"github.com/gatherd/gatherd/store"
	"github.com/gatherd/gatherd/store/memory"
)

func newTestService(t *testing.T) (*Service, *TokenCodec, *memory.MemoryStore) {
	t.Helper()

	st := memory.NewMemoryStore()
	registry, err := revocation.NewStoreRegistry(st, time.Hour, zap.NewNop())
	require.NoError(t, err)

	codec := NewTokenCodec([]byte("test-secret"), time.Hour)
	svc := NewService(codec, registry, st, zap.NewNop())
	return svc, codec, st
}

func seedUser(t *testing.T, st *memory.MemoryStore, id, email string, role store.Role) {
	t.Helper()

	now := time.Now()
	err := st.CreateUser(context.Background(), &store.User{
		ID:        id,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"empty header", "", "", ErrMissingToken},
		{"no bearer prefix", "abc.def.ghi", "", ErrMissingToken},
		{"wrong scheme", "Basic abc", "", ErrMissingToken},
		{"prefix only", "Bearer ", "", ErrMissingToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ExtractBearerToken(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc, codec, st := newTestService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1", "alice@example.com", store.RoleOrganizer)

	token, err := codec.Sign("user-1", "alice@example.com", store.RoleOrganizer)
	require.NoError(t, err)

	identity, err := svc.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.ID)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, store.RoleOrganizer, identity.Role)
}

func TestAuthenticateMissingHeader(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestAuthenticateUserDeletedAfterIssuance(t *testing.T) {
	svc, codec, st := newTestService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1", "alice@example.com", store.RoleAttendee)
	token, err := codec.Sign("user-1", "alice@example.com", store.RoleAttendee)
	require.NoError(t, err)

	st.DeleteUser("user-1")

	_, err = svc.Authenticate(ctx, "Bearer "+token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticateRoleChangeTakesEffectImmediately(t *testing.T) {
	svc, codec, st := newTestService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1", "alice@example.com", store.RoleAttendee)
	token, err := codec.Sign("user-1", "alice@example.com", store.RoleAttendee)
	require.NoError(t, err)

	// Promote the user after the token was issued. The identity comes
	// from the store, not the token claims.
	user, err := st.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	st.DeleteUser("user-1")
	user.Role = store.RoleOrganizer
	require.NoError(t, st.CreateUser(ctx, user))

	identity, err := svc.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, store.RoleOrganizer, identity.Role)
}

func TestVerifyTokenRevoked(t *testing.T) {
	svc, codec, st := newTestService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1", "alice@example.com", store.RoleAttendee)
	token, err := codec.Sign("user-1", "alice@example.com", store.RoleAttendee)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(ctx, token))

	_, err = svc.VerifyToken(ctx, token, true)
	assert.ErrorIs(t, err, ErrRevokedToken)

	_, err = svc.Authenticate(ctx, "Bearer "+token)
	assert.ErrorIs(t, err, ErrRevokedToken)

	// Skipping the revocation check still verifies signature and expiry
	claims, err := svc.VerifyToken(ctx, token, false)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}
