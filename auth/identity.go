package auth

import (
	"context"

	"github.com/gatherd/gatherd/store"
)

// Identity is the authenticated identity attached to a request after the
// gate has verified its token and loaded the user record. It lives only
// for the duration of the request.
type Identity struct {
	ID    string
	Email string
	Role  store.Role
}

// identityKey is the context key type for the request identity
type identityKey struct{}

// WithIdentity returns a new context with the identity attached
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the identity from the context, returning
// nil for an unauthenticated request.
func IdentityFromContext(ctx context.Context) *Identity {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok {
		return nil
	}
	return id
}
