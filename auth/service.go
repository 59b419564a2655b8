package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/gatherd/gatherd/revocation"
	"github.com/gatherd/gatherd/store"
)

// UserStore is the subset of the record store the service needs to
// resolve a token's subject into a full identity.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*store.User, error)
}

// Service is the shared verification core behind both gate entry points.
// It owns the token codec, the revocation registry handle, and the user
// store; it is constructed once at startup and injected into the router.
type Service struct {
	codec    *TokenCodec
	registry revocation.Registry
	users    UserStore
	logger   *zap.Logger
}

// NewService creates the authentication service
func NewService(codec *TokenCodec, registry revocation.Registry, users UserStore, logger *zap.Logger) *Service {
	return &Service{
		codec:    codec,
		registry: registry,
		users:    users,
		logger:   logger,
	}
}

// ExtractBearerToken parses an Authorization header of the form
// "Bearer <token>". An absent or malformed header is a missing token.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// VerifyToken runs the lightweight verification core: revocation check
// (unless skipped) then signature/expiry. The user record is not loaded.
// Registry failures degrade to a generic invalid-token rejection; the
// cause is logged, never surfaced to the client.
func (s *Service) VerifyToken(ctx context.Context, token string, checkRevocation bool) (*Claims, error) {
	if checkRevocation {
		revoked, err := s.registry.IsRevoked(ctx, token)
		if err != nil {
			s.logger.Error("Revocation registry query failed", zap.Error(err))
			return nil, ErrInvalidToken
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	return s.codec.Verify(token)
}

// Authenticate runs full verification for the Authorization header and
// resolves the token's subject into an Identity. Any failure terminates
// the request with 401 at the gate; a handler never runs with a
// partially populated identity.
func (s *Service) Authenticate(ctx context.Context, authHeader string) (*Identity, error) {
	token, err := ExtractBearerToken(authHeader)
	if err != nil {
		return nil, err
	}

	claims, err := s.VerifyToken(ctx, token, true)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("User lookup failed during authentication", zap.Error(err))
		}
		return nil, ErrUserNotFound
	}

	return &Identity{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

// RevokeToken adds the token to the revocation registry
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	return s.registry.Revoke(ctx, token)
}
