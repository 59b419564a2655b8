// Package auth implements authentication and authorization for gatherd:
// password hashing, the JWT token codec, the public route classifier, the
// request authentication service used by the HTTP gate, and the
// authorization predicates applied by resource handlers.
package auth

import "errors"

// FailureKind classifies why a request failed authentication.
type FailureKind int

const (
	KindMissingToken FailureKind = iota
	KindInvalidToken
	KindExpiredToken
	KindRevokedToken
	KindUserNotFound
)

// Error is a tagged authentication failure. The gate maps every kind to
// HTTP 401 with the kind's client-facing message; handlers never see a
// partially authenticated request.
type Error struct {
	Kind FailureKind
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingToken:
		return "Missing authentication token"
	case KindInvalidToken:
		return "Invalid authentication token"
	case KindExpiredToken:
		return "Authentication token has expired"
	case KindRevokedToken:
		return "Authentication token has been revoked"
	case KindUserNotFound:
		return "User not found"
	default:
		return "Authentication required"
	}
}

// MetricReason returns the label used for the auth failure metric
func (e *Error) MetricReason() string {
	switch e.Kind {
	case KindMissingToken:
		return "missing_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindExpiredToken:
		return "expired_token"
	case KindRevokedToken:
		return "revoked_token"
	case KindUserNotFound:
		return "user_not_found"
	default:
		return "unknown"
	}
}

// Authentication failure sentinels
var (
	ErrMissingToken = &Error{Kind: KindMissingToken}
	ErrInvalidToken = &Error{Kind: KindInvalidToken}
	ErrExpiredToken = &Error{Kind: KindExpiredToken}
	ErrRevokedToken = &Error{Kind: KindRevokedToken}
	ErrUserNotFound = &Error{Kind: KindUserNotFound}
)

// ErrForbidden is returned when an authenticated identity lacks the role
// required for an operation. It maps to HTTP 403.
var ErrForbidden = errors.New("Forbidden")

// AsAuthError returns the *Error inside err, or nil if err is not an
// authentication failure.
func AsAuthError(err error) *Error {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}
	return nil
}
