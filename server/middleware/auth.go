package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/gatherd/gatherd/auth"
	"github.com/gatherd/gatherd/metrics"
)

// Gate returns the global authentication hook. It runs for every request
// under the API prefix: public routes pass through untouched; everything
// else must carry a token that verifies in lightweight mode (revocation
// check plus signature/expiry, no user lookup). Handler-level guards
// still run RequireIdentity for routes that need the resolved identity.
//
// The logout path is special-cased: its revocation check is deferred to
// the route guard so the check happens exactly once, immediately before
// the revoke action.
func Gate(svc *auth.Service, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.IsPublicRoute(r.URL.Path, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, logger, r, err)
				return
			}

			checkRevocation := !isLogoutRequest(r)
			if _, err := svc.VerifyToken(r.Context(), token, checkRevocation); err != nil {
				writeAuthError(w, logger, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity returns the per-route guard. It runs full verification
// including the user record lookup and attaches the resolved Identity to
// the request context. Handlers behind it can assume a complete identity.
func RequireIdentity(svc *auth.Service, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := svc.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, logger, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin rejects non-admin identities with 403. Must run after
// RequireIdentity.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.IdentityFromContext(r.Context())
			if identity == nil {
				writeAuthError(w, logger, r, auth.ErrMissingToken)
				return
			}

			if !auth.IsAdmin(identity) {
				writeJSONMessage(w, logger, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OptionalIdentity attaches an identity when the request carries a valid
// token and continues anonymously otherwise. Used by public reads that
// reveal more to the resource owner.
func OptionalIdentity(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := svc.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func isLogoutRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && r.URL.Path == auth.PathLogout
}

// writeAuthError terminates the request with 401 and the failure's
// client-facing message.
func writeAuthError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	message := "Authentication required"
	reason := "unknown"
	if authErr := auth.AsAuthError(err); authErr != nil {
		message = authErr.Error()
		reason = authErr.MetricReason()
	}

	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()

	logger.Debug("Request rejected by auth gate",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("reason", reason))

	writeJSONMessage(w, logger, http.StatusUnauthorized, message)
}

func writeJSONMessage(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(map[string]string{"message": message}); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
