package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherd/gatherd/auth"
	"github.com/gatherd/gatherd/internal/emailutil"
	"github.com/gatherd/gatherd/metrics"
	"github.com/gatherd/gatherd/store"
)

const minPasswordLength = 8

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Register creates a new account with the default ATTENDEE role
func Register(st store.Store, bcryptCost int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			SendMessage(w, logger, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, errMsg, statusCode := createUser(r, st, req.Email, req.Password, store.RoleAttendee, bcryptCost, logger)
		if errMsg != "" {
			SendMessage(w, logger, statusCode, errMsg)
			return
		}

		metrics.RegistrationsTotal.Inc()

		SendJSON(w, logger, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
	}
}

// AdminCreateUser creates an account with an explicit role. The router
// guards it with RequireIdentity and RequireAdmin.
func AdminCreateUser(st store.Store, bcryptCost int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			SendMessage(w, logger, http.StatusBadRequest, "Invalid request body")
			return
		}

		role := store.RoleAttendee
		if req.Role != "" {
			role = store.Role(req.Role)
			if !role.Valid() {
				SendMessage(w, logger, http.StatusBadRequest, "Invalid role")
				return
			}
		}

		user, errMsg, statusCode := createUser(r, st, req.Email, req.Password, role, bcryptCost, logger)
		if errMsg != "" {
			SendMessage(w, logger, statusCode, errMsg)
			return
		}

		SendJSON(w, logger, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
	}
}

// createUser validates the credentials and inserts the account. On
// failure it returns the client-facing message and status code.
func createUser(r *http.Request, st store.Store, email, password string, role store.Role, bcryptCost int, logger *zap.Logger) (*store.User, string, int) {
	email = emailutil.Normalize(email)
	if !emailutil.Valid(email) {
		return nil, "Invalid email address", http.StatusBadRequest
	}
	if len(password) < minPasswordLength {
		return nil, "Password must be at least 8 characters", http.StatusBadRequest
	}

	if _, err := st.GetUserByEmail(r.Context(), email); err == nil {
		return nil, "Email is already taken.", http.StatusBadRequest
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.Error("User lookup failed during registration", zap.Error(err))
		return nil, "Failed to register account.", http.StatusInternalServerError
	}

	hash, err := auth.HashPassword(password, bcryptCost)
	if err != nil {
		logger.Error("Password hashing failed", zap.Error(err))
		return nil, "Failed to register account.", http.StatusInternalServerError
	}

	now := time.Now()
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := st.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, "Email is already taken.", http.StatusBadRequest
		}
		logger.Error("Failed to create user", zap.Error(err))
		return nil, "Failed to register account.", http.StatusInternalServerError
	}

	return user, "", 0
}

// Login verifies credentials and issues a signed token
func Login(st store.Store, codec *auth.TokenCodec, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			SendMessage(w, logger, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := st.GetUserByEmail(r.Context(), emailutil.Normalize(req.Email))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				metrics.LoginsTotal.WithLabelValues("failure").Inc()
				SendMessage(w, logger, http.StatusUnauthorized, "Invalid credentials.")
				return
			}
			logger.Error("User lookup failed during login", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to login.")
			return
		}

		if !auth.VerifyPassword(req.Password, user.PasswordHash) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			SendMessage(w, logger, http.StatusUnauthorized, "Invalid credentials.")
			return
		}

		token, err := codec.Sign(user.ID, user.Email, user.Role)
		if err != nil {
			logger.Error("Token signing failed", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to login.")
			return
		}

		metrics.LoginsTotal.WithLabelValues("success").Inc()

		SendJSON(w, logger, http.StatusOK, map[string]string{"token": token})
	}
}

// Protected returns the authenticated identity's role. It exists so a
// client can probe whether its token is still accepted.
func Protected(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := auth.IdentityFromContext(r.Context())

		SendJSON(w, logger, http.StatusOK, map[string]string{"role": string(identity.Role)})
	}
}

// Logout revokes the presented token. The guard has already verified it
// is valid, unexpired, and not yet revoked.
func Logout(svc *auth.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			SendMessage(w, logger, http.StatusUnauthorized, err.Error())
			return
		}

		if err := svc.RevokeToken(r.Context(), token); err != nil {
			logger.Error("Failed to revoke token", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to log out.")
			return
		}

		SendMessage(w, logger, http.StatusOK, "Successfully logged out")
	}
}
