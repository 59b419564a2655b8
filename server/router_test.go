package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatherd/gatherd/auth"
	"github.com/gatherd/gatherd/config"
	"github.com/gatherd/gatherd/revocation"
	"github.com/gatherd/gatherd/store"
	"github.com/gatherd/gatherd/store/memory"
)

type testServer struct {
	router http.Handler
	store  *memory.MemoryStore
	codec  *auth.TokenCodec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := memory.NewMemoryStore()
	registry, err := revocation.NewStoreRegistry(st, time.Hour, zap.NewNop())
	require.NoError(t, err)

	codec := auth.NewTokenCodec([]byte("test-secret"), time.Hour)
	svc := auth.NewService(codec, registry, st, zap.NewNop())

	cfg := config.DefaultAppConfig()
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.RateLimit.LoginRPS = 1000
	cfg.RateLimit.LoginBurst = 1000

	return &testServer{
		router: NewRouter(st, svc, codec, &cfg, zap.NewNop()),
		store:  st,
		codec:  codec,
	}
}

func (ts *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		reader = &bytes.Buffer{}
		require.NoError(t, json.NewEncoder(reader).Encode(body))
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) loginAs(t *testing.T, email, password string) string {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/users/login", "",
		map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp["token"])
	return resp["token"]
}

func (ts *testServer) seedAccount(t *testing.T, email, password string, role store.Role) {
	t.Helper()

	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, ts.store.CreateUser(context.Background(), &store.User{
		ID:           email,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["message"]
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestAuthLifecycle walks the full session: register, login, use the
// token, log out, and observe the token die.
func TestAuthLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// Register
	rec := ts.do(t, http.MethodPost, "/api/users/register", "",
		map[string]string{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Login
	token := ts.loginAs(t, "alice@example.com", "password123")

	// The token grants access and reports the default role
	rec = ts.do(t, http.MethodGet, "/api/users/protected", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ATTENDEE", resp["role"])

	// Logout revokes the token
	rec = ts.do(t, http.MethodPost, "/api/users/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully logged out", message(t, rec))

	// The revoked token is rejected everywhere
	rec = ts.do(t, http.MethodGet, "/api/users/protected", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication token has been revoked", message(t, rec))

	// Logging out again with the dead token is also rejected
	rec = ts.do(t, http.MethodPost, "/api/users/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication token has been revoked", message(t, rec))

	// A fresh login issues a new working token
	token = ts.loginAs(t, "alice@example.com", "password123")
	rec = ts.do(t, http.MethodGet, "/api/users/protected", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/users/protected", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing authentication token", message(t, rec))
}

func TestAdminCreateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "admin@example.com", "password123", store.RoleAdmin)
	ts.seedAccount(t, "att@example.com", "password123", store.RoleAttendee)

	body := map[string]string{"email": "org@example.com", "password": "password123", "role": "ORGANIZER"}

	// A non-admin is rejected
	attToken := ts.loginAs(t, "att@example.com", "password123")
	rec := ts.do(t, http.MethodPost, "/api/users/admin/create", attToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", message(t, rec))

	// An admin can create accounts with explicit roles
	adminToken := ts.loginAs(t, "admin@example.com", "password123")
	rec = ts.do(t, http.MethodPost, "/api/users/admin/create", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	user, err := ts.store.GetUserByEmail(context.Background(), "org@example.com")
	require.NoError(t, err)
	assert.Equal(t, store.RoleOrganizer, user.Role)
}

func TestEventRoutesThroughGate(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "org@example.com", "password123", store.RoleOrganizer)

	// Listing events needs no token
	rec := ts.do(t, http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Creating one does
	body := map[string]any{
		"title":     "Launch Party",
		"location":  "Warehouse 9",
		"startTime": "2026-10-01T18:00:00Z",
		"endTime":   "2026-10-01T22:00:00Z",
	}
	rec = ts.do(t, http.MethodPost, "/api/events", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing authentication token", message(t, rec))

	token := ts.loginAs(t, "org@example.com", "password123")
	rec = ts.do(t, http.MethodPost, "/api/events", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created store.Event
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "org@example.com", created.OrganizerID)

	// The new event is publicly visible
	rec = ts.do(t, http.MethodGet, "/api/events/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupFlowThroughRouter(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "org@example.com", "password123", store.RoleOrganizer)
	ts.seedAccount(t, "att@example.com", "password123", store.RoleAttendee)

	orgToken := ts.loginAs(t, "org@example.com", "password123")
	rec := ts.do(t, http.MethodPost, "/api/events", orgToken, map[string]any{
		"title":        "Workshop",
		"location":     "Room 4",
		"startTime":    "2026-10-01T09:00:00Z",
		"endTime":      "2026-10-01T12:00:00Z",
		"maxAttendees": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var event store.Event
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&event))

	attToken := ts.loginAs(t, "att@example.com", "password123")
	rec = ts.do(t, http.MethodPost, "/api/events/"+event.ID+"/signup", attToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully signed up for the event", message(t, rec))

	// Capacity of one is now exhausted for the organizer
	rec = ts.do(t, http.MethodPost, "/api/events/"+event.ID+"/signup", orgToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Event is full", message(t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/events/"+event.ID+"/signup", attToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully unsigned up for the event", message(t, rec))
}
