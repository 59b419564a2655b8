package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPublicRoute(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		method string
		want   bool
	}{
		{"health check", "/health", http.MethodGet, true},
		{"health wrong method", "/health", http.MethodPost, false},
		{"health subpath not exact", "/health/deep", http.MethodGet, false},
		{"login", "/api/users/login", http.MethodPost, true},
		{"login wrong method", "/api/users/login", http.MethodGet, false},
		{"register", "/api/users/register", http.MethodPost, true},
		{"logout is not public", "/api/users/logout", http.MethodPost, false},
		{"protected is not public", "/api/users/protected", http.MethodGet, false},
		{"event list", "/api/events", http.MethodGet, true},
		{"event list trailing slash", "/api/events/", http.MethodGet, true},
		{"event detail under prefix", "/api/events/abc-123", http.MethodGet, true},
		{"event create", "/api/events", http.MethodPost, false},
		{"event delete", "/api/events/abc-123", http.MethodDelete, false},
		{"unknown path", "/api/other", http.MethodGet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPublicRoute(tt.path, tt.method))
		})
	}
}
