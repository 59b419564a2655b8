package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromYAMLFile(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
server:
  listen_addr: ":9090"
auth:
  jwt_secret: "unit-test-secret"
  token_ttl: 1h
revocation:
  window: 2h
store:
  type: sqlite
  sqlite_path: /tmp/test.sqlite3
`)

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, "unit-test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "sqlite", cfg.Store.Type)

	// Fields not in the file keep their defaults
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, time.Hour, cfg.Revocation.SweepInterval)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
auth:
  jwt_secret: "file-secret"
log:
  level: info
`)

	t.Setenv("GATHERD_LOG_LEVEL", "debug")

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
}

func TestLoadConfigMissingSecretFails(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
server:
  listen_addr: ":9090"
`)

	_, err := LoadConfigFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestValidateConfig(t *testing.T) {
	valid := func() AppConfig {
		cfg := DefaultAppConfig()
		cfg.Auth.JWTSecret = "unit-test-secret"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"placeholder secret", func(c *AppConfig) { c.Auth.JWTSecret = "change-me-jwt-secret" }},
		{"zero token ttl", func(c *AppConfig) { c.Auth.TokenTTL = 0 }},
		{"unknown store type", func(c *AppConfig) { c.Store.Type = "mongodb" }},
		{"unknown revocation backend", func(c *AppConfig) { c.Revocation.Backend = "memcached" }},
		{"window shorter than token ttl", func(c *AppConfig) { c.Revocation.Window = c.Auth.TokenTTL - time.Hour }},
		{"zero sweep interval", func(c *AppConfig) { c.Revocation.SweepInterval = 0 }},
	}

	cfg := valid()
	require.NoError(t, validateConfig(&cfg))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, validateConfig(&cfg))
		})
	}
}
