// Package config provides configuration management for gatherd.
// It handles loading and validating configuration from YAML files and
// environment variables.
package config

import "time"

// AppConfig represents the complete application configuration
type AppConfig struct {
	Server     ServerConfig     `koanf:"server"`
	Auth       AuthConfig       `koanf:"auth"`
	Log        LogConfig        `koanf:"log"`
	Store      StoreConfig      `koanf:"store"`
	Revocation RevocationConfig `koanf:"revocation"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr     string        `koanf:"listen_addr"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// AuthConfig holds token issuance and password hashing configuration.
// JWTSecret has no usable default; startup fails without an explicit
// value.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StoreConfig holds record store configuration
type StoreConfig struct {
	Type       string `koanf:"type"` // "postgres" or "sqlite"
	DSN        string `koanf:"dsn"`
	SQLitePath string `koanf:"sqlite_path"`
}

// RevocationConfig holds revocation registry configuration
type RevocationConfig struct {
	Backend        string        `koanf:"backend"` // "store" or "redis"
	Window         time.Duration `koanf:"window"`
	SweepInterval  time.Duration `koanf:"sweep_interval"`
	RedisAddr      string        `koanf:"redis_addr"`
	RedisPassword  string        `koanf:"redis_password"`
	RedisDB        int           `koanf:"redis_db"`
	RedisKeyPrefix string        `koanf:"redis_key_prefix"`
}

// RateLimitConfig holds request rate limiting configuration
type RateLimitConfig struct {
	LoginRPS   float64 `koanf:"login_rps"`
	LoginBurst int     `koanf:"login_burst"`
}
