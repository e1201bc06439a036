// Package config handles application configuration loading from environment
// variables, optionally seeded from a .env file. It provides a centralized
// Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// SnapshotTTL bounds how long the cached category list lives in Valkey.
	SnapshotTTL time.Duration

	// RateLimit is the number of writes one client may make per minute.
	// Zero disables rate limiting.
	RateLimit int

	// CORSOrigins lists browser origins allowed to call the API. Empty
	// means any origin.
	CORSOrigins []string

	// Seed inserts the demo hierarchy into an empty database on startup.
	Seed bool
}

// LoadDotEnv reads KEY=value pairs from the given files (".env" when none
// are given) into the process environment. Variables already set win, and
// missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a numeric setting is malformed.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "ruletracker"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "ruletracker"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	}

	ttl, err := time.ParseDuration(envOrDefault("TREE_CACHE_TTL", "10m"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("TREE_CACHE_TTL must be a positive duration")
	}
	cfg.SnapshotTTL = ttl

	limit, err := strconv.Atoi(envOrDefault("RATE_LIMIT", "120"))
	if err != nil || limit < 0 {
		return nil, fmt.Errorf("RATE_LIMIT must be a non-negative integer")
	}
	cfg.RateLimit = limit

	seed, err := strconv.ParseBool(envOrDefault("SEED_DEMO_DATA", strconv.FormatBool(cfg.Env == "development")))
	if err != nil {
		return nil, fmt.Errorf("SEED_DEMO_DATA must be a boolean")
	}
	cfg.Seed = seed

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SecureCookies reports whether session cookies must be HTTPS-only.
func (c *Config) SecureCookies() bool {
	return c.Env == "production"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
