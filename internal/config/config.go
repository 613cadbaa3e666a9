// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the HTTP listen address
	Addr string

	// DatabaseDriver is "sqlite3" or "postgres"
	DatabaseDriver string

	// DatabaseURL is a SQLite file path or a postgres DSN
	DatabaseURL string

	// ServiceKey guards every route except health and ws when non-empty
	ServiceKey string

	// PublicBaseURL, when set, makes the sync service request task
	// generation over HTTP instead of in process
	PublicBaseURL string

	// OperatingTimezone applies to properties without their own timezone
	OperatingTimezone *time.Location

	// FeedTimeout bounds each outbound iCal request
	FeedTimeout time.Duration

	// GenerationTimeout bounds a task generation request made over HTTP
	GenerationTimeout time.Duration

	// FeedRateLimit is the minimum spacing between feed requests
	FeedRateLimit time.Duration

	// SyncConcurrency bounds parallel properties in a bulk run
	SyncConcurrency int

	// SyncSchedule is a cron spec for the bulk run; empty disables it
	SyncSchedule string

	// RedisAddr enables the shared bulk-run lock
	RedisAddr string

	// RunLockTTL is how long a crashed replica can hold the shared bulk-run
	// lock. A live holder keeps refreshing it.
	RunLockTTL time.Duration

	// LogLevel is passed to logging.ParseLevel
	LogLevel string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:              getEnv("ADDR", ":8080"),
		DatabaseDriver:    getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:       getEnv("DATABASE_URL", "/data/turnover.db"),
		ServiceKey:        os.Getenv("SERVICE_KEY"),
		PublicBaseURL:     strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		FeedTimeout:       getEnvDuration("FEED_TIMEOUT", 30*time.Second),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		FeedRateLimit:     time.Duration(getEnvInt("FEED_RATE_LIMIT_MS", 250)) * time.Millisecond,
		SyncConcurrency:   getEnvInt("SYNC_CONCURRENCY", 1),
		SyncSchedule:      "@every 1h",
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RunLockTTL:        getEnvDuration("RUN_LOCK_TTL", 2*time.Minute),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
	}

	// An explicitly empty schedule disables the scheduler.
	if v, ok := os.LookupEnv("SYNC_SCHEDULE"); ok {
		cfg.SyncSchedule = strings.TrimSpace(v)
	}

	tz := getEnv("OPERATING_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid OPERATING_TIMEZONE %q: %w", tz, err)
	}
	cfg.OperatingTimezone = loc

	switch cfg.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	if cfg.SyncConcurrency < 1 {
		cfg.SyncConcurrency = 1
	}

	return cfg, nil
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Ignoring invalid integer setting", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Ignoring invalid duration setting", "key", key, "value", value)
		return defaultValue
	}
	return d
}
