package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// External push provider
	ProviderBaseURL string
	ProviderTimeout time.Duration

	// BatchSize is the maximum number of pending rows claimed per run.
	BatchSize int

	// ChunkSize is the provider-imposed ceiling on messages per call.
	// Exceeding it is a request-level error, so it must never be raised
	// above what the provider documents.
	ChunkSize int

	// ChunkConcurrency bounds how many provider calls are in flight at once.
	ChunkConcurrency int

	// ProviderRateLimit caps provider calls per second.
	ProviderRateLimit int

	// RetentionDays is how long terminal rows are kept before the sweeper
	// deletes them.
	RetentionDays int

	// ClaimTimeout is how long a claimed row stays owned by a run before a
	// later run may re-claim it. Guards against rows orphaned by a crash
	// mid-run.
	ClaimTimeout time.Duration

	// RunInterval is the scheduler tick between delivery runs.
	RunInterval time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://exp.host/--/api/v2"),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 10*time.Second),

		BatchSize:         getInt("BATCH_SIZE", 100),
		ChunkSize:         getInt("CHUNK_SIZE", 100),
		ChunkConcurrency:  getInt("CHUNK_CONCURRENCY", 4),
		ProviderRateLimit: getInt("PROVIDER_RATE_LIMIT", 10),

		RetentionDays: getInt("RETENTION_DAYS", 7),
		ClaimTimeout:  getDuration("CLAIM_TIMEOUT", 5*time.Minute),
		RunInterval:   getDuration("RUN_INTERVAL", 30*time.Second),
	}, nil
}

// RetentionWindow returns RetentionDays as a duration.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
