// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database. Optional: the service runs with an in-memory prediction
	// history when unset.
	DatabaseURL string

	// Scoring settings
	CacheTTL     time.Duration // prediction cache freshness window
	BatchWorkers int           // batch prediction concurrency bound

	// Rate limiting
	RateLimitRPM int

	// Tracing. Empty disables the exporter.
	OTLPEndpoint string
}

// Defaults.
const (
	DefaultPort         = "8080"
	DefaultEnv          = "development"
	DefaultLogLevel     = "info"
	DefaultCacheTTLSecs = 3600
	DefaultBatchWorkers = 8
	DefaultRateLimit    = 120
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", DefaultPort),
		Env:          getEnv("ENV", DefaultEnv),
		LogLevel:     getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		CacheTTL:     time.Duration(getEnvInt("CACHE_TTL_SECONDS", DefaultCacheTTLSecs)) * time.Second,
		BatchWorkers: getEnvInt("BATCH_WORKERS", DefaultBatchWorkers),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	switch c.Env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENV must be development, staging, or production")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
