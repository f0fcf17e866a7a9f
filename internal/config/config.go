// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration values for the coin engine.
type Config struct {
	// Server
	Port string

	// Storage
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration

	// Distribution
	MinCoinsPerGrid int
	MinContribution decimal.Decimal
	MaxContribution decimal.Decimal
	RecycleAfter    time.Duration

	// Collection
	CollectionRangeMeters float64

	// Ledger
	DailyGasRate       decimal.Decimal
	ConfirmAfter       time.Duration
	NearbyRadiusMeters float64

	// Scheduler
	SweepInterval time.Duration
}

// Load reads configuration from environment variables with fallback to a .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		CacheTTL:    time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		MinCoinsPerGrid: getEnvInt("MIN_COINS_PER_GRID", 5),
		MinContribution: getEnvDecimal("MIN_CONTRIBUTION", "0.10"),
		MaxContribution: getEnvDecimal("MAX_CONTRIBUTION", "5.00"),
		RecycleAfter:    time.Duration(getEnvInt("RECYCLE_AFTER_HOURS", 24)) * time.Hour,

		CollectionRangeMeters: getEnvFloat("COLLECTION_RANGE_METERS", 10),

		DailyGasRate:       getEnvDecimal("DAILY_GAS_RATE", "0.33"),
		ConfirmAfter:       time.Duration(getEnvInt("CONFIRM_AFTER_HOURS", 24)) * time.Hour,
		NearbyRadiusMeters: getEnvFloat("NEARBY_RADIUS_METERS", 250),

		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 15)) * time.Minute,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are sane.
func (c *Config) Validate() error {
	if c.MinCoinsPerGrid < 0 {
		return fmt.Errorf("MIN_COINS_PER_GRID must not be negative")
	}

	if c.MinContribution.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("MIN_CONTRIBUTION must be positive")
	}

	if c.MaxContribution.LessThan(c.MinContribution) {
		return fmt.Errorf("MAX_CONTRIBUTION must not be below MIN_CONTRIBUTION")
	}

	if c.CollectionRangeMeters <= 0 {
		return fmt.Errorf("COLLECTION_RANGE_METERS must be positive")
	}

	if c.DailyGasRate.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("DAILY_GAS_RATE must be positive")
	}

	if c.SweepInterval < time.Minute {
		return fmt.Errorf("SWEEP_INTERVAL_MINUTES must be at least 1")
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDecimal retrieves an environment variable as a decimal or returns a default.
func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}
