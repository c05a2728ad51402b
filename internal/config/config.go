// Package config loads runtime settings from ASTRAL_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/astral-district/internal/balance"
)

// Config is the process configuration.
type Config struct {
	DBPath   string `env:"ASTRAL_DB_PATH"`
	Port     int    `env:"ASTRAL_PORT"`
	AdminKey string `env:"ASTRAL_ADMIN_KEY"`
	// Dev exposes the developer endpoints (still behind AdminKey).
	Dev       bool   `env:"ASTRAL_DEV"`
	FastTicks bool   `env:"ASTRAL_FAST_TICKS"`
	Catalog   string `env:"ASTRAL_CATALOG"` // empty = embedded tables

	// Seed drives crime and risk rolls; 0 uses crypto randomness.
	Seed         int64 `env:"ASTRAL_SEED"`
	DistrictSeed int64 `env:"ASTRAL_DISTRICT_SEED"`

	SuspenseDelay time.Duration `env:"ASTRAL_SUSPENSE_DELAY"`
	RiskDelay     time.Duration `env:"ASTRAL_RISK_DELAY"`

	LogFormat string `env:"ASTRAL_LOG_FORMAT"` // auto, text, json
	LogLevel  string `env:"ASTRAL_LOG_LEVEL"`
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		DBPath:        "data/astral.db",
		Port:          8080,
		DistrictSeed:  42,
		SuspenseDelay: balance.SuspenseDelay,
		RiskDelay:     balance.RiskDelay,
		LogFormat:     "auto",
		LogLevel:      "info",
	}
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates the configuration. Unset variables keep their
// Default values.
func Load() (Config, error) {
	cfg := Default()
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.SuspenseDelay < 0 || c.RiskDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// DevEnabled reports whether developer endpoints should be served.
func (c Config) DevEnabled() bool {
	return c.Dev && c.AdminKey != ""
}
