package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Port != 8080 {
		t.Fatalf("Port: expected 8080 got %d", cfg.Port)
	}
	if cfg.SuspenseDelay != 1500*time.Millisecond {
		t.Fatalf("SuspenseDelay: expected 1.5s got %v", cfg.SuspenseDelay)
	}
	if cfg.RiskDelay != 100*time.Millisecond {
		t.Fatalf("RiskDelay: expected 100ms got %v", cfg.RiskDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}

func TestLoadWithoutEnvIsDefault(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults got %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ASTRAL_PORT", "9090")
	t.Setenv("ASTRAL_ADMIN_KEY", "secret")
	t.Setenv("ASTRAL_DEV", "true")
	t.Setenv("ASTRAL_FAST_TICKS", "true")
	t.Setenv("ASTRAL_SUSPENSE_DELAY", "0s")
	t.Setenv("ASTRAL_SEED", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 || !cfg.FastTicks || cfg.SuspenseDelay != 0 || cfg.Seed != 7 {
		t.Fatalf("expected env overrides got %+v", cfg)
	}
	if cfg.RiskDelay != 100*time.Millisecond || cfg.DistrictSeed != 42 || cfg.DBPath != "data/astral.db" {
		t.Fatalf("expected defaults for unset keys got %+v", cfg)
	}
	if !cfg.DevEnabled() {
		t.Fatalf("expected dev surface enabled with dev flag and admin key")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("ASTRAL_PORT", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}

	t.Setenv("ASTRAL_PORT", "70000")
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error")
	}

	t.Setenv("ASTRAL_PORT", "8080")
	t.Setenv("ASTRAL_LOG_FORMAT", "xml")
	if _, err := Load(); err == nil {
		t.Fatalf("expected log format error")
	}
}

func TestDevNeedsAdminKey(t *testing.T) {
	cfg := Default()
	cfg.Dev = true
	if cfg.DevEnabled() {
		t.Fatalf("expected dev surface disabled without admin key")
	}
}
