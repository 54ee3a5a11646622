package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != "8081" {
		t.Errorf("http port = %q, want 8081", cfg.HTTPPort)
	}
	if cfg.SessionLifetime != 15*time.Minute {
		t.Errorf("session lifetime = %v, want 15m", cfg.SessionLifetime)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Errorf("rate limit = %d, want 120", cfg.RateLimitPerMin)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("SESSION_LIFETIME", "30m")
	t.Setenv("RATE_LIMIT_PER_MIN", "60")

	cfg := Load()
	if cfg.HTTPPort != "9000" {
		t.Errorf("http port = %q, want 9000", cfg.HTTPPort)
	}
	if cfg.SessionLifetime != 30*time.Minute {
		t.Errorf("session lifetime = %v, want 30m", cfg.SessionLifetime)
	}
	if cfg.RateLimitPerMin != 60 {
		t.Errorf("rate limit = %d, want 60", cfg.RateLimitPerMin)
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_LIFETIME", "not-a-duration")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")

	cfg := Load()
	if cfg.SessionLifetime != 15*time.Minute {
		t.Errorf("session lifetime = %v, want fallback 15m", cfg.SessionLifetime)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Errorf("rate limit = %d, want fallback 120", cfg.RateLimitPerMin)
	}
}
