package config

import (
	"testing"
	"time"
)

func TestLoadSQLiteDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()
	if cfg.SQLitePath != "/tmp/x.db" {
		t.Fatalf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.CleanupInterval != 20*time.Minute || cfg.CleanupGrace != 2*time.Hour {
		t.Fatalf("cleanup defaults = %v/%v", cfg.CleanupInterval, cfg.CleanupGrace)
	}
	if cfg.CheckinSkipWindow {
		t.Fatal("check-in window bypass must default to off")
	}
	if cfg.EarlyBirdPrice != 30000 {
		t.Fatalf("EarlyBirdPrice = %d", cfg.EarlyBirdPrice)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Fatalf("Capacity = %d, want 1", cfg.Capacity)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("TTL = %v, want 10s", cfg.TTL)
	}
}

func TestRelayDefaults(t *testing.T) {
	t.Setenv("SRS_URL", "https://srs.example/api/")
	cfg := LoadRelayConfig()
	if cfg.Broker != "none" {
		t.Fatalf("Broker = %q", cfg.Broker)
	}
	if cfg.SRSURL != "https://srs.example/api" {
		t.Fatalf("SRSURL = %q", cfg.SRSURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Fatalf("Timeout = %v", cfg.Timeout)
	}
}
