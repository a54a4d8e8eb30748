package config

import (
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/spinhub")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.LockTTL != 30*time.Second {
		t.Fatalf("LockTTL = %v, want 30s", cfg.LockTTL)
	}
	if cfg.WebhookRetries != 2 {
		t.Fatalf("WebhookRetries = %d, want 2", cfg.WebhookRetries)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
}

func TestLoadServerRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	if _, err := LoadServer(); err == nil {
		t.Fatal("expected error for empty POSTGRES_DSN")
	}
}
