package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.AccessTTL != 12*time.Hour {
		t.Fatalf("unexpected access ttl: %v", cfg.Auth.AccessTTL)
	}
	if cfg.Documents.DefaultTTL != 30*24*time.Hour {
		t.Fatalf("unexpected document ttl: %v", cfg.Documents.DefaultTTL)
	}
	if cfg.Database.DSN != "" {
		t.Fatalf("expected empty dsn by default, got %q", cfg.Database.DSN)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ROOFLENS_SERVER_ADDR", ":9090")
	t.Setenv("ROOFLENS_DOCUMENTS_SWEEP_EVERY", "15m")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("env override not applied: %s", cfg.Server.Addr)
	}
	if cfg.Documents.SweepEvery != 15*time.Minute {
		t.Fatalf("duration override not applied: %v", cfg.Documents.SweepEvery)
	}
}
