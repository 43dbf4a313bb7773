package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := cfg.Server.Addr(); got != "127.0.0.1:8080" {
		t.Fatalf("unexpected default addr: %q", got)
	}
	if cfg.Database.Path != "healflow.db" {
		t.Fatalf("unexpected database path: %q", cfg.Database.Path)
	}
	if cfg.Sweeper.Tick != 10*time.Second || cfg.Sweeper.StaleAfter != 45*time.Second {
		t.Fatalf("unexpected sweeper defaults: %+v", cfg.Sweeper)
	}
	if cfg.Sweeper.HeartbeatEvery != time.Minute || cfg.Sweeper.BatchLimit != 20 {
		t.Fatalf("unexpected sweeper defaults: %+v", cfg.Sweeper)
	}
	if cfg.Narration.Provider != "fallback" {
		t.Fatalf("unexpected narration provider: %q", cfg.Narration.Provider)
	}
	if cfg.Logger.Level != "info" || cfg.Logger.Format != "console" {
		t.Fatalf("unexpected logger defaults: %+v", cfg.Logger)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HEALFLOW_SERVER_PORT", "9090")
	t.Setenv("HEALFLOW_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("HEALFLOW_SWEEPER_STALE_AFTER", "90s")
	t.Setenv("HEALFLOW_NARRATION_PROVIDER", "openai")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port override lost: %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Fatalf("database path override lost: %q", cfg.Database.Path)
	}
	if cfg.Sweeper.StaleAfter != 90*time.Second {
		t.Fatalf("stale_after override lost: %s", cfg.Sweeper.StaleAfter)
	}
	if cfg.Narration.Provider != "openai" {
		t.Fatalf("provider override lost: %q", cfg.Narration.Provider)
	}
}
