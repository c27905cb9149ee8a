package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "pulsemon.db" {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Check.Timeout != 10*time.Second {
		t.Fatalf("unexpected check timeout: %v", cfg.Check.Timeout)
	}
	if cfg.Check.GraceFactor != 2.0 {
		t.Fatalf("unexpected grace factor: %v", cfg.Check.GraceFactor)
	}
	if cfg.Retention.Window != 720*time.Hour || cfg.Retention.Schedule != "@hourly" {
		t.Fatalf("unexpected retention defaults: %+v", cfg.Retention)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
addr: ":9090"
debug: true
store:
  driver: memory
check:
  timeout: 3s
  grace_factor: 3
notify:
  retry_attempts: 1
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || !cfg.Debug {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("store driver not applied: %+v", cfg.Store)
	}
	if cfg.Check.Timeout != 3*time.Second || cfg.Check.GraceFactor != 3 {
		t.Fatalf("check values not applied: %+v", cfg.Check)
	}
	if cfg.Notify.RetryAttempts != 1 {
		t.Fatalf("notify values not applied: %+v", cfg.Notify)
	}
	// Unset keys keep their defaults.
	if cfg.Notify.SendTimeout != 10*time.Second {
		t.Fatalf("default lost: %+v", cfg.Notify)
	}
}

func TestLoad_RejectsBadDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: mysql\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("want validation error for unknown driver")
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("want error for missing config file")
	}
}
