package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
checks:
  claim_cap: 100
  max_supply: 1000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DatabasePath == "" {
		t.Fatalf("expected default database path")
	}
	if cfg.OutputDir == "" {
		t.Fatalf("expected default output dir")
	}
	if cfg.Window.Duration != 24*time.Hour {
		t.Fatalf("unexpected default window: %s", cfg.Window.Duration)
	}
	if cfg.Retention.Duration != 90*24*time.Hour {
		t.Fatalf("unexpected default retention: %s", cfg.Retention.Duration)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
database: ./audit.db
output_dir: ./reports
window: 90m
retention: 48h
checks:
  claim_cap: 5
  max_supply: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Window.Duration != 90*time.Minute {
		t.Fatalf("unexpected window: %s", cfg.Window.Duration)
	}
	if cfg.Retention.Duration != 48*time.Hour {
		t.Fatalf("unexpected retention: %s", cfg.Retention.Duration)
	}
	if cfg.Checks.ClaimCap != 5 || cfg.Checks.MaxSupply != 50 {
		t.Fatalf("unexpected checks: %+v", cfg.Checks)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	path := writeConfig(t, `
window: soon
checks:
  claim_cap: 1
  max_supply: 10
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse duration") {
		t.Fatalf("expected duration parse error, got %v", err)
	}
}

func TestValidateRequiresCaps(t *testing.T) {
	cfg := Config{Window: Duration{24 * time.Hour}}
	err := validate(cfg)
	if err == nil {
		t.Fatalf("expected error when max supply missing")
	}
	if got, want := err.Error(), "checks.max_supply must be positive"; got != want {
		t.Fatalf("unexpected error: got %q want %q", got, want)
	}

	cfg.Checks.MaxSupply = 100
	err = validate(cfg)
	if err == nil {
		t.Fatalf("expected error when claim cap missing")
	}
	if got, want := err.Error(), "checks.claim_cap must be positive"; got != want {
		t.Fatalf("unexpected error: got %q want %q", got, want)
	}
}

func TestValidateRejectsTinyWindow(t *testing.T) {
	cfg := Config{
		Window: Duration{10 * time.Second},
		Checks: ChecksConfig{ClaimCap: 1, MaxSupply: 10},
	}
	err := validate(cfg)
	if err == nil {
		t.Fatalf("expected error for sub-minute window")
	}
	if got, want := err.Error(), "window must be at least one minute"; got != want {
		t.Fatalf("unexpected error: got %q want %q", got, want)
	}
}
