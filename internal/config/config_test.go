package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Collector.PageSize = 0
	cfg.Collector.Workers = 50
	cfg.Backtest.KellyWinProb = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "page_size", "workers", "kelly_win_prob"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidateBoundedConcurrencyNeedsRate(t *testing.T) {
	cfg := Defaults()
	cfg.Collector.Workers = 4
	cfg.Collector.RatePerSecond = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("workers > 1 without a shared rate ceiling must not validate")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"

[collector]
page_size = 50
request_delay = "250ms"

[database]
host = "db.internal"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("POLYHIST_DATABASE_PASSWORD", "hunter2")
	t.Setenv("POLYHIST_COLLECTOR_MAX_PAGES", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Collector.PageSize != 50 {
		t.Errorf("page_size = %d, want 50", cfg.Collector.PageSize)
	}
	if cfg.Collector.RequestDelay.Duration != 250*time.Millisecond {
		t.Errorf("request_delay = %v, want 250ms", cfg.Collector.RequestDelay.Duration)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database host = %q", cfg.Database.Host)
	}
	if cfg.Database.Password != "hunter2" {
		t.Errorf("env override lost: password = %q", cfg.Database.Password)
	}
	if cfg.Collector.MaxPages != 7 {
		t.Errorf("env override lost: max_pages = %d", cfg.Collector.MaxPages)
	}
	// Untouched fields keep defaults.
	if cfg.Polymarket.GammaHost != Defaults().Polymarket.GammaHost {
		t.Errorf("default gamma_host lost: %q", cfg.Polymarket.GammaHost)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Collector.PageSize != Defaults().Collector.PageSize {
		t.Errorf("expected defaults, got page_size=%d", cfg.Collector.PageSize)
	}
}
