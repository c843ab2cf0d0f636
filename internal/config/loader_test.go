package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nycscout/scout/internal/config"
)

// setRequiredSecrets fills in the settings that have no defaults.
func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("SCOUT_SERVER_VERIFY_TOKEN", "verify-tok")
	t.Setenv("SCOUT_INSTAGRAM_PAGE_TOKEN", "page-tok")
	t.Setenv("SCOUT_GEMINI_API_KEY", "gemini-key")
}

func TestLoad_DefaultsApply(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("explicit missing config file should fail")
	}

	// Without an explicit path, a missing config.yaml falls back to defaults.
	cfg, err = config.Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.RateLimit.MaxRequests != 30 || cfg.RateLimit.Window != time.Hour {
		t.Errorf("rate limit defaults = %d/%v, want 30/1h", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}
	if cfg.Recommend.MaxResults != 3 {
		t.Errorf("Recommend.MaxResults = %d, want 3", cfg.Recommend.MaxResults)
	}
	if cfg.Retention.ConversationDays != 30 {
		t.Errorf("Retention.ConversationDays = %d, want 30", cfg.Retention.ConversationDays)
	}
	if cfg.Instagram.PacingMin != 400*time.Millisecond || cfg.Instagram.PacingMax != 900*time.Millisecond {
		t.Errorf("pacing defaults = %v/%v, want 400ms/900ms", cfg.Instagram.PacingMin, cfg.Instagram.PacingMax)
	}
	if cfg.Gemini.ModelName != config.DefaultGeminiModelName {
		t.Errorf("Gemini.ModelName = %q, want default", cfg.Gemini.ModelName)
	}
	if cfg.Messages.Welcome == "" || cfg.Messages.Throttled == "" || cfg.Messages.GeneralError == "" {
		t.Error("canned message defaults missing")
	}
}

func TestLoad_MissingSecretsFailValidation(t *testing.T) {
	t.Setenv("SCOUT_SERVER_VERIFY_TOKEN", "")
	t.Setenv("SCOUT_INSTAGRAM_PAGE_TOKEN", "")
	t.Setenv("SCOUT_GEMINI_API_KEY", "")

	if _, err := config.Load(""); err == nil {
		t.Fatal("Load() should fail when required secrets are absent")
	}
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	setRequiredSecrets(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
log:
  level: debug
  json: false
rate_limit:
  max_requests: 5
  window: 10m
recommend:
  max_results: 2
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.JSON {
		t.Errorf("log config = %q/%v, want debug/false", cfg.Log.Level, cfg.Log.JSON)
	}
	if cfg.RateLimit.MaxRequests != 5 || cfg.RateLimit.Window != 10*time.Minute {
		t.Errorf("rate limit = %d/%v, want 5/10m", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}
	if cfg.Recommend.MaxResults != 2 {
		t.Errorf("Recommend.MaxResults = %d, want 2", cfg.Recommend.MaxResults)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Addr != config.DefaultServerAddr {
		t.Errorf("Server.Addr = %q, want default", cfg.Server.Addr)
	}
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	setRequiredSecrets(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
log:
  level: loud
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := config.Load(path); err == nil {
		t.Fatal("Load() should reject an unknown log level")
	}
}
