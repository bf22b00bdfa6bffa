package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":3000" {
		t.Errorf("Listen = %q, want :3000", cfg.Listen)
	}
	if cfg.NASA.APIKey != neows.DemoKey {
		t.Errorf("APIKey = %q, want %q", cfg.NASA.APIKey, neows.DemoKey)
	}
	if cfg.FeedTTL() != 60*time.Second {
		t.Errorf("FeedTTL = %v, want 60s", cfg.FeedTTL())
	}
	if cfg.AlertThresholdKM != 500000 {
		t.Errorf("AlertThresholdKM = %v, want 500000", cfg.AlertThresholdKM)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("TEST_NASA_KEY", "from-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "astroscan.yaml")
	content := `
listen: ":9090"
nasa:
  api_key: "${TEST_NASA_KEY}"
  start_date: "2024-04-09"
cache:
  feed_ttl_seconds: 120
audit:
  db_path: "/tmp/audit.db"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q, want :9090", cfg.Listen)
	}
	if cfg.NASA.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.NASA.APIKey)
	}
	if cfg.FeedTTL() != 2*time.Minute {
		t.Errorf("FeedTTL = %v, want 2m", cfg.FeedTTL())
	}
	// Unset keys keep defaults.
	if cfg.APODTTL() != time.Hour {
		t.Errorf("APODTTL = %v, want 1h", cfg.APODTTL())
	}
	if cfg.NeowsConfig().StartDate != "2024-04-09" {
		t.Errorf("StartDate = %q", cfg.NeowsConfig().StartDate)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "astroscan.toml")
	content := `
listen = ":7070"
alert_threshold_km = 250000.0

[nasa]
api_key = "toml-key"

[cache]
feed_ttl_seconds = 30
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7070" || cfg.NASA.APIKey != "toml-key" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.AlertThresholdKM != 250000 {
		t.Errorf("AlertThresholdKM = %v, want 250000", cfg.AlertThresholdKM)
	}
	if cfg.FeedTTL() != 30*time.Second {
		t.Errorf("FeedTTL = %v, want 30s", cfg.FeedTTL())
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "astroscan.ini")
	os.WriteFile(path, []byte("x=1"), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for .ini config")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NASA_KEY", "env-key")
	t.Setenv("PORT", "4000")
	t.Setenv("ASTROSCAN_CACHE_TTL", "90")
	t.Setenv("ASTROSCAN_ALERT_THRESHOLD_KM", "1000")
	t.Setenv("ASTROSCAN_AUTH_ENABLED", "true")
	t.Setenv("ASTROSCAN_AUTH_TOKEN", "tok")

	cfg := Default()
	cfg.ApplyEnv(testLogger())

	if cfg.NASA.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.NASA.APIKey)
	}
	if cfg.Listen != ":4000" {
		t.Errorf("Listen = %q, want :4000", cfg.Listen)
	}
	if cfg.FeedTTL() != 90*time.Second {
		t.Errorf("FeedTTL = %v", cfg.FeedTTL())
	}
	if cfg.AlertThresholdKM != 1000 {
		t.Errorf("AlertThresholdKM = %v", cfg.AlertThresholdKM)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Token != "tok" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
}

func TestApplyEnvInvalidKeepsDefaults(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("ASTROSCAN_CACHE_TTL", "-5")
	t.Setenv("ASTROSCAN_AUTH_ENABLED", "maybe")

	cfg := Default()
	cfg.ApplyEnv(testLogger())

	if cfg.Listen != ":3000" {
		t.Errorf("Listen = %q, want default", cfg.Listen)
	}
	if cfg.FeedTTL() != 60*time.Second {
		t.Errorf("FeedTTL = %v, want default", cfg.FeedTTL())
	}
	if cfg.Auth.Enabled {
		t.Error("auth enabled from invalid value")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Auth.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for auth without token")
	}

	cfg = Default()
	cfg.NASA.StartDate = "04/09/2024"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for malformed start date")
	}
}
