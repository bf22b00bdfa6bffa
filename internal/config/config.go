// Package config loads service configuration from an optional YAML or TOML
// file and environment variables. Environment variables win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"
)

// Config holds all AstroScan configuration.
type Config struct {
	Listen string `yaml:"listen" toml:"listen"`

	NASA  NASAConfig  `yaml:"nasa" toml:"nasa"`
	Cache CacheConfig `yaml:"cache" toml:"cache"`
	Auth  AuthConfig  `yaml:"auth" toml:"auth"`
	Audit AuditConfig `yaml:"audit" toml:"audit"`

	AlertThresholdKM float64 `yaml:"alert_threshold_km" toml:"alert_threshold_km"`
	TrustProxy       bool    `yaml:"trust_proxy" toml:"trust_proxy"`
	WarmupWorkers    int     `yaml:"warmup_workers" toml:"warmup_workers"`
	MaxInFlightPerIP int     `yaml:"max_in_flight_per_ip" toml:"max_in_flight_per_ip"`
}

// NASAConfig defines the upstream endpoints and access key.
type NASAConfig struct {
	APIKey         string `yaml:"api_key" toml:"api_key"`
	FeedURL        string `yaml:"feed_url" toml:"feed_url"`
	APODURL        string `yaml:"apod_url" toml:"apod_url"`
	StartDate      string `yaml:"start_date" toml:"start_date"`
	EndDate        string `yaml:"end_date" toml:"end_date"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// CacheConfig controls the freshness windows.
type CacheConfig struct {
	FeedTTLSeconds int `yaml:"feed_ttl_seconds" toml:"feed_ttl_seconds"`
	APODTTLSeconds int `yaml:"apod_ttl_seconds" toml:"apod_ttl_seconds"`
}

// AuthConfig controls the optional bearer token gate.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Token   string `yaml:"token" toml:"token"`
}

// AuditConfig controls the SQLite audit log. An empty DBPath disables it.
type AuditConfig struct {
	DBPath        string `yaml:"db_path" toml:"db_path"`
	RetentionDays int    `yaml:"retention_days" toml:"retention_days"`
}

// Default returns a Config with the zero-configuration demo defaults.
func Default() *Config {
	return &Config{
		Listen: ":3000",
		NASA: NASAConfig{
			APIKey:         neows.DemoKey,
			FeedURL:        neows.DefaultFeedURL,
			APODURL:        neows.DefaultAPODURL,
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			FeedTTLSeconds: 60,
			APODTTLSeconds: 3600,
		},
		Audit: AuditConfig{
			RetentionDays: 30,
		},
		AlertThresholdKM: 500000,
		WarmupWorkers:    2,
		MaxInFlightPerIP: 8,
	}
}

// Load reads a YAML or TOML file, chosen by extension, and expands
// environment variables in it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	return cfg, nil
}

// FeedTTL returns the feed freshness window.
func (c *Config) FeedTTL() time.Duration {
	return time.Duration(c.Cache.FeedTTLSeconds) * time.Second
}

// APODTTL returns the APOD freshness window.
func (c *Config) APODTTL() time.Duration {
	return time.Duration(c.Cache.APODTTLSeconds) * time.Second
}

// NeowsConfig maps the NASA section onto the upstream client config.
func (c *Config) NeowsConfig() neows.Config {
	return neows.Config{
		FeedURL:   c.NASA.FeedURL,
		APODURL:   c.NASA.APODURL,
		APIKey:    c.NASA.APIKey,
		StartDate: c.NASA.StartDate,
		EndDate:   c.NASA.EndDate,
		Timeout:   time.Duration(c.NASA.TimeoutSeconds) * time.Second,
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.Token == "" {
		return fmt.Errorf("auth token is required when auth is enabled")
	}
	if c.AlertThresholdKM <= 0 {
		return fmt.Errorf("alert_threshold_km must be positive")
	}
	for _, d := range []string{c.NASA.StartDate, c.NASA.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", d)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto c. Invalid values are logged
// and the existing value is kept.
func (c *Config) ApplyEnv(logger *slog.Logger) {
	if v := os.Getenv("NASA_KEY"); v != "" {
		c.NASA.APIKey = v
	}

	if v := os.Getenv("ASTROSCAN_HTTP_ADDR"); v != "" {
		c.Listen = v
	} else if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 1 || n > 65535 {
			logger.Warn("invalid PORT value, using default", "value", v, "default", c.Listen)
		} else {
			c.Listen = ":" + v
		}
	}

	if v := os.Getenv("ASTROSCAN_FEED_URL"); v != "" {
		c.NASA.FeedURL = v
	}
	if v := os.Getenv("ASTROSCAN_APOD_URL"); v != "" {
		c.NASA.APODURL = v
	}
	if v := os.Getenv("ASTROSCAN_FEED_START_DATE"); v != "" {
		c.NASA.StartDate = v
	}
	if v := os.Getenv("ASTROSCAN_FEED_END_DATE"); v != "" {
		c.NASA.EndDate = v
	}

	envPositiveInt(logger, "ASTROSCAN_UPSTREAM_TIMEOUT", &c.NASA.TimeoutSeconds)
	envPositiveInt(logger, "ASTROSCAN_CACHE_TTL", &c.Cache.FeedTTLSeconds)
	envPositiveInt(logger, "ASTROSCAN_APOD_TTL", &c.Cache.APODTTLSeconds)
	envPositiveInt(logger, "ASTROSCAN_WARMUP_WORKERS", &c.WarmupWorkers)
	envPositiveInt(logger, "ASTROSCAN_AUDIT_RETENTION_DAYS", &c.Audit.RetentionDays)
	envPositiveInt(logger, "ASTROSCAN_MAX_IN_FLIGHT_PER_IP", &c.MaxInFlightPerIP)

	if v := os.Getenv("ASTROSCAN_ALERT_THRESHOLD_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid ASTROSCAN_ALERT_THRESHOLD_KM value, using default", "value", v, "default", c.AlertThresholdKM)
		} else {
			c.AlertThresholdKM = f
		}
	}

	envBool(logger, "ASTROSCAN_AUTH_ENABLED", &c.Auth.Enabled)
	if v := os.Getenv("ASTROSCAN_AUTH_TOKEN"); v != "" {
		c.Auth.Token = v
	}
	envBool(logger, "ASTROSCAN_TRUST_PROXY", &c.TrustProxy)

	if v := os.Getenv("ASTROSCAN_AUDIT_DB"); v != "" {
		c.Audit.DBPath = v
	}
}

func envPositiveInt(logger *slog.Logger, key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = n
}

func envBool(logger *slog.Logger, key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = b
}
