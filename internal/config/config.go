package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level sentriage configuration.
type Config struct {
	Version      string        `yaml:"version"`
	Server       ServerConfig  `yaml:"server"`
	Triage       TriageConfig  `yaml:"triage"`
	TrustedUsers TrustedConfig `yaml:"trusted_users"`
	Store        StoreConfig   `yaml:"store"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"` // Address to bind (default: 127.0.0.1)
	LogLevel string `yaml:"log_level"`
	Trace    bool   `yaml:"trace"` // emit otel spans to stdout
}

// TriageConfig holds the rule thresholds. Every boundary here is tunable
// without a code change.
type TriageConfig struct {
	VolumeThresholdMB       float64 `yaml:"volume_threshold_mb"`
	IntervalZScoreThreshold float64 `yaml:"interval_zscore_threshold"`
	DomesticGeoLabel        string  `yaml:"domestic_geo_label"`
}

// TrustedConfig configures where the trusted-user set comes from.
type TrustedConfig struct {
	File      string   `yaml:"file,omitempty"`
	Inline    []string `yaml:"inline,omitempty"`
	RedisAddr string   `yaml:"redis_addr,omitempty"`
	RedisKey  string   `yaml:"redis_key,omitempty"`
	Watch     bool     `yaml:"watch,omitempty"` // reload the file on change
}

// StoreConfig configures verdict persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses a sentriage config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply zero-value defaults after unmarshal
	if cfg.Triage.VolumeThresholdMB == 0 {
		cfg.Triage.VolumeThresholdMB = 5000
	}
	if cfg.Triage.IntervalZScoreThreshold == 0 {
		cfg.Triage.IntervalZScoreThreshold = 2.5
	}
	if cfg.Triage.DomesticGeoLabel == "" {
		cfg.Triage.DomesticGeoLabel = "United States"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "sentriage.db"
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			Port:     8080,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		Triage: TriageConfig{
			VolumeThresholdMB:       5000,
			IntervalZScoreThreshold: 2.5,
			DomesticGeoLabel:        "United States",
		},
		TrustedUsers: TrustedConfig{
			RedisKey: "sentriage:trusted",
		},
		Store: StoreConfig{
			Path: "sentriage.db",
		},
	}
}

// Save writes the config to a YAML file at the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks that the config is consistent.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Triage.VolumeThresholdMB < 0 {
		return fmt.Errorf("volume_threshold_mb must be non-negative, got %g", c.Triage.VolumeThresholdMB)
	}
	if c.Triage.IntervalZScoreThreshold <= 0 {
		return fmt.Errorf("interval_zscore_threshold must be positive, got %g", c.Triage.IntervalZScoreThreshold)
	}
	if c.Triage.DomesticGeoLabel == "" {
		return fmt.Errorf("domestic_geo_label must not be empty")
	}
	if c.TrustedUsers.Watch && c.TrustedUsers.File == "" {
		return fmt.Errorf("trusted_users.watch requires trusted_users.file")
	}
	if c.TrustedUsers.RedisAddr != "" && c.TrustedUsers.RedisKey == "" {
		return fmt.Errorf("trusted_users.redis_addr requires trusted_users.redis_key")
	}
	return nil
}
