package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultTenantID is the well-known placeholder tenant used until the
// operator selects a real one. Requests must never carry an empty tenant.
const DefaultTenantID = "550e8400-e29b-41d4-a716-446655440000"

// BackendConfig holds connection settings for the KillTheNoise backend.
type BackendConfig struct {
	// BaseURL is the root URL of the backend API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec is the per-request HTTP timeout.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// IssuesConfig holds settings for the issue dashboard.
type IssuesConfig struct {
	// Limit is the maximum number of issue groups fetched per refresh.
	Limit int `mapstructure:"limit" yaml:"limit"`

	// RefreshIntervalSec is how often the dashboard re-fetches groups
	// in the background. Zero disables background refresh.
	RefreshIntervalSec int `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
}

// ConnectConfig holds settings for the OAuth connect flow.
type ConnectConfig struct {
	// PollIntervalSec is how often the controller re-checks auth status
	// while an OAuth window is open.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// PollTimeoutSec is the hard wall-clock ceiling on a polling run.
	PollTimeoutSec int `mapstructure:"poll_timeout_sec" yaml:"poll_timeout_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// TenantID is the customer scope every request is made under.
	TenantID string `mapstructure:"tenant_id" yaml:"tenant_id"`

	// TeamID optionally narrows the dashboard to one product team.
	TeamID string `mapstructure:"team_id" yaml:"team_id"`

	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Issues  IssuesConfig  `mapstructure:"issues" yaml:"issues"`
	Connect ConnectConfig `mapstructure:"connect" yaml:"connect"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/killthenoise/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "killthenoise", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		TenantID: DefaultTenantID,
		Backend: BackendConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 30,
		},
		Issues: IssuesConfig{
			Limit:              20,
			RefreshIntervalSec: 120,
		},
		Connect: ConnectConfig{
			PollIntervalSec: 3,
			PollTimeoutSec:  300,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("tenant_id", DefaultTenantID)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout_sec", 30)
	v.SetDefault("issues.limit", 20)
	v.SetDefault("issues.refresh_interval_sec", 120)
	v.SetDefault("connect.poll_interval_sec", 3)
	v.SetDefault("connect.poll_timeout_sec", 300)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// An empty tenant would produce malformed request paths; fall back
	// to the placeholder instead.
	if cfg.TenantID == "" {
		cfg.TenantID = DefaultTenantID
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("tenant_id", cfg.TenantID)
	v.Set("team_id", cfg.TeamID)
	v.Set("backend", cfg.Backend)
	v.Set("issues", cfg.Issues)
	v.Set("connect", cfg.Connect)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
