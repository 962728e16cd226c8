package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Credentials live here and are
// handed to constructors explicitly; nothing below the CLI reads the
// process environment.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Provider  ProviderConfig  `yaml:"provider" json:"provider"`
	Dashboard DashboardConfig `yaml:"dashboard" json:"dashboard"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Analysis  AnalysisConfig  `yaml:"analysis" json:"analysis"`
	Notify    NotifyConfig    `yaml:"notify" json:"notify"`
	Schedule  ScheduleConfig  `yaml:"schedule" json:"schedule"`
	Verbose   bool            `yaml:"verbose" json:"verbose"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr       string `yaml:"addr" json:"addr"`
	AuthSecret string `yaml:"auth_secret" json:"-"`
}

// ProviderConfig configures the cloud browser provider client.
type ProviderConfig struct {
	BaseURL          string `yaml:"base_url" json:"base_url"`
	APIKey           string `yaml:"api_key" json:"-"`
	ProjectID        string `yaml:"project_id" json:"project_id"`
	Region           string `yaml:"region" json:"region"`
	KeepAliveSeconds int    `yaml:"keepalive_seconds" json:"keepalive_seconds"`
	Browser          string `yaml:"browser" json:"browser"`
	Device           string `yaml:"device" json:"device"`
	OS               string `yaml:"os" json:"os"`
}

// DashboardConfig configures the remote swing dashboard being driven.
type DashboardConfig struct {
	BaseURL       string `yaml:"base_url" json:"base_url"`
	LoginPath     string `yaml:"login_path" json:"login_path"`
	Email         string `yaml:"email" json:"email"`
	Password      string `yaml:"password" json:"-"`
	SettleDelayMs int    `yaml:"settle_delay_ms" json:"settle_delay_ms"`
}

// SettleDelay returns the post-navigation settle delay.
func (d DashboardConfig) SettleDelay() time.Duration {
	if d.SettleDelayMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(d.SettleDelayMs) * time.Millisecond
}

// DatabaseConfig configures the local sqlite store.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// AnalysisConfig configures the downstream scoring service client.
// An empty BaseURL disables submission.
type AnalysisConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	APIKey         string `yaml:"api_key" json:"-"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// NotifyConfig configures callback notifications.
type NotifyConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// ScheduleConfig configures the background report pull.
type ScheduleConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ReportPull string `yaml:"report_pull" json:"report_pull"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8612",
		},
		Provider: ProviderConfig{
			BaseURL:          "https://api.browsergrid.dev",
			Region:           "us-east-1",
			KeepAliveSeconds: 300,
			Browser:          "chrome",
			Device:           "desktop",
			OS:               "windows",
		},
		Dashboard: DashboardConfig{
			LoginPath:     "/login",
			SettleDelayMs: 3000,
		},
		Database: DatabaseConfig{
			Path: "./data/swingbridge.db",
		},
		Analysis: AnalysisConfig{
			TimeoutSeconds: 30,
		},
		Notify: NotifyConfig{
			TimeoutSeconds: 15,
		},
		Schedule: ScheduleConfig{
			Enabled:    false,
			ReportPull: "0 0 3 * * *",
		},
	}
}

// Load reads a YAML config file over the defaults. Environment references
// like ${DASHBOARD_PASSWORD} inside the file are expanded before parsing,
// and a small set of SWINGBRIDGE_* variables override their fields last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays secrets commonly supplied via the environment or an
// .env file loaded by the CLI.
func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Addr, "SWINGBRIDGE_ADDR")
	set(&c.Server.AuthSecret, "SWINGBRIDGE_AUTH_SECRET")
	set(&c.Provider.APIKey, "SWINGBRIDGE_PROVIDER_API_KEY")
	set(&c.Provider.ProjectID, "SWINGBRIDGE_PROVIDER_PROJECT")
	set(&c.Dashboard.Email, "SWINGBRIDGE_DASHBOARD_EMAIL")
	set(&c.Dashboard.Password, "SWINGBRIDGE_DASHBOARD_PASSWORD")
	set(&c.Database.Path, "SWINGBRIDGE_DB_PATH")
	set(&c.Analysis.APIKey, "SWINGBRIDGE_ANALYSIS_API_KEY")
}

// Validate checks the fields every pipeline run depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("provider.base_url is required"))
	}
	if c.Provider.APIKey == "" {
		errs = append(errs, errors.New("provider.api_key is required"))
	}
	if c.Dashboard.BaseURL == "" {
		errs = append(errs, errors.New("dashboard.base_url is required"))
	}
	if c.Dashboard.Email == "" || c.Dashboard.Password == "" {
		errs = append(errs, errors.New("dashboard credentials are required"))
	}
	return errors.Join(errs...)
}
