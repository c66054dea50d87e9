package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration shared by the stockboard binaries.
type Config struct {
	API       API       `yaml:"api"`
	Storage   Storage   `yaml:"storage"`
	Logging   Logging   `yaml:"logging"`
	Dashboard Dashboard `yaml:"dashboard"`
	DevAPI    DevAPI    `yaml:"devapi"`
}

// API holds the backend endpoint and client behaviour.
type API struct {
	BaseURL         string `yaml:"base_url"`
	Timeout         string `yaml:"timeout"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Storage holds paths for client-side persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	ExportDir  string `yaml:"export_dir"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Dashboard holds the initial selection and the optional refresh schedule.
type Dashboard struct {
	DefaultSymbol string `yaml:"default_symbol"`
	DefaultRange  string `yaml:"default_range"`
	RefreshCron   string `yaml:"refresh_cron"`
}

// DevAPI configures the local development backend.
type DevAPI struct {
	Addr    string   `yaml:"addr"`
	Symbols []string `yaml:"symbols"`
	Days    int      `yaml:"days"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadEnvFile loads KEY=VALUE pairs from the given .env files (default
// ".env") into the process environment. A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides and fills defaults. A missing file yields a
// configuration built from the environment and defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	cfg.Storage.SQLitePath = expandHome(cfg.Storage.SQLitePath)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	// Project-prefixed name wins over the generic one.
	if v := os.Getenv("STOCKBOARD_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("STOCKBOARD_REFRESH_CRON"); v != "" {
		cfg.Dashboard.RefreshCron = v
	}

	if v := os.Getenv("DEVAPI_ADDR"); v != "" {
		cfg.DevAPI.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.Timeout == "" {
		cfg.API.Timeout = "30s"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = defaultSQLitePath()
	}
	if cfg.Storage.ExportDir == "" {
		cfg.Storage.ExportDir = "exports"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Dashboard.DefaultSymbol == "" {
		cfg.Dashboard.DefaultSymbol = "AAPL"
	}
	if cfg.Dashboard.DefaultRange == "" {
		cfg.Dashboard.DefaultRange = "1M"
	}
	if cfg.DevAPI.Addr == "" {
		cfg.DevAPI.Addr = ":8080"
	}
	if len(cfg.DevAPI.Symbols) == 0 {
		cfg.DevAPI.Symbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}
	}
	if cfg.DevAPI.Days == 0 {
		cfg.DevAPI.Days = 400
	}
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "stockboard.db"
	}
	return filepath.Join(home, ".stockboard", "session.db")
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// RequestTimeout returns the parsed API timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Validate checks that the fields the clients depend on are usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if d, err := time.ParseDuration(c.API.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("api.timeout %q is not a positive duration", c.API.Timeout)
	}
	switch c.Dashboard.DefaultRange {
	case "1D", "1W", "1M", "3M", "1Y":
	default:
		return fmt.Errorf("dashboard.default_range %q must be one of 1D, 1W, 1M, 3M, 1Y", c.Dashboard.DefaultRange)
	}
	if c.API.RateLimitPerMin < 0 {
		return fmt.Errorf("api.rate_limit_per_min must not be negative")
	}
	return nil
}
