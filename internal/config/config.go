package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/store"
)

type Config struct {
	Server     ServerConfig       `yaml:"server"`
	Store      store.Config       `yaml:"store"`
	Audit      AuditConfig        `yaml:"audit"`
	Safeguards safeguards.Config  `yaml:"safeguards"`
	Penalties  penalty.Settings   `yaml:"penalties"`
	Appeals    appeal.Settings    `yaml:"appeals"`
	Detection  detection.Settings `yaml:"detection"`
	Sweeper    SweeperConfig      `yaml:"sweeper"`
	Log        LogConfig          `yaml:"log"`
}

type ServerConfig struct {
	Port                   string `yaml:"port"`
	Env                    string `yaml:"env"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	// WritesPerMinute caps mutating requests per actor. Zero disables it.
	WritesPerMinute        int    `yaml:"writes_per_minute"`
}

// AuditConfig selects the audit sink. An empty driver logs entries through
// slog instead of a database.
type AuditConfig struct {
	Driver string `yaml:"driver"` // "postgres", "sqlite" or ""
	DSN    string `yaml:"dsn"`
}

type SweeperConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron spec with a seconds field
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// DefaultConfig returns a complete working configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                   "8080",
			Env:                    "development",
			ShutdownTimeoutSeconds: 10,
			WritesPerMinute:        600,
		},
		Store: store.Config{
			Backend:   "memory",
			KeyPrefix: "fairgov:",
		},
		Safeguards: safeguards.DefaultConfig(),
		Penalties:  penalty.DefaultSettings(),
		Appeals:    appeal.DefaultSettings(),
		Detection:  detection.DefaultSettings(),
		Sweeper: SweeperConfig{
			Enabled:  true,
			Schedule: "0 * * * * *",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig decodes the YAML file at path on top of DefaultConfig, so a
// file only needs the keys it changes.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every governance section. The safeguards bundle is checked
// first since nothing can run without it.
func (c *Config) Validate() error {
	if err := c.Safeguards.Validate(); err != nil {
		return err
	}
	if err := c.Penalties.Validate(); err != nil {
		return err
	}
	if err := c.Appeals.Validate(); err != nil {
		return err
	}
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "", "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if c.Server.WritesPerMinute < 0 {
		return fmt.Errorf("server.writes_per_minute must not be negative: %d", c.Server.WritesPerMinute)
	}
	switch c.Audit.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown audit driver: %s", c.Audit.Driver)
	}
	return nil
}

// SlogLevel maps the configured level name, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
