package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "FAIRGOV"

// Env holds the deployment values that may be overridden from the
// environment. Unset variables leave the file value in place.
type Env struct {
	Port           string `envconfig:"PORT"`
	Environment    string `envconfig:"ENV"`
	WritesPerMin   *int   `envconfig:"WRITES_PER_MINUTE"`
	StoreBackend   string `envconfig:"STORE_BACKEND"`
	SQLitePath     string `envconfig:"SQLITE_PATH"`
	RedisAddr      string `envconfig:"REDIS_ADDR"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        *int   `envconfig:"REDIS_DB"`
	AuditDriver    string `envconfig:"AUDIT_DRIVER"`
	AuditDSN       string `envconfig:"AUDIT_DSN"`
	SweeperEnabled *bool  `envconfig:"SWEEPER_ENABLED"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
}

// Load resolves the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then .env, then FAIRGOV_* variables.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		fromFile, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	}

	// .env files are optional
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to load env file", "file", f, "error", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays FAIRGOV_* variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}

	if env.Port != "" {
		cfg.Server.Port = env.Port
	}
	if env.Environment != "" {
		cfg.Server.Env = env.Environment
	}
	if env.WritesPerMin != nil {
		cfg.Server.WritesPerMinute = *env.WritesPerMin
	}
	if env.StoreBackend != "" {
		cfg.Store.Backend = env.StoreBackend
	}
	if env.SQLitePath != "" {
		cfg.Store.SQLitePath = env.SQLitePath
	}
	if env.RedisAddr != "" {
		cfg.Store.RedisAddr = env.RedisAddr
	}
	if env.RedisPassword != "" {
		cfg.Store.RedisPassword = env.RedisPassword
	}
	if env.RedisDB != nil {
		cfg.Store.RedisDB = *env.RedisDB
	}
	if env.AuditDriver != "" {
		cfg.Audit.Driver = env.AuditDriver
	}
	if env.AuditDSN != "" {
		cfg.Audit.DSN = env.AuditDSN
	}
	if env.SweeperEnabled != nil {
		cfg.Sweeper.Enabled = *env.SweeperEnabled
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	return nil
}
