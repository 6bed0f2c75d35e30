package store

import (
	"fmt"
	"log/slog"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string `yaml:"backend"` // "memory", "redis" or "sqlite"
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// New creates the configured store. A Redis backend that cannot be reached
// falls back to memory. The returned client is non-nil only for Redis so the
// caller can reuse it for event fan-out.
func New(cfg Config) (Store, RedisClient, error) {
	switch cfg.Backend {
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("redis backend needs redis_addr")
		}
		client, err := NewGoRedisAdapter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("Redis unavailable, falling back to in-memory store", "error", err)
			return NewMemoryStore(), nil, nil
		}
		return NewRedisStore(client, cfg.KeyPrefix), client, nil

	case "sqlite":
		s, err := NewSQLStore(cfg.SQLitePath)
		return s, nil, err

	case "memory", "":
		return NewMemoryStore(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
