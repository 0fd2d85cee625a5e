// Package cache stores raw Overpass responses so repeated fetches of the
// same layer and bounding box skip the network. Three backends are
// available: an in-process map, a SQLite file shared across restarts, and
// Redis for multi-instance deployments.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Cache is a byte-oriented response cache with per-entry TTL.
type Cache interface {
	// Get returns the cached data for key. The second return is false on a
	// miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A non-positive ttl keeps the entry until
	// evicted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string // "memory" (default), "sqlite" or "redis"
	Path    string // sqlite database file
	Redis   RedisConfig
}

// RedisConfig carries connection settings for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// New builds the configured cache backend.
func New(cfg Config, logger *slog.Logger) (Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite cache needs a path")
		}
		return NewSQLite(cfg.Path, logger)
	case "redis":
		return NewRedis(cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
