// Package config assembles the typed runtime configuration from viper. Flags
// bound by the CLI, environment variables (AXONCITY_ prefix) and config.yaml
// all land in the same keys; Load reads them after cobra has parsed flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

type Config struct {
	Server   ServerConfig
	Overpass OverpassConfig
	Cache    CacheConfig
	Fetch    FetchConfig
	Log      LogConfig
	Layers   []types.LayerSpec
}

type ServerConfig struct {
	Addr string
}

type OverpassConfig struct {
	Endpoint     string
	QueryTimeout time.Duration
	HTTPTimeout  time.Duration
}

type CacheConfig struct {
	Backend       string
	TTL           time.Duration
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type FetchConfig struct {
	MaxRetries      int
	LayerDelay      time.Duration
	ThrottleBackoff time.Duration
	TimeoutBackoff  time.Duration
	QueueSize       int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load builds the configuration from the current viper state. Durations and
// counts left at zero are filled with component defaults downstream; only
// values that must be decided at startup get defaults here.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr: viper.GetString("serve.addr"),
		},
		Overpass: OverpassConfig{
			Endpoint:     viper.GetString("overpass.endpoint"),
			QueryTimeout: viper.GetDuration("overpass.query_timeout"),
			HTTPTimeout:  viper.GetDuration("overpass.http_timeout"),
		},
		Cache: CacheConfig{
			Backend:       viper.GetString("cache.backend"),
			TTL:           viper.GetDuration("cache.ttl"),
			SQLitePath:    viper.GetString("cache.sqlite_path"),
			RedisAddr:     viper.GetString("cache.redis_addr"),
			RedisPassword: viper.GetString("cache.redis_password"),
			RedisDB:       viper.GetInt("cache.redis_db"),
		},
		Fetch: FetchConfig{
			MaxRetries:      viper.GetInt("fetch.max_retries"),
			LayerDelay:      viper.GetDuration("fetch.layer_delay"),
			ThrottleBackoff: viper.GetDuration("fetch.throttle_backoff"),
			TimeoutBackoff:  viper.GetDuration("fetch.timeout_backoff"),
			QueueSize:       viper.GetInt("fetch.queue_size"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	switch cfg.Cache.Backend {
	case "memory", "redis":
	case "sqlite":
		if cfg.Cache.SQLitePath == "" {
			return nil, fmt.Errorf("cache.sqlite_path is required for the sqlite cache backend")
		}
	default:
		return nil, fmt.Errorf("unknown cache backend %q (expected memory, sqlite or redis)", cfg.Cache.Backend)
	}

	layers, err := loadLayers()
	if err != nil {
		return nil, err
	}
	cfg.Layers = layers

	return cfg, nil
}

// loadLayers reads a custom layer catalog from the "layers" config key and
// falls back to the built-in set when none is configured.
func loadLayers() ([]types.LayerSpec, error) {
	if !viper.IsSet("layers") {
		return DefaultLayers(), nil
	}

	var layers []types.LayerSpec
	if err := viper.UnmarshalKey("layers", &layers); err != nil {
		return nil, fmt.Errorf("parsing layers config: %w", err)
	}
	if len(layers) == 0 {
		return DefaultLayers(), nil
	}

	seen := make(map[string]bool, len(layers))
	for i, l := range layers {
		if l.ID == "" {
			return nil, fmt.Errorf("layers[%d]: id is required", i)
		}
		if seen[l.ID] {
			return nil, fmt.Errorf("layers[%d]: duplicate id %q", i, l.ID)
		}
		seen[l.ID] = true
		switch l.Kind {
		case types.KindPolygon, types.KindLine, types.KindPoint:
		default:
			return nil, fmt.Errorf("layer %q: unknown kind %q (expected polygon, line or point)", l.ID, l.Kind)
		}
		if len(l.Selectors) == 0 {
			return nil, fmt.Errorf("layer %q: at least one selector is required", l.ID)
		}
	}
	return layers, nil
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names
// fall back to info.
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
