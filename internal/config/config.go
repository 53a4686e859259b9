// Package config loads the watch service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Sternrassler/reqstate/pkg/cache"
)

// Prefix is prepended to every environment variable name.
const Prefix = "REQSTATE_"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds the watch service configuration.
type Config struct {
	// URL is the resource to watch.
	URL string `env:"URL"`

	// PollInterval refreshes the resource after each settled fetch; 0 disables polling.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`

	CachePolicy  cache.Policy `env:"CACHE_POLICY" envDefault:"cache-and-network"`
	CacheBackend string       `env:"CACHE_BACKEND" envDefault:"memory"`
	RedisAddr    string       `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SQLitePath   string       `env:"SQLITE_PATH" envDefault:"reqstate.db"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	UserAgent  string `env:"USER_AGENT" envDefault:"reqstate-watch/1.0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment. Keys carry the prefix.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New(Prefix + "URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%sURL must be an absolute URL, got %q", Prefix, c.URL)
	}

	if c.PollInterval < 0 {
		return fmt.Errorf("%sPOLL_INTERVAL must not be negative, got %s", Prefix, c.PollInterval)
	}

	switch c.CacheBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New(Prefix + "REDIS_ADDR is required for the redis backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New(Prefix + "SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown %sCACHE_BACKEND %q (want memory, redis or sqlite)", Prefix, c.CacheBackend)
	}

	if c.ListenAddr == "" {
		return errors.New(Prefix + "LISTEN_ADDR is required")
	}
	return nil
}
