// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package config loads authd configuration from defaults, an optional YAML
// file, the DATABASE_URL environment variable, and command-line flags, in
// increasing order of precedence.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/authd/authd/internal/auth"
)

// DatabaseURLEnv is the environment variable consulted for database.url.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the complete authd configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Sessions SessionsConfig `koanf:"sessions"`
	Hasher   HasherConfig   `koanf:"hasher"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
}

// SessionsConfig configures session lifetime and the expiry sweeper.
type SessionsConfig struct {
	TTL time.Duration `koanf:"ttl"`
	// SweepInterval of 0 disables the background sweeper.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// HasherConfig configures password hashing.
type HasherConfig struct {
	// MaxConcurrent of 0 selects GOMAXPROCS.
	MaxConcurrent int `koanf:"max_concurrent"`
}

// MetricsConfig configures the observability HTTP server.
type MetricsConfig struct {
	// Addr of "" disables the server.
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
}

// Default values.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultConnectRetries = 5
	DefaultSweepInterval  = time.Hour
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultLogFormat      = "json"
)

func defaults() map[string]any {
	return map[string]any{
		"database.url":             "",
		"database.connect_timeout": DefaultConnectTimeout,
		"database.connect_retries": uint64(DefaultConnectRetries),
		"database.auto_migrate":    false,
		"sessions.ttl":             auth.DefaultSessionTTL,
		"sessions.sweep_interval":  DefaultSweepInterval,
		"hasher.max_concurrent":    0,
		"metrics.addr":             DefaultMetricsAddr,
		"log.format":               DefaultLogFormat,
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"database-url":    "database.url",
	"connect-timeout": "database.connect_timeout",
	"connect-retries": "database.connect_retries",
	"auto-migrate":    "database.auto_migrate",
	"session-ttl":     "sessions.ttl",
	"sweep-interval":  "sessions.sweep_interval",
	"max-concurrent":  "hasher.max_concurrent",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
}

// BindFlags registers the flags that override configuration keys. Only
// flags the user sets take effect; their defaults are informational.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "PostgreSQL connection URL (default: $"+DatabaseURLEnv+")")
	fs.Duration("connect-timeout", DefaultConnectTimeout, "timeout for each database connection attempt")
	fs.Uint64("connect-retries", DefaultConnectRetries, "database connection retries at startup")
	fs.Bool("auto-migrate", false, "apply pending migrations before serving")
	fs.Duration("session-ttl", auth.DefaultSessionTTL, "lifetime of issued sessions")
	fs.Duration("sweep-interval", DefaultSweepInterval, "expired session sweep interval (0 = disabled)")
	fs.Int("max-concurrent", 0, "concurrent password hash computations (0 = GOMAXPROCS)")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
}

// Load builds a Config. path may be empty to skip the file layer, fs may be
// nil to skip the flag layer, and getenv may be nil to skip the environment.
func Load(path string, fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrapf(err, "read config file")
		}
	}

	if getenv != nil {
		if url := getenv(DatabaseURLEnv); url != "" {
			if err := k.Set("database.url", url); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", "database.url").Wrap(err)
			}
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "read flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	err := validation.Errors{
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.URL, validation.Required),
			validation.Field(&c.Database.ConnectTimeout, validation.Required, validation.Min(time.Millisecond)),
		),
		"sessions": validation.ValidateStruct(&c.Sessions,
			validation.Field(&c.Sessions.TTL, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.Sessions.SweepInterval, validation.Min(time.Second)),
		),
		"hasher": validation.ValidateStruct(&c.Hasher,
			validation.Field(&c.Hasher.MaxConcurrent, validation.Min(0)),
		),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Format, validation.Required, validation.In("json", "text")),
		),
	}.Filter()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}
