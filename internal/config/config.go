// Package config loads server configuration from a YAML file with
// environment overrides (SAVAGE_ prefix, dots as underscores).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Deck     DeckConfig     `mapstructure:"deck"`
	Session  SessionConfig  `mapstructure:"session"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the optional Postgres store. An empty URL runs
// the server with in-memory session records and no roll journal.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DeckConfig sets deck defaults for new sessions.
type DeckConfig struct {
	UseJokers bool `mapstructure:"use_jokers"`
}

// SessionConfig controls session lifecycle.
type SessionConfig struct {
	IdleTTL      time.Duration `mapstructure:"idle_ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.request_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 8)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("deck.use_jokers", true)
	v.SetDefault("session.idle_ttl", 2*time.Hour)
	v.SetDefault("session.reap_interval", 5*time.Minute)

	v.SetEnvPrefix("SAVAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Server.RequestTimeout <= 0 {
		return nil, fmt.Errorf("server.request_timeout must be positive")
	}
	if cfg.Session.IdleTTL <= 0 {
		return nil, fmt.Errorf("session.idle_ttl must be positive")
	}

	return &cfg, nil
}
