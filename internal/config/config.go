// Package config loads esper's runtime configuration from environment
// variables, the way the teacher's ws variant loads its own (via
// caarlos0/env), generalized to the CLI flags spec.md §6 defines on top.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds the two HS256 secrets that gate publish/subscribe/stats.
// Bind address, port and worker count are CLI flags, not environment
// variables (spec.md §6), and so live on Flags instead.
type Config struct {
	PublisherSecret  string `env:"ESPER_PUBLISHER_SECRET" envDefault:""`
	SubscriberSecret string `env:"ESPER_SUBSCRIBER_SECRET" envDefault:""`

	LogLevel  string `env:"ESPER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ESPER_LOG_FORMAT" envDefault:"json"`
}

// Load parses Config from the process environment. There is no .env file
// support and no validation beyond what env.Parse itself performs: both
// secrets are legitimately empty (unauthenticated mode).
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LogConfig records which secrets are configured without ever logging
// their values.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Bool("publisher_secret_set", c.PublisherSecret != "").
		Bool("subscriber_secret_set", c.SubscriberSecret != "").
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("configuration loaded")
}

// ZerologLevel parses LogLevel, falling back to Info for an unrecognized
// value rather than failing startup over a logging misconfiguration.
func (c *Config) ZerologLevel() zerolog.Level {
	if c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Flags holds the CLI-provided listener configuration (spec.md §6).
type Flags struct {
	Bind    string
	Port    int
	Threads int
}

// DefaultFlags returns the spec-mandated defaults: bind 127.0.0.1, port
// 3000, threads 2.
func DefaultFlags() Flags {
	return Flags{
		Bind:    "127.0.0.1",
		Port:    3000,
		Threads: 2,
	}
}
