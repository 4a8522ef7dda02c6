// Package config resolves process configuration from the environment,
// optionally seeded from a .env file. Command-line flags override it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the CLI defaults.
type Config struct {
	// DBPath is the ledger database file.
	DBPath string `env:"CUSTODY_DB" envDefault:"custody.db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"CUSTODY_LOG_LEVEL" envDefault:"info"`

	// Actor is the resolved identity recorded as transaction creator.
	Actor string `env:"CUSTODY_ACTOR" envDefault:"anonymous"`

	// Format is the output format, json or text.
	Format string `env:"CUSTODY_FORMAT" envDefault:"text"`

	// MetricsFile, if set, receives a metrics dump after each command.
	MetricsFile string `env:"CUSTODY_METRICS_FILE"`
}

// Load reads the given .env files (default ".env"), then parses the
// environment. Missing .env files are ignored; variables already set in the
// environment win over .env values.
func Load(dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
