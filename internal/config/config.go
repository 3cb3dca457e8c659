// Package config loads process settings for the sieve commands from the
// environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsingConfig is returned when the environment holds a malformed value.
var ErrParsingConfig = errors.New("config: failed to parse environment")

// Config holds the settings shared by the sieve commands. Command-line flags
// override these values.
type Config struct {
	Dir         string `env:"SIEVE_DIR" envDefault:"schemas"`
	Port        int    `env:"SIEVE_PORT" envDefault:"8080"`
	RedisAddr   string `env:"SIEVE_REDIS_ADDR"`
	RedisPrefix string `env:"SIEVE_REDIS_PREFIX" envDefault:"sieve:schema:"`
	LogLevel    string `env:"SIEVE_LOG_LEVEL" envDefault:"info"`
	Metrics     bool   `env:"SIEVE_METRICS"`
	Watch       bool   `env:"SIEVE_WATCH"`
	// Redact lists field name patterns whose values are masked in output.
	Redact []string `env:"SIEVE_REDACT" envSeparator:","`
}

// Load reads .env files and then the environment. Without paths it reads
// ./.env when present; named files must exist. Variables already set in the
// environment win over file values.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(paths...); err != nil {
		if len(paths) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	return &cfg, nil
}
