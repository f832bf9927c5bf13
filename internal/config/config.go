// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port         string        `env:"TANDEM_PORT" envDefault:"8080"`
	DBPath       string        `env:"TANDEM_DB_PATH" envDefault:"tandem.db"`
	LogLevel     string        `env:"TANDEM_LOG_LEVEL" envDefault:"info"`
	SessionTTL   time.Duration `env:"TANDEM_SESSION_TTL" envDefault:"720h"`
	SyncInterval time.Duration `env:"TANDEM_SYNC_INTERVAL" envDefault:"5s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
