package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/lexio.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// RedisURL enables the leaderboard read cache. Empty disables caching;
	// the service is fully functional without it.
	RedisURL string `env:"REDIS_URL"`

	// FinalizeHourUTC is the hour of day (UTC) at which the scheduler
	// finalizes the previous day's standings.
	FinalizeHourUTC int `env:"FINALIZE_HOUR_UTC" envDefault:"0"`

	// Seed operator account, created on startup if no operators exist.
	OperatorEmail    string `env:"OPERATOR_EMAIL" envDefault:"ops@lexio.local"`
	OperatorPassword string `env:"OPERATOR_PASSWORD" envDefault:"change-me"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.FinalizeHourUTC < 0 || cfg.FinalizeHourUTC > 23 {
		return nil, fmt.Errorf("FINALIZE_HOUR_UTC must be 0-23, got %d", cfg.FinalizeHourUTC)
	}
	return &cfg, nil
}
