package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/pscheid92/livepoll/internal/domain"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Empty DatabaseURL runs on the in-memory store; empty RedisURL runs a
	// single-instance limiter and notifier.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	RateLimitWindow           time.Duration `env:"RATE_LIMIT_WINDOW" default:"60s"`
	RateLimitMaxPerOrigin     int           `env:"RATE_LIMIT_MAX_PER_ORIGIN" default:"1000"`
	RateLimitMaxPerVoter      int           `env:"RATE_LIMIT_MAX_PER_VOTER" default:"10"`
	RateLimitSweepProbability float64       `env:"RATE_LIMIT_SWEEP_PROBABILITY" default:"0.01"`

	APIRatePerSecond float64 `env:"API_RATE_PER_SECOND" default:"20"`
	APIRateBurst     int     `env:"API_RATE_BURST" default:"40"`

	LiveUpdateQuietPeriod time.Duration `env:"LIVE_UPDATE_QUIET_PERIOD" default:"2s"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// RateLimitPolicy returns the vote admission policy.
func (c *Config) RateLimitPolicy() domain.RateLimitPolicy {
	return domain.RateLimitPolicy{
		Window:       c.RateLimitWindow,
		MaxPerOrigin: c.RateLimitMaxPerOrigin,
		MaxPerVoter:  c.RateLimitMaxPerVoter,
	}
}

func validate(cfg *Config) error {
	if cfg.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.RateLimitMaxPerOrigin < 1 || cfg.RateLimitMaxPerVoter < 1 {
		return errors.New("RATE_LIMIT_MAX_PER_ORIGIN and RATE_LIMIT_MAX_PER_VOTER must be at least 1")
	}
	if cfg.RateLimitMaxPerVoter > cfg.RateLimitMaxPerOrigin {
		return fmt.Errorf("RATE_LIMIT_MAX_PER_VOTER (%d) must not exceed RATE_LIMIT_MAX_PER_ORIGIN (%d)",
			cfg.RateLimitMaxPerVoter, cfg.RateLimitMaxPerOrigin)
	}
	if cfg.RateLimitSweepProbability < 0 || cfg.RateLimitSweepProbability > 1 {
		return errors.New("RATE_LIMIT_SWEEP_PROBABILITY must be between 0 and 1")
	}
	if cfg.APIRatePerSecond <= 0 || cfg.APIRateBurst < 1 {
		return errors.New("API_RATE_PER_SECOND must be positive and API_RATE_BURST at least 1")
	}
	if cfg.LiveUpdateQuietPeriod <= 0 {
		return errors.New("LIVE_UPDATE_QUIET_PERIOD must be positive")
	}

	if u, err := url.Parse(cfg.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_URL must be an absolute URL, got %q", cfg.AppURL)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return nil
}
