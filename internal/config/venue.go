package config

import (
	"errors"
	"time"
)

type VenueConfig struct {
	BaseURL               string        `mapstructure:"base-url"`
	APIKey                string        `mapstructure:"api-key"`
	Timeout               time.Duration `mapstructure:"timeout"`
	MaxRetryTimes         uint          `mapstructure:"max-retry-times"`
	RetryInterval         time.Duration `mapstructure:"retry-interval"`
	MaxConcurrentRequests int           `mapstructure:"max-concurrent-requests"`
	PageSize              int           `mapstructure:"page-size"`
}

func (cfg *VenueConfig) Validate() error {
	if cfg.BaseURL == "" {
		return errors.New("venue base-url cannot be empty")
	}

	if cfg.APIKey == "" {
		return errors.New("venue api-key cannot be empty")
	}

	if cfg.Timeout <= 0 {
		return errors.New("venue timeout must be positive")
	}

	if cfg.MaxRetryTimes == 0 {
		return errors.New("venue max-retry-times must be positive")
	}

	if cfg.RetryInterval <= 0 {
		return errors.New("venue retry-interval must be positive")
	}

	if cfg.MaxConcurrentRequests <= 0 {
		return errors.New("venue max-concurrent-requests must be positive")
	}

	if cfg.PageSize <= 0 {
		return errors.New("venue page-size must be positive")
	}

	return nil
}
