package config

import (
	"errors"
	"time"
)

type SchedulerConfig struct {
	SyncInterval       time.Duration `mapstructure:"sync-interval"`
	LifecycleInterval  time.Duration `mapstructure:"lifecycle-interval"`
	WorkerPoolSize     int           `mapstructure:"worker-pool-size"`
	FailureThreshold   int           `mapstructure:"failure-threshold"`
	MaxBackoffInterval time.Duration `mapstructure:"max-backoff-interval"`
}

func (cfg *SchedulerConfig) Validate() error {
	if cfg.SyncInterval <= 0 {
		return errors.New("sync-interval must be positive")
	}

	if cfg.LifecycleInterval <= 0 {
		return errors.New("lifecycle-interval must be positive")
	}

	if cfg.WorkerPoolSize <= 0 {
		return errors.New("worker-pool-size must be positive")
	}

	if cfg.FailureThreshold <= 0 {
		return errors.New("failure-threshold must be positive")
	}

	if cfg.MaxBackoffInterval < cfg.SyncInterval {
		return errors.New("max-backoff-interval must not be below sync-interval")
	}

	return nil
}
