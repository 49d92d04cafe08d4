package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Venue     VenueConfig     `mapstructure:"venue"`
	Db        DbConfig        `mapstructure:"db"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Api       ApiConfig       `mapstructure:"api"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Venue.Validate(); err != nil {
		return err
	}
	if err := cfg.Db.Validate(); err != nil {
		return err
	}
	if err := cfg.Queue.Validate(); err != nil {
		return err
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return err
	}
	if err := cfg.Api.Validate(); err != nil {
		return err
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}
	// venue calls must finish inside a cycle, otherwise a slow upstream
	// makes cycles overlap and starves the worker pool
	if cfg.Venue.Timeout >= cfg.Scheduler.SyncInterval {
		return fmt.Errorf(
			"venue timeout (%s) must be shorter than the sync interval (%s)",
			cfg.Venue.Timeout, cfg.Scheduler.SyncInterval,
		)
	}
	return nil
}

// New returns a fully parsed Config from the given file path. Every key can
// be overridden from the environment, e.g. VENUE.BASE-URL.
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
