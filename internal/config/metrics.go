package config

import "errors"

type MetricsConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (cfg *MetricsConfig) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.New("metrics port must be a valid port number")
	}

	return nil
}

func (cfg *MetricsConfig) GetMetricsPort() int {
	return cfg.Port
}
