package config

import (
	"errors"
	"fmt"
)

type ApiConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	WebhookSecret string `mapstructure:"webhook-secret"`
}

func (cfg *ApiConfig) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.New("api port must be a valid port number")
	}

	if cfg.WebhookSecret == "" {
		return errors.New("api webhook-secret cannot be empty")
	}

	return nil
}

func (cfg *ApiConfig) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
