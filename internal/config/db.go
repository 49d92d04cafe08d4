package config

import "errors"

type DbConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Address  string `mapstructure:"address"`
	DbName   string `mapstructure:"db-name"`
}

func (cfg *DbConfig) Validate() error {
	if cfg.Address == "" {
		return errors.New("db address cannot be empty")
	}

	if cfg.DbName == "" {
		return errors.New("db name cannot be empty")
	}

	return nil
}
