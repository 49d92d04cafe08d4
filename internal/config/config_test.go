package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Venue: VenueConfig{
			BaseURL:               "https://venue.example.com",
			APIKey:                "test-key",
			Timeout:               10 * time.Second,
			MaxRetryTimes:         3,
			RetryInterval:         500 * time.Millisecond,
			MaxConcurrentRequests: 8,
			PageSize:              200,
		},
		Db: DbConfig{
			Username: "test",
			Password: "test",
			Address:  "mongodb://localhost:27017",
			DbName:   "test",
		},
		Queue: QueueConfig{
			Url:      "localhost:5672",
			User:     "test",
			Password: "test",
			Exchange: "standings",
		},
		Scheduler: SchedulerConfig{
			SyncInterval:       30 * time.Second,
			LifecycleInterval:  time.Minute,
			WorkerPoolSize:     4,
			FailureThreshold:   3,
			MaxBackoffInterval: 10 * time.Minute,
		},
		Api: ApiConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			WebhookSecret: "secret",
		},
		Metrics: MetricsConfig{
			Host: "0.0.0.0",
			Port: 2112,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfigValidate_VenueTimeoutAboveSyncInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Venue.Timeout = cfg.Scheduler.SyncInterval

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shorter than the sync interval")
}

func TestConfigValidate_MissingWebhookSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Api.WebhookSecret = ""

	require.Error(t, cfg.Validate())
}

func TestSchedulerConfigValidate(t *testing.T) {
	cfg := validConfig().Scheduler

	cfg.MaxBackoffInterval = cfg.SyncInterval - time.Second
	require.Error(t, cfg.Validate())

	cfg.MaxBackoffInterval = cfg.SyncInterval
	require.NoError(t, cfg.Validate())
}

func TestVenueConfigValidate(t *testing.T) {
	cfg := validConfig().Venue

	cfg.MaxConcurrentRequests = 0
	require.Error(t, cfg.Validate())
}
