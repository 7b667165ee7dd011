package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())

	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "0.0.0.0:8080", cfg.ServerAddress)
	require.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	require.Equal(t, 50, cfg.DB.MaxOpenConns)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "dispatch-events", cfg.Azure.QueueName)
	require.Equal(t, "dispatches", cfg.Elastic.Index)
}

func TestFormatIndex(t *testing.T) {
	cfg := ElasticConfig{Prefix: "fulfillment"}

	require.Equal(t, "fulfillment-dispatches", FormatIndex(cfg, "dispatches"))
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("FULFILLMENT_ENVIRONMENT", "production")

	cfg, err := LoadConfig(t.TempDir())

	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
}
