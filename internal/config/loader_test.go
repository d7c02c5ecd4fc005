package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "test-config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestConfigLoading(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		path := writeTempConfig(t, "log_level: info\n")
		os.Setenv("MIRADOR_ALERT_CONFIG", path)
		defer os.Unsetenv("MIRADOR_ALERT_CONFIG")

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "info", config.LogLevel)
		assert.Equal(t, 10000, config.Store.Capacity)
		assert.Equal(t, 5*time.Minute, config.Store.DedupWindow)
		assert.True(t, config.Noise.Enabled)
		assert.Equal(t, time.Hour, config.Noise.Horizon)
		assert.InDelta(t, 0.1, config.Noise.FrequencyThreshold, 1e-9)
		assert.Equal(t, 5, config.Noise.MinOccurrences)
		assert.Equal(t, 15*time.Minute, config.Correlate.DefaultWindow)
		assert.Equal(t, time.Minute, config.Correlate.MinWindow)
		assert.Equal(t, 24*time.Hour, config.Correlate.MaxWindow)
		assert.Equal(t, time.Minute, config.Correlate.SweepInterval)
		assert.Equal(t, time.Hour, config.Prediction.DefaultHorizon)
		assert.False(t, config.Cache.Enabled)
		assert.False(t, config.Tracing.Enabled)
		assert.Equal(t, ":9094", config.Metrics.Listen)
		assert.False(t, config.Demo.Enabled)
	})

	t.Run("load from file", func(t *testing.T) {
		path := writeTempConfig(t, `
log_level: debug

store:
  capacity: 500
  dedup_window: 2m

noise:
  frequency_threshold: 0.25
  min_occurrences: 3

correlate:
  default_window: 10m
  sweep_interval: 30s

dependencies:
  api: [database, cache]
  web: [api]

cache:
  enabled: true
  nodes:
    - "valkey-0:6379"
  ttl: 90s
`)
		os.Setenv("MIRADOR_ALERT_CONFIG", path)
		defer os.Unsetenv("MIRADOR_ALERT_CONFIG")

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, 500, config.Store.Capacity)
		assert.Equal(t, 2*time.Minute, config.Store.DedupWindow)
		assert.InDelta(t, 0.25, config.Noise.FrequencyThreshold, 1e-9)
		assert.Equal(t, 3, config.Noise.MinOccurrences)
		assert.Equal(t, 10*time.Minute, config.Correlate.DefaultWindow)
		assert.Equal(t, 30*time.Second, config.Correlate.SweepInterval)
		assert.Equal(t, []string{"database", "cache"}, config.Dependencies["api"])
		assert.Equal(t, []string{"api"}, config.Dependencies["web"])
		assert.True(t, config.Cache.Enabled)
		assert.Contains(t, config.Cache.Nodes, "valkey-0:6379")
		assert.Equal(t, 90*time.Second, config.Cache.TTL)
	})

	t.Run("env var precedence", func(t *testing.T) {
		path := writeTempConfig(t, "store:\n  capacity: 500\n")
		os.Setenv("MIRADOR_ALERT_CONFIG", path)
		os.Setenv("MIRADOR_ALERT_STORE_CAPACITY", "777")
		os.Setenv("LOG_LEVEL", "warn")
		defer func() {
			os.Unsetenv("MIRADOR_ALERT_CONFIG")
			os.Unsetenv("MIRADOR_ALERT_STORE_CAPACITY")
			os.Unsetenv("LOG_LEVEL")
		}()

		config, err := Load()
		require.NoError(t, err)

		// Environment variables should override file/defaults
		assert.Equal(t, 777, config.Store.Capacity)
		assert.Equal(t, "warn", config.LogLevel)
	})

	t.Run("valkey nodes env enables cache", func(t *testing.T) {
		path := writeTempConfig(t, "log_level: info\n")
		os.Setenv("MIRADOR_ALERT_CONFIG", path)
		os.Setenv("VALKEY_NODES", "valkey-0:6379, valkey-1:6379")
		defer func() {
			os.Unsetenv("MIRADOR_ALERT_CONFIG")
			os.Unsetenv("VALKEY_NODES")
		}()

		config, err := Load()
		require.NoError(t, err)

		assert.True(t, config.Cache.Enabled)
		assert.Equal(t, []string{"valkey-0:6379", "valkey-1:6379"}, config.Cache.Nodes)
	})
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "capacity too small",
			yaml:    "store:\n  capacity: 0\n",
			wantErr: "store capacity",
		},
		{
			name:    "capacity too large",
			yaml:    "store:\n  capacity: 2000000\n",
			wantErr: "store capacity",
		},
		{
			name:    "frequency threshold above one",
			yaml:    "noise:\n  frequency_threshold: 1.5\n",
			wantErr: "frequency threshold",
		},
		{
			name:    "window ordering",
			yaml:    "correlate:\n  min_window: 30m\n  default_window: 15m\n",
			wantErr: "min <= default <= max",
		},
		{
			name:    "bad log level",
			yaml:    "log_level: loud\n",
			wantErr: "invalid log level",
		},
		{
			name:    "cache enabled without nodes",
			yaml:    "cache:\n  enabled: true\n",
			wantErr: "Valkey cache node",
		},
		{
			name:    "bad metrics listen",
			yaml:    "metrics:\n  listen: no-port\n",
			wantErr: "metrics listen",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.yaml)
			os.Setenv("MIRADOR_ALERT_CONFIG", path)
			defer os.Unsetenv("MIRADOR_ALERT_CONFIG")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
