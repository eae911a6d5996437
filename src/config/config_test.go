package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

const validYAML = `
name: "test-automator"
host: "127.0.0.1"
port: 8900
log_level: "DEBUG"
storage:
  db_type: "sqlite"
  db_path: "test.db"
network:
  enabled: true
  timeout: 10
  retries: 3
  concurrent_requests: 2
feed:
  ws_url: "ws://127.0.0.1:9001/stream"
  reconnect_delay_seconds: 3
  period_retention_periods: 50
  streams:
    - symbol: "BTCUSDT"
      resolution_seconds: 60
history:
  base_url: "http://127.0.0.1:9002"
  bars_limit: 20
  timeout_seconds: 5
order:
  base_url: "http://127.0.0.1:9003"
  timeout_seconds: 5
session:
  timeout_seconds: 60
  sweep_interval_seconds: 30
trigger:
  sweep_interval_seconds: 1
  baseline_bars: 20
strategies:
  - id: "s1"
    symbol: "BTCUSDT"
    direction: "up"
    interval_seconds: 60
    window_start_seconds: 30
    window_end_seconds: 55
    min_spread_mode: "AUTO"
    amount: 10
    enabled: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)
	return cfg
}

// -----------------------------------------------------------------------------

func TestNewConfig_Valid(t *testing.T) {
	cfg := validConfig(t)

	assert.Equal(t, "test-automator", cfg.Name)
	assert.Equal(t, 8900, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Storage.DBType)
	require.Len(t, cfg.Feed.Streams, 1)
	assert.Equal(t, 60, cfg.Feed.Streams[0].ResolutionSeconds)
	require.Len(t, cfg.Strategies, 1)
	assert.Equal(t, models.SpreadModeAuto, cfg.Strategies[0].MinSpreadMode)
	assert.EqualValues(t, 55, cfg.Strategies[0].WindowEndSeconds)
}

func TestNewConfig_MissingFile(t *testing.T) {
	_, err := NewConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestNewConfig_BadYAML(t *testing.T) {
	_, err := NewConfig(writeConfig(t, "{not yaml"))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestValidate_StrategyRules(t *testing.T) {
	base := func() models.MStrategyConfig {
		return models.MStrategyConfig{
			ID:                 "s1",
			Symbol:             "BTCUSDT",
			Direction:          models.DirectionUp,
			IntervalSeconds:    60,
			WindowStartSeconds: 30,
			WindowEndSeconds:   55,
			MinSpreadMode:      models.SpreadModeNone,
			Amount:             10,
		}
	}

	cases := []struct {
		name   string
		mutate func(*models.MStrategyConfig)
		errMsg string
	}{
		{"bad direction", func(s *models.MStrategyConfig) { s.Direction = "sideways" }, "invalid direction"},
		{"zero interval", func(s *models.MStrategyConfig) { s.IntervalSeconds = 0 }, "positive interval"},
		{"window inverted", func(s *models.MStrategyConfig) { s.WindowEndSeconds = 10 }, "window end"},
		{"window outside period", func(s *models.MStrategyConfig) { s.WindowEndSeconds = 60 }, "inside the period"},
		{"bad spread mode", func(s *models.MStrategyConfig) { s.MinSpreadMode = "MAYBE" }, "min spread mode"},
		{"fixed without value", func(s *models.MStrategyConfig) { s.MinSpreadMode = models.SpreadModeFixed }, "min spread value"},
		{"min above max", func(s *models.MStrategyConfig) { s.MinPrice = 10; s.MaxPrice = 5 }, "min price exceeds"},
		{"zero amount", func(s *models.MStrategyConfig) { s.Amount = 0 }, "positive amount"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			s := base()
			tc.mutate(&s)
			cfg.Strategies = []models.MStrategyConfig{s}

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestValidate_NoStreams(t *testing.T) {
	cfg := validConfig(t)
	cfg.Feed.Streams = nil
	assert.Error(t, cfg.Validate())
}

func TestValidate_PostgresNeedsConnectionString(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.DBType = "postgres"
	cfg.Storage.DBConnectionString = ""
	assert.Error(t, cfg.Validate())
}

// -----------------------------------------------------------------------------

func TestSaveRoundTrip(t *testing.T) {
	cfg := validConfig(t)
	path := filepath.Join(t.TempDir(), "saved.yaml")

	require.NoError(t, cfg.Save(path))

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, reloaded.Name)
	assert.Equal(t, cfg.Strategies, reloaded.Strategies)
}
