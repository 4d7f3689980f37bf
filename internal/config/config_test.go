package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
environment:
  mode: paper
  log_level: info

broker:
  provider: fyers
  api_endpoint: https://api-t1.fyers.in
  access_token: ${TEST_BOT_TOKEN}

schedule:
  timezone: Asia/Kolkata
  market_open: "09:15"
  market_close: "15:30"
  analysis_time: "09:20"
  cycle_interval: 1m
  monitor_interval: 1s

strategy:
  lot_size: 75

storage:
  ledger_path: data/trade_history.csv
  report_dir: data/reports

dashboard:
  enabled: true
  port: 9847
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "appid:secrettoken")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.True(t, cfg.IsPaperTrading())
	assert.Equal(t, "appid:secrettoken", cfg.Broker.AccessToken)
	assert.Equal(t, 75, cfg.Strategy.LotSize)
	assert.Equal(t, time.Minute, cfg.CycleInterval())
	assert.Equal(t, time.Second, cfg.MonitorInterval())
	assert.Equal(t, 9847, cfg.Dashboard.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadUnknownFieldRejected(t *testing.T) {
	bad := sampleConfig + "\nextra_section:\n  foo: 1\n"
	_, err := Load(writeConfig(t, bad))
	assert.Error(t, err)
}

func TestValidateModeRequired(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Storage = StorageConfig{LedgerPath: "a.csv", ReportDir: "r"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment.mode")
}

func TestValidateLiveNeedsCredentials(t *testing.T) {
	cfg := &Config{Environment: EnvironmentConfig{Mode: "live"}}
	cfg.applyDefaults()
	cfg.Storage = StorageConfig{LedgerPath: "a.csv", ReportDir: "r"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token")
}

func TestValidateScheduleOrdering(t *testing.T) {
	cfg := &Config{Environment: EnvironmentConfig{Mode: "paper"}}
	cfg.applyDefaults()
	cfg.Storage = StorageConfig{LedgerPath: "a.csv", ReportDir: "r"}
	cfg.Schedule.AnalysisTime = "09:10" // before the open

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market_open < analysis_time")
}

func TestSessionBounds(t *testing.T) {
	cfg := &Config{Environment: EnvironmentConfig{Mode: "paper"}}
	cfg.applyDefaults()

	loc := time.FixedZone("IST", 5*3600+1800)
	day := time.Date(2025, 9, 23, 11, 0, 0, 0, loc)

	open, clo := cfg.SessionBounds(day)
	assert.Equal(t, time.Date(2025, 9, 23, 9, 15, 0, 0, loc), open)
	assert.Equal(t, time.Date(2025, 9, 23, 15, 30, 0, 0, loc), clo)
	assert.Equal(t, time.Date(2025, 9, 23, 9, 20, 0, 0, loc), cfg.AnalysisStart(day))
}

func TestIntervalDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, time.Minute, cfg.CycleInterval())
	assert.Equal(t, time.Second, cfg.MonitorInterval())
}
