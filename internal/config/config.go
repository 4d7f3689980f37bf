// Package config provides configuration management for the trading bot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/nifty_oi_bot/internal/market"
)

// Defaults applied when optional settings are unset.
const (
	defaultLotSize         = 75 // NIFTY option lot size
	defaultCycleInterval   = time.Minute
	defaultMonitorInterval = time.Second
	defaultMarketOpen      = "09:15"
	defaultMarketClose     = "15:30"
	defaultAnalysisTime    = "09:20"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Broker      BrokerConfig      `yaml:"broker"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Storage     StorageConfig     `yaml:"storage"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // paper | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BrokerConfig defines market-data API settings.
type BrokerConfig struct {
	Provider    string `yaml:"provider"`
	APIEndpoint string `yaml:"api_endpoint"`
	AccessToken string `yaml:"access_token"`
	AccountID   string `yaml:"account_id"`
}

// ScheduleConfig defines the trading session and polling cadence.
type ScheduleConfig struct {
	Timezone        string `yaml:"timezone"`         // e.g. "Asia/Kolkata"
	MarketOpen      string `yaml:"market_open"`      // "HH:MM"
	MarketClose     string `yaml:"market_close"`     // "HH:MM"
	AnalysisTime    string `yaml:"analysis_time"`    // "HH:MM", OI analysis trigger
	CycleInterval   string `yaml:"cycle_interval"`   // orchestrator cadence
	MonitorInterval string `yaml:"monitor_interval"` // breakout poll cadence
}

// StrategyConfig defines trading strategy parameters. The breakout threshold
// and the stop/target band are fixed invariants of the strategy, not config.
type StrategyConfig struct {
	LotSize int `yaml:"lot_size"`
}

// StorageConfig defines ledger and report output locations.
type StorageConfig struct {
	LedgerPath string `yaml:"ledger_path"`
	ReportDir  string `yaml:"report_dir"`
}

// DashboardConfig defines the trade-history dashboard server.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = market.DefaultTimezone
	}
	if c.Schedule.MarketOpen == "" {
		c.Schedule.MarketOpen = defaultMarketOpen
	}
	if c.Schedule.MarketClose == "" {
		c.Schedule.MarketClose = defaultMarketClose
	}
	if c.Schedule.AnalysisTime == "" {
		c.Schedule.AnalysisTime = defaultAnalysisTime
	}
	if c.Strategy.LotSize == 0 {
		c.Strategy.LotSize = defaultLotSize
	}
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.Environment.Mode != "paper" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'paper' or 'live'")
	}

	if !c.IsPaperTrading() {
		if c.Broker.AccessToken == "" {
			return fmt.Errorf("broker.access_token is required in live mode")
		}
		if c.Broker.AccountID == "" {
			return fmt.Errorf("broker.account_id is required in live mode")
		}
	}

	if c.Strategy.LotSize <= 0 {
		return fmt.Errorf("strategy.lot_size must be > 0")
	}

	if c.Storage.LedgerPath == "" {
		return fmt.Errorf("storage.ledger_path is required")
	}
	if c.Storage.ReportDir == "" {
		return fmt.Errorf("storage.report_dir is required")
	}

	open, err := parseClock(c.Schedule.MarketOpen)
	if err != nil {
		return fmt.Errorf("schedule.market_open invalid: %w", err)
	}
	analysis, err := parseClock(c.Schedule.AnalysisTime)
	if err != nil {
		return fmt.Errorf("schedule.analysis_time invalid: %w", err)
	}
	clo, err := parseClock(c.Schedule.MarketClose)
	if err != nil {
		return fmt.Errorf("schedule.market_close invalid: %w", err)
	}
	if !(open < analysis && analysis < clo) {
		return fmt.Errorf("schedule times must satisfy market_open < analysis_time < market_close")
	}

	if c.Schedule.CycleInterval != "" {
		if _, err := time.ParseDuration(c.Schedule.CycleInterval); err != nil {
			return fmt.Errorf("schedule.cycle_interval invalid: %w", err)
		}
	}
	if c.Schedule.MonitorInterval != "" {
		if _, err := time.ParseDuration(c.Schedule.MonitorInterval); err != nil {
			return fmt.Errorf("schedule.monitor_interval invalid: %w", err)
		}
	}

	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port must be in (0,65535]")
	}

	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsPaperTrading returns true if the bot is configured for paper trading.
func (c *Config) IsPaperTrading() bool {
	return c.Environment.Mode == "paper"
}

// CycleInterval returns the orchestrator cadence.
func (c *Config) CycleInterval() time.Duration {
	d, err := time.ParseDuration(c.Schedule.CycleInterval)
	if err != nil || d <= 0 {
		return defaultCycleInterval
	}
	return d
}

// MonitorInterval returns the breakout poll cadence.
func (c *Config) MonitorInterval() time.Duration {
	d, err := time.ParseDuration(c.Schedule.MonitorInterval)
	if err != nil || d <= 0 {
		return defaultMonitorInterval
	}
	return d
}

// SessionBounds returns the session open and close instants on day's date
// in day's location.
func (c *Config) SessionBounds(day time.Time) (open, close time.Time) {
	return atClock(day, c.Schedule.MarketOpen), atClock(day, c.Schedule.MarketClose)
}

// AnalysisStart returns the OI analysis trigger instant on day's date.
func (c *Config) AnalysisStart(day time.Time) time.Time {
	return atClock(day, c.Schedule.AnalysisTime)
}

func atClock(day time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}
