// Package config is the YAML (or JSON) description of one simulation run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/market"
	"gopkg.in/yaml.v3"
)

// Config represents the complete simulation configuration
type Config struct {
	Run      RunConfig      `json:"run" yaml:"run"`
	Account  AccountConfig  `json:"account" yaml:"account"`
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
	Provider ProviderConfig `json:"provider" yaml:"provider"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Sim      SimConfig      `json:"sim" yaml:"sim"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

type RunConfig struct {
	// ID names the run in the journal; a ULID is generated when empty.
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // "console" or "json"
}

type AccountConfig struct {
	ID            string  `json:"id" yaml:"id"`
	Balance       float64 `json:"balance" yaml:"balance"`
	Matching      string  `json:"matching" yaml:"matching"` // "fifo" or "lifo"
	MarginPerUnit float64 `json:"margin_per_unit" yaml:"margin_per_unit"`
}

type CommissionConfig struct {
	Type   string  `json:"type" yaml:"type"` // "fixed", "per_unit" or "rate"
	Value  float64 `json:"value" yaml:"value"`
	Places int32   `json:"places,omitempty" yaml:"places,omitempty"` // rate only
}

type BrokerConfig struct {
	AgentDelay  Duration         `json:"agent_delay" yaml:"agent_delay"`
	BrokerDelay Duration         `json:"broker_delay" yaml:"broker_delay"`
	Luck        float64          `json:"luck" yaml:"luck"`
	Commission  CommissionConfig `json:"commission" yaml:"commission"`
	// Instrument fills in the price step and the margin per unit when
	// they are left at zero.
	Instrument           string  `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	PriceStep            float64 `json:"price_step" yaml:"price_step"`
	EMAPeriod            int     `json:"ema_period" yaml:"ema_period"`
	InstantBalanceUpdate bool    `json:"instant_balance_update" yaml:"instant_balance_update"`
	HaltOnNegative       bool    `json:"halt_on_negative_balance" yaml:"halt_on_negative_balance"`
	Quotes               string  `json:"quotes" yaml:"quotes"` // "aggressor" or "midpoint"
	Seed                 int64   `json:"seed" yaml:"seed"`
}

type SineConfig struct {
	Mean      float64   `json:"mean" yaml:"mean"`
	Amplitude float64   `json:"amplitude" yaml:"amplitude"`
	Period    Duration  `json:"period" yaml:"period"`
	SNRdb     float64   `json:"snr_db" yaml:"snr_db"`
	Start     time.Time `json:"start" yaml:"start"`
	MaxGap    Duration  `json:"max_gap" yaml:"max_gap"`
	Seed      int64     `json:"seed" yaml:"seed"`
}

type ProviderConfig struct {
	Type string `json:"type" yaml:"type"` // "sine", "csv", "bi5" or "bars"
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	From  time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	Until time.Time `json:"until,omitempty" yaml:"until,omitempty"`
	Limit int       `json:"limit,omitempty" yaml:"limit,omitempty"`

	// Hour and Point describe a Dukascopy tick file. A zero Hour is read
	// from the path, a zero Point falls back to the instrument price step.
	Hour  time.Time `json:"hour,omitempty" yaml:"hour,omitempty"`
	Point float64   `json:"point,omitempty" yaml:"point,omitempty"`

	// Spread is the relative zig-zag step used to expand bars.
	Spread float64    `json:"spread,omitempty" yaml:"spread,omitempty"`
	Sine   SineConfig `json:"sine" yaml:"sine"`
}

type StrategyConfig struct {
	Name       string  `json:"name" yaml:"name"` // "noop", "random" or "ema-cross"
	Quantity   float64 `json:"quantity" yaml:"quantity"`
	AllowShort bool    `json:"allow_short" yaml:"allow_short"`
	TrailDelta float64 `json:"trail_delta,omitempty" yaml:"trail_delta,omitempty"`
	Seed       int64   `json:"seed" yaml:"seed"`

	FastPeriod   int     `json:"fast_period,omitempty" yaml:"fast_period,omitempty"`
	SlowPeriod   int     `json:"slow_period,omitempty" yaml:"slow_period,omitempty"`
	RiskPct      float64 `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty"`
	StopDistance float64 `json:"stop_distance,omitempty" yaml:"stop_distance,omitempty"`
}

type SimConfig struct {
	DecisionInterval Duration  `json:"decision_interval" yaml:"decision_interval"`
	EpisodeStart     time.Time `json:"episode_start,omitempty" yaml:"episode_start,omitempty"`
	MaxTrades        int       `json:"max_trades,omitempty" yaml:"max_trades,omitempty"`
	CloseAtEnd       bool      `json:"close_at_end" yaml:"close_at_end"`
	FailFast         bool      `json:"fail_fast" yaml:"fail_fast"`
	DelayPerSecond   float64   `json:"delay_per_second,omitempty" yaml:"delay_per_second,omitempty"`
	TradesPerSecond  float64   `json:"trades_per_second,omitempty" yaml:"trades_per_second,omitempty"`
}

type JournalConfig struct {
	Type           string   `json:"type" yaml:"type"` // "none", "memory", "csv" or "sqlite"
	Dir            string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath         string   `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	EquityInterval Duration `json:"equity_interval" yaml:"equity_interval"`
}

// Load reads a configuration file. YAML is tried first, then JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes c as YAML, or as indented JSON for a .json path.
func (c *Config) Save(path string) error {
	data, err := c.Marshal(strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Marshal(asJSON bool) ([]byte, error) {
	if asJSON {
		return json.MarshalIndent(c, "", "  ")
	}
	return yaml.Marshal(c)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch strings.ToLower(c.Run.LogFormat) {
	case "", "console", "json":
	default:
		add("run.log_format must be 'console' or 'json'")
	}

	if !(c.Account.Balance > 0) {
		add("account.balance must be positive")
	}
	if _, err := account.ParseMatching(c.Account.Matching); err != nil {
		add("account.matching: %v", err)
	}
	if c.Account.MarginPerUnit < 0 {
		add("account.margin_per_unit must not be negative")
	}

	if c.Broker.Instrument != "" {
		if _, ok := market.Instruments[c.Broker.Instrument]; !ok {
			add("unknown instrument: %s", c.Broker.Instrument)
		}
	}
	switch c.Broker.Commission.Type {
	case "", "fixed", "per_unit", "rate":
	default:
		add("broker.commission.type must be 'fixed', 'per_unit' or 'rate'")
	}
	if c.Broker.Commission.Value < 0 {
		add("broker.commission.value must not be negative")
	}
	if opts, err := c.BrokerOptions(nil); err != nil {
		add("broker: %v", err)
	} else if _, err := broker.New(opts); err != nil {
		add("broker: %v", err)
	}

	switch c.Provider.Type {
	case "sine":
		if c.Provider.Until.IsZero() && c.Provider.Limit == 0 && c.Sim.MaxTrades == 0 {
			add("provider sine is endless: set provider.until, provider.limit or sim.max_trades")
		}
		if c.Provider.Sine.Period <= 0 {
			add("provider.sine.period must be positive")
		}
		if c.Provider.Sine.MaxGap <= 0 {
			add("provider.sine.max_gap must be positive")
		}
	case "csv", "bi5", "bars":
		if c.Provider.Path == "" {
			add("provider.path required for %s provider", c.Provider.Type)
		}
		if c.Provider.Type == "bars" && !(c.Provider.Spread > 0) {
			add("provider.spread must be positive for bars")
		}
	default:
		add("provider.type must be 'sine', 'csv', 'bi5' or 'bars'")
	}
	if c.Provider.Point < 0 {
		add("provider.point must not be negative")
	}
	if c.Provider.Limit < 0 {
		add("provider.limit must not be negative")
	}

	if _, err := c.NewStrategy(); err != nil {
		add("strategy: %v", err)
	}

	if c.Sim.DecisionInterval < 0 {
		add("sim.decision_interval must not be negative")
	}
	if c.Sim.MaxTrades < 0 {
		add("sim.max_trades must not be negative")
	}
	if !(c.Sim.DelayPerSecond >= 0 && c.Sim.DelayPerSecond < 1) {
		add("sim.delay_per_second must be in [0, 1)")
	}
	if c.Sim.TradesPerSecond < 0 {
		add("sim.trades_per_second must not be negative")
	}

	switch c.Journal.Type {
	case "", "none", "memory":
	case "csv":
		if c.Journal.Dir == "" {
			add("journal dir required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			add("journal db_path required for SQLite type")
		}
	default:
		add("journal.type must be 'none', 'memory', 'csv' or 'sqlite'")
	}
	if c.Journal.EquityInterval < 0 {
		add("journal.equity_interval must not be negative")
	}

	return errors.Join(errs...)
}

// Default returns a configuration with sensible defaults: a random
// strategy on one day of a synthetic sine market.
func Default() *Config {
	sine := DefaultSineConfig()
	return &Config{
		Run: RunConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
		Account: AccountConfig{
			ID:       "SIM-001",
			Balance:  10_000,
			Matching: "fifo",
		},
		Broker: BrokerConfig{
			AgentDelay:     Duration(2 * time.Second),
			BrokerDelay:    Duration(500 * time.Millisecond),
			Luck:           0.1,
			Commission:     CommissionConfig{Type: "fixed", Value: 0},
			PriceStep:      1,
			EMAPeriod:      20,
			HaltOnNegative: true,
			Quotes:         "aggressor",
			Seed:           1,
		},
		Provider: ProviderConfig{
			Type:  "sine",
			Until: sine.Start.Add(24 * time.Hour),
			Sine:  sine,
		},
		Strategy: StrategyConfig{
			Name:       "random",
			Quantity:   1,
			AllowShort: true,
			Seed:       1,
		},
		Sim: SimConfig{
			DecisionInterval: Duration(time.Minute),
			CloseAtEnd:       true,
		},
		Journal: JournalConfig{
			Type:           "none",
			EquityInterval: Duration(time.Minute),
		},
	}
}

func DefaultSineConfig() SineConfig {
	return SineConfig{
		Mean:      100,
		Amplitude: 90,
		Period:    Duration(time.Hour),
		SNRdb:     15,
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxGap:    Duration(5 * time.Second),
		Seed:      1,
	}
}
