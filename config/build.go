package config

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/provider"
	"github.com/rustyeddy/tradesim/sim"
	"github.com/rustyeddy/tradesim/strategy"
	"go.uber.org/zap"
)

func (c *Config) instrument() (market.Instrument, bool) {
	in, ok := market.Instruments[c.Broker.Instrument]
	return in, ok
}

// Commission builds the commission model.
func (c *Config) Commission() (broker.Commission, error) {
	cc := c.Broker.Commission
	switch cc.Type {
	case "", "fixed":
		return broker.FixedCommission(cc.Value), nil
	case "per_unit":
		return broker.PerUnitCommission(cc.Value), nil
	case "rate":
		places := cc.Places
		if places == 0 {
			places = 2
		}
		return broker.RateCommission(cc.Value, places), nil
	}
	return nil, fmt.Errorf("unknown commission type %q", cc.Type)
}

// BrokerOptions maps the broker section onto broker.Options.
func (c *Config) BrokerOptions(log *zap.Logger) (broker.Options, error) {
	comm, err := c.Commission()
	if err != nil {
		return broker.Options{}, err
	}
	quotes, err := broker.ParseQuoteModel(c.Broker.Quotes)
	if err != nil {
		return broker.Options{}, err
	}
	step := c.Broker.PriceStep
	if in, ok := c.instrument(); ok && step == 0 {
		step = in.PriceStep
	}
	return broker.Options{
		AgentDelay:            c.Broker.AgentDelay.D(),
		BrokerDelay:           c.Broker.BrokerDelay.D(),
		Luck:                  c.Broker.Luck,
		Commission:            comm,
		PriceStep:             step,
		EMAPeriod:             c.Broker.EMAPeriod,
		InstantBalanceUpdate:  c.Broker.InstantBalanceUpdate,
		HaltOnNegativeBalance: c.Broker.HaltOnNegative,
		Quotes:                quotes,
		Seed:                  c.Broker.Seed,
		Logger:                log,
	}, nil
}

// NewAccount builds the account with report as its Report (nil keeps the
// default Summary).
func (c *Config) NewAccount(report account.Report) (*account.Account, error) {
	m, err := account.ParseMatching(c.Account.Matching)
	if err != nil {
		return nil, err
	}
	margin := c.Account.MarginPerUnit
	if in, ok := c.instrument(); ok && margin == 0 {
		margin = in.MarginPerUnit
	}
	opts := []account.Option{
		account.WithID(c.Account.ID),
		account.WithMatching(m),
		account.WithMarginPerUnit(margin),
	}
	if report != nil {
		opts = append(opts, account.WithReport(report))
	}
	return account.New(c.Account.Balance, opts...), nil
}

// Source is an opened provider. Exactly one of Trades and Bars is set.
type Source struct {
	Name   string
	Trades provider.Provider
	Bars   provider.BarProvider
	Spread float64
}

func (s Source) Close() error {
	if s.Trades != nil {
		return s.Trades.Close()
	}
	if s.Bars != nil {
		return s.Bars.Close()
	}
	return nil
}

// OpenProvider opens the configured market data.
func (c *Config) OpenProvider() (Source, error) {
	p := c.Provider
	switch p.Type {
	case "sine":
		sc := p.Sine
		sine, err := provider.NewSine(provider.SineConfig{
			Mean:      sc.Mean,
			Amplitude: sc.Amplitude,
			Period:    sc.Period.D(),
			SNRdb:     sc.SNRdb,
			Start:     sc.Start,
			MaxGap:    sc.MaxGap.D(),
			Seed:      sc.Seed,
		})
		if err != nil {
			return Source{}, err
		}
		return Source{Name: "sine", Trades: &provider.Window{P: sine, Until: p.Until, Max: p.Limit}}, nil

	case "csv":
		feed, err := provider.NewCSVTrades(p.Path, p.From, p.Until)
		if err != nil {
			return Source{}, err
		}
		var trades provider.Provider = feed
		if p.Limit > 0 {
			trades = &provider.Window{P: feed, Max: p.Limit}
		}
		return Source{Name: p.Path, Trades: trades}, nil

	case "bi5":
		point := p.Point
		if in, ok := c.instrument(); ok && point == 0 {
			point = in.PriceStep
		}
		if point == 0 {
			point = 0.00001
		}
		ticks, err := provider.NewBI5Trades(p.Path, p.Hour, point)
		if err != nil {
			return Source{}, err
		}
		var trades provider.Provider = ticks
		if p.Limit > 0 || !p.Until.IsZero() {
			trades = &provider.Window{P: ticks, Until: p.Until, Max: p.Limit}
		}
		return Source{Name: p.Path, Trades: trades}, nil

	case "bars":
		bars, err := provider.NewCSVBars(p.Path)
		if err != nil {
			return Source{}, err
		}
		return Source{Name: p.Path, Bars: bars, Spread: p.Spread}, nil
	}
	return Source{}, fmt.Errorf("unknown provider type %q", p.Type)
}

func (c *Config) NewStrategy() (strategy.Strategy, error) {
	s := c.Strategy
	return strategy.ByName(s.Name, strategy.Params{
		Quantity:     s.Quantity,
		AllowShort:   s.AllowShort,
		TrailDelta:   s.TrailDelta,
		Seed:         s.Seed,
		FastPeriod:   s.FastPeriod,
		SlowPeriod:   s.SlowPeriod,
		RiskPct:      s.RiskPct,
		StopDistance: s.StopDistance,
	})
}

func (c *Config) SimConfig(log *zap.Logger) sim.Config {
	return sim.Config{
		DecisionInterval: c.Sim.DecisionInterval.D(),
		EpisodeStart:     c.Sim.EpisodeStart,
		MaxTrades:        c.Sim.MaxTrades,
		CloseAtEnd:       c.Sim.CloseAtEnd,
		FailFast:         c.Sim.FailFast,
		DelayPerSecond:   c.Sim.DelayPerSecond,
		TradesPerSecond:  c.Sim.TradesPerSecond,
		Logger:           log,
	}
}

// OpenJournal opens the configured journal. It returns nil for "none".
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch strings.ToLower(c.Journal.Type) {
	case "", "none":
		return nil, nil
	case "memory":
		return journal.NewMemory(), nil
	case "csv":
		j, err := journal.NewCSV(c.Journal.Dir)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(c.Journal.DBPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	return nil, fmt.Errorf("unknown journal type %q", c.Journal.Type)
}
