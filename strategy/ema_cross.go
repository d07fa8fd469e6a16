package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/market"
)

type EMACrossConfig struct {
	FastPeriod int `yaml:"fast_period" json:"fast_period"`
	SlowPeriod int `yaml:"slow_period" json:"slow_period"`

	Quantity   float64 `yaml:"quantity" json:"quantity"`
	AllowShort bool    `yaml:"allow_short" json:"allow_short"`
	// RiskPct sizes entries so that hitting the stop loses this share of
	// the balance. Needs StopDistance.
	RiskPct float64 `yaml:"risk_pct" json:"risk_pct"`
	// StopDistance places a protective stop this far from the entry price.
	StopDistance float64 `yaml:"stop_distance" json:"stop_distance"`
}

func EMACrossConfigDefaults() EMACrossConfig {
	return EMACrossConfig{
		FastPeriod: 10,
		SlowPeriod: 30,
		Quantity:   1,
		AllowShort: true,
	}
}

// EMACross trades a fast/slow EMA crossover of the sampled trade price.
//   - enters only on a cross
//   - an opposite cross closes, then opens the other way (if shorts are allowed)
//   - optional fixed-distance stop, optionally sized by risk
type EMACross struct {
	cfg EMACrossConfig

	fast *EMA
	slow *EMA

	lastDiff     float64
	haveLastDiff bool

	stopID int
}

func NewEMACross(cfg EMACrossConfig) (*EMACross, error) {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		return nil, fmt.Errorf("ema-cross: periods must be positive (fast %d, slow %d)", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("ema-cross: fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if !(cfg.Quantity > 0) && !(cfg.RiskPct > 0) {
		return nil, fmt.Errorf("ema-cross: need a quantity or a risk percent")
	}
	if cfg.RiskPct > 0 && !(cfg.StopDistance > 0) {
		return nil, fmt.Errorf("ema-cross: risk sizing needs a stop distance")
	}
	return &EMACross{
		cfg:  cfg,
		fast: NewEMA(cfg.FastPeriod),
		slow: NewEMA(cfg.SlowPeriod),
	}, nil
}

func (s *EMACross) Name() string { return "ema-cross" }

func (s *EMACross) Reset() {
	s.fast.Reset()
	s.slow.Reset()
	s.lastDiff, s.haveLastDiff = 0, false
	s.stopID = 0
}

func (s *EMACross) Decide(_ context.Context, b *broker.Broker, acct *account.Account, tr market.Trade, at time.Time) error {
	s.fast.Update(tr.Price)
	s.slow.Update(tr.Price)
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value() - s.slow.Value()
	if !s.haveLastDiff {
		s.lastDiff, s.haveLastDiff = diff, true
		return nil
	}
	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	if acct.IsHalted || hasPendingMarket(b, acct) {
		return nil
	}
	switch {
	case bullCross:
		return s.onSignal(b, acct, tr.Price, market.Buy, at)
	case bearCross:
		return s.onSignal(b, acct, tr.Price, market.Sell, at)
	}
	return nil
}

func (s *EMACross) onSignal(b *broker.Broker, acct *account.Account, price float64, side market.Side, at time.Time) error {
	q := acct.Position.QuantitySigned
	if q*side.Sign() > 0 {
		// already positioned with the cross
		return nil
	}

	if s.stopID != 0 {
		if err := b.KillOrder(s.stopID, at); err != nil && !errors.Is(err, broker.ErrOrderNotFound) {
			return fmt.Errorf("ema-cross: kill stop: %w", err)
		}
		s.stopID = 0
	}
	if q != 0 {
		if _, err := b.AddOrder(marketOrder(acct, -q, at)); err != nil {
			return fmt.Errorf("ema-cross: exit: %w", err)
		}
	}
	if side == market.Sell && !s.cfg.AllowShort {
		return nil
	}

	qty := s.size(acct.Balance)
	if qty <= 0 {
		return nil
	}
	if _, err := b.AddOrder(marketOrder(acct, side.Sign()*qty, at)); err != nil {
		return fmt.Errorf("ema-cross: entry: %w", err)
	}

	if s.cfg.StopDistance > 0 {
		id, err := b.AddOrder(broker.StopOrder{
			Base: broker.Base{
				Account:  acct,
				Side:     side.Opposite(),
				Amount:   qty,
				TimeInit: at,
			},
			Price: price - side.Sign()*s.cfg.StopDistance,
		})
		if err != nil {
			return fmt.Errorf("ema-cross: stop: %w", err)
		}
		s.stopID = id
	}
	return nil
}

// size is the entry quantity: fixed, or the units that lose RiskPct of
// balance over StopDistance.
func (s *EMACross) size(balance float64) float64 {
	if s.cfg.RiskPct > 0 {
		return math.Floor(balance * s.cfg.RiskPct / s.cfg.StopDistance)
	}
	return s.cfg.Quantity
}
