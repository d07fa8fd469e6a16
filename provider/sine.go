package provider

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// SineConfig shapes a synthetic sinusoidal market.
type SineConfig struct {
	Mean      float64
	Amplitude float64
	Period    time.Duration
	// SNRdb is the signal to noise ratio in decibels. Lower is noisier.
	SNRdb float64
	Start time.Time
	// MaxGap bounds the random pause between trades.
	MaxGap time.Duration
	Seed   int64
}

func DefaultSineConfig() SineConfig {
	return SineConfig{
		Mean:      100,
		Amplitude: 90,
		Period:    time.Hour,
		SNRdb:     15,
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxGap:    5 * time.Second,
	}
}

// Sine is an endless trade stream whose price follows a noisy sine. Wrap
// it in a Window to bound it.
type Sine struct {
	cfg   SineConfig
	noise float64
	freq  float64
	rng   *rand.Rand

	now  time.Time
	last float64
	seen bool
}

func NewSine(cfg SineConfig) (*Sine, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("sine: period %v must be positive", cfg.Period)
	}
	if cfg.MaxGap <= 0 {
		return nil, fmt.Errorf("sine: max gap %v must be positive", cfg.MaxGap)
	}
	return &Sine{
		cfg:   cfg,
		noise: math.Sqrt(cfg.Amplitude * cfg.Amplitude / math.Pow(10, cfg.SNRdb/10)),
		freq:  1 / cfg.Period.Seconds(),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		now:   cfg.Start,
	}, nil
}

func (s *Sine) Next() (market.Trade, bool, error) {
	s.now = s.now.Add(time.Duration(s.rng.Float64() * float64(s.cfg.MaxGap)))
	elapsed := s.now.Sub(s.cfg.Start).Seconds()

	price := s.cfg.Mean +
		s.cfg.Amplitude*math.Sin(2*math.Pi*s.freq*elapsed) +
		s.noise*s.rng.NormFloat64()

	side := market.Buy
	if s.seen && price < s.last {
		side = market.Sell
	}
	s.last, s.seen = price, true

	return market.Trade{
		Time:   s.now,
		Side:   side,
		Amount: float64(s.rng.Intn(10) + 1),
		Price:  price,
	}, true, nil
}

func (s *Sine) Close() error { return nil }
