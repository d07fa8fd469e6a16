package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// BarTrades expands a bar into the zigzag of synthetic trades ProcessBar
// replays. The path order (high or low first) is drawn at random. spread
// is relative: the price step of the path is spread times the bar mid. A
// bar that cannot be expanded is an ErrInvalidTrade.
func (b *Broker) BarTrades(bar market.Bar, spread float64) ([]market.Trade, error) {
	b.mu.Lock()
	highFirst := b.rng.Float64() < 0.5
	b.mu.Unlock()

	step := spread * (bar.High + bar.Low) / 2
	trades, err := market.ZigZag(bar, step, highFirst)
	if err != nil {
		return nil, fmt.Errorf("%w: bar at %s: %w", ErrInvalidTrade, bar.Start.Format(time.RFC3339), err)
	}
	return trades, nil
}

// ProcessBar feeds BarTrades to ProcessTrade. A rejected fill does not cut
// the bar short: the first one is returned after the last trade. An invalid
// trade stops at once.
func (b *Broker) ProcessBar(bar market.Bar, spread float64) error {
	trades, err := b.BarTrades(bar, spread)
	if err != nil {
		return err
	}
	var first error
	for _, tr := range trades {
		if err := b.ProcessTrade(tr); err != nil {
			if errors.Is(err, ErrInvalidTrade) {
				return err
			}
			if first == nil {
				first = err
			}
		}
	}
	return first
}
