// Package provider produces the trade streams that drive a simulation.
package provider

import (
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Provider yields trades in non-decreasing time order. Next returns false
// once the stream is exhausted.
type Provider interface {
	Next() (market.Trade, bool, error)
	Close() error
}

// BarProvider yields OHLCV bars to be replayed through the broker.
type BarProvider interface {
	NextBar() (market.Bar, bool, error)
	Close() error
}

// Slice replays a fixed list of trades.
type Slice struct {
	trades []market.Trade
	i      int
}

func NewSlice(trades ...market.Trade) *Slice {
	return &Slice{trades: trades}
}

func (s *Slice) Next() (market.Trade, bool, error) {
	if s.i >= len(s.trades) {
		return market.Trade{}, false, nil
	}
	tr := s.trades[s.i]
	s.i++
	return tr, true, nil
}

func (s *Slice) Close() error { return nil }

// Window stops a provider at the first trade at or after Until, or after
// Max trades, whichever comes first. Zero values disable a bound.
type Window struct {
	P     Provider
	Until time.Time
	Max   int

	n int
}

func (w *Window) Next() (market.Trade, bool, error) {
	if w.Max > 0 && w.n >= w.Max {
		return market.Trade{}, false, nil
	}
	tr, ok, err := w.P.Next()
	if err != nil || !ok {
		return tr, ok, err
	}
	if !w.Until.IsZero() && !tr.Time.Before(w.Until) {
		return market.Trade{}, false, nil
	}
	w.n++
	return tr, true, nil
}

func (w *Window) Close() error { return w.P.Close() }

// Collect drains p into a slice.
func Collect(p Provider) ([]market.Trade, error) {
	var out []market.Trade
	for {
		tr, ok, err := p.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, tr)
	}
}
