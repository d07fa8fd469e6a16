// Package strategy holds the order-issuing collaborators that trade an
// account through the broker.
package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/market"
)

// Strategy is consulted by the runner on every decision tick. Orders must
// be stamped at or after at, which lies strictly after tr.
type Strategy interface {
	Name() string
	Decide(ctx context.Context, b *broker.Broker, acct *account.Account, tr market.Trade, at time.Time) error
	Reset()
}

// Params is the union of the settings the built-in strategies understand.
type Params struct {
	Quantity   float64
	AllowShort bool
	TrailDelta float64
	Seed       int64

	FastPeriod   int
	SlowPeriod   int
	RiskPct      float64
	StopDistance float64
}

// ByName builds one of the built-in strategies.
func ByName(name string, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none", "":
		return NoOp{}, nil

	case "random", "buy-sell-hold-close", "bshc":
		s, err := NewBuySellHoldClose(p.Quantity, p.AllowShort, p.TrailDelta, p.Seed)
		if err != nil {
			return nil, err
		}
		return s, nil

	case "ema-cross", "emacross":
		s, err := NewEMACross(EMACrossConfig{
			FastPeriod:   p.FastPeriod,
			SlowPeriod:   p.SlowPeriod,
			Quantity:     p.Quantity,
			AllowShort:   p.AllowShort,
			RiskPct:      p.RiskPct,
			StopDistance: p.StopDistance,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, random, ema-cross)", name)
	}
}

// hasPendingMarket reports whether acct already waits on a market order,
// either its own or one spawned by a triggered stop.
func hasPendingMarket(b *broker.Broker, acct *account.Account) bool {
	for _, id := range b.Pending(acct) {
		if o, ok := b.GetOrder(id); ok {
			if _, isMarket := o.(broker.MarketOrder); isMarket {
				return true
			}
		}
	}
	return false
}

func marketOrder(acct *account.Account, signedQty float64, at time.Time) broker.MarketOrder {
	return broker.MarketOrder{Base: broker.Base{
		Account:  acct,
		Side:     market.SideOf(signedQty),
		Amount:   abs(signedQty),
		TimeInit: at,
	}}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
