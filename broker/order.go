package broker

import (
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/market"
)

// Order is one of MarketOrder, LimitOrder, StopOrder, TrailingStopOrder or
// TakeProfitOrder. The set is closed.
type Order interface {
	Common() Base
	isOrder()
}

// Base carries the fields shared by every order kind. A zero TimeKill
// means the order never expires.
type Base struct {
	Account  *account.Account
	Side     market.Side
	Amount   float64
	TimeInit time.Time
	TimeKill time.Time

	// set on liquidation orders, which still fill on a halted account
	forced bool
}

func (b Base) Common() Base { return b }
func (Base) isOrder()       {}

// Forced reports whether the broker created the order to liquidate a
// halted account.
func (b Base) Forced() bool { return b.forced }

// MarketOrder fills on the first trade at or after TimeInit at the best
// quote.
type MarketOrder struct {
	Base
}

// LimitOrder fills once the market crosses Price.
type LimitOrder struct {
	Base
	Price float64
}

// StopOrder turns into a MarketOrder once the market reaches Price.
type StopOrder struct {
	Base
	Price float64
}

// TrailingStopOrder tracks the best price seen since it became active and
// turns into a MarketOrder once the market retraces TrailDelta from it.
type TrailingStopOrder struct {
	Base
	TrailDelta float64
	BestPrice  *float64
}

// TakeProfitOrder behaves like TrailingStopOrder, but trailing starts only
// once the market reaches TargetPrice.
type TakeProfitOrder struct {
	Base
	TargetPrice float64
	TrailDelta  float64
	BestPrice   *float64
}

// withKill returns a copy of o expiring at at.
func withKill(o Order, at time.Time) Order {
	switch v := o.(type) {
	case MarketOrder:
		v.TimeKill = at
		return v
	case LimitOrder:
		v.TimeKill = at
		return v
	case StopOrder:
		v.TimeKill = at
		return v
	case TrailingStopOrder:
		v.TimeKill = at
		return v
	case TakeProfitOrder:
		v.TimeKill = at
		return v
	}
	return o
}

func (o TrailingStopOrder) withBestPrice(p float64) TrailingStopOrder {
	o.BestPrice = &p
	return o
}

func (o TakeProfitOrder) withBestPrice(p float64) TakeProfitOrder {
	o.BestPrice = &p
	return o
}

// snapped rounds the price-bearing fields of o to the price grid.
func snapped(o Order, step float64) Order {
	switch v := o.(type) {
	case LimitOrder:
		v.Price = market.SnapPrice(v.Price, step)
		return v
	case StopOrder:
		v.Price = market.SnapPrice(v.Price, step)
		return v
	case TakeProfitOrder:
		v.TargetPrice = market.SnapPrice(v.TargetPrice, step)
		return v
	}
	return o
}

// Kind names the order variant.
func Kind(o Order) string {
	switch o.(type) {
	case MarketOrder:
		return "market"
	case LimitOrder:
		return "limit"
	case StopOrder:
		return "stop"
	case TrailingStopOrder:
		return "trailing_stop"
	case TakeProfitOrder:
		return "take_profit"
	}
	return "unknown"
}
