package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/market"
)

// Action is one decision of BuySellHoldClose.
type Action int

const (
	Buy Action = iota
	Sell
	Hold
	Close
	numActions
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case Hold:
		return "hold"
	case Close:
		return "close"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// BuySellHoldClose picks a random action on every decision. Buy and Sell
// move the position by a fixed quantity, Close flattens it. Without short
// positions a Sell that would go short is skipped. With TrailDelta set every
// open position is protected by a trailing stop kept in sync with its size.
// A stop the broker refuses is reported by the next Decide.
type BuySellHoldClose struct {
	Quantity   float64
	AllowShort bool
	TrailDelta float64

	seed int64
	rng  *rand.Rand

	stops   map[*account.Account]int
	subs    map[*account.Account]int
	b       *broker.Broker
	stopErr error
}

func NewBuySellHoldClose(quantity float64, allowShort bool, trailDelta float64, seed int64) (*BuySellHoldClose, error) {
	if !(quantity > 0) {
		return nil, fmt.Errorf("buy-sell-hold-close: quantity %v must be positive", quantity)
	}
	if trailDelta < 0 {
		return nil, fmt.Errorf("buy-sell-hold-close: trail delta %v must not be negative", trailDelta)
	}
	s := &BuySellHoldClose{Quantity: quantity, AllowShort: allowShort, TrailDelta: trailDelta, seed: seed}
	s.Reset()
	return s, nil
}

func (s *BuySellHoldClose) Name() string { return "random" }

func (s *BuySellHoldClose) Reset() {
	s.rng = rand.New(rand.NewSource(s.seed))
	s.stops = make(map[*account.Account]int)
	s.subs = make(map[*account.Account]int)
	s.b = nil
	s.stopErr = nil
}

func (s *BuySellHoldClose) Decide(_ context.Context, b *broker.Broker, acct *account.Account, _ market.Trade, at time.Time) error {
	if err := s.stopErr; err != nil {
		s.stopErr = nil
		return err
	}
	if acct.IsHalted || hasPendingMarket(b, acct) {
		return nil
	}
	if s.TrailDelta > 0 {
		s.watch(b, acct)
	}
	return s.Apply(b, acct, Action(s.rng.Intn(int(numActions))), at)
}

// Apply turns action into at most one market order.
func (s *BuySellHoldClose) Apply(b *broker.Broker, acct *account.Account, action Action, at time.Time) error {
	q := acct.Position.QuantitySigned

	var signed float64
	switch action {
	case Buy:
		signed = s.Quantity
	case Sell:
		if !s.AllowShort && q < s.Quantity {
			return nil
		}
		signed = -s.Quantity
	case Close:
		signed = -q
	case Hold:
		return nil
	default:
		return fmt.Errorf("buy-sell-hold-close: unknown action %v", action)
	}
	if signed == 0 {
		return nil
	}
	// a fixed quantity cannot cross zero unless the position was left off
	// the quantity grid; split into a close and an open
	if q != 0 && q*signed < 0 && abs(signed) > abs(q) {
		if _, err := b.AddOrder(marketOrder(acct, -q, at)); err != nil {
			return err
		}
		signed += q
	}
	_, err := b.AddOrder(marketOrder(acct, signed, at))
	return err
}

// watch subscribes to acct once so the protective stop follows every fill.
func (s *BuySellHoldClose) watch(b *broker.Broker, acct *account.Account) {
	if _, ok := s.subs[acct]; ok {
		return
	}
	s.b = b
	s.subs[acct] = acct.Subscribe(account.SubscriberFunc(s.syncStop))
}

func (s *BuySellHoldClose) syncStop(acct *account.Account, at time.Time) {
	b := s.b
	if b == nil || acct.IsHalted {
		return
	}
	id, hasStop := s.stops[acct]
	q := acct.Position.QuantitySigned
	if q == 0 {
		if hasStop {
			if err := b.KillOrder(id, at); err != nil && !errors.Is(err, broker.ErrOrderNotFound) {
				s.failStop(fmt.Errorf("buy-sell-hold-close: kill stop %d: %w", id, err))
				return
			}
			delete(s.stops, acct)
		}
		return
	}
	stop := broker.TrailingStopOrder{
		Base: broker.Base{
			Account:  acct,
			Side:     market.SideOf(-q),
			Amount:   abs(q),
			TimeInit: at,
		},
		TrailDelta: s.TrailDelta,
	}
	var err error
	if hasStop {
		id, err = b.ReplaceOrder(id, stop)
	} else {
		id, err = b.AddOrder(stop)
	}
	if err != nil {
		s.failStop(fmt.Errorf("buy-sell-hold-close: stop: %w", err))
		return
	}
	s.stops[acct] = id
}

// failStop keeps the first stop error until Decide returns it.
func (s *BuySellHoldClose) failStop(err error) {
	if s.stopErr == nil {
		s.stopErr = err
	}
}
