package strategy

import (
	"context"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/market"
)

// NoOp never trades.
type NoOp struct{}

func (NoOp) Name() string { return "noop" }

func (NoOp) Decide(context.Context, *broker.Broker, *account.Account, market.Trade, time.Time) error {
	return nil
}

func (NoOp) Reset() {}
