// Package sim runs episodes: it feeds a provider through the broker and
// consults a strategy on a decision cadence.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/provider"
	"github.com/rustyeddy/tradesim/strategy"
	"go.uber.org/zap"
)

// Config controls the episode loop. The zero value consults the strategy
// after every trade and leaves the position open at the end.
type Config struct {
	// DecisionInterval is the simulated time between two decisions.
	DecisionInterval time.Duration
	// EpisodeStart skips decisions on earlier trades. They still reach the
	// broker.
	EpisodeStart time.Time
	// MaxTrades stops the episode after that many trades; 0 is unlimited.
	MaxTrades int
	// CloseAtEnd flattens the position at the last price once the provider
	// is exhausted.
	CloseAtEnd bool
	// FailFast aborts on the first rejected order. Otherwise rejections
	// are logged and counted.
	FailFast bool

	// DelayPerSecond in [0, 1) throttles the CPU by sleeping that share of
	// every wall-clock second.
	DelayPerSecond float64
	// TradesPerSecond paces the replay; 0 runs as fast as possible.
	TradesPerSecond float64

	Logger *zap.Logger
}

func (c Config) validate() error {
	switch {
	case c.DecisionInterval < 0:
		return fmt.Errorf("sim: negative decision interval %v", c.DecisionInterval)
	case c.MaxTrades < 0:
		return fmt.Errorf("sim: negative max trades %d", c.MaxTrades)
	case !(c.DelayPerSecond >= 0 && c.DelayPerSecond < 1):
		return fmt.Errorf("sim: delay per second %v outside [0, 1)", c.DelayPerSecond)
	case c.TradesPerSecond < 0 || math.IsInf(c.TradesPerSecond, 0) || math.IsNaN(c.TradesPerSecond):
		return fmt.Errorf("sim: trades per second %v", c.TradesPerSecond)
	}
	return nil
}

// Runner drives one account of a broker through one episode at a time.
type Runner struct {
	Broker   *broker.Broker
	Account  *account.Account
	Strategy strategy.Strategy
	Config   Config

	log *zap.Logger
}

func New(b *broker.Broker, acct *account.Account, s strategy.Strategy, cfg Config) (*Runner, error) {
	if b == nil {
		return nil, errors.New("sim: broker is required")
	}
	if acct == nil {
		return nil, errors.New("sim: account is required")
	}
	if s == nil {
		return nil, errors.New("sim: strategy is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := b.Register(acct); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Broker: b, Account: acct, Strategy: s, Config: cfg, log: log}, nil
}

// Reset starts a fresh episode on the broker, its accounts and the
// strategy.
func (r *Runner) Reset() {
	r.Broker.Reset()
	r.Strategy.Reset()
}

// episode is the state of one Run.
type episode struct {
	r   *Runner
	res Result

	throttle     *throttle
	lastDecision time.Time
	decided      bool
}

func (r *Runner) newEpisode() *episode {
	e := &episode{r: r, throttle: newThrottle(r.Config.DelayPerSecond)}
	e.res.StartBalance = r.Account.Balance
	return e
}

// Run feeds every trade of p to the broker and returns the episode result.
// p is closed when Run returns. A cancelled ctx stops the loop and returns
// the partial result with the context error.
func (r *Runner) Run(ctx context.Context, p provider.Provider) (Result, error) {
	defer p.Close()

	e := r.newEpisode()
	pacer := newPacer(r.Config.TradesPerSecond)
	r.log.Info("episode started",
		zap.String("strategy", r.Strategy.Name()),
		zap.String("account", r.Account.ID),
		zap.Float64("balance", r.Account.Balance))

	for r.Config.MaxTrades == 0 || e.res.Trades < r.Config.MaxTrades {
		if err := ctx.Err(); err != nil {
			return e.finish(), err
		}
		tr, ok, err := p.Next()
		if err != nil {
			return e.finish(), fmt.Errorf("provider: %w", err)
		}
		if !ok {
			break
		}
		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				return e.finish(), err
			}
		}
		if err := e.throttle.wait(ctx); err != nil {
			return e.finish(), err
		}

		if err := e.trade(tr); err != nil {
			return e.finish(), err
		}
		if err := e.decide(ctx, tr); err != nil {
			return e.finish(), err
		}
	}
	return e.end()
}

// RunBars expands every bar of p into synthetic trades with the given
// relative spread and consults the strategy once per bar.
func (r *Runner) RunBars(ctx context.Context, p provider.BarProvider, spread float64) (Result, error) {
	defer p.Close()

	e := r.newEpisode()
	r.log.Info("bar episode started",
		zap.String("strategy", r.Strategy.Name()),
		zap.String("account", r.Account.ID),
		zap.Float64("spread", spread))

	for {
		if err := ctx.Err(); err != nil {
			return e.finish(), err
		}
		bar, ok, err := p.NextBar()
		if err != nil {
			return e.finish(), fmt.Errorf("provider: %w", err)
		}
		if !ok {
			break
		}
		if err := e.throttle.wait(ctx); err != nil {
			return e.finish(), err
		}

		e.observe(bar.Start)
		e.res.Bars++
		trades, err := r.Broker.BarTrades(bar, spread)
		if err != nil {
			return e.finish(), err
		}
		for _, tr := range trades {
			if err := e.trade(tr); err != nil {
				return e.finish(), err
			}
		}
		tr, ok := r.Broker.LastTrade()
		if !ok {
			continue
		}
		if err := e.decide(ctx, tr); err != nil {
			return e.finish(), err
		}
	}
	return e.end()
}

func (e *episode) observe(t time.Time) {
	if e.res.Start.IsZero() || t.Before(e.res.Start) {
		e.res.Start = t
	}
	if t.After(e.res.End) {
		e.res.End = t
	}
}

// trade feeds tr to the broker and marks the account to it, so open lots
// see every print between their entry and exit.
func (e *episode) trade(tr market.Trade) error {
	e.observe(tr.Time)
	e.res.Trades++
	if err := e.step(e.r.Broker.ProcessTrade(tr)); err != nil {
		return err
	}
	return e.r.Broker.Mark(e.r.Account)
}

// step classifies a broker error: bad input ends the episode, rejected
// fills are counted unless FailFast is set.
func (e *episode) step(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, broker.ErrInvalidTrade) {
		return err
	}
	return e.reject("fill", err)
}

func (e *episode) decide(ctx context.Context, tr market.Trade) error {
	r := e.r
	if tr.Time.Before(r.Config.EpisodeStart) {
		return nil
	}
	if e.decided && tr.Time.Sub(e.lastDecision) < r.Config.DecisionInterval {
		return nil
	}
	e.decided, e.lastDecision = true, tr.Time
	e.res.Decisions++

	at := tr.Time.Add(r.Broker.Options().AgentDelay)
	if err := r.Strategy.Decide(ctx, r.Broker, r.Account, tr, at); err != nil {
		return e.reject("decision", err)
	}
	return nil
}

func (e *episode) reject(stage string, err error) error {
	e.res.Rejected++
	if e.r.Config.FailFast {
		return fmt.Errorf("%s: %w", stage, err)
	}
	e.r.log.Warn("order rejected", zap.String("stage", stage), zap.Error(err))
	return nil
}

// end closes the position if configured and returns the final result.
func (e *episode) end() (Result, error) {
	r := e.r
	if r.Config.CloseAtEnd && r.Account.HasPosition() && !r.Account.IsHalted {
		if tr, ok := r.Broker.LastTrade(); ok {
			q := r.Account.Position.QuantitySigned
			comm := r.Broker.Options().Commission(market.SideOf(-q), math.Abs(q), tr.Price)
			if _, err := r.Account.ClosePosition(tr.Time, tr.Price, comm); err != nil {
				return e.finish(), fmt.Errorf("close at end: %w", err)
			}
			e.res.ClosedAtEnd = true
		}
	}
	res := e.finish()
	r.log.Info("episode finished",
		zap.String("strategy", r.Strategy.Name()),
		zap.Int("trades", res.Trades),
		zap.Int("decisions", res.Decisions),
		zap.Int("roundtrips", res.Roundtrips),
		zap.Int("rejected", res.Rejected),
		zap.Float64("balance", res.EndBalance),
		zap.Bool("halted", res.Halted))
	return res, nil
}

func (e *episode) finish() Result {
	res := e.res
	a := e.r.Account
	res.EndBalance = a.Balance
	res.Cash = a.Cash
	res.Position = a.Position.QuantitySigned
	res.MaxDrawdown = a.MaxDrawdown
	res.Halted = a.IsHalted
	res.Pending = len(e.r.Broker.Pending(a))
	if s := summaryOf(a.Report); s != nil {
		res.fill(s)
	}
	return res
}

type tallier interface {
	Tally() *account.Summary
}

func summaryOf(r account.Report) *account.Summary {
	if t, ok := r.(tallier); ok {
		return t.Tally()
	}
	return nil
}
