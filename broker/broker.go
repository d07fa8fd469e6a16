package broker

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/market"
	"go.uber.org/zap"
)

// Options configures a Broker. Start from DefaultOptions.
type Options struct {
	// AgentDelay is added to the trade time passed to account subscribers.
	AgentDelay time.Duration
	// BrokerDelay schedules market orders the broker creates itself.
	BrokerDelay time.Duration
	// Luck is the chance that a limit order touched but not crossed fills.
	Luck       float64
	Commission Commission
	PriceStep  float64
	EMAPeriod  int

	InstantBalanceUpdate  bool
	HaltOnNegativeBalance bool
	Quotes                QuoteModel

	// Rand drives the luck draws and bar paths. When nil a source seeded
	// with Seed is used.
	Rand   *rand.Rand
	Seed   int64
	Logger *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		AgentDelay:            2 * time.Second,
		BrokerDelay:           500 * time.Millisecond,
		Luck:                  0.1,
		Commission:            FixedCommission(20),
		PriceStep:             1,
		EMAPeriod:             20,
		HaltOnNegativeBalance: true,
	}
}

func (o Options) validate() error {
	switch {
	case o.AgentDelay <= 0:
		return fmt.Errorf("%w: agent delay %v must be positive", ErrInvalidOptions, o.AgentDelay)
	case o.BrokerDelay <= 0:
		return fmt.Errorf("%w: broker delay %v must be positive", ErrInvalidOptions, o.BrokerDelay)
	case !(o.Luck > 0 && o.Luck <= 1):
		return fmt.Errorf("%w: luck %v outside (0, 1]", ErrInvalidOptions, o.Luck)
	case o.EMAPeriod <= 0:
		return fmt.Errorf("%w: ema period %d must be positive", ErrInvalidOptions, o.EMAPeriod)
	case o.PriceStep < 0 || !market.Finite(o.PriceStep):
		return fmt.Errorf("%w: price step %v", ErrInvalidOptions, o.PriceStep)
	}
	return nil
}

// Broker keeps the order book of one or more accounts and matches it
// against a stream of trades.
type Broker struct {
	mu   sync.Mutex
	opts Options
	rng  *rand.Rand
	log  *zap.Logger

	accounts []*account.Account

	book          *book
	lastID        int
	last          market.Trade
	hasLast       bool
	marked        bool // every account is marked to last
	spread        spreadEstimator
	nextOrderTime time.Time
	hasNext       bool
}

func New(opts Options, accounts ...*account.Account) (*Broker, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Commission == nil {
		opts.Commission = FixedCommission(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}

	b := &Broker{
		opts:   opts,
		rng:    rng,
		log:    opts.Logger,
		book:   newBook(),
		spread: newSpreadEstimator(opts.EMAPeriod),
	}
	for _, a := range accounts {
		if err := b.Register(a); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Register adds an account. Registering twice is a no-op.
func (b *Broker) Register(a *account.Account) error {
	if a == nil {
		return fmt.Errorf("%w: nil account", ErrUnknownAccount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.registered(a) {
		b.accounts = append(b.accounts, a)
	}
	return nil
}

func (b *Broker) Accounts() []*account.Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*account.Account(nil), b.accounts...)
}

func (b *Broker) Options() Options { return b.opts }

// Reset starts a new episode: every account is reset and the book, the
// spread statistics and the clock are cleared.
func (b *Broker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		a.Reset()
	}
	b.book.clear()
	b.lastID = 0
	b.last = market.Trade{}
	b.hasLast, b.marked = false, false
	b.spread.reset()
	b.hasNext = false
}

// LastTrade returns the most recent trade processed.
func (b *Broker) LastTrade() (market.Trade, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.hasLast
}

// Spread returns the current spread estimate.
func (b *Broker) Spread() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spread.estimate()
}

// Len returns the number of pending orders.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.len()
}

// Pending returns the ids of the pending orders of a, ascending.
func (b *Broker) Pending(a *account.Account) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []int
	for _, id := range b.book.ids {
		if b.book.orders[id].Common().Account == a {
			out = append(out, id)
		}
	}
	return out
}

// AddOrder validates o, snaps its prices to the price step and books it.
func (b *Broker) AddOrder(o Order) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(o)
}

func (b *Broker) addLocked(o Order) (int, error) {
	if o == nil {
		return 0, fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	c := o.Common()
	if !b.registered(c.Account) {
		return 0, ErrUnknownAccount
	}
	if c.Account.IsHalted && !c.forced {
		return 0, fmt.Errorf("%w: %s", ErrAccountHalted, c.Account.ID)
	}
	if !c.Side.Valid() {
		return 0, fmt.Errorf("%w: side %v", account.ErrInvalidOperation, c.Side)
	}
	if !(c.Amount > 0) || !market.Finite(c.Amount) {
		return 0, fmt.Errorf("%w: amount %v", account.ErrInvalidQuantity, c.Amount)
	}
	if err := checkPrices(o); err != nil {
		return 0, err
	}
	if b.hasLast && !c.TimeInit.After(b.last.Time) {
		return 0, fmt.Errorf("%w: %s <= %s", ErrPastOrderTime,
			c.TimeInit.Format(time.RFC3339Nano), b.last.Time.Format(time.RFC3339Nano))
	}

	o = snapped(o, b.opts.PriceStep)
	b.lastID++
	b.book.insert(b.lastID, o)
	b.noteOrderTime(c.TimeInit)
	b.log.Debug("order added",
		zap.Int("order", b.lastID),
		zap.String("kind", fmt.Sprintf("%T", o)),
		zap.String("account", c.Account.ID),
		zap.Stringer("side", c.Side),
		zap.Float64("amount", c.Amount),
		zap.Time("time_init", c.TimeInit))
	return b.lastID, nil
}

func checkPrices(o Order) error {
	var prices []float64
	switch v := o.(type) {
	case LimitOrder:
		prices = []float64{v.Price}
	case StopOrder:
		prices = []float64{v.Price}
	case TrailingStopOrder:
		if v.TrailDelta < 0 {
			return fmt.Errorf("%w: negative trail delta %v", ErrInvalidOrder, v.TrailDelta)
		}
		prices = []float64{v.TrailDelta}
	case TakeProfitOrder:
		if v.TrailDelta < 0 {
			return fmt.Errorf("%w: negative trail delta %v", ErrInvalidOrder, v.TrailDelta)
		}
		prices = []float64{v.TargetPrice, v.TrailDelta}
	}
	for _, p := range prices {
		if !market.Finite(p) {
			return fmt.Errorf("%w: %v", account.ErrInvalidPrice, p)
		}
	}
	return nil
}

// GetOrder returns the pending order with id.
func (b *Broker) GetOrder(id int) (Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.get(id)
}

// KillOrder schedules the order to expire at at. The order stays in the
// book until a trade at or after at is processed.
func (b *Broker) KillOrder(id int, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.killLocked(id, at)
}

func (b *Broker) killLocked(id int, at time.Time) error {
	o, ok := b.book.get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	if at.Before(o.Common().TimeInit) {
		return fmt.Errorf("%w: order %d", ErrInvalidKillTime, id)
	}
	b.book.set(id, withKill(o, at))
	return nil
}

// ReplaceOrder kills id at the start time of o and adds o. A missing id
// only adds o.
func (b *Broker) ReplaceOrder(id int, o Order) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o == nil {
		return 0, fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if _, ok := b.book.get(id); ok {
		if err := b.killLocked(id, o.Common().TimeInit); err != nil {
			return 0, err
		}
	}
	return b.addLocked(o)
}

// ProcessTrade advances the simulation by one trade. Trades must arrive in
// non-decreasing time order. Subscribers of every account that got a fill
// are notified once the book is settled. The first fill error is returned;
// the remaining orders are still evaluated.
func (b *Broker) ProcessTrade(tr market.Trade) error {
	b.mu.Lock()
	touched, err := b.processLocked(tr)
	b.mu.Unlock()

	at := tr.Time.Add(b.opts.AgentDelay)
	for _, a := range touched {
		a.Notify(at)
	}
	return err
}

func (b *Broker) processLocked(tr market.Trade) ([]*account.Account, error) {
	if !tr.Side.Valid() || !market.Finite(tr.Price) {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidTrade, tr)
	}
	if b.hasLast && tr.Time.Before(b.last.Time) {
		return nil, fmt.Errorf("%w: time %s before %s", ErrInvalidTrade,
			tr.Time.Format(time.RFC3339Nano), b.last.Time.Format(time.RFC3339Nano))
	}

	t, price := tr.Time, tr.Price

	if b.opts.InstantBalanceUpdate {
		for _, a := range b.accounts {
			if a.HasPosition() && !a.IsHalted {
				a.UpdateBalance(t, price)
				b.haltIfInsolvent(a, t)
			}
		}
	}

	if b.hasLast && b.last.Side != tr.Side {
		b.spread.update(math.Abs(b.last.Price - price))
	}

	prev, hadPrev := b.last, b.hasLast
	b.last, b.hasLast = tr, true
	b.marked = b.opts.InstantBalanceUpdate

	if !b.hasNext || t.Before(b.nextOrderTime) || b.book.len() == 0 {
		return nil, nil
	}
	b.hasNext = false

	bid, ask := b.opts.Quotes.quotes(tr.Side == market.Buy, price, b.spread.estimate())

	if !b.opts.InstantBalanceUpdate {
		for _, a := range b.accounts {
			if !a.IsHalted {
				a.UpdateBalance(t, price)
				b.haltIfInsolvent(a, t)
			}
		}
		b.marked = true
	}

	var (
		firstErr error
		touched  []*account.Account
	)
	fill := func(id int, c Base, px float64) {
		b.book.remove(id)
		comm := b.opts.Commission(c.Side, c.Amount, px)
		if _, err := c.Account.Execute(t, c.Side, c.Amount, px, comm); err != nil {
			b.log.Warn("fill rejected", zap.Int("order", id), zap.String("account", c.Account.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("order %d: %w", id, err)
			}
			return
		}
		b.log.Debug("order filled",
			zap.Int("order", id),
			zap.String("account", c.Account.ID),
			zap.Stringer("side", c.Side),
			zap.Float64("amount", c.Amount),
			zap.Float64("price", px),
			zap.Float64("commission", comm),
			zap.Time("time", t))
		if !containsAccount(touched, c.Account) {
			touched = append(touched, c.Account)
		}
	}
	trigger := func(id int, c Base) {
		b.book.remove(id)
		spawned := MarketOrder{Base{
			Account:  c.Account,
			Side:     c.Side,
			Amount:   c.Amount,
			TimeInit: t.Add(b.opts.BrokerDelay),
			forced:   c.forced,
		}}
		b.insertLocked(spawned)
		b.log.Debug("order triggered",
			zap.Int("order", id),
			zap.Int("market_order", b.lastID),
			zap.String("account", c.Account.ID),
			zap.Time("time", t))
	}

	for _, id := range b.book.snapshot() {
		o, ok := b.book.get(id)
		if !ok {
			continue
		}
		c := o.Common()
		if why := b.dropReason(c, t); why != "" {
			b.book.remove(id)
			b.log.Debug("order dropped",
				zap.Int("order", id),
				zap.String("account", c.Account.ID),
				zap.String("reason", why),
				zap.Time("time", t))
			continue
		}
		b.noteOrderTime(c.TimeInit)
		if t.Before(c.TimeInit) {
			continue
		}

		dir := c.Side.Sign()
		switch v := o.(type) {
		case MarketOrder:
			px := bid
			if c.Side == market.Buy {
				px = ask
			}
			fill(id, c, px)

		case LimitOrder:
			delta := dir * (price - v.Price)
			switch {
			case delta < 0:
				px := v.Price
				if !hadPrev || prev.Time.Before(c.TimeInit) {
					// activated past the limit: take the market if it is better
					if c.Side == market.Buy {
						px = math.Min(v.Price, ask)
					} else {
						px = math.Max(v.Price, bid)
					}
				}
				fill(id, c, px)
			case delta == 0 && tr.Side != c.Side && b.rng.Float64() <= b.opts.Luck:
				fill(id, c, v.Price)
			}

		case StopOrder:
			if dir*(price-v.Price) >= 0 {
				trigger(id, c)
			}

		case TrailingStopOrder:
			if v.BestPrice == nil {
				b.book.set(id, v.withBestPrice(price))
				continue
			}
			if d := dir * (price - *v.BestPrice); d < 0 {
				b.book.set(id, v.withBestPrice(price))
			} else if d >= v.TrailDelta {
				trigger(id, c)
			}

		case TakeProfitOrder:
			if v.BestPrice == nil {
				if dir*(price-v.TargetPrice) <= 0 {
					b.book.set(id, v.withBestPrice(price))
				}
				continue
			}
			if d := dir * (price - *v.BestPrice); d < 0 {
				b.book.set(id, v.withBestPrice(price))
			} else if d >= v.TrailDelta {
				trigger(id, c)
			}

		default:
			panic(fmt.Sprintf("broker: unhandled order type %T", o))
		}
	}

	return touched, firstErr
}

// dropReason says why an order can no longer fill at t, or "" while it
// can.
func (b *Broker) dropReason(c Base, t time.Time) string {
	switch {
	case !b.registered(c.Account):
		return "unknown account"
	case c.Account.IsHalted && !c.forced:
		return "account halted"
	case c.TimeInit.IsZero():
		return "no start time"
	}
	if !c.TimeKill.IsZero() {
		if !c.TimeKill.After(c.TimeInit) || !c.TimeKill.After(t) {
			return "expired"
		}
	}
	return ""
}

// Mark marks a to the last trade price and halts it when its balance went
// negative. Flat and halted accounts are left alone. Mark does nothing when
// the last trade already marked every account: always with
// InstantBalanceUpdate, otherwise when an order was due.
func (b *Broker) Mark(a *account.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.registered(a) {
		return ErrUnknownAccount
	}
	if b.marked || !b.hasLast || !a.HasPosition() || a.IsHalted {
		return nil
	}
	a.UpdateBalance(b.last.Time, b.last.Price)
	b.haltIfInsolvent(a, b.last.Time)
	return nil
}

// haltIfInsolvent halts a when its balance went negative: its pending
// orders are dropped and a forced market order closing the position is
// scheduled.
func (b *Broker) haltIfInsolvent(a *account.Account, t time.Time) {
	if !b.opts.HaltOnNegativeBalance || a.IsHalted || a.Balance >= 0 {
		return
	}
	a.IsHalted = true
	dropped := b.book.removeIf(func(o Order) bool { return o.Common().Account == a })

	q := a.Position.QuantitySigned
	b.log.Warn("account halted",
		zap.String("account", a.ID),
		zap.Float64("balance", a.Balance),
		zap.Float64("position", q),
		zap.Int("dropped_orders", dropped),
		zap.Time("time", t))
	if q == 0 {
		return
	}
	b.insertLocked(MarketOrder{Base{
		Account:  a,
		Side:     market.SideOf(-q),
		Amount:   math.Abs(q),
		TimeInit: t.Add(b.opts.BrokerDelay),
		forced:   true,
	}})
}

// insertLocked books an order created by the broker itself.
func (b *Broker) insertLocked(o Order) {
	b.lastID++
	b.book.insert(b.lastID, o)
	b.noteOrderTime(o.Common().TimeInit)
}

func (b *Broker) noteOrderTime(t time.Time) {
	if !b.hasNext || t.Before(b.nextOrderTime) {
		b.nextOrderTime = t
		b.hasNext = true
	}
}

func (b *Broker) registered(a *account.Account) bool {
	return a != nil && containsAccount(b.accounts, a)
}

func containsAccount(list []*account.Account, a *account.Account) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
