package account

import (
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Report receives everything the ledger produces. Implementations must not
// call back into the account.
type Report interface {
	Add(rts []Roundtrip)
	Update(at time.Time, balance, cash, price float64)
	Reset()
}

// Subscriber is notified synchronously after the broker filled orders of
// the account. at is the earliest time a reaction may be scheduled.
type Subscriber interface {
	OnAccountUpdate(acct *Account, at time.Time)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(acct *Account, at time.Time)

func (f SubscriberFunc) OnAccountUpdate(acct *Account, at time.Time) { f(acct, at) }

type subscription struct {
	handle int
	sub    Subscriber
}

// Account holds the cash, mark-to-market balance and single Position of one
// trader for one episode.
type Account struct {
	ID             string
	InitialBalance float64

	Cash        float64
	Balance     float64
	MaxBalance  float64
	MinBalance  float64
	MaxDrawdown float64
	IsHalted    bool

	Position *Position
	Report   Report

	subs       []subscription
	nextHandle int
}

type Option func(*Account)

func WithID(id string) Option { return func(a *Account) { a.ID = id } }

func WithMatching(m Matching) Option { return func(a *Account) { a.Position.Matching = m } }

func WithMarginPerUnit(m float64) Option { return func(a *Account) { a.Position.MarginPerUnit = m } }

// WithReport replaces the default Summary report.
func WithReport(r Report) Option { return func(a *Account) { a.Report = r } }

func New(initialBalance float64, opts ...Option) *Account {
	a := &Account{
		InitialBalance: initialBalance,
		Position:       NewPosition(FIFO, 0),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Report == nil {
		a.Report = NewSummary(initialBalance)
	}
	a.restore()
	return a
}

func (a *Account) restore() {
	a.Cash = a.InitialBalance
	a.Balance = a.InitialBalance
	a.MaxBalance = a.InitialBalance
	a.MinBalance = a.InitialBalance
	a.MaxDrawdown = 0
	a.IsHalted = false
}

// Reset restores the initial balance, flattens the position and drops all
// subscribers.
func (a *Account) Reset() {
	a.Position.Reset()
	a.Report.Reset()
	a.subs = nil
	a.restore()
}

func (a *Account) HasPosition() bool { return !a.Position.IsFlat() }

// Subscribe registers s and returns a handle for Unsubscribe. Subscribers
// are notified in registration order.
func (a *Account) Subscribe(s Subscriber) int {
	a.nextHandle++
	a.subs = append(a.subs, subscription{handle: a.nextHandle, sub: s})
	return a.nextHandle
}

func (a *Account) Unsubscribe(handle int) bool {
	for i, s := range a.subs {
		if s.handle == handle {
			a.subs = append(a.subs[:i], a.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Notify invokes every subscriber with at.
func (a *Account) Notify(at time.Time) {
	subs := append([]subscription(nil), a.subs...)
	for _, s := range subs {
		s.sub.OnAccountUpdate(a, at)
	}
}

// UpdateBalance marks the position to price.
func (a *Account) UpdateBalance(at time.Time, price float64) {
	a.Position.Mark(price, price)
	a.Balance = a.Cash + a.Position.Value(price)

	if a.MaxBalance < a.Balance {
		a.MaxBalance = a.Balance
		a.MinBalance = a.Balance
	}
	if a.MinBalance > a.Balance {
		a.MinBalance = a.Balance
		if dd := a.MaxBalance - a.MinBalance; a.MaxDrawdown < dd {
			a.MaxDrawdown = dd
		}
	}
	a.Report.Update(at, a.Balance, a.Cash, price)
}

// Execute books a fill and returns the new balance.
func (a *Account) Execute(at time.Time, side market.Side, qty, price, commission float64) (float64, error) {
	if err := validateFill(side, qty, price, commission); err != nil {
		return a.Balance, err
	}
	rts, cashFlow, err := a.Position.Execute(at, side, qty, price, commission)
	if err != nil {
		return a.Balance, err
	}
	a.apply(at, price, rts, cashFlow)
	return a.Balance, nil
}

// ClosePosition flattens the position at price. It is a no-op when flat.
func (a *Account) ClosePosition(at time.Time, price, commission float64) (float64, error) {
	if a.Position.IsFlat() {
		return a.Balance, nil
	}
	rts, cashFlow, err := a.Position.Close(at, price, commission)
	if err != nil {
		return a.Balance, err
	}
	a.apply(at, price, rts, cashFlow)
	return a.Balance, nil
}

func (a *Account) apply(at time.Time, price float64, rts []Roundtrip, cashFlow float64) {
	a.Cash += cashFlow
	a.UpdateBalance(at, price)
	if len(rts) > 0 {
		a.Report.Add(rts)
	}
}
