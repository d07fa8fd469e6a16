package account

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Matching selects which open lots an offsetting fill consumes first.
type Matching int

const (
	FIFO Matching = iota
	LIFO
)

func (m Matching) String() string {
	if m == LIFO {
		return "lifo"
	}
	return "fifo"
}

// ParseMatching accepts "fifo" or "lifo"; empty means FIFO.
func ParseMatching(s string) (Matching, error) {
	switch s {
	case "", "fifo", "FIFO":
		return FIFO, nil
	case "lifo", "LIFO":
		return LIFO, nil
	}
	return FIFO, fmt.Errorf("unknown matching %q", s)
}

// quantities closer to zero than this are treated as flat
const quantityEpsilon = 1e-9

func isZero(q float64) bool { return math.Abs(q) < quantityEpsilon }

// Position is the lot ledger of a single instrument.
//
//	                    Execution quantity:
//	Current quantity:  +2   +1   -1   -2
//	              +2    I    I    D    C
//	              +1    I    I    C    R
//	               0    N    N    N    N
//	              -1    R    C    I    I
//	              -2    C    D    I    I
//
// N opens, I increases, D decreases, C closes and R would reverse the
// position. Reversals are rejected with ErrProhibitedReversal.
type Position struct {
	Matching      Matching
	MarginPerUnit float64

	EntryTime      time.Time
	QuantitySigned float64
	AveragePrice   float64
	Margin         float64
	Debt           float64
	ROI            float64

	// Executions is the audit trail of the episode. Entries are never
	// removed, only their open remainder shrinks.
	Executions []*Execution
}

func NewPosition(matching Matching, marginPerUnit float64) *Position {
	return &Position{Matching: matching, MarginPerUnit: marginPerUnit}
}

func (p *Position) Reset() {
	p.EntryTime = time.Time{}
	p.QuantitySigned = 0
	p.AveragePrice = 0
	p.Margin = 0
	p.Debt = 0
	p.ROI = 0
	p.Executions = nil
}

func (p *Position) IsFlat() bool  { return p.QuantitySigned == 0 }
func (p *Position) IsLong() bool  { return p.QuantitySigned > 0 }
func (p *Position) IsShort() bool { return p.QuantitySigned < 0 }

// Value returns the signed market value at price and refreshes ROI.
func (p *Position) Value(price float64) float64 {
	if p.QuantitySigned != 0 && p.AveragePrice != 0 {
		p.ROI = p.QuantitySigned * (price - p.AveragePrice) / math.Abs(p.QuantitySigned*p.AveragePrice)
	} else {
		p.ROI = 0
	}
	return p.QuantitySigned * price
}

// Mark widens the unrealized price range of every open lot.
func (p *Position) Mark(high, low float64) {
	for _, e := range p.Executions {
		e.mark(high, low)
	}
}

// OpenExecutions returns the lots that still carry unmatched quantity.
func (p *Position) OpenExecutions() []*Execution {
	var out []*Execution
	for _, e := range p.Executions {
		if e.Open() {
			out = append(out, e)
		}
	}
	return out
}

// Execute applies one fill and returns the round-trips it completed and the
// cash flow it caused.
func (p *Position) Execute(at time.Time, side market.Side, qty, price, commission float64) ([]Roundtrip, float64, error) {
	if err := validateFill(side, qty, price, commission); err != nil {
		return nil, 0, err
	}

	signed := side.Sign() * qty
	newQty := p.QuantitySigned + signed

	switch {
	case p.QuantitySigned == 0:
		ex := newExecution(at, side, qty, price, commission, p.MarginPerUnit)
		for _, e := range p.Executions {
			e.UnrealizedQuantity = 0
		}
		p.EntryTime = at
		p.QuantitySigned = signed
		p.AveragePrice = price
		p.Margin = ex.Margin
		p.Debt = ex.Debt
		p.Executions = append(p.Executions, ex)
		return nil, -signed*price - commission, nil

	case isZero(newQty):
		return p.Close(at, price, commission)

	case p.QuantitySigned*signed > 0:
		ex := newExecution(at, side, qty, price, commission, p.MarginPerUnit)
		rts := p.match(ex)
		p.AveragePrice = (p.QuantitySigned*p.AveragePrice + signed*price) / newQty
		p.QuantitySigned = newQty
		p.Margin += ex.Margin
		p.Debt += ex.Debt
		p.Executions = append(p.Executions, ex)
		return rts, -signed*price - commission, nil

	case p.QuantitySigned*newQty > 0:
		ex := newExecution(at, side, qty, price, commission, p.MarginPerUnit)
		rts := p.match(ex)
		prev := math.Abs(p.QuantitySigned)
		p.QuantitySigned = newQty
		p.Margin -= ex.Margin
		p.Debt -= p.Debt * qty / prev
		p.Executions = append(p.Executions, ex)
		return rts, -signed*price - commission, nil
	}

	return nil, 0, fmt.Errorf("%w: position %v, fill %v", ErrProhibitedReversal, p.QuantitySigned, signed)
}

// Close flattens the position with one offsetting fill. Closing a flat
// position is a no-op.
func (p *Position) Close(at time.Time, price, commission float64) ([]Roundtrip, float64, error) {
	if p.QuantitySigned == 0 {
		return nil, 0, nil
	}
	qty := math.Abs(p.QuantitySigned)
	side := market.SideOf(-p.QuantitySigned)
	if err := validateFill(side, qty, price, commission); err != nil {
		return nil, 0, err
	}

	ex := newExecution(at, side, qty, price, commission, p.MarginPerUnit)
	rts := p.match(ex)
	p.Executions = append(p.Executions, ex)
	for _, e := range p.Executions {
		e.UnrealizedQuantity = 0
	}

	cashFlow := p.QuantitySigned*price - commission
	p.EntryTime = time.Time{}
	p.QuantitySigned = 0
	p.AveragePrice = 0
	p.Margin = 0
	p.Debt = 0
	p.ROI = 0
	return rts, cashFlow, nil
}

// match consumes open lots on the other side of ex, in FIFO or LIFO
// order, and sets the PnL of ex from what it matched. ex must not be in
// the history yet.
func (p *Position) match(ex *Execution) []Roundtrip {
	if p.QuantitySigned == 0 || p.QuantitySigned*ex.Sign() > 0 {
		return nil
	}

	var (
		rts        []Roundtrip
		left       = ex.Quantity
		commission float64
		amount     float64
	)

	n := len(p.Executions)
	for i := 0; i < n && left > 0; i++ {
		idx := i
		if p.Matching == LIFO {
			idx = n - 1 - i
		}
		e := p.Executions[idx]
		if !e.Open() || e.Side == ex.Side {
			continue
		}

		q := min(left, e.UnrealizedQuantity)
		commission += q * (ex.CommissionPerUnit + e.CommissionPerUnit)
		amount += -ex.Sign() * q * (ex.Price - e.Price)
		left -= q

		e.UnrealizedQuantity = shrink(e.UnrealizedQuantity, q)
		ex.UnrealizedQuantity = shrink(ex.UnrealizedQuantity, q)
		rts = append(rts, NewRoundtrip(e, ex, q))
	}

	ex.PnL += amount
	ex.RealizedPnL = amount - commission
	return rts
}

func shrink(q, by float64) float64 {
	q -= by
	if q < quantityEpsilon {
		return 0
	}
	return q
}

func validateFill(side market.Side, qty, price, commission float64) error {
	if !side.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, side)
	}
	if !(qty > 0) || !market.Finite(qty) {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, qty)
	}
	if !market.Finite(price) {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	if !market.Finite(commission) || commission < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCommission, commission)
	}
	return nil
}
