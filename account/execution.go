package account

import (
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Execution is the record of a fill. Everything except the open remainder
// (UnrealizedQuantity and the unrealized price range) is fixed once the
// position has matched it.
type Execution struct {
	Time              time.Time
	Side              market.Side
	Quantity          float64
	Price             float64
	Commission        float64
	CommissionPerUnit float64

	Amount   float64 // price * quantity
	Margin   float64 // quantity * margin per unit
	Debt     float64 // amount - margin
	CashFlow float64 // -sign * amount

	PnL         float64
	RealizedPnL float64

	UnrealizedQuantity  float64
	UnrealizedPriceHigh float64
	UnrealizedPriceLow  float64
}

func newExecution(at time.Time, side market.Side, qty, price, commission, marginPerUnit float64) *Execution {
	amount := price * qty
	margin := qty * marginPerUnit
	debt := 0.0
	if amount != 0 {
		debt = amount - margin
	}
	return &Execution{
		Time:                at,
		Side:                side,
		Quantity:            qty,
		Price:               price,
		Commission:          commission,
		CommissionPerUnit:   commission / qty,
		Amount:              amount,
		Margin:              margin,
		Debt:                debt,
		CashFlow:            -side.Sign() * amount,
		PnL:                 -commission,
		UnrealizedQuantity:  qty,
		UnrealizedPriceHigh: price,
		UnrealizedPriceLow:  price,
	}
}

// Sign returns +1 for a buy and -1 for a sell.
func (e *Execution) Sign() float64 { return e.Side.Sign() }

// Open reports whether part of the fill is still unmatched.
func (e *Execution) Open() bool { return e.UnrealizedQuantity > 0 }

func (e *Execution) mark(high, low float64) {
	if e.UnrealizedQuantity <= 0 {
		return
	}
	if high > e.UnrealizedPriceHigh {
		e.UnrealizedPriceHigh = high
	}
	if low < e.UnrealizedPriceLow {
		e.UnrealizedPriceLow = low
	}
}
