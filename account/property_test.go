package account

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/market"
	"pgregory.net/rapid"
)

// Random fill sequences that never reverse keep the lot ledger consistent
// with the signed position.
func TestPropertyLotLedgerMatchesPosition(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		matching := rapid.SampledFrom([]Matching{FIFO, LIFO}).Draw(t, "matching")
		p := NewPosition(matching, 0)

		var sinceFlat float64
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			side := rapid.SampledFrom([]market.Side{market.Buy, market.Sell}).Draw(t, "side")
			qty := float64(rapid.IntRange(1, 10).Draw(t, "qty"))
			price := float64(rapid.IntRange(50, 150).Draw(t, "price"))

			// clamp would-be reversals to a close
			if p.QuantitySigned*side.Sign() < 0 && qty > math.Abs(p.QuantitySigned) {
				qty = math.Abs(p.QuantitySigned)
			}

			at := t0.Add(time.Duration(i) * time.Second)
			if _, _, err := p.Execute(at, side, qty, price, 0); err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			sinceFlat += side.Sign() * qty
			if isZero(sinceFlat) {
				sinceFlat = 0
			}

			if math.Abs(p.QuantitySigned-sinceFlat) > 1e-9 {
				t.Fatalf("quantity %v, signed sum since flat %v", p.QuantitySigned, sinceFlat)
			}

			var open float64
			for _, e := range p.Executions {
				if e.UnrealizedQuantity < 0 || e.UnrealizedQuantity > e.Quantity+1e-9 {
					t.Fatalf("lot remainder %v outside [0, %v]", e.UnrealizedQuantity, e.Quantity)
				}
				if e.Open() {
					if e.Side != market.SideOf(p.QuantitySigned) {
						t.Fatalf("open lot on side %v while position is %v", e.Side, p.QuantitySigned)
					}
					open += e.UnrealizedQuantity
				}
			}
			if math.Abs(open-math.Abs(p.QuantitySigned)) > 1e-9 {
				t.Fatalf("open lots %v, position %v", open, p.QuantitySigned)
			}
			if p.IsFlat() && (p.Margin != 0 || p.Debt != 0 || len(p.OpenExecutions()) != 0) {
				t.Fatalf("flat position still carries state: %+v", p)
			}
		}
	})
}

// Opening at one price and closing at another nets the full price move,
// whatever happens in between, as long as no fills cross zero.
func TestPropertyCashFlowsSumToRealizedPnL(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := New(10_000)
		side := rapid.SampledFrom([]market.Side{market.Buy, market.Sell}).Draw(t, "side")
		n := rapid.IntRange(1, 10).Draw(t, "adds")

		for i := 0; i < n; i++ {
			qty := float64(rapid.IntRange(1, 5).Draw(t, "qty"))
			price := float64(rapid.IntRange(90, 110).Draw(t, "price"))
			if _, err := a.Execute(t0, side, qty, price, 0); err != nil {
				t.Fatal(err)
			}
		}
		exit := float64(rapid.IntRange(90, 110).Draw(t, "exit"))
		if _, err := a.ClosePosition(t0, exit, 0); err != nil {
			t.Fatal(err)
		}

		sum := a.Report.(*Summary)
		if math.Abs(a.Cash-10_000-sum.NetPnL) > 1e-6 {
			t.Fatalf("cash moved %v, round-trips net %v", a.Cash-10_000, sum.NetPnL)
		}
		if math.Abs(a.Balance-a.Cash) > 1e-9 {
			t.Fatalf("flat balance %v != cash %v", a.Balance, a.Cash)
		}
	})
}
