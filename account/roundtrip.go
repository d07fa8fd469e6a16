package account

import (
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// RoundtripSide is the direction of a completed round-trip.
type RoundtripSide int8

const (
	Long  RoundtripSide = 1
	Short RoundtripSide = -1
)

func (s RoundtripSide) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// Roundtrip is one matched entry/exit fragment. It is never modified after
// NewRoundtrip returns.
//
// MAE and MFE are percentages: 0 is a perfect excursion. The efficiencies
// are percentages in [0, 100] of the price range seen while the fragment was
// open; they are 0 when the range is empty.
type Roundtrip struct {
	Side RoundtripSide

	Quantity   float64
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	Duration   time.Duration

	HighestPrice float64
	LowestPrice  float64

	Commission float64
	GrossPnL   float64
	NetPnL     float64

	MaximumAdversePrice       float64
	MaximumFavorablePrice     float64
	MaximumAdverseExcursion   float64
	MaximumFavorableExcursion float64
	EntryEfficiency           float64
	ExitEfficiency            float64
	TotalEfficiency           float64
}

// NewRoundtrip computes the round-trip of qty units entered by entry and
// closed by exit. It only reads its arguments.
func NewRoundtrip(entry, exit *Execution, qty float64) Roundtrip {
	side := Long
	if entry.Side == market.Sell {
		side = Short
	}
	entryP, exitP := entry.Price, exit.Price

	var pnl float64
	if side == Short {
		pnl = qty * (entryP - exitP)
	} else {
		pnl = qty * (exitP - entryP)
	}

	commission := (entry.CommissionPerUnit + exit.CommissionPerUnit) * qty

	highest := max(entry.UnrealizedPriceHigh, exit.UnrealizedPriceHigh)
	lowest := min(entry.UnrealizedPriceLow, exit.UnrealizedPriceLow)
	delta := highest - lowest

	rt := Roundtrip{
		Side:         side,
		Quantity:     qty,
		EntryTime:    entry.Time,
		EntryPrice:   entryP,
		ExitTime:     exit.Time,
		ExitPrice:    exitP,
		Duration:     exit.Time.Sub(entry.Time),
		HighestPrice: highest,
		LowestPrice:  lowest,
		Commission:   commission,
		GrossPnL:     pnl,
		NetPnL:       pnl - commission,
	}

	if side == Long {
		rt.MaximumAdversePrice = lowest
		rt.MaximumFavorablePrice = highest
		rt.MaximumAdverseExcursion = 100 * (1 - ratio(lowest, entryP))
		rt.MaximumFavorableExcursion = 100 * (ratio(highest, exitP) - 1)
		if delta != 0 {
			rt.EntryEfficiency = 100 * (highest - entryP) / delta
			rt.ExitEfficiency = 100 * (exitP - lowest) / delta
			rt.TotalEfficiency = 100 * (exitP - entryP) / delta
		}
	} else {
		rt.MaximumAdversePrice = highest
		rt.MaximumFavorablePrice = lowest
		rt.MaximumAdverseExcursion = 100 * (ratio(highest, entryP) - 1)
		rt.MaximumFavorableExcursion = 100 * (1 - ratio(lowest, exitP))
		if delta != 0 {
			rt.EntryEfficiency = 100 * (entryP - lowest) / delta
			rt.ExitEfficiency = 100 * (highest - exitP) / delta
			rt.TotalEfficiency = 100 * (entryP - exitP) / delta
		}
	}
	return rt
}

// ratio is a/b, or 1 when b is zero so the excursion collapses to 0.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 1
	}
	return a / b
}
