package broker

import (
	"github.com/rustyeddy/tradesim/market"
	"github.com/shopspring/decimal"
)

// Commission prices a fill.
type Commission func(side market.Side, amount, price float64) float64

// FixedCommission charges c per fill regardless of size.
func FixedCommission(c float64) Commission {
	return func(market.Side, float64, float64) float64 { return c }
}

// PerUnitCommission charges c for every unit filled.
func PerUnitCommission(c float64) Commission {
	return func(_ market.Side, amount, _ float64) float64 { return c * amount }
}

// RateCommission charges rate of the traded notional, rounded to places
// decimal digits.
func RateCommission(rate float64, places int32) Commission {
	r := decimal.NewFromFloat(rate)
	return func(_ market.Side, amount, price float64) float64 {
		notional := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(price))
		f, _ := notional.Mul(r).Round(places).Float64()
		return f
	}
}
