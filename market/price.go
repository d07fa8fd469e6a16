package market

import (
	"math"

	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// SnapPrice rounds price to the nearest multiple of step, halves rounding up.
// A non-positive step or a non-finite price is returned unchanged.
func SnapPrice(price, step float64) float64 {
	if step <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return price
	}
	s := decimal.NewFromFloat(step)
	n := decimal.NewFromFloat(price).Div(s).Add(half).Floor()
	f, _ := n.Mul(s).Float64()
	return f
}

// Finite reports whether x is neither NaN nor infinite.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
