package market

import (
	"fmt"
	"math"
	"time"
)

// MaxBarTrades bounds the number of trades ZigZag expands one bar into.
const MaxBarTrades = 1_000_000

// ZigZag expands a bar into synthetic trades that walk the full bar range
// with the given price step. With highFirst the path is
// open→high→low→close; otherwise open→low→high→close. Legs moving up
// are buy prints, legs moving down are sell prints. Volume is split
// evenly and trades are spaced evenly over [Start, End).
func ZigZag(bar Bar, step float64, highFirst bool) ([]Trade, error) {
	if !(step > 0) || !Finite(step) {
		return nil, fmt.Errorf("zigzag: invalid step %v", step)
	}
	if bar.High < bar.Low {
		return nil, fmt.Errorf("zigzag: high %v below low %v", bar.High, bar.Low)
	}
	if !Finite(bar.Open) || !Finite(bar.High) || !Finite(bar.Low) || !Finite(bar.Close) {
		return nil, fmt.Errorf("zigzag: bar prices %v/%v/%v/%v", bar.Open, bar.High, bar.Low, bar.Close)
	}
	span := bar.High - bar.Low
	if highFirst {
		span += math.Abs(bar.High-bar.Open) + math.Abs(bar.Close-bar.Low)
	} else {
		span += math.Abs(bar.Open-bar.Low) + math.Abs(bar.High-bar.Close)
	}
	if n := span/step + 3; n > MaxBarTrades {
		return nil, fmt.Errorf("zigzag: step %v expands the bar into %.0f trades, more than %d", step, n, MaxBarTrades)
	}

	var prices []float64
	var sides []Side
	leg := func(from, to, step float64, last float64, side Side) {
		for _, p := range arange(from, to, step) {
			prices = append(prices, p)
			sides = append(sides, side)
		}
		prices = append(prices, last)
		sides = append(sides, side)
	}

	if highFirst {
		leg(bar.Open, bar.High, step, bar.High, Buy)
		leg(bar.High-step, bar.Low, -step, bar.Low, Sell)
		leg(bar.Low+step, bar.Close, step, bar.Close, Buy)
	} else {
		leg(bar.Open, bar.Low, -step, bar.Low, Sell)
		leg(bar.Low+step, bar.High, step, bar.High, Buy)
		leg(bar.High-step, bar.Close, -step, bar.Close, Sell)
	}

	n := len(prices)
	dt := bar.End.Sub(bar.Start) / time.Duration(n)
	amount := bar.Volume / float64(n)

	trades := make([]Trade, n)
	t := bar.Start
	for i := range prices {
		trades[i] = Trade{Time: t, Side: sides[i], Amount: amount, Price: prices[i]}
		t = t.Add(dt)
	}
	return trades, nil
}

// arange mirrors the half-open range [from, to) walked by step.
func arange(from, to, step float64) []float64 {
	span := (to - from) / step
	if !(span > 0) {
		return nil
	}
	n := int(math.Ceil(span))
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}
