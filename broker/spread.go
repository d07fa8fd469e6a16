package broker

import (
	"fmt"
	"math"
)

// spreadEstimator keeps an exponential mean and variance of the price jump
// between consecutive trades on opposite sides.
type spreadEstimator struct {
	period int
	alpha  float64

	mean     float64
	variance float64
}

func newSpreadEstimator(period int) spreadEstimator {
	return spreadEstimator{period: period, alpha: 2.0 / float64(period+1)}
}

// update folds one observed bounce in. A zero statistic is seeded with the
// current observation.
func (s *spreadEstimator) update(spread float64) {
	mean := s.mean
	if mean == 0 {
		mean = spread
	}
	s.mean = (1-s.alpha)*mean + s.alpha*spread

	v := (spread - s.mean) * (spread - s.mean)
	prev := s.variance
	if prev == 0 {
		prev = v
	}
	s.variance = (1-s.alpha)*prev + s.alpha*v
}

// estimate is an upper bound of the spread: mean plus half a deviation.
func (s *spreadEstimator) estimate() float64 {
	return s.mean + math.Sqrt(s.variance)/2
}

func (s *spreadEstimator) reset() {
	s.mean = 0
	s.variance = 0
}

// QuoteModel decides where the trade price sits between bid and ask.
type QuoteModel int

const (
	// QuoteAggressor treats a buy print as the ask and a sell print as the
	// bid.
	QuoteAggressor QuoteModel = iota
	// QuoteMidpoint treats every print as the mid of the spread.
	QuoteMidpoint
)

func (q QuoteModel) String() string {
	if q == QuoteMidpoint {
		return "midpoint"
	}
	return "aggressor"
}

func ParseQuoteModel(s string) (QuoteModel, error) {
	switch s {
	case "", "aggressor":
		return QuoteAggressor, nil
	case "midpoint", "mid":
		return QuoteMidpoint, nil
	}
	return QuoteAggressor, fmt.Errorf("unknown quote model %q", s)
}

// quotes returns best bid and best ask around price.
func (q QuoteModel) quotes(buyPrint bool, price, spread float64) (bid, ask float64) {
	if q == QuoteMidpoint {
		return price - spread/2, price + spread/2
	}
	if buyPrint {
		return price - spread, price
	}
	return price, price + spread
}
