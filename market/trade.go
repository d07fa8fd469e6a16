package market

import "time"

// Trade is a single timestamped print. Streams of trades must be
// non-decreasing in Time.
type Trade struct {
	Time   time.Time
	Side   Side
	Amount float64
	Price  float64
}

// Bar aggregates trades over [Start, End).
type Bar struct {
	Start  time.Time
	End    time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
