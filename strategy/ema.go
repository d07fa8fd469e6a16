package strategy

import "fmt"

// EMA is an exponential moving average over a float stream.
type EMA struct {
	n     int
	alpha float64

	seen  int
	value float64
	ready bool

	name string
}

func NewEMA(period int) *EMA {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &EMA{
		n:     period,
		alpha: 2.0 / float64(period+1),
		name:  fmt.Sprintf("EMA(%d)", period),
	}
}

func (e *EMA) Name() string   { return e.name }
func (e *EMA) Warmup() int    { return e.n }
func (e *EMA) Ready() bool    { return e.ready }
func (e *EMA) Value() float64 { return e.value }
func (e *EMA) Reset()         { e.seen, e.value, e.ready = 0, 0, false }

func (e *EMA) Update(x float64) {
	e.seen++
	if e.seen == 1 {
		// seed with the first observation
		e.value = x
	} else {
		e.value = e.alpha*x + (1-e.alpha)*e.value
	}
	if e.seen >= e.n {
		e.ready = true
	}
}
