package account

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, p *Position, side market.Side, qty, price float64) ([]Roundtrip, float64) {
	t.Helper()
	rts, cf, err := p.Execute(t0, side, qty, price, 0)
	require.NoError(t, err)
	return rts, cf
}

func TestPositionRoundTripLaw(t *testing.T) {
	t.Parallel()

	p := NewPosition(FIFO, 0)

	_, cf1 := execute(t, p, market.Buy, 5, 100)
	rts, cf2 := execute(t, p, market.Sell, 5, 104)

	require.Len(t, rts, 1)
	assert.InDelta(t, 5*(104.0-100), rts[0].GrossPnL, 1e-9)
	assert.InDelta(t, 5*(104.0-100), cf1+cf2, 1e-9)
	assert.Zero(t, p.QuantitySigned)
	assert.Len(t, p.Executions, 2)
}

func TestPositionFIFOAndLIFO(t *testing.T) {
	t.Parallel()

	build := func(m Matching) []Roundtrip {
		p := NewPosition(m, 0)
		execute(t, p, market.Buy, 1, 10)
		execute(t, p, market.Buy, 1, 12)
		execute(t, p, market.Buy, 1, 14)
		rts, _ := execute(t, p, market.Sell, 3, 20)
		return rts
	}

	entries := func(rts []Roundtrip) []float64 {
		var out []float64
		for _, rt := range rts {
			out = append(out, rt.EntryPrice)
		}
		return out
	}
	total := func(rts []Roundtrip) float64 {
		var s float64
		for _, rt := range rts {
			s += rt.NetPnL
		}
		return s
	}

	fifo := build(FIFO)
	lifo := build(LIFO)

	assert.Equal(t, []float64{10, 12, 14}, entries(fifo))
	assert.Equal(t, []float64{14, 12, 10}, entries(lifo))
	assert.InDelta(t, 24.0, total(fifo), 1e-9)
	assert.InDelta(t, total(fifo), total(lifo), 1e-9)
}

func TestPositionDecreaseMatchesPartially(t *testing.T) {
	t.Parallel()

	p := NewPosition(FIFO, 0)
	execute(t, p, market.Buy, 2, 10)
	execute(t, p, market.Buy, 2, 20)

	rts, cf := execute(t, p, market.Sell, 3, 30)

	require.Len(t, rts, 2)
	assert.Equal(t, 2.0, rts[0].Quantity)
	assert.Equal(t, 10.0, rts[0].EntryPrice)
	assert.Equal(t, 1.0, rts[1].Quantity)
	assert.Equal(t, 20.0, rts[1].EntryPrice)
	assert.InDelta(t, 90.0, cf, 1e-9)

	assert.Equal(t, 1.0, p.QuantitySigned)
	assert.InDelta(t, 15.0, p.AveragePrice, 1e-9)

	open := p.OpenExecutions()
	require.Len(t, open, 1)
	assert.Equal(t, 20.0, open[0].Price)
	assert.Equal(t, 1.0, open[0].UnrealizedQuantity)

	exit := p.Executions[2]
	assert.Zero(t, exit.UnrealizedQuantity)
	assert.InDelta(t, 2*20.0+1*10.0, exit.RealizedPnL, 1e-9)
}

func TestPositionShortThenCover(t *testing.T) {
	t.Parallel()

	p := NewPosition(FIFO, 0)
	_, cf1 := execute(t, p, market.Sell, 2, 50)
	assert.Equal(t, -2.0, p.QuantitySigned)
	assert.InDelta(t, 100.0, cf1, 1e-9)

	rts, cf2 := execute(t, p, market.Buy, 2, 45)
	require.Len(t, rts, 1)
	assert.Equal(t, Short, rts[0].Side)
	assert.InDelta(t, 10.0, rts[0].GrossPnL, 1e-9)
	assert.InDelta(t, 10.0, cf1+cf2, 1e-9)
	assert.True(t, p.IsFlat())
}

func TestPositionReversalIsProhibited(t *testing.T) {
	t.Parallel()

	p := NewPosition(FIFO, 0)
	execute(t, p, market.Buy, 1, 10)

	_, _, err := p.Execute(t0, market.Sell, 2, 11, 0)
	assert.True(t, errors.Is(err, ErrProhibitedReversal))
	assert.Equal(t, 1.0, p.QuantitySigned)
	assert.Len(t, p.Executions, 1)
}

func TestPositionCloseRetainsHistory(t *testing.T) {
	t.Parallel()

	p := NewPosition(LIFO, 0)
	execute(t, p, market.Buy, 1, 10)
	execute(t, p, market.Buy, 3, 11)

	rts, cf, err := p.Close(t0.Add(time.Minute), 12, 0)
	require.NoError(t, err)
	assert.Len(t, rts, 2)
	assert.InDelta(t, 48.0, cf, 1e-9)
	assert.True(t, p.IsFlat())
	assert.Zero(t, p.Margin)
	assert.Zero(t, p.Debt)
	require.Len(t, p.Executions, 3)
	for _, e := range p.Executions {
		assert.Zero(t, e.UnrealizedQuantity)
	}

	rts, cf, err = p.Close(t0, 12, 0)
	require.NoError(t, err)
	assert.Nil(t, rts)
	assert.Zero(t, cf)
}

func TestPositionMarginAndDebt(t *testing.T) {
	t.Parallel()

	p := NewPosition(FIFO, 2)
	execute(t, p, market.Buy, 4, 10)
	assert.InDelta(t, 8.0, p.Margin, 1e-9)
	assert.InDelta(t, 32.0, p.Debt, 1e-9)

	execute(t, p, market.Buy, 1, 10)
	assert.InDelta(t, 10.0, p.Margin, 1e-9)
	assert.InDelta(t, 40.0, p.Debt, 1e-9)

	execute(t, p, market.Sell, 1, 12)
	assert.InDelta(t, 8.0, p.Margin, 1e-9)
	assert.InDelta(t, 32.0, p.Debt, 1e-9)

	execute(t, p, market.Sell, 4, 12)
	assert.Zero(t, p.Margin)
	assert.Zero(t, p.Debt)
}

func TestPositionMarkTracksOpenLotsOnly(t *testing.T) {
	t.Parallel()

	p := NewPosition(FIFO, 0)
	execute(t, p, market.Buy, 1, 10)
	execute(t, p, market.Sell, 1, 10)
	execute(t, p, market.Buy, 1, 10)

	p.Mark(15, 5)

	assert.Equal(t, 10.0, p.Executions[0].UnrealizedPriceHigh)
	assert.Equal(t, 15.0, p.Executions[2].UnrealizedPriceHigh)
	assert.Equal(t, 5.0, p.Executions[2].UnrealizedPriceLow)
}

func TestPositionValueAndROI(t *testing.T) {
	t.Parallel()

	p := NewPosition(FIFO, 0)
	execute(t, p, market.Sell, 2, 100)

	assert.InDelta(t, -180.0, p.Value(90), 1e-9)
	assert.InDelta(t, 0.1, p.ROI, 1e-9)
}

func TestPositionRejectsInvalidFills(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		side       market.Side
		qty        float64
		price      float64
		commission float64
		want       error
	}{
		{"bad side", market.Side(0), 1, 1, 0, ErrInvalidOperation},
		{"zero quantity", market.Buy, 0, 1, 0, ErrInvalidQuantity},
		{"negative quantity", market.Buy, -1, 1, 0, ErrInvalidQuantity},
		{"nan price", market.Buy, 1, math.NaN(), 0, ErrInvalidPrice},
		{"inf price", market.Sell, 1, math.Inf(1), 0, ErrInvalidPrice},
		{"nan commission", market.Buy, 1, 1, math.NaN(), ErrInvalidCommission},
		{"negative commission", market.Buy, 1, 1, -1, ErrInvalidCommission},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPosition(FIFO, 0)
			_, _, err := p.Execute(t0, tt.side, tt.qty, tt.price, tt.commission)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, p.Executions)
		})
	}
}

func TestParseMatching(t *testing.T) {
	m, err := ParseMatching("lifo")
	require.NoError(t, err)
	assert.Equal(t, LIFO, m)

	m, err = ParseMatching("")
	require.NoError(t, err)
	assert.Equal(t, FIFO, m)

	_, err = ParseMatching("hifo")
	assert.Error(t, err)
}
