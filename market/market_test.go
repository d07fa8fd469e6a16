package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price float64
		step  float64
		want  float64
	}{
		{"already on grid", 95, 1, 95},
		{"rounds down", 95.4, 1, 95},
		{"half rounds up", 95.5, 1, 96},
		{"fractional step", 1.234567, 0.0001, 1.2346},
		{"quarter step", 10.13, 0.25, 10.25},
		{"no step", 1.23456, 0, 1.23456},
		{"negative price", -2.4, 1, -2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, SnapPrice(tt.price, tt.step), 1e-12)
		})
	}

	assert.True(t, math.IsInf(SnapPrice(math.Inf(1), 1), 1))
}

func TestSide(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, -1.0, Sell.Sign())
	assert.False(t, Side(0).Valid())
	assert.Equal(t, "B", Buy.String())
	assert.Equal(t, Sell, SideOf(-3))

	s, err := ParseSide("sell")
	require.NoError(t, err)
	assert.Equal(t, Sell, s)

	_, err = ParseSide("hold")
	assert.Error(t, err)
}

func TestZigZagHighFirst(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	bar := Bar{
		Start: start, End: start.Add(9 * time.Second),
		Open: 10, High: 12, Low: 9, Close: 11, Volume: 90,
	}

	trades, err := ZigZag(bar, 1, true)
	require.NoError(t, err)

	// 10,11,12 | 11,10,9 | 10,11
	var prices []float64
	for _, tr := range trades {
		prices = append(prices, tr.Price)
	}
	assert.Equal(t, []float64{10, 11, 12, 11, 10, 9, 10, 11}, prices)
	assert.Equal(t, Buy, trades[0].Side)
	assert.Equal(t, Sell, trades[3].Side)
	assert.Equal(t, Buy, trades[7].Side)

	for i := 1; i < len(trades); i++ {
		assert.False(t, trades[i].Time.Before(trades[i-1].Time))
	}
	assert.InDelta(t, 90.0/8, trades[0].Amount, 1e-12)
}

func TestZigZagLowFirst(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	bar := Bar{Start: start, End: start.Add(time.Minute), Open: 10, High: 11, Low: 9, Close: 10, Volume: 1}

	trades, err := ZigZag(bar, 1, false)
	require.NoError(t, err)

	var prices []float64
	for _, tr := range trades {
		prices = append(prices, tr.Price)
	}
	assert.Equal(t, []float64{10, 9, 10, 11, 10}, prices)
}

func TestZigZagRejectsBadInput(t *testing.T) {
	_, err := ZigZag(Bar{High: 1, Low: 2}, 1, true)
	assert.Error(t, err)

	_, err = ZigZag(Bar{High: 2, Low: 1}, 0, true)
	assert.Error(t, err)

	_, err = ZigZag(Bar{Open: 1, High: math.NaN(), Low: 1, Close: 1}, 1, true)
	assert.Error(t, err)
}

func TestZigZagCapsTheExpansion(t *testing.T) {
	bar := Bar{Open: 100, High: 110, Low: 90, Close: 105}

	_, err := ZigZag(bar, 1e-9, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than")

	// 45 points of range in steps of 1e-3
	trades, err := ZigZag(bar, 1e-3, true)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(trades), MaxBarTrades)
}
