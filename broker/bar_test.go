package broker

import (
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBarWalksTheRange(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 4; seed++ {
		a := account.New(1_000)
		b := newTestBroker(t, func(o *Options) { o.Seed = seed }, a)

		bar := market.Bar{Start: at(0), End: at(60), Open: 2, High: 3, Low: 1, Close: 2, Volume: 10}
		add(t, b, LimitOrder{Base: Base{Account: a, Side: market.Buy, Amount: 1, TimeInit: bar.Start}, Price: 1.5})

		// step = 0.5 * (3+1)/2 = 1
		require.NoError(t, b.ProcessBar(bar, 0.5))

		last, ok := b.LastTrade()
		require.True(t, ok)
		assert.Equal(t, 2.0, last.Price)
		assert.True(t, last.Time.Before(bar.End))
		assert.Equal(t, 2.0, last.Amount)

		require.Len(t, a.Position.Executions, 1, "seed %d", seed)
		assert.Equal(t, 1.5, a.Position.Executions[0].Price)
	}
}

func TestProcessBarRejectsBadStep(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t, nil)
	bar := market.Bar{Start: t0, End: t0.Add(time.Minute), Open: 1, High: 1, Low: 1, Close: 1}
	assert.Error(t, b.ProcessBar(bar, 0))
}

func TestProcessBarKeepsGoingAfterARejectedFill(t *testing.T) {
	t.Parallel()

	a := account.New(10_000)
	b := newTestBroker(t, nil, a)

	add(t, b, MarketOrder{Base{Account: a, Side: market.Buy, Amount: 1, TimeInit: at(0)}})
	feed(t, b, tick(0, market.Buy, 100))
	require.Equal(t, 1.0, a.Position.QuantitySigned)

	// selling 2 out of a long 1 is a reversal, the limit buy is not
	add(t, b, MarketOrder{Base{Account: a, Side: market.Sell, Amount: 2, TimeInit: at(1)}})
	add(t, b, LimitOrder{Base: Base{Account: a, Side: market.Buy, Amount: 1, TimeInit: at(1)}, Price: 95})

	bar := market.Bar{Start: at(1), End: at(61), Open: 100, High: 110, Low: 90, Close: 105}
	err := b.ProcessBar(bar, 0.01)
	require.Error(t, err)
	assert.ErrorIs(t, err, account.ErrProhibitedReversal)

	last, ok := b.LastTrade()
	require.True(t, ok)
	assert.Equal(t, 105.0, last.Price, "the whole bar was replayed")
	assert.Equal(t, 2.0, a.Position.QuantitySigned)
	assert.Zero(t, b.Len())
}

func TestBarTradesEndAtTheClose(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t, nil)
	bar := market.Bar{Start: at(0), End: at(60), Open: 100, High: 110, Low: 90, Close: 105}
	trades, err := b.BarTrades(bar, 0.01)
	require.NoError(t, err)
	require.NotEmpty(t, trades)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 105.0, trades[len(trades)-1].Price)

	_, err = b.BarTrades(market.Bar{Start: at(0), End: at(60), Open: 1, High: 2, Low: 3, Close: 1}, 0.01)
	assert.ErrorIs(t, err, ErrInvalidTrade)
}
