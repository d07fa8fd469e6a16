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

type recordingReport struct {
	added   [][]Roundtrip
	updates int
	resets  int
}

func (r *recordingReport) Add(rts []Roundtrip)                         { r.added = append(r.added, rts) }
func (r *recordingReport) Update(time.Time, float64, float64, float64) { r.updates++ }
func (r *recordingReport) Reset()                                      { r.resets++ }

func TestAccountExecuteUpdatesCashAndBalance(t *testing.T) {
	t.Parallel()

	rep := &recordingReport{}
	a := New(1000, WithID("acct-1"), WithReport(rep))

	bal, err := a.Execute(t0, market.Buy, 10, 50, 5)
	require.NoError(t, err)
	assert.InDelta(t, 1000-500-5.0, a.Cash, 1e-9)
	assert.InDelta(t, 995.0, bal, 1e-9)
	assert.Empty(t, rep.added)

	bal, err = a.Execute(t0.Add(time.Minute), market.Sell, 10, 60, 5)
	require.NoError(t, err)
	assert.InDelta(t, 1090.0, bal, 1e-9)
	assert.InDelta(t, a.Cash, a.Balance, 1e-9)
	require.Len(t, rep.added, 1)
	require.Len(t, rep.added[0], 1)
	assert.InDelta(t, 90.0, rep.added[0][0].NetPnL, 1e-9)
	assert.Equal(t, 2, rep.updates)
}

func TestAccountBalanceIsCashPlusValue(t *testing.T) {
	t.Parallel()

	a := New(1000)
	_, err := a.Execute(t0, market.Sell, 2, 100, 0)
	require.NoError(t, err)

	a.UpdateBalance(t0.Add(time.Second), 120)
	assert.InDelta(t, a.Cash+a.Position.Value(120), a.Balance, 1e-9)
	assert.InDelta(t, 960.0, a.Balance, 1e-9)
}

func TestAccountDrawdown(t *testing.T) {
	t.Parallel()

	a := New(1000)
	_, err := a.Execute(t0, market.Buy, 1, 100, 0)
	require.NoError(t, err)

	for _, p := range []float64{150, 120, 130, 90, 200, 180} {
		a.UpdateBalance(t0, p)
	}

	assert.InDelta(t, 1100.0, a.MaxBalance, 1e-9)
	assert.InDelta(t, 1080.0, a.MinBalance, 1e-9)
	// peak 1050 to trough 990
	assert.InDelta(t, 60.0, a.MaxDrawdown, 1e-9)
}

func TestAccountClosePosition(t *testing.T) {
	t.Parallel()

	a := New(1000)
	bal, err := a.ClosePosition(t0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bal)

	_, err = a.Execute(t0, market.Sell, 3, 10, 0)
	require.NoError(t, err)
	bal, err = a.ClosePosition(t0, 8, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1005.0, bal, 1e-9)
	assert.False(t, a.HasPosition())
}

func TestAccountRejectsBadInput(t *testing.T) {
	t.Parallel()

	a := New(1000)

	_, err := a.Execute(t0, market.Side(3), 1, 1, 0)
	assert.True(t, errors.Is(err, ErrInvalidOperation))
	_, err = a.Execute(t0, market.Buy, 0, 1, 0)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
	_, err = a.Execute(t0, market.Buy, 1, math.Inf(-1), 0)
	assert.True(t, errors.Is(err, ErrInvalidPrice))
	_, err = a.Execute(t0, market.Buy, 1, 1, math.NaN())
	assert.True(t, errors.Is(err, ErrInvalidCommission))

	_, err = a.Execute(t0, market.Buy, 1, 1, 0)
	require.NoError(t, err)
	_, err = a.Execute(t0, market.Sell, 5, 1, 0)
	assert.True(t, errors.Is(err, ErrProhibitedReversal))
	assert.Equal(t, 1.0, a.Position.QuantitySigned)
	assert.Equal(t, 999.0, a.Cash)
}

func TestAccountReset(t *testing.T) {
	t.Parallel()

	rep := &recordingReport{}
	a := New(500, WithReport(rep))
	a.Subscribe(SubscriberFunc(func(*Account, time.Time) {}))
	_, err := a.Execute(t0, market.Buy, 1, 100, 0)
	require.NoError(t, err)
	a.UpdateBalance(t0, 10)
	a.IsHalted = true

	a.Reset()

	assert.Equal(t, 500.0, a.Cash)
	assert.Equal(t, 500.0, a.Balance)
	assert.Equal(t, 500.0, a.MaxBalance)
	assert.Zero(t, a.MaxDrawdown)
	assert.False(t, a.IsHalted)
	assert.True(t, a.Position.IsFlat())
	assert.Empty(t, a.Position.OpenExecutions())
	assert.Empty(t, a.subs)
	assert.Equal(t, 1, rep.resets)
}

func TestAccountSubscribers(t *testing.T) {
	t.Parallel()

	a := New(100)
	var calls []string
	var at time.Time

	h1 := a.Subscribe(SubscriberFunc(func(acct *Account, when time.Time) {
		calls = append(calls, "first")
		at = when
	}))
	a.Subscribe(SubscriberFunc(func(*Account, time.Time) { calls = append(calls, "second") }))

	a.Notify(t0)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, t0, at)

	assert.True(t, a.Unsubscribe(h1))
	assert.False(t, a.Unsubscribe(h1))

	calls = nil
	a.Notify(t0)
	assert.Equal(t, []string{"second"}, calls)
}

func TestSummaryTallies(t *testing.T) {
	t.Parallel()

	a := New(1000)
	steps := []struct {
		side  market.Side
		qty   float64
		price float64
	}{
		{market.Buy, 1, 100},
		{market.Sell, 1, 110}, // +10
		{market.Sell, 1, 110},
		{market.Buy, 1, 125}, // -15
		{market.Buy, 2, 100},
		{market.Sell, 2, 101}, // +2
	}
	for _, s := range steps {
		_, err := a.Execute(t0, s.side, s.qty, s.price, 0)
		require.NoError(t, err)
	}

	sum, ok := a.Report.(*Summary)
	require.True(t, ok)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 2, sum.Long)
	assert.Equal(t, 1, sum.Short)
	assert.Equal(t, 2, sum.Winners)
	assert.Equal(t, 1, sum.Losers)
	assert.InDelta(t, -3.0, sum.NetPnL, 1e-9)
	assert.InDelta(t, 15.0, sum.MaxDrawdown, 1e-9)
	assert.InDelta(t, 15.0/1010, sum.MaxDrawdownPercent, 1e-9)
	assert.InDelta(t, 2.0/3, sum.WinRate(), 1e-9)
	assert.InDelta(t, 997.0/1000, sum.RateOfReturn(), 1e-9)

	sum.Reset()
	assert.Zero(t, sum.Count)
	assert.Empty(t, sum.Roundtrips)
	assert.Equal(t, 1000.0, sum.InitialBalance)
}
