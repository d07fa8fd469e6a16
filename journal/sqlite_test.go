package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["roundtrips"])
	assert.True(t, found["equity"])

	// reopening applies the schema again without error
	again, err := NewSQLite(path)
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestSQLiteRoundtrips(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	second := sampleRoundtrip("rt-2", t0.Add(2*time.Hour), -4)
	first := sampleRoundtrip("rt-1", t0.Add(time.Hour), 10)
	other := sampleRoundtrip("rt-3", t0.Add(90*time.Minute), 1)
	other.RunID = "run-2"
	for _, r := range []RoundtripRecord{second, first, other} {
		require.NoError(t, j.RecordRoundtrip(r))
	}

	got, err := j.ListRoundtrips(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rt-1", got[0].ID)
	assert.Equal(t, "rt-2", got[1].ID)
	assert.True(t, got[0].ExitTime.Equal(first.ExitTime))
	assert.True(t, got[0].EntryTime.Equal(t0))
	assert.Equal(t, first.ExitPrice, got[0].ExitPrice)
	assert.Equal(t, first.MAE, got[0].MAE)
	assert.Equal(t, -4.0, got[1].NetPnL)

	between, err := j.ListRoundtripsClosedBetween(ctx, t0.Add(time.Hour), t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, "rt-1", between[0].ID)
	assert.Equal(t, "rt-3", between[1].ID)

	one, err := j.GetRoundtrip(ctx, "rt-3")
	require.NoError(t, err)
	assert.Equal(t, "run-2", one.RunID)

	_, err = j.GetRoundtrip(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, j.RecordRoundtrip(first), "duplicate id")
}

func TestSQLiteEquity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	for i := 3; i >= 0; i-- {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			RunID:   "run-1",
			Account: "acct",
			Time:    t0.Add(time.Duration(i) * time.Minute),
			Balance: 1000 + float64(i),
			Cash:    900,
			Price:   100,
		}))
	}
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "run-2", Time: t0}))

	eq, err := j.ListEquity(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, eq, 4)
	for i, e := range eq {
		assert.True(t, e.Time.Equal(t0.Add(time.Duration(i)*time.Minute)))
		assert.Equal(t, 1000+float64(i), e.Balance)
	}
}

func TestSQLiteRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	run := sampleRun()
	require.NoError(t, j.RecordRun(run))

	got, err := j.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Strategy, got.Strategy)
	assert.Equal(t, run.Config, got.Config)
	assert.Equal(t, run.Notes, got.Notes)
	assert.Equal(t, run.Trades, got.Trades)
	assert.Equal(t, run.WinRate, got.WinRate)
	assert.True(t, got.Start.Equal(run.Start))
	assert.True(t, got.End.Equal(run.End))
	assert.False(t, got.Halted)

	// recording the same run again replaces it
	run.Halted = true
	run.Notes = nil
	require.NoError(t, j.RecordRun(run))
	require.NoError(t, j.RecordRun(RunRecord{RunID: "run-0", Created: t0, Strategy: "noop"}))

	runs, err := j.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.True(t, runs[0].Halted)
	assert.Nil(t, runs[0].Notes)
	assert.Equal(t, "run-0", runs[1].RunID)

	_, err = j.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteExportRunOrg(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.RecordRun(sampleRun()))
	require.NoError(t, j.RecordRoundtrip(sampleRoundtrip("rt-1", t0.Add(time.Hour), 10)))
	require.NoError(t, j.RecordRoundtrip(sampleRoundtrip("rt-2", t0.Add(2*time.Hour), -4)))

	out, err := j.ExportRunOrg(ctx, "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "* RUN: random on sine\n")
	assert.Contains(t, out, "\n** Round-trips\n*** LONG acct 2 @ 100.00000 -> 105.00000 (rt-1)\n")
	assert.Contains(t, out, ":ID: rt-2\n")

	_, err = j.ExportRunOrg(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
