package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tradesim version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "tradesim run -f "+path)
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Strategy: random")

	require.NoError(t, os.WriteFile(path, []byte("account:\n  balance: -1\n"), 0o644))
	_, err = execute(t, "config", "validate", "-f", path)
	assert.ErrorContains(t, err, "account.balance must be positive")
}

func TestRunAndExportOrg(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	cfg := config.Default()
	cfg.Run.ID = "run-test"
	cfg.Provider.Limit = 300
	cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: db, EquityInterval: config.Duration(time.Minute)}
	path := filepath.Join(dir, "sim.yaml")
	require.NoError(t, cfg.Save(path))

	out, err := execute(t, "run", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-test: random on sine")
	assert.Contains(t, out, "Trades:        300")

	out, err = execute(t, "journal", "org", "--db", db, "--run", "run-test")
	require.NoError(t, err)
	assert.Contains(t, out, "* RUN: random on sine")
	assert.Contains(t, out, ":RUN_ID:      run-test")
	assert.Contains(t, out, "#+begin_src yaml")
	assert.Contains(t, out, "** Round-trips")

	out, err = execute(t, "journal", "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "run-test")

	_, err = execute(t, "journal", "org", "--db", db, "--run", "missing")
	assert.Error(t, err)
}

func TestRunRequiresFile(t *testing.T) {
	_, err := execute(t, "run", "-f", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "load config")
}

func TestSimulateBarsWithCSVJournal(t *testing.T) {
	dir := t.TempDir()
	bars := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(bars, []byte(
		"start,end,open,high,low,close,volume\n"+
			"2024-01-02T09:30:00Z,2024-01-02T09:31:00Z,100,102,99,101,40\n"+
			"2024-01-02T09:31:00Z,2024-01-02T09:32:00Z,101,103,100,102,40\n"), 0o644))

	cfg := config.Default()
	cfg.Provider = config.ProviderConfig{Type: "bars", Path: bars, Spread: 0.001}
	cfg.Journal = config.JournalConfig{Type: "csv", Dir: filepath.Join(dir, "journal")}
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	res, err := simulate(context.Background(), cfg, zap.NewNop(), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Bars)
	assert.Contains(t, out.String(), "Bars:          2")

	for _, name := range []string{"roundtrips.csv", "equity.csv", "runs.csv"} {
		assert.FileExists(t, filepath.Join(dir, "journal", name))
	}
	runs, err := os.ReadFile(filepath.Join(dir, "journal", "runs.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(runs), bars)
}

func TestSimulateCancelled(t *testing.T) {
	cfg := config.Default()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := simulate(ctx, cfg, zap.NewNop(), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(time.UTC, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(time.UTC, "15/01/2024")
	assert.Error(t, err)
}
