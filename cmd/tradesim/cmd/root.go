package cmd

import (
	"github.com/rustyeddy/tradesim/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "tradesim",
	Short: "A trade-level market simulator with a delayed, probabilistic broker",
	Long: `Tradesim replays a stream of market trades through a simulated broker.

It provides tools for:
  - Running a strategy against synthetic or recorded trades
  - Matching market, limit, stop and trailing stop orders with latency
  - Lot accounting with round-trips, MAE/MFE and drawdown
  - Journaling runs to CSV or SQLite and exporting them as Org

Start with:
  tradesim config init -o sim.yaml
  tradesim run -f sim.yaml`,
	SilenceUsage: true,
}

var (
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console or json); overrides the config")
}

// newLogger prefers the command line over the config values.
func newLogger(level, format string) (*zap.Logger, error) {
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return logger.New(level, format)
}
