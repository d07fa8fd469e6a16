package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/sim"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a config file",
	Long: `Run one episode using settings from a configuration file.

The config file selects the market data provider, the broker
latency and commission model, the strategy and the journal.

Example:
  tradesim run -f sim.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg.Run.LogLevel, cfg.Run.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	_, err = simulate(ctx, cfg, log, cmd.OutOrStdout())
	return err
}

// simulate wires one episode from cfg, runs it, journals it when a
// journal is configured and prints the result to w.
func simulate(ctx context.Context, cfg *config.Config, log *zap.Logger, w io.Writer) (sim.Result, error) {
	runID := cfg.Run.ID
	if runID == "" {
		runID = id.New()
	}
	log = log.With(zap.String("run", runID))

	j, err := cfg.OpenJournal()
	if err != nil {
		return sim.Result{}, fmt.Errorf("open journal: %w", err)
	}
	var (
		rec    *journal.Recorder
		report account.Report
	)
	if j != nil {
		defer j.Close()
		rec = journal.NewRecorder(j, runID, cfg.Account.ID, cfg.Account.Balance, cfg.Journal.EquityInterval.D(), log)
		report = rec
	}

	acct, err := cfg.NewAccount(report)
	if err != nil {
		return sim.Result{}, fmt.Errorf("account: %w", err)
	}
	opts, err := cfg.BrokerOptions(log)
	if err != nil {
		return sim.Result{}, fmt.Errorf("broker: %w", err)
	}
	b, err := broker.New(opts)
	if err != nil {
		return sim.Result{}, fmt.Errorf("broker: %w", err)
	}
	strat, err := cfg.NewStrategy()
	if err != nil {
		return sim.Result{}, fmt.Errorf("strategy: %w", err)
	}
	runner, err := sim.New(b, acct, strat, cfg.SimConfig(log))
	if err != nil {
		return sim.Result{}, fmt.Errorf("runner: %w", err)
	}

	src, err := cfg.OpenProvider()
	if err != nil {
		return sim.Result{}, fmt.Errorf("open provider: %w", err)
	}
	var res sim.Result
	if src.Bars != nil {
		res, err = runner.RunBars(ctx, src.Bars, src.Spread)
	} else {
		res, err = runner.Run(ctx, src.Trades)
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", runID, err)
	}

	if j != nil {
		rec.Flush()
		raw, err := cfg.Marshal(false)
		if err != nil {
			return res, fmt.Errorf("marshal config: %w", err)
		}
		rr := res.RunRecord(runID, strat.Name(), src.Name, raw)
		if res.Halted {
			rr.Notes = append(rr.Notes, "account halted on a negative balance")
		}
		if err := rec.Err(); err != nil {
			rr.Notes = append(rr.Notes, "journal errors: "+err.Error())
		}
		if err := j.RecordRun(rr); err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
	}

	sim.PrintResult(w, fmt.Sprintf("Run %s: %s on %s", runID, strat.Name(), src.Name), res)
	return res, nil
}
