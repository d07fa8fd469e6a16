package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the run journal",
	Long: `Query and display run records from a SQLite journal.

Subcommands:
  org   - Export one run and its round-trips as Org
  runs  - List recorded runs
  day   - List round-trips closed on a specific day

Examples:
  tradesim journal org --db runs.db --run 01HV...
  tradesim journal runs --db runs.db
  tradesim journal day --db runs.db 2024-01-15`,
}

var journalOrgCmd = &cobra.Command{
	Use:   "org",
	Short: "Export a run as an Org document",
	Args:  cobra.NoArgs,
	RunE:  runJournalOrg,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List round-trips closed on a specific day (UTC)",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalDBPath string
	journalRunID  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalOrgCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./tradesim.sqlite", "path to SQLite journal DB")
	journalOrgCmd.Flags().StringVarP(&journalRunID, "run", "r", "", "run id (required)")
	journalOrgCmd.MarkFlagRequired("run")
}

func runJournalOrg(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	doc, err := j.ExportRunOrg(cmd.Context(), journalRunID)
	if err != nil {
		return fmt.Errorf("export run %s: %w", journalRunID, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), doc)
	return nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %-10s %5d round-trips  %10.2f  %7.2f%%\n",
			r.RunID, r.Strategy, r.Roundtrips, r.NetPL, r.ReturnPct)
	}
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.UTC, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListRoundtripsClosedBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query round-trips: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatRoundtripsOrg(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
