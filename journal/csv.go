package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	roundtripHeader = []string{"id", "run_id", "account", "side", "quantity", "entry_time", "entry_price", "exit_time", "exit_price", "gross_pnl", "commission", "net_pnl", "mae", "mfe", "total_efficiency"}
	equityHeader    = []string{"run_id", "account", "time", "balance", "cash", "price"}
	runHeader       = []string{"run_id", "created", "strategy", "provider", "start", "end", "trades", "roundtrips", "wins", "losses", "rejected", "start_balance", "end_balance", "net_pl", "return_pct", "win_rate", "profit_factor", "max_dd_pct", "halted"}
)

// CSVJournal writes roundtrips.csv, equity.csv and runs.csv into a
// directory. Rows are flushed as they are recorded.
type CSVJournal struct {
	roundtrips *csv.Writer
	equity     *csv.Writer
	runs       *csv.Writer
	files      []*os.File
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	j := &CSVJournal{}
	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		return w, writeRow(w, header)
	}

	var err error
	if j.roundtrips, err = open("roundtrips.csv", roundtripHeader); err != nil {
		return nil, errors.Join(err, j.closeFiles())
	}
	if j.equity, err = open("equity.csv", equityHeader); err != nil {
		return nil, errors.Join(err, j.closeFiles())
	}
	if j.runs, err = open("runs.csv", runHeader); err != nil {
		return nil, errors.Join(err, j.closeFiles())
	}
	return j, nil
}

func (j *CSVJournal) RecordRoundtrip(r RoundtripRecord) error {
	return writeRow(j.roundtrips, []string{
		r.ID,
		r.RunID,
		r.Account,
		r.Side,
		f(r.Quantity),
		ts(r.EntryTime),
		f(r.EntryPrice),
		ts(r.ExitTime),
		f(r.ExitPrice),
		money(r.GrossPnL),
		money(r.Commission),
		money(r.NetPnL),
		f(r.MAE),
		f(r.MFE),
		f(r.TotalEfficiency),
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return writeRow(j.equity, []string{
		e.RunID,
		e.Account,
		ts(e.Time),
		money(e.Balance),
		money(e.Cash),
		f(e.Price),
	})
}

func (j *CSVJournal) RecordRun(r RunRecord) error {
	return writeRow(j.runs, []string{
		r.RunID,
		ts(r.Created),
		r.Strategy,
		r.Provider,
		ts(r.Start),
		ts(r.End),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Roundtrips),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		strconv.Itoa(r.Rejected),
		money(r.StartBalance),
		money(r.EndBalance),
		money(r.NetPL),
		f(r.ReturnPct),
		f(r.WinRate),
		f(r.ProfitFactor),
		f(r.MaxDDPct),
		strconv.FormatBool(r.Halted),
	})
}

func (j *CSVJournal) Close() error {
	var errs []error
	for _, w := range []*csv.Writer{j.roundtrips, j.equity, j.runs} {
		w.Flush()
		errs = append(errs, w.Error())
	}
	errs = append(errs, j.closeFiles())
	return errors.Join(errs...)
}

func (j *CSVJournal) closeFiles() error {
	var errs []error
	for _, f := range j.files {
		errs = append(errs, f.Close())
	}
	j.files = nil
	return errors.Join(errs...)
}

func writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// money renders cash amounts with a fixed six decimals.
func money(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(6)
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
