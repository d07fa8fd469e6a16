package journal

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies Schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRoundtrip(r RoundtripRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO roundtrips
		(id, run_id, account, side, quantity, entry_time, entry_price, exit_time, exit_price,
		 gross_pnl, commission, net_pnl, mae, mfe, total_efficiency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RunID, r.Account, r.Side, r.Quantity,
		r.EntryTime.UTC(), r.EntryPrice, r.ExitTime.UTC(), r.ExitPrice,
		r.GrossPnL, r.Commission, r.NetPnL, r.MAE, r.MFE, r.TotalEfficiency,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, account, time, balance, cash, price)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Account, e.Time.UTC(), e.Balance, e.Cash, e.Price,
	)
	return err
}

// RecordRun inserts r, or replaces the row of the same run id.
func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, strategy, provider, config, start_time, end_time,
		 trades, roundtrips, wins, losses, rejected, start_balance, end_balance,
		 net_pl, return_pct, win_rate, profit_factor, max_dd_pct, halted, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Strategy, r.Provider, r.Config, r.Start.UTC(), r.End.UTC(),
		r.Trades, r.Roundtrips, r.Wins, r.Losses, r.Rejected, r.StartBalance, r.EndBalance,
		r.NetPL, r.ReturnPct, r.WinRate, r.ProfitFactor, r.MaxDDPct, r.Halted,
		strings.Join(r.Notes, "\n"),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
