package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("journal: not found")

const roundtripColumns = `id, run_id, account, side, quantity, entry_time, entry_price, exit_time, exit_price,
	gross_pnl, commission, net_pnl, mae, mfe, total_efficiency`

const runColumns = `run_id, created, strategy, provider, config, start_time, end_time,
	trades, roundtrips, wins, losses, rejected, start_balance, end_balance,
	net_pl, return_pct, win_rate, profit_factor, max_dd_pct, halted, notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRoundtrip(s scanner) (RoundtripRecord, error) {
	var r RoundtripRecord
	err := s.Scan(
		&r.ID,
		&r.RunID,
		&r.Account,
		&r.Side,
		&r.Quantity,
		&r.EntryTime,
		&r.EntryPrice,
		&r.ExitTime,
		&r.ExitPrice,
		&r.GrossPnL,
		&r.Commission,
		&r.NetPnL,
		&r.MAE,
		&r.MFE,
		&r.TotalEfficiency,
	)
	return r, err
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		r     RunRecord
		notes string
	)
	err := s.Scan(
		&r.RunID,
		&r.Created,
		&r.Strategy,
		&r.Provider,
		&r.Config,
		&r.Start,
		&r.End,
		&r.Trades,
		&r.Roundtrips,
		&r.Wins,
		&r.Losses,
		&r.Rejected,
		&r.StartBalance,
		&r.EndBalance,
		&r.NetPL,
		&r.ReturnPct,
		&r.WinRate,
		&r.ProfitFactor,
		&r.MaxDDPct,
		&r.Halted,
		&notes,
	)
	if notes != "" {
		r.Notes = strings.Split(notes, "\n")
	}
	return r, err
}

// GetRun returns the summary row of runID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("%w: run %q", ErrNotFound, runID)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns all runs, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRoundtrip returns a single round-trip by id.
func (j *SQLite) GetRoundtrip(ctx context.Context, id string) (RoundtripRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+roundtripColumns+` FROM roundtrips WHERE id = ?`, id)
	r, err := scanRoundtrip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RoundtripRecord{}, fmt.Errorf("%w: roundtrip %q", ErrNotFound, id)
		}
		return RoundtripRecord{}, err
	}
	return r, nil
}

// ListRoundtrips returns the round-trips of runID in exit order.
func (j *SQLite) ListRoundtrips(ctx context.Context, runID string) ([]RoundtripRecord, error) {
	return j.queryRoundtrips(ctx, `
		SELECT `+roundtripColumns+`
		FROM roundtrips
		WHERE run_id = ?
		ORDER BY exit_time ASC, id ASC`, runID)
}

// ListRoundtripsClosedBetween returns round-trips of every run whose exit
// time is within [start, end).
func (j *SQLite) ListRoundtripsClosedBetween(ctx context.Context, start, end time.Time) ([]RoundtripRecord, error) {
	return j.queryRoundtrips(ctx, `
		SELECT `+roundtripColumns+`
		FROM roundtrips
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, id ASC`, start.UTC(), end.UTC())
}

func (j *SQLite) queryRoundtrips(ctx context.Context, query string, args ...any) ([]RoundtripRecord, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundtripRecord
	for rows.Next() {
		r, err := scanRoundtrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListEquity returns the equity samples of runID in time order.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, account, time, balance, cash, price
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Account, &e.Time, &e.Balance, &e.Cash, &e.Price); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExportRunOrg renders the run summary followed by its round-trips as Org.
func (j *SQLite) ExportRunOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	rts, err := j.ListRoundtrips(ctx, runID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := WriteRunOrg(&b, run); err != nil {
		return "", err
	}
	if len(rts) > 0 {
		b.WriteString("\n** Round-trips\n")
		b.WriteString(FormatRoundtripsOrg(rts))
	}
	return b.String(), nil
}
