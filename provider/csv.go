package provider

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// CSVTrades reads trade rows:
//
//	time,side,amount,price
//
// where time is RFC3339 or RFC3339Nano and side is B/S or buy/sell.
//
// It optionally filters trades to [From, To) if provided.
// A header row ("time,...") is allowed. Empty and short rows are skipped.
type CSVTrades struct {
	c    io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
	line     int
}

func NewCSVTrades(path string, from, to time.Time) (*CSVTrades, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p := NewCSVTradesReader(f, from, to)
	p.c = f
	return p, nil
}

// NewCSVTradesReader reads from r. Close does not close r.
func NewCSVTradesReader(r io.Reader, from, to time.Time) *CSVTrades {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return &CSVTrades{r: cr, from: from, to: to}
}

func (f *CSVTrades) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

func (f *CSVTrades) Next() (market.Trade, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Trade{}, false, nil
		}
		if err != nil {
			return market.Trade{}, false, err
		}
		f.line++
		if len(row) == 0 {
			continue
		}

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		tr, ok, err := parseTradeRow(row)
		if err != nil {
			return market.Trade{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !ok || !inRange(tr.Time, f.from, f.to) {
			continue
		}
		return tr, true, nil
	}
}

func parseTradeRow(row []string) (market.Trade, bool, error) {
	if len(row) < 4 {
		return market.Trade{}, false, nil
	}
	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Trade{}, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return market.Trade{}, false, err
	}
	side, err := market.ParseSide(strings.TrimSpace(row[1]))
	if err != nil {
		return market.Trade{}, false, err
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return market.Trade{}, false, fmt.Errorf("bad amount %q: %w", row[2], err)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return market.Trade{}, false, fmt.Errorf("bad price %q: %w", row[3], err)
	}
	return market.Trade{Time: t, Side: side, Amount: amount, Price: price}, true, nil
}

// WriteCSVTrades writes trades in the format CSVTrades reads, header
// included.
func WriteCSVTrades(w io.Writer, trades []market.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "side", "amount", "price"}); err != nil {
		return err
	}
	for _, tr := range trades {
		rec := []string{
			tr.Time.UTC().Format(time.RFC3339Nano),
			tr.Side.String(),
			strconv.FormatFloat(tr.Amount, 'f', -1, 64),
			strconv.FormatFloat(tr.Price, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVBars reads bar rows:
//
//	start,end,open,high,low,close,volume
type CSVBars struct {
	c        io.Closer
	r        *csv.Reader
	sawFirst bool
	line     int
}

func NewCSVBars(path string) (*CSVBars, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p := NewCSVBarsReader(f)
	p.c = f
	return p, nil
}

func NewCSVBarsReader(r io.Reader) *CSVBars {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return &CSVBars{r: cr}
}

func (f *CSVBars) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

func (f *CSVBars) NextBar() (market.Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		f.line++
		if len(row) < 7 {
			continue
		}
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "start") {
				continue
			}
		}

		start, err := parseTime(strings.TrimSpace(row[0]))
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		end, err := parseTime(strings.TrimSpace(row[1]))
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		var v [5]float64
		for i := range v {
			if v[i], err = strconv.ParseFloat(strings.TrimSpace(row[2+i]), 64); err != nil {
				return market.Bar{}, false, fmt.Errorf("line %d: bad number %q: %w", f.line, row[2+i], err)
			}
		}
		return market.Bar{Start: start, End: end, Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: v[4]}, true, nil
	}
}

func parseTime(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}
	return t, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
