package sim

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/journal"
)

// Result is the summary of one episode.
type Result struct {
	Start time.Time
	End   time.Time

	Trades    int
	Bars      int
	Decisions int
	Rejected  int
	Pending   int

	StartBalance float64
	EndBalance   float64
	Cash         float64
	Position     float64
	MaxDrawdown  float64
	Halted       bool
	ClosedAtEnd  bool

	// from the account summary, zero when the report keeps none
	Roundtrips   int
	Wins         int
	Losses       int
	NetPnL       float64
	Commission   float64
	WinRate      float64
	ProfitFactor float64
	AverageMAE   float64
	AverageMFE   float64
}

func (r *Result) fill(s *account.Summary) {
	r.Roundtrips = s.Count
	r.Wins = s.Winners
	r.Losses = s.Losers
	r.NetPnL = s.NetPnL
	r.Commission = s.Commission
	r.WinRate = s.WinRate()
	r.AverageMAE = s.AverageMAE()
	r.AverageMFE = s.AverageMFE()

	var profit, loss float64
	for _, rt := range s.Roundtrips {
		if rt.NetPnL > 0 {
			profit += rt.NetPnL
		} else {
			loss -= rt.NetPnL
		}
	}
	if loss > 0 {
		r.ProfitFactor = profit / loss
	}
}

// ReturnPct is the balance change in percent of the start balance.
func (r Result) ReturnPct() float64 {
	if r.StartBalance == 0 {
		return 0
	}
	return 100 * (r.EndBalance - r.StartBalance) / r.StartBalance
}

// MaxDrawdownPct is the largest balance drawdown in percent of the start
// balance.
func (r Result) MaxDrawdownPct() float64 {
	if r.StartBalance == 0 {
		return 0
	}
	return 100 * r.MaxDrawdown / r.StartBalance
}

// RunRecord converts r for the journal.
func (r Result) RunRecord(runID, strategyName, providerName string, config []byte) journal.RunRecord {
	return journal.RunRecord{
		RunID:        runID,
		Created:      time.Now().UTC(),
		Strategy:     strategyName,
		Provider:     providerName,
		Config:       config,
		Start:        r.Start,
		End:          r.End,
		Trades:       r.Trades,
		Roundtrips:   r.Roundtrips,
		Wins:         r.Wins,
		Losses:       r.Losses,
		Rejected:     r.Rejected,
		StartBalance: r.StartBalance,
		EndBalance:   r.EndBalance,
		NetPL:        r.EndBalance - r.StartBalance,
		ReturnPct:    r.ReturnPct(),
		WinRate:      r.WinRate,
		ProfitFactor: r.ProfitFactor,
		MaxDDPct:     r.MaxDrawdownPct(),
		Halted:       r.Halted,
	}
}

func PrintResult(w io.Writer, title string, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " %s\n", title)
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	if r.Bars > 0 {
		fmt.Fprintf(w, "Bars:          %d\n", r.Bars)
	}
	fmt.Fprintf(w, "Decisions:     %d\n", r.Decisions)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Round-trips")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Round-trips:   %d\n", r.Roundtrips)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", 100*r.WinRate)
	if r.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", r.ProfitFactor)
	}
	fmt.Fprintf(w, "Avg MAE:       %.2f%%\n", r.AverageMAE)
	fmt.Fprintf(w, "Avg MFE:       %.2f%%\n", r.AverageMFE)
	fmt.Fprintf(w, "Rejected:      %d\n", r.Rejected)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %.2f\n", r.StartBalance)
	fmt.Fprintf(w, "End Balance:   %.2f\n", r.EndBalance)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.EndBalance-r.StartBalance)
	fmt.Fprintf(w, "Commission:    %.2f\n", r.Commission)
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.ReturnPct())
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDrawdownPct())
	if r.Position != 0 {
		fmt.Fprintf(w, "Open Position: %g\n", r.Position)
	}
	if r.Halted {
		fmt.Fprintln(w, "Halted:        yes")
	}
	fmt.Fprintln(w)
}
