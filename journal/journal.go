// Package journal persists what an episode produced: closed round-trips,
// sampled equity and one summary row per run.
package journal

import (
	"time"

	"github.com/rustyeddy/tradesim/account"
)

// RoundtripRecord is one closed round-trip of one account in one run.
type RoundtripRecord struct {
	ID      string
	RunID   string
	Account string
	Side    string // long or short

	Quantity   float64
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64

	GrossPnL   float64
	Commission float64
	NetPnL     float64

	MAE             float64
	MFE             float64
	TotalEfficiency float64
}

// NewRoundtripRecord flattens rt for storage.
func NewRoundtripRecord(id, runID, acct string, rt account.Roundtrip) RoundtripRecord {
	return RoundtripRecord{
		ID:              id,
		RunID:           runID,
		Account:         acct,
		Side:            rt.Side.String(),
		Quantity:        rt.Quantity,
		EntryTime:       rt.EntryTime,
		EntryPrice:      rt.EntryPrice,
		ExitTime:        rt.ExitTime,
		ExitPrice:       rt.ExitPrice,
		GrossPnL:        rt.GrossPnL,
		Commission:      rt.Commission,
		NetPnL:          rt.NetPnL,
		MAE:             rt.MaximumAdverseExcursion,
		MFE:             rt.MaximumFavorableExcursion,
		TotalEfficiency: rt.TotalEfficiency,
	}
}

type EquitySnapshot struct {
	RunID   string
	Account string
	Time    time.Time
	Balance float64
	Cash    float64
	Price   float64
}

// RunRecord summarizes one episode.
type RunRecord struct {
	RunID    string
	Created  time.Time
	Strategy string
	Provider string
	Config   []byte

	Start time.Time
	End   time.Time

	Trades     int
	Roundtrips int
	Wins       int
	Losses     int
	Rejected   int

	StartBalance float64
	EndBalance   float64

	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64
	Halted       bool

	Notes []string
}

type Journal interface {
	RecordRoundtrip(RoundtripRecord) error
	RecordEquity(EquitySnapshot) error
	RecordRun(RunRecord) error
	Close() error
}

// ProfitFactor is gross profit over gross loss of recs, 0 without losses.
func ProfitFactor(recs []RoundtripRecord) float64 {
	var profit, loss float64
	for _, r := range recs {
		if r.NetPnL > 0 {
			profit += r.NetPnL
		} else {
			loss -= r.NetPnL
		}
	}
	if loss == 0 {
		return 0
	}
	return profit / loss
}
