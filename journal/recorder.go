package journal

import (
	"errors"
	"time"

	"github.com/rustyeddy/tradesim/account"
	"github.com/rustyeddy/tradesim/internal/id"
	"go.uber.org/zap"
)

// Recorder is an account.Report that keeps the default Summary and copies
// every round-trip, plus equity sampled every Interval, to a Journal.
type Recorder struct {
	*account.Summary

	RunID    string
	Account  string
	Interval time.Duration

	j        Journal
	log      *zap.Logger
	lastTime time.Time
	sampled  bool
	errs     []error
}

// NewRecorder returns a Recorder for one account of one run. A zero
// interval records every balance update.
func NewRecorder(j Journal, runID, acct string, initialBalance float64, interval time.Duration, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		Summary:  account.NewSummary(initialBalance),
		RunID:    runID,
		Account:  acct,
		Interval: interval,
		j:        j,
		log:      log,
	}
}

func (r *Recorder) Add(rts []account.Roundtrip) {
	r.Summary.Add(rts)
	for _, rt := range rts {
		rec := NewRoundtripRecord(id.At(rt.ExitTime), r.RunID, r.Account, rt)
		if err := r.j.RecordRoundtrip(rec); err != nil {
			r.fail("record roundtrip", err)
		}
	}
}

func (r *Recorder) Update(at time.Time, balance, cash, price float64) {
	r.Summary.Update(at, balance, cash, price)
	if r.sampled && at.Sub(r.lastTime) < r.Interval {
		return
	}
	r.sampled, r.lastTime = true, at
	r.record(at, balance, cash, price)
}

// Flush records the last balance the summary saw if the sampler skipped it.
func (r *Recorder) Flush() {
	s := r.Summary
	if s.Updates == 0 || (r.sampled && r.lastTime.Equal(s.LastTime)) {
		return
	}
	r.sampled, r.lastTime = true, s.LastTime
	r.record(s.LastTime, s.LastBalance, s.LastCash, s.LastPrice)
}

func (r *Recorder) Reset() {
	r.Summary.Reset()
	r.sampled, r.lastTime = false, time.Time{}
	r.errs = nil
}

// Err joins every journal error seen since the last Reset.
func (r *Recorder) Err() error { return errors.Join(r.errs...) }

func (r *Recorder) record(at time.Time, balance, cash, price float64) {
	err := r.j.RecordEquity(EquitySnapshot{
		RunID:   r.RunID,
		Account: r.Account,
		Time:    at,
		Balance: balance,
		Cash:    cash,
		Price:   price,
	})
	if err != nil {
		r.fail("record equity", err)
	}
}

func (r *Recorder) fail(what string, err error) {
	if len(r.errs) == 0 {
		r.log.Error(what, zap.String("run", r.RunID), zap.String("account", r.Account), zap.Error(err))
	}
	r.errs = append(r.errs, err)
}
