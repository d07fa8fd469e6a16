package account

import "time"

// Summary is the default Report. It keeps every round-trip and running
// totals over them, plus the last balance it was told about.
type Summary struct {
	InitialBalance float64

	Roundtrips []Roundtrip

	Count   int
	Long    int
	Short   int
	Winners int
	Losers  int

	GrossPnL   float64
	NetPnL     float64
	Commission float64

	// drawdown of the cumulative net PnL of round-trips
	MaxNetPnL          float64
	MaxDrawdown        float64
	MaxDrawdownPercent float64

	FirstTime   time.Time
	LastTime    time.Time
	LastBalance float64
	LastCash    float64
	LastPrice   float64
	Updates     int

	sumMAE, sumMFE                  float64
	sumEntryEff, sumExitEff, sumEff float64
}

func NewSummary(initialBalance float64) *Summary {
	s := &Summary{InitialBalance: initialBalance}
	s.Reset()
	return s
}

func (s *Summary) Reset() {
	initial := s.InitialBalance
	*s = Summary{InitialBalance: initial, LastBalance: initial, LastCash: initial}
}

func (s *Summary) Add(rts []Roundtrip) {
	for _, rt := range rts {
		s.Roundtrips = append(s.Roundtrips, rt)
		s.Count++
		if rt.Side == Short {
			s.Short++
		} else {
			s.Long++
		}
		switch {
		case rt.NetPnL > 0:
			s.Winners++
		case rt.NetPnL < 0:
			s.Losers++
		}
		s.GrossPnL += rt.GrossPnL
		s.NetPnL += rt.NetPnL
		s.Commission += rt.Commission

		s.sumMAE += rt.MaximumAdverseExcursion
		s.sumMFE += rt.MaximumFavorableExcursion
		s.sumEntryEff += rt.EntryEfficiency
		s.sumExitEff += rt.ExitEfficiency
		s.sumEff += rt.TotalEfficiency

		if s.MaxNetPnL < s.NetPnL {
			s.MaxNetPnL = s.NetPnL
		}
		if dd := s.MaxNetPnL - s.NetPnL; s.MaxDrawdown < dd {
			s.MaxDrawdown = dd
			if base := s.InitialBalance + s.MaxNetPnL; base != 0 {
				s.MaxDrawdownPercent = dd / base
			}
		}
	}
}

func (s *Summary) Update(at time.Time, balance, cash, price float64) {
	if s.Updates == 0 {
		s.FirstTime = at
	}
	s.Updates++
	s.LastTime = at
	s.LastBalance = balance
	s.LastCash = cash
	s.LastPrice = price
}

// Tally returns s. Reports that embed a Summary expose it through this.
func (s *Summary) Tally() *Summary { return s }

// WinRate is the share of round-trips with positive net PnL.
func (s *Summary) WinRate() float64 { return s.avg(float64(s.Winners)) }

func (s *Summary) AverageMAE() float64             { return s.avg(s.sumMAE) }
func (s *Summary) AverageMFE() float64             { return s.avg(s.sumMFE) }
func (s *Summary) AverageEntryEfficiency() float64 { return s.avg(s.sumEntryEff) }
func (s *Summary) AverageExitEfficiency() float64  { return s.avg(s.sumExitEff) }
func (s *Summary) AverageTotalEfficiency() float64 { return s.avg(s.sumEff) }

// RateOfReturn is the last balance over the initial balance, or 0 when the
// initial balance is zero.
func (s *Summary) RateOfReturn() float64 {
	if s.InitialBalance == 0 {
		return 0
	}
	return s.LastBalance / s.InitialBalance
}

func (s *Summary) avg(sum float64) float64 {
	if s.Count == 0 {
		return 0
	}
	return sum / float64(s.Count)
}
