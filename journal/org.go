package journal

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"
)

// FormatRoundtripOrg renders r as an Org block with the facts in a
// PROPERTIES drawer and an empty review section.
func FormatRoundtripOrg(r RoundtripRecord) string {
	heading := fmt.Sprintf("*** %s %s %g @ %.5f -> %.5f (%s)", strings.ToUpper(r.Side), r.Account, r.Quantity, r.EntryPrice, r.ExitPrice, shortID(r.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", r.ID))
	b.WriteString(fmt.Sprintf(":RUN_ID: %s\n", r.RunID))
	b.WriteString(fmt.Sprintf(":ACCOUNT: %s\n", r.Account))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", r.Side))
	b.WriteString(fmt.Sprintf(":QUANTITY: %g\n", r.Quantity))
	b.WriteString(fmt.Sprintf(":ENTRY_TIME: %s\n", r.EntryTime.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.5f\n", r.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_TIME: %s\n", r.ExitTime.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.5f\n", r.ExitPrice))
	b.WriteString(fmt.Sprintf(":GROSS_PNL: %.2f\n", r.GrossPnL))
	b.WriteString(fmt.Sprintf(":COMMISSION: %.2f\n", r.Commission))
	b.WriteString(fmt.Sprintf(":NET_PNL: %.2f\n", r.NetPnL))
	b.WriteString(fmt.Sprintf(":MAE_PCT: %.2f\n", r.MAE))
	b.WriteString(fmt.Sprintf(":MFE_PCT: %.2f\n", r.MFE))
	b.WriteString(fmt.Sprintf(":EFFICIENCY_PCT: %.2f\n", r.TotalEfficiency))
	b.WriteString(":END:\n")
	b.WriteString("**** Review\n- \n")

	return b.String()
}

// FormatRoundtripsOrg renders multiple round-trips separated by blank lines.
func FormatRoundtripsOrg(rts []RoundtripRecord) string {
	var b strings.Builder
	for i, r := range rts {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatRoundtripOrg(r))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}

var runOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"date":   func(t time.Time) string {
		if t.IsZero() {
			return "(date?)"
		}
		return t.UTC().Format("2006-01-02 15:04:05")
	},
	"orNow": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// WriteRunOrg renders r with RunOrgTemplate.
func WriteRunOrg(w io.Writer, r RunRecord) error {
	return runOrg.Execute(w, r)
}

const RunOrgTemplate = `* RUN: {{.Strategy}} on {{if .Provider}}{{.Provider}}{{else}}(provider?){{end}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.Strategy}}
:PROVIDER:    {{.Provider}}
:START:       {{date .Start}}
:END:         {{date .End}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:ROUNDTRIPS:  {{.Roundtrips}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:REJECTED:    {{.Rejected}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}
:HALTED:      {{.Halted}}
:CREATED:     [{{(orNow .Created).Format "2006-01-02 Mon 15:04"}}]
:END:
{{- if .Config }}

** Configuration
#+begin_src yaml
{{printf "%s" .Config}}
#+end_src
{{- end }}

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*

** Round-trip Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Roundtrips}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
