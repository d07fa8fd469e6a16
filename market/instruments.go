package market

// Instrument holds the trading conventions of a symbol that matter to the
// simulator: the tick size orders are snapped to and the margin posted
// per unit held.
type Instrument struct {
	Symbol        string
	PriceStep     float64
	MarginPerUnit float64
}

var Instruments = map[string]Instrument{
	"EUR_USD": {
		Symbol:    "EUR_USD",
		PriceStep: 0.00001,
	},
	"USD_JPY": {
		Symbol:    "USD_JPY",
		PriceStep: 0.001,
	},
	"BTC_USDT": {
		Symbol:    "BTC_USDT",
		PriceStep: 0.01,
	},
	"SINE": {
		Symbol:    "SINE",
		PriceStep: 1,
	},
}
