package market

import "fmt"

// Side is the direction of a trade, order or execution.
type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

// Valid reports whether s is Buy or Sell.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Sign returns +1 for Buy and -1 for Sell.
func (s Side) Sign() float64 {
	return float64(s)
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	return -s
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "B"
	case Sell:
		return "S"
	}
	return fmt.Sprintf("Side(%d)", int8(s))
}

// ParseSide accepts "B"/"S" as well as "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch s {
	case "B", "b", "buy", "BUY", "Buy":
		return Buy, nil
	case "S", "s", "sell", "SELL", "Sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// SideOf returns the side that moves a position by the signed quantity q.
func SideOf(q float64) Side {
	if q < 0 {
		return Sell
	}
	return Buy
}
