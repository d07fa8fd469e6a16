package account

import "errors"

var (
	ErrInvalidOperation   = errors.New("invalid operation: side must be buy or sell")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidCommission  = errors.New("invalid commission")
	ErrProhibitedReversal = errors.New("prohibited reversal: a single fill cannot flip the position sign")
)
