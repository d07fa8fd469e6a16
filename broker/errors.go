package broker

import "errors"

var (
	ErrPastOrderTime   = errors.New("order time is not after the last trade")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidKillTime = errors.New("kill time is before order time")
	ErrUnknownAccount  = errors.New("account is not registered with the broker")
	ErrAccountHalted   = errors.New("account is halted")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalidTrade    = errors.New("invalid trade")
	ErrInvalidOptions  = errors.New("invalid broker options")
)
