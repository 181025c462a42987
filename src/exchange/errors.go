package exchange

import "errors"

var (
	// ErrInvalidOrder rejects non-positive quantities or prices and unknown sides.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrUnknownInstrument rejects orders for a symbol that was never seeded.
	ErrUnknownInstrument = errors.New("unknown instrument")
	// ErrOrderNotFound means the cancel/amend target is absent: already filled,
	// already cancelled, or never existed.
	ErrOrderNotFound = errors.New("order not found")
	// ErrExchangeClosed rejects mutating calls while the exchange is stopped.
	ErrExchangeClosed = errors.New("exchange closed")
	// ErrExchangeRunning rejects instrument seeding after start.
	ErrExchangeRunning = errors.New("exchange already running")
	// ErrInstrumentExists rejects seeding a symbol twice.
	ErrInstrumentExists = errors.New("instrument already listed")
)
