package bus

import "errors"

// Sentinel errors for the bus package.
var (
	// ErrBusClosed is returned when using a bus after Close.
	ErrBusClosed = errors.New("bus: closed")
)
