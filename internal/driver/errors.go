package driver

import "errors"

// Driver errors, checked with errors.Is().
var (
	// ErrNoDriver is returned when no driver is registered for a light's
	// protocol.
	ErrNoDriver = errors.New("driver: no driver for protocol")

	// ErrNoState is returned by a StateReader when the device answered but
	// had nothing for this light.
	ErrNoState = errors.New("driver: no state reported")
)
