package endpoint

import "errors"

// Endpoint errors, checked with errors.Is().
var (
	// ErrRequestFailed is returned when the request could not be sent or
	// no response arrived before the timeout.
	ErrRequestFailed = errors.New("endpoint: request failed")

	// ErrBadStatus is returned for a non-2xx response.
	ErrBadStatus = errors.New("endpoint: unexpected status")

	// ErrMalformedResponse is returned when a read response is not the
	// expected JSON shape.
	ErrMalformedResponse = errors.New("endpoint: malformed response")
)
