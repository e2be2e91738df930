package types

import "errors"

// Error kinds shared by the service and its transports. Service errors wrap
// exactly one of these so callers can map them with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrNotFinished  = errors.New("run not finished")
	ErrBackpressure = errors.New("backpressure")
	ErrUnavailable  = errors.New("service unavailable")
)
