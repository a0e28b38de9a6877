package remote

import "errors"

var (
	// ErrUnavailable is returned by injected failures.
	ErrUnavailable = errors.New("remote: service unavailable")

	// ErrTimeout is returned when a call exceeds Config.Timeout.
	ErrTimeout = errors.New("remote: call timed out")

	// ErrCircuitOpen is returned without calling upstream while the breaker
	// is open.
	ErrCircuitOpen = errors.New("remote: circuit open")

	// ErrInvalidConfig indicates a Config that failed validation.
	ErrInvalidConfig = errors.New("remote: invalid config")

	// ErrUnexpectedResult indicates the call chain returned something other
	// than a Record.
	ErrUnexpectedResult = errors.New("remote: unexpected result type")
)
