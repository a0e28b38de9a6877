package health

import "errors"

var (
	// ErrCheckFailed indicates a check found the component unusable.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a check did not answer in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates no checker is registered under a name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
