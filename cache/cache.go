package cache

import (
	"errors"
	"fmt"
	"strings"
)

// MaxKeyLength is the longest Key kept in its readable form. Longer
// encodings are replaced by a digest.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilStore      = errors.New("cache: store is nil")
	ErrNilFunc       = errors.New("cache: function is nil")
	ErrInvalidRegion = errors.New("cache: region is invalid")
	ErrArgIndex      = errors.New("cache: argument index out of range")
	ErrUnencodable   = errors.New("cache: argument cannot be encoded")
	ErrValueType     = errors.New("cache: cached value has unexpected type")
)

// Region names a partition of a Store. Keys are unique only within a region.
type Region string

// ValidateRegion checks if a region name is usable.
func ValidateRegion(r Region) error {
	if strings.TrimSpace(string(r)) == "" {
		return ErrInvalidRegion
	}
	if strings.ContainsAny(string(r), "\n\r\x00") {
		return ErrInvalidRegion
	}
	return nil
}

// KeyError reports a failed key derivation. Nothing is read from or written
// to the store when it is returned.
type KeyError struct {
	Op  string // operation name, empty when derived outside an Operation
	Err error
}

func (e *KeyError) Error() string {
	if e.Op == "" {
		return "cache: key derivation: " + e.Err.Error()
	}
	return fmt.Sprintf("cache: key derivation for %s: %v", e.Op, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// ComputeError wraps a failure of the function run on a cache miss.
// The failure is not cached.
type ComputeError struct {
	Region Region
	Key    Key
	Err    error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("cache: compute %s/%s: %v", e.Region, e.Key, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// SinkError reports a failed event delivery. It is logged and counted by the
// Store and never returned to callers.
type SinkError struct {
	Event Event
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("cache: sink %s event for %s/%s: %v", e.Event.Type, e.Event.Region, e.Event.Key, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
