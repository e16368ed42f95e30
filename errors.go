package blobgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/blobgo/backend"
)

// ErrNotFound is returned when an object's payload does not exist.
// It aliases the backend sentinel so callers need only one check.
var ErrNotFound = backend.ErrNotFound

var (
	// ErrUnsupportedBackend is returned when a descriptor is bound to a
	// backend that implements neither storage capability.
	ErrUnsupportedBackend = errors.New("backend implements no known capability")

	// ErrIncompatibleBackends is returned when a copy pairs two objects
	// whose strategies cannot exchange payload (one chunked, one proxied).
	ErrIncompatibleBackends = errors.New("source and destination backends are incompatible")
)

// ErrRangeUnsatisfiable indicates a requested byte range outside the
// object's payload. It is returned instead of silently truncated data.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrRangeUnsatisfiable struct {
	Range backend.Range
	Size  int64
	cause error
}

func (e *ErrRangeUnsatisfiable) Error() string {
	return fmt.Sprintf("range %d-%d unsatisfiable against %d bytes", e.Range.Start, e.Range.End, e.Size)
}

func (e *ErrRangeUnsatisfiable) Unwrap() error { return e.cause }
