package reconcile

import "github.com/pkg/errors"

var (
	// ErrInvalidOperation is returned for mutations outside today's scope
	// and other requests the board cannot honor in its current state.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotFound is returned when the referenced attendance id is not in
	// the current snapshot.
	ErrNotFound = errors.New("attendance record not found")

	// ErrInvalidInput is returned for blank or malformed arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("engine closed")
)
