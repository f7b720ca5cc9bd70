package store

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrStore matches every error produced by a Store implementation.
	ErrStore = errors.New("store error")

	// ErrMalformedRow is wrapped when a row fails validation at the boundary.
	ErrMalformedRow = errors.New("malformed row")

	// ErrNotFound is wrapped when the referenced row does not exist.
	ErrNotFound = errors.New("not found")
)

// Error is a transport, query or decoding failure from the backend.
type Error struct {
	Op       string
	Err      error
	Conflict bool
}

// NewError wraps err as a store failure of operation op. A nil err stays nil.
func NewError(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	return &Error{Op: op, Err: err}
}

// NewConflictError reports a uniqueness violation of operation op.
func NewConflictError(op string, err error) error {
	return &Error{Op: op, Err: err, Conflict: true}
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes every *Error match ErrStore.
func (e *Error) Is(target error) bool {
	return target == ErrStore
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Conflict
}
