package postgres

import "github.com/pkg/errors"

// ErrNotFound is returned when a statement matched no row.
var ErrNotFound = errors.New("not found")
