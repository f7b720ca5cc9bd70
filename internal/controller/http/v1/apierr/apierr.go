// Package apierr maps board and store failures to HTTP request errors.
package apierr

import (
	"net/http"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/pkg/errors"
)

// Status returns the HTTP status of err.
func Status(err error) int {
	var webErr *web.Error
	switch {
	case errors.As(err, &webErr):
		return webErr.Status
	case errors.Is(err, reconcile.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrInvalidOperation), store.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, reconcile.ErrInvalidInput), errors.Is(err, timepolicy.ErrInvalidDay), errors.Is(err, dashboard.ErrUnknownTab):
		return http.StatusBadRequest
	case errors.Is(err, reconcile.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Wrap turns err into a request error carrying its status. Unclassified
// errors are returned unchanged and rendered as 500.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	var webErr *web.Error
	if errors.As(err, &webErr) {
		return err
	}

	status := Status(err)
	if status == http.StatusInternalServerError {
		return err
	}
	if store.IsConflict(err) {
		return web.NewRequestError(errors.New("employee is already checked in today"), status)
	}
	return web.NewRequestError(err, status)
}
