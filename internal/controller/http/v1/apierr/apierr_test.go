package apierr_test

import (
	"net/http"
	"testing"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/controller/http/v1/apierr"
	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/pkg/errors"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"read-only", errors.Wrap(reconcile.ErrInvalidOperation, "history is read-only"), http.StatusConflict},
		{"missing record", errors.Wrap(reconcile.ErrNotFound, "att-1"), http.StatusNotFound},
		{"store not found", store.NewError("update", errors.Wrap(store.ErrNotFound, "att-1")), http.StatusNotFound},
		{"conflict", store.NewConflictError("insert", errors.New("duplicate key")), http.StatusConflict},
		{"bad input", errors.Wrap(reconcile.ErrInvalidInput, "name"), http.StatusBadRequest},
		{"bad day", errors.Wrap(timepolicy.ErrInvalidDay, "x"), http.StatusBadRequest},
		{"bad tab", errors.Wrap(dashboard.ErrUnknownTab, "x"), http.StatusBadRequest},
		{"closed", reconcile.ErrClosed, http.StatusServiceUnavailable},
		{"backend", store.NewError("list", errors.New("connection refused")), http.StatusBadGateway},
		{"request", web.NewRequestError(errors.New("nope"), http.StatusUnauthorized), http.StatusUnauthorized},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := apierr.Status(tt.err); got != tt.want {
			t.Errorf("%s: Status = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	if apierr.Wrap(nil) != nil {
		t.Fatal("Wrap(nil) != nil")
	}

	plain := errors.New("boom")
	if apierr.Wrap(plain) != plain {
		t.Fatal("unclassified error was wrapped")
	}

	var webErr *web.Error
	err := apierr.Wrap(store.NewConflictError("insert", errors.New("duplicate key")))
	if !errors.As(err, &webErr) || webErr.Status != http.StatusConflict {
		t.Fatalf("Wrap(conflict) = %v", err)
	}
	if webErr.Error() != "employee is already checked in today" {
		t.Fatalf("message = %q", webErr.Error())
	}
}
