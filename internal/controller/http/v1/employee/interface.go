package employee

import (
	"context"

	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"
)

type Employee interface {
	Snapshot() reconcile.Snapshot
	Policy() timepolicy.Policy
	AddEmployee(ctx context.Context, name string, email, phone *string) (store.Employee, error)
	History(ctx context.Context, employeeID string) ([]store.AttendanceRecord, error)
}
