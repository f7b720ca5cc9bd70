package board

import (
	"context"

	"attendance/dashboard/internal/hub"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/timepolicy"
)

type Board interface {
	Snapshot() reconcile.Snapshot
	Policy() timepolicy.Policy
	SelectDate(ctx context.Context, day string) error
	Refresh(ctx context.Context) error
	CheckIn(employeeID string) (*reconcile.Op, error)
	CheckOut(attendanceID string) (*reconcile.Op, error)
	UpdateNote(attendanceID string, text string) (*reconcile.Op, error)
}

type Stream interface {
	Subscribe() *hub.Client
	Unsubscribe(c *hub.Client)
}
