// Package store defines the contract between the reconciliation engine and
// the relational backend holding employees and attendance rows.
package store

import (
	"context"
	"strings"
	"time"

	"attendance/dashboard/internal/timepolicy"

	"github.com/pkg/errors"
)

// Status is the attendance classification persisted with each row.
type Status = timepolicy.Status

// Employee is a person attendance is recorded for.
type Employee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceRecord is the attendance row of one employee on one day.
type AttendanceRecord struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	Date         string     `json:"date"`
	CheckInTime  *time.Time `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	Note         *string    `json:"note"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Validate checks the fields every stored row must carry.
func (r AttendanceRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return errors.Wrap(ErrMalformedRow, "attendance id is empty")
	case strings.TrimSpace(r.EmployeeID) == "":
		return errors.Wrap(ErrMalformedRow, "attendance employee_id is empty")
	case !r.Status.Valid():
		return errors.Wrapf(ErrMalformedRow, "attendance status %q", r.Status)
	}

	if _, err := timepolicy.ParseDay(r.Date); err != nil {
		return errors.Wrapf(ErrMalformedRow, "attendance date %q", r.Date)
	}

	return nil
}

// Validate checks the fields every stored employee must carry.
func (e Employee) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return errors.Wrap(ErrMalformedRow, "employee id is empty")
	case strings.TrimSpace(e.Name) == "":
		return errors.Wrap(ErrMalformedRow, "employee name is empty")
	}
	return nil
}

// NewEmployee carries the fields of an employee to insert.
type NewEmployee struct {
	Name  string
	Email *string
	Phone *string
}

// NewAttendance carries the fields of a check-in to insert.
type NewAttendance struct {
	EmployeeID  string
	Date        string
	CheckInTime time.Time
	Status      Status
}

// Patch is a partial attendance update. Exactly one field is set.
type Patch struct {
	CheckOutTime *time.Time
	Note         *string
}

// Validate enforces that exactly one field of the patch is set.
func (p Patch) Validate() error {
	switch {
	case p.CheckOutTime != nil && p.Note != nil:
		return errors.New("patch must set exactly one of check_out_time, note")
	case p.CheckOutTime == nil && p.Note == nil:
		return errors.New("patch is empty")
	}
	return nil
}

// EventKind tells inserts from updates in a change notification.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
)

// Event is a change notification for one attendance row.
type Event struct {
	Kind   EventKind
	Record AttendanceRecord
}

// Subscription is a live change-notification stream. Close stops delivery
// and may be called any number of times.
type Subscription interface {
	Close() error
}

// Store is the backend contract consumed by the reconciliation engine.
// Every failure is reported as an *Error.
type Store interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	ListAttendance(ctx context.Context, day string) ([]AttendanceRecord, error)
	ListAttendanceForEmployee(ctx context.Context, employeeID string) ([]AttendanceRecord, error)
	InsertEmployee(ctx context.Context, request NewEmployee) (Employee, error)
	InsertAttendance(ctx context.Context, request NewAttendance) (AttendanceRecord, error)
	UpdateAttendance(ctx context.Context, id string, patch Patch) error

	// SubscribeAttendanceChanges delivers every insert and update against the
	// attendance table regardless of date until the subscription is closed.
	SubscribeAttendanceChanges(ctx context.Context, onInsert, onUpdate func(AttendanceRecord)) (Subscription, error)
}
