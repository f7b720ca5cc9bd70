// Package recordstore is the Postgres implementation of store.Store.
package recordstore

import (
	"context"
	"log"

	"attendance/dashboard/internal/changefeed"
	"attendance/dashboard/internal/entity"
	"attendance/dashboard/internal/pkg/repository/postgresql"
	"attendance/dashboard/internal/repository/postgres"
	"attendance/dashboard/internal/repository/postgres/attendance"
	"attendance/dashboard/internal/repository/postgres/employee"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/pkg/errors"
)

type Store struct {
	employees  *employee.Repository
	attendance *attendance.Repository
	feed       changefeed.Feed
	publisher  changefeed.Publisher
	log        *log.Logger
}

// New builds the store. publisher is nil when the database trigger already
// feeds the subscribers.
func New(db *postgresql.Database, feed changefeed.Feed, publisher changefeed.Publisher, log *log.Logger) *Store {
	return &Store{
		employees:  employee.NewRepository(db),
		attendance: attendance.NewRepository(db),
		feed:       feed,
		publisher:  publisher,
		log:        log,
	}
}

func (s *Store) ListEmployees(ctx context.Context) ([]store.Employee, error) {
	const op = "list employees"

	rows, err := s.employees.GetList(ctx)
	if err != nil {
		return nil, store.NewError(op, err)
	}

	list := make([]store.Employee, 0, len(rows))
	for _, r := range rows {
		e, err := r.ToStore()
		if err != nil {
			return nil, store.NewError(op, err)
		}
		list = append(list, e)
	}
	return list, nil
}

func (s *Store) ListAttendance(ctx context.Context, day string) ([]store.AttendanceRecord, error) {
	const op = "list attendance"

	workDay, err := timepolicy.DayTime(day)
	if err != nil {
		return nil, store.NewError(op, err)
	}

	rows, err := s.attendance.GetListByDate(ctx, workDay)
	if err != nil {
		return nil, store.NewError(op, err)
	}
	return records(op, rows)
}

func (s *Store) ListAttendanceForEmployee(ctx context.Context, employeeID string) ([]store.AttendanceRecord, error) {
	const op = "list attendance for employee"

	rows, err := s.attendance.GetHistory(ctx, employeeID)
	if err != nil {
		return nil, store.NewError(op, err)
	}
	return records(op, rows)
}

func (s *Store) InsertEmployee(ctx context.Context, request store.NewEmployee) (store.Employee, error) {
	const op = "insert employee"

	row, err := s.employees.Create(ctx, employee.CreateRequest{
		Name:  request.Name,
		Email: request.Email,
		Phone: request.Phone,
	})
	if err != nil {
		return store.Employee{}, store.NewError(op, err)
	}

	e, err := row.ToStore()
	if err != nil {
		return store.Employee{}, store.NewError(op, err)
	}
	return e, nil
}

func (s *Store) InsertAttendance(ctx context.Context, request store.NewAttendance) (store.AttendanceRecord, error) {
	const op = "insert attendance"

	workDay, err := timepolicy.DayTime(request.Date)
	if err != nil {
		return store.AttendanceRecord{}, store.NewError(op, err)
	}

	row, err := s.attendance.Create(ctx, attendance.CreateRequest{
		EmployeeID:  request.EmployeeID,
		WorkDay:     workDay,
		CheckInTime: request.CheckInTime,
		Status:      string(request.Status),
	})
	if postgresql.IsUniqueViolation(err) {
		return store.AttendanceRecord{}, store.NewConflictError(op, errors.Wrap(err, "employee already checked in on "+request.Date))
	}
	if err != nil {
		return store.AttendanceRecord{}, store.NewError(op, err)
	}

	rec, err := row.ToStore()
	if err != nil {
		return store.AttendanceRecord{}, store.NewError(op, err)
	}

	s.publish(ctx, store.Event{Kind: store.EventInsert, Record: rec})
	return rec, nil
}

func (s *Store) UpdateAttendance(ctx context.Context, id string, patch store.Patch) error {
	const op = "update attendance"

	if err := patch.Validate(); err != nil {
		return store.NewError(op, err)
	}

	row, err := s.attendance.UpdateColumns(ctx, attendance.UpdateRequest{
		ID:           id,
		CheckOutTime: patch.CheckOutTime,
		Note:         patch.Note,
	})
	if errors.Is(err, postgres.ErrNotFound) {
		return store.NewError(op, errors.Wrap(store.ErrNotFound, err.Error()))
	}
	if err != nil {
		return store.NewError(op, err)
	}

	rec, err := row.ToStore()
	if err != nil {
		return store.NewError(op, err)
	}

	s.publish(ctx, store.Event{Kind: store.EventUpdate, Record: rec})
	return nil
}

func (s *Store) SubscribeAttendanceChanges(ctx context.Context, onInsert, onUpdate func(store.AttendanceRecord)) (store.Subscription, error) {
	sub, err := s.feed.Subscribe(ctx, func(ev store.Event) {
		switch ev.Kind {
		case store.EventInsert:
			onInsert(ev.Record)
		case store.EventUpdate:
			onUpdate(ev.Record)
		}
	})
	if err != nil {
		return nil, store.NewError("subscribe attendance changes", err)
	}
	return sub, nil
}

// publish fans a committed write out. The write already succeeded, so a
// failure here is only logged.
func (s *Store) publish(ctx context.Context, ev store.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Printf("recordstore : publish %s %s : %v", ev.Kind, ev.Record.ID, err)
	}
}

func records(op string, rows []entity.Attendance) ([]store.AttendanceRecord, error) {
	list := make([]store.AttendanceRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.ToStore()
		if err != nil {
			return nil, store.NewError(op, err)
		}
		list = append(list, rec)
	}
	return list, nil
}
