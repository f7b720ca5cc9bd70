// Package memory is an in-process store.Store. It backs the demo mode of the
// API and the engine tests, which use its failure injection and gates.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Op names a store operation for failure injection and gating.
type Op string

const (
	OpListEmployees    Op = "list_employees"
	OpListAttendance   Op = "list_attendance"
	OpListHistory      Op = "list_attendance_for_employee"
	OpInsertEmployee   Op = "insert_employee"
	OpInsertAttendance Op = "insert_attendance"
	OpUpdateAttendance Op = "update_attendance"
	OpSubscribe        Op = "subscribe"
)

// Option configures a Store.
type Option func(*Store)

// WithEcho makes writes through the Store interface notify subscribers, the
// way the database trigger does.
func WithEcho() Option {
	return func(s *Store) { s.echo = true }
}

// WithIDs replaces the uuid generator.
func WithIDs(next func() string) Option {
	return func(s *Store) { s.newID = next }
}

// WithClock replaces the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps employees and attendance rows in memory.
type Store struct {
	mu         sync.Mutex
	employees  []store.Employee
	attendance []store.AttendanceRecord
	subs       map[int]*subscription
	nextSub    int
	failNext   map[Op][]error
	gates      map[Op]chan struct{}
	calls      map[Op]int
	echo       bool
	newID      func() string
	now        func() time.Time
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		subs:     make(map[int]*subscription),
		failNext: make(map[Op][]error),
		gates:    make(map[Op]chan struct{}),
		calls:    make(map[Op]int),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedEmployee adds an employee without notifying anyone.
func (s *Store) SeedEmployee(e store.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.employees = append(s.employees, e)
}

// SeedAttendance adds a row without notifying anyone.
func (s *Store) SeedAttendance(r store.AttendanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.attendance = append(s.attendance, r)
}

// FailNext makes the next call of op fail with err. Calls queue up.
func (s *Store) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = append(s.failNext[op], err)
}

// Hold blocks calls of op until the returned release func is called.
func (s *Store) Hold(op Op) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gate := make(chan struct{})
	s.gates[op] = gate

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[op] == gate {
				delete(s.gates, op)
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Subscribers returns the number of open subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Notify delivers ev to every subscriber synchronously, as if another
// client had written the row.
func (s *Store) Notify(ev store.Event) {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(ev)
	}
}

// enter records the call, waits on a gate and pops an injected failure.
func (s *Store) enter(ctx context.Context, op Op) error {
	s.mu.Lock()
	s.calls[op]++
	gate := s.gates[op]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return store.NewError(string(op), ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if queued := s.failNext[op]; len(queued) > 0 {
		err := queued[0]
		s.failNext[op] = queued[1:]
		return store.NewError(string(op), err)
	}

	return nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]store.Employee, error) {
	if err := s.enter(ctx, OpListEmployees); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append([]store.Employee(nil), s.employees...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *Store) ListAttendance(ctx context.Context, day string) ([]store.AttendanceRecord, error) {
	if err := s.enter(ctx, OpListAttendance); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var list []store.AttendanceRecord
	for _, r := range s.attendance {
		if r.Date == day {
			list = append(list, r)
		}
	}
	return list, nil
}

func (s *Store) ListAttendanceForEmployee(ctx context.Context, employeeID string) ([]store.AttendanceRecord, error) {
	if err := s.enter(ctx, OpListHistory); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var list []store.AttendanceRecord
	for _, r := range s.attendance {
		if r.EmployeeID == employeeID {
			list = append(list, r)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date > list[j].Date })
	return list, nil
}

func (s *Store) InsertEmployee(ctx context.Context, request store.NewEmployee) (store.Employee, error) {
	if err := s.enter(ctx, OpInsertEmployee); err != nil {
		return store.Employee{}, err
	}
	if strings.TrimSpace(request.Name) == "" {
		return store.Employee{}, store.NewError(string(OpInsertEmployee), errors.New("name is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := store.Employee{
		ID:        s.newID(),
		Name:      request.Name,
		Email:     request.Email,
		Phone:     request.Phone,
		CreatedAt: s.now(),
	}
	s.employees = append(s.employees, e)
	return e, nil
}

func (s *Store) InsertAttendance(ctx context.Context, request store.NewAttendance) (store.AttendanceRecord, error) {
	if err := s.enter(ctx, OpInsertAttendance); err != nil {
		return store.AttendanceRecord{}, err
	}
	if _, err := timepolicy.ParseDay(request.Date); err != nil {
		return store.AttendanceRecord{}, store.NewError(string(OpInsertAttendance), err)
	}

	s.mu.Lock()
	for _, r := range s.attendance {
		if r.EmployeeID == request.EmployeeID && r.Date == request.Date {
			s.mu.Unlock()
			return store.AttendanceRecord{}, store.NewConflictError(string(OpInsertAttendance), errors.New("employee already checked in on "+request.Date))
		}
	}

	checkIn := request.CheckInTime
	r := store.AttendanceRecord{
		ID:          s.newID(),
		EmployeeID:  request.EmployeeID,
		Date:        request.Date,
		CheckInTime: &checkIn,
		Status:      request.Status,
		CreatedAt:   s.now(),
	}
	s.attendance = append(s.attendance, r)
	echo := s.echo
	s.mu.Unlock()

	if echo {
		s.Notify(store.Event{Kind: store.EventInsert, Record: r})
	}
	return r, nil
}

func (s *Store) UpdateAttendance(ctx context.Context, id string, patch store.Patch) error {
	if err := s.enter(ctx, OpUpdateAttendance); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return store.NewError(string(OpUpdateAttendance), err)
	}

	s.mu.Lock()
	idx := -1
	for i := range s.attendance {
		if s.attendance[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.NewError(string(OpUpdateAttendance), errors.Wrap(store.ErrNotFound, id))
	}

	r := s.attendance[idx]
	if patch.CheckOutTime != nil {
		t := *patch.CheckOutTime
		r.CheckOutTime = &t
	}
	if patch.Note != nil {
		n := *patch.Note
		r.Note = &n
	}
	s.attendance[idx] = r
	echo := s.echo
	s.mu.Unlock()

	if echo {
		s.Notify(store.Event{Kind: store.EventUpdate, Record: r})
	}
	return nil
}

func (s *Store) SubscribeAttendanceChanges(ctx context.Context, onInsert, onUpdate func(store.AttendanceRecord)) (store.Subscription, error) {
	if err := s.enter(ctx, OpSubscribe); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	sub := &subscription{
		id:       s.nextSub,
		owner:    s,
		onInsert: onInsert,
		onUpdate: onUpdate,
	}
	s.subs[sub.id] = sub
	return sub, nil
}

type subscription struct {
	id       int
	owner    *Store
	onInsert func(store.AttendanceRecord)
	onUpdate func(store.AttendanceRecord)

	mu     sync.Mutex
	closed bool
}

func (sub *subscription) deliver(ev store.Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed {
		return
	}

	switch ev.Kind {
	case store.EventInsert:
		if sub.onInsert != nil {
			sub.onInsert(ev.Record)
		}
	case store.EventUpdate:
		if sub.onUpdate != nil {
			sub.onUpdate(ev.Record)
		}
	}
}

func (sub *subscription) Close() error {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return nil
	}
	sub.closed = true
	sub.mu.Unlock()

	sub.owner.mu.Lock()
	delete(sub.owner.subs, sub.id)
	sub.owner.mu.Unlock()
	return nil
}
