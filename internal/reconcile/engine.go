// Package reconcile keeps the live attendance board for one selected date in
// step with the record store. Local mutations are applied optimistically and
// reconciled with the store's answer; remote changes arrive through the
// store's change feed.
package reconcile

import (
	"context"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"

	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	msgReadOnly        = "history is read-only, switch to today to record attendance"
	msgPending         = "check-in is still being confirmed"
	msgLoadFailed      = "failed to load data from server"
	msgLiveUnavailable = "live updates unavailable"
)

// Engine owns the board snapshot. All methods are safe for concurrent use.
type Engine struct {
	store    store.Store
	policy   timepolicy.Policy
	log      *log.Logger
	observer Observer

	// ctx bounds the remote calls of optimistic mutations and the change
	// subscription. It is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	date       string
	follow     bool
	state      State
	lastErr    string
	employees  []store.Employee
	attendance []store.AttendanceRecord
	version    uint64

	// generation is bumped by every load; a load result is applied only
	// while its generation is current.
	generation uint64

	// epoch is bumped by every subscription; events of an older epoch are
	// dropped.
	epoch uint64
	sub   store.Subscription
}

// New returns an engine with an empty snapshot for today. Nothing is loaded
// until SelectDate or Refresh is called. observer may be nil.
func New(st store.Store, policy timepolicy.Policy, log *log.Logger, observer Observer) *Engine {
	if observer == nil {
		observer = nopObserver{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		store:      st,
		policy:     policy,
		log:        log,
		observer:   observer,
		ctx:        ctx,
		cancel:     cancel,
		date:       policy.TodayKey(),
		state:      StateLoading,
		employees:  []store.Employee{},
		attendance: []store.AttendanceRecord{},
	}
}

// Policy returns the time policy the engine classifies with.
func (e *Engine) Policy() timepolicy.Policy {
	return e.policy
}

// Snapshot returns a copy of the current board.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// SelectDate switches the board to day, resubscribes to the change feed and
// loads the day. A failed subscription leaves the board usable without live
// updates. Future days are rejected.
func (e *Engine) SelectDate(ctx context.Context, day string) error {
	day, err := timepolicy.ParseDay(day)
	if err != nil {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}
	if day > e.policy.TodayKey() {
		return errors.Wrapf(ErrInvalidOperation, "cannot select future date %s", day)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}

	resubscribe := day != e.date || e.sub == nil
	var (
		old   store.Subscription
		epoch uint64
	)
	if resubscribe {
		old = e.sub
		e.sub = nil
		e.epoch++
		epoch = e.epoch
	}
	e.date = day
	e.follow = e.policy.IsToday(day)
	gen := e.beginLoadLocked()
	e.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			e.log.Printf("reconcile : closing subscription : %v", err)
		}
	}
	if resubscribe {
		e.subscribe(epoch)
	}

	return e.load(ctx, gen, day)
}

// Refresh reloads the selected date. The subscription is re-established only
// if there is none.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}

	day := e.date
	resubscribe := e.sub == nil
	var epoch uint64
	if resubscribe {
		e.epoch++
		epoch = e.epoch
	}
	gen := e.beginLoadLocked()
	e.mu.Unlock()

	if resubscribe {
		e.subscribe(epoch)
	}

	if err := e.load(ctx, gen, day); err != nil {
		return err
	}

	e.notify(LevelSuccess, "data refreshed")
	return nil
}

// Rollover moves a board that was showing today on to the new day once the
// local date changed. It reports whether the date moved.
func (e *Engine) Rollover(ctx context.Context) (bool, error) {
	today := e.policy.TodayKey()

	e.mu.Lock()
	move := !e.closed && e.follow && e.date != today
	e.mu.Unlock()

	if !move {
		return false, nil
	}
	return true, e.SelectDate(ctx, today)
}

// CheckIn records a check-in for employeeID now. A placeholder row is shown
// at once and swapped for the stored row when the insert succeeds, or
// removed when it fails.
func (e *Engine) CheckIn(employeeID string) (*Op, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "employee id is required")
	}

	now := e.policy.Now()
	today := e.policy.DayKey(now)
	status := e.policy.Classify(now)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if e.date != today {
		e.notifyLocked(LevelError, msgReadOnly)
		e.mu.Unlock()
		return nil, errors.Wrap(ErrInvalidOperation, "history is read-only")
	}

	tempID := TempPrefix + uuid.NewString()
	checkIn := now
	e.attendance = append(e.attendance, store.AttendanceRecord{
		ID:          tempID,
		EmployeeID:  employeeID,
		Date:        today,
		CheckInTime: &checkIn,
		Status:      status,
		CreatedAt:   now,
	})
	e.publishLocked()
	e.wg.Add(1)
	e.mu.Unlock()

	op := newOp(tempID)
	request := store.NewAttendance{
		EmployeeID:  employeeID,
		Date:        today,
		CheckInTime: now,
		Status:      status,
	}

	go func() {
		defer e.wg.Done()

		record, err := e.store.InsertAttendance(e.ctx, request)
		e.confirmCheckIn(tempID, record, err)
		op.resolve(record, err)
	}()

	return op, nil
}

func (e *Engine) confirmCheckIn(tempID string, record store.AttendanceRecord, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	idx := e.indexLocked(tempID)

	if err != nil {
		e.log.Printf("reconcile : check-in %s : %v", tempID, err)
		if idx >= 0 {
			e.attendance = slices.Delete(e.attendance, idx, idx+1)
			e.publishLocked()
		}
		msg := "check-in failed: " + err.Error()
		if store.IsConflict(err) {
			msg = "employee is already checked in today"
		}
		e.notifyLocked(LevelError, msg)
		return
	}

	switch {
	case e.indexLocked(record.ID) >= 0:
		// The change feed delivered the stored row first. The placeholder is
		// dropped now rather than left as a duplicate until the next reload.
		if idx >= 0 {
			e.attendance = slices.Delete(e.attendance, idx, idx+1)
		}
	case idx >= 0:
		e.attendance[idx] = record
	case record.Date == e.date:
		// A reload replaced the placeholder before the row was committed.
		e.attendance = append(e.attendance, record)
	}

	e.publishLocked()
	e.notifyLocked(LevelSuccess, "check-in recorded")
}

// CheckOut stamps the check-out time of attendanceID now. On failure the
// board is resynchronized from the store.
func (e *Engine) CheckOut(attendanceID string) (*Op, error) {
	now := e.policy.Now()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if e.date != e.policy.DayKey(now) {
		e.notifyLocked(LevelError, msgReadOnly)
		e.mu.Unlock()
		return nil, errors.Wrap(ErrInvalidOperation, "history is read-only")
	}
	if err := e.checkTargetLocked(attendanceID); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	checkOut := now
	e.patchLocked(attendanceID, func(r *store.AttendanceRecord) {
		r.CheckOutTime = &checkOut
	})
	e.publishLocked()
	gen := e.generation
	e.wg.Add(1)
	e.mu.Unlock()

	op := newOp(attendanceID)

	go func() {
		defer e.wg.Done()

		err := e.store.UpdateAttendance(e.ctx, attendanceID, store.Patch{CheckOutTime: &now})
		e.finishCheckOut(gen, attendanceID, err)
		op.resolve(store.AttendanceRecord{}, err)
	}()

	return op, nil
}

func (e *Engine) finishCheckOut(gen uint64, id string, err error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	if err == nil {
		e.notifyLocked(LevelSuccess, "check-out recorded")
		e.mu.Unlock()
		return
	}

	e.log.Printf("reconcile : check-out %s : %v", id, err)
	e.notifyLocked(LevelError, "check-out failed: "+err.Error())

	// A newer load already replaced the optimistic value.
	if gen != e.generation {
		e.mu.Unlock()
		return
	}

	day := e.date
	next := e.beginLoadLocked()
	e.mu.Unlock()

	if err := e.load(e.ctx, next, day); err != nil {
		e.log.Printf("reconcile : resync after check-out : %v", err)
	}
}

// UpdateNote replaces the note of attendanceID. Notes can be edited on any
// date. A failed save is reported but the local value is kept.
func (e *Engine) UpdateNote(attendanceID string, text string) (*Op, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if err := e.checkTargetLocked(attendanceID); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	note := text
	e.patchLocked(attendanceID, func(r *store.AttendanceRecord) {
		r.Note = &note
	})
	e.publishLocked()
	e.wg.Add(1)
	e.mu.Unlock()

	op := newOp(attendanceID)

	go func() {
		defer e.wg.Done()

		err := e.store.UpdateAttendance(e.ctx, attendanceID, store.Patch{Note: &text})
		if err != nil {
			e.log.Printf("reconcile : note %s : %v", attendanceID, err)
			e.notify(LevelError, "could not save note: "+err.Error())
		} else {
			e.notify(LevelSuccess, "note saved")
		}
		op.resolve(store.AttendanceRecord{}, err)
	}()

	return op, nil
}

// checkTargetLocked validates the target of an update.
func (e *Engine) checkTargetLocked(id string) error {
	if IsTemp(id) {
		e.notifyLocked(LevelWarning, msgPending)
		return errors.Wrap(ErrInvalidOperation, msgPending)
	}
	if e.indexLocked(id) < 0 {
		e.notifyLocked(LevelWarning, "attendance record not found")
		return errors.Wrap(ErrNotFound, id)
	}
	return nil
}

// AddEmployee inserts an employee and appends it to the roster once the
// store accepted it.
func (e *Engine) AddEmployee(ctx context.Context, name string, email, phone *string) (store.Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Employee{}, errors.Wrap(ErrInvalidInput, "employee name is required")
	}

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return store.Employee{}, ErrClosed
	}

	employee, err := e.store.InsertEmployee(ctx, store.NewEmployee{
		Name:  name,
		Email: optional(email),
		Phone: optional(phone),
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.log.Printf("reconcile : add employee %q : %v", name, err)
		e.notifyLocked(LevelError, "could not add employee: "+err.Error())
		return store.Employee{}, err
	}
	if e.closed {
		return employee, nil
	}

	e.employees = append(e.employees, employee)
	e.publishLocked()
	e.notifyLocked(LevelSuccess, "employee "+employee.Name+" added")

	return employee, nil
}

// History returns every record of employeeID, newest date first. On failure
// the list is empty and the error is returned.
func (e *Engine) History(ctx context.Context, employeeID string) ([]store.AttendanceRecord, error) {
	list, err := e.store.ListAttendanceForEmployee(ctx, employeeID)
	if err != nil {
		e.log.Printf("reconcile : history %s : %v", employeeID, err)
		e.notify(LevelError, "could not load attendance history")
		return []store.AttendanceRecord{}, err
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].Date > list[j].Date })
	if list == nil {
		list = []store.AttendanceRecord{}
	}

	return list, nil
}

// Close stops live updates, cancels pending remote calls and waits for
// them to settle. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()

	e.cancel()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	e.wg.Wait()

	return err
}

// =============================================================================

func (e *Engine) subscribe(epoch uint64) {
	onInsert := func(r store.AttendanceRecord) { e.applyRemote(epoch, store.EventInsert, r) }
	onUpdate := func(r store.AttendanceRecord) { e.applyRemote(epoch, store.EventUpdate, r) }

	sub, err := e.store.SubscribeAttendanceChanges(e.ctx, onInsert, onUpdate)
	if err != nil {
		e.log.Printf("reconcile : subscribe : %v", err)
		e.notify(LevelWarning, msgLiveUnavailable)
		return
	}

	e.mu.Lock()
	if e.closed || e.epoch != epoch {
		e.mu.Unlock()
		sub.Close()
		return
	}
	e.sub = sub
	e.mu.Unlock()
}

func (e *Engine) applyRemote(epoch uint64, kind store.EventKind, r store.AttendanceRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || epoch != e.epoch || r.Date != e.date {
		return
	}

	switch kind {
	case store.EventInsert:
		if e.indexLocked(r.ID) >= 0 {
			return
		}
		e.attendance = append(e.attendance, r)

	case store.EventUpdate:
		if !e.patchLocked(r.ID, func(old *store.AttendanceRecord) { *old = r }) {
			return
		}

	default:
		return
	}

	e.publishLocked()
}

// load fetches the roster and the day's records concurrently and applies
// them if gen is still current.
func (e *Engine) load(ctx context.Context, gen uint64, day string) error {
	var (
		employees []store.Employee
		records   []store.AttendanceRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := e.store.ListEmployees(gctx)
		employees = list
		return err
	})
	g.Go(func() error {
		list, err := e.store.ListAttendance(gctx, day)
		records = list
		return err
	})
	err := g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if gen != e.generation {
		e.log.Printf("reconcile : discarding load of %s : generation %d superseded by %d", day, gen, e.generation)
		return err
	}

	if err != nil {
		e.log.Printf("reconcile : load %s : %v", day, err)
		e.state = StateError
		e.lastErr = err.Error()
		e.publishLocked()
		e.notifyLocked(LevelError, msgLoadFailed)
		return err
	}

	if employees == nil {
		employees = []store.Employee{}
	}
	if records == nil {
		records = []store.AttendanceRecord{}
	}

	e.employees = employees
	e.attendance = records
	e.state = StateLoaded
	e.lastErr = ""
	e.publishLocked()

	return nil
}

func (e *Engine) beginLoadLocked() uint64 {
	e.generation++
	e.state = StateLoading
	e.publishLocked()
	return e.generation
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.attendance {
		if e.attendance[i].ID == id {
			return i
		}
	}
	return -1
}

// patchLocked applies fn to every record with id and reports whether any
// matched.
func (e *Engine) patchLocked(id string, fn func(*store.AttendanceRecord)) bool {
	matched := false
	for i := range e.attendance {
		if e.attendance[i].ID == id {
			fn(&e.attendance[i])
			matched = true
		}
	}
	return matched
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Date:       e.date,
		Today:      e.policy.IsToday(e.date),
		State:      e.state,
		Error:      e.lastErr,
		Version:    e.version,
		Employees:  slices.Clone(e.employees),
		Attendance: slices.Clone(e.attendance),
	}
}

func (e *Engine) publishLocked() {
	e.version++
	e.observer.SnapshotChanged(e.snapshotLocked())
}

func (e *Engine) notifyLocked(level Level, message string) {
	e.observer.Notify(Notice{Level: level, Message: message, Time: e.policy.Now()})
}

func (e *Engine) notify(level Level, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifyLocked(level, message)
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
