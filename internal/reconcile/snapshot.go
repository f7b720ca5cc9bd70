package reconcile

import (
	"context"
	"strings"
	"time"

	"attendance/dashboard/internal/store"
)

// TempPrefix marks the ids of optimistic check-ins awaiting confirmation.
const TempPrefix = "tmp-"

// IsTemp reports whether id belongs to an unconfirmed check-in.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// State is the load state of the snapshot.
type State string

const (
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// Snapshot is an immutable copy of the board for one selected date.
type Snapshot struct {
	Date       string                   `json:"date"`
	Today      bool                     `json:"today"`
	State      State                    `json:"state"`
	Error      string                   `json:"error,omitempty"`
	Version    uint64                   `json:"version"`
	Employees  []store.Employee         `json:"employees"`
	Attendance []store.AttendanceRecord `json:"attendance"`
}

// Level grades a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-visible outcome of an engine operation.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Observer receives every snapshot change and notice. Methods are called
// with the engine lock held, in order, and must neither block nor call back
// into the engine.
type Observer interface {
	SnapshotChanged(Snapshot)
	Notify(Notice)
}

type nopObserver struct{}

func (nopObserver) SnapshotChanged(Snapshot) {}
func (nopObserver) Notify(Notice)            {}

// Op is an optimistic mutation whose remote confirmation is pending.
type Op struct {
	ID string

	done   chan struct{}
	record store.AttendanceRecord
	err    error
}

func newOp(id string) *Op {
	return &Op{ID: id, done: make(chan struct{})}
}

func (o *Op) resolve(record store.AttendanceRecord, err error) {
	o.record = record
	o.err = err
	close(o.done)
}

// Done is closed once the store answered.
func (o *Op) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the store answered or ctx is done. For check-ins the
// record is the one the store assigned.
func (o *Op) Wait(ctx context.Context) (store.AttendanceRecord, error) {
	select {
	case <-o.done:
		return o.record, o.err
	case <-ctx.Done():
		return store.AttendanceRecord{}, ctx.Err()
	}
}
