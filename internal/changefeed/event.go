// Package changefeed carries attendance change notifications from the
// database to subscribers, over Postgres LISTEN/NOTIFY or Redis pub/sub.
package changefeed

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/pkg/errors"
)

// Channel is the default channel name shared by both transports.
const Channel = "attendance_changes"

// Handler receives decoded events in delivery order.
type Handler func(store.Event)

// Feed opens change subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, handler Handler) (store.Subscription, error)
}

// Publisher pushes events for transports the database does not feed itself.
type Publisher interface {
	Publish(ctx context.Context, ev store.Event) error
}

// envelope is the payload written by notify_attendance_change().
type envelope struct {
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
}

// row mirrors row_to_json(NEW) of the attendance table.
type row struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	Date         string     `json:"date"`
	CheckInTime  *time.Time `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	Note         *string    `json:"note"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Decode parses and validates a notification payload.
func Decode(payload []byte) (store.Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return store.Event{}, errors.Wrap(store.ErrMalformedRow, "decoding envelope: "+err.Error())
	}

	kind := store.EventKind(strings.ToUpper(env.Operation))
	if kind != store.EventInsert && kind != store.EventUpdate {
		return store.Event{}, errors.Wrapf(store.ErrMalformedRow, "unsupported operation %q", env.Operation)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return store.Event{}, errors.Wrap(store.ErrMalformedRow, "missing data")
	}

	var r row
	if err := json.Unmarshal(env.Data, &r); err != nil {
		return store.Event{}, errors.Wrap(store.ErrMalformedRow, "decoding row: "+err.Error())
	}

	day, err := timepolicy.ParseDay(r.Date)
	if err != nil {
		return store.Event{}, errors.Wrapf(store.ErrMalformedRow, "row date %q", r.Date)
	}

	rec := store.AttendanceRecord{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		Date:         day,
		CheckInTime:  r.CheckInTime,
		CheckOutTime: r.CheckOutTime,
		Note:         r.Note,
		Status:       timepolicy.Status(r.Status),
		CreatedAt:    r.CreatedAt,
	}
	if err := rec.Validate(); err != nil {
		return store.Event{}, err
	}

	return store.Event{Kind: kind, Record: rec}, nil
}

// Encode renders ev in the trigger's payload shape.
func Encode(ev store.Event) ([]byte, error) {
	data, err := json.Marshal(row{
		ID:           ev.Record.ID,
		EmployeeID:   ev.Record.EmployeeID,
		Date:         ev.Record.Date,
		CheckInTime:  ev.Record.CheckInTime,
		CheckOutTime: ev.Record.CheckOutTime,
		Note:         ev.Record.Note,
		Status:       string(ev.Record.Status),
		CreatedAt:    ev.Record.CreatedAt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding row")
	}

	return json.Marshal(envelope{Operation: string(ev.Kind), Data: data})
}

// subscription stops a delivery loop once.
type subscription struct {
	once    sync.Once
	done    chan struct{}
	closeFn func() error
	err     error
}

func newSubscription(closeFn func() error) *subscription {
	return &subscription{done: make(chan struct{}), closeFn: closeFn}
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.closeFn != nil {
			s.err = s.closeFn()
		}
	})
	return s.err
}
