// Package timepolicy maps check-in instants to a lateness classification and
// renders the clock, duration and calendar-day values used across the board.
package timepolicy

import (
	"fmt"
	"strings"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"github.com/pkg/errors"
)

// Status is the attendance classification assigned once at check-in.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	}
	return false
}

const (
	// EmptyClock is rendered for a missing or unparsable timestamp.
	EmptyClock = "--:--:--"

	// DefaultLateAfter is the offset from midnight after which a check-in is late.
	DefaultLateAfter = 9 * time.Hour

	clockLayout = "15:04:05"
)

// ErrInvalidDay is returned when a calendar day key cannot be parsed.
var ErrInvalidDay = errors.New("invalid day, expected YYYY-MM-DD")

// Policy holds the lateness threshold, the location the office clock runs
// in and the clock itself.
type Policy struct {
	LateAfter time.Duration
	Location  *time.Location
	Clock     func() time.Time
}

// Default returns the 09:00:00 local time policy.
func Default() Policy {
	return Policy{
		LateAfter: DefaultLateAfter,
		Location:  time.Local,
		Clock:     time.Now,
	}
}

// New builds a policy from a "HH:MM:SS" threshold and an IANA location name.
// An empty location means local time.
func New(lateAfter string, location string) (Policy, error) {
	p := Default()

	if lateAfter != "" {
		t, err := time.Parse(clockLayout, lateAfter)
		if err != nil {
			return Policy{}, errors.Wrapf(err, "parsing late threshold %q", lateAfter)
		}
		p.LateAfter = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	}

	if location != "" {
		loc, err := time.LoadLocation(location)
		if err != nil {
			return Policy{}, errors.Wrapf(err, "loading location %q", location)
		}
		p.Location = loc
	}

	return p, nil
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Now returns the current instant in the policy location.
func (p Policy) Now() time.Time {
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	return clock().In(p.location())
}

// Classify returns StatusLate when t is strictly after the threshold on t's
// own calendar day, StatusPresent otherwise. The threshold is a wall clock
// time, so it stays put on daylight saving transition days.
func (p Policy) Classify(t time.Time) Status {
	local := t.In(p.location())
	y, m, d := local.Date()

	h := int(p.LateAfter / time.Hour)
	mi := int(p.LateAfter % time.Hour / time.Minute)
	sec := int(p.LateAfter % time.Minute / time.Second)
	threshold := time.Date(y, m, d, h, mi, sec, 0, p.location())

	if local.After(threshold) {
		return StatusLate
	}
	return StatusPresent
}

// FormatClock renders t as zero padded HH:MM:SS in the policy location.
func (p Policy) FormatClock(t *time.Time) string {
	if t == nil || t.IsZero() {
		return EmptyClock
	}
	return t.In(p.location()).Format(clockLayout)
}

// Duration renders the time between start and end as "{h}h {m}m". It is
// empty when either bound is missing and never negative.
func Duration(start, end *time.Time) string {
	if start == nil || end == nil || start.IsZero() || end.IsZero() {
		return ""
	}

	minutes := int64(elapsed(*start, *end) / time.Minute)
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// TotalHours renders the elapsed time as HH:MM for reports.
func TotalHours(start, end *time.Time) string {
	if start == nil || end == nil {
		return ""
	}

	minutes := int64(elapsed(*start, *end) / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func elapsed(start, end time.Time) time.Duration {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// TodayKey returns the YYYY-MM-DD key of the current day in the policy location.
func (p Policy) TodayKey() string {
	return p.DayKey(p.Now())
}

// DayKey returns the YYYY-MM-DD key of the day t falls on in the policy location.
func (p Policy) DayKey(t time.Time) string {
	return date.Date{Time: t.In(p.location())}.String()
}

// IsToday reports whether day is the current day key.
func (p Policy) IsToday(day string) bool {
	return day == p.TodayKey()
}

// ParseDay validates a YYYY-MM-DD key and returns it in canonical form.
func ParseDay(s string) (string, error) {
	d, err := date.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return "", errors.Wrap(ErrInvalidDay, s)
	}
	return d.String(), nil
}

// DayTime returns midnight UTC of the day key, the form the database date
// column is written with.
func DayTime(day string) (time.Time, error) {
	d, err := date.ParseDate(day)
	if err != nil {
		return time.Time{}, errors.Wrap(ErrInvalidDay, day)
	}
	return d.ToTime(), nil
}

// DayOf returns the key of a database date value, which carries no zone.
func DayOf(t time.Time) string {
	return date.Date{Time: t}.String()
}
