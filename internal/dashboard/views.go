// Package dashboard projects a board snapshot into the read-only views the
// dashboard shows. Every function is pure and takes the snapshot explicitly.
package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/pkg/errors"
)

// RecentLimit is the length of the recent activity feed.
const RecentLimit = 5

// UnknownEmployee stands in for a name that cannot be resolved.
const UnknownEmployee = "Unknown"

// DailyStats are the counters of the selected date.
type DailyStats struct {
	TotalEmployees int `json:"totalEmployees"`
	Present        int `json:"present"`
	CheckedOut     int `json:"checkedOut"`
	Working        int `json:"working"`
	Late           int `json:"late"`
}

// Stats counts over the snapshot's attendance, whether or not each record
// resolves to an employee.
func Stats(s reconcile.Snapshot) DailyStats {
	st := DailyStats{TotalEmployees: len(s.Employees)}

	for _, r := range s.Attendance {
		if r.CheckInTime != nil {
			st.Present++
		}
		if r.CheckOutTime != nil {
			st.CheckedOut++
		}
		if r.Status == timepolicy.StatusLate {
			st.Late++
		}
	}
	st.Working = st.Present - st.CheckedOut

	return st
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	EmployeeName string    `json:"employeeName"`
	Time         time.Time `json:"time"`
	Type         string    `json:"type"`
}

// RecentActivity returns up to RecentLimit latest check-ins. Ties keep
// collection order and records of unknown employees are skipped.
func RecentActivity(s reconcile.Snapshot) []Activity {
	checkedIn := make([]store.AttendanceRecord, 0, len(s.Attendance))
	for _, r := range s.Attendance {
		if r.CheckInTime != nil {
			checkedIn = append(checkedIn, r)
		}
	}

	sort.SliceStable(checkedIn, func(i, j int) bool {
		return checkedIn[i].CheckInTime.After(*checkedIn[j].CheckInTime)
	})
	if len(checkedIn) > RecentLimit {
		checkedIn = checkedIn[:RecentLimit]
	}

	names := nameIndex(s.Employees)
	activity := make([]Activity, 0, len(checkedIn))
	for _, r := range checkedIn {
		name, ok := names[r.EmployeeID]
		if !ok {
			continue
		}
		activity = append(activity, Activity{EmployeeName: name, Time: *r.CheckInTime, Type: "in"})
	}

	return activity
}

// LateEntry is one row of the late employees list.
type LateEntry struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

// LateEmployees lists every late check-in in collection order.
func LateEmployees(s reconcile.Snapshot) []LateEntry {
	names := nameIndex(s.Employees)

	list := []LateEntry{}
	for _, r := range s.Attendance {
		if r.Status != timepolicy.StatusLate || r.CheckInTime == nil {
			continue
		}
		name, ok := names[r.EmployeeID]
		if !ok {
			name = UnknownEmployee
		}
		list = append(list, LateEntry{Name: name, Time: *r.CheckInTime})
	}

	return list
}

// =============================================================================

// Tab selects a subset of the roster.
type Tab string

const (
	// TabCheckIn lists employees that have not arrived.
	TabCheckIn Tab = "checkin"

	// TabCheckOut lists employees that are still working.
	TabCheckOut Tab = "checkout"

	// TabAll lists everyone.
	TabAll Tab = "all"
)

// ErrUnknownTab is returned by ParseTab.
var ErrUnknownTab = errors.New("unknown tab")

// ParseTab parses a tab name; the empty string is TabCheckIn.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TabCheckIn, nil
	case TabCheckIn, TabCheckOut, TabAll:
		return t, nil
	default:
		return "", errors.Wrapf(ErrUnknownTab, "%q", s)
	}
}

// Row pairs an employee with its record of the selected date, if any.
type Row struct {
	Employee store.Employee          `json:"employee"`
	Record   *store.AttendanceRecord `json:"attendance"`
}

// RecordFor returns the first record of employeeID in the snapshot.
func RecordFor(s reconcile.Snapshot, employeeID string) *store.AttendanceRecord {
	for i := range s.Attendance {
		if s.Attendance[i].EmployeeID == employeeID {
			r := s.Attendance[i]
			return &r
		}
	}
	return nil
}

// Rows filters the roster by a case-insensitive name search and then by tab,
// keeping roster order.
func Rows(s reconcile.Snapshot, tab Tab, search string) []Row {
	search = strings.ToLower(strings.TrimSpace(search))

	rows := []Row{}
	for _, e := range s.Employees {
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}

		rec := RecordFor(s, e.ID)
		checkedIn := rec != nil && rec.CheckInTime != nil

		switch tab {
		case TabCheckIn:
			if checkedIn {
				continue
			}
		case TabCheckOut:
			if !checkedIn || rec.CheckOutTime != nil {
				continue
			}
		}

		rows = append(rows, Row{Employee: e, Record: rec})
	}

	return rows
}

// ShareText renders rows as the plain-text roll call sent to chat groups.
func ShareText(s reconcile.Snapshot, tab Tab, rows []Row, policy timepolicy.Policy) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ATTENDANCE REPORT (%s)\n", s.Date)
	switch tab {
	case TabCheckIn:
		b.WriteString("(not arrived)\n")
	case TabCheckOut:
		b.WriteString("(working)\n")
	}
	b.WriteString(strings.Repeat("-", 32) + "\n")

	present := 0
	for i, row := range rows {
		fmt.Fprintf(&b, "%d. %s", i+1, row.Employee.Name)

		rec := row.Record
		if rec == nil || rec.CheckInTime == nil {
			b.WriteString(": not arrived\n")
			continue
		}
		present++

		out := "..."
		if rec.CheckOutTime != nil {
			out = policy.FormatClock(rec.CheckOutTime)
		}
		fmt.Fprintf(&b, ": %s - %s", policy.FormatClock(rec.CheckInTime), out)
		if rec.Status == timepolicy.StatusLate {
			b.WriteString(" (late)")
		}
		if rec.Note != nil && *rec.Note != "" {
			fmt.Fprintf(&b, " [%s]", *rec.Note)
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("-", 32) + "\n")
	fmt.Fprintf(&b, "Total: %d employees (present: %d)", len(rows), present)

	return b.String()
}

// =============================================================================

// HistorySummary aggregates an employee's attendance history.
type HistorySummary struct {
	TotalDays  int `json:"totalDays"`
	LateDays   int `json:"lateDays"`
	OnTimeDays int `json:"onTimeDays"`
}

// Summarize counts history by status. Absent days count toward neither
// late nor on time.
func Summarize(history []store.AttendanceRecord) HistorySummary {
	sum := HistorySummary{TotalDays: len(history)}
	for _, r := range history {
		switch r.Status {
		case timepolicy.StatusLate:
			sum.LateDays++
		case timepolicy.StatusPresent:
			sum.OnTimeDays++
		}
	}
	return sum
}

func nameIndex(employees []store.Employee) map[string]string {
	names := make(map[string]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}
	return names
}
