package dashboard_test

import (
	"strings"
	"testing"
	"time"

	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"
)

func clockAt(hh, mm int) *time.Time {
	t := time.Date(2024, 3, 4, hh, mm, 0, 0, time.UTC)
	return &t
}

func employees(names ...string) []store.Employee {
	list := make([]store.Employee, 0, len(names))
	for _, n := range names {
		list = append(list, store.Employee{ID: strings.ToLower(n), Name: n})
	}
	return list
}

func names(rows []dashboard.Row) []string {
	out := []string{}
	for _, r := range rows {
		out = append(out, r.Employee.Name)
	}
	return out
}

func TestBoardOfTwo(t *testing.T) {
	snap := reconcile.Snapshot{
		Date:      "2024-03-04",
		Employees: employees("A", "B"),
		Attendance: []store.AttendanceRecord{
			{ID: "1", EmployeeID: "a", Date: "2024-03-04", CheckInTime: clockAt(8, 0), Status: timepolicy.StatusPresent},
		},
	}

	want := dashboard.DailyStats{TotalEmployees: 2, Present: 1, CheckedOut: 0, Working: 1, Late: 0}
	if got := dashboard.Stats(snap); got != want {
		t.Fatalf("Stats = %+v, want %+v", got, want)
	}

	if got := names(dashboard.Rows(snap, dashboard.TabCheckIn, "")); strings.Join(got, ",") != "B" {
		t.Fatalf("checkin tab = %v, want [B]", got)
	}
	if got := names(dashboard.Rows(snap, dashboard.TabCheckOut, "")); strings.Join(got, ",") != "A" {
		t.Fatalf("checkout tab = %v, want [A]", got)
	}
	if got := names(dashboard.Rows(snap, dashboard.TabAll, "")); strings.Join(got, ",") != "A,B" {
		t.Fatalf("all tab = %v, want [A B]", got)
	}
}

func TestStatsCountsUnresolvedRecords(t *testing.T) {
	snap := reconcile.Snapshot{
		Employees: employees("A"),
		Attendance: []store.AttendanceRecord{
			{ID: "1", EmployeeID: "a", CheckInTime: clockAt(8, 0), CheckOutTime: clockAt(17, 0), Status: timepolicy.StatusPresent},
			{ID: "2", EmployeeID: "ghost", CheckInTime: clockAt(9, 30), Status: timepolicy.StatusLate},
		},
	}

	want := dashboard.DailyStats{TotalEmployees: 1, Present: 2, CheckedOut: 1, Working: 1, Late: 1}
	if got := dashboard.Stats(snap); got != want {
		t.Fatalf("Stats = %+v, want %+v", got, want)
	}
}

func TestRecentActivity(t *testing.T) {
	snap := reconcile.Snapshot{
		Employees: employees("A", "B", "C", "D", "E", "F"),
		Attendance: []store.AttendanceRecord{
			{ID: "1", EmployeeID: "a", CheckInTime: clockAt(8, 0)},
			{ID: "2", EmployeeID: "b", CheckInTime: clockAt(8, 5)},
			{ID: "3", EmployeeID: "c", CheckInTime: clockAt(8, 5)},
			{ID: "4", EmployeeID: "d"},
			{ID: "5", EmployeeID: "e", CheckInTime: clockAt(7, 0)},
			{ID: "6", EmployeeID: "f", CheckInTime: clockAt(9, 0)},
			{ID: "7", EmployeeID: "ghost", CheckInTime: clockAt(7, 30)},
		},
	}

	got := dashboard.RecentActivity(snap)

	// F 9:00, B/C 8:05 in collection order, A 8:00, ghost 7:30 skipped.
	want := []string{"F", "B", "C", "A"}
	if len(got) != len(want) {
		t.Fatalf("RecentActivity = %+v", got)
	}
	for i, a := range got {
		if a.EmployeeName != want[i] || a.Type != "in" {
			t.Fatalf("entry %d = %+v, want %s", i, a, want[i])
		}
	}
}

func TestLateEmployees(t *testing.T) {
	snap := reconcile.Snapshot{
		Employees: employees("A"),
		Attendance: []store.AttendanceRecord{
			{ID: "1", EmployeeID: "a", CheckInTime: clockAt(9, 10), Status: timepolicy.StatusLate},
			{ID: "2", EmployeeID: "ghost", CheckInTime: clockAt(9, 20), Status: timepolicy.StatusLate},
			{ID: "3", EmployeeID: "a", Status: timepolicy.StatusLate},
			{ID: "4", EmployeeID: "a", CheckInTime: clockAt(8, 0), Status: timepolicy.StatusPresent},
		},
	}

	got := dashboard.LateEmployees(snap)
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != dashboard.UnknownEmployee {
		t.Fatalf("LateEmployees = %+v", got)
	}
}

func TestRowsSearchAndFirstRecord(t *testing.T) {
	snap := reconcile.Snapshot{
		Employees: employees("Anna", "Hannah", "Bob"),
		Attendance: []store.AttendanceRecord{
			{ID: "1", EmployeeID: "hannah", CheckInTime: clockAt(8, 0)},
			{ID: "2", EmployeeID: "hannah", CheckInTime: clockAt(8, 10), CheckOutTime: clockAt(12, 0)},
		},
	}

	got := dashboard.Rows(snap, dashboard.TabAll, "  ANN ")
	if strings.Join(names(got), ",") != "Anna,Hannah" {
		t.Fatalf("search = %v", names(got))
	}
	if got[1].Record == nil || got[1].Record.ID != "1" {
		t.Fatalf("record = %+v, want first encountered", got[1].Record)
	}

	if got := names(dashboard.Rows(snap, dashboard.TabCheckOut, "ann")); strings.Join(got, ",") != "Hannah" {
		t.Fatalf("checkout tab = %v", got)
	}
}

func TestParseTab(t *testing.T) {
	tests := []struct {
		in   string
		want dashboard.Tab
		ok   bool
	}{
		{"", dashboard.TabCheckIn, true},
		{"checkin", dashboard.TabCheckIn, true},
		{"CheckOut", dashboard.TabCheckOut, true},
		{"all", dashboard.TabAll, true},
		{"late", "", false},
	}

	for _, tt := range tests {
		got, err := dashboard.ParseTab(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseTab(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestShareText(t *testing.T) {
	policy := timepolicy.Policy{LateAfter: timepolicy.DefaultLateAfter, Location: time.UTC}
	note := "client visit"
	snap := reconcile.Snapshot{
		Date:      "2024-03-04",
		Employees: employees("A", "B"),
		Attendance: []store.AttendanceRecord{
			{ID: "1", EmployeeID: "a", CheckInTime: clockAt(9, 15), Note: &note, Status: timepolicy.StatusLate},
		},
	}

	text := dashboard.ShareText(snap, dashboard.TabAll, dashboard.Rows(snap, dashboard.TabAll, ""), policy)

	for _, want := range []string{
		"ATTENDANCE REPORT (2024-03-04)",
		"1. A: 09:15:00 - ... (late) [client visit]",
		"2. B: not arrived",
		"Total: 2 employees (present: 1)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("share text missing %q:\n%s", want, text)
		}
	}
}

func TestSummarize(t *testing.T) {
	history := []store.AttendanceRecord{
		{Status: timepolicy.StatusPresent},
		{Status: timepolicy.StatusLate},
		{Status: timepolicy.StatusLate},
		{Status: timepolicy.StatusAbsent},
	}

	want := dashboard.HistorySummary{TotalDays: 4, LateDays: 2, OnTimeDays: 1}
	if got := dashboard.Summarize(history); got != want {
		t.Fatalf("Summarize = %+v, want %+v", got, want)
	}
}
