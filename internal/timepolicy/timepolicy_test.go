package timepolicy

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
)

func fixedPolicy(now time.Time) Policy {
	return Policy{
		LateAfter: DefaultLateAfter,
		Location:  time.UTC,
		Clock:     func() time.Time { return now },
	}
}

func at(h, m, s int) time.Time {
	return time.Date(2024, time.March, 4, h, m, s, 0, time.UTC)
}

func TestClassify(t *testing.T) {
	p := fixedPolicy(at(12, 0, 0))

	tests := []struct {
		name string
		at   time.Time
		want Status
	}{
		{"before threshold", at(8, 59, 59), StatusPresent},
		{"at threshold", at(9, 0, 0), StatusPresent},
		{"one second after", at(9, 0, 1), StatusLate},
		{"nanosecond after", at(9, 0, 0).Add(time.Nanosecond), StatusLate},
		{"midnight", at(0, 0, 0), StatusPresent},
		{"evening", at(22, 30, 0), StatusLate},
	}

	for _, tt := range tests {
		if got := p.Classify(tt.at); got != tt.want {
			t.Errorf("%s: Classify(%s) = %s, want %s", tt.name, tt.at.Format(time.TimeOnly), got, tt.want)
		}
	}
}

func TestClassifyUsesPolicyLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	p := Policy{LateAfter: DefaultLateAfter, Location: loc}

	// 01:30 UTC is 08:30 in UTC+7.
	if got := p.Classify(time.Date(2024, 3, 4, 1, 30, 0, 0, time.UTC)); got != StatusPresent {
		t.Fatalf("Classify = %s, want %s", got, StatusPresent)
	}
	// 02:30 UTC is 09:30 in UTC+7.
	if got := p.Classify(time.Date(2024, 3, 4, 2, 30, 0, 0, time.UTC)); got != StatusLate {
		t.Fatalf("Classify = %s, want %s", got, StatusLate)
	}
}

func TestClassifyOnDaylightSavingDays(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}
	p := Policy{LateAfter: DefaultLateAfter, Location: loc}

	tests := []struct {
		name string
		at   time.Time
		want Status
	}{
		{"spring forward late", time.Date(2026, 3, 8, 9, 30, 0, 0, loc), StatusLate},
		{"spring forward on time", time.Date(2026, 3, 8, 8, 59, 0, 0, loc), StatusPresent},
		{"spring forward threshold", time.Date(2026, 3, 8, 9, 0, 0, 0, loc), StatusPresent},
		{"fall back on time", time.Date(2026, 11, 1, 8, 30, 0, 0, loc), StatusPresent},
		{"fall back late", time.Date(2026, 11, 1, 9, 0, 1, 0, loc), StatusLate},
	}

	for _, tt := range tests {
		if got := p.Classify(tt.at); got != tt.want {
			t.Errorf("%s: Classify(%s) = %s, want %s", tt.name, tt.at.Format(time.RFC3339), got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	p, err := New("08:30:00", "UTC")
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	if p.LateAfter != 8*time.Hour+30*time.Minute {
		t.Fatalf("LateAfter = %s", p.LateAfter)
	}
	if got := p.Classify(at(8, 45, 0)); got != StatusLate {
		t.Fatalf("Classify = %s, want %s", got, StatusLate)
	}

	if _, err := New("9am", ""); err == nil {
		t.Fatalf("expected error for malformed threshold")
	}
	if _, err := New("", "Nowhere/Special"); err == nil {
		t.Fatalf("expected error for unknown location")
	}
}

func TestFormatClock(t *testing.T) {
	p := fixedPolicy(at(12, 0, 0))

	if got := p.FormatClock(nil); got != EmptyClock {
		t.Errorf("FormatClock(nil) = %q", got)
	}

	ts := at(7, 5, 9)
	if got := p.FormatClock(&ts); got != "07:05:09" {
		t.Errorf("FormatClock = %q, want 07:05:09", got)
	}
}

func TestDuration(t *testing.T) {
	start := at(8, 0, 0)

	tests := []struct {
		name       string
		start, end *time.Time
		want       string
	}{
		{"same instant", &start, &start, "0h 0m"},
		{"missing end", &start, nil, ""},
		{"missing start", nil, &start, ""},
		{"ninety minutes", &start, ptr(start.Add(90 * time.Minute)), "1h 30m"},
		{"floors seconds", &start, ptr(start.Add(59*time.Minute + 59*time.Second)), "0h 59m"},
		{"negative clamps", ptr(start.Add(90 * time.Minute)), &start, "0h 0m"},
		{"long day", &start, ptr(start.Add(10*time.Hour + 5*time.Minute)), "10h 5m"},
	}

	for _, tt := range tests {
		if got := Duration(tt.start, tt.end); got != tt.want {
			t.Errorf("%s: Duration = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestTotalHours(t *testing.T) {
	start := at(8, 0, 0)
	end := at(17, 45, 0)
	if got := TotalHours(&start, &end); got != "09:45" {
		t.Fatalf("TotalHours = %q, want 09:45", got)
	}
	if got := TotalHours(&end, &start); got != "00:00" {
		t.Fatalf("TotalHours negative = %q, want 00:00", got)
	}
}

func TestDayKeys(t *testing.T) {
	p := fixedPolicy(time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC))

	if got := p.TodayKey(); got != "2024-12-31" {
		t.Fatalf("TodayKey = %q", got)
	}
	if !p.IsToday("2024-12-31") || p.IsToday("2025-01-01") {
		t.Fatalf("IsToday mismatch")
	}

	p.Location = time.FixedZone("UTC+1", 60*60)
	if got := p.TodayKey(); got != "2025-01-01" {
		t.Fatalf("TodayKey in UTC+1 = %q", got)
	}

	day, err := ParseDay(" 2024-02-29 ")
	if err != nil || day != "2024-02-29" {
		t.Fatalf("ParseDay = %q, %v", day, err)
	}
	if _, err := ParseDay("2024-02-30"); !errors.Is(err, ErrInvalidDay) {
		t.Fatalf("ParseDay(2024-02-30) err = %v", err)
	}

	dt, err := DayTime("2024-02-29")
	if err != nil {
		t.Fatalf("DayTime: %v", err)
	}
	if got := DayOf(dt); got != "2024-02-29" {
		t.Fatalf("DayOf(DayTime) = %q", got)
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
