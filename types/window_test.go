package types

import (
	"testing"
	"time"
)

func TestFirstDayOfNextMonth(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid month", time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"last day", time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"december rolls year", time.Date(2025, 12, 20, 8, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"first day", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstDayOfNextMonth(tt.in); !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindowFor(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

	week := WindowFor(WindowWeek, now)
	if !week.Since.Equal(now.AddDate(0, 0, -7)) {
		t.Errorf("week since: got %v", week.Since)
	}
	if !week.Contains(now.Add(-time.Hour)) {
		t.Error("week should contain an hour ago")
	}
	if !week.Contains(now) {
		t.Error("window upper bound is inclusive")
	}
	if week.Contains(now.Add(time.Second)) {
		t.Error("week should not contain the future")
	}
	if week.Contains(now.AddDate(0, 0, -8)) {
		t.Error("week should not contain eight days ago")
	}

	month := WindowFor(WindowMonth, now)
	if !month.Since.Equal(now.AddDate(0, 0, -30)) {
		t.Errorf("month since: got %v", month.Since)
	}

	all := WindowFor(WindowAll, now)
	if !all.IsUnbounded() {
		t.Error("all window should be unbounded")
	}
	if !all.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("unbounded window should contain everything")
	}
}

func TestParseWindowKind(t *testing.T) {
	if k, err := ParseWindowKind(""); err != nil || k != WindowAll {
		t.Errorf("empty: got %q, %v", k, err)
	}
	if k, err := ParseWindowKind("month"); err != nil || k != WindowMonth {
		t.Errorf("month: got %q, %v", k, err)
	}
	if _, err := ParseWindowKind("fortnight"); err == nil {
		t.Error("expected error for unknown window")
	}
}
