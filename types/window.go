package types

import (
	"fmt"
	"time"
)

// WindowKind names a reporting period.
type WindowKind string

// Reporting periods. Week and month are trailing windows (7 and 30 days)
// ending at the evaluation time, not calendar weeks or months.
const (
	WindowAll   WindowKind = "all"
	WindowDay   WindowKind = "day"
	WindowWeek  WindowKind = "week"
	WindowMonth WindowKind = "month"
	WindowYear  WindowKind = "year"
)

// IsValid reports whether k is a known window kind.
func (k WindowKind) IsValid() bool {
	switch k {
	case WindowAll, WindowDay, WindowWeek, WindowMonth, WindowYear:
		return true
	}
	return false
}

// ParseWindowKind parses s into a WindowKind. An empty string means WindowAll.
func ParseWindowKind(s string) (WindowKind, error) {
	if s == "" {
		return WindowAll, nil
	}
	k := WindowKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("types: unknown window %q", s)
	}
	return k, nil
}

// Window is a closed time range [Since, Until]. A zero Since means
// unbounded below; a zero Until means unbounded above.
type Window struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// WindowFor returns the trailing window of the given kind ending at now.
func WindowFor(kind WindowKind, now time.Time) Window {
	switch kind {
	case WindowDay:
		return Window{Since: now.Add(-24 * time.Hour), Until: now}
	case WindowWeek:
		return Window{Since: now.AddDate(0, 0, -7), Until: now}
	case WindowMonth:
		return Window{Since: now.AddDate(0, 0, -30), Until: now}
	case WindowYear:
		return Window{Since: now.AddDate(-1, 0, 0), Until: now}
	default:
		return Window{}
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

// IsUnbounded reports whether the window has no bounds at all.
func (w Window) IsUnbounded() bool {
	return w.Since.IsZero() && w.Until.IsZero()
}

// FirstDayOfNextMonth returns midnight on the first day of the calendar
// month following t, in t's location.
func FirstDayOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
}

// StartOfYear returns midnight on January 1st of t's year, in t's location.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
