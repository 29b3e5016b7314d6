// Package dates holds the calendar arithmetic shared by the availability
// repository, the grid builder and the booking flow. All helpers operate on
// calendar days: the time of day and the zone offset are ignored unless a
// function says otherwise.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// ISOLayout is the calendar-date layout used as availability map key.
const ISOLayout = "2006-01-02"

// FormatISO renders the calendar date of t as YYYY-MM-DD in t's own location.
func FormatISO(t time.Time) string {
	return t.Format(ISOLayout)
}

// ParseISO parses a YYYY-MM-DD string as midnight in loc.
func ParseISO(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(ISOLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// DatePart truncates an ISO-8601 timestamp to its calendar date without any
// zone conversion: "2026-03-04T23:30:00-05:00" is 2026-03-04.
func DatePart(timestamp string) (string, bool) {
	ts := strings.TrimSpace(timestamp)
	if len(ts) < len(ISOLayout) {
		return "", false
	}
	day := ts[:len(ISOLayout)]
	if _, err := time.Parse(ISOLayout, day); err != nil {
		return "", false
	}
	return day, true
}

// StartOfDay returns midnight of t's calendar date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of t's calendar date.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsToday reports whether d is today's calendar date.
func IsToday(d, today time.Time) bool {
	return SameDay(d, today)
}

// IsPast reports whether d's calendar date is strictly before today's.
func IsPast(d, today time.Time) bool {
	return FormatISO(d) < FormatISO(today)
}

// MondayOffset is the number of days between Monday and w (Monday = 0).
func MondayOffset(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// WeekStart returns the Monday starting t's week. Sundays belong to the week
// that started six days earlier.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -MondayOffset(day.Weekday()))
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// MonthEnd returns the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return MonthEnd(t).Day()
}

// FormatClock renders the wall-clock time of t as HH:MM.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}
