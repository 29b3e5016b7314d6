// Package calendar builds the month and week grids the date picker renders.
// Weeks start on Monday.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/booking-widget/internal/availability"
	"github.com/wolfman30/booking-widget/internal/dates"
	"github.com/wolfman30/booking-widget/internal/locale"
)

// ViewMode selects the grid layout.
type ViewMode string

const (
	Month ViewMode = "month"
	Week  ViewMode = "week"
)

// ParseViewMode validates a configured view mode. Empty means month.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Month:
		return Month, nil
	case Week:
		return Week, nil
	default:
		return "", fmt.Errorf("unknown calendar view mode %q", s)
	}
}

// Cell is one square of the grid. Padding cells have a nil Date.
type Cell struct {
	Date         *time.Time
	IsAvailable  bool
	IsToday      bool
	IsPast       bool
	IsSelectable bool
}

// IsPadding reports whether the cell only fills the leading week row.
func (c Cell) IsPadding() bool {
	return c.Date == nil
}

// Key returns the YYYY-MM-DD key of the cell, or "" for padding.
func (c Cell) Key() string {
	if c.Date == nil {
		return ""
	}
	return dates.FormatISO(*c.Date)
}

// Anchor normalizes t to the first day of its month or the Monday of its week.
func Anchor(mode ViewMode, t time.Time) time.Time {
	if mode == Week {
		return dates.WeekStart(t)
	}
	return dates.MonthStart(t)
}

// RangeFor returns the day span the grid for anchor covers.
func RangeFor(mode ViewMode, anchor time.Time) availability.Range {
	start := Anchor(mode, anchor)
	if mode == Week {
		return availability.Range{Start: start, End: start.AddDate(0, 0, 6)}
	}
	return availability.Range{Start: start, End: dates.MonthEnd(start)}
}

// Shift moves the anchor by steps months or weeks. Negative steps move back.
func Shift(mode ViewMode, anchor time.Time, steps int) time.Time {
	start := Anchor(mode, anchor)
	if mode == Week {
		return start.AddDate(0, 0, 7*steps)
	}
	return start.AddDate(0, steps, 0)
}

// Next moves the anchor one month or one week forward.
func Next(mode ViewMode, anchor time.Time) time.Time { return Shift(mode, anchor, 1) }

// Prev moves the anchor one month or one week back.
func Prev(mode ViewMode, anchor time.Time) time.Time { return Shift(mode, anchor, -1) }

// BuildGrid lays out the cells for anchor. It is a pure function of its
// arguments.
func BuildGrid(mode ViewMode, anchor time.Time, avail availability.Map, today time.Time) []Cell {
	start := Anchor(mode, anchor)

	var padding, days int
	if mode == Week {
		days = 7
	} else {
		padding = dates.MondayOffset(start.Weekday())
		days = dates.DaysInMonth(start)
	}

	cells := make([]Cell, 0, padding+days)
	for i := 0; i < padding; i++ {
		cells = append(cells, Cell{})
	}
	for i := 0; i < days; i++ {
		cells = append(cells, dayCell(start.AddDate(0, 0, i), avail, today))
	}
	return cells
}

func dayCell(day time.Time, avail availability.Map, today time.Time) Cell {
	d := day
	available := avail.Available(dates.FormatISO(day))
	past := dates.IsPast(day, today)
	return Cell{
		Date:         &d,
		IsAvailable:  available,
		IsToday:      dates.IsToday(day, today),
		IsPast:       past,
		IsSelectable: available && !past,
	}
}

// CellFor computes the cell a grid would show for date.
func CellFor(date time.Time, avail availability.Map, today time.Time) Cell {
	return dayCell(dates.StartOfDay(date), avail, today)
}

// Title renders the header above the grid, e.g. "October 2026" or
// "12 - 18 October 2026".
func Title(mode ViewMode, anchor time.Time, pack locale.Pack) string {
	start := Anchor(mode, anchor)
	if mode != Week {
		return fmt.Sprintf("%s %d", pack.MonthName(start.Month()), start.Year())
	}
	end := start.AddDate(0, 0, 6)
	switch {
	case start.Year() != end.Year():
		return fmt.Sprintf("%d %s %d - %d %s %d",
			start.Day(), pack.MonthName(start.Month()), start.Year(),
			end.Day(), pack.MonthName(end.Month()), end.Year())
	case start.Month() != end.Month():
		return fmt.Sprintf("%d %s - %d %s %d",
			start.Day(), pack.MonthName(start.Month()),
			end.Day(), pack.MonthName(end.Month()), end.Year())
	default:
		return fmt.Sprintf("%d - %d %s %d", start.Day(), end.Day(), pack.MonthName(end.Month()), end.Year())
	}
}

// WeekdayHeaders returns the seven column labels, Monday first.
func WeekdayHeaders(pack locale.Pack) []string {
	out := make([]string, 7)
	copy(out, pack.Weekdays[:])
	return out
}
