package calendar

import (
	"github.com/wolfman30/booking-widget/internal/availability"
)

// Period buckets slots for the time picker.
type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
)

// SlotGroup is a run of slots in one period, in start order.
type SlotGroup struct {
	Period Period
	Slots  []availability.TimeSlot
}

func periodOf(hour int) Period {
	switch {
	case hour < 12:
		return Morning
	case hour < 17:
		return Afternoon
	default:
		return Evening
	}
}

// GroupByPeriod splits a date's sorted slots by the wall-clock hour of their
// start. Empty periods are left out.
func GroupByPeriod(slots []availability.TimeSlot) []SlotGroup {
	order := []Period{Morning, Afternoon, Evening}
	buckets := make(map[Period][]availability.TimeSlot, len(order))
	for _, s := range slots {
		p := periodOf(s.Start.Hour())
		buckets[p] = append(buckets[p], s)
	}
	var out []SlotGroup
	for _, p := range order {
		if len(buckets[p]) > 0 {
			out = append(out, SlotGroup{Period: p, Slots: buckets[p]})
		}
	}
	return out
}
