// Package availability fetches provider availability and keeps the current
// date → slots mapping for the calendar.
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/wolfman30/booking-widget/internal/dates"
	"github.com/wolfman30/booking-widget/internal/scheduling"
)

// TimeSlot is one bookable start time on a resource.
type TimeSlot struct {
	Start      time.Time
	End        time.Time // zero when the provider sent none
	ResourceID string
}

// HasEnd reports whether the provider sent an end time.
func (s TimeSlot) HasEnd() bool {
	return !s.End.IsZero()
}

// Equal compares slots by start instant, end instant and resource.
func (s TimeSlot) Equal(o TimeSlot) bool {
	return s.Start.Equal(o.Start) && s.End.Equal(o.End) && s.ResourceID == o.ResourceID
}

// Map holds slots keyed by calendar date (YYYY-MM-DD). Slices are sorted by
// start time and must be treated as read-only.
type Map map[string][]TimeSlot

// Slots returns the slots for a date key.
func (m Map) Slots(date string) []TimeSlot {
	return m[date]
}

// Available reports whether date has at least one slot.
func (m Map) Available(date string) bool {
	return len(m[date]) > 0
}

// Dates returns the dates with slots in ascending order.
func (m Map) Dates() []string {
	out := make([]string, 0, len(m))
	for d, slots := range m {
		if len(slots) > 0 {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// Normalize groups a times response by the calendar date of each slot's
// start (truncation, not zone conversion) and sorts each date ascending.
func Normalize(resp *scheduling.TimesResponse) (Map, error) {
	out := make(Map)
	if resp == nil {
		return out, nil
	}

	resources := make([]string, 0, len(resp.Times))
	for id := range resp.Times {
		resources = append(resources, id)
	}
	sort.Strings(resources)

	for _, resourceID := range resources {
		for _, raw := range resp.Times[resourceID] {
			day, ok := dates.DatePart(raw.StartTime)
			if !ok {
				return nil, fmt.Errorf("slot on resource %s has invalid startTime %q", resourceID, raw.StartTime)
			}
			start, err := time.Parse(time.RFC3339, raw.StartTime)
			if err != nil {
				return nil, fmt.Errorf("slot on resource %s: parse startTime: %w", resourceID, err)
			}
			slot := TimeSlot{Start: start, ResourceID: resourceID}
			if raw.EndTime != "" {
				end, err := time.Parse(time.RFC3339, raw.EndTime)
				if err != nil {
					return nil, fmt.Errorf("slot on resource %s: parse endTime: %w", resourceID, err)
				}
				slot.End = end
			}
			out[day] = append(out[day], slot)
		}
	}

	for day := range out {
		slots := out[day]
		sort.SliceStable(slots, func(i, j int) bool {
			return slots[i].Start.Before(slots[j].Start)
		})
	}
	return out, nil
}
