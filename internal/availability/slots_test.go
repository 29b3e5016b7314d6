package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-widget/internal/scheduling"
)

func TestNormalizeSortsWithinDate(t *testing.T) {
	resp := &scheduling.TimesResponse{Times: map[string][]scheduling.Slot{
		"res-a": {
			{StartTime: "2026-10-20T10:00:00Z", EndTime: "2026-10-20T10:30:00Z"},
			{StartTime: "2026-10-20T08:00:00Z"},
		},
		"res-b": {
			{StartTime: "2026-10-20T14:00:00Z"},
		},
	}}

	m, err := Normalize(resp)
	require.NoError(t, err)
	slots := m.Slots("2026-10-20")
	require.Len(t, slots, 3)
	assert.Equal(t, "08:00", slots[0].Start.Format("15:04"))
	assert.Equal(t, "10:00", slots[1].Start.Format("15:04"))
	assert.Equal(t, "14:00", slots[2].Start.Format("15:04"))
	assert.Equal(t, "res-b", slots[2].ResourceID)
	assert.True(t, slots[1].HasEnd())
	assert.False(t, slots[0].HasEnd())
}

func TestNormalizeGroupsByDatePortionWithoutConversion(t *testing.T) {
	resp := &scheduling.TimesResponse{Times: map[string][]scheduling.Slot{
		"res": {
			{StartTime: "2026-10-20T23:30:00-05:00"},
			{StartTime: "2026-10-21T00:30:00+09:00"},
		},
	}}
	m, err := Normalize(resp)
	require.NoError(t, err)
	assert.Len(t, m.Slots("2026-10-20"), 1)
	assert.Len(t, m.Slots("2026-10-21"), 1)
	assert.Equal(t, []string{"2026-10-20", "2026-10-21"}, m.Dates())
}

func TestNormalizeRejectsMalformedSlots(t *testing.T) {
	for name, slot := range map[string]scheduling.Slot{
		"bad start": {StartTime: "tomorrow"},
		"bad end":   {StartTime: "2026-10-20T10:00:00Z", EndTime: "later"},
		"no zone":   {StartTime: "2026-10-20T10:00:00"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(&scheduling.TimesResponse{Times: map[string][]scheduling.Slot{"r": {slot}}})
			assert.Error(t, err)
		})
	}
}

func TestMapAvailability(t *testing.T) {
	m := Map{"2026-10-20": nil, "2026-10-21": {{ResourceID: "r"}}}
	assert.False(t, m.Available("2026-10-20"))
	assert.True(t, m.Available("2026-10-21"))
	assert.False(t, m.Available("2026-10-22"))
	assert.Equal(t, []string{"2026-10-21"}, m.Dates())
}
