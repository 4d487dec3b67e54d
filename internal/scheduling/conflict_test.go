package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(t *testing.T, startHour, endHour int) Window {
	t.Helper()
	day := time.Date(2026, time.September, 12, 0, 0, 0, 0, time.UTC)
	return Window{
		Start: day.Add(time.Duration(startHour) * time.Hour),
		End:   day.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	shiftA := window(t, 10, 18)
	shiftB := window(t, 18, 22)
	shiftC := window(t, 17, 19)

	assert.False(t, shiftA.Overlaps(shiftB), "back-to-back shifts must not conflict")
	assert.False(t, shiftB.Overlaps(shiftA))
	assert.True(t, shiftA.Overlaps(shiftC))
	assert.True(t, shiftC.Overlaps(shiftA))
	assert.True(t, shiftB.Overlaps(shiftC))
}

func TestOverlapsContainment(t *testing.T) {
	outer := window(t, 8, 20)
	inner := window(t, 12, 14)
	assert.True(t, outer.Overlaps(inner))
	assert.True(t, inner.Overlaps(outer))
}

func TestFindConflictsReportsOnlyOverlapping(t *testing.T) {
	candidate := window(t, 17, 19)
	commitments := []Commitment{
		{ShiftID: "s-evening", ShiftName: "Evening bar", EventName: "Summer Fest", Window: window(t, 18, 22)},
		{ShiftID: "s-day", ShiftName: "Day bar", EventName: "Summer Fest", Window: window(t, 10, 18)},
		{ShiftID: "s-night", ShiftName: "Night watch", EventName: "Summer Fest", Window: window(t, 22, 23)},
	}

	conflicts := FindConflicts(candidate, commitments)
	require.Len(t, conflicts, 2)
	// Ordered by commitment start time.
	assert.Equal(t, "s-day", conflicts[0].ShiftID)
	assert.Equal(t, "s-evening", conflicts[1].ShiftID)
	assert.Equal(t, "Summer Fest", conflicts[0].EventName)
	assert.Equal(t, "12.09.2026 10:00 - 18:00", conflicts[0].TimeRange)
}

func TestFindConflictsEmpty(t *testing.T) {
	conflicts := FindConflicts(window(t, 9, 10), nil)
	assert.Empty(t, conflicts)
}
