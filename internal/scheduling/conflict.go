package scheduling

import (
	"fmt"
	"sort"
	"time"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open windows intersect. Back-to-back
// windows sharing a boundary do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Commitment is an existing active assignment of a staff member,
// annotated for conflict reporting.
type Commitment struct {
	ShiftID   string
	ShiftName string
	EventName string
	Window    Window
}

// Conflict describes one overlapping commitment.
type Conflict struct {
	ShiftID   string `json:"shift_id"`
	ShiftName string `json:"shift_name"`
	EventName string `json:"event_name"`
	TimeRange string `json:"time_range"`
}

// FindConflicts returns every commitment overlapping the candidate
// window, ordered by commitment start time for reproducible output.
func FindConflicts(candidate Window, commitments []Commitment) []Conflict {
	overlapping := make([]Commitment, 0, len(commitments))
	for _, c := range commitments {
		if candidate.Overlaps(c.Window) {
			overlapping = append(overlapping, c)
		}
	}
	sort.SliceStable(overlapping, func(i, j int) bool {
		return overlapping[i].Window.Start.Before(overlapping[j].Window.Start)
	})

	conflicts := make([]Conflict, 0, len(overlapping))
	for _, c := range overlapping {
		conflicts = append(conflicts, Conflict{
			ShiftID:   c.ShiftID,
			ShiftName: c.ShiftName,
			EventName: c.EventName,
			TimeRange: formatRange(c.Window),
		})
	}
	return conflicts
}

func formatRange(w Window) string {
	return fmt.Sprintf("%s - %s", w.Start.Format("02.01.2006 15:04"), w.End.Format("15:04"))
}
