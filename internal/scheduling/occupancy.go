package scheduling

import "github.com/crewplan/crew-api/internal/models"

// CapacityPolicy decides which assignment statuses consume shift
// headcount. The default treats INTERESTED as an availability signal, not
// a capacity claim; flipping CountInterested changes the read path and
// the write-path guards together.
type CapacityPolicy struct {
	CountInterested bool
}

// CountedStatuses returns the statuses that consume capacity under this
// policy, in the order repositories expect them.
func (p CapacityPolicy) CountedStatuses() []models.AssignmentStatus {
	statuses := []models.AssignmentStatus{
		models.AssignmentStatusAssigned,
		models.AssignmentStatusConfirmed,
	}
	if p.CountInterested {
		statuses = append(statuses, models.AssignmentStatusInterested)
	}
	return statuses
}

// Occupancy is a shift's current headcount against its requirement.
type Occupancy struct {
	Current  int  `json:"current"`
	Required int  `json:"required"`
	Full     bool `json:"is_full"`
}

// NewOccupancy derives the occupancy verdict from raw counts.
func NewOccupancy(current, required int) Occupancy {
	return Occupancy{
		Current:  current,
		Required: required,
		Full:     current >= required,
	}
}
