package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crewplan/crew-api/internal/models"
)

func TestCountedStatusesDefaultPolicy(t *testing.T) {
	policy := CapacityPolicy{}
	statuses := policy.CountedStatuses()
	assert.Equal(t, []models.AssignmentStatus{
		models.AssignmentStatusAssigned,
		models.AssignmentStatusConfirmed,
	}, statuses)
}

func TestCountedStatusesWithInterested(t *testing.T) {
	policy := CapacityPolicy{CountInterested: true}
	statuses := policy.CountedStatuses()
	assert.Contains(t, statuses, models.AssignmentStatusInterested)
	assert.Len(t, statuses, 3)
}

func TestNewOccupancy(t *testing.T) {
	occ := NewOccupancy(1, 2)
	assert.False(t, occ.Full)

	occ = NewOccupancy(2, 2)
	assert.True(t, occ.Full)

	// Overbooked shifts (admin override) still report full.
	occ = NewOccupancy(3, 2)
	assert.True(t, occ.Full)
}
