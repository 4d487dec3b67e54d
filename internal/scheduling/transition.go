package scheduling

import (
	"fmt"

	"github.com/crewplan/crew-api/internal/models"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
)

// Actor identifies who is driving a transition. Admins may act on any
// assignment; staff only on their own.
type Actor struct {
	StaffID string
	Admin   bool
}

func (a Actor) owns(assignment *models.Assignment) bool {
	return a.StaffID != "" && a.StaffID == assignment.StaffID
}

// CheckAssign validates moving an existing record into ASSIGNED. A nil
// record means direct admin assignment with no prior interest, which is
// always structurally valid. INTERESTED upgrades; CANCELLED resurrects.
func CheckAssign(existing *models.Assignment) error {
	if existing == nil {
		return nil
	}
	switch existing.Status {
	case models.AssignmentStatusInterested, models.AssignmentStatusCancelled:
		return nil
	case models.AssignmentStatusAssigned, models.AssignmentStatusConfirmed:
		return appErrors.Clone(appErrors.ErrInvalidTransition, "staff member is already assigned to this shift")
	default:
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot assign from status %s", existing.Status))
	}
}

// CheckRegisterInterest validates creating or resurrecting an INTERESTED
// record. Active records block re-registration.
func CheckRegisterInterest(existing *models.Assignment) error {
	if existing == nil || existing.Status == models.AssignmentStatusCancelled {
		return nil
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, "an active registration for this shift already exists")
}

// CheckCancel validates moving a record into CANCELLED. Confirmed
// assignments can only be released by an admin.
func CheckCancel(assignment *models.Assignment, actor Actor) error {
	if !actor.Admin && !actor.owns(assignment) {
		return appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another staff member")
	}
	switch assignment.Status {
	case models.AssignmentStatusInterested, models.AssignmentStatusAssigned:
		return nil
	case models.AssignmentStatusConfirmed:
		if actor.Admin {
			return nil
		}
		return appErrors.Clone(appErrors.ErrInvalidTransition, "confirmed assignments can only be released by an administrator")
	default:
		return appErrors.Clone(appErrors.ErrInvalidTransition, "assignment is already cancelled")
	}
}

// CheckConfirm validates moving a record into CONFIRMED. Only the
// assigned staff member or an admin may confirm, and only FINAL-kind
// assignments are confirmable.
func CheckConfirm(assignment *models.Assignment, actor Actor) error {
	if !actor.Admin && !actor.owns(assignment) {
		return appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another staff member")
	}
	if assignment.Status != models.AssignmentStatusAssigned {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot confirm from status %s", assignment.Status))
	}
	if assignment.Kind != models.AssignmentKindFinal {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "only final assignments can be confirmed")
	}
	return nil
}

// CheckUpgrade validates promoting a preliminary assignment to final.
func CheckUpgrade(assignment *models.Assignment) error {
	if assignment.Status != models.AssignmentStatusAssigned {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot upgrade from status %s", assignment.Status))
	}
	if assignment.Kind != models.AssignmentKindPreliminary {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "assignment is already final")
	}
	return nil
}
