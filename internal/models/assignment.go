package models

import "time"

// AssignmentStatus represents the lifecycle state of a (staff, shift)
// relationship.
type AssignmentStatus string

// Possible assignment statuses. CANCELLED is terminal for the historical
// record; a fresh registration resurrects the row with cleared timestamps.
const (
	AssignmentStatusInterested AssignmentStatus = "INTERESTED"
	AssignmentStatusAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentStatusConfirmed  AssignmentStatus = "CONFIRMED"
	AssignmentStatusCancelled  AssignmentStatus = "CANCELLED"
)

// AssignmentKind distinguishes preliminary from final assignments. Only
// final assignments can be confirmed by staff.
type AssignmentKind string

// Possible assignment kinds.
const (
	AssignmentKindPreliminary AssignmentKind = "PRELIMINARY"
	AssignmentKindFinal       AssignmentKind = "FINAL"
)

// Active reports whether the status still binds the staff member to the
// shift for conflict purposes.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentStatusInterested || s == AssignmentStatusAssigned || s == AssignmentStatusConfirmed
}

// Assignment records a staff member's relationship to a shift. At most
// one non-cancelled row exists per (staff, shift) pair.
type Assignment struct {
	ID          string           `db:"id" json:"id"`
	ShiftID     string           `db:"shift_id" json:"shift_id"`
	StaffID     string           `db:"staff_id" json:"staff_id"`
	Status      AssignmentStatus `db:"status" json:"status"`
	Kind        AssignmentKind   `db:"kind" json:"kind,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	AssignedAt  *time.Time       `db:"assigned_at" json:"assigned_at,omitempty"`
	ConfirmedAt *time.Time       `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// AssignmentDetail enriches Assignment with shift, event and staff context.
type AssignmentDetail struct {
	Assignment
	ShiftName  string    `db:"shift_name" json:"shift_name"`
	Position   string    `db:"position" json:"position,omitempty"`
	ShiftStart time.Time `db:"shift_start" json:"shift_start"`
	ShiftEnd   time.Time `db:"shift_end" json:"shift_end"`
	EventID    string    `db:"event_id" json:"event_id"`
	EventName  string    `db:"event_name" json:"event_name"`
	StaffName  string    `db:"staff_name" json:"staff_name"`
	StaffCode  string    `db:"staff_code" json:"staff_code"`
}
