package models

import "time"

// NotificationKind names the assignment state changes pushed to the
// notification collaborator.
type NotificationKind string

// Possible notification kinds.
const (
	NotificationAssignmentCreated   NotificationKind = "ASSIGNMENT_CREATED"
	NotificationAssignmentUpgraded  NotificationKind = "ASSIGNMENT_UPGRADED"
	NotificationAssignmentConfirmed NotificationKind = "ASSIGNMENT_CONFIRMED"
	NotificationAssignmentCancelled NotificationKind = "ASSIGNMENT_CANCELLED"
)

// Notification is an outbox row recording a state change for
// fire-and-forget delivery. The engine never awaits dispatch.
type Notification struct {
	ID           string           `db:"id" json:"id"`
	Kind         NotificationKind `db:"kind" json:"kind"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	StaffID      string           `db:"staff_id" json:"staff_id"`
	ShiftID      string           `db:"shift_id" json:"shift_id"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	DispatchedAt *time.Time       `db:"dispatched_at" json:"dispatched_at,omitempty"`
}
