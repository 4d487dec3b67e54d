package models

import "time"

// InvitationStatus represents the staff member's response to an event
// invitation.
type InvitationStatus string

// Possible invitation statuses.
const (
	InvitationStatusPending  InvitationStatus = "PENDING"
	InvitationStatusAccepted InvitationStatus = "ACCEPTED"
	InvitationStatusDeclined InvitationStatus = "DECLINED"
)

// Invitation is the per-event opt-in gate. At most one exists per
// (event, staff) pair; shift interaction requires an accepted one.
type Invitation struct {
	ID          string           `db:"id" json:"id"`
	EventID     string           `db:"event_id" json:"event_id"`
	StaffID     string           `db:"staff_id" json:"staff_id"`
	Status      InvitationStatus `db:"status" json:"status"`
	InvitedAt   time.Time        `db:"invited_at" json:"invited_at"`
	RespondedAt *time.Time       `db:"responded_at" json:"responded_at,omitempty"`
}

// InvitationDetail enriches Invitation with event and staff context.
type InvitationDetail struct {
	Invitation
	EventName  string    `db:"event_name" json:"event_name"`
	EventStart time.Time `db:"event_start" json:"event_start"`
	StaffName  string    `db:"staff_name" json:"staff_name"`
}
