package models

import (
	"time"

	"github.com/lib/pq"
)

// Shift is a bounded time slot within an event requiring a fixed
// headcount. The time window uses half-open semantics: a shift ending at
// 18:00 does not overlap one starting at 18:00.
type Shift struct {
	ID                 string         `db:"id" json:"id"`
	EventID            string         `db:"event_id" json:"event_id"`
	Name               string         `db:"name" json:"name"`
	Position           string         `db:"position" json:"position,omitempty"`
	StartsAt           time.Time      `db:"starts_at" json:"starts_at"`
	EndsAt             time.Time      `db:"ends_at" json:"ends_at"`
	RequiredHeadcount  int            `db:"required_headcount" json:"required_headcount"`
	RequiredQualCodes  pq.StringArray `db:"required_qualifications" json:"required_qualifications"`
	Notes              string         `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// ShiftDetail enriches Shift with event context.
type ShiftDetail struct {
	Shift
	EventName   string      `db:"event_name" json:"event_name"`
	EventStatus EventStatus `db:"event_status" json:"event_status"`
}

// ShiftFilter captures filtering criteria for listing shifts.
type ShiftFilter struct {
	EventID   string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ShiftOccupancy pairs a shift's capacity-consuming assignment count with
// its required headcount.
type ShiftOccupancy struct {
	ShiftID  string `db:"shift_id" json:"shift_id"`
	Current  int    `db:"current" json:"current"`
	Required int    `db:"required" json:"required"`
}
