package models

import "time"

// EventStatus represents the lifecycle of an event.
type EventStatus string

// Possible event statuses. Only published events are open for
// staff-facing shift interaction.
const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Event is a time-bounded occasion staffed through shifts.
type Event struct {
	ID        string      `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Location  string      `db:"location" json:"location,omitempty"`
	StartsAt  time.Time   `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time   `db:"ends_at" json:"ends_at"`
	Status    EventStatus `db:"status" json:"status"`
	Notes     string      `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// EventFilter captures filtering criteria for listing events.
type EventFilter struct {
	Status    EventStatus
	From      *time.Time
	To        *time.Time
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ValidStatusChange reports whether an event may move between the two
// lifecycle statuses.
func ValidStatusChange(from, to EventStatus) bool {
	switch from {
	case EventStatusDraft:
		return to == EventStatusPublished || to == EventStatusCancelled
	case EventStatusPublished:
		return to == EventStatusCompleted || to == EventStatusCancelled
	default:
		return false
	}
}
