package models

import "time"

// Staff represents a crew member who can be invited to events and
// assigned to shifts. Staff are deactivated rather than deleted so that
// historical assignments stay intact.
type Staff struct {
	ID           string    `db:"id" json:"id"`
	PersonalCode string    `db:"personal_code" json:"personal_code"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display.
func (s Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}

// StaffDetail enriches Staff with the held qualification set.
type StaffDetail struct {
	Staff
	Qualifications []Qualification `json:"qualifications"`
}

// StaffFilter captures filtering criteria for listing staff.
type StaffFilter struct {
	Active          *bool
	QualificationID string
	Search          string
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
