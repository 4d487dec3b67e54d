package export

import "time"

// RosterRow is one confirmed assignment line in an event roster.
type RosterRow struct {
	ShiftName string
	Position  string
	Starts    time.Time
	Ends      time.Time
	StaffName string
	StaffCode string
	Status    string
}

// Roster is the printable view of an event's staffing.
type Roster struct {
	EventName string
	Generated time.Time
	Rows      []RosterRow
}

var rosterHeaders = []string{"Shift", "Position", "From", "To", "Staff", "Code", "Status"}

func (r Roster) records() [][]string {
	records := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		records = append(records, []string{
			row.ShiftName,
			row.Position,
			row.Starts.Format("02.01.2006 15:04"),
			row.Ends.Format("15:04"),
			row.StaffName,
			row.StaffCode,
			row.Status,
		})
	}
	return records
}
