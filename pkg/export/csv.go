package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// RenderCSV encodes the roster as CSV bytes.
func RenderCSV(roster Roster) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write(rosterHeaders); err != nil {
		return nil, fmt.Errorf("write roster headers: %w", err)
	}
	for _, record := range roster.records() {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write roster row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush roster csv: %w", err)
	}
	return buf.Bytes(), nil
}
