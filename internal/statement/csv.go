package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ParseCSV reads a comma separated statement.
func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []record
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		// the reader skips blank lines, so ask it where this record started
		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}
	return collect(records, false)
}
