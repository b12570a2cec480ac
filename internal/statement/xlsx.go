package statement

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	// raw values keep date cells as serials and amounts without number formats
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	records := make([]record, len(rows))
	for i, cells := range rows {
		records[i] = record{line: i + 1, cells: cells}
	}
	return collect(records, true)
}
