package reader

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"tabload/internal/table"
)

// ReadXLSX parses the first sheet of a workbook into a RawTable. Cell values
// arrive in their formatted string form; the first row is the header.
func ReadXLSX(data []byte) (table.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return table.RawTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table.RawTable{}, ErrEmpty
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return table.RawTable{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return table.RawTable{}, ErrEmpty
	}

	header := rows[0]
	out := make([][]any, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		out = append(out, row)
	}

	return table.New(header, out), nil
}
