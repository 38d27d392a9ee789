package reader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"tabload/internal/table"
)

// ReadCSV parses delimited text into a RawTable. Input that is not valid
// UTF-8 is re-decoded as Latin-1 before parsing; exported spreadsheets in
// legacy encodings are common enough that refusing them outright just pushes
// the operator to a manual conversion step.
func ReadCSV(data []byte, comma rune) (table.RawTable, error) {
	if !utf8.Valid(data) {
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder()))
		if err != nil {
			return table.RawTable{}, fmt.Errorf("decode latin-1: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return table.RawTable{}, ErrEmpty
	}
	if err != nil {
		return table.RawTable{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = stripBOM(header[0])
	}

	var rows [][]any
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.RawTable{}, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}

	return table.New(header, rows), nil
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
