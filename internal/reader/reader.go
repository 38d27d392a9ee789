// Package reader materializes uploaded files into raw tables. Format is
// chosen by file extension; the parsers only produce labels and untyped
// cells, all typing decisions happen downstream.
package reader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"tabload/internal/table"
)

// ErrUnsupported marks a file extension no parser handles.
var ErrUnsupported = errors.New("unsupported file type")

// ErrEmpty marks a file that decoded but contained no header row.
var ErrEmpty = errors.New("no tabular content")

// ReadTable parses file bytes into a RawTable based on the file name's
// extension. Supported: .csv and .txt (comma-delimited), .tsv
// (tab-delimited), .xlsx (first sheet), .html/.htm (first <table>).
func ReadTable(name string, data []byte) (table.RawTable, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(data, ',')
	case ".tsv":
		return ReadCSV(data, '\t')
	case ".xlsx":
		return ReadXLSX(data)
	case ".html", ".htm":
		return ReadHTML(data)
	default:
		return table.RawTable{}, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
}

// TableName derives the default destination table name from a file name:
// the stem, lowercased, spaces replaced with underscores.
func TableName(name string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return strings.ReplaceAll(strings.ToLower(base), " ", "_")
}
