// Package table holds the in-memory tabular representations the load
// pipeline works on: a RawTable of untyped cells materialized from an
// uploaded file, and a TypedTable ready for the storage sink.
//
// A raw cell is an `any` restricted to one of:
//   - nil        (missing / empty value)
//   - string     (delimited text, HTML, and most spreadsheet cells)
//   - float64    (numeric spreadsheet cells)
//   - bool       (native boolean spreadsheet cells)
//   - time.Time  (pre-parsed spreadsheet date cells)
//
// Discrimination happens at coercion time; readers never guess types.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawTable is one uploaded file materialized as labeled rows of untyped
// cells. Labels keep their original, possibly non-canonical form (surrounding
// whitespace already trimmed). Every row has exactly len(Labels) cells.
type RawTable struct {
	Labels []string
	Rows   [][]any
}

// New builds a RawTable from labels and rows, trimming surrounding whitespace
// from labels and string cells and forcing every row to the label width:
// short rows are padded with nil, long rows are truncated. Empty strings
// become nil so that "missing" has a single representation.
func New(labels []string, rows [][]any) RawTable {
	ls := make([]string, len(labels))
	for i, l := range labels {
		ls[i] = strings.TrimSpace(l)
	}

	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		row := make([]any, len(ls))
		for i := 0; i < len(ls) && i < len(r); i++ {
			row[i] = cleanCell(r[i])
		}
		out = append(out, row)
	}
	return RawTable{Labels: ls, Rows: out}
}

func cleanCell(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

// Column returns the values of column i across all rows.
// Out-of-range indices return nil.
func (t RawTable) Column(i int) []any {
	if i < 0 || i >= len(t.Labels) {
		return nil
	}
	out := make([]any, len(t.Rows))
	for r := range t.Rows {
		out[r] = t.Rows[r][i]
	}
	return out
}

// Sample returns the first non-null value of column i in display form, or ""
// when the column has no values. This is the preview value shown next to each
// column mapping row.
func (t RawTable) Sample(i int) string {
	if i < 0 || i >= len(t.Labels) {
		return ""
	}
	for _, r := range t.Rows {
		if r[i] != nil {
			return DisplayString(r[i])
		}
	}
	return ""
}

// DisplayString renders a raw or typed cell in its canonical string form.
// This is also the TEXT coercion of a cell, so the forms must stay stable:
// re-reading a TEXT column must reproduce the same visible content.
func DisplayString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case bool:
		if c {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(c, 10)
	case time.Time:
		if c.Hour() == 0 && c.Minute() == 0 && c.Second() == 0 && c.Nanosecond() == 0 {
			return c.Format("2006-01-02")
		}
		return c.Format(time.RFC3339)
	default:
		return fmt.Sprint(c)
	}
}

// TypedTable is the final, coerced output for one file: the ordered column
// names and the typed rows aligned to them. Cells are typed per the resolved
// plan, or nil where coercion failed.
type TypedTable struct {
	Columns []string
	Rows    [][]any
}
