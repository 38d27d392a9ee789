// Package coerce converts raw cell values to their planned target types.
//
// The policy is per-value: a cell that cannot be converted becomes nil in the
// output, it never fails the column and never silently truncates. Callers get
// the count of such losses back so the operator can judge whether the chosen
// type fits the data before discovering holes in the destination table.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"tabload/internal/infer"
	"tabload/internal/schema"
	"tabload/internal/table"
)

// Column converts every value of one column to the target type, returning a
// new slice (the input is never mutated) and the number of non-null inputs
// that became nil.
//
// layout applies to DATE/TIMESTAMP only. When set, every value must match
// that single layout exactly; there is no fallback to heuristics. When empty,
// the loose per-value parser is used, so one column may successfully carry
// several different date layouts. Layouts may be given in Go reference form
// or in strftime form ("%Y-%m-%d"); the latter is what operators coming from
// the front-end supply.
func Column(values []any, target schema.TargetType, layout string) ([]any, int, error) {
	if layout != "" && strings.Contains(layout, "%") {
		var err error
		layout, err = strftime.Layout(layout)
		if err != nil {
			return nil, 0, fmt.Errorf("coerce: bad date format: %w", err)
		}
	}

	out := make([]any, len(values))
	losses := 0
	for i, v := range values {
		if v == nil {
			continue
		}
		c := Cell(v, target, layout)
		if c == nil {
			losses++
		}
		out[i] = c
	}
	return out, losses, nil
}

// Cell converts a single non-nil raw cell to the target type, or nil when the
// value does not convert. layout must already be in Go reference form.
func Cell(v any, target schema.TargetType, layout string) any {
	switch target {
	case schema.Boolean:
		return coerceBool(v)
	case schema.Integer:
		n, ok := coerceInt(v)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil
		}
		return n
	case schema.BigInt:
		n, ok := coerceInt(v)
		if !ok {
			return nil
		}
		return n
	case schema.Float:
		return coerceFloat(v)
	case schema.Date:
		t, ok := coerceTime(v, layout)
		if !ok {
			return nil
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case schema.Timestamp:
		t, ok := coerceTime(v, layout)
		if !ok {
			return nil
		}
		return t
	case schema.Text:
		return table.DisplayString(v)
	default:
		return nil
	}
}

func coerceBool(v any) any {
	switch c := v.(type) {
	case bool:
		return c
	case string:
		if b, ok := infer.ParseBool(c); ok {
			return b
		}
	case float64:
		if c == 1 {
			return true
		}
		if c == 0 {
			return false
		}
	}
	return nil
}

func coerceInt(v any) (int64, bool) {
	switch c := v.(type) {
	case float64:
		if c != math.Trunc(c) || c < math.MinInt64 || c >= math.MaxInt64 {
			return 0, false
		}
		return int64(c), true
	case bool:
		if c {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func coerceFloat(v any) any {
	switch c := v.(type) {
	case float64:
		return c
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return nil
	}
}

func coerceTime(v any, layout string) (time.Time, bool) {
	switch c := v.(type) {
	case time.Time:
		return c, true
	case string:
		s := strings.TrimSpace(c)
		if layout != "" {
			t, err := time.Parse(layout, s)
			if err != nil {
				return time.Time{}, false
			}
			return t, true
		}
		t, _, ok := infer.ParseTemporalLoose(s)
		return t, ok
	default:
		return time.Time{}, false
	}
}

// Table coerces every column of a raw table per the frozen plan and returns
// the typed table plus per-column loss counts keyed by final column name.
func Table(raw table.RawTable, plans []schema.ColumnPlan) (table.TypedTable, map[string]int, error) {
	if len(plans) != len(raw.Labels) {
		return table.TypedTable{}, nil, fmt.Errorf("coerce: %d columns but %d plans", len(raw.Labels), len(plans))
	}

	cols := make([][]any, len(plans))
	losses := make(map[string]int, len(plans))
	names := make([]string, len(plans))

	for i, p := range plans {
		vals, n, err := Column(raw.Column(i), p.Type, p.Layout)
		if err != nil {
			return table.TypedTable{}, nil, fmt.Errorf("column %q: %w", p.Name, err)
		}
		cols[i] = vals
		names[i] = p.Name
		if n > 0 {
			losses[p.Name] = n
		}
	}

	rows := make([][]any, len(raw.Rows))
	for r := range raw.Rows {
		row := make([]any, len(plans))
		for c := range plans {
			row[c] = cols[c][r]
		}
		rows[r] = row
	}

	return table.TypedTable{Columns: names, Rows: rows}, losses, nil
}
