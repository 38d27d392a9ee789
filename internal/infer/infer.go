// Package infer implements per-column type inference over raw cell values.
//
// Inference is a suggestion, not a verdict: the operator can override it, and
// full-column coercion remains the source of truth for per-value failures.
// Policy, first match wins:
//
//  1. every non-null value boolean            -> BOOLEAN
//  2. every non-null value integral           -> INTEGER (int32 fit) else BIGINT
//  3. every non-null value numeric            -> FLOAT
//  4. a bounded sample parses as date/time    -> DATE (no time-of-day) else TIMESTAMP
//  5. otherwise                               -> TEXT
//
// All-null and empty columns infer TEXT. Date parsing tolerates mixed layouts
// within one column; each sampled value only needs to parse under some known
// layout. The temporal sample is the first SampleCap non-null values, so
// inference is deterministic.
package infer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"tabload/internal/schema"
	"tabload/internal/table"
)

// SampleCap bounds how many non-null values the temporal check parses.
// Numeric and boolean checks are cheap and scan the whole column.
const SampleCap = 50

// Infer proposes the narrowest safe target type for one column of raw cells,
// and, for temporal columns, the majority date layout seen in the sample.
func Infer(values []any) schema.Inference {
	var (
		seen      bool
		allBool   = true
		allInt    = true
		allFloat  = true
		fitsInt32 = true
		nonNull   []any
	)

	for _, v := range values {
		if v == nil {
			continue
		}
		seen = true
		if len(nonNull) < SampleCap {
			nonNull = append(nonNull, v)
		}

		if allBool && !isBoolCell(v) {
			allBool = false
		}
		if allInt {
			n, ok := intCell(v)
			if !ok {
				allInt = false
			} else if n < math.MinInt32 || n > math.MaxInt32 {
				fitsInt32 = false
			}
		}
		if allFloat && !isFloatCell(v) {
			allFloat = false
		}
	}

	if !seen {
		return schema.Inference{Type: schema.Text}
	}

	switch {
	case allBool:
		return schema.Inference{Type: schema.Boolean}
	case allInt && fitsInt32:
		return schema.Inference{Type: schema.Integer}
	case allInt:
		return schema.Inference{Type: schema.BigInt}
	case allFloat:
		return schema.Inference{Type: schema.Float}
	}

	if t, layout, ok := inferTemporal(nonNull); ok {
		return schema.Inference{Type: t, Layout: layout}
	}

	return schema.Inference{Type: schema.Text}
}

// inferTemporal checks whether every sampled value parses as a date or
// timestamp under some known layout, and picks the majority layout.
func inferTemporal(sample []any) (schema.TargetType, string, bool) {
	if len(sample) == 0 {
		return "", "", false
	}

	dateOnly := true
	counts := map[string]int{}
	var order []string // layouts by first appearance, for deterministic ties

	for _, v := range sample {
		switch c := v.(type) {
		case time.Time:
			if !atMidnight(c) {
				dateOnly = false
			}
		case string:
			t, layout, ok := ParseTemporalLoose(c)
			if !ok {
				return "", "", false
			}
			if !atMidnight(t) {
				dateOnly = false
			}
			if counts[layout] == 0 {
				order = append(order, layout)
			}
			counts[layout]++
		default:
			return "", "", false
		}
	}

	best := ""
	bestN := 0
	for _, layout := range order {
		if counts[layout] > bestN {
			best = layout
			bestN = counts[layout]
		}
	}

	if dateOnly {
		return schema.Date, best, true
	}
	return schema.Timestamp, best, true
}

func atMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// isBoolCell accepts native booleans and word-like tokens. Pure "1"/"0"
// columns are deliberately left to the integer step; BOOLEAN coercion still
// accepts them when the operator chooses the type explicitly.
func isBoolCell(v any) bool {
	switch c := v.(type) {
	case bool:
		return true
	case string:
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "true", "false", "t", "f", "yes", "no", "y", "n":
			return true
		}
	}
	return false
}

func intCell(v any) (int64, bool) {
	switch c := v.(type) {
	case float64:
		if c != math.Trunc(c) || c < math.MinInt64 || c >= math.MaxInt64 {
			return 0, false
		}
		return int64(c), true
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

func isFloatCell(v any) bool {
	switch c := v.(type) {
	case float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		return err == nil
	default:
		return false
	}
}

// ParseBool parses the fixed set of boolean tokens, case-insensitively.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
}

var tsLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"02.01.2006 15:04:05",
	"02/01/2006 15:04:05",
}

// ParseTemporalLoose attempts each known date layout, then each timestamp
// layout, and returns the parsed instant plus the matching layout. This is
// the "no explicit format" parser: a single column may match several layouts
// value-by-value.
func ParseTemporalLoose(s string) (time.Time, string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}

// Preview describes one column for the front-end: the raw label, suggested
// name, inferred type/layout, and a sample value.
type Preview struct {
	Label  string            `json:"label"`
	Name   string            `json:"name"`
	Type   schema.TargetType `json:"type"`
	Layout string            `json:"layout,omitempty"`
	Sample string            `json:"sample,omitempty"`
}

// PreviewTable runs inference over every column of a raw table and pairs each
// suggestion with the first non-null sample value for display.
func PreviewTable(t table.RawTable) []Preview {
	out := make([]Preview, 0, len(t.Labels))
	for i, label := range t.Labels {
		inf := Infer(t.Column(i))
		name := schema.Normalize(label)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		out = append(out, Preview{
			Label:  label,
			Name:   schema.TruncateName(name),
			Type:   inf.Type,
			Layout: inf.Layout,
			Sample: t.Sample(i),
		})
	}
	return out
}
