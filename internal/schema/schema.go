// Package schema defines the column plan model shared by inference, coercion,
// and storage: target types, label normalization, operator overrides, and the
// resolution step that merges overrides with inferred suggestions into the
// final per-table plan.
package schema

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TargetType is the closed set of column types a plan can ask the sink for.
// BOOLEAN/INTEGER/BIGINT/FLOAT are mutually exclusive numeric refinements,
// DATE/TIMESTAMP are temporal refinements, TEXT admits every value.
type TargetType string

const (
	Boolean   TargetType = "boolean"
	Integer   TargetType = "integer"
	BigInt    TargetType = "bigint"
	Float     TargetType = "float"
	Date      TargetType = "date"
	Timestamp TargetType = "timestamp"
	Text      TargetType = "text"
)

// ParseTargetType maps user/config spellings onto the canonical enum.
// Unknown inputs return ok=false rather than defaulting, so that a typo in an
// operator override is a reportable error instead of a silent TEXT column.
func ParseTargetType(s string) (TargetType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "boolean", "bool":
		return Boolean, true
	case "integer", "int", "int4":
		return Integer, true
	case "bigint", "int8":
		return BigInt, true
	case "float", "double", "float8", "real":
		return Float, true
	case "date":
		return Date, true
	case "timestamp", "datetime", "timestamptz":
		return Timestamp, true
	case "text", "string", "varchar":
		return Text, true
	default:
		return "", false
	}
}

// Temporal reports whether the type carries an optional date layout.
func (t TargetType) Temporal() bool {
	return t == Date || t == Timestamp
}

// ColumnPlan is the frozen decision for one column: where it came from, what
// it will be called, and how its values are coerced. Layout is meaningful
// only for temporal types; empty means "loose per-value parsing".
type ColumnPlan struct {
	OriginalLabel string     `json:"original_label"`
	Name          string     `json:"name"`
	Type          TargetType `json:"type"`
	Layout        string     `json:"layout,omitempty"`
}

// Override carries the operator's explicit choices for one column, keyed by
// the original label. Every field is optional; whatever is unset falls back
// to the inferred suggestion.
type Override struct {
	Column       string `json:"column"`
	Rename       string `json:"rename,omitempty"`
	Type         string `json:"type,omitempty"`
	Layout       string `json:"layout,omitempty"`
	KeepOriginal bool   `json:"keep_original,omitempty"`
}

// ConflictError reports two columns resolving to the same final name. The
// file must be held for the operator to disambiguate; resolution never
// auto-suffixes.
type ConflictError struct {
	Name   string
	First  string
	Second string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schema: columns %q and %q both resolve to %q", e.First, e.Second, e.Name)
}

// Normalize converts a raw column label into a canonical snake_case
// identifier: trim, every whitespace run and every character outside
// [0-9a-zA-Z_] becomes an underscore, underscore runs collapse to one,
// leading/trailing underscores are stripped, the result is lowercased.
//
// Normalize is idempotent. An input with no alphanumeric characters yields
// ""; callers must supply a positional fallback name.
func Normalize(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(label))

	lastUnderscore := false
	for _, r := range strings.ToLower(label) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}

// TruncateName enforces backend identifier length limits while preserving
// UTF-8 validity.
func TruncateName(s string) string {
	const maxLen = 63
	if len(s) <= maxLen {
		return s
	}
	b := []byte(s)
	cut := maxLen
	for cut > 0 && !utf8.Valid(b[:cut]) {
		cut--
	}
	if cut <= 0 {
		return s[:maxLen]
	}
	return string(b[:cut])
}

// Inference is the suggestion the inference engine produced for one column.
type Inference struct {
	Type   TargetType
	Layout string
}

// Resolve merges operator overrides with inferred suggestions into the final
// column plan, in original column order.
//
// Per column: the default name is the normalized label (or the raw label when
// the override asks to keep it), the default type is the inference. Explicit
// override fields win field-by-field. Columns whose labels normalize to ""
// get a positional fallback name (column_1, column_2, ...).
//
// The inferred layout is a display hint only and never enters the plan: an
// explicit layout makes coercion strict single-format, which would null every
// minority-layout value in a mixed-format column. Without an operator layout
// the plan stays on loose per-value parsing.
//
// Resolve returns a ConflictError when two columns end up with the same final
// name; nothing may be written for the file until the operator disambiguates.
func Resolve(labels []string, inferred []Inference, overrides []Override) ([]ColumnPlan, error) {
	if len(inferred) != len(labels) {
		return nil, fmt.Errorf("schema: %d labels but %d inferences", len(labels), len(inferred))
	}

	byLabel := make(map[string]Override, len(overrides))
	for _, o := range overrides {
		byLabel[strings.TrimSpace(o.Column)] = o
	}

	plans := make([]ColumnPlan, 0, len(labels))
	seen := make(map[string]string, len(labels)) // final name -> original label

	for i, label := range labels {
		ov, hasOv := byLabel[label]

		name := Normalize(label)
		if hasOv && ov.KeepOriginal {
			name = label
		}
		if hasOv && strings.TrimSpace(ov.Rename) != "" {
			name = strings.TrimSpace(ov.Rename)
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		name = TruncateName(name)

		p := ColumnPlan{
			OriginalLabel: label,
			Name:          name,
			Type:          inferred[i].Type,
		}

		if hasOv && ov.Type != "" {
			t, ok := ParseTargetType(ov.Type)
			if !ok {
				return nil, fmt.Errorf("schema: column %q: unknown target type %q", label, ov.Type)
			}
			p.Type = t
		}
		if hasOv && ov.Layout != "" {
			p.Layout = ov.Layout
		}
		if !p.Type.Temporal() {
			p.Layout = ""
		}

		if prev, dup := seen[p.Name]; dup {
			return nil, &ConflictError{Name: p.Name, First: prev, Second: label}
		}
		seen[p.Name] = label

		plans = append(plans, p)
	}

	return plans, nil
}
