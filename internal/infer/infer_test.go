package infer

import (
	"strconv"
	"testing"
	"time"

	"tabload/internal/schema"
	"tabload/internal/table"
)

func anys(ss ...string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

//
// Infer
//

// TestInfer verifies the type policy over whole columns.
//
// The ordering matters: boolean before integer, integer before float, and the
// temporal check only runs when the numeric checks have all failed. A column
// of bare "1"/"0" must come out INTEGER; word-like tokens come out BOOLEAN.
func TestInfer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		values     []any
		want       schema.TargetType
		wantLayout string
	}{
		{"empty column", nil, schema.Text, ""},
		{"all null", []any{nil, nil}, schema.Text, ""},
		{"boolean words", anys("true", "False", "YES", "n"), schema.Boolean, ""},
		{"native bools", []any{true, false, nil}, schema.Boolean, ""},
		{"ones and zeros are integer", anys("1", "0", "1"), schema.Integer, ""},
		{"small integers", anys("1", "-42", "100000"), schema.Integer, ""},
		{"overflow promotes to bigint", anys("1", strconv.FormatInt(1<<40, 10)), schema.BigInt, ""},
		{"negative overflow promotes", anys("-3000000000"), schema.BigInt, ""},
		{"decimals are float", anys("1.5", "2", "-0.25"), schema.Float, ""},
		{"spreadsheet numerics", []any{1.0, 2.5}, schema.Float, ""},
		{"whole spreadsheet numerics are integer", []any{1.0, 2.0}, schema.Integer, ""},
		{"iso dates", anys("2024-01-02", "2024-02-03"), schema.Date, "2006-01-02"},
		{"mixed layouts still date", anys("2024-01-02", "2024-02-03", "03.02.2024"), schema.Date, "2006-01-02"},
		{"timestamps", anys("2024-01-02 10:00:00", "2024-01-03 11:30:00"), schema.Timestamp, "2006-01-02 15:04:05"},
		{"date plus timestamp is timestamp", anys("2024-01-02", "2024-01-03", "2024-01-02 10:00:00"), schema.Timestamp, "2006-01-02"},
		{"midnight timestamp keeps date", anys("2023-01-05", "2023-01-06", "05/02/2023", "2023-03-10T00:00:00"), schema.Date, "2006-01-02"},
		{"mixed junk is text", anys("2024-01-02", "not a date"), schema.Text, ""},
		{"plain text", anys("alice", "bob"), schema.Text, ""},
		{"numbers with text fall through", anys("1", "x"), schema.Text, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Infer(tt.values)
			if got.Type != tt.want {
				t.Fatalf("Infer() type = %q, want %q", got.Type, tt.want)
			}
			if got.Layout != tt.wantLayout {
				t.Fatalf("Infer() layout = %q, want %q", got.Layout, tt.wantLayout)
			}
		})
	}
}

// TestInferNativeTimes verifies spreadsheet time.Time cells: all-midnight
// columns are DATE, any time-of-day makes the column TIMESTAMP.
func TestInferNativeTimes(t *testing.T) {
	t.Parallel()

	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC)

	if got := Infer([]any{d1, d2}); got.Type != schema.Date {
		t.Fatalf("midnight times inferred %q, want date", got.Type)
	}
	if got := Infer([]any{d1, ts}); got.Type != schema.Timestamp {
		t.Fatalf("mixed times inferred %q, want timestamp", got.Type)
	}
}

// TestInferSampleCap verifies determinism under the sample cap: the temporal
// check only sees the first SampleCap non-null values, so a late unparsable
// value past the cap does not flip the verdict.
func TestInferSampleCap(t *testing.T) {
	t.Parallel()

	values := make([]any, 0, SampleCap+1)
	for i := 0; i < SampleCap; i++ {
		values = append(values, "2024-01-02")
	}
	values = append(values, "never a date")

	if got := Infer(values); got.Type != schema.Date {
		t.Fatalf("Infer() = %q, want date from the bounded sample", got.Type)
	}
}

// TestInferMajorityLayout verifies the reported layout is the most frequent
// one in the sample, not merely the first.
func TestInferMajorityLayout(t *testing.T) {
	t.Parallel()

	got := Infer(anys("2024-01-02", "03.02.2024", "04.02.2024", "05.02.2024"))
	if got.Type != schema.Date {
		t.Fatalf("type = %q, want date", got.Type)
	}
	if got.Layout != "02.01.2006" {
		t.Fatalf("layout = %q, want majority layout 02.01.2006", got.Layout)
	}
}

// TestInferLayoutTieBreaksByFirstSeen verifies that when two layouts are
// equally frequent, the one appearing first in the column wins, so repeated
// runs over the same file report the same layout.
func TestInferLayoutTieBreaksByFirstSeen(t *testing.T) {
	t.Parallel()

	got := Infer(anys("03.02.2024", "2024-01-02"))
	if got.Type != schema.Date {
		t.Fatalf("type = %q, want date", got.Type)
	}
	if got.Layout != "02.01.2006" {
		t.Fatalf("layout = %q, want the first-seen layout on a tie", got.Layout)
	}
}

//
// ParseBool / ParseTemporalLoose
//

// TestParseBool verifies the coercion token set, which accepts "1"/"0" in
// addition to the word tokens inference uses.
func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		value bool
		ok    bool
	}{
		{"true", true, true},
		{"T", true, true},
		{"YES", true, true},
		{"y", true, true},
		{"1", true, true},
		{"false", false, true},
		{"f", false, true},
		{"No", false, true},
		{"n", false, true},
		{"0", false, true},
		{"  true  ", true, true},
		{"2", false, false},
		{"maybe", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		got, ok := ParseBool(tt.in)
		if got != tt.value || ok != tt.ok {
			t.Fatalf("ParseBool(%q) = (%v,%v), want (%v,%v)", tt.in, got, ok, tt.value, tt.ok)
		}
	}
}

// TestParseTemporalLoose verifies layout fallthrough and rejection.
func TestParseTemporalLoose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         string
		ok         bool
		wantLayout string
	}{
		{"iso date", "2024-01-02", true, "2006-01-02"},
		{"dotted date", "03.02.2024", true, "02.01.2006"},
		{"slashed date", "2024/01/02", true, "2006/01/02"},
		{"space timestamp", "2024-01-02 10:11:12", true, "2006-01-02 15:04:05"},
		{"t timestamp", "2024-01-02T10:11:12", true, "2006-01-02T15:04:05"},
		{"zoned timestamp", "2024-01-02T10:11:12+02:00", true, "2006-01-02T15:04:05Z07:00"},
		{"whitespace tolerated", "  2024-01-02  ", true, "2006-01-02"},
		{"not a date", "hello", false, ""},
		{"bare year", "2024", false, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, layout, ok := ParseTemporalLoose(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseTemporalLoose(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if layout != tt.wantLayout {
				t.Fatalf("ParseTemporalLoose(%q) layout = %q, want %q", tt.in, layout, tt.wantLayout)
			}
		})
	}
}

//
// PreviewTable
//

// TestPreviewTable verifies per-column previews: normalized names, inferred
// types, positional fallbacks, and sample values.
func TestPreviewTable(t *testing.T) {
	t.Parallel()

	tbl := table.New(
		[]string{"First Name", "Score", "!!!"},
		[][]any{
			{"alice", "9.5", nil},
			{"bob", "3", "x"},
		},
	)

	got := PreviewTable(tbl)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	if got[0].Name != "first_name" || got[0].Type != schema.Text || got[0].Sample != "alice" {
		t.Fatalf("preview[0] = %+v", got[0])
	}
	if got[1].Name != "score" || got[1].Type != schema.Float || got[1].Sample != "9.5" {
		t.Fatalf("preview[1] = %+v", got[1])
	}
	if got[2].Name != "column_3" {
		t.Fatalf("preview[2].Name = %q, want positional fallback", got[2].Name)
	}
}
