package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

//
// Normalize
//

// TestNormalize verifies snake_case label normalization.
//
// The rules: trim, lowercase, every run of non-alphanumerics becomes a single
// underscore, edge underscores are stripped. Labels with no alphanumerics
// yield "" and the caller supplies a positional fallback.
func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple lowercase", "name", "name"},
		{"spaces to underscore", "First Name", "first_name"},
		{"punctuation collapses", "Total $ (USD)", "total_usd"},
		{"mixed runs", "a  -  b", "a_b"},
		{"leading trailing stripped", "  __x__  ", "x"},
		{"digits kept", "col2", "col2"},
		{"unicode becomes underscore", "prix (€)", "prix"},
		{"only symbols", "!!!", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestNormalizeIdempotent verifies that normalizing an already-normalized
// label is a no-op, which is what makes re-running a plan safe.
func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"First Name", "Total $ (USD)", "a  -  b", "col2", "__x__"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

//
// TruncateName
//

// TestTruncateName verifies the identifier length cap preserves UTF-8.
func TestTruncateName(t *testing.T) {
	t.Parallel()

	if got := TruncateName("short"); got != "short" {
		t.Fatalf("TruncateName(short) = %q", got)
	}

	long := strings.Repeat("a", 100)
	if got := TruncateName(long); len(got) != 63 {
		t.Fatalf("TruncateName len = %d, want 63", len(got))
	}

	// 62 ASCII bytes followed by a 2-byte rune: a naive byte cut at 63 would
	// split the rune.
	mixed := strings.Repeat("a", 62) + "é" + strings.Repeat("b", 10)
	got := TruncateName(mixed)
	if len(got) > 63 {
		t.Fatalf("TruncateName len = %d, want <= 63", len(got))
	}
	if got != strings.Repeat("a", 62) {
		t.Fatalf("TruncateName split a multibyte rune: %q", got)
	}
}

//
// ParseTargetType
//

// TestParseTargetType verifies spelling aliases and rejection of unknowns.
func TestParseTargetType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want TargetType
		ok   bool
	}{
		{"boolean", Boolean, true},
		{"BOOL", Boolean, true},
		{"int", Integer, true},
		{"integer", Integer, true},
		{"bigint", BigInt, true},
		{"int8", BigInt, true},
		{"double", Float, true},
		{"real", Float, true},
		{"date", Date, true},
		{"datetime", Timestamp, true},
		{"  text  ", Text, true},
		{"varchar", Text, true},
		{"decimal", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseTargetType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseTargetType(%q) = (%q,%v), want (%q,%v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

//
// Resolve
//

func inferredText(n int) []Inference {
	out := make([]Inference, n)
	for i := range out {
		out[i] = Inference{Type: Text}
	}
	return out
}

// TestResolveDefaults verifies the no-override path: normalized names,
// inferred types, positional fallbacks for unnamed columns.
func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	labels := []string{"First Name", "Amount ($)", "!!!"}
	inferred := []Inference{
		{Type: Text},
		{Type: Float},
		{Type: Integer},
	}

	plans, err := Resolve(labels, inferred, nil)
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}

	want := []ColumnPlan{
		{OriginalLabel: "First Name", Name: "first_name", Type: Text},
		{OriginalLabel: "Amount ($)", Name: "amount", Type: Float},
		{OriginalLabel: "!!!", Name: "column_3", Type: Integer},
	}
	if !reflect.DeepEqual(plans, want) {
		t.Fatalf("Resolve() = %+v, want %+v", plans, want)
	}
}

// TestResolveOverrides verifies field-by-field override merging.
//
// Each override field is independent: a rename without a type keeps the
// inferred type; a layout only applies when the operator supplies one.
func TestResolveOverrides(t *testing.T) {
	t.Parallel()

	labels := []string{"When", "Flag", "Керn"}
	inferred := []Inference{
		{Type: Date, Layout: "2006-01-02"},
		{Type: Integer},
		{Type: Text},
	}

	overrides := []Override{
		{Column: "When", Type: "timestamp", Layout: "02.01.2006 15:04:05"},
		{Column: "Flag", Type: "boolean"},
		{Column: "Керn", Rename: "kern"},
	}

	plans, err := Resolve(labels, inferred, overrides)
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}

	if plans[0].Type != Timestamp || plans[0].Layout != "02.01.2006 15:04:05" {
		t.Fatalf("plan[0] = %+v, want timestamp with explicit layout", plans[0])
	}
	if plans[1].Type != Boolean || plans[1].Layout != "" {
		t.Fatalf("plan[1] = %+v, want boolean with no layout", plans[1])
	}
	if plans[2].Name != "kern" || plans[2].Type != Text {
		t.Fatalf("plan[2] = %+v, want rename to kern, type text", plans[2])
	}
}

// TestResolveKeepOriginal verifies that KeepOriginal suppresses
// normalization but an explicit rename still wins over it.
func TestResolveKeepOriginal(t *testing.T) {
	t.Parallel()

	labels := []string{"First Name", "Last Name"}
	overrides := []Override{
		{Column: "First Name", KeepOriginal: true},
		{Column: "Last Name", KeepOriginal: true, Rename: "surname"},
	}

	plans, err := Resolve(labels, inferredText(2), overrides)
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}
	if plans[0].Name != "First Name" {
		t.Fatalf("plan[0].Name = %q, want original label kept", plans[0].Name)
	}
	if plans[1].Name != "surname" {
		t.Fatalf("plan[1].Name = %q, want rename to win", plans[1].Name)
	}
}

// TestResolveLayoutClearedForNonTemporal verifies that a layout never
// survives on a non-temporal column, even when an override supplied one.
func TestResolveLayoutClearedForNonTemporal(t *testing.T) {
	t.Parallel()

	labels := []string{"when"}
	inferred := []Inference{{Type: Date, Layout: "2006-01-02"}}
	overrides := []Override{{Column: "when", Type: "text", Layout: "02.01.2006"}}

	plans, err := Resolve(labels, inferred, overrides)
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}
	if plans[0].Layout != "" {
		t.Fatalf("layout = %q, want cleared for text column", plans[0].Layout)
	}
}

// TestResolveInferredLayoutStaysOut verifies the detected layout is not
// promoted into the plan. Coercion treats any plan layout as strict
// single-format, so copying the majority layout of a mixed-format date
// column would null every value in the other formats.
func TestResolveInferredLayoutStaysOut(t *testing.T) {
	t.Parallel()

	labels := []string{"when"}
	inferred := []Inference{{Type: Date, Layout: "2006-01-02"}}

	plans, err := Resolve(labels, inferred, nil)
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}
	if plans[0].Type != Date {
		t.Fatalf("type = %q, want date", plans[0].Type)
	}
	if plans[0].Layout != "" {
		t.Fatalf("layout = %q, want empty without an operator override", plans[0].Layout)
	}
}

// TestResolveConflict verifies that two columns resolving to the same final
// name yield a ConflictError naming both originals, and nothing resolves.
func TestResolveConflict(t *testing.T) {
	t.Parallel()

	labels := []string{"First Name", "first_name"}

	_, err := Resolve(labels, inferredText(2), nil)
	if err == nil {
		t.Fatalf("Resolve() err = nil, want ConflictError")
	}

	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("Resolve() err = %T, want *ConflictError", err)
	}
	if ce.Name != "first_name" || ce.First != "First Name" || ce.Second != "first_name" {
		t.Fatalf("ConflictError = %+v", ce)
	}
}

// TestResolveUnknownOverrideType verifies that a typo in an override type is
// an error, not a silent fallback.
func TestResolveUnknownOverrideType(t *testing.T) {
	t.Parallel()

	_, err := Resolve([]string{"a"}, inferredText(1), []Override{{Column: "a", Type: "decimal"}})
	if err == nil || !strings.Contains(err.Error(), "unknown target type") {
		t.Fatalf("Resolve() err = %v, want unknown target type", err)
	}
}

// TestResolveLengthMismatch verifies the guard against desynced inputs.
func TestResolveLengthMismatch(t *testing.T) {
	t.Parallel()

	if _, err := Resolve([]string{"a", "b"}, inferredText(1), nil); err == nil {
		t.Fatalf("Resolve() err = nil, want length mismatch error")
	}
}

// TestResolveTruncatesLongNames verifies that final names respect the
// identifier length cap.
func TestResolveTruncatesLongNames(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 80)
	plans, err := Resolve([]string{long}, inferredText(1), nil)
	if err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}
	if len(plans[0].Name) != 63 {
		t.Fatalf("name len = %d, want 63", len(plans[0].Name))
	}
}
