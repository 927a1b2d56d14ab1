package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/valedate/internal/diag"
)

func sampleDiagnostics() []diag.Diagnostic {
	return []diag.Diagnostic{
		{Check: "Test.NoFoo", Message: "Avoid 'foo'.", Severity: "warning", Line: 1, Match: "foo"},
		{Check: "Test.NoFoo", Message: "Avoid 'foo'.", Severity: "warning", Line: 4, Match: "Foo"},
		{Check: "Test.Passive", Message: "Passive voice detected.", Severity: "suggestion", Line: 2},
	}
}

func TestFlatten_SortedByPath(t *testing.T) {
	byPath := map[string][]diag.Diagnostic{
		"b/doc.md": {{Check: "Test.B", Message: "m", Severity: "warning"}},
		"a/doc.md": {{Check: "Test.A", Message: "m", Severity: "warning"}},
	}

	flat := flatten(byPath)
	require.Len(t, flat, 2)
	assert.Equal(t, "Test.A", flat[0].Check)
	assert.Equal(t, "Test.B", flat[1].Check)
}

func TestDiagnosticFilter_Matches(t *testing.T) {
	d := diag.Diagnostic{
		Check:    "Test.NoFoo",
		Message:  "Avoid 'foo' in prose.",
		Severity: "warning",
		Line:     3,
		Match:    "foo",
	}

	tests := []struct {
		name   string
		filter DiagnosticFilter
		want   bool
	}{
		{"empty filter matches anything", DiagnosticFilter{}, true},
		{"check match", DiagnosticFilter{Check: "Test.NoFoo"}, true},
		{"check mismatch", DiagnosticFilter{Check: "Test.Other"}, false},
		{"severity match", DiagnosticFilter{Severity: "warning"}, true},
		{"severity mismatch", DiagnosticFilter{Severity: "error"}, false},
		{"line match", DiagnosticFilter{Line: 3}, true},
		{"line mismatch", DiagnosticFilter{Line: 4}, false},
		{"match text", DiagnosticFilter{Match: "foo"}, true},
		{"match text mismatch", DiagnosticFilter{Match: "bar"}, false},
		{"message substring", DiagnosticFilter{MessageContains: "in prose"}, true},
		{"message substring mismatch", DiagnosticFilter{MessageContains: "verbose"}, false},
		{"all constraints", DiagnosticFilter{Check: "Test.NoFoo", Severity: "warning", Line: 3, Match: "foo"}, true},
		{"one of many mismatched", DiagnosticFilter{Check: "Test.NoFoo", Line: 9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(d))
		})
	}
}

func TestFindDiagnostic(t *testing.T) {
	diags := sampleDiagnostics()

	d, ok := FindDiagnostic(diags, DiagnosticFilter{Check: "Test.Passive"})
	require.True(t, ok)
	assert.Equal(t, 2, d.Line)

	// First match wins.
	d, ok = FindDiagnostic(diags, DiagnosticFilter{Check: "Test.NoFoo"})
	require.True(t, ok)
	assert.Equal(t, 1, d.Line)

	_, ok = FindDiagnostic(diags, DiagnosticFilter{Check: "Test.Missing"})
	assert.False(t, ok)
}

func TestRenderDiagnostics(t *testing.T) {
	assert.Equal(t, "(no diagnostics)", RenderDiagnostics(nil))

	out := RenderDiagnostics([]diag.Diagnostic{
		{Check: "Test.NoFoo", Message: "Avoid 'foo'.", Severity: "warning", Line: 3},
		{Check: "Test.Unplaced", Message: "No position.", Severity: "error"},
	})
	assert.Equal(t,
		"- Test.NoFoo @ line 3 [warning]: Avoid 'foo'.\n"+
			"- Test.Unplaced @ line ? [error]: No position.",
		out)
}

func TestEvaluateExpect(t *testing.T) {
	diags := sampleDiagnostics()
	two := 2

	tests := []struct {
		name    string
		expect  ExpectClause
		diags   []diag.Diagnostic
		failure string
	}{
		{
			name:   "none passes on empty",
			expect: ExpectClause{None: true},
			diags:  nil,
		},
		{
			name:    "none fails on findings",
			expect:  ExpectClause{None: true},
			diags:   diags,
			failure: "expected no diagnostics, got 3",
		},
		{
			name:    "count mismatch",
			expect:  ExpectClause{Count: &two},
			diags:   diags,
			failure: "expected 2 diagnostics, got 3",
		},
		{
			name:   "only_checks exact set passes",
			expect: ExpectClause{OnlyChecks: []string{"Test.NoFoo", "Test.Passive"}},
			diags:  diags,
		},
		{
			name:    "only_checks missing check fails",
			expect:  ExpectClause{OnlyChecks: []string{"Test.NoFoo"}},
			diags:   diags,
			failure: "expected checks [Test.NoFoo], got [Test.NoFoo Test.Passive]",
		},
		{
			name:   "diagnostic filters subset passes",
			expect: ExpectClause{Diagnostics: []DiagnosticFilter{{Check: "Test.Passive", Line: 2}}},
			diags:  diags,
		},
		{
			name:    "diagnostic filter without match fails",
			expect:  ExpectClause{Diagnostics: []DiagnosticFilter{{Check: "Test.NoFoo", Line: 9}}},
			diags:   diags,
			failure: "expected a diagnostic matching check=Test.NoFoo line=9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := evaluateExpect(&tt.expect, tt.diags)
			if tt.failure == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.failure)
		})
	}
}

func TestEvaluateExpect_CollectsEveryFailure(t *testing.T) {
	zero := 0
	expect := ExpectClause{
		None:        true,
		Count:       &zero,
		Diagnostics: []DiagnosticFilter{{Check: "Test.Missing"}},
	}

	errs := evaluateExpect(&expect, sampleDiagnostics())
	assert.Len(t, errs, 3)
}

func TestCheckSetMismatch_IgnoresMultiplicity(t *testing.T) {
	// Two diagnostics from the same check still count as one set member.
	diags := []diag.Diagnostic{
		{Check: "Test.NoFoo", Message: "m", Severity: "warning", Line: 1},
		{Check: "Test.NoFoo", Message: "m", Severity: "warning", Line: 2},
	}
	assert.Empty(t, checkSetMismatch(diags, []string{"Test.NoFoo"}))
	assert.Contains(t, checkSetMismatch(diags, []string{"Test.Other"}),
		"expected checks [Test.Other], got [Test.NoFoo]")
}

func TestAssertHelpers(t *testing.T) {
	diags := sampleDiagnostics()

	d := AssertHasDiagnostic(t, diags, DiagnosticFilter{Check: "Test.Passive"})
	assert.Equal(t, "suggestion", d.Severity)

	AssertNoDiagnostics(t, nil)
	AssertOnlyChecks(t, diags, "Test.NoFoo", "Test.Passive")
}
