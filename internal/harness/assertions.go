package harness

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/roach88/valedate/internal/diag"
)

// flatten collapses a path-keyed diagnostic mapping into one ordered slice,
// visiting paths in sorted order so results are deterministic.
func flatten(byPath map[string][]diag.Diagnostic) []diag.Diagnostic {
	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []diag.Diagnostic
	for _, path := range paths {
		out = append(out, byPath[path]...)
	}
	return out
}

// Matches reports whether the diagnostic satisfies every constraint the
// filter carries. Zero-valued filter fields are unconstrained.
func (f DiagnosticFilter) Matches(d diag.Diagnostic) bool {
	if f.Check != "" && d.Check != f.Check {
		return false
	}
	if f.Severity != "" && d.Severity != f.Severity {
		return false
	}
	if f.Line != 0 && d.Line != f.Line {
		return false
	}
	if f.Match != "" && d.Match != f.Match {
		return false
	}
	if f.MessageContains != "" && !strings.Contains(d.Message, f.MessageContains) {
		return false
	}
	return true
}

// describe renders the filter's constraints for failure messages.
func (f DiagnosticFilter) describe() string {
	var parts []string
	if f.Check != "" {
		parts = append(parts, "check="+f.Check)
	}
	if f.Severity != "" {
		parts = append(parts, "severity="+f.Severity)
	}
	if f.Line != 0 {
		parts = append(parts, fmt.Sprintf("line=%d", f.Line))
	}
	if f.Match != "" {
		parts = append(parts, "match="+f.Match)
	}
	if f.MessageContains != "" {
		parts = append(parts, "message_contains="+f.MessageContains)
	}
	if len(parts) == 0 {
		return "(any)"
	}
	return strings.Join(parts, " ")
}

// FindDiagnostic returns the first diagnostic satisfying the filter.
func FindDiagnostic(diags []diag.Diagnostic, filter DiagnosticFilter) (diag.Diagnostic, bool) {
	for _, d := range diags {
		if filter.Matches(d) {
			return d, true
		}
	}
	return diag.Diagnostic{}, false
}

// RenderDiagnostics formats diagnostics for failure messages, one per line,
// so rule authors can see exactly what Vale emitted.
func RenderDiagnostics(diags []diag.Diagnostic) string {
	if len(diags) == 0 {
		return "(no diagnostics)"
	}
	lines := make([]string, len(diags))
	for i, d := range diags {
		line := "?"
		if d.Line > 0 {
			line = fmt.Sprintf("%d", d.Line)
		}
		lines[i] = fmt.Sprintf("- %s @ line %s [%s]: %s", d.Check, line, d.Severity, d.Message)
	}
	return strings.Join(lines, "\n")
}

// evaluateExpect checks an expect clause against the step's diagnostics and
// returns one message per failed expectation.
func evaluateExpect(expect *ExpectClause, diags []diag.Diagnostic) []string {
	var errs []string

	if expect.None && len(diags) > 0 {
		errs = append(errs, fmt.Sprintf(
			"expected no diagnostics, got %d:\n%s", len(diags), RenderDiagnostics(diags)))
	}

	if expect.Count != nil && len(diags) != *expect.Count {
		errs = append(errs, fmt.Sprintf(
			"expected %d diagnostics, got %d:\n%s", *expect.Count, len(diags), RenderDiagnostics(diags)))
	}

	if len(expect.OnlyChecks) > 0 {
		if msg := checkSetMismatch(diags, expect.OnlyChecks); msg != "" {
			errs = append(errs, msg)
		}
	}

	for _, filter := range expect.Diagnostics {
		if _, ok := FindDiagnostic(diags, filter); !ok {
			errs = append(errs, fmt.Sprintf(
				"expected a diagnostic matching %s, but got none:\n%s",
				filter.describe(), RenderDiagnostics(diags)))
		}
	}
	return errs
}

// checkSetMismatch compares the set of check identifiers present against
// the expected set. Returns "" when they match exactly.
func checkSetMismatch(diags []diag.Diagnostic, expected []string) string {
	want := make(map[string]bool, len(expected))
	for _, check := range expected {
		want[check] = true
	}
	got := make(map[string]bool, len(diags))
	for _, d := range diags {
		got[d.Check] = true
	}

	match := len(want) == len(got)
	if match {
		for check := range want {
			if !got[check] {
				match = false
				break
			}
		}
	}
	if match {
		return ""
	}

	wantList := make([]string, 0, len(want))
	for check := range want {
		wantList = append(wantList, check)
	}
	gotList := make([]string, 0, len(got))
	for check := range got {
		gotList = append(gotList, check)
	}
	sort.Strings(wantList)
	sort.Strings(gotList)
	return fmt.Sprintf("expected checks %v, got %v:\n%s", wantList, gotList, RenderDiagnostics(diags))
}

// AssertHasDiagnostic fails the test unless at least one diagnostic matches
// the filter, and returns the first match. The failure message renders all
// diagnostics for debugging.
func AssertHasDiagnostic(t *testing.T, diags []diag.Diagnostic, filter DiagnosticFilter) diag.Diagnostic {
	t.Helper()
	d, ok := FindDiagnostic(diags, filter)
	if !ok {
		t.Fatalf("expected a diagnostic matching %s, but got none\n%s",
			filter.describe(), RenderDiagnostics(diags))
	}
	return d
}

// AssertNoDiagnostics fails the test if any diagnostics are present.
func AssertNoDiagnostics(t *testing.T, diags []diag.Diagnostic) {
	t.Helper()
	if len(diags) > 0 {
		t.Fatalf("expected no diagnostics, got:\n%s", RenderDiagnostics(diags))
	}
}

// AssertOnlyChecks fails the test unless the set of check identifiers in
// diags exactly matches the expected set.
func AssertOnlyChecks(t *testing.T, diags []diag.Diagnostic, expected ...string) {
	t.Helper()
	if msg := checkSetMismatch(diags, expected); msg != "" {
		t.Fatal(msg)
	}
}
