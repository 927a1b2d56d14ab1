// Package diag defines the typed representation of Vale's JSON alerts and
// the decoder that normalizes Vale's output shapes into it.
//
// Vale reports results on stdout as JSON in one of three shapes depending on
// how it was invoked:
//
//  1. An object keyed by source path, each value an array of alerts
//     (the usual --output=JSON form for file linting).
//  2. An array of per-file objects carrying "Path" and "Alerts" fields
//     (emitted by some Vale versions for multi-file runs).
//  3. A bare array of alerts with no path wrapping (single-document
//     stdin linting).
//
// Decode accepts all three and always yields a path-keyed mapping so callers
// have a single stable representation to assert against.
package diag

// StdinPath is the synthetic source key used when Vale reports alerts for
// piped input without any path wrapping.
const StdinPath = "<stdin>"

// Action is Vale's optional remediation payload attached to an alert.
type Action struct {
	// Name is the remediation action name (e.g. "replace"). Empty when the
	// rule attaches no action.
	Name string `json:"Name,omitempty"`

	// Params are the action parameters, if any.
	Params []string `json:"Params,omitempty"`
}

// Diagnostic is one Vale finding, decoded from a core.Alert payload.
//
// Diagnostics are immutable value records. Two diagnostics are equal exactly
// when all fields (including the optional ones) are equal; there is no
// identity beyond structural equality.
type Diagnostic struct {
	// Check is the fully-qualified rule name, e.g. "Test.NoFoo".
	Check string `json:"Check"`

	// Message is the human-readable explanation attached to the alert.
	Message string `json:"Message"`

	// Severity is Vale's alert level: "suggestion", "warning", or "error".
	// Treated as an open string enum; unknown values pass through verbatim.
	Severity string `json:"Severity"`

	// Line is the one-based line number of the alert, or 0 when Vale omits
	// location metadata.
	Line int `json:"Line,omitempty"`

	// Span holds the start/end offsets of the match within the line.
	// (0, 0) when Vale omits span data.
	Span [2]int `json:"Span"`

	// Link is an optional documentation URL for the rule.
	Link string `json:"Link,omitempty"`

	// Description is an optional long-form explanation of the rule.
	Description string `json:"Description,omitempty"`

	// Match is the matched text snippet, if Vale provides one.
	Match string `json:"Match,omitempty"`

	// Action is optional structured remediation metadata.
	Action *Action `json:"Action,omitempty"`
}

// Severity levels in ascending order of importance. Vale treats these as the
// closed set for --minAlertLevel, but diagnostics may carry other values.
const (
	SeveritySuggestion = "suggestion"
	SeverityWarning    = "warning"
	SeverityError      = "error"
)

// severityRank orders the known severities for floor comparisons.
// Unknown severities rank above "error" so they are never filtered out.
var severityRank = map[string]int{
	SeveritySuggestion: 0,
	SeverityWarning:    1,
	SeverityError:      2,
}

// SeverityAtLeast reports whether severity sev meets the given floor.
// An unknown sev always meets the floor; an unknown floor is met by
// everything. This mirrors Vale's permissive handling of alert levels.
func SeverityAtLeast(sev, floor string) bool {
	f, ok := severityRank[floor]
	if !ok {
		return true
	}
	s, ok := severityRank[sev]
	if !ok {
		return true
	}
	return s >= f
}
