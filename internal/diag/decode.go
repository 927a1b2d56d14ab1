package diag

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError is returned when Vale's JSON output cannot be decoded into
// diagnostics. It carries enough context to identify the offending alert.
type DecodeError struct {
	// Path is the reported source path the alert belongs to, or "" when the
	// failure happened before any path was established.
	Path string

	// Index is the zero-based position of the alert within its array, or -1
	// when the failure is not tied to a specific alert.
	Index int

	// Field names the missing or malformed field, if known.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	var buf strings.Builder
	buf.WriteString("decode vale output")
	if e.Path != "" {
		fmt.Fprintf(&buf, " for %s", e.Path)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&buf, " (alert %d)", e.Index)
	}
	if e.Field != "" {
		fmt.Fprintf(&buf, ": missing required field %q", e.Field)
	} else if e.Err != nil {
		fmt.Fprintf(&buf, ": %v", e.Err)
	}
	return buf.String()
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error { return e.Err }

// rawAlert mirrors Vale's core.Alert JSON with pointer fields for the
// required members so absence can be told apart from the zero value.
type rawAlert struct {
	Check       *string  `json:"Check"`
	Message     *string  `json:"Message"`
	Severity    *string  `json:"Severity"`
	Line        int      `json:"Line"`
	Span        []int    `json:"Span"`
	Link        string   `json:"Link"`
	Description string   `json:"Description"`
	Match       string   `json:"Match"`
	Action      *Action  `json:"Action"`
}

// fileResult mirrors the per-file object form some Vale versions emit.
type fileResult struct {
	Path   string          `json:"Path"`
	Alerts json.RawMessage `json:"Alerts"`
}

// Decode parses Vale's JSON stdout into a mapping from reported source path
// to its ordered diagnostics. All three output shapes are accepted; path
// keys are kept verbatim (they may differ from the path the caller linted).
//
// Structurally unrecognized but well-formed JSON (for example an empty
// object, or a scalar) decodes to an empty mapping rather than an error:
// Vale emits "{}" and "[]" for clean runs and the harness must treat those
// as "no findings". Malformed JSON and alerts missing a required field
// (Check, Message, Severity) fail with a *DecodeError.
func Decode(raw string) (map[string][]Diagnostic, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string][]Diagnostic{}, nil
	}

	var probe any
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	switch value := probe.(type) {
	case map[string]any:
		return decodePathKeyed(trimmed)
	case []any:
		if isFileResultArray(value) {
			return decodeFileResults(trimmed)
		}
		return decodeBareAlerts(trimmed)
	default:
		// Scalars and null carry no alerts.
		return map[string][]Diagnostic{}, nil
	}
}

// isFileResultArray reports whether the array's first element looks like a
// per-file object ({"Path": ..., "Alerts": ...}) rather than a bare alert.
func isFileResultArray(value []any) bool {
	if len(value) == 0 {
		return false
	}
	first, ok := value[0].(map[string]any)
	if !ok {
		return false
	}
	_, hasPath := first["Path"]
	_, hasAlerts := first["Alerts"]
	return hasPath && hasAlerts
}

func decodePathKeyed(raw string) (map[string][]Diagnostic, error) {
	var byPath map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &byPath); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	out := make(map[string][]Diagnostic, len(byPath))
	for path, alerts := range byPath {
		decoded, err := decodeAlerts(path, alerts)
		if err != nil {
			return nil, err
		}
		out[path] = decoded
	}
	return out, nil
}

func decodeFileResults(raw string) (map[string][]Diagnostic, error) {
	var files []fileResult
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	out := make(map[string][]Diagnostic, len(files))
	for _, file := range files {
		decoded, err := decodeAlerts(file.Path, file.Alerts)
		if err != nil {
			return nil, err
		}
		out[file.Path] = decoded
	}
	return out, nil
}

func decodeBareAlerts(raw string) (map[string][]Diagnostic, error) {
	decoded, err := decodeAlerts(StdinPath, json.RawMessage(raw))
	if err != nil {
		return nil, err
	}
	return map[string][]Diagnostic{StdinPath: decoded}, nil
}

// decodeAlerts converts one alert array into diagnostics, enforcing the
// required fields on every element.
func decodeAlerts(path string, raw json.RawMessage) ([]Diagnostic, error) {
	if len(raw) == 0 {
		return []Diagnostic{}, nil
	}

	var alerts []rawAlert
	if err := json.Unmarshal(raw, &alerts); err != nil {
		return nil, &DecodeError{Path: path, Index: -1, Err: err}
	}

	out := make([]Diagnostic, 0, len(alerts))
	for i, alert := range alerts {
		switch {
		case alert.Check == nil:
			return nil, &DecodeError{Path: path, Index: i, Field: "Check"}
		case alert.Message == nil:
			return nil, &DecodeError{Path: path, Index: i, Field: "Message"}
		case alert.Severity == nil:
			return nil, &DecodeError{Path: path, Index: i, Field: "Severity"}
		}

		d := Diagnostic{
			Check:       *alert.Check,
			Message:     *alert.Message,
			Severity:    *alert.Severity,
			Line:        alert.Line,
			Link:        alert.Link,
			Description: alert.Description,
			Match:       alert.Match,
			Action:      alert.Action,
		}
		if len(alert.Span) >= 2 {
			d.Span = [2]int{alert.Span[0], alert.Span[1]}
		}
		out = append(out, d)
	}
	return out, nil
}
