// Package config normalizes heterogeneous .vale.ini inputs into canonical
// configuration text.
//
// Callers may supply raw ini text, a filesystem path, or a structured
// mapping; all three normalize to the same textual form. The styles-path
// directive is always harness-controlled: ForceStylesPath replaces or
// prepends it so the sandbox stays self-contained no matter what the caller
// supplied.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Root pseudo-section aliases. Keys under either alias render as unsectioned
// lines at the top of the file.
const (
	RootSection      = "__root__"
	RootSectionAlias = "top"
)

// Source is a configuration input. It is a sealed sum type with exactly
// three variants: Text, File, and Map. Render dispatches exhaustively via
// the interface, so there is no unsupported-input error path by
// construction.
type Source interface {
	render() (string, error)
}

// Text is literal configuration text. As a convenience, when the string
// names an existing file the file's contents are used instead; otherwise
// the string itself is the configuration.
type Text string

// File is a path to a configuration file. Unlike Text, the file must exist;
// rendering fails with a *NotFoundError otherwise.
type File string

// Map is a structured configuration: section name to key/value body. The
// RootSection (or RootSectionAlias) entry renders as unsectioned lines
// first; every other entry renders as a bracketed section. Section bodies
// must be map[string]any, and sequence-valued options render as
// comma-separated lists.
type Map map[string]any

// NotFoundError is returned when a File source names a missing path.
type NotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ini path %s does not exist", e.Path)
}

// InvalidSectionError is returned when a Map section body is not a
// key/value mapping.
type InvalidSectionError struct {
	Section string
}

// Error implements the error interface.
func (e *InvalidSectionError) Error() string {
	return fmt.Sprintf("section %q must map to key/value pairs", e.Section)
}

// Render normalizes a Source into canonical configuration text.
func Render(src Source) (string, error) {
	return src.render()
}

func (t Text) render() (string, error) {
	// Prefer a file read when the string happens to name one.
	if info, err := os.Stat(string(t)); err == nil && !info.IsDir() {
		data, err := os.ReadFile(string(t))
		if err != nil {
			return "", fmt.Errorf("failed to read ini file: %w", err)
		}
		return string(data), nil
	}
	return string(t), nil
}

func (f File) render() (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Path: string(f)}
		}
		return "", fmt.Errorf("failed to read ini file: %w", err)
	}
	return string(data), nil
}

func (m Map) render() (string, error) {
	var lines []string

	root, ok := m[RootSection]
	if !ok {
		root, ok = m[RootSectionAlias]
	}
	if ok {
		body, isMap := root.(map[string]any)
		if isMap {
			lines = appendSection(lines, body)
		}
	}

	for _, section := range sortedSections(m) {
		header := section
		if !strings.HasPrefix(header, "[") {
			header = "[" + header + "]"
		}
		lines = append(lines, "")
		body, isMap := m[section].(map[string]any)
		if !isMap {
			return "", &InvalidSectionError{Section: section}
		}
		lines = append(lines, header)
		lines = appendSection(lines, body)
	}

	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n", nil
}

// sortedSections returns the non-root section names in sorted order.
// Go map iteration is randomized; sorting keeps the canonical text
// deterministic across runs.
func sortedSections(m Map) []string {
	sections := make([]string, 0, len(m))
	for section := range m {
		if section == RootSection || section == RootSectionAlias {
			continue
		}
		sections = append(sections, section)
	}
	sort.Strings(sections)
	return sections
}

// appendSection renders a section body as "key = value" lines.
func appendSection(lines []string, body map[string]any) []string {
	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s = %s", key, renderValue(body[key])))
	}
	return lines
}

// renderValue formats a single option value. Sequences join with ", " so
// list-valued options like BasedOnStyles render the way Vale expects.
func renderValue(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = fmt.Sprint(elem)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// stylesPathLine matches a StylesPath directive anywhere in the file,
// case-insensitively, anchored to the start of a line.
var stylesPathLine = regexp.MustCompile(`(?mi)^\s*StylesPath\s*=.*$`)

// packagesLine matches a Packages directive, used to decide whether a
// dependency sync is needed.
var packagesLine = regexp.MustCompile(`(?mi)^\s*Packages\s*=`)

// ForceStylesPath rewrites text so its StylesPath directive names dir,
// replacing an existing directive in place or prepending one. The result
// always contains exactly the harness-controlled styles location.
func ForceStylesPath(text, dir string) string {
	directive := "StylesPath = " + dir
	if stylesPathLine.MatchString(text) {
		return stylesPathLine.ReplaceAllLiteralString(text, directive)
	}
	return directive + "\n" + text
}

// DeclaresPackages reports whether the canonical text carries a Packages
// directive, meaning a `vale sync` is required before linting.
func DeclaresPackages(text string) bool {
	return packagesLine.MatchString(text)
}
