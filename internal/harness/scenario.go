package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/valedate/internal/config"
	"github.com/roach88/valedate/internal/diag"
	"github.com/roach88/valedate/internal/styles"
	"github.com/roach88/valedate/internal/vale"
)

// Scenario is a declarative rule-validation test: a Vale configuration,
// a style tree, and a sequence of lint steps with expected diagnostics.
type Scenario struct {
	// Name uniquely identifies this scenario. Also used as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the .vale.ini content as section name to key/value body.
	// Root-level options go under "__root__" (or "top").
	Config map[string]map[string]any `yaml:"config"`

	// Styles maps sandbox-relative style paths to rule file content.
	Styles map[string]string `yaml:"styles,omitempty"`

	// StylesDir names an existing styles directory to copy instead of (or
	// in addition to) the inline Styles mapping. Relative paths resolve
	// against the scenario file's directory.
	StylesDir string `yaml:"styles_dir,omitempty"`

	// MinAlertLevel is the harness-level severity floor for every step.
	MinAlertLevel string `yaml:"min_alert_level,omitempty"`

	// Files maps relative paths to document content, materialized into a
	// scratch directory for lint_path steps.
	Files map[string]string `yaml:"files,omitempty"`

	// Steps is the ordered list of lint operations to perform.
	Steps []Step `yaml:"steps"`
}

// Step is one lint operation. Exactly one of Lint or LintPath must be set.
type Step struct {
	// Lint is in-memory text to pipe through Vale's stdin mode.
	Lint string `yaml:"lint,omitempty"`

	// LintPath is a file or directory to lint, resolved against the
	// scenario's materialized Files directory.
	LintPath string `yaml:"lint_path,omitempty"`

	// Ext overrides the stdin extension for this step.
	Ext string `yaml:"ext,omitempty"`

	// MinAlertLevel overrides the severity floor for this step.
	MinAlertLevel string `yaml:"min_alert_level,omitempty"`

	// Expect holds the step's expected diagnostics. Nil means the step
	// only has to execute without error.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the diagnostics a step must produce. All present
// fields are checked; absent fields are unconstrained.
type ExpectClause struct {
	// None asserts the step produced zero diagnostics.
	None bool `yaml:"none,omitempty"`

	// Count asserts the exact total number of diagnostics.
	Count *int `yaml:"count,omitempty"`

	// OnlyChecks asserts the set of check identifiers present matches
	// exactly (set semantics, order-insensitive).
	OnlyChecks []string `yaml:"only_checks,omitempty"`

	// Diagnostics lists filters, each of which must match at least one
	// reported diagnostic (subset semantics).
	Diagnostics []DiagnosticFilter `yaml:"diagnostics,omitempty"`
}

// DiagnosticFilter selects diagnostics by field values. Zero-valued fields
// are unconstrained.
type DiagnosticFilter struct {
	// Check is the fully-qualified check identifier, e.g. "Test.NoFoo".
	Check string `yaml:"check,omitempty"`

	// Severity is the exact severity value, e.g. "warning".
	Severity string `yaml:"severity,omitempty"`

	// Line is the expected one-based line number.
	Line int `yaml:"line,omitempty"`

	// Match is the exact matched text snippet.
	Match string `yaml:"match,omitempty"`

	// MessageContains is a substring of the diagnostic message.
	MessageContains string `yaml:"message_contains,omitempty"`
}

// StepResult records one executed step.
type StepResult struct {
	// Index is the zero-based step position.
	Index int `json:"index"`

	// Target is the linted input: "<stdin>" for text steps, the path
	// argument for lint_path steps.
	Target string `json:"target"`

	// Diagnostics holds the decoded results keyed by reported path.
	Diagnostics map[string][]diag.Diagnostic `json:"diagnostics"`

	// Errors lists expectation failures for this step.
	Errors []string `json:"errors,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the executed scenario's name.
	Scenario string `json:"scenario"`

	// Pass is true when every step executed and met its expectations.
	Pass bool `json:"pass"`

	// Steps holds per-step results in execution order.
	Steps []StepResult `json:"steps"`

	// Errors lists scenario-level failures (setup problems, execution
	// errors). Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// LoadScenario reads, schema-validates, and parses a scenario YAML file.
// The file is first checked against the embedded CUE schema (catching
// typos and structural mistakes with positioned errors), then decoded
// strictly so unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	if err := validateScenarioSchema(path, data); err != nil {
		return nil, err
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if scenario.StylesDir != "" && !filepath.IsAbs(scenario.StylesDir) {
		scenario.StylesDir = filepath.Join(filepath.Dir(path), scenario.StylesDir)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks the constraints the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Config) == 0 {
		return fmt.Errorf("config is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		hasText := step.Lint != ""
		hasPath := step.LintPath != ""
		if hasText == hasPath {
			return fmt.Errorf("steps[%d]: exactly one of lint or lint_path is required", i)
		}
		if hasPath && step.Ext != "" {
			return fmt.Errorf("steps[%d]: ext only applies to lint steps", i)
		}
		if hasPath {
			if _, ok := s.Files[step.LintPath]; !ok && !hasFilesUnder(s.Files, step.LintPath) {
				return fmt.Errorf("steps[%d]: lint_path %q not found in files", i, step.LintPath)
			}
		}
	}
	return nil
}

// hasFilesUnder reports whether any declared file lives under the given
// directory prefix, so lint_path may name a directory of files.
func hasFilesUnder(files map[string]string, dir string) bool {
	prefix := dir + "/"
	for rel := range files {
		if len(rel) > len(prefix) && rel[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// RunOptions configures scenario execution.
type RunOptions struct {
	// Binary is the Vale executable for the underlying harness.
	Binary string

	// Runner overrides the subprocess launcher, for tests.
	Runner vale.Runner

	// Logger receives harness lifecycle events. Nil discards.
	Logger *slog.Logger
}

// Run executes a scenario: it builds a sandbox harness from the scenario's
// config and styles, materializes the declared files into a scratch
// directory, performs every step, and evaluates the expect clauses.
//
// Execution errors (a failing Vale invocation, a broken style tree) fail
// the scenario but are reported through the Result rather than the error;
// the error return is reserved for problems running the scenario at all.
func Run(ctx context.Context, scenario *Scenario, opts RunOptions) (*Result, error) {
	result := &Result{Scenario: scenario.Name, Pass: true, Steps: []StepResult{}}

	cfg := make(config.Map, len(scenario.Config))
	for section, body := range scenario.Config {
		cfg[section] = map[string]any(body)
	}

	var styleSrc styles.Source
	switch {
	case scenario.StylesDir != "":
		styleSrc = styles.Dir(scenario.StylesDir)
	case len(scenario.Styles) > 0:
		tree := make(styles.Tree, len(scenario.Styles))
		for rel, content := range scenario.Styles {
			tree[rel] = content
		}
		styleSrc = tree
	}

	h, err := New(ctx, Options{
		Config:        cfg,
		Styles:        styleSrc,
		Binary:        opts.Binary,
		MinAlertLevel: scenario.MinAlertLevel,
		Runner:        opts.Runner,
		Logger:        opts.Logger,
	})
	if err != nil {
		result.Pass = false
		result.Errors = append(result.Errors, fmt.Sprintf("setup: %v", err))
		return result, nil
	}
	defer h.Cleanup()

	filesDir, err := materializeFiles(scenario.Files)
	if err != nil {
		result.Pass = false
		result.Errors = append(result.Errors, fmt.Sprintf("setup: %v", err))
		return result, nil
	}
	if filesDir != "" {
		defer os.RemoveAll(filesDir)
	}

	for i, step := range scenario.Steps {
		stepResult := runStep(ctx, h, filesDir, i, step)
		if len(stepResult.Errors) > 0 {
			result.Pass = false
		}
		result.Steps = append(result.Steps, stepResult)
	}
	return result, nil
}

// materializeFiles writes the scenario's document files into a scratch
// directory and returns its path, or "" when there are none.
func materializeFiles(files map[string]string) (string, error) {
	if len(files) == 0 {
		return "", nil
	}
	dir, err := os.MkdirTemp("", "valedate-docs-")
	if err != nil {
		return "", fmt.Errorf("failed to create documents directory: %w", err)
	}
	tree := make(styles.Tree, len(files))
	for rel, content := range files {
		tree[rel] = content
	}
	if err := styles.Materialize(dir, tree); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

func runStep(ctx context.Context, h *Harness, filesDir string, index int, step Step) StepResult {
	sr := StepResult{Index: index}

	var lintOpts []LintOption
	if step.Ext != "" {
		lintOpts = append(lintOpts, WithExt(step.Ext))
	}
	if step.MinAlertLevel != "" {
		lintOpts = append(lintOpts, WithMinAlertLevel(step.MinAlertLevel))
	}

	if step.Lint != "" {
		sr.Target = diag.StdinPath
		diags, err := h.Lint(ctx, step.Lint, lintOpts...)
		if err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("lint: %v", err))
			return sr
		}
		sr.Diagnostics = map[string][]diag.Diagnostic{diag.StdinPath: diags}
	} else {
		sr.Target = step.LintPath
		target := filepath.Join(filesDir, filepath.FromSlash(step.LintPath))
		byPath, err := h.LintPath(ctx, target, lintOpts...)
		if err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("lint_path: %v", err))
			return sr
		}
		sr.Diagnostics = byPath
	}

	if step.Expect != nil {
		sr.Errors = append(sr.Errors, evaluateExpect(step.Expect, flatten(sr.Diagnostics))...)
	}
	return sr
}
