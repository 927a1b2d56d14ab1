package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/valedate/internal/diag"
	"github.com/roach88/valedate/internal/harness"
	"github.com/roach88/valedate/internal/record"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Binary string
	Filter string
	Record string
}

// ScenarioSummary holds the result of a single scenario execution.
type ScenarioSummary struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
	RunID  string   `json:"run_id,omitempty"`
}

// TestReport holds the overall test result.
type TestReport struct {
	Scenarios []ScenarioSummary `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against Vale",
		Long: `Run declarative rule-validation scenarios.

Each .yaml file in the directory describes a Vale configuration, a style
tree, and lint steps with expected diagnostics. Every scenario runs in its
own throwaway sandbox against the real Vale binary.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenario, missing binary)

Examples:
  valedate test ./scenarios
  valedate test ./scenarios --filter "no-foo-*"
  valedate test ./scenarios --record runs.db
  valedate test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Binary, "bin", harness.DefaultBinary, "vale executable name or path")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenario files by glob pattern")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record each run in this history database")

	return cmd
}

func runScenarios(opts *TestOptions, dir string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	var store *record.Store
	if opts.Record != "" {
		store, err = record.Open(opts.Record)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		defer store.Close()
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	report := TestReport{Scenarios: []ScenarioSummary{}}

	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", file), err)
		}

		formatter.VerboseLog("running %s (%s)", scenario.Name, file)
		result, err := harness.Run(ctx, scenario, harness.RunOptions{Binary: opts.Binary})
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to run %s", scenario.Name), err)
		}

		summary := ScenarioSummary{
			Name:   result.Scenario,
			File:   file,
			Pass:   result.Pass,
			Errors: collectErrors(result),
		}
		if store != nil {
			runID, err := store.WriteRun(ctx, scenario.Name, file, result.Pass, collectDiagnostics(result))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to record run", err)
			}
			summary.RunID = runID
		}

		report.Scenarios = append(report.Scenarios, summary)
		report.Total++
		if summary.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if opts.Format == "json" {
		if err := formatter.JSON(report); err != nil {
			return err
		}
	} else {
		printTestReport(cmd, report)
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", report.Failed, report.Total))
	}
	return nil
}

// findScenarioFiles returns the sorted scenario files in dir, optionally
// filtered by a glob pattern on the base name.
func findScenarioFiles(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		if filter != "" {
			ok, err := filepath.Match(filter, name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				continue
			}
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// collectErrors flattens scenario- and step-level errors into one list.
func collectErrors(result *harness.Result) []string {
	errs := append([]string(nil), result.Errors...)
	for _, step := range result.Steps {
		for _, msg := range step.Errors {
			errs = append(errs, fmt.Sprintf("step %d: %s", step.Index, msg))
		}
	}
	return errs
}

// collectDiagnostics merges every step's diagnostics for recording. Paths
// from different steps are kept apart by prefixing the step index when the
// same path appears more than once.
func collectDiagnostics(result *harness.Result) map[string][]diag.Diagnostic {
	merged := map[string][]diag.Diagnostic{}
	for _, step := range result.Steps {
		for path, diags := range step.Diagnostics {
			key := path
			if _, exists := merged[key]; exists {
				key = fmt.Sprintf("step%d:%s", step.Index, path)
			}
			merged[key] = append(merged[key], diags...)
		}
	}
	return merged
}

func printTestReport(cmd *cobra.Command, report TestReport) {
	w := cmd.OutOrStdout()
	for _, s := range report.Scenarios {
		status := "PASS"
		if !s.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %s\n", status, s.Name)
		for _, msg := range s.Errors {
			fmt.Fprintf(w, "      %s\n", strings.ReplaceAll(msg, "\n", "\n      "))
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", report.Passed, report.Failed, report.Total)
}
