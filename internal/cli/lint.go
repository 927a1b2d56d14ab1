package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/valedate/internal/config"
	"github.com/roach88/valedate/internal/diag"
	"github.com/roach88/valedate/internal/harness"
	"github.com/roach88/valedate/internal/record"
	"github.com/roach88/valedate/internal/styles"
	"github.com/roach88/valedate/internal/vale"
)

// LintOptions holds flags for the lint command.
type LintOptions struct {
	*RootOptions
	Config        string
	Styles        string
	Binary        string
	Ext           string
	MinAlertLevel string
	Record        string
	Label         string
}

// LintReport is the lint command's output payload.
type LintReport struct {
	Source      string                       `json:"source"`
	Diagnostics map[string][]diag.Diagnostic `json:"diagnostics"`
	Total       int                          `json:"total"`
	RunID       string                       `json:"run_id,omitempty"`
}

// NewLintCommand creates the lint command.
func NewLintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lint <path>",
		Short: "Lint a file or directory in a sandbox",
		Long: `Lint a file or directory inside an isolated Vale sandbox.

The sandbox is built from the given config and styles, used for one run,
and removed afterwards. Pass "-" to lint text from standard input.

Exit codes:
  0 - No findings
  1 - Findings reported
  2 - Command error (missing binary, invalid config, Vale runtime failure)

Examples:
  valedate lint docs/ --config .vale.ini --styles ./styles
  valedate lint README.md --config .vale.ini --min-alert-level error
  echo "some prose" | valedate lint - --config .vale.ini --ext .md
  valedate lint docs/ --config .vale.ini --record runs.db --label docs-check`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to a .vale.ini file (required)")
	cmd.Flags().StringVar(&opts.Styles, "styles", "", "styles directory to copy into the sandbox")
	cmd.Flags().StringVar(&opts.Binary, "bin", harness.DefaultBinary, "vale executable name or path")
	cmd.Flags().StringVar(&opts.Ext, "ext", harness.DefaultStdinExt, "extension for stdin content")
	cmd.Flags().StringVar(&opts.MinAlertLevel, "min-alert-level", "", "severity floor (suggestion|warning|error)")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record the run in this history database")
	cmd.Flags().StringVar(&opts.Label, "label", "lint", "label for the recorded run")
	cmd.MarkFlagRequired("config")

	return cmd
}

func runLint(opts *LintOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	var styleSrc styles.Source
	if opts.Styles != "" {
		styleSrc = styles.Dir(opts.Styles)
	}

	h, err := harness.New(ctx, harness.Options{
		Config:        config.File(opts.Config),
		Styles:        styleSrc,
		Binary:        opts.Binary,
		StdinExt:      opts.Ext,
		MinAlertLevel: opts.MinAlertLevel,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build sandbox", err)
	}
	defer h.Cleanup()

	report := LintReport{Source: path}
	if path == "-" {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		diags, err := h.Lint(ctx, string(text))
		if err != nil {
			return lintExecError(err)
		}
		report.Source = diag.StdinPath
		report.Diagnostics = map[string][]diag.Diagnostic{diag.StdinPath: diags}
	} else {
		byPath, err := h.LintPath(ctx, path)
		if err != nil {
			return lintExecError(err)
		}
		report.Diagnostics = byPath
	}

	for _, diags := range report.Diagnostics {
		report.Total += len(diags)
	}

	if opts.Record != "" {
		runID, err := recordRun(ctx, opts.Record, opts.Label, report.Source, report.Total == 0, report.Diagnostics)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		report.RunID = runID
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := formatter.JSON(report); err != nil {
			return err
		}
	} else {
		printLintReport(cmd.OutOrStdout(), report)
	}

	if report.Total > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d findings", report.Total))
	}
	return nil
}

// lintExecError maps a failing Vale invocation onto the command-error exit
// code; findings never travel through errors.
func lintExecError(err error) error {
	var execErr *vale.ExecutionError
	if errors.As(err, &execErr) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("vale exited %d", execErr.ExitCode), err)
	}
	return WrapExitError(ExitCommandError, "lint failed", err)
}

func printLintReport(w io.Writer, report LintReport) {
	if report.Total == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	paths := make([]string, 0, len(report.Diagnostics))
	for path := range report.Diagnostics {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		diags := report.Diagnostics[path]
		if len(diags) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\n%s\n", path, harness.RenderDiagnostics(diags))
	}
	fmt.Fprintf(w, "\n%d findings\n", report.Total)
}

// recordRun persists a run in the history database.
func recordRun(ctx context.Context, dbPath, label, source string, pass bool, byPath map[string][]diag.Diagnostic) (string, error) {
	store, err := record.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.WriteRun(ctx, label, source, pass, byPath)
}
