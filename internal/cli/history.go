package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/valedate/internal/harness"
	"github.com/roach88/valedate/internal/record"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
	Run   string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded lint runs",
		Long: `List recorded runs from a history database, or show the findings
of one run.

Examples:
  valedate history --db runs.db
  valedate history --db runs.db --limit 5
  valedate history --db runs.db --run 9f0c...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the history database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show findings for this run ID")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	store, err := record.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer store.Close()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	w := cmd.OutOrStdout()

	if opts.Run != "" {
		byPath, err := store.FindingsForRun(ctx, opts.Run)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read findings", err)
		}
		if opts.Format == "json" {
			return formatter.JSON(byPath)
		}
		if len(byPath) == 0 {
			fmt.Fprintln(w, "No findings.")
			return nil
		}
		paths := make([]string, 0, len(byPath))
		for path := range byPath {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Fprintf(w, "%s\n%s\n", path, harness.RenderDiagnostics(byPath[path]))
		}
		return nil
	}

	runs, err := store.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if opts.Format == "json" {
		return formatter.JSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return nil
	}
	for _, run := range runs {
		status := "PASS"
		if !run.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %d findings  %s\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), status, run.Label, run.Findings, run.Source)
	}
	return nil
}
