package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/chipflow/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []store.ReplayReport `json:"runs"`
	TotalRuns        int                  `json:"total_runs"`
	AllDeterministic bool                 `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded runs and verify determinism",
		Long: `Re-run every recorded run (or one, with --run) from its stored
instructions and check that the new run produces the same firing trace,
the same observed bot and the same output bins.

Exit codes:
  0 - All runs are deterministic
  1 - A replay diverged from its recorded run
  2 - Command error (database not found, etc.)

Examples:
  chipflow replay --db ./runs.db
  chipflow replay --db ./runs.db --run 0190d2c4-...
  chipflow replay --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay only this run")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openRunLog(f, opts.Database, opts.Config.Database)
	if err != nil {
		return err
	}
	defer closeRunLog(st)

	var ids []string
	if opts.RunID != "" {
		if _, err := st.ReadRun(ctx, opts.RunID); err != nil {
			return reportRunLookup(f, opts.RunID, err)
		}
		ids = []string{opts.RunID}
	} else {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			_ = f.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	result := ReplayResult{
		Runs:             make([]store.ReplayReport, 0, len(ids)),
		AllDeterministic: true,
	}
	for _, id := range ids {
		report, err := st.ReplayRun(ctx, id, logger)
		if err != nil {
			_ = f.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to replay run", err)
		}
		result.Runs = append(result.Runs, report)
		if !report.Deterministic {
			result.AllDeterministic = false
		}
	}
	result.TotalRuns = len(result.Runs)

	if f.JSON() {
		status := "ok"
		var cliErr *CLIError
		if !result.AllDeterministic {
			status = "error"
			cliErr = &CLIError{Code: ErrCodeGeneric, Message: "replay diverged from recorded run"}
		}
		if err := f.Respond(status, result, cliErr); err != nil {
			return err
		}
	} else {
		printReplayText(f, result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from recorded run")
	}
	return nil
}

func printReplayText(f *OutputFormatter, result ReplayResult) {
	if result.TotalRuns == 0 {
		f.Printf("No runs recorded.\n")
		return
	}

	f.Printf("Replayed %d run(s)\n\n", result.TotalRuns)
	for _, r := range result.Runs {
		mark := "✓"
		if !r.Deterministic {
			mark = "✗"
		}
		f.Printf("%s %s (%s): %d firings\n", mark, r.RunID, r.Name, r.Firings)
		for _, m := range r.Mismatches {
			f.Printf("  %s\n", m)
		}
	}

	f.Printf("\n")
	if result.AllDeterministic {
		f.Printf("All runs deterministic\n")
	} else {
		f.Printf("Determinism check FAILED\n")
	}
}
