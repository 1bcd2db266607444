package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - latest run when empty
	Unit     int64  // optional - filter to one bot; -1 for all
}

// TraceResult holds the firing timeline of one stored run.
type TraceResult struct {
	RunID       string             `json:"run_id"`
	Name        string             `json:"name"`
	NetworkHash string             `json:"network_hash"`
	TraceHash   string             `json:"trace_hash"`
	Observed    *uint64            `json:"observed,omitempty"`
	Firings     []engine.Firing    `json:"firings"`
	Sinks       []engine.SinkValue `json:"sinks"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the firing timeline of a recorded run",
		Long: `Show every firing of a run recorded with "chipflow run --db", in order:
which bot fired, the chips it compared and where each chip went, followed
by the filled output bins.

Examples:
  chipflow trace --db ./runs.db
  chipflow trace --db ./runs.db --run 0190d2c4-...
  chipflow trace --db ./runs.db --bot 2 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show (default: latest run)")
	cmd.Flags().Int64Var(&opts.Unit, "bot", -1, "only show firings of this bot")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openRunLog(f, opts.Database, opts.Config.Database)
	if err != nil {
		return err
	}
	defer closeRunLog(st)

	var run store.Run
	if opts.RunID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, opts.RunID)
	}
	if err != nil {
		return reportRunLookup(f, opts.RunID, err)
	}

	firings, err := st.ReadFirings(ctx, run.ID)
	if err != nil {
		_ = f.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read firings", err)
	}
	sinks, err := st.ReadSinks(ctx, run.ID)
	if err != nil {
		_ = f.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read output bins", err)
	}

	result := TraceResult{
		RunID:       run.ID,
		Name:        run.Name,
		NetworkHash: run.NetworkHash,
		TraceHash:   run.TraceHash,
		Firings:     filterFirings(firings, opts.Unit),
		Sinks:       sinks,
	}
	if run.Observed != nil {
		u := uint64(*run.Observed)
		result.Observed = &u
	}

	if f.JSON() {
		return f.Success(result)
	}

	f.Printf("run %s (%s)\n", result.RunID, result.Name)
	f.Printf("network %s\n", result.NetworkHash)
	f.Printf("trace   %s\n", result.TraceHash)
	if result.Observed != nil {
		f.Printf("observed: bot %d\n", *result.Observed)
	}
	f.Printf("\n")
	if len(result.Firings) == 0 {
		f.Printf("no firings\n")
	}
	for _, fr := range result.Firings {
		f.Printf("%4d  bot %d: low %d -> %s, high %d -> %s\n",
			fr.Seq, fr.Unit, fr.Low, fr.LowTarget, fr.High, fr.HighTarget)
	}
	if len(result.Sinks) > 0 {
		f.Printf("\n")
	}
	for _, sv := range result.Sinks {
		f.Printf("output %d: %d\n", sv.Sink, sv.Value)
	}
	return nil
}

func filterFirings(firings []engine.Firing, unit int64) []engine.Firing {
	if unit < 0 {
		return firings
	}
	out := make([]engine.Firing, 0, len(firings))
	for _, fr := range firings {
		if int64(fr.Unit) == unit {
			out = append(out, fr)
		}
	}
	return out
}

// openRunLog opens an existing run log. flagPath wins over configPath.
// Unlike store.Open it refuses to create a new database file.
func openRunLog(f *OutputFormatter, flagPath, configPath string) (*store.Store, error) {
	path := flagPath
	if path == "" {
		path = configPath
	}
	if path == "" {
		_ = f.Error(ErrCodeFlag, "--db is required", nil)
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(path); err != nil {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(path)
	if err != nil {
		_ = f.Error(ErrCodeDatabase, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeRunLog(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func reportRunLookup(f *OutputFormatter, runID string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		msg := "no runs recorded"
		if runID != "" {
			msg = fmt.Sprintf("run not found: %s", runID)
		}
		_ = f.Error(ErrCodeNotFound, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}
	_ = f.Error(ErrCodeDatabase, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to read run", err)
}
