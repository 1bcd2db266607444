package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
	"github.com/roach88/chipflow/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	Watch      string
	Product    string
	MaxFirings int

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the result of the run command.
type RunSummary struct {
	Name     string             `json:"name"`
	RunID    string             `json:"run_id,omitempty"`
	Firings  int                `json:"firings"`
	Watch    []uint64           `json:"watch,omitempty"`
	Observed *uint64            `json:"observed,omitempty"`
	Sinks    []engine.SinkValue `json:"sinks"`
	Product  *ProductSummary    `json:"product,omitempty"`
}

// ProductSummary is the product of the chips in a set of output bins.
// Found is false when one of the bins was never filled.
type ProductSummary struct {
	Outputs []uint64 `json:"outputs"`
	Value   uint64   `json:"value"`
	Found   bool     `json:"found"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <network-file>",
		Short: "Run a bot network to completion",
		Long: `Load a network from a puzzle text file (.txt) or a CUE file (.cue), run
it until no bot can fire, and print the output bins.

With --watch, reports the first bot that compared the two chips.
With --product, multiplies the chips in the listed output bins.
With --db, the run and its firings are written to the run log.

Exit codes:
  0 - Run completed
  1 - Malformed network (third chip, duplicate rule, bin written twice)
  2 - Command error (file not found, bad flags)

Examples:
  chipflow run input.txt --watch 17,61
  chipflow run input.txt --product 0,1,2
  chipflow run network.cue --db ./runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetwork(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (optional)")
	cmd.Flags().StringVar(&opts.Watch, "watch", "", "pair of chip values to look for, e.g. 17,61")
	cmd.Flags().StringVar(&opts.Product, "product", "", "output bins to multiply, e.g. 0,1,2")
	cmd.Flags().IntVar(&opts.MaxFirings, "max-firings", engine.DefaultMaxFirings, "firing budget (0 disables the limit)")

	return cmd
}

func runNetwork(ctx context.Context, opts *RunOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd)

	if opts.ConfigPath != "" {
		if !cmd.Flags().Changed("db") {
			opts.Database = opts.Config.Database
		}
		if !cmd.Flags().Changed("max-firings") {
			opts.MaxFirings = opts.Config.MaxFirings
		}
	}

	var products []uint64
	if opts.Product != "" {
		var err error
		products, err = parseUintList(opts.Product)
		if err != nil {
			_ = f.Error(ErrCodeFlag, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --product", err)
		}
	}

	var watchFlag *ir.WatchPair
	if opts.Watch != "" {
		w, err := parseWatchFlag(opts.Watch)
		if err != nil {
			_ = f.Error(ErrCodeFlag, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --watch", err)
		}
		watchFlag = w
	}

	net, err := LoadNetwork(path)
	if err != nil {
		return reportLoadError(f, err)
	}
	values, routes := net.Counts()
	logger.Info("network loaded", "name", net.Name, "values", values, "routes", routes)

	// --watch beats the config file, which beats the network file.
	switch {
	case watchFlag != nil:
		net.Watch = watchFlag
	case opts.Config.Watch != nil:
		w := *opts.Config.Watch
		net.Watch = &w
	}

	rec := &engine.Recorder{}
	res, err := engine.Run(net.Instructions,
		engine.WithWatchPair(net.Watch),
		engine.WithMaxFirings(opts.MaxFirings),
		engine.WithObserver(rec.Record),
		engine.WithLogger(logger),
	)
	if err != nil {
		code := engine.StateErrorCodeOf(err)
		if code == "" {
			code = ErrCodeGeneric
		}
		_ = f.Error(string(code), err.Error(), map[string]int{"firings": len(rec.Firings)})
		return WrapExitError(ExitFailure, "run failed", err)
	}

	summary := RunSummary{
		Name:    net.Name,
		Firings: res.Firings(),
		Sinks:   res.Sinks(),
	}
	if w, ok := res.Watch(); ok {
		summary.Watch = []uint64{uint64(w.Low), uint64(w.High)}
	}
	if unit, ok := res.Observed(); ok {
		u := uint64(unit)
		summary.Observed = &u
	}

	if len(products) > 0 {
		p, err := productOf(res, products)
		if err != nil {
			_ = f.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitFailure, "product failed", err)
		}
		summary.Product = p
	}

	if opts.Database != "" {
		id, err := persistRun(ctx, opts, net, res, rec.Firings)
		if err != nil {
			_ = f.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write run log", err)
		}
		summary.RunID = id
		logger.Info("run recorded", "run_id", id, "db", opts.Database)
	}

	if f.JSON() {
		return f.Success(summary)
	}
	printRunSummary(f, summary)
	return nil
}

// newLogger installs the process-wide slog handler on the command's stderr.
func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// productOf multiplies the listed bins. An empty bin is reported as not
// found rather than as an error.
func productOf(res *engine.Result, outputs []uint64) (*ProductSummary, error) {
	ids := make([]ir.SinkID, len(outputs))
	for i, o := range outputs {
		ids[i] = ir.SinkID(o)
	}
	p := &ProductSummary{Outputs: outputs}
	v, err := res.Product(ids...)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return p, nil
	case err != nil:
		return nil, err
	}
	p.Value = v
	p.Found = true
	return p, nil
}

func persistRun(ctx context.Context, opts *RunOptions, net *ir.Network, res *engine.Result, firings []engine.Firing) (string, error) {
	ids := opts.RunIDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	record, err := store.NewRecord(ids.Generate(), net, res, firings)
	if err != nil {
		return "", err
	}
	if _, err := st.WriteRun(ctx, record); err != nil {
		return "", err
	}
	return record.Run.ID, nil
}

func printRunSummary(f *OutputFormatter, s RunSummary) {
	f.Printf("network %s: %d firings\n", s.Name, s.Firings)

	if len(s.Watch) == 2 {
		if s.Observed != nil {
			f.Printf("observed: bot %d compares %d and %d\n", *s.Observed, s.Watch[0], s.Watch[1])
		} else {
			f.Printf("observed: not found (no bot compares %d and %d)\n", s.Watch[0], s.Watch[1])
		}
	}

	for _, sv := range s.Sinks {
		f.Printf("output %d: %d\n", sv.Sink, sv.Value)
	}

	if s.Product != nil {
		list := joinUints(s.Product.Outputs)
		if s.Product.Found {
			f.Printf("product %s: %d\n", list, s.Product.Value)
		} else {
			f.Printf("product %s: not found\n", list)
		}
	}

	if s.RunID != "" {
		f.Printf("run: %s\n", s.RunID)
	}
}

func joinUints(vs []uint64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}
