package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/chipflow/internal/compiler"
	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
	"github.com/roach88/chipflow/internal/store"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh engine and a fresh in-memory run log.
// Run IDs come from a fixed generator so results are reproducible.
//
// A run that fails with a StateError is not an error here: the code is
// recorded in Result.ErrorCode and checked against Expect.Error. Run returns
// an error only when the scenario itself cannot be executed.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine diagnostics sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	net, err := loadNetwork(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}

	watch := net.Watch
	if len(scenario.Watch) == 2 {
		w := ir.NewWatchPair(ir.Value(scenario.Watch[0]), ir.Value(scenario.Watch[1]))
		watch = &w
	}
	net.Watch = watch

	opts := []engine.Option{
		engine.WithWatchPair(watch),
		engine.WithLogger(logger),
	}
	if scenario.MaxFirings > 0 {
		opts = append(opts, engine.WithMaxFirings(scenario.MaxFirings))
	}

	rec := &engine.Recorder{}
	opts = append(opts, engine.WithObserver(rec.Record))

	result := NewResult()
	res, runErr := engine.Run(net.Instructions, opts...)
	result.Trace = append(result.Trace, rec.Firings...)

	if runErr != nil {
		code := engine.StateErrorCodeOf(runErr)
		if code == "" {
			return nil, fmt.Errorf("run %s: %w", scenario.Name, runErr)
		}
		result.ErrorCode = string(code)
		result.Firings = len(rec.Firings)
		checkFailure(scenario, runErr, result)
		evaluateAssertions(result, scenario.Assertions)
		return result, nil
	}

	result.Sinks = res.Sinks()
	result.Firings = res.Firings()
	if unit, ok := res.Observed(); ok {
		result.Observed = &unit
	}

	if scenario.Expect.Error != "" {
		result.AddError(fmt.Sprintf("expected error %s, run succeeded", scenario.Expect.Error))
	}
	checkExpect(&scenario.Expect, res, result)
	evaluateAssertions(result, scenario.Assertions)

	if err := persistAndReplay(scenario.Name, net, res, rec.Firings, logger, result); err != nil {
		return nil, err
	}

	logger.Info("scenario completed",
		"scenario", scenario.Name,
		"firings", result.Firings,
		"pass", result.Pass,
	)
	return result, nil
}

func loadNetwork(s *Scenario) (*ir.Network, error) {
	if s.File != "" {
		return compiler.LoadNetwork(s.File)
	}
	return compiler.LoadNetworkString(s.Name, s.Network)
}

// checkFailure compares a failed run with Expect.Error.
func checkFailure(s *Scenario, runErr error, result *Result) {
	switch {
	case s.Expect.Error == "":
		result.AddError(fmt.Sprintf("unexpected error: %v", runErr))
	case s.Expect.Error != result.ErrorCode:
		result.AddError(fmt.Sprintf("error: expected %s, got %s (%v)", s.Expect.Error, result.ErrorCode, runErr))
	}
}

// checkExpect compares a successful run with the scenario's expectations.
func checkExpect(e *Expect, res *engine.Result, result *Result) {
	for sink, want := range e.Sinks {
		got, ok := res.Sink(ir.SinkID(sink))
		switch {
		case !ok:
			result.AddError(fmt.Sprintf("output %d: expected %d, bin is empty", sink, want))
		case uint64(got) != want:
			result.AddError(fmt.Sprintf("output %d: expected %d, got %d", sink, want, got))
		}
	}

	unit, observed := res.Observed()
	switch {
	case e.Observed != nil && !observed:
		result.AddError(fmt.Sprintf("observed: expected bot %d, watched pair never compared", *e.Observed))
	case e.Observed != nil && uint64(unit) != *e.Observed:
		result.AddError(fmt.Sprintf("observed: expected bot %d, got bot %d", *e.Observed, unit))
	case e.Unobserved && observed:
		result.AddError(fmt.Sprintf("observed: expected none, got bot %d", unit))
	}

	if len(e.Product) > 0 {
		ids := make([]ir.SinkID, len(e.Product))
		for i, id := range e.Product {
			ids[i] = ir.SinkID(id)
		}
		product, err := res.Product(ids...)
		switch {
		case err != nil:
			result.AddError(fmt.Sprintf("product: %v", err))
		case product != *e.ProductValue:
			result.AddError(fmt.Sprintf("product of %v: expected %d, got %d", e.Product, *e.ProductValue, product))
		}
	}

	if e.Firings != nil && res.Firings() != *e.Firings {
		result.AddError(fmt.Sprintf("firings: expected %d, got %d", *e.Firings, res.Firings()))
	}
}

// persistAndReplay writes the run to an in-memory run log and replays it.
func persistAndReplay(name string, net *ir.Network, res *engine.Result, firings []engine.Firing, logger *slog.Logger, result *Result) error {
	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := engine.NewFixedGenerator("scenario-" + name)
	record, err := store.NewRecord(ids.Generate(), net, res, firings)
	if err != nil {
		return fmt.Errorf("failed to build run record: %w", err)
	}

	ctx := context.Background()
	if _, err := st.WriteRun(ctx, record); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	result.RunID = record.Run.ID

	report, err := st.ReplayRun(ctx, record.Run.ID, logger)
	if err != nil {
		return fmt.Errorf("failed to replay run: %w", err)
	}
	for _, m := range report.Mismatches {
		result.AddError("replay: " + m)
	}
	return nil
}
