package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/chipflow/internal/engine"
)

// ReplayReport compares a stored run with a fresh run of the same instructions.
type ReplayReport struct {
	RunID           string   `json:"run_id"`
	Name            string   `json:"name"`
	StoredTraceHash string   `json:"stored_trace_hash"`
	ReplayTraceHash string   `json:"replay_trace_hash"`
	Firings         int      `json:"firings"`
	Deterministic   bool     `json:"deterministic"`
	Mismatches      []string `json:"mismatches,omitempty"`
}

// ReplayRun re-executes a stored run and checks that the new run matches the
// stored one: same trace hash, same firing count, same observed bot and the
// same output bins.
//
// Errors are returned only when the stored run cannot be read. A replay that
// fails or diverges is reported through Deterministic and Mismatches.
func (s *Store) ReplayRun(ctx context.Context, id string, logger *slog.Logger) (ReplayReport, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay run %s: %w", id, err)
	}
	storedSinks, err := s.ReadSinks(ctx, id)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay run %s: %w", id, err)
	}

	report := ReplayReport{
		RunID:           run.ID,
		Name:            run.Name,
		StoredTraceHash: run.TraceHash,
	}

	rec := &engine.Recorder{}
	res, err := engine.Run(run.Instructions,
		engine.WithWatchPair(run.Watch),
		// One spare firing, so a replay that keeps going is caught by the budget.
		engine.WithMaxFirings(run.Firings+1),
		engine.WithObserver(rec.Record),
		engine.WithLogger(logger),
	)
	if err != nil {
		report.Mismatches = append(report.Mismatches, fmt.Sprintf("replay failed: %v", err))
		return report, nil
	}

	report.Firings = res.Firings()
	report.ReplayTraceHash, err = rec.Hash()
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay run %s: %w", id, err)
	}

	if report.ReplayTraceHash != run.TraceHash {
		report.Mismatches = append(report.Mismatches, "trace hash differs")
	}
	if res.Firings() != run.Firings {
		report.Mismatches = append(report.Mismatches,
			fmt.Sprintf("firings: stored %d, replayed %d", run.Firings, res.Firings()))
	}
	unit, ok := res.Observed()
	if ok != (run.Observed != nil) || (ok && unit != *run.Observed) {
		report.Mismatches = append(report.Mismatches, "observed bot differs")
	}
	if !slices.Equal(res.Sinks(), storedSinks) {
		report.Mismatches = append(report.Mismatches, "output bins differ")
	}

	report.Deterministic = len(report.Mismatches) == 0
	return report, nil
}
