package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
)

const runColumns = `id, seq, name, network_hash, trace_hash, watch_low, watch_high,
	observed_unit, firings, engine_version, ir_version`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun retrieves a run, including its instruction list, by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`, network
		FROM runs
		WHERE id = ?
	`, id)

	return scanRunWithNetwork(row)
}

// LatestRun retrieves the most recently written run.
// Returns an error wrapping sql.ErrNoRows if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`, network
		FROM runs
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)

	return scanRunWithNetwork(row)
}

// ListRuns returns every run without its instruction list, ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.listRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ListRunsForNetwork returns the runs of one network, ordered by seq ASC, id ASC.
func (s *Store) ListRunsForNetwork(ctx context.Context, networkHash string) ([]Run, error) {
	return s.listRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE network_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, networkHash)
}

func (s *Store) listRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadFirings returns the firings of a run ordered by seq ASC.
// Returns an empty slice (not nil) if the run has none.
func (s *Store) ReadFirings(ctx context.Context, runID string) ([]engine.Firing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, unit, low, high, low_target, high_target
		FROM firings
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []engine.Firing{}
	for rows.Next() {
		var f engine.Firing
		var unit, low, high int64
		var lowTarget, highTarget string
		if err := rows.Scan(&f.Seq, &unit, &low, &high, &lowTarget, &highTarget); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		f.Unit = ir.UnitID(unit)
		f.Low = ir.Value(low)
		f.High = ir.Value(high)
		if f.LowTarget, err = parseTarget(lowTarget); err != nil {
			return nil, err
		}
		if f.HighTarget, err = parseTarget(highTarget); err != nil {
			return nil, err
		}
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

// ReadSinks returns the filled output bins of a run ordered by bin ID.
// Returns an empty slice (not nil) if the run filled none.
func (s *Store) ReadSinks(ctx context.Context, runID string) ([]engine.SinkValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sink, value
		FROM sinks
		WHERE run_id = ?
		ORDER BY sink ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query sinks: %w", err)
	}
	defer rows.Close()

	sinks := []engine.SinkValue{}
	for rows.Next() {
		var sink, value int64
		if err := rows.Scan(&sink, &value); err != nil {
			return nil, fmt.Errorf("scan sink: %w", err)
		}
		sinks = append(sinks, engine.SinkValue{Sink: ir.SinkID(sink), Value: ir.Value(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sinks: %w", err)
	}
	return sinks, nil
}

// scanRun scans the runColumns into a Run.
func scanRun(sc rowScanner, extra ...any) (Run, error) {
	var run Run
	var watchLow, watchHigh, observed sql.NullInt64

	dest := []any{
		&run.ID, &run.Seq, &run.Name, &run.NetworkHash, &run.TraceHash,
		&watchLow, &watchHigh, &observed, &run.Firings, &run.EngineVersion, &run.IRVersion,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run not found: %w", err)
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if watchLow.Valid && watchHigh.Valid {
		run.Watch = &ir.WatchPair{Low: ir.Value(watchLow.Int64), High: ir.Value(watchHigh.Int64)}
	}
	if observed.Valid {
		unit := ir.UnitID(observed.Int64)
		run.Observed = &unit
	}
	return run, nil
}

// scanRunWithNetwork scans runColumns followed by the network column.
func scanRunWithNetwork(sc rowScanner) (Run, error) {
	var network string
	run, err := scanRun(sc, &network)
	if err != nil {
		return Run{}, err
	}
	run.Instructions, err = unmarshalInstructions(network)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}
