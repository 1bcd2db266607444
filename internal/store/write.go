package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteRun inserts a run with its firings and output bins in one transaction
// and returns the run's seq.
//
// Idempotent on run ID: writing a run that already exists changes nothing and
// returns the existing seq.
func (s *Store) WriteRun(ctx context.Context, rec Record) (int64, error) {
	network, err := marshalInstructions(rec.Run.Instructions)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, rec.Run.ID).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("write run: check existing: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	var watchLow, watchHigh, observed sql.NullInt64
	if w := rec.Run.Watch; w != nil {
		watchLow = sql.NullInt64{Int64: int64(w.Low), Valid: true}
		watchHigh = sql.NullInt64{Int64: int64(w.High), Valid: true}
	}
	if u := rec.Run.Observed; u != nil {
		observed = sql.NullInt64{Int64: int64(*u), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, name, network_hash, network, trace_hash, watch_low, watch_high,
		 observed_unit, firings, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Run.ID,
		seq,
		rec.Run.Name,
		rec.Run.NetworkHash,
		network,
		rec.Run.TraceHash,
		watchLow,
		watchHigh,
		observed,
		rec.Run.Firings,
		rec.Run.EngineVersion,
		rec.Run.IRVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	firingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO firings (run_id, seq, unit, low, high, low_target, high_target)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("write run: prepare firings: %w", err)
	}
	defer firingStmt.Close()

	for _, f := range rec.Firings {
		_, err := firingStmt.ExecContext(ctx,
			rec.Run.ID,
			f.Seq,
			int64(f.Unit),
			int64(f.Low),
			int64(f.High),
			f.LowTarget.String(),
			f.HighTarget.String(),
		)
		if err != nil {
			return 0, fmt.Errorf("write run: firing %d: %w", f.Seq, err)
		}
	}

	sinkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sinks (run_id, sink, value) VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("write run: prepare sinks: %w", err)
	}
	defer sinkStmt.Close()

	for _, sv := range rec.Sinks {
		if _, err := sinkStmt.ExecContext(ctx, rec.Run.ID, int64(sv.Sink), int64(sv.Value)); err != nil {
			return 0, fmt.Errorf("write run: output %d: %w", sv.Sink, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}
