// Package store provides SQLite-backed durable storage for chipflow runs.
//
// Each completed run is written once, in a single transaction:
//   - runs: one row per run (network hash, watch pair, observed bot, trace hash)
//   - firings: every firing of the run, keyed by (run_id, seq)
//   - sinks: every filled output bin, keyed by (run_id, sink)
//
// The canonical instruction list is stored with the run so it can be
// replayed later and its trace hash compared.
//
// # Ordering
//
// Runs are numbered by a store-wide seq. Every multi-row query orders by
// seq ASC, id ASC COLLATE BINARY (or by sink for output bins), so reads
// are identical across processes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: Firings and sinks must belong to a run
package store
