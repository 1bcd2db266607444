// Package harness runs YAML scenarios against the propagation engine.
//
// A scenario names a network (inline puzzle text or a .txt/.cue file), an
// optional watched pair, and the expected outcome: output bins, observed bot,
// firing count, a product query, or the StateError code the run must fail
// with. Trace assertions check which bots fired, with which chips and in what
// order.
//
// Every successful run is written to an in-memory run log and replayed from
// it; a replay that differs from the original run fails the scenario.
//
// RunWithGolden additionally compares the canonical JSON trace with
// testdata/golden/<name>.golden.
package harness
