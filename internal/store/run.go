package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
)

// Run is one persisted run of a network.
type Run struct {
	ID          string
	Seq         int64
	Name        string
	NetworkHash string
	TraceHash   string

	// Watch is nil when the run had no watched pair.
	Watch *ir.WatchPair

	// Observed is nil when no bot compared the watched pair.
	Observed *ir.UnitID

	Firings       int
	EngineVersion string
	IRVersion     string

	// Instructions is the network the run executed. Populated by ReadRun.
	Instructions []ir.Instruction
}

// Record is a run together with its firings and filled output bins, as
// written by WriteRun.
type Record struct {
	Run     Run
	Firings []engine.Firing
	Sinks   []engine.SinkValue
}

// NewRecord assembles a Record from a finished run.
// firings must be the full list recorded by an engine.Recorder for res.
// IDs, chip values and the watched pair must be at most ir.MaxID.
func NewRecord(id string, net *ir.Network, res *engine.Result, firings []engine.Firing) (Record, error) {
	for i, in := range net.Instructions {
		if err := in.Validate(); err != nil {
			return Record{}, fmt.Errorf("new record: instruction %d: %w", i, err)
		}
	}
	hash, err := ir.NetworkHash(net.Instructions)
	if err != nil {
		return Record{}, fmt.Errorf("new record: %w", err)
	}
	rec := &engine.Recorder{Firings: firings}
	traceHash, err := rec.Hash()
	if err != nil {
		return Record{}, fmt.Errorf("new record: %w", err)
	}

	run := Run{
		ID:            id,
		Name:          net.Name,
		NetworkHash:   hash,
		TraceHash:     traceHash,
		Firings:       res.Firings(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		Instructions:  net.Instructions,
	}
	if w, ok := res.Watch(); ok {
		if err := w.Validate(); err != nil {
			return Record{}, fmt.Errorf("new record: %w", err)
		}
		run.Watch = &w
	}
	if unit, ok := res.Observed(); ok {
		run.Observed = &unit
	}

	return Record{Run: run, Firings: firings, Sinks: res.Sinks()}, nil
}

// marshalInstructions converts the instruction list to canonical JSON TEXT for storage.
func marshalInstructions(instrs []ir.Instruction) (string, error) {
	arr, err := ir.CanonicalInstructions(instrs)
	if err != nil {
		return "", fmt.Errorf("marshal instructions: %w", err)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal instructions: %w", err)
	}
	return string(data), nil
}

// unmarshalInstructions parses the stored instruction list.
func unmarshalInstructions(data string) ([]ir.Instruction, error) {
	var instrs []ir.Instruction
	if err := json.Unmarshal([]byte(data), &instrs); err != nil {
		return nil, fmt.Errorf("unmarshal instructions: %w", err)
	}
	if instrs == nil {
		instrs = []ir.Instruction{}
	}
	return instrs, nil
}

// parseTarget parses the "bot 3" / "output 0" form written for firing targets.
func parseTarget(s string) (ir.Target, error) {
	var kind string
	var id uint64
	if _, err := fmt.Sscanf(s, "%s %d", &kind, &id); err != nil {
		return ir.Target{}, fmt.Errorf("parse target %q: %w", s, err)
	}
	switch kind {
	case ir.TargetUnit.String():
		return ir.Unit(ir.UnitID(id)), nil
	case ir.TargetSink.String():
		return ir.Sink(ir.SinkID(id)), nil
	}
	return ir.Target{}, fmt.Errorf("parse target %q: unknown kind %q", s, kind)
}
