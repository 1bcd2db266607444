package engine

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/roach88/chipflow/internal/ir"
)

// SinkValue is one filled output bin.
type SinkValue struct {
	Sink  ir.SinkID `json:"sink"`
	Value ir.Value  `json:"value"`
}

// Result is the final state of a run: output bins, the observed bot, and
// how many firings it took to reach quiescence.
type Result struct {
	sinks       map[ir.SinkID]ir.Value
	watch       *ir.WatchPair
	observed    ir.UnitID
	hasObserved bool
	firings     int
}

// Sink returns the chip in output bin id. ok is false if no chip ever reached it.
func (r *Result) Sink(id ir.SinkID) (ir.Value, bool) {
	v, ok := r.sinks[id]
	return v, ok
}

// Sinks returns every filled output bin ordered by bin ID.
func (r *Result) Sinks() []SinkValue {
	out := make([]SinkValue, 0, len(r.sinks))
	for id, v := range r.sinks {
		out = append(out, SinkValue{Sink: id, Value: v})
	}
	slices.SortFunc(out, func(a, b SinkValue) int {
		switch {
		case a.Sink < b.Sink:
			return -1
		case a.Sink > b.Sink:
			return 1
		}
		return 0
	})
	return out
}

// Watch returns the watched pair the run was configured with, if any.
func (r *Result) Watch() (ir.WatchPair, bool) {
	if r.watch == nil {
		return ir.WatchPair{}, false
	}
	return *r.watch, true
}

// Observed returns the first bot that compared the watched pair.
// ok is false if no pair was watched or no bot ever compared it.
func (r *Result) Observed() (ir.UnitID, bool) {
	return r.observed, r.hasObserved
}

// Firings returns the number of firings in the run.
func (r *Result) Firings() int {
	return r.firings
}

// Product multiplies the chips in the given output bins.
// Returns an error wrapping ErrNotFound if any bin is empty, and an error if
// the product overflows uint64.
func (r *Result) Product(ids ...ir.SinkID) (uint64, error) {
	product := uint64(1)
	for _, id := range ids {
		v, ok := r.sinks[id]
		if !ok {
			return 0, fmt.Errorf("output %d: %w", id, ErrNotFound)
		}
		hi, lo := bits.Mul64(product, uint64(v))
		if hi != 0 {
			return 0, fmt.Errorf("product of outputs %v overflows uint64", ids)
		}
		product = lo
	}
	return product, nil
}
