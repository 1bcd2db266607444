package engine

import (
	"fmt"

	"github.com/roach88/chipflow/internal/ir"
)

// Firing records one bot firing.
//
// Low <= High always holds; LowTarget received Low and HighTarget received High.
type Firing struct {
	Seq        int64     `json:"seq"`
	Unit       ir.UnitID `json:"unit"`
	Low        ir.Value  `json:"low"`
	High       ir.Value  `json:"high"`
	LowTarget  ir.Target `json:"low_target"`
	HighTarget ir.Target `json:"high_target"`
}

// Observer is called once per firing, in firing order, before the chips are routed.
type Observer func(Firing)

// Recorder collects firings for traces and the run log.
//
//	rec := &engine.Recorder{}
//	res, err := engine.Run(instrs, engine.WithObserver(rec.Record))
//	for _, f := range rec.Firings { ... }
type Recorder struct {
	Firings []Firing
}

// Record appends f. Its signature matches Observer.
func (r *Recorder) Record(f Firing) {
	r.Firings = append(r.Firings, f)
}

// Canonical encodes the recorded firings as an IRArray for golden traces and hashing.
func (r *Recorder) Canonical() ir.IRArray {
	arr := make(ir.IRArray, len(r.Firings))
	for i, f := range r.Firings {
		arr[i] = ir.IRObject{
			"seq":         ir.IRInt(f.Seq),
			"unit":        ir.IRInt(f.Unit),
			"low":         ir.IRInt(f.Low),
			"high":        ir.IRInt(f.High),
			"low_target":  ir.IRString(f.LowTarget.String()),
			"high_target": ir.IRString(f.HighTarget.String()),
		}
	}
	return arr
}

// Hash returns the trace hash of the recorded firings.
// Identical runs produce identical hashes.
func (r *Recorder) Hash() (string, error) {
	data, err := ir.MarshalCanonical(r.Canonical())
	if err != nil {
		return "", fmt.Errorf("trace hash: %w", err)
	}
	return ir.TraceHash(data), nil
}
