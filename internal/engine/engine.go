package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/chipflow/internal/ir"
)

// hand holds the chips a bot currently carries, kept sorted ascending.
type hand struct {
	chips [2]ir.Value
	n     int
}

func (h *hand) add(v ir.Value) {
	h.chips[h.n] = v
	h.n++
	if h.n == 2 && h.chips[0] > h.chips[1] {
		h.chips[0], h.chips[1] = h.chips[1], h.chips[0]
	}
}

func (h *hand) values() []ir.Value {
	return append([]ir.Value(nil), h.chips[:h.n]...)
}

// Engine is the propagation engine for one run.
//
// INVARIANTS:
//   - a bot in units holds one or two chips; a bot that fires is removed
//   - pending holds at most one rule per bot
//   - observed, once set, is never overwritten
type Engine struct {
	units   map[ir.UnitID]*hand
	pending map[ir.UnitID]ir.Rule
	sinks   map[ir.SinkID]ir.Value

	watch       *ir.WatchPair
	observed    ir.UnitID
	hasObserved bool

	clock    *Clock
	budget   *FiringBudget
	observer Observer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWatch sets the pair of chip values to look for. The order of a and b
// does not matter.
func WithWatch(a, b ir.Value) Option {
	return func(e *Engine) {
		w := ir.NewWatchPair(a, b)
		e.watch = &w
	}
}

// WithWatchPair is WithWatch for an already-built pair. A nil pair clears the watch.
func WithWatchPair(w *ir.WatchPair) Option {
	return func(e *Engine) {
		if w == nil {
			e.watch = nil
			return
		}
		n := ir.NewWatchPair(w.Low, w.High)
		e.watch = &n
	}
}

// WithMaxFirings sets the firing budget for the run.
//
// Default: DefaultMaxFirings. A non-positive value disables the limit.
func WithMaxFirings(n int) Option {
	return func(e *Engine) {
		e.budget = NewFiringBudget(n)
	}
}

// WithObserver registers a callback invoked for every firing.
func WithObserver(fn Observer) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithLogger sets the logger for firing and run diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an empty Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		units:   make(map[ir.UnitID]*hand),
		pending: make(map[ir.UnitID]ir.Rule),
		sinks:   make(map[ir.SinkID]ir.Value),
		clock:   NewClock(),
		budget:  NewFiringBudget(DefaultMaxFirings),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run creates a fresh engine with opts and runs instrs on it.
func Run(instrs []ir.Instruction, opts ...Option) (*Result, error) {
	return New(opts...).Run(instrs)
}

// FindComparer returns the first bot that compares chips a and b while
// running instrs. ok is false if no bot ever does.
func FindComparer(instrs []ir.Instruction, a, b ir.Value) (unit ir.UnitID, ok bool, err error) {
	res, err := Run(instrs, WithWatch(a, b))
	if err != nil {
		return 0, false, err
	}
	unit, ok = res.Observed()
	return unit, ok, nil
}

// Run applies instrs in order, each to quiescence, and returns the final state.
//
// The first malformed-state condition aborts the run; the returned error
// carries the index of the instruction being applied.
func (e *Engine) Run(instrs []ir.Instruction) (*Result, error) {
	e.logger.Debug("run starting",
		"instructions", len(instrs),
		"watch", e.watchAttr(),
	)

	for i, in := range instrs {
		if err := e.Apply(in); err != nil {
			e.logger.Error("run aborted",
				"index", i,
				"instruction", in.String(),
				"firings", e.budget.Current(),
				"error", err,
			)
			return nil, fmt.Errorf("instruction %d (%s): %w", i, in, err)
		}
	}

	res := e.Result()
	e.logger.Debug("run quiescent",
		"firings", res.firings,
		"sinks", len(res.sinks),
		"observed", res.hasObserved,
	)
	return res, nil
}

// Apply applies a single instruction, including every firing it triggers.
func (e *Engine) Apply(in ir.Instruction) error {
	if err := in.Validate(); err != nil {
		return NewInvalidInstructionError(err)
	}
	switch in.Kind {
	case ir.InstrValue:
		return e.Deliver(in.Unit, in.Value)
	case ir.InstrRoute:
		return e.SetRule(in.Unit, in.Rule)
	}
	return nil
}

// Deliver gives chip v to bot unit. If the bot now holds two chips and a rule
// is pending for it, the bot fires before Deliver returns.
func (e *Engine) Deliver(unit ir.UnitID, v ir.Value) error {
	h, ok := e.units[unit]
	if !ok {
		h = &hand{}
		e.units[unit] = h
	}
	if h.n == 2 {
		return NewOverflowError(unit, h.values(), v)
	}
	h.add(v)
	if h.n < 2 {
		return nil
	}

	rule, ok := e.pending[unit]
	if !ok {
		return nil
	}
	delete(e.pending, unit)
	return e.fire(unit, rule)
}

// SetRule gives bot unit its routing rule. If the bot already holds two chips
// it fires immediately with rule; otherwise the rule waits in the pending table.
func (e *Engine) SetRule(unit ir.UnitID, rule ir.Rule) error {
	if h, ok := e.units[unit]; ok && h.n == 2 {
		return e.fire(unit, rule)
	}
	if existing, ok := e.pending[unit]; ok {
		return NewDuplicateRuleError(unit, existing, rule)
	}
	e.pending[unit] = rule
	return nil
}

// fire compares the bot's two chips, records the watched pair, empties the
// bot and routes low then high.
//
// The bot is emptied before routing so that a rule pointing back at the same
// bot delivers into an empty hand.
func (e *Engine) fire(unit ir.UnitID, rule ir.Rule) error {
	if err := e.budget.Check(); err != nil {
		return err
	}

	h := e.units[unit]
	low, high := h.chips[0], h.chips[1]
	delete(e.units, unit)

	if e.watch != nil && !e.hasObserved && e.watch.Matches(low, high) {
		e.observed = unit
		e.hasObserved = true
		e.logger.Debug("watched pair observed",
			"unit", unit,
			"low", low,
			"high", high,
		)
	}

	f := Firing{
		Seq:        e.clock.Next(),
		Unit:       unit,
		Low:        low,
		High:       high,
		LowTarget:  rule.Low,
		HighTarget: rule.High,
	}
	e.logger.Debug("bot fired",
		"seq", f.Seq,
		"unit", unit,
		"low", low,
		"high", high,
		"low_target", rule.Low.String(),
		"high_target", rule.High.String(),
	)
	if e.observer != nil {
		e.observer(f)
	}

	if err := e.route(rule.Low, low); err != nil {
		return err
	}
	return e.route(rule.High, high)
}

// route sends chip v to target t.
func (e *Engine) route(t ir.Target, v ir.Value) error {
	switch t.Kind {
	case ir.TargetUnit:
		return e.Deliver(ir.UnitID(t.ID), v)
	case ir.TargetSink:
		sink := ir.SinkID(t.ID)
		if existing, ok := e.sinks[sink]; ok {
			return NewSinkOverwriteError(sink, existing, v)
		}
		e.sinks[sink] = v
		return nil
	default:
		return &StateError{
			Code:    ErrCodeInvalidInstruction,
			Message: fmt.Sprintf("cannot route chip %d to target kind %d", v, t.Kind),
		}
	}
}

// Result snapshots the engine's current state.
func (e *Engine) Result() *Result {
	sinks := make(map[ir.SinkID]ir.Value, len(e.sinks))
	for k, v := range e.sinks {
		sinks[k] = v
	}
	var watch *ir.WatchPair
	if e.watch != nil {
		w := *e.watch
		watch = &w
	}
	return &Result{
		sinks:       sinks,
		watch:       watch,
		observed:    e.observed,
		hasObserved: e.hasObserved,
		firings:     e.budget.Current(),
	}
}

// Held returns the chips bot unit currently holds, sorted ascending.
// Used by tests to check the firing invariant.
func (e *Engine) Held(unit ir.UnitID) []ir.Value {
	h, ok := e.units[unit]
	if !ok {
		return nil
	}
	return h.values()
}

// Pending returns the rule waiting for bot unit, if any.
func (e *Engine) Pending(unit ir.UnitID) (ir.Rule, bool) {
	r, ok := e.pending[unit]
	return r, ok
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

func (e *Engine) watchAttr() string {
	if e.watch == nil {
		return ""
	}
	return e.watch.String()
}
