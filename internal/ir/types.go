package ir

import (
	"encoding/json"
	"fmt"
	"math"
)

// MaxID bounds unit IDs, sink IDs and chip values. The canonical encoding and
// the run log hold them as signed 64-bit integers.
const MaxID uint64 = math.MaxInt64

// CheckID returns an error if n is above MaxID.
func CheckID(n uint64) error {
	if n > MaxID {
		return fmt.Errorf("%d exceeds the maximum of %d", n, MaxID)
	}
	return nil
}

// UnitID identifies a bot. IDs are sparse; nothing requires them to be contiguous.
type UnitID uint64

// SinkID identifies an output bin. Sinks live in a separate address space from units.
type SinkID uint64

// Value is the face value of a chip.
type Value uint64

// TargetKind tags which address space a Target refers to.
type TargetKind uint8

const (
	// TargetUnit routes a chip to another bot.
	TargetUnit TargetKind = iota + 1
	// TargetSink routes a chip into an output bin.
	TargetSink
)

// String returns the puzzle-text keyword for the kind ("bot" or "output").
func (k TargetKind) String() string {
	switch k {
	case TargetUnit:
		return "bot"
	case TargetSink:
		return "output"
	default:
		return fmt.Sprintf("TargetKind(%d)", uint8(k))
	}
}

// Target is a tagged reference to either a unit or a sink.
// The zero Target is invalid; construct targets with Unit or Sink.
type Target struct {
	Kind TargetKind
	ID   uint64
}

// Unit returns a Target addressing the given bot.
func Unit(id UnitID) Target {
	return Target{Kind: TargetUnit, ID: uint64(id)}
}

// Sink returns a Target addressing the given output bin.
func Sink(id SinkID) Target {
	return Target{Kind: TargetSink, ID: uint64(id)}
}

// IsUnit reports whether the target addresses a bot.
func (t Target) IsUnit() bool { return t.Kind == TargetUnit }

// IsSink reports whether the target addresses an output bin.
func (t Target) IsSink() bool { return t.Kind == TargetSink }

// Valid reports whether the target carries a known kind.
func (t Target) Valid() bool {
	return t.Kind == TargetUnit || t.Kind == TargetSink
}

// String renders the target as it appears in puzzle text, e.g. "bot 3" or "output 0".
func (t Target) String() string {
	return fmt.Sprintf("%s %d", t.Kind, t.ID)
}

// MarshalJSON encodes the target as {"bot": N} or {"output": N}.
func (t Target) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]uint64{t.Kind.String(): t.ID})
}

// UnmarshalJSON decodes {"bot": N} or {"output": N}.
func (t *Target) UnmarshalJSON(data []byte) error {
	var raw map[string]uint64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal target: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("unmarshal target: expected exactly one of bot/output, got %d keys", len(raw))
	}
	if id, ok := raw["bot"]; ok {
		*t = Target{Kind: TargetUnit, ID: id}
		return nil
	}
	if id, ok := raw["output"]; ok {
		*t = Target{Kind: TargetSink, ID: id}
		return nil
	}
	return fmt.Errorf("unmarshal target: expected bot or output key")
}

// Rule says where a unit sends its lower and higher chip once it holds two.
type Rule struct {
	Low  Target `json:"low"`
	High Target `json:"high"`
}

// InstructionKind distinguishes the two instruction forms.
type InstructionKind uint8

const (
	// InstrValue delivers a chip to a unit ("value V goes to bot B").
	InstrValue InstructionKind = iota + 1
	// InstrRoute attaches a routing rule to a unit ("bot B gives low to ... and high to ...").
	InstrRoute
)

// String returns a short name for the kind.
func (k InstructionKind) String() string {
	switch k {
	case InstrValue:
		return "value"
	case InstrRoute:
		return "route"
	default:
		return fmt.Sprintf("InstructionKind(%d)", uint8(k))
	}
}

// Instruction is one entry of an instruction set.
//
// For InstrValue only Unit and Value are meaningful.
// For InstrRoute only Unit and Rule are meaningful.
//
// The JSON form matches the CUE network shape: {"bot": 2, "value": 5} or
// {"bot": 2, "low": {"bot": 1}, "high": {"output": 0}}.
type Instruction struct {
	Kind  InstructionKind
	Unit  UnitID
	Value Value
	Rule  Rule
}

// ValueToUnit builds a value-delivery instruction.
func ValueToUnit(unit UnitID, v Value) Instruction {
	return Instruction{Kind: InstrValue, Unit: unit, Value: v}
}

// UnitRoutes builds a routing instruction.
func UnitRoutes(unit UnitID, low, high Target) Instruction {
	return Instruction{Kind: InstrRoute, Unit: unit, Rule: Rule{Low: low, High: high}}
}

// MarshalJSON encodes the instruction in canonical form.
func (i Instruction) MarshalJSON() ([]byte, error) {
	obj, err := i.canonicalObject()
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(obj)
}

// UnmarshalJSON decodes either instruction shape.
func (i *Instruction) UnmarshalJSON(data []byte) error {
	var raw struct {
		Bot   *uint64 `json:"bot"`
		Value *uint64 `json:"value"`
		Low   *Target `json:"low"`
		High  *Target `json:"high"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal instruction: %w", err)
	}
	if raw.Bot == nil {
		return fmt.Errorf("unmarshal instruction: bot is required")
	}
	switch {
	case raw.Value != nil && raw.Low == nil && raw.High == nil:
		*i = ValueToUnit(UnitID(*raw.Bot), Value(*raw.Value))
	case raw.Value == nil && raw.Low != nil && raw.High != nil:
		*i = UnitRoutes(UnitID(*raw.Bot), *raw.Low, *raw.High)
	default:
		return fmt.Errorf("unmarshal instruction: expected either value or low/high")
	}
	return nil
}

// Validate checks that the instruction has a known kind, that every ID and
// value is at most MaxID and, for routes, that both targets are well formed.
func (i Instruction) Validate() error {
	if err := CheckID(uint64(i.Unit)); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	switch i.Kind {
	case InstrValue:
		if err := CheckID(uint64(i.Value)); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		return nil
	case InstrRoute:
		if !i.Rule.Low.Valid() {
			return fmt.Errorf("bot %d: invalid low target", i.Unit)
		}
		if !i.Rule.High.Valid() {
			return fmt.Errorf("bot %d: invalid high target", i.Unit)
		}
		if err := CheckID(i.Rule.Low.ID); err != nil {
			return fmt.Errorf("bot %d: low target: %w", i.Unit, err)
		}
		if err := CheckID(i.Rule.High.ID); err != nil {
			return fmt.Errorf("bot %d: high target: %w", i.Unit, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown instruction kind %d", i.Kind)
	}
}

// String renders the instruction in puzzle text form.
func (i Instruction) String() string {
	switch i.Kind {
	case InstrValue:
		return fmt.Sprintf("value %d goes to bot %d", i.Value, i.Unit)
	case InstrRoute:
		return fmt.Sprintf("bot %d gives low to %s and high to %s", i.Unit, i.Rule.Low, i.Rule.High)
	default:
		return i.Kind.String()
	}
}

// WatchPair is the unordered pair of values whose comparison is being looked for.
// It is always stored normalised so that Low <= High.
type WatchPair struct {
	Low  Value `json:"low"`
	High Value `json:"high"`
}

// NewWatchPair normalises a and b into a WatchPair.
func NewWatchPair(a, b Value) WatchPair {
	if a > b {
		a, b = b, a
	}
	return WatchPair{Low: a, High: b}
}

// Matches reports whether the sorted pair (low, high) equals the watched pair.
func (w WatchPair) Matches(low, high Value) bool {
	return w.Low == low && w.High == high
}

// Validate checks that both watched values are at most MaxID.
func (w WatchPair) Validate() error {
	if err := CheckID(uint64(w.Low)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := CheckID(uint64(w.High)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// String renders the pair as "low,high".
func (w WatchPair) String() string {
	return fmt.Sprintf("%d,%d", w.Low, w.High)
}

// Network is a loaded instruction set plus the optional watched pair that
// came with it (CUE network files may declare one).
type Network struct {
	Name         string        `json:"name,omitempty"`
	Watch        *WatchPair    `json:"watch,omitempty"`
	Instructions []Instruction `json:"instructions"`
}

// Counts returns how many value and route instructions the network holds.
func (n *Network) Counts() (values, routes int) {
	for _, in := range n.Instructions {
		switch in.Kind {
		case InstrValue:
			values++
		case InstrRoute:
			routes++
		}
	}
	return values, routes
}
