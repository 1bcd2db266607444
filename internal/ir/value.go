package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface over the value types that may appear in
// canonical encodings (hash inputs, golden traces).
// NO floats: every number in chipflow is an integer.
type IRValue interface {
	irValue()
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Unit IDs, sink IDs and chip values are
// encoded as IRInt, which is why they are capped at MaxID.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which orders some keys differently.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// canonicalObject encodes a target as {"bot": N} or {"output": N}.
func (t Target) canonicalObject() (IRObject, error) {
	if !t.Valid() {
		return nil, errInvalidTarget(t)
	}
	return IRObject{t.Kind.String(): IRInt(t.ID)}, nil
}

// canonicalObject encodes an instruction in the same shape CUE networks use.
func (i Instruction) canonicalObject() (IRObject, error) {
	switch i.Kind {
	case InstrValue:
		return IRObject{
			"bot":   IRInt(i.Unit),
			"value": IRInt(i.Value),
		}, nil
	case InstrRoute:
		low, err := i.Rule.Low.canonicalObject()
		if err != nil {
			return nil, err
		}
		high, err := i.Rule.High.canonicalObject()
		if err != nil {
			return nil, err
		}
		return IRObject{
			"bot":  IRInt(i.Unit),
			"low":  low,
			"high": high,
		}, nil
	default:
		return nil, errUnknownKind(i.Kind)
	}
}

func errInvalidTarget(t Target) error {
	return fmt.Errorf("invalid target kind %d (id %d)", t.Kind, t.ID)
}

func errUnknownKind(k InstructionKind) error {
	return fmt.Errorf("unknown instruction kind %d", k)
}
