package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/chipflow/internal/ir"
)

// CompileNetwork parses a CUE value into a Network.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the network struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`network: { instructions: [...] }`)
//	net, err := CompileNetwork(v.LookupPath(cue.ParsePath("network")))
func CompileNetwork(v cue.Value) (*ir.Network, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(v, "network", "name", "watch", "instructions"); err != nil {
		return nil, err
	}

	net := &ir.Network{}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, &CompileError{Field: "name", Message: "name must be a string", Pos: nameVal.Pos()}
		}
		net.Name = name
	}

	if watchVal := v.LookupPath(cue.ParsePath("watch")); watchVal.Exists() {
		w, err := parseWatch(watchVal)
		if err != nil {
			return nil, err
		}
		net.Watch = w
	}

	instrVal := v.LookupPath(cue.ParsePath("instructions"))
	if !instrVal.Exists() {
		return nil, &CompileError{
			Field:   "instructions",
			Message: "instructions are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := instrVal.List()
	if err != nil {
		return nil, &CompileError{Field: "instructions", Message: "instructions must be a list", Pos: instrVal.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		in, err := parseInstruction(iter.Value(), fmt.Sprintf("instructions[%d]", i))
		if err != nil {
			return nil, err
		}
		net.Instructions = append(net.Instructions, in)
	}

	return net, nil
}

// LoadFile compiles the CUE file at path and returns its top-level network.
// A network without a name is named after the file.
func LoadFile(path string) (*ir.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	net, err := LoadBytes(data, path)
	if err != nil {
		return nil, err
	}
	if net.Name == "" {
		net.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return net, nil
}

// LoadBytes compiles CUE source and returns its top-level network.
// filename is used only for error positions.
func LoadBytes(data []byte, filename string) (*ir.Network, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	netVal := v.LookupPath(cue.ParsePath("network"))
	if !netVal.Exists() {
		return nil, &CompileError{
			Field:   "network",
			Message: "network is required",
			Pos:     v.Pos(),
		}
	}
	return CompileNetwork(netVal)
}

func parseWatch(v cue.Value) (*ir.WatchPair, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: "watch", Message: "watch must be a list of two chip values", Pos: v.Pos()}
	}
	var vals []ir.Value
	for i := 0; iter.Next(); i++ {
		n, err := parseUint(iter.Value(), fmt.Sprintf("watch[%d]", i))
		if err != nil {
			return nil, err
		}
		vals = append(vals, ir.Value(n))
	}
	if len(vals) != 2 {
		return nil, &CompileError{
			Field:   "watch",
			Message: fmt.Sprintf("watch must have exactly 2 values, got %d", len(vals)),
			Pos:     v.Pos(),
		}
	}
	w := ir.NewWatchPair(vals[0], vals[1])
	return &w, nil
}

// parseInstruction accepts {value, bot} or {bot, low, high}.
func parseInstruction(v cue.Value, path string) (ir.Instruction, error) {
	if err := checkFields(v, path, "value", "bot", "low", "high"); err != nil {
		return ir.Instruction{}, err
	}

	botVal := v.LookupPath(cue.ParsePath("bot"))
	if !botVal.Exists() {
		return ir.Instruction{}, &CompileError{Field: path + ".bot", Message: "bot is required", Pos: v.Pos()}
	}
	bot, err := parseUint(botVal, path+".bot")
	if err != nil {
		return ir.Instruction{}, err
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	lowVal := v.LookupPath(cue.ParsePath("low"))
	highVal := v.LookupPath(cue.ParsePath("high"))

	switch {
	case valueVal.Exists() && !lowVal.Exists() && !highVal.Exists():
		n, err := parseUint(valueVal, path+".value")
		if err != nil {
			return ir.Instruction{}, err
		}
		return ir.ValueToUnit(ir.UnitID(bot), ir.Value(n)), nil

	case !valueVal.Exists() && lowVal.Exists() && highVal.Exists():
		low, err := parseTarget(lowVal, path+".low")
		if err != nil {
			return ir.Instruction{}, err
		}
		high, err := parseTarget(highVal, path+".high")
		if err != nil {
			return ir.Instruction{}, err
		}
		return ir.UnitRoutes(ir.UnitID(bot), low, high), nil
	}

	return ir.Instruction{}, &CompileError{
		Field:   path,
		Message: "instruction must have either value or both low and high",
		Pos:     v.Pos(),
	}
}

// parseTarget accepts {bot: N} or {output: N}.
func parseTarget(v cue.Value, path string) (ir.Target, error) {
	if err := checkFields(v, path, "bot", "output"); err != nil {
		return ir.Target{}, err
	}

	botVal := v.LookupPath(cue.ParsePath("bot"))
	outVal := v.LookupPath(cue.ParsePath("output"))

	switch {
	case botVal.Exists() && !outVal.Exists():
		n, err := parseUint(botVal, path+".bot")
		if err != nil {
			return ir.Target{}, err
		}
		return ir.Unit(ir.UnitID(n)), nil
	case outVal.Exists() && !botVal.Exists():
		n, err := parseUint(outVal, path+".output")
		if err != nil {
			return ir.Target{}, err
		}
		return ir.Sink(ir.SinkID(n)), nil
	}

	return ir.Target{}, &CompileError{
		Field:   path,
		Message: "target must have exactly one of bot or output",
		Pos:     v.Pos(),
	}
}

// parseUint reads a concrete non-negative integer.
// Floats are rejected even when integral.
func parseUint(v cue.Value, path string) (uint64, error) {
	if v.IncompleteKind() != cue.IntKind {
		return 0, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("must be an integer, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return 0, &CompileError{Field: path, Message: "must be a concrete integer", Pos: v.Pos()}
	}
	n, err := v.Uint64()
	if err != nil {
		return 0, &CompileError{Field: path, Message: "must be a non-negative integer", Pos: v.Pos()}
	}
	if err := ir.CheckID(n); err != nil {
		return 0, &CompileError{Field: path, Message: err.Error(), Pos: v.Pos()}
	}
	return n, nil
}

// checkFields rejects struct fields outside allowed.
func checkFields(v cue.Value, path string, allowed ...string) error {
	if v.IncompleteKind() != cue.StructKind {
		return &CompileError{Field: path, Message: "must be a struct", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().String()
		known := false
		for _, a := range allowed {
			if label == a {
				known = true
				break
			}
		}
		if !known {
			return &CompileError{
				Field:   path + "." + label,
				Message: fmt.Sprintf("unknown field %q", label),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Only the first error is reported.
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
