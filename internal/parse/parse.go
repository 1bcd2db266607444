// Package parse reads bot networks written in the line-oriented puzzle format:
//
//	value 5 goes to bot 2
//	bot 2 gives low to bot 1 and high to bot 0
//	bot 1 gives low to output 1 and high to bot 0
//
// Each non-blank line is one instruction. Leading and trailing whitespace is
// ignored; anything else that does not match one of the two forms is an error.
package parse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/chipflow/internal/ir"
)

var (
	valueLine = regexp.MustCompile(`^value (\d+) goes to bot (\d+)$`)
	routeLine = regexp.MustCompile(`^bot (\d+) gives low to (bot|output) (\d+) and high to (bot|output) (\d+)$`)
)

// ParseError reports a line that is not a valid instruction.
type ParseError struct {
	// Line is the 1-based line number.
	Line int

	// Text is the offending line, trimmed.
	Text string

	// Message describes what is wrong.
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Message, e.Text)
}

// Parse reads instructions from r, one per line.
func Parse(r io.Reader) ([]ir.Instruction, error) {
	var instrs []ir.Instruction

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		in, err := parseLine(text)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: text, Message: err.Error()}
		}
		instrs = append(instrs, in)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read instructions: %w", err)
	}
	return instrs, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(s string) ([]ir.Instruction, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile reads and parses the file at path.
func ParseFile(path string) ([]ir.Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	instrs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return instrs, nil
}

// Format renders in as a line Parse accepts.
func Format(in ir.Instruction) string {
	return in.String()
}

// FormatAll renders instrs one per line, with a trailing newline.
func FormatAll(instrs []ir.Instruction) string {
	var b strings.Builder
	for _, in := range instrs {
		b.WriteString(Format(in))
		b.WriteByte('\n')
	}
	return b.String()
}

func parseLine(text string) (ir.Instruction, error) {
	if m := valueLine.FindStringSubmatch(text); m != nil {
		v, err := parseID(m[1])
		if err != nil {
			return ir.Instruction{}, fmt.Errorf("value: %w", err)
		}
		unit, err := parseID(m[2])
		if err != nil {
			return ir.Instruction{}, fmt.Errorf("bot: %w", err)
		}
		return ir.ValueToUnit(ir.UnitID(unit), ir.Value(v)), nil
	}

	if m := routeLine.FindStringSubmatch(text); m != nil {
		unit, err := parseID(m[1])
		if err != nil {
			return ir.Instruction{}, fmt.Errorf("bot: %w", err)
		}
		low, err := parseTarget(m[2], m[3])
		if err != nil {
			return ir.Instruction{}, fmt.Errorf("low target: %w", err)
		}
		high, err := parseTarget(m[4], m[5])
		if err != nil {
			return ir.Instruction{}, fmt.Errorf("high target: %w", err)
		}
		return ir.UnitRoutes(ir.UnitID(unit), low, high), nil
	}

	return ir.Instruction{}, fmt.Errorf("unrecognized instruction")
}

func parseTarget(kind, id string) (ir.Target, error) {
	n, err := parseID(id)
	if err != nil {
		return ir.Target{}, err
	}
	if kind == "bot" {
		return ir.Unit(ir.UnitID(n)), nil
	}
	return ir.Sink(ir.SinkID(n)), nil
}

func parseID(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || ir.CheckID(n) != nil {
		return 0, fmt.Errorf("%s is out of range", s)
	}
	return n, nil
}
