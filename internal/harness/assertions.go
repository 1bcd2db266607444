package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []engine.Firing // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, f := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] bot %d compares %d,%d: low to %s, high to %s\n",
			f.Seq, f.Unit, f.Low, f.High, f.LowTarget, f.HighTarget)
	}

	return buf.String()
}

// evaluateAssertions runs every assertion and records failures on result.
func evaluateAssertions(result *Result, assertions []Assertion) {
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			result.AddError(err.Error())
		}
	}
}

// assertTraceContains checks that some firing matches every field the
// assertion sets.
func assertTraceContains(trace []engine.Firing, a Assertion) error {
	for _, f := range trace {
		if matchU64(a.Bot, uint64(f.Unit)) && matchU64(a.Low, uint64(f.Low)) && matchU64(a.High, uint64(f.High)) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("firing with %s", describeMatch(a)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first firings of the given bots appear in
// order. Firings don't need to be consecutive.
func assertTraceOrder(trace []engine.Firing, a Assertion) error {
	positions := make(map[ir.UnitID]int)
	for i, f := range trace {
		if _, seen := positions[f.Unit]; !seen {
			positions[f.Unit] = i + 1 // 1-indexed for readability
		}
	}

	for _, bot := range a.Bots {
		if positions[ir.UnitID(bot)] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all bots fire: %v", a.Bots),
				Actual:   fmt.Sprintf("bot %d never fired", bot),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Bots); i++ {
		prev, curr := ir.UnitID(a.Bots[i-1]), ir.UnitID(a.Bots[i])
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("bots fire in order: %v", a.Bots),
				Actual: fmt.Sprintf("bot %d (pos %d) should fire before bot %d (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the bot fires exactly Count times.
func assertTraceCount(trace []engine.Firing, a Assertion) error {
	count := 0
	for _, f := range trace {
		if uint64(f.Unit) == *a.Bot {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d firings of bot %d", a.Count, *a.Bot),
			Actual:   fmt.Sprintf("%d firings", count),
			Trace:    trace,
		}
	}

	return nil
}

func matchU64(want *uint64, got uint64) bool {
	return want == nil || *want == got
}

func describeMatch(a Assertion) string {
	var parts []string
	if a.Bot != nil {
		parts = append(parts, fmt.Sprintf("bot %d", *a.Bot))
	}
	if a.Low != nil {
		parts = append(parts, fmt.Sprintf("low %d", *a.Low))
	}
	if a.High != nil {
		parts = append(parts, fmt.Sprintf("high %d", *a.High))
	}
	return strings.Join(parts, ", ")
}
