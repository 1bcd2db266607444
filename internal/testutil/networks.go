// Package testutil provides network fixtures shared by the engine, store,
// harness and CLI tests.
package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/chipflow/internal/ir"
)

// ExampleText is the three-bot network from the puzzle statement, in the
// text instruction format.
//
// Bot 2 compares chips 2 and 5; the run fills outputs 0=5, 1=2 and 2=3 in
// three firings.
const ExampleText = `value 5 goes to bot 2
bot 2 gives low to bot 1 and high to bot 0
value 3 goes to bot 1
bot 1 gives low to output 1 and high to bot 0
bot 0 gives low to output 2 and high to output 0
value 2 goes to bot 2
`

// ExampleInstructions returns ExampleText as instructions.
func ExampleInstructions() []ir.Instruction {
	return []ir.Instruction{
		ir.ValueToUnit(2, 5),
		ir.UnitRoutes(2, ir.Unit(1), ir.Unit(0)),
		ir.ValueToUnit(1, 3),
		ir.UnitRoutes(1, ir.Sink(1), ir.Unit(0)),
		ir.UnitRoutes(0, ir.Sink(2), ir.Sink(0)),
		ir.ValueToUnit(2, 2),
	}
}

// ExampleNetwork returns the example as a named network watching chips 2 and 5.
func ExampleNetwork() *ir.Network {
	w := ir.NewWatchPair(2, 5)
	return &ir.Network{
		Name:         "example",
		Watch:        &w,
		Instructions: ExampleInstructions(),
	}
}

// OverflowInstructions delivers a third chip to bot 1 during bot 0's firing.
func OverflowInstructions() []ir.Instruction {
	return []ir.Instruction{
		ir.ValueToUnit(1, 10),
		ir.ValueToUnit(1, 20),
		ir.UnitRoutes(0, ir.Unit(1), ir.Sink(0)),
		ir.ValueToUnit(0, 1),
		ir.ValueToUnit(0, 2),
	}
}

// Tournament builds a merging network over 2*leaves distinct chips, with
// leaves a power of two. Every bot sends its low chip to the output bin with
// the bot's own ID and its high chip one level up; the root sends its high
// chip to output 1000, which therefore ends up holding 2*leaves.
//
// With routesFirst every rule is pending before the first chip arrives;
// otherwise chips come first and upper levels get their rules last.
func Tournament(leaves int, routesFirst bool) []ir.Instruction {
	var values, routes []ir.Instruction

	total := 2 * leaves
	for k := 0; k < leaves; k++ {
		values = append(values,
			ir.ValueToUnit(ir.UnitID(k), ir.Value((2*k*7)%total+1)),
			ir.ValueToUnit(ir.UnitID(k), ir.Value(((2*k+1)*7)%total+1)),
		)
	}

	start, width := 0, leaves
	for width >= 1 {
		next := start + width
		for i := 0; i < width; i++ {
			b := ir.UnitID(start + i)
			high := ir.Unit(ir.UnitID(next + i/2))
			if width == 1 {
				high = ir.Sink(1000)
			}
			routes = append(routes, ir.UnitRoutes(b, ir.Sink(ir.SinkID(b)), high))
		}
		start, width = next, width/2
	}

	if routesFirst {
		return append(routes, values...)
	}
	for i, j := 0, len(routes)-1; i < j; i, j = i+1, j-1 {
		routes[i], routes[j] = routes[j], routes[i]
	}
	return append(values, routes...)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
