package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chipflow/internal/ir"
)

func TestExampleNetwork(t *testing.T) {
	net := ExampleNetwork()
	require.NotNil(t, net.Watch)
	assert.Equal(t, ir.NewWatchPair(5, 2), *net.Watch)

	values, routes := net.Counts()
	assert.Equal(t, 3, values)
	assert.Equal(t, 3, routes)

	lines := make([]string, len(net.Instructions))
	for i, in := range net.Instructions {
		lines[i] = in.String()
	}
	assert.Equal(t, ExampleText, joinLines(lines))
}

func TestTournamentShape(t *testing.T) {
	for _, leaves := range []int{1, 2, 8, 16} {
		instrs := Tournament(leaves, false)

		seen := make(map[ir.Value]bool)
		routes := 0
		for _, in := range instrs {
			require.NoError(t, in.Validate())
			switch in.Kind {
			case ir.InstrValue:
				assert.False(t, seen[in.Value], "chip %d introduced twice", in.Value)
				seen[in.Value] = true
			case ir.InstrRoute:
				routes++
			}
		}
		assert.Len(t, seen, 2*leaves)
		assert.Equal(t, 2*leaves-1, routes)
	}
}

func TestTournamentRoutesFirst(t *testing.T) {
	instrs := Tournament(4, true)
	assert.Equal(t, ir.InstrRoute, instrs[0].Kind)
	assert.Equal(t, ir.InstrValue, instrs[len(instrs)-1].Kind)

	instrs = Tournament(4, false)
	assert.Equal(t, ir.InstrValue, instrs[0].Kind)
	assert.Equal(t, ir.Sink(1000), instrs[len(instrs)-7].Rule.High)
}

func joinLines(lines []string) string {
	s := ""
	for _, l := range lines {
		s += l + "\n"
	}
	return s
}
