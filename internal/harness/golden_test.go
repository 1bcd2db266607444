package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
)

func TestSnapshot_Canonical(t *testing.T) {
	unit := ir.UnitID(7)
	result := NewResult()
	result.Trace = []engine.Firing{
		{Seq: 1, Unit: 7, Low: 4, High: 9, LowTarget: ir.Sink(0), HighTarget: ir.Sink(1)},
	}
	result.Sinks = []engine.SinkValue{{Sink: 0, Value: 4}, {Sink: 1, Value: 9}}
	result.Firings = 1
	result.Observed = &unit

	data, err := Snapshot("tiny", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"firings":1,"observed":7,"scenario_name":"tiny","sinks":[{"sink":0,"value":4},{"sink":1,"value":9}],`+
			`"trace":[{"high":9,"high_target":"output 1","low":4,"low_target":"output 0","seq":1,"unit":7}]}`,
		string(data))
}

func TestSnapshot_Failure(t *testing.T) {
	result := NewResult()
	result.ErrorCode = "DUPLICATE_RULE"

	data, err := Snapshot("dup", result)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"DUPLICATE_RULE","firings":0,"scenario_name":"dup","sinks":[],"trace":[]}`, string(data))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/single_level.yaml")
	require.NoError(t, err)

	var first []byte
	for i := 0; i < 5; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		data, err := Snapshot(scenario.Name, result)
		require.NoError(t, err)
		if first == nil {
			first = data
			continue
		}
		assert.Equal(t, string(first), string(data))
	}
}
