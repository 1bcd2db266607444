package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleInstructions() []Instruction {
	return []Instruction{
		ValueToUnit(2, 5),
		UnitRoutes(2, Unit(1), Unit(0)),
		ValueToUnit(1, 3),
		UnitRoutes(1, Sink(1), Unit(0)),
		UnitRoutes(0, Sink(2), Sink(0)),
		ValueToUnit(2, 2),
	}
}

func TestNetworkHashDeterminism(t *testing.T) {
	h1, err := NetworkHash(exampleInstructions())
	require.NoError(t, err)
	h2, err := NetworkHash(exampleInstructions())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestNetworkHashOrderSensitive(t *testing.T) {
	instrs := exampleInstructions()
	swapped := append([]Instruction(nil), instrs...)
	swapped[0], swapped[2] = swapped[2], swapped[0]

	assert.NotEqual(t, MustNetworkHash(instrs), MustNetworkHash(swapped))
}

func TestNetworkHashDistinguishesTargetKind(t *testing.T) {
	a := []Instruction{UnitRoutes(0, Unit(1), Sink(2))}
	b := []Instruction{UnitRoutes(0, Sink(1), Sink(2))}

	assert.NotEqual(t, MustNetworkHash(a), MustNetworkHash(b))
}

func TestNetworkHashRejectsInvalidTarget(t *testing.T) {
	_, err := NetworkHash([]Instruction{UnitRoutes(0, Target{}, Sink(1))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruction 0")
}

func TestCanonicalInstructionsShape(t *testing.T) {
	arr, err := CanonicalInstructions(exampleInstructions()[:2])
	require.NoError(t, err)

	out, err := MarshalCanonical(arr)
	require.NoError(t, err)
	assert.Equal(t, `[{"bot":2,"value":5},{"bot":2,"high":{"bot":0},"low":{"bot":1}}]`, string(out))
}

func TestTraceHashDomainSeparated(t *testing.T) {
	data := []byte(`[]`)
	assert.NotEqual(t, TraceHash(data), hashWithDomain(DomainNetwork, data))
}
