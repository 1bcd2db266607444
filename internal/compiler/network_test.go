package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chipflow/internal/ir"
)

const exampleCUE = `
network: {
	name:  "example"
	watch: [5, 2]
	instructions: [
		{value: 5, bot: 2},
		{bot: 2, low: {bot: 1}, high: {bot: 0}},
		{value: 3, bot: 1},
		{bot: 1, low: {output: 1}, high: {bot: 0}},
		{bot: 0, low: {output: 2}, high: {output: 0}},
		{value: 2, bot: 2},
	]
}
`

func compileNetwork(t *testing.T, src string) (*ir.Network, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileNetwork(v.LookupPath(cue.ParsePath("network")))
}

func TestCompileNetworkBasic(t *testing.T) {
	net, err := compileNetwork(t, exampleCUE)
	require.NoError(t, err)

	assert.Equal(t, "example", net.Name)
	require.NotNil(t, net.Watch)
	assert.Equal(t, ir.WatchPair{Low: 2, High: 5}, *net.Watch, "watch is normalized to ascending")
	assert.Equal(t, []ir.Instruction{
		ir.ValueToUnit(2, 5),
		ir.UnitRoutes(2, ir.Unit(1), ir.Unit(0)),
		ir.ValueToUnit(1, 3),
		ir.UnitRoutes(1, ir.Sink(1), ir.Unit(0)),
		ir.UnitRoutes(0, ir.Sink(2), ir.Sink(0)),
		ir.ValueToUnit(2, 2),
	}, net.Instructions)
}

func TestCompileNetworkOptionalFields(t *testing.T) {
	net, err := compileNetwork(t, `network: instructions: [{value: 1, bot: 0}]`)
	require.NoError(t, err)

	assert.Empty(t, net.Name)
	assert.Nil(t, net.Watch)
	assert.Len(t, net.Instructions, 1)
}

func TestCompileNetworkErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing instructions", `network: name: "x"`, "instructions"},
		{"missing bot", `network: instructions: [{value: 1}]`, "instructions[0].bot"},
		{"value and rule", `network: instructions: [{value: 1, bot: 0, low: {bot: 1}, high: {bot: 2}}]`, "instructions[0]"},
		{"low without high", `network: instructions: [{bot: 0, low: {bot: 1}}]`, "instructions[0]"},
		{"negative value", `network: instructions: [{value: -1, bot: 0}]`, "instructions[0].value"},
		{"float value", `network: instructions: [{value: 1.5, bot: 0}]`, "instructions[0].value"},
		{"value above int64", `network: instructions: [{value: 9223372036854775808, bot: 0}]`, "instructions[0].value"},
		{"target above int64", `network: instructions: [{bot: 0, low: {output: 9223372036854775808}, high: {bot: 2}}]`, "instructions[0].low.output"},
		{"watch above int64", `network: {watch: [1, 9223372036854775808], instructions: []}`, "watch[1]"},
		{"target with both kinds", `network: instructions: [{bot: 0, low: {bot: 1, output: 1}, high: {bot: 2}}]`, "instructions[0].low"},
		{"empty target", `network: instructions: [{bot: 0, low: {bot: 1}, high: {}}]`, "instructions[0].high"},
		{"unknown instruction field", `network: instructions: [{value: 1, bot: 0, colour: "red"}]`, "instructions[0].colour"},
		{"unknown network field", `network: {bots: 3, instructions: []}`, "network.bots"},
		{"watch of one", `network: {watch: [1], instructions: []}`, "watch"},
		{"watch of strings", `network: {watch: ["a", "b"], instructions: []}`, "watch[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileNetwork(t, tt.src)
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "expected CompileError, got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileErrorHasPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`network: instructions: [
	{value: 1, bot: 0},
	{value: -4, bot: 0},
]`, cue.Filename("bad.cue"))
	require.NoError(t, v.Err())

	_, err := CompileNetwork(v.LookupPath(cue.ParsePath("network")))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	require.True(t, ce.Pos.IsValid())
	assert.Equal(t, 3, ce.Pos.Line())
	assert.Contains(t, err.Error(), "bad.cue:3:")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.cue")
	require.NoError(t, os.WriteFile(path, []byte(exampleCUE), 0o644))

	net, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "example", net.Name)
	assert.Len(t, net.Instructions, 6)
}

func TestLoadFileDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.cue")
	require.NoError(t, os.WriteFile(path, []byte(`network: instructions: [{value: 1, bot: 0}]`), 0o644))

	net, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", net.Name)
}

func TestLoadBytesSyntaxError(t *testing.T) {
	_, err := LoadBytes([]byte(`network: {`), "broken.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
}

func TestLoadBytesMissingNetwork(t *testing.T) {
	_, err := LoadBytes([]byte(`other: 1`), "x.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "network", ce.Field)
}
