package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ResolvesFileRelativeToScenario(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/output_product.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "networks", "example.txt"), scenario.File)
	assert.Equal(t, []uint64{0, 1, 2}, scenario.Expect.Product)
	require.NotNil(t, scenario.Expect.ProductValue)
	assert.Equal(t, uint64(30), *scenario.Expect.ProductValue)
	assert.True(t, scenario.Expect.Unobserved)
}

func TestLoadScenario_IntegerKeyedSinks(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/single_level.yaml")
	require.NoError(t, err)

	assert.Equal(t, map[uint64]uint64{0: 5, 1: 2, 2: 3}, scenario.Expect.Sinks)
	assert.Equal(t, []uint64{5, 2}, scenario.Watch)
	require.Len(t, scenario.Assertions, 3)
	assert.Equal(t, AssertTraceOrder, scenario.Assertions[0].Type)
}

func TestLoadScenario_NotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "net.txt"), []byte("value 1 goes to bot 0\n"), 0o644))

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: a\ndescription: b\nnetwork: x\nexpectations: {}\n", "field expectations not found"},
		{"missing name", "description: b\nnetwork: x\n", "name is required"},
		{"missing description", "name: a\nnetwork: x\n", "description is required"},
		{"no network", "name: a\ndescription: b\n", "one of network or file is required"},
		{"both sources", "name: a\ndescription: b\nnetwork: x\nfile: net.txt\n", "mutually exclusive"},
		{"missing file", "name: a\ndescription: b\nfile: nope.txt\n", "network file not found"},
		{"watch of three", "name: a\ndescription: b\nfile: net.txt\nwatch: [1, 2, 3]\n", "exactly 2 values"},
		{"watch above max", "name: a\ndescription: b\nfile: net.txt\nwatch: [1, 9223372036854775808]\n", "exceeds the maximum"},
		{"product without value", "name: a\ndescription: b\nnetwork: x\nexpect:\n  product: [0]\n", "product and product_value"},
		{"observed and unobserved", "name: a\ndescription: b\nnetwork: x\nexpect:\n  observed: 1\n  unobserved: true\n", "mutually exclusive"},
		{"assertion without type", "name: a\ndescription: b\nnetwork: x\nassertions:\n  - bot: 1\n", "type is required"},
		{"unknown assertion", "name: a\ndescription: b\nnetwork: x\nassertions:\n  - type: final_state\n", "unknown assertion type"},
		{"count without bot", "name: a\ndescription: b\nnetwork: x\nassertions:\n  - type: trace_count\n    count: 1\n", "bot is required"},
		{"empty order", "name: a\ndescription: b\nnetwork: x\nassertions:\n  - type: trace_order\n", "bots list is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
