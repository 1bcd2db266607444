package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_SingleLevel(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/single_level.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 3, result.Firings)
	require.NotNil(t, result.Observed)
	assert.EqualValues(t, 2, *result.Observed)
	assert.Equal(t, "scenario-single_level", result.RunID)
	assert.Empty(t, result.ErrorCode)
}

func TestRun_ReportsMismatches(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_expectations
description: Every expectation is wrong.
network: |
  bot 0 gives low to output 0 and high to output 1
  value 1 goes to bot 0
  value 2 goes to bot 0
watch: [1, 2]
expect:
  sinks: {0: 2, 5: 1}
  observed: 9
  product: [0, 1]
  product_value: 7
  firings: 4
`)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "output 0: expected 2, got 1")
	assert.Contains(t, joined, "output 5: expected 1, bin is empty")
	assert.Contains(t, joined, "expected bot 9, got bot 0")
	assert.Contains(t, joined, "expected 7, got 2")
	assert.Contains(t, joined, "firings: expected 4, got 1")
	assert.Len(t, result.Errors, 5)
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario := mustParse(t, `
name: overwrite
description: Both chips go to one output bin.
network: |
  bot 0 gives low to output 0 and high to output 0
  value 1 goes to bot 0
  value 2 goes to bot 0
expect: {}
`)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, "SINK_OVERWRITE", result.ErrorCode)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Empty(t, result.RunID, "failed runs are not persisted")
}

func TestRun_WrongErrorCode(t *testing.T) {
	scenario := mustParse(t, `
name: duplicate
description: Two rules for one bot.
network: |
  bot 3 gives low to output 0 and high to output 1
  bot 3 gives low to output 2 and high to output 3
expect:
  error: UNIT_OVERFLOW
`)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, "DUPLICATE_RULE", result.ErrorCode)
	assert.Contains(t, result.Errors[0], "expected UNIT_OVERFLOW, got DUPLICATE_RULE")
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	scenario := mustParse(t, `
name: fine
description: A run that does not fail.
network: |
  value 1 goes to bot 0
expect:
  error: UNIT_OVERFLOW
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "run succeeded")
}

func TestRun_ScenarioWatchOverridesNetwork(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/rule_before_ready.yaml")
	require.NoError(t, err)
	scenario.Watch = []uint64{1, 2}
	scenario.Expect.Observed = nil
	scenario.Expect.Unobserved = true

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Nil(t, result.Observed)
}

func TestRun_MissingNetworkFile(t *testing.T) {
	scenario := &Scenario{Name: "x", Description: "x", File: filepath.Join(t.TempDir(), "gone.txt")}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_LargestValuesPersistAndReplay(t *testing.T) {
	scenario := mustParse(t, `
name: largest_values
description: IDs and chip values at the top of the signed 64-bit range.
network: |
  value 5 goes to bot 9223372036854775807
  value 9223372036854775807 goes to bot 9223372036854775807
  bot 9223372036854775807 gives low to output 0 and high to output 9223372036854775807
watch: [5, 9223372036854775807]
expect:
  sinks: {0: 5, 9223372036854775807: 9223372036854775807}
  observed: 9223372036854775807
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ValueAboveMaxIDRejectedAtLoad(t *testing.T) {
	scenario := mustParse(t, `
name: too_large
description: A chip value past the signed 64-bit range.
network: |
  value 5 goes to bot 0
  value 9223372036854775808 goes to bot 0
  bot 0 gives low to output 0 and high to output 1
`)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(src), "")
	require.NoError(t, err)
	return scenario
}
