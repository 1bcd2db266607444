package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison.
//
// The document holds the scenario name, the firing trace, the filled output
// bins, the firing count, the observed bot (if any) and the error code (if
// the run failed). Keys are sorted per RFC 8785 and there is no trailing newline.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	rec := &engine.Recorder{Firings: result.Trace}

	sinks := make([]any, len(result.Sinks))
	for i, sv := range result.Sinks {
		sinks[i] = map[string]any{
			"sink":  uint64(sv.Sink),
			"value": uint64(sv.Value),
		}
	}

	doc := map[string]any{
		"scenario_name": scenarioName,
		"trace":         rec.Canonical(),
		"sinks":         sinks,
		"firings":       result.Firings,
	}
	if result.Observed != nil {
		doc["observed"] = uint64(*result.Observed)
	}
	if result.ErrorCode != "" {
		doc["error"] = result.ErrorCode
	}
	return ir.MarshalCanonical(doc)
}

// RunWithGolden executes a scenario and compares its snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass; a snapshot mismatch fails t.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
