package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chipflow/internal/ir"
)

// Scenario defines a network run and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Network holds inline puzzle text. Exactly one of Network and File is set.
	Network string `yaml:"network,omitempty"`

	// File is a .txt or .cue network file.
	// Relative paths are resolved against the scenario file's directory.
	File string `yaml:"file,omitempty"`

	// Watch is the pair of chip values to look for. Overrides a watch
	// declared in a CUE network file.
	Watch []uint64 `yaml:"watch,omitempty"`

	// MaxFirings overrides the engine's firing budget when positive.
	MaxFirings int `yaml:"max_firings,omitempty"`

	// Expect describes the final state (or failure) of the run.
	Expect Expect `yaml:"expect"`

	// Assertions validate the firing trace.
	// Supported types: trace_contains, trace_order, trace_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect describes the expected outcome of a run. Unset fields are not checked.
type Expect struct {
	// Sinks maps output bin to expected chip. Only listed bins are checked.
	Sinks map[uint64]uint64 `yaml:"sinks,omitempty"`

	// Observed is the bot expected to compare the watched pair.
	Observed *uint64 `yaml:"observed,omitempty"`

	// Unobserved asserts that no bot compared the watched pair.
	Unobserved bool `yaml:"unobserved,omitempty"`

	// Product lists output bins to multiply; ProductValue is the expected result.
	Product      []uint64 `yaml:"product,omitempty"`
	ProductValue *uint64  `yaml:"product_value,omitempty"`

	// Firings is the expected total number of firings.
	Firings *int `yaml:"firings,omitempty"`

	// Error is the StateError code the run must fail with, e.g. UNIT_OVERFLOW.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the firing trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": some firing matches Bot, Low and High (each optional)
	// - "trace_order": the first firings of Bots appear in this order
	// - "trace_count": Bot fires exactly Count times
	Type string `yaml:"type"`

	Bot  *uint64 `yaml:"bot,omitempty"`
	Low  *uint64 `yaml:"low,omitempty"`
	High *uint64 `yaml:"high,omitempty"`

	// Bots is the expected firing order (used by trace_order).
	Bots []uint64 `yaml:"bots,omitempty"`

	// Count is the expected number of firings (used by trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving a relative File against baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.File != "" && !filepath.IsAbs(scenario.File) && baseDir != "" {
		scenario.File = filepath.Join(baseDir, scenario.File)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Network == "" && s.File == "":
		return fmt.Errorf("one of network or file is required")
	case s.Network != "" && s.File != "":
		return fmt.Errorf("network and file are mutually exclusive")
	}

	if s.File != "" {
		if _, err := os.Stat(s.File); os.IsNotExist(err) {
			return fmt.Errorf("network file not found: %s", s.File)
		}
	}

	if len(s.Watch) != 0 && len(s.Watch) != 2 {
		return fmt.Errorf("watch must have exactly 2 values, got %d", len(s.Watch))
	}
	for _, v := range s.Watch {
		if err := ir.CheckID(v); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
	}

	if s.MaxFirings < 0 {
		return fmt.Errorf("max_firings must be non-negative")
	}

	if err := validateExpect(&s.Expect); err != nil {
		return fmt.Errorf("expect: %w", err)
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateExpect(e *Expect) error {
	if e.Observed != nil && e.Unobserved {
		return fmt.Errorf("observed and unobserved are mutually exclusive")
	}
	if (len(e.Product) == 0) != (e.ProductValue == nil) {
		return fmt.Errorf("product and product_value must be given together")
	}
	if e.Firings != nil && *e.Firings < 0 {
		return fmt.Errorf("firings must be non-negative")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Bot == nil && a.Low == nil && a.High == nil {
			return fmt.Errorf("assertions[%d]: one of bot, low or high is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Bots) == 0 {
			return fmt.Errorf("assertions[%d]: bots list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Bot == nil {
			return fmt.Errorf("assertions[%d]: bot is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
