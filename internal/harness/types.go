package harness

import (
	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every firing in seq order, up to the failure if the run failed.
	Trace []engine.Firing `json:"trace"`

	// Sinks lists the filled output bins. Empty if the run failed.
	Sinks []engine.SinkValue `json:"sinks"`

	// Observed is the bot that compared the watched pair, if any.
	Observed *ir.UnitID `json:"observed,omitempty"`

	// Firings is the number of completed firings.
	Firings int `json:"firings"`

	// ErrorCode is the StateError code the run failed with, if it failed.
	ErrorCode string `json:"error_code,omitempty"`

	// RunID is the run's ID in the in-memory run log. Empty if the run failed.
	RunID string `json:"run_id,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []engine.Firing{},
		Sinks:  []engine.SinkValue{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
