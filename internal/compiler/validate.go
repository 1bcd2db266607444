package compiler

import (
	"fmt"

	"github.com/roach88/chipflow/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// ErrInvalidInstruction marks an instruction with an unknown kind or target.
	ErrInvalidInstruction = "E101"

	// ErrSameOutput marks a rule that sends both chips to one output bin.
	// Such a rule always overwrites if it ever fires.
	ErrSameOutput = "E102"

	// ErrDuplicateChip marks a chip value introduced by more than one value instruction.
	ErrDuplicateChip = "E103"

	// ErrWatchUnreachable marks a watched value no instruction ever introduces.
	ErrWatchUnreachable = "E104"
)

// Severity distinguishes problems that will break a run from suspicious input.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError represents a static problem with a network.
type ValidationError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a network without running it.
// Returns all problems found (does not fail-fast).
//
// Most malformed-state conditions depend on firing order and can only be
// found by running the network; Validate reports the ones visible statically.
func Validate(net *ir.Network) []ValidationError {
	var errs []ValidationError

	introduced := make(map[ir.Value]int)
	for i, in := range net.Instructions {
		field := fmt.Sprintf("instructions[%d]", i)

		if err := in.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  err.Error(),
				Code:     ErrInvalidInstruction,
				Severity: SeverityError,
			})
			continue
		}

		switch in.Kind {
		case ir.InstrValue:
			if prev, ok := introduced[in.Value]; ok {
				errs = append(errs, ValidationError{
					Field:    field,
					Message:  fmt.Sprintf("chip %d already introduced by instructions[%d]", in.Value, prev),
					Code:     ErrDuplicateChip,
					Severity: SeverityWarning,
				})
				continue
			}
			introduced[in.Value] = i

		case ir.InstrRoute:
			if in.Rule.Low.IsSink() && in.Rule.Low == in.Rule.High {
				errs = append(errs, ValidationError{
					Field:    field,
					Message:  fmt.Sprintf("both chips go to %s", in.Rule.Low),
					Code:     ErrSameOutput,
					Severity: SeverityError,
				})
			}
		}
	}

	if net.Watch != nil {
		for _, v := range []ir.Value{net.Watch.Low, net.Watch.High} {
			if _, ok := introduced[v]; !ok {
				errs = append(errs, ValidationError{
					Field:    "watch",
					Message:  fmt.Sprintf("chip %d is never introduced", v),
					Code:     ErrWatchUnreachable,
					Severity: SeverityWarning,
				})
			}
		}
	}

	return errs
}

// HasErrors reports whether errs contains anything above warning severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
