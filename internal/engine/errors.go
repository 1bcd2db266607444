package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/chipflow/internal/ir"
)

// ErrNotFound reports a query the finished run cannot answer: an output bin
// that was never written, or a watched pair that no bot ever compared.
// It is a legitimate outcome, distinct from a malformed network.
var ErrNotFound = errors.New("not found")

// StateErrorCode categorizes malformed-state errors.
type StateErrorCode string

const (
	// ErrCodeUnitOverflow indicates a chip was delivered to a bot already holding two.
	ErrCodeUnitOverflow StateErrorCode = "UNIT_OVERFLOW"

	// ErrCodeDuplicateRule indicates a second rule arrived while one was still pending.
	ErrCodeDuplicateRule StateErrorCode = "DUPLICATE_RULE"

	// ErrCodeSinkOverwrite indicates a second chip was routed to an output bin.
	ErrCodeSinkOverwrite StateErrorCode = "SINK_OVERWRITE"

	// ErrCodeInvalidInstruction indicates an instruction with an unknown kind or target.
	ErrCodeInvalidInstruction StateErrorCode = "INVALID_INSTRUCTION"
)

// StateError reports an instruction set that violates the network's preconditions.
//
// The run stops at the first StateError; the engine's tables are left as they
// were at the moment of failure and the engine should be discarded.
type StateError struct {
	// Code identifies the error category.
	Code StateErrorCode

	// Message is a human-readable description.
	Message string

	// Target is the bot or output bin the error is about.
	Target ir.Target

	// Held lists the chips the bot held when the error occurred (overflow only).
	Held []ir.Value

	// Incoming is the chip that could not be accepted (overflow and sink overwrite).
	Incoming ir.Value
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Target.Valid() {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStateError reports whether err is a malformed-state error.
// Uses errors.As to handle wrapped errors.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// StateErrorCodeOf returns the code of a wrapped StateError, or "" if err is not one.
func StateErrorCodeOf(err error) StateErrorCode {
	var se *StateError
	if errors.As(err, &se) {
		return se.Code
	}
	if IsQuotaError(err) {
		return ErrCodeQuotaExceeded
	}
	return ""
}

// NewOverflowError creates a StateError for a bot receiving a third chip.
func NewOverflowError(unit ir.UnitID, held []ir.Value, incoming ir.Value) *StateError {
	return &StateError{
		Code:     ErrCodeUnitOverflow,
		Message:  fmt.Sprintf("bot already holds %v, cannot take %d", held, incoming),
		Target:   ir.Unit(unit),
		Held:     held,
		Incoming: incoming,
	}
}

// NewDuplicateRuleError creates a StateError for a second unconsumed rule.
func NewDuplicateRuleError(unit ir.UnitID, pending, incoming ir.Rule) *StateError {
	return &StateError{
		Code: ErrCodeDuplicateRule,
		Message: fmt.Sprintf("rule (low %s, high %s) still pending, got (low %s, high %s)",
			pending.Low, pending.High, incoming.Low, incoming.High),
		Target: ir.Unit(unit),
	}
}

// NewSinkOverwriteError creates a StateError for a second chip reaching an output bin.
func NewSinkOverwriteError(sink ir.SinkID, existing, incoming ir.Value) *StateError {
	return &StateError{
		Code:     ErrCodeSinkOverwrite,
		Message:  fmt.Sprintf("bin already holds %d, cannot take %d", existing, incoming),
		Target:   ir.Sink(sink),
		Incoming: incoming,
	}
}

// NewInvalidInstructionError creates a StateError for an instruction the engine cannot apply.
func NewInvalidInstructionError(cause error) *StateError {
	return &StateError{
		Code:    ErrCodeInvalidInstruction,
		Message: cause.Error(),
	}
}
