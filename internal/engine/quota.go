package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxFirings is the default firing budget for one run.
// Well-formed puzzle inputs fire each bot about once; the budget only trips
// on networks whose routing forms a cycle that keeps refilling itself.
const DefaultMaxFirings = 100000

// ErrCodeQuotaExceeded is the code reported for a run that exhausted its firing budget.
const ErrCodeQuotaExceeded StateErrorCode = "QUOTA_EXCEEDED"

// FiringBudget counts firings in a run and enforces a maximum.
//
// A firing consumes two chips and emits two, so a routing cycle such as
// bot 0 -> bot 1 -> bot 0 can keep both bots full forever. Nothing in the
// instruction set bounds that, so the budget does.
type FiringBudget struct {
	max     int
	current int
}

// NewFiringBudget creates a budget allowing max firings.
// A non-positive max disables the limit.
func NewFiringBudget(max int) *FiringBudget {
	return &FiringBudget{max: max}
}

// Check counts one firing and fails once the budget is exceeded.
func (b *FiringBudget) Check() error {
	b.current++
	if b.max > 0 && b.current > b.max {
		return &StepsExceededError{Firings: b.current, Limit: b.max}
	}
	return nil
}

// Current returns the number of firings counted so far.
func (b *FiringBudget) Current() int {
	return b.current
}

// Max returns the configured limit.
func (b *FiringBudget) Max() int {
	return b.max
}

// StepsExceededError is returned when a run fires more times than its budget allows.
type StepsExceededError struct {
	Firings int
	Limit   int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("%s: run exceeded firing budget: %d firings > %d limit",
		ErrCodeQuotaExceeded, e.Firings, e.Limit)
}

// IsQuotaError reports whether err is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
