package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chipflow/internal/ir"
	"github.com/roach88/chipflow/internal/testutil"
)

func TestFiringBudget_WithinLimit(t *testing.T) {
	b := NewFiringBudget(10)

	for i := 0; i < 10; i++ {
		assert.NoError(t, b.Check(), "firing %d should be allowed", i+1)
	}

	assert.Equal(t, 10, b.Current())
	assert.Equal(t, 10, b.Max())
}

func TestFiringBudget_ExceedsLimit(t *testing.T) {
	b := NewFiringBudget(5)
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Check())
	}

	err := b.Check()
	require.Error(t, err)

	var se *StepsExceededError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 6, se.Firings)
	assert.Equal(t, 5, se.Limit)
	assert.Contains(t, err.Error(), "QUOTA_EXCEEDED")
}

func TestFiringBudget_Unlimited(t *testing.T) {
	for _, max := range []int{0, -1} {
		b := NewFiringBudget(max)
		for i := 0; i < 1000; i++ {
			require.NoError(t, b.Check())
		}
		assert.Equal(t, 1000, b.Current())
	}
}

func TestIsQuotaError(t *testing.T) {
	err := &StepsExceededError{Firings: 3, Limit: 2}
	assert.True(t, IsQuotaError(err))
	assert.True(t, IsQuotaError(fmt.Errorf("instruction 4: %w", err)))
	assert.False(t, IsQuotaError(errors.New("other")))
	assert.False(t, IsQuotaError(nil))
}

func TestEngine_CycleHitsBudget(t *testing.T) {
	cycle := []ir.Instruction{
		ir.UnitRoutes(0, ir.Unit(1), ir.Unit(1)),
		ir.UnitRoutes(1, ir.Unit(0), ir.Unit(0)),
		ir.ValueToUnit(0, 1),
		ir.ValueToUnit(0, 2),
	}

	// Each bot consumes its rule when it fires, so the cycle stops after two
	// firings unless the rules are re-issued.
	res, err := Run(cycle, WithMaxFirings(50), WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Firings())

	var refill []ir.Instruction
	refill = append(refill, cycle...)
	for i := 0; i < 40; i++ {
		refill = append(refill,
			ir.UnitRoutes(0, ir.Unit(1), ir.Unit(1)),
			ir.UnitRoutes(1, ir.Unit(0), ir.Unit(0)),
		)
	}

	_, err = Run(refill, WithMaxFirings(50), WithLogger(testutil.DiscardLogger()))
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
	assert.Equal(t, ErrCodeQuotaExceeded, StateErrorCodeOf(err))
	assert.False(t, IsStateError(err))
}
