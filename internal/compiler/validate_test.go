package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chipflow/internal/ir"
)

func TestValidateCleanNetwork(t *testing.T) {
	w := ir.NewWatchPair(2, 5)
	net := &ir.Network{
		Watch: &w,
		Instructions: []ir.Instruction{
			ir.ValueToUnit(2, 5),
			ir.UnitRoutes(2, ir.Unit(1), ir.Unit(0)),
			ir.ValueToUnit(2, 2),
		},
	}

	assert.Empty(t, Validate(net))
}

func TestValidateSameOutput(t *testing.T) {
	net := &ir.Network{Instructions: []ir.Instruction{
		ir.UnitRoutes(0, ir.Sink(3), ir.Sink(3)),
		ir.UnitRoutes(1, ir.Unit(2), ir.Unit(2)),
	}}

	errs := Validate(net)
	require.Len(t, errs, 1, "two chips to the same bot is legal")
	assert.Equal(t, ErrSameOutput, errs[0].Code)
	assert.Equal(t, "instructions[0]", errs[0].Field)
	assert.True(t, HasErrors(errs))
}

func TestValidateInvalidInstruction(t *testing.T) {
	net := &ir.Network{Instructions: []ir.Instruction{
		{Kind: ir.InstrRoute, Unit: 4},
	}}

	errs := Validate(net)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidInstruction, errs[0].Code)
	assert.Equal(t, SeverityError, errs[0].Severity)
}

func TestValidateWarnings(t *testing.T) {
	w := ir.NewWatchPair(1, 99)
	net := &ir.Network{
		Watch: &w,
		Instructions: []ir.Instruction{
			ir.ValueToUnit(0, 1),
			ir.ValueToUnit(3, 1),
		},
	}

	errs := Validate(net)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrDuplicateChip, errs[0].Code)
	assert.Equal(t, ErrWatchUnreachable, errs[1].Code)
	assert.Contains(t, errs[1].Message, "99")
	assert.False(t, HasErrors(errs), "warnings alone do not fail validation")
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "watch", Message: "chip 9 is never introduced", Code: ErrWatchUnreachable}
	assert.Equal(t, "[E104] watch: chip 9 is never introduced", e.Error())
}
