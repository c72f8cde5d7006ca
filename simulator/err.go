package simulator

import (
	"errors"

	"github.com/compiledracrys007/ExpProcessor/isa"
	"github.com/compiledracrys007/ExpProcessor/translate"
)

var f = translate.From

var (
	// Handle errors
	ErrOutOfGlobalMemory = errors.New(f("out of global memory"))
	ErrUnknownHandle     = errors.New(f("unknown handle"))
	ErrInvalidShape      = errors.New(f("shape must be rank 2"))

	// Execution errors
	ErrShapeMismatch        = errors.New(f("slice shape mismatch"))
	ErrDimensionMismatch    = errors.New(f("matmul inner dimension mismatch"))
	ErrUnhandledInstruction = errors.New(f("unhandled instruction"))
	ErrOutOfBounds          = errors.New(f("access out of bounds"))
	ErrTargetInvalid        = errors.New(f("target invalid"))

	ErrCoreInvalid   = isa.ErrCoreInvalid
	ErrMMUnitInvalid = isa.ErrUnitInvalid
)

// ErrHandle names the handle an operation failed on.
type ErrHandle struct {
	ID  int
	Err error
}

func (err *ErrHandle) Error() string {
	return f("handle %d: %v", err.ID, err.Err)
}

func (err *ErrHandle) Unwrap() error {
	return err.Err
}

// ErrRuntime indicates the instruction a runtime error occurred at.
type ErrRuntime struct {
	LineNo int
	Op     string
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("'%v' %v", err.Op, err.Err)
	}
	return f("line %d '%v' %v", err.LineNo, err.Op, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
