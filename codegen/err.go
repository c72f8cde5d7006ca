package codegen

import (
	"errors"

	"github.com/compiledracrys007/ExpProcessor/translate"
)

var f = translate.From

var (
	ErrInvalidDimension = errors.New(f("matmul dimensions must be positive"))
	ErrUnsupportedShape = errors.New(f("unsupported matmul shape"))
	ErrLocalMemory      = errors.New(f("out of local memory"))
	ErrTargetInvalid    = errors.New(f("target invalid"))
)

// ErrShape names the dimensions of a rejected request.
type ErrShape struct {
	M, K, N int
	Err     error
}

func (err *ErrShape) Error() string {
	return f("matmul %dx%dx%d: %v", err.M, err.K, err.N, err.Err)
}

func (err *ErrShape) Unwrap() error {
	return err.Err
}

// ErrOutOfLocalMemory is a tiling plan that does not fit in a core.
type ErrOutOfLocalMemory struct {
	M, K, N int
	Need    int // Bytes of local memory the plan needs per core.
	Have    int // Bytes of local memory per core.
}

func (err *ErrOutOfLocalMemory) Error() string {
	return f("matmul %dx%dx%d: out of local memory: need %d bytes, have %d",
		err.M, err.K, err.N, err.Need, err.Have)
}

func (err *ErrOutOfLocalMemory) Is(target error) bool {
	return target == ErrLocalMemory
}
