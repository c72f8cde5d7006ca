package isa

import (
	"errors"

	"github.com/compiledracrys007/ExpProcessor/translate"
)

var f = translate.From

var (
	// Assembler errors
	ErrParse              = errors.New(f("parse error"))
	ErrFileNotFound       = errors.New(f("file not found"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrFieldCount         = errors.New(f("wrong number of fields"))
	ErrUnbalanced         = errors.New(f("unbalanced < >"))
	ErrSliceSyntax        = errors.New(f("slice syntax"))
	ErrDimSyntax          = errors.New(f("dim syntax"))
	ErrAccumulatorMissing = errors.New(f("accumulator= missing"))
	ErrAccumulatorInvalid = errors.New(f("accumulator invalid"))

	// Operand errors
	ErrDimStride   = errors.New(f("dim stride is zero"))
	ErrDimRange    = errors.New(f("dim stride does not divide range"))
	ErrSlicePitch  = errors.New(f("slice pitch negative"))
	ErrCoreInvalid = errors.New(f("core invalid"))
	ErrUnitInvalid = errors.New(f("matmul unit invalid"))

	// Program structure errors
	ErrParallelNested   = errors.New(f("start_parallel inside parallel block"))
	ErrParallelUnopened = errors.New(f("end_parallel without start_parallel"))
	ErrParallelUnclosed = errors.New(f("start_parallel without end_parallel"))
)

// ErrParseNumber is an unparsable integer field.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

func (err ErrParseNumber) Is(target error) bool {
	return target == ErrParse
}

// ErrSyntax locates an assembler error.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// Is reports every syntax error as a parse error.
func (err *ErrSyntax) Is(target error) bool {
	return target == ErrParse
}
