package isa

import (
	"fmt"

	"github.com/compiledracrys007/ExpProcessor/target"
)

// Op is an EPU instruction. The set of implementations is closed.
type Op interface {
	Kind() OpKind   // Instruction class.
	Line() int      // Source line, 0 when built in code.
	String() string // Assembler text.
	Validate(t *target.Target) error
	isOp()
}

// CoreOp is an instruction bound to a single core.
type CoreOp interface {
	Op
	CoreID() int
}

// GlobalToLocal copies a strided region of an input handle into a core's
// local memory.
type GlobalToLocal struct {
	LineNo int
	Core   int
	Src    Slice // Src.Base is an input handle id.
	Dst    Slice // Dst.Base is a local byte offset.
}

// LocalToGlobal copies a strided region of a core's local memory into an
// output handle.
type LocalToGlobal struct {
	LineNo int
	Core   int
	Src    Slice // Src.Base is a local byte offset.
	Dst    Slice // Dst.Base is an output handle id.
}

// Matmul computes C = A·B, or C += A·B when accumulating, with all three
// operands in the core's local memory.
type Matmul struct {
	LineNo     int
	Core       int
	Unit       int
	A          Slice
	B          Slice
	C          Slice
	Accumulate Bool
}

// StartParallel opens a parallel batch.
type StartParallel struct {
	LineNo int
}

// EndParallel closes a parallel batch.
type EndParallel struct {
	LineNo int
}

var (
	_ CoreOp = (*GlobalToLocal)(nil)
	_ CoreOp = (*LocalToGlobal)(nil)
	_ CoreOp = (*Matmul)(nil)
	_ Op     = (*StartParallel)(nil)
	_ Op     = (*EndParallel)(nil)
)

func (op *GlobalToLocal) Kind() OpKind { return OP_GLOBAL_TO_LOCAL }
func (op *LocalToGlobal) Kind() OpKind { return OP_LOCAL_TO_GLOBAL }
func (op *Matmul) Kind() OpKind        { return OP_MATMUL }
func (op *StartParallel) Kind() OpKind { return OP_START_PARALLEL }
func (op *EndParallel) Kind() OpKind   { return OP_END_PARALLEL }

func (op *GlobalToLocal) Line() int { return op.LineNo }
func (op *LocalToGlobal) Line() int { return op.LineNo }
func (op *Matmul) Line() int        { return op.LineNo }
func (op *StartParallel) Line() int { return op.LineNo }
func (op *EndParallel) Line() int   { return op.LineNo }

func (op *GlobalToLocal) CoreID() int { return op.Core }
func (op *LocalToGlobal) CoreID() int { return op.Core }
func (op *Matmul) CoreID() int        { return op.Core }

func (*GlobalToLocal) isOp() {}
func (*LocalToGlobal) isOp() {}
func (*Matmul) isOp()        {}
func (*StartParallel) isOp() {}
func (*EndParallel) isOp()   {}

func (op *GlobalToLocal) String() string {
	return fmt.Sprintf("%v %v, %d, %v", op.Kind(), op.Src, op.Core, op.Dst)
}

func (op *LocalToGlobal) String() string {
	return fmt.Sprintf("%v %d, %v, %v", op.Kind(), op.Core, op.Src, op.Dst)
}

func (op *Matmul) String() string {
	return fmt.Sprintf("%v %d, %d, %v, %v, %v, accumulator=%v",
		op.Kind(), op.Core, op.Unit, op.A, op.B, op.C, op.Accumulate)
}

func (op *StartParallel) String() string { return op.Kind().String() }
func (op *EndParallel) String() string   { return op.Kind().String() }

// validateCore checks a core id against the target, if any.
func validateCore(t *target.Target, core int) (err error) {
	if core < 0 || (t != nil && core >= t.NumberOfCores()) {
		err = ErrCoreInvalid
	}
	return
}

// validateSlices checks every slice operand.
func validateSlices(slices ...Slice) (err error) {
	for _, s := range slices {
		err = s.Validate()
		if err != nil {
			return
		}
	}
	return
}

// Validate checks the operands. A nil target only checks the operand syntax.
func (op *GlobalToLocal) Validate(t *target.Target) (err error) {
	err = validateCore(t, op.Core)
	if err != nil {
		return
	}
	return validateSlices(op.Src, op.Dst)
}

// Validate checks the operands. A nil target only checks the operand syntax.
func (op *LocalToGlobal) Validate(t *target.Target) (err error) {
	err = validateCore(t, op.Core)
	if err != nil {
		return
	}
	return validateSlices(op.Src, op.Dst)
}

// Validate checks the operands. A nil target only checks the operand syntax.
func (op *Matmul) Validate(t *target.Target) (err error) {
	err = validateCore(t, op.Core)
	if err != nil {
		return
	}
	if op.Unit < 0 || (t != nil && op.Unit >= len(t.Cores[op.Core].MatmulUnits)) {
		err = ErrUnitInvalid
		return
	}
	return validateSlices(op.A, op.B, op.C)
}

func (op *StartParallel) Validate(t *target.Target) error { return nil }
func (op *EndParallel) Validate(t *target.Target) error   { return nil }
