package isa

import (
	"iter"
	"strings"

	"github.com/compiledracrys007/ExpProcessor/target"
)

// Program is an ordered instruction sequence.
type Program struct {
	Ops []Op
}

// String returns the program as re-assemblable text.
func (prog *Program) String() string {
	var sb strings.Builder
	for _, op := range prog.Ops {
		if op == nil {
			continue
		}
		sb.WriteString(op.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Counts returns the number of instructions of each kind.
func (prog *Program) Counts() (counts [OP_KINDS]int) {
	for _, op := range prog.Ops {
		if op != nil {
			counts[op.Kind()]++
		}
	}
	return
}

// Blocks iterates the program as dispatch groups. Instructions outside a
// parallel block are yielded one at a time with parallel false; the body of
// each block is yielded as one group with parallel true. Iteration stops at
// the first malformed marker, which is stored in failure.
func (prog *Program) Blocks(failure *error) iter.Seq2[bool, []Op] {
	return func(yield func(parallel bool, group []Op) bool) {
		var batch []Op
		collecting := false
		for _, op := range prog.Ops {
			kind := OpKind(-1)
			if op != nil {
				kind = op.Kind()
			}
			switch kind {
			case OP_START_PARALLEL:
				if collecting {
					*failure = &ErrSyntax{LineNo: op.Line(), Line: op.String(), Err: ErrParallelNested}
					return
				}
				collecting = true
				batch = nil
			case OP_END_PARALLEL:
				if !collecting {
					*failure = &ErrSyntax{LineNo: op.Line(), Line: op.String(), Err: ErrParallelUnopened}
					return
				}
				collecting = false
				if !yield(true, batch) {
					return
				}
			default:
				if collecting {
					batch = append(batch, op)
					continue
				}
				if !yield(false, []Op{op}) {
					return
				}
			}
		}
		if collecting {
			*failure = ErrParallelUnclosed
		}
	}
}

// Validate checks every instruction against the target and the balance of
// the parallel block markers.
func (prog *Program) Validate(t *target.Target) (err error) {
	for _, op := range prog.Ops {
		if op == nil {
			err = &ErrSyntax{Err: ErrOpcodeInvalid}
			return
		}
		err = op.Validate(t)
		if err != nil {
			err = &ErrSyntax{LineNo: op.Line(), Line: op.String(), Err: err}
			return
		}
	}

	for range prog.Blocks(&err) {
	}

	return
}
