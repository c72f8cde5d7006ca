package simulator

import (
	"log"

	"github.com/compiledracrys007/ExpProcessor/isa"
)

// execute runs a single instruction.
func (sim *Simulator) execute(op isa.Op) (err error) {
	if op == nil {
		err = &ErrRuntime{Err: ErrUnhandledInstruction}
		return
	}

	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: op.Line(), Op: op.String(), Err: err}
		}
	}()

	if sim.Verbose {
		log.Printf("simulator: %v", op)
	}

	err = op.Validate(sim.target)
	if err != nil {
		return
	}

	switch op := op.(type) {
	case *isa.GlobalToLocal:
		err = sim.globalToLocal(op)
	case *isa.LocalToGlobal:
		err = sim.localToGlobal(op)
	case *isa.Matmul:
		err = sim.matmul(op)
	default:
		err = ErrUnhandledInstruction
	}

	return
}

// localView returns the part of a core's local memory starting at a slice's
// base byte offset.
func (sim *Simulator) localView(core int, s isa.Slice) (seg segment, err error) {
	return sim.local[core].sub(s.Base)
}

func (sim *Simulator) globalToLocal(op *isa.GlobalToLocal) (err error) {
	src, err := sim.region(sim.inputs, op.Src.Base)
	if err != nil {
		return
	}

	dst, err := sim.localView(op.Core, op.Dst)
	if err != nil {
		return
	}

	return copySlice(dst, op.Dst, src, op.Src)
}

func (sim *Simulator) localToGlobal(op *isa.LocalToGlobal) (err error) {
	src, err := sim.localView(op.Core, op.Src)
	if err != nil {
		return
	}

	dst, err := sim.region(sim.outputs, op.Dst.Base)
	if err != nil {
		return
	}

	return copySlice(dst, op.Dst, src, op.Src)
}

// copySlice is an element-wise strided gather/scatter between two views.
// Source and destination may have different row pitches.
func copySlice(dst segment, dstSlice isa.Slice, src segment, srcSlice isa.Slice) (err error) {
	rows, cols := srcSlice.Shape()
	dstRows, dstCols := dstSlice.Shape()
	if rows != dstRows || cols != dstCols {
		err = ErrShapeMismatch
		return
	}

	err = src.bounds(srcSlice)
	if err != nil {
		return
	}

	err = dst.bounds(dstSlice)
	if err != nil {
		return
	}

	for r := range rows {
		for c := range cols {
			dst.writeFloat(dstSlice.Index(r, c), src.readFloat(srcSlice.Index(r, c)))
		}
	}

	return
}

// matmul computes C = A·B (or C += A·B) within one core's local memory.
func (sim *Simulator) matmul(op *isa.Matmul) (err error) {
	views := [3]segment{}
	for n, s := range [3]isa.Slice{op.A, op.B, op.C} {
		views[n], err = sim.localView(op.Core, s)
		if err != nil {
			return
		}
		err = views[n].bounds(s)
		if err != nil {
			return
		}
	}
	a, b, c := views[0], views[1], views[2]

	m, k := op.A.Shape()
	k2, n := op.B.Shape()
	m2, n2 := op.C.Shape()

	if k != k2 {
		err = ErrDimensionMismatch
		return
	}

	if m != m2 || n != n2 {
		err = ErrShapeMismatch
		return
	}

	for i := range m {
		for j := range n {
			var sum float32
			if op.Accumulate {
				sum = c.readFloat(op.C.Index(i, j))
			}
			for p := range k {
				sum += a.readFloat(op.A.Index(i, p)) * b.readFloat(op.B.Index(p, j))
			}
			c.writeFloat(op.C.Index(i, j), sum)
		}
	}

	sim.macs.Add(int64(m) * int64(n) * int64(k))

	return
}
