package isa

import (
	"fmt"
)

// Dim is an affine index range over [Start, End) with step Stride.
type Dim struct {
	Start  int
	End    int
	Stride int
}

// Count returns the number of indices the dim generates.
func (d Dim) Count() int {
	if d.Stride == 0 {
		return 0
	}
	return (d.End - d.Start) / d.Stride
}

// At returns the n'th index of the dim.
func (d Dim) At(n int) int {
	return d.Start + n*d.Stride
}

// Validate checks the stride is non-zero and evenly divides the range.
func (d Dim) Validate() (err error) {
	switch {
	case d.Stride == 0:
		err = ErrDimStride
	case (d.End-d.Start)%d.Stride != 0, d.Count() < 0:
		err = ErrDimRange
	}
	return
}

// String returns the dim as 'start:end:stride'.
func (d Dim) String() string {
	return fmt.Sprintf("%d:%d:%d", d.Start, d.End, d.Stride)
}

// Slice is a rank-2 strided view into a buffer. Base is either a local
// memory byte offset or a global handle id; the instruction using the slice
// decides which.
type Slice struct {
	Base  int // Local byte offset, or global handle id.
	Dim1  Dim // Rows.
	Dim0  Dim // Columns.
	Pitch int // Storage row width in elements. Zero means Dim0.End.
}

// RowPitch returns the number of elements in one row of the backing buffer.
func (s Slice) RowPitch() int {
	if s.Pitch != 0 {
		return s.Pitch
	}
	return s.Dim0.End
}

// Shape returns the (rows, cols) element counts of the view.
func (s Slice) Shape() (rows, cols int) {
	return s.Dim1.Count(), s.Dim0.Count()
}

// Index returns the linear element index of logical cell (r, c) relative to
// the slice base.
func (s Slice) Index(r, c int) int {
	return s.Dim1.At(r)*s.RowPitch() + s.Dim0.At(c)
}

// Validate checks both dims and the pitch.
func (s Slice) Validate() (err error) {
	if s.Pitch < 0 {
		err = ErrSlicePitch
		return
	}

	err = s.Dim1.Validate()
	if err != nil {
		return
	}

	err = s.Dim0.Validate()

	return
}

// String returns the slice in assembler syntax.
func (s Slice) String() string {
	if s.Pitch != 0 {
		return fmt.Sprintf("<%d, %v, %v, pitch=%d>", s.Base, s.Dim1, s.Dim0, s.Pitch)
	}
	return fmt.Sprintf("<%d, %v, %v>", s.Base, s.Dim1, s.Dim0)
}

// Bool is a flag operand.
type Bool bool

// String returns the flag in assembler syntax.
func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}
