package simulator

import (
	"encoding/binary"
	"math"

	"github.com/compiledracrys007/ExpProcessor/isa"
)

const (
	ELEMENT_BYTES = 4 // float32, little endian.
)

// segment is a bounded window of the memory arena.
type segment struct {
	data []byte
}

// sub returns the window starting 'offset' bytes into the segment.
func (seg segment) sub(offset int) (out segment, err error) {
	if offset < 0 || offset > len(seg.data) {
		err = ErrOutOfBounds
		return
	}
	out = segment{data: seg.data[offset:]}
	return
}

// span returns the window of 'length' bytes at 'offset'.
func (seg segment) span(offset, length int) (out segment, err error) {
	if length < 0 || offset < 0 || offset+length > len(seg.data) {
		err = ErrOutOfBounds
		return
	}
	out = segment{data: seg.data[offset : offset+length : offset+length]}
	return
}

// elements returns the number of whole float32 elements in the segment.
func (seg segment) elements() int {
	return len(seg.data) / ELEMENT_BYTES
}

// readFloat returns the float32 at an element index.
func (seg segment) readFloat(index int) float32 {
	off := index * ELEMENT_BYTES
	return math.Float32frombits(binary.LittleEndian.Uint32(seg.data[off : off+ELEMENT_BYTES]))
}

// writeFloat stores a float32 at an element index.
func (seg segment) writeFloat(index int, value float32) {
	off := index * ELEMENT_BYTES
	binary.LittleEndian.PutUint32(seg.data[off:off+ELEMENT_BYTES], math.Float32bits(value))
}

// bounds checks that every element addressed by the slice lies inside the
// segment. Slice addressing is affine in the row and column, so checking
// the four corners covers the whole view once the row, column and pitch
// magnitudes are known to be small enough that no product overflows.
func (seg segment) bounds(s isa.Slice) (err error) {
	rows, cols := s.Shape()
	if rows == 0 || cols == 0 {
		return
	}

	limit := seg.elements()
	inside := func(value int) bool {
		return value >= -limit && value <= limit
	}

	for _, dim := range [2]isa.Dim{s.Dim1, s.Dim0} {
		if !inside(dim.Start) || !inside(dim.End) {
			err = ErrOutOfBounds
			return
		}
	}

	// Row zero never scales by the pitch.
	if (s.Dim1.Start != 0 || rows > 1) && !inside(s.RowPitch()) {
		err = ErrOutOfBounds
		return
	}

	for _, r := range [2]int{0, rows - 1} {
		for _, c := range [2]int{0, cols - 1} {
			index := s.Index(r, c)
			if index < 0 || index >= limit {
				err = ErrOutOfBounds
				return
			}
		}
	}

	return
}

// EncodeFloats packs float32 values in the arena's byte order.
func EncodeFloats(values []float32) (data []byte) {
	data = make([]byte, len(values)*ELEMENT_BYTES)
	seg := segment{data: data}
	for n, value := range values {
		seg.writeFloat(n, value)
	}
	return
}

// DecodeFloats unpacks float32 values in the arena's byte order. Trailing
// bytes that do not form a whole element are ignored.
func DecodeFloats(data []byte) (values []float32) {
	seg := segment{data: data}
	values = make([]float32, seg.elements())
	for n := range values {
		values[n] = seg.readFloat(n)
	}
	return
}
