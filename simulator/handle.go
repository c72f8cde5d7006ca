package simulator

import (
	"iter"
	"log"

	"github.com/compiledracrys007/ExpProcessor/internal"
)

// Handle is a registered tensor in global memory.
type Handle struct {
	ID     int    // Handle id used by instructions.
	Output bool   // Set for output handles.
	Offset int    // Global memory byte offset.
	Bytes  int    // Size of the region in bytes.
	Shape  [2]int // Rows, columns.
}

// handleTable maps handle ids to regions.
type handleTable map[int]Handle

// all iterates the table in handle id order.
func (tbl handleTable) all() iter.Seq2[int, Handle] {
	return internal.Sorted(tbl)
}

// Handles iterates all registered handles, inputs first, each in id order.
func (sim *Simulator) Handles() iter.Seq2[int, Handle] {
	return internal.Concat2(sim.inputs.all(), sim.outputs.all())
}

// allocate reserves a global memory region for a handle.
func (sim *Simulator) allocate(tbl handleTable, id int, numBytes int, shape []int, output bool) (handle Handle, err error) {
	defer func() {
		if err != nil {
			err = &ErrHandle{ID: id, Err: err}
		}
	}()

	if len(shape) != 2 || shape[0] < 0 || shape[1] < 0 || numBytes < 0 {
		err = ErrInvalidShape
		return
	}

	if sim.nextFree+numBytes > len(sim.global.data) {
		err = ErrOutOfGlobalMemory
		return
	}

	if _, ok := tbl[id]; ok && sim.Verbose {
		log.Printf("simulator: handle %d re-registered, previous region abandoned", id)
	}

	handle = Handle{
		ID:     id,
		Output: output,
		Offset: sim.nextFree,
		Bytes:  numBytes,
		Shape:  [2]int{shape[0], shape[1]},
	}
	tbl[id] = handle

	sim.nextFree += numBytes

	if sim.Verbose {
		log.Printf("simulator: handle %d (output=%v) shape %v at global 0x%x, %d bytes",
			id, output, handle.Shape, handle.Offset, handle.Bytes)
	}

	return
}

// RegisterInputHandle copies a tensor into global memory under a handle id.
func (sim *Simulator) RegisterInputHandle(id int, data []byte, shape []int) (err error) {
	handle, err := sim.allocate(sim.inputs, id, len(data), shape, false)
	if err != nil {
		return
	}

	copy(sim.global.data[handle.Offset:handle.Offset+handle.Bytes], data)

	return
}

// RegisterInputFloats registers a float32 tensor as an input handle.
func (sim *Simulator) RegisterInputFloats(id int, values []float32, shape []int) error {
	return sim.RegisterInputHandle(id, EncodeFloats(values), shape)
}

// RegisterOutputHandle reserves global memory for an output handle.
func (sim *Simulator) RegisterOutputHandle(id int, numBytes int, shape []int) (err error) {
	_, err = sim.allocate(sim.outputs, id, numBytes, shape, true)
	return
}

// region returns the global memory window of a handle.
func (sim *Simulator) region(tbl handleTable, id int) (seg segment, err error) {
	handle, ok := tbl[id]
	if !ok {
		err = &ErrHandle{ID: id, Err: ErrUnknownHandle}
		return
	}

	return sim.global.span(handle.Offset, handle.Bytes)
}

// retrieve copies len(out) bytes from the start of a handle's region.
func (sim *Simulator) retrieve(tbl handleTable, id int, out []byte) (err error) {
	seg, err := sim.region(tbl, id)
	if err != nil {
		return
	}

	if len(out) > len(seg.data) {
		err = &ErrHandle{ID: id, Err: ErrOutOfBounds}
		return
	}

	copy(out, seg.data)

	return
}

// RetrieveInputData copies len(out) bytes of an input handle.
func (sim *Simulator) RetrieveInputData(id int, out []byte) error {
	return sim.retrieve(sim.inputs, id, out)
}

// RetrieveOutputData copies len(out) bytes of an output handle.
func (sim *Simulator) RetrieveOutputData(id int, out []byte) error {
	return sim.retrieve(sim.outputs, id, out)
}

// RetrieveOutputFloats returns the whole output handle as float32 values.
func (sim *Simulator) RetrieveOutputFloats(id int) (values []float32, err error) {
	seg, err := sim.region(sim.outputs, id)
	if err != nil {
		return
	}

	values = DecodeFloats(seg.data)

	return
}

// RetrieveLocalMemoryData copies len(out) bytes from a core's local memory.
func (sim *Simulator) RetrieveLocalMemoryData(core int, offset int, out []byte) (err error) {
	if core < 0 || core >= len(sim.local) {
		err = ErrCoreInvalid
		return
	}

	seg, err := sim.local[core].span(offset, len(out))
	if err != nil {
		return
	}

	copy(out, seg.data)

	return
}
