// Package isa implements the instruction set and assembler for the EPU
// accelerator.
//
// Programs are built from three data instructions and two structural
// markers:
//
//	cp_global_to_local <SLICE>, CORE, <SLICE>
//	cp_local_to_global CORE, <SLICE>, <SLICE>
//	matmul CORE, UNIT, <SLICE>, <SLICE>, <SLICE>, accumulator=True|False
//	start_parallel
//	end_parallel
//
// A slice is a rank-2 strided view '<base, d1, d0>' where each dim is
// 'start:end:stride'. The row pitch of the backing buffer defaults to the
// column dim's end bound; an explicit pitch may follow as 'pitch=N'.
//
// Instructions between start_parallel and end_parallel form a batch with no
// ordering guarantee other than completing before the next instruction.
package isa
