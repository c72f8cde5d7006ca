package isa

// OpKind is an instruction class.
type OpKind int

//go:generate go tool stringer -linecomment -type=OpKind
const (
	OP_GLOBAL_TO_LOCAL = OpKind(0) // cp_global_to_local
	OP_LOCAL_TO_GLOBAL = OpKind(1) // cp_local_to_global
	OP_MATMUL          = OpKind(2) // matmul
	OP_START_PARALLEL  = OpKind(3) // start_parallel
	OP_END_PARALLEL    = OpKind(4) // end_parallel
)

// OP_KINDS is the number of instruction classes.
const OP_KINDS = 5

var mnemonics = map[string]OpKind{
	OP_GLOBAL_TO_LOCAL.String(): OP_GLOBAL_TO_LOCAL,
	OP_LOCAL_TO_GLOBAL.String(): OP_LOCAL_TO_GLOBAL,
	OP_MATMUL.String():          OP_MATMUL,
	OP_START_PARALLEL.String():  OP_START_PARALLEL,
	OP_END_PARALLEL.String():    OP_END_PARALLEL,
}

// Marker returns true for the structural parallel block markers.
func (kind OpKind) Marker() bool {
	return kind == OP_START_PARALLEL || kind == OP_END_PARALLEL
}
