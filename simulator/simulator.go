// Package simulator executes EPU programs against a modeled memory
// hierarchy.
//
// All memory lives in one byte arena: the global segment first, then one
// local segment per core. Tensors enter and leave global memory through
// integer handles; instructions name input and output handles as the base of
// their global slices and raw byte offsets as the base of their local ones.
package simulator

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/compiledracrys007/ExpProcessor/isa"
	"github.com/compiledracrys007/ExpProcessor/target"
)

// Dispatch selects how parallel blocks are executed.
type Dispatch int

const (
	DISPATCH_CONCURRENT = Dispatch(0) // One worker per instruction, serialized per core.
	DISPATCH_SEQUENTIAL = Dispatch(1) // Block members run in program order.
)

// Stats counts the work done since construction.
type Stats struct {
	Ops          [isa.OP_KINDS]int // Instructions executed, by kind.
	Batches      int               // Parallel blocks dispatched.
	LargestBatch int               // Most instructions in one block.
	MACs         int64             // Multiply-accumulates performed.
}

// Simulator is the execution engine for one target. It exclusively owns its
// memory arena.
type Simulator struct {
	Verbose  bool     // If set, enables verbose logging.
	Dispatch Dispatch // Parallel block dispatch mode.
	Workers  int      // Concurrent workers per parallel block.

	target *target.Target
	arena  []byte
	global segment
	local  []segment
	locks  []sync.Mutex // One per core.

	inputs   handleTable
	outputs  handleTable
	nextFree int // Bump allocator over the global segment.

	stats Stats
	macs  atomic.Int64
}

// Option configures a Simulator.
type Option func(sim *Simulator)

// WithVerbose enables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(sim *Simulator) {
		sim.Verbose = verbose
	}
}

// WithDispatch selects the parallel block dispatch mode.
func WithDispatch(dispatch Dispatch) Option {
	return func(sim *Simulator) {
		sim.Dispatch = dispatch
	}
}

// WithWorkers limits the number of concurrent workers per parallel block.
func WithWorkers(workers int) Option {
	return func(sim *Simulator) {
		sim.Workers = workers
	}
}

// New creates a simulator with a zeroed arena sized for the target.
func New(t *target.Target, opts ...Option) (sim *Simulator, err error) {
	if t == nil || t.NumberOfCores() == 0 {
		err = ErrTargetInvalid
		return
	}

	globalBytes := int(t.GlobalMemory)
	localBytes := int(t.LocalMemoryPerCore())
	cores := t.NumberOfCores()

	sim = &Simulator{
		Workers: runtime.GOMAXPROCS(0),
		target:  t,
		arena:   make([]byte, globalBytes+cores*localBytes),
		locks:   make([]sync.Mutex, cores),
		inputs:  handleTable{},
		outputs: handleTable{},
	}

	sim.global = segment{data: sim.arena[:globalBytes:globalBytes]}
	sim.local = make([]segment, cores)
	for core := range cores {
		base := globalBytes + core*localBytes
		sim.local[core] = segment{data: sim.arena[base : base+localBytes : base+localBytes]}
	}

	for _, opt := range opts {
		opt(sim)
	}

	return
}

// Target returns the simulated target.
func (sim *Simulator) Target() *target.Target {
	return sim.target
}

// Info describes the simulated device.
func (sim *Simulator) Info() string {
	return sim.target.Info()
}

// LocalBase returns the arena byte offset of a core's local memory.
func (sim *Simulator) LocalBase(core int) (base int, err error) {
	if core < 0 || core >= len(sim.local) {
		err = ErrCoreInvalid
		return
	}

	base = len(sim.global.data) + core*int(sim.target.LocalMemoryPerCore())

	return
}

// Stats returns the work counters.
func (sim *Simulator) Stats() (stats Stats) {
	stats = sim.stats
	stats.MACs = sim.macs.Load()
	return
}

// SimulateOps executes an instruction sequence.
func (sim *Simulator) SimulateOps(ops []isa.Op) error {
	return sim.SimulateInstructions(&isa.Program{Ops: ops})
}

// SimulateInstructions executes a program. Instructions outside parallel
// blocks run in order; each block runs as one batch that completes before
// the next instruction. The first failing instruction aborts the run.
func (sim *Simulator) SimulateInstructions(prog *isa.Program) (err error) {
	if sim.Verbose {
		log.Printf("simulator: starting %d instructions on target %v\n%v",
			len(prog.Ops), sim.target.Name, sim.Info())
	}

	var failure error
	for parallel, group := range prog.Blocks(&failure) {
		for _, op := range group {
			if op != nil {
				sim.stats.Ops[op.Kind()]++
			}
		}

		if parallel {
			sim.stats.Ops[isa.OP_START_PARALLEL]++
			sim.stats.Ops[isa.OP_END_PARALLEL]++
			sim.stats.Batches++
			sim.stats.LargestBatch = max(sim.stats.LargestBatch, len(group))
			err = sim.dispatch(group)
		} else {
			err = sim.execute(group[0])
		}
		if err != nil {
			return
		}
	}

	err = failure

	return
}
