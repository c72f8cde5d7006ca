package simulator

import (
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/compiledracrys007/ExpProcessor/isa"
)

// dispatch runs a parallel batch to completion. Members on distinct cores
// may run concurrently; members on the same core hold that core's lock.
func (sim *Simulator) dispatch(batch []isa.Op) (err error) {
	if sim.Verbose {
		log.Printf("simulator: batch of %d instructions", len(batch))
	}

	if sim.Dispatch == DISPATCH_SEQUENTIAL || len(batch) < 2 {
		for _, op := range batch {
			err = sim.execute(op)
			if err != nil {
				return
			}
		}
		return
	}

	var group errgroup.Group
	if sim.Workers > 0 {
		group.SetLimit(sim.Workers)
	}

	for _, op := range batch {
		group.Go(func() error {
			if bound, ok := op.(isa.CoreOp); ok {
				core := bound.CoreID()
				if core >= 0 && core < len(sim.locks) {
					sim.locks[core].Lock()
					defer sim.locks[core].Unlock()
				}
			}
			return sim.execute(op)
		})
	}

	return group.Wait()
}
