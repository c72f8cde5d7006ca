// Package codegen emits tiled matrix multiplication programs for an EPU
// target.
//
// The generated program follows a fixed handle convention: the activation
// (M×K) is input handle 1, the weight (K×N) is input handle 2, and the
// output (M×N) is output handle 3. Column tiles of the output are split
// into equal contiguous bands, one band per participating core.
package codegen

import (
	"errors"
	"log"

	"github.com/compiledracrys007/ExpProcessor/isa"
	"github.com/compiledracrys007/ExpProcessor/target"
)

const (
	ActivationHandle = 1 // Input handle of the M×K activation.
	WeightHandle     = 2 // Input handle of the K×N weight.
	OutputHandle     = 3 // Output handle of the M×N result.

	ELEMENT_BYTES = 4 // float32
)

// Plan is a tiling decision for one matmul request.
type Plan struct {
	M, K, N             int // Problem size.
	TileM, TileK, TileN int // Native matmul unit tile.

	RowTiles        int // M / TileM
	KTiles          int // K / TileK
	ColTiles        int // N / TileN
	ColTilesPerCore int // Column tiles in each core's band.
	ActiveCores     int // Cores that own a band.
	MMUnits         int // Matmul units per core.

	ActivationOffset int // Local byte offset of the activation tile.
	WeightOffset     int // Local byte offset of the weight band.
	OutputOffset     int // Local byte offset of the output band.
	Footprint        int // Local bytes used per core.
}

// Generator plans and emits matmul programs for a target.
type Generator struct {
	Verbose bool           // If set, logs the tiling decision.
	Target  *target.Target // Target to generate for.
}

// Plan computes the tiling for an M×K by K×N multiply.
func (gen *Generator) Plan(m, k, n int) (plan *Plan, err error) {
	defer func() {
		if err != nil {
			plan = nil
			var oom *ErrOutOfLocalMemory
			if !errors.As(err, &oom) {
				err = &ErrShape{M: m, K: k, N: n, Err: err}
			}
		}
	}()

	if m <= 0 || k <= 0 || n <= 0 {
		err = ErrInvalidDimension
		return
	}

	t := gen.Target
	if t == nil {
		err = ErrTargetInvalid
		return
	}
	err = t.Validate()
	if err != nil {
		err = errors.Join(ErrTargetInvalid, err)
		return
	}

	tileM, tileK, tileN := t.MMUnitTiles()
	plan = &Plan{
		M: m, K: k, N: n,
		TileM:   int(tileM),
		TileK:   int(tileK),
		TileN:   int(tileN),
		MMUnits: t.MMUnitsPerCore(),
	}

	if m%plan.TileM != 0 || k%plan.TileK != 0 || n%plan.TileN != 0 {
		err = ErrUnsupportedShape
		return
	}

	plan.RowTiles = m / plan.TileM
	plan.KTiles = k / plan.TileK
	plan.ColTiles = n / plan.TileN

	cores := t.NumberOfCores()
	if plan.ColTiles < cores {
		plan.ColTilesPerCore = 1
		plan.ActiveCores = plan.ColTiles
	} else if plan.ColTiles%cores == 0 {
		plan.ColTilesPerCore = plan.ColTiles / cores
		plan.ActiveCores = cores
	} else {
		err = ErrUnsupportedShape
		return
	}

	activationBytes := plan.TileM * plan.TileK * ELEMENT_BYTES
	weightBytes := plan.ColTilesPerCore * plan.TileK * plan.TileN * ELEMENT_BYTES
	outputBytes := plan.ColTilesPerCore * plan.TileM * plan.TileN * ELEMENT_BYTES

	plan.ActivationOffset = 0
	plan.WeightOffset = plan.ActivationOffset + activationBytes
	plan.OutputOffset = plan.WeightOffset + weightBytes
	plan.Footprint = plan.OutputOffset + outputBytes

	have := int(t.LocalMemoryPerCore())
	if plan.Footprint > have {
		err = &ErrOutOfLocalMemory{M: m, K: k, N: n, Need: plan.Footprint, Have: have}
		return
	}

	if gen.Verbose {
		log.Printf("codegen: %dx%dx%d: %d row x %d k x %d col tiles, %d per core on %d cores, %d/%d local bytes",
			m, k, n, plan.RowTiles, plan.KTiles, plan.ColTiles,
			plan.ColTilesPerCore, plan.ActiveCores, plan.Footprint, have)
	}

	return
}

// Generate returns the assembly text for an M×K by K×N multiply.
func (gen *Generator) Generate(m, k, n int) (text string, err error) {
	plan, err := gen.Plan(m, k, n)
	if err != nil {
		return
	}

	text = plan.Program().String()

	return
}

// GenerateMatmulISA generates a matmul program for the canonical EPU target.
// The argument order is M, N, K.
func GenerateMatmulISA(m, n, k int) (string, error) {
	gen := &Generator{Target: target.NewEPU()}
	return gen.Generate(m, k, n)
}

// pitch returns the explicit row pitch for a view of a buffer 'width'
// elements wide, or zero when the view's end bound already implies it.
func pitch(width int, dim isa.Dim) int {
	if width == dim.End {
		return 0
	}
	return width
}

// span returns the unit stride dim covering 'count' indices of tile 'index'.
func span(index, count int) isa.Dim {
	return isa.Dim{Start: index * count, End: (index + 1) * count, Stride: 1}
}

// band returns the width of each core's column band.
func (plan *Plan) band() int {
	return plan.ColTilesPerCore * plan.TileN
}

// Program builds the instruction sequence for the plan.
//
// For each row tile and each k tile, three parallel blocks load the
// activation tile, load each core's weight band, and run one matmul per
// column tile. The first k tile overwrites the output band, later ones
// accumulate. A final block per row tile stores each band to the output.
func (plan *Plan) Program() (prog *isa.Program) {
	prog = &isa.Program{}

	emit := func(ops ...isa.Op) {
		prog.Ops = append(prog.Ops, ops...)
	}

	parallel := func(body func(core int)) {
		emit(&isa.StartParallel{})
		for core := range plan.ActiveCores {
			body(core)
		}
		emit(&isa.EndParallel{})
	}

	band := plan.band()
	activation := isa.Slice{
		Base: plan.ActivationOffset,
		Dim1: span(0, plan.TileM),
		Dim0: span(0, plan.TileK),
	}

	for mt := range plan.RowTiles {
		rows := span(mt, plan.TileM)

		for kt := range plan.KTiles {
			ks := span(kt, plan.TileK)

			parallel(func(core int) {
				src := isa.Slice{Base: ActivationHandle, Dim1: rows, Dim0: ks}
				src.Pitch = pitch(plan.K, src.Dim0)
				emit(&isa.GlobalToLocal{Core: core, Src: src, Dst: activation})
			})

			parallel(func(core int) {
				src := isa.Slice{Base: WeightHandle, Dim1: ks, Dim0: span(core, band)}
				src.Pitch = pitch(plan.N, src.Dim0)
				dst := isa.Slice{Base: plan.WeightOffset, Dim1: span(0, plan.TileK), Dim0: span(0, band)}
				emit(&isa.GlobalToLocal{Core: core, Src: src, Dst: dst})
			})

			parallel(func(core int) {
				for j := range plan.ColTilesPerCore {
					cols := span(j, plan.TileN)
					b := isa.Slice{Base: plan.WeightOffset, Dim1: span(0, plan.TileK), Dim0: cols, Pitch: pitch(band, cols)}
					c := isa.Slice{Base: plan.OutputOffset, Dim1: span(0, plan.TileM), Dim0: cols, Pitch: pitch(band, cols)}
					emit(&isa.Matmul{
						Core:       core,
						Unit:       j % plan.MMUnits,
						A:          activation,
						B:          b,
						C:          c,
						Accumulate: isa.Bool(kt != 0),
					})
				}
			})
		}

		parallel(func(core int) {
			src := isa.Slice{Base: plan.OutputOffset, Dim1: span(0, plan.TileM), Dim0: span(0, band)}
			dst := isa.Slice{Base: OutputHandle, Dim1: rows, Dim0: span(core, band)}
			dst.Pitch = pitch(plan.N, dst.Dim0)
			emit(&isa.LocalToGlobal{Core: core, Src: src, Dst: dst})
		})
	}

	return
}
