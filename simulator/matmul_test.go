package simulator_test

import (
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/compiledracrys007/ExpProcessor/codegen"
	"github.com/compiledracrys007/ExpProcessor/isa"
	"github.com/compiledracrys007/ExpProcessor/simulator"
	"github.com/compiledracrys007/ExpProcessor/target"
)

// epuTarget is the EPU with a smaller global memory, which keeps the arena
// of each test small.
func epuTarget() *target.Target {
	t := target.NewEPU()
	t.GlobalMemory = 16 << 20
	return t
}

// fill builds a row major rows×cols matrix from fn.
func fill(rows, cols int, fn func(i, j int) float32) (values []float32) {
	values = make([]float32, rows*cols)
	for i := range rows {
		for j := range cols {
			values[i*cols+j] = fn(i, j)
		}
	}
	return
}

// reference multiplies in float64.
func reference(m, k, n int, a, b []float32) []float64 {
	widen := func(values []float32) []float64 {
		out := make([]float64, len(values))
		for n, v := range values {
			out[n] = float64(v)
		}
		return out
	}

	var c mat.Dense
	c.Mul(mat.NewDense(m, k, widen(a)), mat.NewDense(k, n, widen(b)))

	return c.RawMatrix().Data
}

// runMatmul generates, assembles and simulates an M×K by K×N multiply.
func runMatmul(m, k, n int, a, b []float32, opts ...simulator.Option) (result []float32, sim *simulator.Simulator) {
	t := epuTarget()

	gen := &codegen.Generator{Target: t}
	text, err := gen.Generate(m, k, n)
	Expect(err).NotTo(HaveOccurred())

	asm := &isa.Assembler{Target: t}
	prog, err := asm.Parse(strings.NewReader(text))
	Expect(err).NotTo(HaveOccurred())

	sim, err = simulator.New(t, opts...)
	Expect(err).NotTo(HaveOccurred())

	Expect(sim.RegisterInputFloats(codegen.ActivationHandle, a, []int{m, k})).To(Succeed())
	Expect(sim.RegisterInputFloats(codegen.WeightHandle, b, []int{k, n})).To(Succeed())
	Expect(sim.RegisterOutputHandle(codegen.OutputHandle, m*n*simulator.ELEMENT_BYTES, []int{m, n})).To(Succeed())

	Expect(sim.SimulateInstructions(prog)).To(Succeed())

	result, err = sim.RetrieveOutputFloats(codegen.OutputHandle)
	Expect(err).NotTo(HaveOccurred())

	return
}

// naive multiplies in float32 with the k loop innermost.
func naive(m, k, n int, a, b []float32) (c []float32) {
	c = make([]float32, m*n)
	for i := range m {
		for j := range n {
			var sum float32
			for p := range k {
				sum += a[i*k+p] * b[p*n+j]
			}
			c[i*n+j] = sum
		}
	}
	return
}

// expectWithin compares element-wise with an absolute tolerance.
func expectWithin(tolerance float64, got []float32, want []float32) {
	Expect(got).To(HaveLen(len(want)))
	for n := range want {
		Expect(float64(got[n])).To(BeNumerically("~", float64(want[n]), tolerance), "element %d", n)
	}
}

// expectClose compares against the float64 reference with a tolerance
// scaled by the inner dimension.
func expectClose(k int, got []float32, want []float64) {
	Expect(got).To(HaveLen(len(want)))
	for n := range want {
		tolerance := 1e-5 * float64(k) * math.Max(1, math.Abs(want[n]))
		Expect(float64(got[n])).To(BeNumerically("~", want[n], tolerance), "element %d", n)
	}
}

var _ = Describe("Generated matmul programs", func() {
	sum := func(i, j int) float32 { return float32(i+j) / 10 }
	diff := func(i, j int) float32 { return float32(i-j) / 10 }

	DescribeTable("match the float32 triple loop within 1e-5",
		func(m, k, n int) {
			a := fill(m, k, sum)
			b := fill(k, n, diff)

			result, _ := runMatmul(m, k, n, a, b)
			expectWithin(1e-5, result, naive(m, k, n, a, b))
		},
		Entry("32x32x32", 32, 32, 32),
		Entry("32x64x32", 32, 64, 32),
		Entry("32x32x128", 32, 32, 128),
	)

	DescribeTable("match the float64 product",
		func(m, k, n int) {
			a := fill(m, k, sum)
			b := fill(k, n, diff)

			result, sim := runMatmul(m, k, n, a, b)
			expectWithin(1e-5, result, naive(m, k, n, a, b))
			expectClose(k, result, reference(m, k, n, a, b))
			Expect(sim.Stats().MACs).To(Equal(int64(m) * int64(k) * int64(n)))
		},
		Entry("single tile", 32, 32, 32),
		Entry("two k tiles", 32, 64, 32),
		Entry("one column tile per core", 32, 32, 128),
		Entry("two column tiles per core", 32, 32, 256),
		Entry("several row tiles", 96, 64, 128),
		Entry("fewer column tiles than cores", 32, 96, 64),
	)

	It("produces identical bytes in both dispatch modes", func() {
		m, k, n := 64, 64, 256
		a := fill(m, k, sum)
		b := fill(k, n, diff)

		concurrent, _ := runMatmul(m, k, n, a, b, simulator.WithDispatch(simulator.DISPATCH_CONCURRENT), simulator.WithWorkers(4))
		sequential, _ := runMatmul(m, k, n, a, b, simulator.WithDispatch(simulator.DISPATCH_SEQUENTIAL))
		Expect(concurrent).To(Equal(sequential))
	})

	It("counts one batch per parallel block", func() {
		_, sim := runMatmul(32, 64, 32, fill(32, 64, sum), fill(64, 32, diff))

		stats := sim.Stats()
		Expect(stats.Batches).To(Equal(7))
		Expect(stats.Ops[isa.OP_START_PARALLEL]).To(Equal(7))
		Expect(stats.Ops[isa.OP_MATMUL]).To(Equal(2))
		Expect(stats.LargestBatch).To(Equal(1))
	})

	It("rejects requests that do not fit in local memory", func() {
		_, err := codegen.GenerateMatmulISA(32, 32*4*64, 32)
		Expect(err).To(MatchError(codegen.ErrLocalMemory))
	})
})

var _ = Describe("Hand written programs", func() {
	var sim *simulator.Simulator

	BeforeEach(func() {
		var err error
		sim, err = simulator.New(epuTarget())
		Expect(err).NotTo(HaveOccurred())
	})

	run := func(text string) error {
		asm := &isa.Assembler{Target: sim.Target()}
		prog, err := asm.Parse(strings.NewReader(text))
		Expect(err).NotTo(HaveOccurred())
		return sim.SimulateInstructions(prog)
	}

	local := func(core, offset, count int) []float32 {
		out := make([]byte, count*simulator.ELEMENT_BYTES)
		Expect(sim.RetrieveLocalMemoryData(core, offset, out)).To(Succeed())
		return simulator.DecodeFloats(out)
	}

	It("copies one tensor into two cores in one block", func() {
		values := fill(4, 4, func(i, j int) float32 { return float32(i*4 + j) })
		Expect(sim.RegisterInputFloats(1, values, []int{4, 4})).To(Succeed())

		Expect(run(`
start_parallel
cp_global_to_local <1, 0:2:1, 0:4:1>, 0, <0, 0:2:1, 0:4:1>   ; top half
cp_global_to_local <1, 2:4:1, 0:4:1>, 1, <128, 0:2:1, 0:4:1> ; bottom half
end_parallel
`)).To(Succeed())

		Expect(local(0, 0, 8)).To(Equal(values[:8]))
		Expect(local(1, 128, 8)).To(Equal(values[8:]))
		Expect(local(1, 0, 8)).To(Equal(make([]float32, 8)))
	})

	It("accumulates into the result", func() {
		a := fill(32, 32, func(i, j int) float32 { return float32((i*7+j)%5) - 2 })
		b := fill(32, 32, func(i, j int) float32 { return float32((i+j*3)%3) - 1 })
		Expect(sim.RegisterInputFloats(1, a, []int{32, 32})).To(Succeed())
		Expect(sim.RegisterInputFloats(2, b, []int{32, 32})).To(Succeed())
		Expect(sim.RegisterOutputHandle(3, 32*32*simulator.ELEMENT_BYTES, []int{32, 32})).To(Succeed())

		Expect(run(`
cp_global_to_local <1, 0:32:1, 0:32:1>, 0, <0, 0:32:1, 0:32:1>
cp_global_to_local <2, 0:32:1, 0:32:1>, 0, <4096, 0:32:1, 0:32:1>
matmul 0, 0, <0, 0:32:1, 0:32:1>, <4096, 0:32:1, 0:32:1>, <8192, 0:32:1, 0:32:1>, accumulator=False
matmul 0, 1, <0, 0:32:1, 0:32:1>, <4096, 0:32:1, 0:32:1>, <8192, 0:32:1, 0:32:1>, accumulator=True
matmul 0, 2, <0, 0:32:1, 0:32:1>, <4096, 0:32:1, 0:32:1>, <8192, 0:32:1, 0:32:1>, accumulator=True
cp_local_to_global 0, <8192, 0:32:1, 0:32:1>, <3, 0:32:1, 0:32:1>
`)).To(Succeed())

		result, err := sim.RetrieveOutputFloats(3)
		Expect(err).NotTo(HaveOccurred())

		// Small integers are exact in float32.
		want := reference(32, 32, 32, a, b)
		for n := range want {
			Expect(result[n]).To(Equal(float32(3 * want[n])))
		}
	})

	It("accumulates k tiles to the same result as one full k matmul", func() {
		a := fill(32, 64, func(i, j int) float32 { return float32(i+j) / 10 })
		b := fill(64, 32, func(i, j int) float32 { return float32(i-j) / 10 })
		Expect(sim.RegisterInputFloats(1, a, []int{32, 64})).To(Succeed())
		Expect(sim.RegisterInputFloats(2, b, []int{64, 32})).To(Succeed())

		// A at 0, B at 8192, tiled C at 16384, full C at 20480.
		Expect(run(`
cp_global_to_local <1, 0:32:1, 0:64:1>, 0, <0, 0:32:1, 0:64:1>
cp_global_to_local <2, 0:64:1, 0:32:1>, 0, <8192, 0:64:1, 0:32:1>
matmul 0, 0, <0, 0:32:1, 0:32:1, pitch=64>, <8192, 0:32:1, 0:32:1>, <16384, 0:32:1, 0:32:1>, accumulator=False
matmul 0, 1, <0, 0:32:1, 32:64:1>, <8192, 32:64:1, 0:32:1>, <16384, 0:32:1, 0:32:1>, accumulator=True
matmul 0, 2, <0, 0:32:1, 0:64:1>, <8192, 0:64:1, 0:32:1>, <20480, 0:32:1, 0:32:1>, accumulator=False
`)).To(Succeed())

		tiled := local(0, 16384, 32*32)
		full := local(0, 20480, 32*32)
		expectWithin(1e-5, tiled, full)
		expectWithin(1e-5, full, naive(32, 64, 32, a, b))
	})

	It("leaves later instructions unexecuted after a failure", func() {
		Expect(sim.RegisterInputFloats(1, []float32{1, 2, 3, 4}, []int{2, 2})).To(Succeed())

		err := run(`
cp_global_to_local <9, 0:2:1, 0:2:1>, 0, <0, 0:2:1, 0:2:1>
cp_global_to_local <1, 0:2:1, 0:2:1>, 0, <0, 0:2:1, 0:2:1>
`)
		Expect(err).To(MatchError(simulator.ErrUnknownHandle))
		Expect(local(0, 0, 4)).To(Equal(make([]float32, 4)))
	})
})
