package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/compiledracrys007/ExpProcessor/codegen"
	"github.com/compiledracrys007/ExpProcessor/isa"
	"github.com/compiledracrys007/ExpProcessor/simulator"
	"github.com/compiledracrys007/ExpProcessor/target"
)

// randomMatrix returns a rows×cols matrix with entries in [-1, 1).
func randomMatrix(rng *rand.Rand, rows, cols int) (values []float32) {
	values = make([]float32, rows*cols)
	for n := range values {
		values[n] = rng.Float32()*2 - 1
	}
	return
}

func dense(rows, cols int, values []float32) *mat.Dense {
	data := make([]float64, len(values))
	for n, v := range values {
		data[n] = float64(v)
	}
	return mat.NewDense(rows, cols, data)
}

func main() {
	var config string
	var compile string
	var m, k, n int
	var seed uint64
	var sequential bool
	var verbose bool

	flag.StringVar(&config, "t", "", "Target description (.toml, .yaml or .star)")
	flag.StringVar(&compile, "c", "", ".asm file to simulate instead of a generated program, using -m, -k and -n as its shape")
	flag.IntVar(&m, "m", 32, "Activation rows")
	flag.IntVar(&k, "k", 32, "Activation columns and weight rows")
	flag.IntVar(&n, "n", 32, "Weight columns")
	flag.Uint64Var(&seed, "seed", 1, "Random input seed")
	flag.BoolVar(&sequential, "seq", false, "Run parallel blocks sequentially")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	t := target.NewEPU()
	if len(config) != 0 {
		var err error
		t, err = target.Load(config)
		if err != nil {
			log.Fatal(err)
		}
	}

	var prog *isa.Program
	asm := &isa.Assembler{Target: t, Verbose: verbose}
	if len(compile) != 0 {
		var err error
		prog, err = asm.ParseFile(os.DirFS(filepath.Dir(compile)), filepath.Base(compile))
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	} else {
		gen := &codegen.Generator{Target: t, Verbose: verbose}
		plan, err := gen.Plan(m, k, n)
		if err != nil {
			log.Fatal(err)
		}
		prog = plan.Program()
		err = prog.Validate(t)
		if err != nil {
			log.Fatal(err)
		}
	}

	dispatch := simulator.DISPATCH_CONCURRENT
	if sequential {
		dispatch = simulator.DISPATCH_SEQUENTIAL
	}

	sim, err := simulator.New(t, simulator.WithVerbose(verbose), simulator.WithDispatch(dispatch))
	if err != nil {
		log.Fatal(err)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	a := randomMatrix(rng, m, k)
	b := randomMatrix(rng, k, n)

	err = sim.RegisterInputFloats(codegen.ActivationHandle, a, []int{m, k})
	if err == nil {
		err = sim.RegisterInputFloats(codegen.WeightHandle, b, []int{k, n})
	}
	if err == nil {
		err = sim.RegisterOutputHandle(codegen.OutputHandle, m*n*simulator.ELEMENT_BYTES, []int{m, n})
	}
	if err != nil {
		log.Fatal(err)
	}

	err = sim.SimulateInstructions(prog)
	if err != nil {
		log.Fatal(err)
	}

	result, err := sim.RetrieveOutputFloats(codegen.OutputHandle)
	if err != nil {
		log.Fatal(err)
	}

	var want mat.Dense
	want.Mul(dense(m, k, a), dense(k, n, b))

	worst := 0.0
	for i := range m {
		for j := range n {
			worst = max(worst, math.Abs(float64(result[i*n+j])-want.At(i, j)))
		}
	}

	stats := sim.Stats()
	fmt.Printf("%dx%dx%d on %v: %d instructions, %d batches (largest %d), %d MACs\n",
		m, k, n, t.Name, len(prog.Ops), stats.Batches, stats.LargestBatch, stats.MACs)
	for kind, count := range stats.Ops {
		fmt.Printf("  %-20v %d\n", isa.OpKind(kind), count)
	}
	fmt.Printf("max abs error: %g\n", worst)

	if worst > 1e-5*float64(k) {
		log.Fatalf("result differs from reference by %g", worst)
	}
}
