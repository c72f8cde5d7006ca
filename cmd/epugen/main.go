package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/compiledracrys007/ExpProcessor/codegen"
	"github.com/compiledracrys007/ExpProcessor/target"
)

func main() {
	var config string
	var verbose bool

	flag.StringVar(&config, "t", "", "Target description (.toml, .yaml or .star)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %v [-t target] [-v] M K N\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}

	var dims [3]int
	for n, arg := range flag.Args() {
		value, err := strconv.Atoi(arg)
		if err != nil {
			log.Fatalf("%v: %v", os.Args[0], err)
		}
		dims[n] = value
	}

	t := target.NewEPU()
	if len(config) != 0 {
		var err error
		t, err = target.Load(config)
		if err != nil {
			log.Fatal(err)
		}
	}

	gen := &codegen.Generator{Target: t, Verbose: verbose}
	text, err := gen.Generate(dims[0], dims[1], dims[2])
	if err != nil {
		log.Fatal(err)
	}

	fmt.Print(text)
}
