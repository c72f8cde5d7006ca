package isa

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"log"
	"strconv"
	"strings"
	"unicode"

	"github.com/compiledracrys007/ExpProcessor/target"
)

const (
	ACCUMULATOR_PREFIX = "accumulator="
	PITCH_PREFIX       = "pitch="
)

// Assembler is a single pass, line oriented assembler for the EPU.
type Assembler struct {
	Verbose bool           // If set, verbosely logs the assembler actions.
	Target  *target.Target // If set, core and unit ids are checked against it.
	Ops     []Op           // List of parsed instructions.
}

// ParseFile parses a file from a file system.
func (asm *Assembler) ParseFile(fsys fs.FS, name string) (prog *Program, err error) {
	inf, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrFileNotFound
		}
		err = &fs.PathError{Op: "parse", Path: name, Err: err}
		return
	}
	defer inf.Close()

	return asm.Parse(inf)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Ops = asm.Ops[:0]

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.SplitN(text, ";", 2)
		line = strings.TrimSpace(text_comment[0])
		if len(line) == 0 {
			continue
		}

		var op Op
		op, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		if asm.Target != nil {
			err = op.Validate(asm.Target)
			if err != nil {
				return
			}
		}

		asm.Ops = append(asm.Ops, op)
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	prog = &Program{
		Ops: append([]Op(nil), asm.Ops...),
	}

	return
}

// parseLine parses a single trimmed, non-empty line.
func (asm *Assembler) parseLine(line string, lineno int) (op Op, err error) {
	mnemonic, rest := line, ""
	if n := strings.IndexFunc(line, unicode.IsSpace); n >= 0 {
		mnemonic, rest = line[:n], line[n+1:]
	}

	kind, ok := mnemonics[mnemonic]
	if !ok {
		err = ErrOpcodeInvalid
		return
	}

	var fields []string
	if len(strings.TrimSpace(rest)) != 0 {
		fields, err = splitFields(rest)
		if err != nil {
			return
		}
	}

	switch kind {
	case OP_START_PARALLEL:
		if len(fields) != 0 {
			err = ErrFieldCount
			return
		}
		op = &StartParallel{LineNo: lineno}
	case OP_END_PARALLEL:
		if len(fields) != 0 {
			err = ErrFieldCount
			return
		}
		op = &EndParallel{LineNo: lineno}
	case OP_GLOBAL_TO_LOCAL:
		// <src>, core, <dst>
		if len(fields) != 3 {
			err = ErrFieldCount
			return
		}
		gtl := &GlobalToLocal{LineNo: lineno}
		gtl.Src, err = ParseSlice(fields[0])
		if err != nil {
			return
		}
		gtl.Core, err = parseInt(fields[1])
		if err != nil {
			return
		}
		gtl.Dst, err = ParseSlice(fields[2])
		if err != nil {
			return
		}
		op = gtl
	case OP_LOCAL_TO_GLOBAL:
		// core, <src>, <dst>
		if len(fields) != 3 {
			err = ErrFieldCount
			return
		}
		ltg := &LocalToGlobal{LineNo: lineno}
		ltg.Core, err = parseInt(fields[0])
		if err != nil {
			return
		}
		ltg.Src, err = ParseSlice(fields[1])
		if err != nil {
			return
		}
		ltg.Dst, err = ParseSlice(fields[2])
		if err != nil {
			return
		}
		op = ltg
	case OP_MATMUL:
		// core, unit, <A>, <B>, <C>, accumulator=BOOL
		if len(fields) != 6 {
			err = ErrFieldCount
			return
		}
		mm := &Matmul{LineNo: lineno}
		mm.Core, err = parseInt(fields[0])
		if err != nil {
			return
		}
		mm.Unit, err = parseInt(fields[1])
		if err != nil {
			return
		}
		out := [3](*Slice){&mm.A, &mm.B, &mm.C}
		for n, field := range fields[2:5] {
			*out[n], err = ParseSlice(field)
			if err != nil {
				return
			}
		}
		mm.Accumulate, err = parseAccumulator(fields[5])
		if err != nil {
			return
		}
		op = mm
	}

	return
}

// splitFields splits on top-level commas, ignoring commas inside < >.
func splitFields(text string) (fields []string, err error) {
	depth := 0
	start := 0
	for n, c := range text {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				err = ErrUnbalanced
				return
			}
		case ',':
			if depth == 0 {
				fields = append(fields, strings.TrimSpace(text[start:n]))
				start = n + 1
			}
		}
	}

	if depth != 0 {
		err = ErrUnbalanced
		return
	}

	fields = append(fields, strings.TrimSpace(text[start:]))

	return
}

// parseInt parses a decimal integer field.
func parseInt(word string) (value int, err error) {
	word = strings.TrimSpace(word)
	v64, err := strconv.ParseInt(word, 10, 0)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)

	return
}

// ParseDim parses 'start:end:stride'.
func ParseDim(text string) (dim Dim, err error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 3 {
		err = ErrDimSyntax
		return
	}

	out := [3](*int){&dim.Start, &dim.End, &dim.Stride}
	for n, part := range parts {
		*out[n], err = parseInt(part)
		if err != nil {
			return
		}
	}

	err = dim.Validate()

	return
}

// ParseSlice parses '<base, d1, d0>' or '<base, d1, d0, pitch=N>'.
func ParseSlice(text string) (slice Slice, err error) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '<' || text[len(text)-1] != '>' {
		err = ErrSliceSyntax
		return
	}

	parts := strings.Split(text[1:len(text)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		err = ErrSliceSyntax
		return
	}

	slice.Base, err = parseInt(parts[0])
	if err != nil {
		return
	}

	slice.Dim1, err = ParseDim(parts[1])
	if err != nil {
		return
	}

	slice.Dim0, err = ParseDim(parts[2])
	if err != nil {
		return
	}

	if len(parts) == 4 {
		pitch, ok := strings.CutPrefix(strings.TrimSpace(parts[3]), PITCH_PREFIX)
		if !ok {
			err = ErrSliceSyntax
			return
		}
		slice.Pitch, err = parseInt(pitch)
		if err != nil {
			return
		}
		if slice.Pitch <= 0 {
			err = ErrSlicePitch
			return
		}
	}

	return
}

// parseAccumulator parses 'accumulator=True|False'.
func parseAccumulator(field string) (acc Bool, err error) {
	value, ok := strings.CutPrefix(strings.TrimSpace(field), ACCUMULATOR_PREFIX)
	if !ok {
		err = ErrAccumulatorMissing
		return
	}

	switch strings.TrimSpace(value) {
	case "True", "true":
		acc = true
	case "False", "false":
		acc = false
	default:
		err = ErrAccumulatorInvalid
	}

	return
}
