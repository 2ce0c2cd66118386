package vm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/chazu/skink/pkg/bytecode"
)

var (
	intInputRe   = regexp.MustCompile(`^-?[0-9]+$`)
	floatInputRe = regexp.MustCompile(`^-?[0-9]*\.[0-9]+$`)
)

// handleInput prompts with the variable's name and reads one line from
// the host. Input matching an integer pattern stores an integer, a float
// pattern stores a float, anything else is sanitized, interned, and
// stored as a string. A timeout stores integer 0 with a diagnostic.
func (vm *VM) handleInput(in bytecode.Instruction) {
	name, ok := vm.lookupString(in.Arg1)
	if !ok {
		vm.diagf("invalid variable name index %d in input", in.Arg1)
		vm.halt()
		return
	}

	vm.host.PrintLine(fmt.Sprintf("INPUT %s:", name))

	line, got := vm.host.ReadLine(inputTimeout)
	if !got || line == "" {
		vm.diagf("input timeout - using default value 0")
		vm.vars[name] = bytecode.IntValue(0)
		return
	}

	var value bytecode.Value
	switch {
	case intInputRe.MatchString(line):
		value = bytecode.IntValue(parseInt32(line))
	case floatInputRe.MatchString(line):
		f, _ := strconv.ParseFloat(line, 32)
		value = bytecode.FloatValue(float32(f))
	default:
		value = bytecode.StringValue(vm.internString(line))
	}

	vm.vars[name] = value
	log.Infof("input %s -> %s", name, line)
}

// parseInt32 parses a decimal integer, saturating at the 32-bit bounds
// for out-of-range input. The caller has already pattern-matched s, so
// the only possible parse failure is range.
func parseInt32(s string) int32 {
	v, err := strconv.ParseInt(s, 10, 32)
	if err == nil {
		return int32(v)
	}
	if s[0] == '-' {
		return math.MinInt32
	}
	return math.MaxInt32
}
