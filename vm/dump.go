package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/skink/pkg/bytecode"
)

// dumpStackLimit caps how many stack slots DumpState renders.
const dumpStackLimit = 10

// DumpState returns a snapshot of the VM for debugging: program counter,
// stack pointer, the bottom of the stack, and every variable. Variables
// are sorted by name so the dump is deterministic.
func (vm *VM) DumpState() string {
	var sb strings.Builder
	sb.WriteString("=== VM State ===\n")
	fmt.Fprintf(&sb, "State: %s\n", vm.state)
	fmt.Fprintf(&sb, "Program Counter: %d\n", vm.pc)
	fmt.Fprintf(&sb, "Stack Pointer: %d\n", vm.sp)

	sb.WriteString("Stack: [\n")
	for i := 0; i < vm.sp && i < dumpStackLimit; i++ {
		fmt.Fprintf(&sb, "  %d: %s\n", i, vm.dumpValue(vm.stack[i]))
	}
	if vm.sp > dumpStackLimit {
		sb.WriteString("  ...\n")
	}
	sb.WriteString("]\n")

	names := make([]string, 0, len(vm.vars))
	for name := range vm.vars {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("Variables: {\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s: %s\n", name, vm.dumpValue(vm.vars[name]))
	}
	sb.WriteString("}\n")

	return sb.String()
}

func (vm *VM) dumpValue(v bytecode.Value) string {
	switch v.Kind {
	case bytecode.KindInt:
		return fmt.Sprintf("INT %d", v.I)
	case bytecode.KindFloat:
		return fmt.Sprintf("FLOAT %.4f", v.F)
	case bytecode.KindString:
		s, _ := vm.strings.Lookup(v.S)
		return fmt.Sprintf("STRING %q", s)
	default:
		return fmt.Sprintf("%s ?", v.Kind)
	}
}
