package security

import (
	"fmt"

	"github.com/chazu/skink/pkg/bytecode"
)

// haltRequiredAbove is the program length beyond which a halt instruction
// is mandatory. Tiny straight-line programs may omit it.
const haltRequiredAbove = 10

// Verify checks a (bytecode, string table) pair against the policy before
// the VM is allowed to run it. The string table must already be
// sanitized; Verify checks structure, not content.
//
// It fails on: program or table over the load limits, an opcode outside
// the defined set, a jump target out of range, a string index out of
// range on any string-referencing opcode, a pin outside the allow-list,
// a delay over MaxDelayMS, and a program of more than ten instructions
// with no halt.
func Verify(p *bytecode.Program, limits *Limits) error {
	if p.Len() > bytecode.MaxProgramLen {
		return fmt.Errorf("program too large: %d instructions (limit %d)", p.Len(), bytecode.MaxProgramLen)
	}
	if len(p.Strings) > bytecode.MaxLoadStrings {
		return fmt.Errorf("string table too large: %d entries (limit %d)", len(p.Strings), bytecode.MaxLoadStrings)
	}

	for i, in := range p.Code {
		op := in.Opcode
		if !bytecode.Defined(op) {
			return fmt.Errorf("invalid opcode %d at instruction %d", uint8(op), i)
		}
		if op.IsJump() && in.Arg1 >= uint32(p.Len()) {
			return fmt.Errorf("invalid jump target %d at instruction %d", in.Arg1, i)
		}
		if op.RefsString() && in.Arg1 >= uint32(len(p.Strings)) {
			return fmt.Errorf("invalid string index %d at instruction %d", in.Arg1, i)
		}
		if op.IsPinOp() && !limits.PinAllowed(in.Arg1) {
			return fmt.Errorf("unauthorized pin %d at instruction %d", in.Arg1, i)
		}
		if op == bytecode.OpDelay && in.Arg1 > MaxDelayMS {
			return fmt.Errorf("excessive delay %dms at instruction %d (limit %dms)", in.Arg1, i, MaxDelayMS)
		}
	}

	if p.Len() > haltRequiredAbove && !p.HasHalt() {
		return fmt.Errorf("program of %d instructions has no halt", p.Len())
	}

	return nil
}
