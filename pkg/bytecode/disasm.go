package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program, one
// instruction per line, prefixed with its address. String arguments are
// resolved against the program's table; unresolvable indices render as
// <invalid> rather than failing, so hostile programs can still be
// inspected.
func Disassemble(p *Program) string {
	var sb strings.Builder
	sb.WriteString("=== Disassembly ===\n")
	for i, in := range p.Code {
		sb.WriteString(fmt.Sprintf("%d: ", i))
		sb.WriteString(formatInstruction(in, p.Strings))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Listing returns the compiler-side view of a program: the string table
// followed by the bytecode. This is what `skink -listing` prints.
func Listing(p *Program) string {
	var sb strings.Builder
	sb.WriteString("=== Compiled Skink Program ===\n")
	sb.WriteString("String table:\n")
	for i, s := range p.Strings {
		sb.WriteString(fmt.Sprintf("  %d: %q\n", i, s))
	}
	sb.WriteString("Bytecode:\n")
	for i, in := range p.Code {
		sb.WriteString(fmt.Sprintf("  %d: ", i))
		sb.WriteString(formatInstruction(in, p.Strings))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatInstruction(in Instruction, table []string) string {
	op := in.Opcode
	switch {
	case op == OpPushInt:
		return fmt.Sprintf("PUSH %d", in.IntArg())
	case op == OpPushFloat:
		return fmt.Sprintf("PUSH_FLOAT %.4f", in.FloatArg())
	case op == OpDelay:
		return fmt.Sprintf("DELAY %dms", in.Arg1)
	case op.IsPinOp():
		return fmt.Sprintf("%s pin=%d", op, in.Arg1)
	case op.IsJump():
		return fmt.Sprintf("%s %d", op, in.Arg1)
	case op == OpPrint || op == OpPushString:
		return fmt.Sprintf("%s %s", op, quotedEntry(in.Arg1, table))
	case op.RefsString():
		// STORE, LOAD, INPUT reference a variable name.
		return fmt.Sprintf("%s %s", op, bareEntry(in.Arg1, table))
	default:
		return op.String()
	}
}

func quotedEntry(idx uint32, table []string) string {
	if int(idx) < len(table) {
		return fmt.Sprintf("%q", table[idx])
	}
	return "<invalid>"
}

func bareEntry(idx uint32, table []string) string {
	if int(idx) < len(table) {
		return table[idx]
	}
	return "<invalid>"
}
