package bytecode

import "math"

// Instruction is one fixed-width bytecode record.
//
// Arg1 overloads depending on the opcode: an integer immediate (two's
// complement), a raw IEEE-754 float bit pattern, a string-table index, a
// jump target (instruction index), a pin number, or a delay in
// milliseconds. Arg2 is reserved for future use and always zero today.
type Instruction struct {
	Opcode Opcode `cbor:"1,keyasint"`
	Arg1   uint32 `cbor:"2,keyasint"`
	Arg2   uint16 `cbor:"3,keyasint"`
}

// Instr builds an instruction with no argument.
func Instr(op Opcode) Instruction {
	return Instruction{Opcode: op}
}

// InstrArg builds an instruction with an arg1 value.
func InstrArg(op Opcode, arg1 uint32) Instruction {
	return Instruction{Opcode: op, Arg1: arg1}
}

// IntArg returns arg1 reinterpreted as a signed 32-bit immediate.
func (in Instruction) IntArg() int32 {
	return int32(in.Arg1)
}

// FloatArg returns arg1 reinterpreted as a 32-bit float.
func (in Instruction) FloatArg() float32 {
	return math.Float32frombits(in.Arg1)
}

// FloatBits converts a float immediate to its arg1 encoding. This is the
// single place where the bitwise reinterpretation happens; the compiler
// and VM both go through it rather than casting ad hoc.
func FloatBits(f float32) uint32 {
	return math.Float32bits(f)
}
