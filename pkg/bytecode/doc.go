// Package bytecode defines the compiled form of a Skink program: the
// instruction encoding, the tagged value representation, and the interned
// string table shared by the compiler and the virtual machine.
//
// The format is designed for:
//   - Compact representation (one fixed-width record per instruction)
//   - Fast decoding (direct opcode dispatch, no variable-length operands)
//   - Easy transport (a Program can be serialized to canonical CBOR and
//     shipped to a device or another process)
//
// # Architecture Overview
//
//   - Opcodes: 32 stack-based instructions covering console output, pin
//     control, arithmetic, comparison, control flow, and variable access.
//     Opcode numbers are part of the bytecode contract and never change.
//
//   - Instruction: a fixed {opcode, arg1, arg2} record. Arg1 overloads as
//     integer immediate, raw float bit pattern, string-table index, jump
//     target, pin number, or delay depending on the opcode.
//
//   - Value: a tagged variant holding a 32-bit integer, a 32-bit float, or
//     a 16-bit index into the string table. Values never own string
//     storage; the table does.
//
//   - StringTable: the ordered, deduplicated pool of strings. Entry
//     position is the string's stable handle. The table grows
//     monotonically; nothing is ever freed during a program's life.
//
// The compiler produces a Program (instructions plus string table), the
// verifier in package security checks it, and the VM in package vm
// executes it. This package has no opinion about either side.
package bytecode
