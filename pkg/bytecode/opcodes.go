package bytecode

import "fmt"

// Opcode identifies a bytecode instruction.
//
// The numeric values are part of the bytecode contract: programs may be
// serialized and shipped between hosts, so opcodes are never renumbered.
// Codes 31-254 are unassigned and rejected by the verifier.
type Opcode uint8

const (
	OpNop        Opcode = 0   // No operation
	OpPrint      Opcode = 1   // Print string constant: arg1 = string index
	OpLedOn      Opcode = 2   // Drive pin high: arg1 = pin number
	OpLedOff     Opcode = 3   // Drive pin low: arg1 = pin number
	OpDelay      Opcode = 4   // Sleep: arg1 = milliseconds
	OpPushInt    Opcode = 5   // Push integer: arg1 = immediate (two's complement)
	OpPop        Opcode = 6   // Discard top of stack
	OpAdd        Opcode = 7   // Pop two, push sum (or concatenation)
	OpSub        Opcode = 8   // Pop two, push difference
	OpMul        Opcode = 9   // Pop two, push product
	OpDiv        Opcode = 10  // Pop two, push quotient
	OpJump       Opcode = 11  // Unconditional jump: arg1 = target address
	OpJumpIf     Opcode = 12  // Jump if popped value is truthy: arg1 = target
	OpPrintNum   Opcode = 13  // Print top of stack without popping
	OpStore      Opcode = 14  // Pop into variable: arg1 = name string index
	OpLoad       Opcode = 15  // Push variable value: arg1 = name string index
	OpMod        Opcode = 16  // Pop two, push remainder
	OpAbs        Opcode = 17  // Replace top with absolute value
	OpPow        Opcode = 18  // Pop two, push power
	OpEq         Opcode = 19  // Pop two, push 0 if equal, 1 otherwise
	OpNeq        Opcode = 20  // Pop two, push 0 if not equal
	OpLt         Opcode = 21  // Pop two, push 0 if a < b
	OpGt         Opcode = 22  // Pop two, push 0 if a > b
	OpLte        Opcode = 23  // Pop two, push 0 if a <= b
	OpGte        Opcode = 24  // Pop two, push 0 if a >= b
	OpPushFloat  Opcode = 25  // Push float: arg1 = IEEE-754 bit pattern
	OpPushString Opcode = 26  // Push string reference: arg1 = string index
	OpMax        Opcode = 27  // Pop two, push the larger
	OpMin        Opcode = 28  // Pop two, push the smaller
	OpSqrt       Opcode = 29  // Replace top with its square root
	OpInput      Opcode = 30  // Read host input into variable: arg1 = name index
	OpHalt       Opcode = 255 // Stop execution
)

// Comparison opcodes push the INVERTED truth value: integer 0 means the
// comparison held, 1 means it did not. Conditional branches treat non-zero
// as true, so a comparison result of 0 falls through into the guarded body
// and 1 takes the branch past it. The compiler and VM both rely on this
// encoding; see the emitter for how if/for branches are laid out.

// OpcodeInfo provides metadata about each opcode for the disassembler,
// the verifier, and tests.
type OpcodeInfo struct {
	Name      string // Mnemonic used in disassembly
	StackPop  int    // Values popped from the stack
	StackPush int    // Values pushed to the stack
	RefString bool   // Arg1 is a string-table index
	RefJump   bool   // Arg1 is a bytecode address
	RefPin    bool   // Arg1 is a pin number
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:        {Name: "NOP"},
	OpPrint:      {Name: "PRINT", RefString: true},
	OpLedOn:      {Name: "LED_ON", RefPin: true},
	OpLedOff:     {Name: "LED_OFF", RefPin: true},
	OpDelay:      {Name: "DELAY"},
	OpPushInt:    {Name: "PUSH", StackPush: 1},
	OpPop:        {Name: "POP", StackPop: 1},
	OpAdd:        {Name: "ADD", StackPop: 2, StackPush: 1},
	OpSub:        {Name: "SUB", StackPop: 2, StackPush: 1},
	OpMul:        {Name: "MUL", StackPop: 2, StackPush: 1},
	OpDiv:        {Name: "DIV", StackPop: 2, StackPush: 1},
	OpJump:       {Name: "JUMP", RefJump: true},
	OpJumpIf:     {Name: "JUMP_IF", StackPop: 1, RefJump: true},
	OpPrintNum:   {Name: "PRINT_NUM"},
	OpStore:      {Name: "STORE", StackPop: 1, RefString: true},
	OpLoad:       {Name: "LOAD", StackPush: 1, RefString: true},
	OpMod:        {Name: "MOD", StackPop: 2, StackPush: 1},
	OpAbs:        {Name: "ABS", StackPop: 1, StackPush: 1},
	OpPow:        {Name: "POW", StackPop: 2, StackPush: 1},
	OpEq:         {Name: "EQ", StackPop: 2, StackPush: 1},
	OpNeq:        {Name: "NEQ", StackPop: 2, StackPush: 1},
	OpLt:         {Name: "LT", StackPop: 2, StackPush: 1},
	OpGt:         {Name: "GT", StackPop: 2, StackPush: 1},
	OpLte:        {Name: "LTE", StackPop: 2, StackPush: 1},
	OpGte:        {Name: "GTE", StackPop: 2, StackPush: 1},
	OpPushFloat:  {Name: "PUSH_FLOAT", StackPush: 1},
	OpPushString: {Name: "PUSH_STRING", StackPush: 1, RefString: true},
	OpMax:        {Name: "MAX", StackPop: 2, StackPush: 1},
	OpMin:        {Name: "MIN", StackPop: 2, StackPush: 1},
	OpSqrt:       {Name: "SQRT", StackPop: 1, StackPush: 1},
	OpInput:      {Name: "INPUT", RefString: true},
	OpHalt:       {Name: "HALT"},
}

// Defined reports whether op is a known opcode.
func Defined(op Opcode) bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// GetOpcodeInfo returns metadata for an opcode.
// Unknown opcodes get a synthesized UNKNOWN name so the disassembler can
// still render hostile input.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", uint8(op))}
}

// String returns the mnemonic for an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// RefsString reports whether arg1 of this opcode indexes the string table.
func (op Opcode) RefsString() bool {
	return GetOpcodeInfo(op).RefString
}

// IsJump reports whether arg1 of this opcode is a bytecode address.
func (op Opcode) IsJump() bool {
	return GetOpcodeInfo(op).RefJump
}

// IsPinOp reports whether arg1 of this opcode is a GPIO pin number.
func (op Opcode) IsPinOp() bool {
	return GetOpcodeInfo(op).RefPin
}

// IsComparison reports whether this opcode is one of the six comparison
// operators.
func (op Opcode) IsComparison() bool {
	return op >= OpEq && op <= OpGte
}

// AllOpcodes returns every defined opcode. Useful for testing that all
// opcodes have metadata and handlers.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		ops = append(ops, op)
	}
	return ops
}
