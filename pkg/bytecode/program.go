package bytecode

// FormatVersion is the current program format version. Increment when
// making incompatible changes to the instruction encoding.
const FormatVersion uint16 = 1

// MaxProgramLen is the largest instruction count the verifier accepts.
const MaxProgramLen = 10000

// MaxEmitLen caps the emitter: no instruction is ever appended beyond
// this many entries, regardless of verifier policy.
const MaxEmitLen = 65535

// MaxLoadStrings is the largest string table the verifier accepts at load
// time. The table may still grow at runtime (through concatenation) up to
// MaxStringTableEntries.
const MaxLoadStrings = 1000

// Program is the finished compilation product: the flat instruction
// sequence plus the string table it references. Addresses are zero-based
// instruction indices. After the compiler hands a Program off, nothing
// mutates it; the VM copies what it needs at load.
type Program struct {
	Version uint16        `cbor:"1,keyasint"`
	Code    []Instruction `cbor:"2,keyasint"`
	Strings []string      `cbor:"3,keyasint"`
}

// NewProgram builds a program over the given code and string entries.
func NewProgram(code []Instruction, strings []string) *Program {
	return &Program{Version: FormatVersion, Code: code, Strings: strings}
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Code)
}

// HasHalt reports whether any instruction is a halt. Programs longer than
// a few instructions are required to contain one; see the verifier.
func (p *Program) HasHalt() bool {
	for _, in := range p.Code {
		if in.Opcode == OpHalt {
			return true
		}
	}
	return false
}
