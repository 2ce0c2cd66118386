// Package vm implements the Skink stack virtual machine: a
// single-threaded fetch-decode-execute loop over the fixed instruction
// format, with typed arithmetic, an interned string table, a
// string-keyed variable environment, and strict resource accounting.
// Every program passes the security verifier before it runs.
package vm

import (
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/skink/pkg/bytecode"
	"github.com/chazu/skink/security"
)

var log = commonlog.GetLogger("skink.vm")

// State is the VM lifecycle:
//
//	Idle -> Loaded (successful verify) -> Running (run/step)
//	     -> Halted (halt opcode, resource exhaustion, fatal error)
//	     -> Idle (explicit Stop)
//
// From Halted only LoadProgram transitions back to Loaded.
type State uint8

const (
	StateIdle State = iota
	StateLoaded
	StateRunning
	StateHalted
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// inputTimeout is how long the input instruction waits for the host.
const inputTimeout = 30 * time.Second

// VM executes a verified program. It owns its bytecode, string table,
// stack, and variable map exclusively after LoadProgram; the host is the
// only shared resource. Not safe for concurrent use: the embedder calls
// it from a single task, though Stop may be called between steps.
type VM struct {
	limits *security.Limits
	host   Host

	program []bytecode.Instruction
	strings *bytecode.StringTable

	pc    uint32
	stack []bytecode.Value
	sp    int
	vars  map[string]bytecode.Value

	state   State
	running bool

	instructionCount uint32
	iterationCount   uint32

	diags []string
}

// New creates a VM bound to a host and a resource policy. A nil policy
// means defaults.
func New(host Host, limits *security.Limits) *VM {
	if limits == nil {
		limits = security.DefaultLimits()
	}
	vm := &VM{
		limits: limits,
		host:   host,
		state:  StateIdle,
	}
	vm.resetState()
	return vm
}

func (vm *VM) resetState() {
	vm.program = nil
	vm.pc = 0
	vm.sp = 0
	vm.running = false
	vm.instructionCount = 0
	vm.iterationCount = 0
	vm.stack = make([]bytecode.Value, vm.limits.MaxStackSize())
	vm.vars = make(map[string]bytecode.Value)
	vm.strings = bytecode.NewStringTable()
	vm.diags = nil
}

// LoadProgram sanitizes the program's string table, verifies the
// bytecode, and arms the VM. On verifier rejection the VM stays Idle with
// nothing loaded and the error is returned.
func (vm *VM) LoadProgram(p *bytecode.Program) error {
	vm.resetState()
	vm.state = StateIdle

	sanitized := security.SanitizeAll(p.Strings, vm.limits.MaxStringLength())
	checked := bytecode.NewProgram(p.Code, sanitized)

	if err := security.Verify(checked, vm.limits); err != nil {
		vm.diagf("bytecode verification failed: %v", err)
		return fmt.Errorf("vm: refusing to load: %w", err)
	}

	vm.program = make([]bytecode.Instruction, len(p.Code))
	copy(vm.program, p.Code)
	vm.strings = bytecode.TableFromEntries(sanitized)

	vm.running = true
	vm.state = StateLoaded
	log.Infof("program loaded and verified: %d instructions, %d strings", len(vm.program), len(sanitized))
	return nil
}

// Step executes exactly one instruction. It returns false when the VM is
// not running, the program counter ran off the end, or a budget or fatal
// error stopped execution.
func (vm *VM) Step() bool {
	if !vm.running || vm.pc >= uint32(len(vm.program)) {
		if vm.state == StateRunning {
			vm.state = StateHalted
			vm.running = false
		}
		return false
	}
	vm.state = StateRunning

	vm.iterationCount++
	if vm.iterationCount > security.MaxIterations {
		vm.diagf("iteration limit exceeded - possible infinite loop")
		vm.halt()
		return false
	}

	in := vm.program[vm.pc]
	vm.pc++

	vm.execute(in)

	vm.instructionCount++
	if vm.instructionCount > vm.limits.MaxInstructions() {
		vm.diagf("instruction limit exceeded - possible infinite loop")
		vm.halt()
		return false
	}

	return vm.running
}

// Run steps until the program halts or a budget stops it.
func (vm *VM) Run() {
	log.Info("starting VM")
	for vm.Step() {
	}
	if vm.state == StateRunning {
		vm.state = StateHalted
	}
	log.Infof("VM finished after %d instructions", vm.instructionCount)
}

// Stop cancels execution and returns the VM to Idle. The program counter
// and stack pointer reset; the program stays in memory (Disassemble still
// shows it) but does not run again until the next LoadProgram.
func (vm *VM) Stop() {
	vm.running = false
	vm.pc = 0
	vm.sp = 0
	vm.state = StateIdle
}

// halt flips the VM to Halted in place, keeping PC and stack for
// inspection.
func (vm *VM) halt() {
	vm.running = false
	vm.state = StateHalted
}

// IsRunning reports whether the VM will make progress on the next Step.
func (vm *VM) IsRunning() bool { return vm.running }

// State returns the lifecycle state.
func (vm *VM) State() State { return vm.state }

// PC returns the program counter.
func (vm *VM) PC() uint32 { return vm.pc }

// SP returns the stack top pointer.
func (vm *VM) SP() int { return vm.sp }

// InstructionCount returns how many instructions have executed since load.
func (vm *VM) InstructionCount() uint32 { return vm.instructionCount }

// IterationCount returns the dispatch-loop iteration counter.
func (vm *VM) IterationCount() uint32 { return vm.iterationCount }

// Diagnostics returns the runtime diagnostics recorded since load.
func (vm *VM) Diagnostics() []string { return vm.diags }

// Variable returns the current value of a variable, if set.
func (vm *VM) Variable(name string) (bytecode.Value, bool) {
	v, ok := vm.vars[name]
	return v, ok
}

// Disassemble returns a listing of the loaded program.
func (vm *VM) Disassemble() string {
	return bytecode.Disassemble(bytecode.NewProgram(vm.program, vm.strings.Entries()))
}

// diagf records a runtime diagnostic and logs it. Diagnostics never
// raise; the instruction yields its neutral result or stops the VM,
// depending on severity.
func (vm *VM) diagf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	vm.diags = append(vm.diags, msg)
	log.Error(msg)
}

// ---------------------------------------------------------------------------
// Stack discipline
// ---------------------------------------------------------------------------

func (vm *VM) push(v bytecode.Value) bool {
	if vm.sp >= len(vm.stack) {
		vm.diagf("stack overflow - terminating execution")
		vm.halt()
		return false
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return true
}

func (vm *VM) pop() (bytecode.Value, bool) {
	if vm.sp == 0 {
		vm.diagf("stack underflow - terminating execution")
		vm.halt()
		return bytecode.Value{}, false
	}
	vm.sp--
	return vm.stack[vm.sp], true
}

func (vm *VM) popTwo() (a, b bytecode.Value, ok bool) {
	if vm.sp < 2 {
		vm.diagf("stack underflow in binary operation - terminating execution")
		vm.halt()
		return bytecode.Value{}, bytecode.Value{}, false
	}
	vm.sp--
	b = vm.stack[vm.sp]
	vm.sp--
	a = vm.stack[vm.sp]
	return a, b, true
}

func (vm *VM) peek() (bytecode.Value, bool) {
	if vm.sp == 0 {
		vm.diagf("stack underflow in peek - terminating execution")
		vm.halt()
		return bytecode.Value{}, false
	}
	return vm.stack[vm.sp-1], true
}

// lookupString resolves an instruction's string argument.
func (vm *VM) lookupString(idx uint32) (string, bool) {
	if idx > 0xFFFF {
		return "", false
	}
	return vm.strings.Lookup(uint16(idx))
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func (vm *VM) execute(in bytecode.Instruction) {
	switch in.Opcode {
	case bytecode.OpNop:
		// Do nothing.

	// ============ Host effects ============
	case bytecode.OpPrint:
		s, ok := vm.lookupString(in.Arg1)
		if !ok {
			vm.diagf("invalid string index %d in print", in.Arg1)
			return
		}
		vm.host.PrintLine(s)

	case bytecode.OpLedOn:
		vm.writePin(in.Arg1, true)

	case bytecode.OpLedOff:
		vm.writePin(in.Arg1, false)

	case bytecode.OpDelay:
		vm.host.Sleep(time.Duration(in.Arg1) * time.Millisecond)

	case bytecode.OpPrintNum:
		v, ok := vm.peek()
		if !ok {
			return
		}
		vm.host.PrintLine(vm.formatTop(v))

	case bytecode.OpInput:
		vm.handleInput(in)

	// ============ Stack ============
	case bytecode.OpPushInt:
		vm.push(bytecode.IntValue(in.IntArg()))

	case bytecode.OpPushFloat:
		vm.push(bytecode.FloatValue(in.FloatArg()))

	case bytecode.OpPushString:
		vm.push(bytecode.StringValue(uint16(in.Arg1)))

	case bytecode.OpPop:
		vm.pop()

	// ============ Arithmetic ============
	case bytecode.OpAdd:
		if a, b, ok := vm.popTwo(); ok {
			vm.push(vm.performAddition(a, b))
		}

	case bytecode.OpSub:
		if a, b, ok := vm.popTwo(); ok {
			vm.push(vm.performSubtraction(a, b))
		}

	case bytecode.OpMul:
		if a, b, ok := vm.popTwo(); ok {
			vm.push(vm.performMultiplication(a, b))
		}

	case bytecode.OpDiv:
		if a, b, ok := vm.popTwo(); ok {
			vm.push(vm.performDivision(a, b))
		}

	case bytecode.OpMod:
		if a, b, ok := vm.popTwo(); ok {
			vm.push(vm.performModulo(a, b))
		}

	case bytecode.OpPow:
		if a, b, ok := vm.popTwo(); ok {
			vm.push(vm.performPower(a, b))
		}

	case bytecode.OpAbs:
		if v, ok := vm.peek(); ok {
			vm.stack[vm.sp-1] = vm.performAbs(v)
		}

	case bytecode.OpSqrt:
		if v, ok := vm.peek(); ok {
			vm.stack[vm.sp-1] = vm.performSqrt(v)
		}

	case bytecode.OpMax:
		if a, b, ok := vm.popTwo(); ok {
			vm.push(vm.performMax(a, b))
		}

	case bytecode.OpMin:
		if a, b, ok := vm.popTwo(); ok {
			vm.push(vm.performMin(a, b))
		}

	// ============ Comparison ============
	// Comparisons push the inverted truth value: 0 when the comparison
	// held, 1 when it did not. The branches emitted for if and for rely
	// on this; see the compiler.
	case bytecode.OpEq, bytecode.OpNeq, bytecode.OpLt, bytecode.OpGt, bytecode.OpLte, bytecode.OpGte:
		if a, b, ok := vm.popTwo(); ok {
			result := int32(1)
			if vm.performComparison(a, b, in.Opcode) {
				result = 0
			}
			vm.push(bytecode.IntValue(result))
		}

	// ============ Variables ============
	case bytecode.OpStore:
		name, ok := vm.lookupString(in.Arg1)
		if !ok {
			vm.diagf("invalid variable name index %d in store", in.Arg1)
			vm.halt()
			return
		}
		if v, ok := vm.pop(); ok {
			vm.vars[name] = v
		}

	case bytecode.OpLoad:
		name, ok := vm.lookupString(in.Arg1)
		if !ok {
			vm.diagf("invalid variable name index %d in load", in.Arg1)
			vm.halt()
			return
		}
		if v, found := vm.vars[name]; found {
			vm.push(v)
		} else {
			vm.diagf("variable not found: %s", name)
			vm.push(bytecode.IntValue(0))
		}

	// ============ Control flow ============
	case bytecode.OpJump:
		if in.Arg1 < uint32(len(vm.program)) {
			vm.pc = in.Arg1
		} else {
			vm.diagf("jump to invalid address %d", in.Arg1)
			vm.halt()
		}

	case bytecode.OpJumpIf:
		cond, ok := vm.pop()
		if !ok {
			return
		}
		if vm.isTruthy(cond) {
			if in.Arg1 < uint32(len(vm.program)) {
				vm.pc = in.Arg1
			} else {
				vm.diagf("jump to invalid address %d", in.Arg1)
				vm.halt()
			}
		}

	case bytecode.OpHalt:
		vm.halt()

	default:
		vm.diagf("unknown instruction %d", uint8(in.Opcode))
		vm.halt()
	}
}

// writePin drives a pin after re-checking the allow-list. The verifier
// already rejected disallowed pins in compiled programs, but the check is
// repeated here so a narrowed allow-list takes effect without a reload.
func (vm *VM) writePin(pin uint32, high bool) {
	if !vm.limits.PinAllowed(pin) {
		vm.diagf("pin not allowed: %d", pin)
		return
	}
	vm.host.SetPinOutput(uint8(pin))
	vm.host.WritePin(uint8(pin), high)
	if high {
		log.Infof("LED ON pin %d", pin)
	} else {
		log.Infof("LED OFF pin %d", pin)
	}
}

// isTruthy implements the branch condition: numbers are true when
// non-zero, strings when non-empty.
func (vm *VM) isTruthy(v bytecode.Value) bool {
	switch v.Kind {
	case bytecode.KindInt:
		return v.I != 0
	case bytecode.KindFloat:
		return v.F != 0
	case bytecode.KindString:
		s, _ := vm.strings.Lookup(v.S)
		return s != ""
	default:
		return false
	}
}
