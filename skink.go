// Package skink is a sandboxed, embeddable scripting system for severely
// resource-constrained targets. Source text is lowered to compact
// bytecode and executed on a verified stack VM with strict instruction,
// iteration, stack, and nesting budgets.
//
// The Interp type is the embedder facade: it owns a compiler and a VM
// sharing one resource policy and forwards the common operations. Code
// that needs finer control uses the compiler, security, and vm packages
// directly.
package skink

import (
	"errors"

	"github.com/chazu/skink/compiler"
	"github.com/chazu/skink/pkg/bytecode"
	"github.com/chazu/skink/security"
	"github.com/chazu/skink/vm"
)

// Version identifies the language release.
const (
	Version = "0.1.0"
	Name    = "Skink"
)

// Interp bundles a compiler and a VM over a shared resource policy.
type Interp struct {
	limits   *security.Limits
	compiler *compiler.Compiler
	machine  *vm.VM

	program *bytecode.Program
}

// New creates an interpreter with default limits, driving the given host.
func New(host vm.Host) *Interp {
	return NewWithLimits(host, security.DefaultLimits())
}

// NewWithLimits creates an interpreter over an explicit resource policy.
func NewWithLimits(host vm.Host, limits *security.Limits) *Interp {
	if limits == nil {
		limits = security.DefaultLimits()
	}
	return &Interp{
		limits:   limits,
		compiler: compiler.New(limits),
		machine:  vm.New(host, limits),
	}
}

// Limits exposes the shared resource policy for adjustment.
func (in *Interp) Limits() *security.Limits {
	return in.limits
}

// Compile lowers source text and keeps the program for Run. Compile
// diagnostics are recoverable; the program is produced regardless and
// available via Program.
func (in *Interp) Compile(source string) []compiler.Diagnostic {
	in.program = in.compiler.Compile(source)
	return in.compiler.Diagnostics()
}

// Program returns the last compiled program, or nil.
func (in *Interp) Program() *bytecode.Program {
	return in.program
}

// Run loads the compiled program into the VM (verifying it) and executes
// until it halts or a budget stops it.
func (in *Interp) Run() error {
	if in.program == nil {
		return errors.New("skink: no program compiled")
	}
	if err := in.machine.LoadProgram(in.program); err != nil {
		return err
	}
	in.machine.Run()
	return nil
}

// Step executes one instruction of the loaded program.
func (in *Interp) Step() bool {
	return in.machine.Step()
}

// Stop cancels execution between steps.
func (in *Interp) Stop() {
	in.machine.Stop()
}

// IsRunning reports whether the VM will make progress.
func (in *Interp) IsRunning() bool {
	return in.machine.IsRunning()
}

// VM exposes the underlying machine for state inspection.
func (in *Interp) VM() *vm.VM {
	return in.machine
}

// DumpState returns the VM state snapshot.
func (in *Interp) DumpState() string {
	return in.machine.DumpState()
}

// Disassemble returns a listing of the program loaded in the VM.
func (in *Interp) Disassemble() string {
	return in.machine.Disassemble()
}

// PrintCompiledCode returns the compiler-side listing of the last
// compiled program: string table first, then bytecode.
func (in *Interp) PrintCompiledCode() string {
	if in.program == nil {
		return ""
	}
	return bytecode.Listing(in.program)
}
