package vm

import (
	"testing"

	"github.com/chazu/skink/pkg/bytecode"
	"github.com/chazu/skink/security"
)

// benchProgram sums the integers 1..n with an explicit counter loop, the
// shape most real programs spend their time in: load, compare, branch,
// arithmetic, store.
func benchProgram() *bytecode.Program {
	return bytecode.NewProgram([]bytecode.Instruction{
		// sum = 0; i = 0
		bytecode.InstrArg(bytecode.OpPushInt, 0),
		bytecode.InstrArg(bytecode.OpStore, 0),
		bytecode.InstrArg(bytecode.OpPushInt, 0),
		bytecode.InstrArg(bytecode.OpStore, 1),
		// loop: sum = sum + i; i = i + 1; loop again until i > 100.
		// GT pushes 1 while the bound holds (comparisons invert), so
		// the branch takes the backward jump until i passes 100.
		bytecode.InstrArg(bytecode.OpLoad, 0),
		bytecode.InstrArg(bytecode.OpLoad, 1),
		bytecode.Instr(bytecode.OpAdd),
		bytecode.InstrArg(bytecode.OpStore, 0),
		bytecode.InstrArg(bytecode.OpLoad, 1),
		bytecode.InstrArg(bytecode.OpPushInt, 1),
		bytecode.Instr(bytecode.OpAdd),
		bytecode.InstrArg(bytecode.OpStore, 1),
		bytecode.InstrArg(bytecode.OpLoad, 1),
		bytecode.InstrArg(bytecode.OpPushInt, 100),
		bytecode.Instr(bytecode.OpGt),
		bytecode.InstrArg(bytecode.OpJumpIf, 4),
		bytecode.Instr(bytecode.OpHalt),
	}, []string{"sum", "i"})
}

type nullHost struct{ testHost }

func BenchmarkRunCountingLoop(b *testing.B) {
	p := benchProgram()
	limits := security.DefaultLimits()
	host := &nullHost{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vm := New(host, limits)
		if err := vm.LoadProgram(p); err != nil {
			b.Fatal(err)
		}
		vm.Run()
	}
}

func BenchmarkStep(b *testing.B) {
	p := benchProgram()
	limits := security.DefaultLimits()
	host := &nullHost{}
	vm := New(host, limits)
	if err := vm.LoadProgram(p); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !vm.Step() {
			if err := vm.LoadProgram(p); err != nil {
				b.Fatal(err)
			}
		}
	}
}
