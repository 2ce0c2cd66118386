package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleFormats(t *testing.T) {
	negFive := int32(-5)
	p := NewProgram([]Instruction{
		Instr(OpNop),
		InstrArg(OpPrint, 0),
		InstrArg(OpPushInt, uint32(negFive)),
		InstrArg(OpPushFloat, FloatBits(1.5)),
		InstrArg(OpPushString, 1),
		InstrArg(OpLoad, 2),
		InstrArg(OpStore, 2),
		InstrArg(OpLedOn, 13),
		InstrArg(OpDelay, 500),
		InstrArg(OpJump, 0),
		InstrArg(OpJumpIf, 3),
		Instr(OpHalt),
	}, []string{"hi", "there", "x"})

	out := Disassemble(p)

	wantLines := []string{
		"0: NOP",
		`1: PRINT "hi"`,
		"2: PUSH -5",
		"3: PUSH_FLOAT 1.5000",
		`4: PUSH_STRING "there"`,
		"5: LOAD x",
		"6: STORE x",
		"7: LED_ON pin=13",
		"8: DELAY 500ms",
		"9: JUMP 0",
		"10: JUMP_IF 3",
		"11: HALT",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleInvalidStringIndex(t *testing.T) {
	p := NewProgram([]Instruction{InstrArg(OpPrint, 9)}, nil)
	out := Disassemble(p)
	if !strings.Contains(out, "<invalid>") {
		t.Errorf("expected <invalid> marker:\n%s", out)
	}
}

func TestListingIncludesStringTable(t *testing.T) {
	p := NewProgram([]Instruction{InstrArg(OpPrint, 0), Instr(OpHalt)}, []string{"greeting"})
	out := Listing(p)
	if !strings.Contains(out, "String table:") {
		t.Errorf("listing missing string table header:\n%s", out)
	}
	if !strings.Contains(out, `0: "greeting"`) {
		t.Errorf("listing missing entry:\n%s", out)
	}
	if !strings.Contains(out, "Bytecode:") {
		t.Errorf("listing missing bytecode section:\n%s", out)
	}
}
