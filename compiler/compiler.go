// Package compiler lowers Skink source text to bytecode. The front-end is
// line-directed: each line is cleaned, dispatched on its first word, and
// compiled independently; structured forms (if/else/endif, for/endfor)
// keep their pending forward jumps on explicit stacks and back-patch them
// when the closing word arrives.
package compiler

import (
	"strconv"
	"strings"

	"github.com/chazu/skink/pkg/bytecode"
	"github.com/chazu/skink/security"
)

// loopInfo tracks one open for loop: the induction variable, the address
// of the loop header (where the bound is re-checked), and the address of
// the conditional exit branch patched at endfor.
type loopInfo struct {
	varName   string
	startAddr int
	condAddr  int
}

// Compiler turns source text into a Program. A single Compiler may be
// reused; Compile resets all state. Not safe for concurrent use.
type Compiler struct {
	limits *security.Limits

	code    []bytecode.Instruction
	strings *bytecode.StringTable

	// varKinds remembers the kind of the last literal assigned to each
	// variable. Only bare literals on the right of `set` update it; the
	// endfor increment consults it to pick an integer or float step.
	varKinds map[string]bytecode.Kind

	ifStack   []int
	loopStack []loopInfo

	diags []Diagnostic
}

// New creates a compiler bound to a resource policy. A nil policy means
// defaults.
func New(limits *security.Limits) *Compiler {
	if limits == nil {
		limits = security.DefaultLimits()
	}
	return &Compiler{limits: limits}
}

// Compile lowers source to a Program. Lines are terminated by \n with a
// tolerated trailing \r. Recoverable errors are collected as diagnostics
// and compilation continues; the offending line emits nothing or a
// neutral fallback (string index 0, an empty string literal). A halt is
// appended when the program does not already end with one.
func (c *Compiler) Compile(source string) *bytecode.Program {
	c.reset()

	lineNo := 0
	for _, raw := range strings.Split(source, "\n") {
		lineNo++
		line := strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		c.compileLine(line, lineNo)
	}

	for range c.ifStack {
		c.errorf(0, "if without endif")
	}
	for range c.loopStack {
		c.errorf(0, "for without endfor")
	}

	if len(c.code) == 0 || c.code[len(c.code)-1].Opcode != bytecode.OpHalt {
		c.emit(bytecode.Instr(bytecode.OpHalt), 0)
	}

	return bytecode.NewProgram(c.code, c.strings.Entries())
}

// Diagnostics returns the messages collected by the last Compile.
func (c *Compiler) Diagnostics() []Diagnostic {
	return c.diags
}

// HasErrors reports whether the last Compile produced any non-warning
// diagnostic.
func (c *Compiler) HasErrors() bool {
	for _, d := range c.diags {
		if !d.Warning {
			return true
		}
	}
	return false
}

func (c *Compiler) reset() {
	c.code = make([]bytecode.Instruction, 0, 128)
	c.strings = bytecode.NewStringTable()
	c.varKinds = make(map[string]bytecode.Kind)
	c.ifStack = c.ifStack[:0]
	c.loopStack = c.loopStack[:0]
	c.diags = nil
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (c *Compiler) emit(in bytecode.Instruction, line int) {
	if len(c.code) >= bytecode.MaxEmitLen {
		c.errorf(line, "program too large")
		return
	}
	c.code = append(c.code, in)
}

// here returns the address of the next instruction to be emitted.
func (c *Compiler) here() int {
	return len(c.code)
}

// patch rewrites the jump target of a previously emitted instruction to
// point at the next instruction.
func (c *Compiler) patch(addr int) {
	if addr < len(c.code) {
		c.code[addr].Arg1 = uint32(c.here())
	}
}

// validateString checks the literal length limit. Callers substitute ""
// on failure, matching the neutral-fallback rule.
func (c *Compiler) validateString(s string, line int) bool {
	if len(s) > c.limits.MaxStringLength() {
		c.errorf(line, "string too long")
		return false
	}
	return true
}

// addString interns s and returns its table index. On table overflow the
// neutral index 0 is returned.
func (c *Compiler) addString(s string, line int) uint32 {
	idx, ok := c.strings.Intern(s)
	if !ok {
		c.errorf(line, "string table overflow")
		return 0
	}
	return uint32(idx)
}

// variableIndex validates a variable name and interns it, returning its
// table index. Invalid names diagnose and yield index 0.
func (c *Compiler) variableIndex(name string, line int) uint32 {
	if !isValidVariableName(name, c.limits.MaxVariableNameLength()) {
		c.errorf(line, "invalid variable name %q", name)
		return 0
	}
	return c.addString(name, line)
}

// ---------------------------------------------------------------------------
// Expression compilation
// ---------------------------------------------------------------------------

// compileExpression emits code that leaves the expression's value on the
// stack: rewrite function calls, tokenize, transform to postfix, then
// emit pushes and operator opcodes in postfix order.
func (c *Compiler) compileExpression(expr string, line int) {
	expr = strings.TrimSpace(expr)
	if expr == "" || len(expr) > maxExpressionLen {
		c.errorf(line, "invalid expression")
		return
	}

	rewritten := c.rewriteFunctions(expr, line)
	tokens := c.tokenizeExpression(rewritten, line)
	postfix := c.infixToPostfix(tokens, line)
	c.compilePostfix(postfix, line)
}

func (c *Compiler) compilePostfix(postfix []string, line int) {
	if len(postfix) > maxTokens {
		c.errorf(line, "postfix expression too complex")
		return
	}

	for _, tok := range postfix {
		switch {
		case isIntegerLiteral(tok):
			v, _ := strconv.ParseInt(tok, 10, 32)
			c.emit(bytecode.InstrArg(bytecode.OpPushInt, uint32(int32(v))), line)

		case isFloatLiteral(tok):
			f, _ := strconv.ParseFloat(tok, 32)
			c.emit(bytecode.InstrArg(bytecode.OpPushFloat, bytecode.FloatBits(float32(f))), line)

		case isQuotedString(tok):
			s := tok[1 : len(tok)-1]
			if !c.validateString(s, line) {
				s = ""
			}
			c.emit(bytecode.InstrArg(bytecode.OpPushString, c.addString(s, line)), line)

		case isValidVariableName(tok, c.limits.MaxVariableNameLength()):
			c.emit(bytecode.InstrArg(bytecode.OpLoad, c.variableIndex(tok, line)), line)

		case isBracketAtom(tok):
			c.compileBracketAtom(tok, line)

		default:
			if op, ok := operatorOpcode(tok); ok {
				c.emit(bytecode.Instr(op), line)
			} else {
				c.errorf(line, "unexpected token %q in expression", tok)
			}
		}
	}
}

// compileBracketAtom emits the code for a rewritten function call: the
// nested argument expression(s) first, then the intrinsic opcode.
func (c *Compiler) compileBracketAtom(tok string, line int) {
	inner := tok[1 : len(tok)-1]
	switch tok[0] {
	case '[':
		c.compileExpression(inner, line)
		c.emit(bytecode.Instr(bytecode.OpAbs), line)
	case '~':
		c.compileExpression(inner, line)
		c.emit(bytecode.Instr(bytecode.OpSqrt), line)
	case '{':
		a, b, ok := splitArgs(inner)
		if !ok {
			c.errorf(line, "max function requires two arguments")
			return
		}
		c.compileExpression(a, line)
		c.compileExpression(b, line)
		c.emit(bytecode.Instr(bytecode.OpMax), line)
	case '|':
		a, b, ok := splitArgs(inner)
		if !ok {
			c.errorf(line, "min function requires two arguments")
			return
		}
		c.compileExpression(a, line)
		c.compileExpression(b, line)
		c.emit(bytecode.Instr(bytecode.OpMin), line)
	}
}

func operatorOpcode(tok string) (bytecode.Opcode, bool) {
	switch tok {
	case "+":
		return bytecode.OpAdd, true
	case "-":
		return bytecode.OpSub, true
	case "*":
		return bytecode.OpMul, true
	case "/":
		return bytecode.OpDiv, true
	case "%":
		return bytecode.OpMod, true
	case "^":
		return bytecode.OpPow, true
	case "==":
		return bytecode.OpEq, true
	case "!=":
		return bytecode.OpNeq, true
	case "<":
		return bytecode.OpLt, true
	case ">":
		return bytecode.OpGt, true
	case "<=":
		return bytecode.OpLte, true
	case ">=":
		return bytecode.OpGte, true
	}
	return bytecode.OpNop, false
}

// ---------------------------------------------------------------------------
// Line dispatch
// ---------------------------------------------------------------------------

func (c *Compiler) compileLine(line string, lineNo int) {
	cleaned := cleanLine(line)
	if cleaned == "" {
		return
	}
	if len(cleaned) > maxLineLen {
		c.errorf(lineNo, "line too long")
		return
	}

	command := cleaned
	args := ""
	if i := strings.IndexByte(cleaned, ' '); i > 0 {
		command = cleaned[:i]
		args = strings.TrimSpace(cleaned[i+1:])
	}
	command = strings.ToLower(command)

	switch command {
	case "print":
		c.compilePrint(args, lineNo)

	case "printnum":
		c.emit(bytecode.Instr(bytecode.OpPrintNum), lineNo)

	case "led":
		c.compileLed(args, lineNo)

	case "delay":
		c.compileDelay(args, lineNo)

	case "push":
		c.compilePush(args, lineNo)

	case "pop":
		c.emit(bytecode.Instr(bytecode.OpPop), lineNo)
	case "add":
		c.emit(bytecode.Instr(bytecode.OpAdd), lineNo)
	case "sub":
		c.emit(bytecode.Instr(bytecode.OpSub), lineNo)
	case "mul":
		c.emit(bytecode.Instr(bytecode.OpMul), lineNo)
	case "div":
		c.emit(bytecode.Instr(bytecode.OpDiv), lineNo)
	case "mod":
		c.emit(bytecode.Instr(bytecode.OpMod), lineNo)
	case "abs":
		c.emit(bytecode.Instr(bytecode.OpAbs), lineNo)
	case "pow":
		c.emit(bytecode.Instr(bytecode.OpPow), lineNo)
	case "max":
		c.emit(bytecode.Instr(bytecode.OpMax), lineNo)
	case "min":
		c.emit(bytecode.Instr(bytecode.OpMin), lineNo)
	case "sqrt":
		c.emit(bytecode.Instr(bytecode.OpSqrt), lineNo)

	case "input":
		if !isValidVariableName(args, c.limits.MaxVariableNameLength()) {
			c.errorf(lineNo, "invalid variable name for input")
			return
		}
		c.emit(bytecode.InstrArg(bytecode.OpInput, c.variableIndex(args, lineNo)), lineNo)

	case "set":
		c.compileSet(args, lineNo)

	case "if":
		c.compileIf(args, lineNo)
	case "else":
		c.compileElse(lineNo)
	case "endif":
		c.compileEndif(lineNo)

	case "for":
		c.compileFor(args, lineNo)
	case "endfor":
		c.compileEndfor(lineNo)

	case "halt":
		c.emit(bytecode.Instr(bytecode.OpHalt), lineNo)

	default:
		c.warnf(lineNo, "unknown command %q", command)
	}
}

// compilePrint handles both forms: `print "literal"` and `print $var`.
func (c *Compiler) compilePrint(args string, lineNo int) {
	if strings.HasPrefix(args, "$") {
		name := args[1:]
		if !isValidVariableName(name, c.limits.MaxVariableNameLength()) {
			c.errorf(lineNo, "invalid variable name in print")
			return
		}
		c.emit(bytecode.InstrArg(bytecode.OpLoad, c.variableIndex(name, lineNo)), lineNo)
		c.emit(bytecode.Instr(bytecode.OpPrintNum), lineNo)
		return
	}

	text := args
	if isQuotedString(text) {
		text = text[1 : len(text)-1]
	}
	if !c.validateString(text, lineNo) {
		text = ""
	}
	c.emit(bytecode.InstrArg(bytecode.OpPrint, c.addString(text, lineNo)), lineNo)
}

func (c *Compiler) compileLed(args string, lineNo int) {
	i := strings.IndexByte(args, ' ')
	if i <= 0 {
		c.warnf(lineNo, "invalid led command")
		return
	}
	pinStr := args[:i]
	state := strings.ToLower(strings.TrimSpace(args[i+1:]))

	pin, err := strconv.Atoi(pinStr)
	if err != nil || pin < 0 || pin > 255 {
		c.errorf(lineNo, "invalid pin number %q", pinStr)
		return
	}

	switch state {
	case "on", "1":
		c.emit(bytecode.InstrArg(bytecode.OpLedOn, uint32(pin)), lineNo)
	case "off", "0":
		c.emit(bytecode.InstrArg(bytecode.OpLedOff, uint32(pin)), lineNo)
	default:
		c.warnf(lineNo, "unknown led state %q", state)
	}
}

func (c *Compiler) compileDelay(args string, lineNo int) {
	ms, err := strconv.Atoi(args)
	if err != nil {
		ms = 0
	}
	if ms < 0 || ms > security.MaxDelayMS {
		c.warnf(lineNo, "delay time out of range")
		ms = min(max(ms, 0), security.MaxDelayMS)
	}
	c.emit(bytecode.InstrArg(bytecode.OpDelay, uint32(ms)), lineNo)
}

// compilePush emits the single push for the raw `push` command: variable
// load, float, string, or integer (in that recognition order; unparsable
// arguments push integer 0).
func (c *Compiler) compilePush(args string, lineNo int) {
	switch {
	case isValidVariableName(args, c.limits.MaxVariableNameLength()):
		c.emit(bytecode.InstrArg(bytecode.OpLoad, c.variableIndex(args, lineNo)), lineNo)
	case isFloatLiteral(args):
		f, _ := strconv.ParseFloat(args, 32)
		c.emit(bytecode.InstrArg(bytecode.OpPushFloat, bytecode.FloatBits(float32(f))), lineNo)
	case isQuotedString(args):
		s := args[1 : len(args)-1]
		if !c.validateString(s, lineNo) {
			s = ""
		}
		c.emit(bytecode.InstrArg(bytecode.OpPushString, c.addString(s, lineNo)), lineNo)
	default:
		v, _ := strconv.Atoi(args)
		c.emit(bytecode.InstrArg(bytecode.OpPushInt, uint32(int32(v))), lineNo)
	}
}

func (c *Compiler) compileSet(args string, lineNo int) {
	i := strings.IndexByte(args, ' ')
	if i <= 0 {
		c.errorf(lineNo, "invalid set command")
		return
	}
	name := args[:i]
	expr := strings.TrimSpace(args[i+1:])

	if !isValidVariableName(name, c.limits.MaxVariableNameLength()) {
		c.errorf(lineNo, "invalid variable name %q", name)
		return
	}

	// Remember the kind of a bare literal assignment. This is what the
	// endfor increment consults; expressions do not update it.
	switch {
	case isIntegerLiteral(expr):
		c.varKinds[name] = bytecode.KindInt
	case isFloatLiteral(expr):
		c.varKinds[name] = bytecode.KindFloat
	case isQuotedString(expr):
		c.varKinds[name] = bytecode.KindString
	}

	c.compileExpression(expr, lineNo)
	c.emit(bytecode.InstrArg(bytecode.OpStore, c.variableIndex(name, lineNo)), lineNo)
}

// compileIf lays out `if <cond> then`: condition code, then a conditional
// branch with a placeholder target pushed onto the if-stack. The branch
// fires when the condition is FALSE under the inverted comparison
// encoding (comparisons push 0 for true), skipping the body.
func (c *Compiler) compileIf(args string, lineNo int) {
	if len(c.ifStack) >= c.limits.MaxIfDepth() {
		c.errorf(lineNo, "if nesting too deep")
		return
	}

	thenPos := strings.Index(args, " then")
	if thenPos <= 0 {
		c.errorf(lineNo, "invalid if command")
		return
	}

	c.compileExpression(args[:thenPos], lineNo)
	jumpAddr := c.here()
	c.emit(bytecode.InstrArg(bytecode.OpJumpIf, 0), lineNo)
	c.ifStack = append(c.ifStack, jumpAddr)
}

// compileElse ends the then-arm with an unconditional jump (patched at
// endif), retargets the pending conditional branch to the instruction
// after that jump, and replaces the if-stack top with the new jump.
func (c *Compiler) compileElse(lineNo int) {
	if len(c.ifStack) == 0 {
		c.errorf(lineNo, "else without if")
		return
	}

	elseJump := c.here()
	c.emit(bytecode.InstrArg(bytecode.OpJump, 0), lineNo)

	c.patch(c.ifStack[len(c.ifStack)-1])
	c.ifStack[len(c.ifStack)-1] = elseJump
}

func (c *Compiler) compileEndif(lineNo int) {
	if len(c.ifStack) == 0 {
		c.errorf(lineNo, "endif without if")
		return
	}
	c.patch(c.ifStack[len(c.ifStack)-1])
	c.ifStack = c.ifStack[:len(c.ifStack)-1]
}

// compileFor lays out `for v = A to B`: A is evaluated and stored, then
// the loop header re-checks v <= B each iteration. The conditional exit
// branch is patched at endfor. Bounds are inclusive on both ends.
func (c *Compiler) compileFor(args string, lineNo int) {
	if len(c.loopStack) >= c.limits.MaxLoopDepth() {
		c.errorf(lineNo, "loop nesting too deep")
		return
	}

	eqPos := strings.IndexByte(args, '=')
	toPos := strings.Index(args, " to ")
	if eqPos <= 0 || toPos <= eqPos {
		c.errorf(lineNo, "invalid for command")
		return
	}

	name := strings.TrimSpace(args[:eqPos])
	if !isValidVariableName(name, c.limits.MaxVariableNameLength()) {
		c.errorf(lineNo, "invalid variable name in for")
		return
	}
	startExpr := strings.TrimSpace(args[eqPos+1 : toPos])
	endExpr := strings.TrimSpace(args[toPos+4:])

	varIdx := c.variableIndex(name, lineNo)
	c.compileExpression(startExpr, lineNo)
	c.emit(bytecode.InstrArg(bytecode.OpStore, varIdx), lineNo)

	loopStart := c.here()
	c.emit(bytecode.InstrArg(bytecode.OpLoad, varIdx), lineNo)
	c.compileExpression(endExpr, lineNo)
	c.emit(bytecode.Instr(bytecode.OpLte), lineNo)

	condJump := c.here()
	c.emit(bytecode.InstrArg(bytecode.OpJumpIf, 0), lineNo)

	c.loopStack = append(c.loopStack, loopInfo{
		varName:   name,
		startAddr: loopStart,
		condAddr:  condJump,
	})
}

// compileEndfor emits the increment (integer 1, or float 1.0 when the
// induction variable was last assigned a float literal), the store, and
// the back-jump to the loop header, then patches the exit branch.
func (c *Compiler) compileEndfor(lineNo int) {
	if len(c.loopStack) == 0 {
		c.errorf(lineNo, "endfor without for")
		return
	}
	loop := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]

	varIdx := c.variableIndex(loop.varName, lineNo)
	c.emit(bytecode.InstrArg(bytecode.OpLoad, varIdx), lineNo)
	if c.varKinds[loop.varName] == bytecode.KindFloat {
		c.emit(bytecode.InstrArg(bytecode.OpPushFloat, bytecode.FloatBits(1.0)), lineNo)
	} else {
		c.emit(bytecode.InstrArg(bytecode.OpPushInt, 1), lineNo)
	}
	c.emit(bytecode.Instr(bytecode.OpAdd), lineNo)
	c.emit(bytecode.InstrArg(bytecode.OpStore, varIdx), lineNo)
	c.emit(bytecode.InstrArg(bytecode.OpJump, uint32(loop.startAddr)), lineNo)

	c.patch(loop.condAddr)
}
