package vm

import (
	"math"
	"strconv"

	"github.com/chazu/skink/pkg/bytecode"
	"github.com/chazu/skink/security"
)

// ---------------------------------------------------------------------------
// Typed value operations
// ---------------------------------------------------------------------------
//
// All coercion rules live here. The general shape: mixed numeric operands
// promote to float; a string operand turns + into concatenation; every
// error case yields a neutral 0 (or 0.0) so execution can continue.
// Overflow, division or modulo by zero, non-integer modulo, and negative
// square roots also record a diagnostic; non-numeric operands to the
// other arithmetic operations yield 0 without one.

func bothNumeric(a, b bytecode.Value) bool {
	return a.IsNumeric() && b.IsNumeric()
}

// valueToString renders a value for concatenation: integers in decimal,
// floats with three fractional digits, strings by table lookup.
func (vm *VM) valueToString(v bytecode.Value) string {
	switch v.Kind {
	case bytecode.KindInt:
		return strconv.FormatInt(int64(v.I), 10)
	case bytecode.KindFloat:
		return strconv.FormatFloat(float64(v.F), 'f', 3, 32)
	case bytecode.KindString:
		s, _ := vm.strings.Lookup(v.S)
		return s
	default:
		return ""
	}
}

// formatTop renders a value for the print-num instruction: integers in
// decimal, floats with two fractional digits, strings verbatim.
func (vm *VM) formatTop(v bytecode.Value) string {
	switch v.Kind {
	case bytecode.KindInt:
		return strconv.FormatInt(int64(v.I), 10)
	case bytecode.KindFloat:
		return strconv.FormatFloat(float64(v.F), 'f', 2, 32)
	case bytecode.KindString:
		s, _ := vm.strings.Lookup(v.S)
		return s
	default:
		return ""
	}
}

// internString sanitizes and interns a runtime-produced string,
// returning its index. This is the only way the table grows after load.
func (vm *VM) internString(s string) uint16 {
	safe := security.Sanitize(s, vm.limits.MaxStringLength())
	idx, ok := vm.strings.Intern(safe)
	if !ok {
		vm.diagf("string table overflow")
		return 0
	}
	return idx
}

// ---------------------------------------------------------------------------
// Checked 32-bit integer arithmetic
// ---------------------------------------------------------------------------

func checkedAdd(a, b int32) (int32, bool) {
	r := int64(a) + int64(b)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, false
	}
	return int32(r), true
}

func checkedSub(a, b int32) (int32, bool) {
	r := int64(a) - int64(b)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, false
	}
	return int32(r), true
}

func checkedMul(a, b int32) (int32, bool) {
	r := int64(a) * int64(b)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, false
	}
	return int32(r), true
}

// checkedPow computes base^exp by repeated checked multiplication.
// Negative exponents yield false (the caller pushes 0).
func checkedPow(base, exp int32) (int32, bool) {
	if exp < 0 {
		return 0, false
	}
	if exp == 0 {
		return 1, true
	}
	if base == 0 {
		return 0, true
	}
	result := int32(1)
	for i := int32(0); i < exp; i++ {
		var ok bool
		result, ok = checkedMul(result, base)
		if !ok {
			return 0, false
		}
	}
	return result, true
}

// ---------------------------------------------------------------------------
// Binary operations
// ---------------------------------------------------------------------------

// performAddition adds two values. A string operand on either side turns
// the operation into concatenation: both operands coerce to string and
// the sanitized result is interned.
func (vm *VM) performAddition(a, b bytecode.Value) bytecode.Value {
	if a.Kind == bytecode.KindString || b.Kind == bytecode.KindString {
		combined := vm.valueToString(a) + vm.valueToString(b)
		return bytecode.StringValue(vm.internString(combined))
	}

	if bothNumeric(a, b) {
		if a.Kind == bytecode.KindFloat || b.Kind == bytecode.KindFloat {
			return bytecode.FloatValue(a.AsFloat() + b.AsFloat())
		}
		if r, ok := checkedAdd(a.I, b.I); ok {
			return bytecode.IntValue(r)
		}
		vm.diagf("integer overflow in addition")
		return bytecode.IntValue(0)
	}

	return bytecode.IntValue(0)
}

func (vm *VM) performSubtraction(a, b bytecode.Value) bytecode.Value {
	if bothNumeric(a, b) {
		if a.Kind == bytecode.KindFloat || b.Kind == bytecode.KindFloat {
			return bytecode.FloatValue(a.AsFloat() - b.AsFloat())
		}
		if r, ok := checkedSub(a.I, b.I); ok {
			return bytecode.IntValue(r)
		}
		vm.diagf("integer overflow in subtraction")
		return bytecode.IntValue(0)
	}
	return bytecode.IntValue(0)
}

func (vm *VM) performMultiplication(a, b bytecode.Value) bytecode.Value {
	if bothNumeric(a, b) {
		if a.Kind == bytecode.KindFloat || b.Kind == bytecode.KindFloat {
			return bytecode.FloatValue(a.AsFloat() * b.AsFloat())
		}
		if r, ok := checkedMul(a.I, b.I); ok {
			return bytecode.IntValue(r)
		}
		vm.diagf("integer overflow in multiplication")
		return bytecode.IntValue(0)
	}
	return bytecode.IntValue(0)
}

func (vm *VM) performDivision(a, b bytecode.Value) bytecode.Value {
	if !bothNumeric(a, b) {
		return bytecode.IntValue(0)
	}
	if a.Kind == bytecode.KindFloat || b.Kind == bytecode.KindFloat {
		if bv := b.AsFloat(); bv != 0 {
			return bytecode.FloatValue(a.AsFloat() / bv)
		}
		vm.diagf("division by zero")
		return bytecode.FloatValue(0)
	}
	if b.I == 0 {
		vm.diagf("division by zero")
		return bytecode.IntValue(0)
	}
	if a.I == math.MinInt32 && b.I == -1 {
		vm.diagf("integer overflow in division")
		return bytecode.IntValue(0)
	}
	return bytecode.IntValue(a.I / b.I)
}

// performModulo requires integer operands. INT_MIN % -1 is well defined
// as 0 here, sidestepping the hardware overflow.
func (vm *VM) performModulo(a, b bytecode.Value) bytecode.Value {
	if a.Kind != bytecode.KindInt || b.Kind != bytecode.KindInt {
		vm.diagf("modulo requires integer operands")
		return bytecode.IntValue(0)
	}
	if b.I == 0 {
		vm.diagf("modulo by zero")
		return bytecode.IntValue(0)
	}
	if a.I == math.MinInt32 && b.I == -1 {
		return bytecode.IntValue(0)
	}
	return bytecode.IntValue(a.I % b.I)
}

func (vm *VM) performPower(a, b bytecode.Value) bytecode.Value {
	if bothNumeric(a, b) {
		if a.Kind == bytecode.KindFloat || b.Kind == bytecode.KindFloat {
			return bytecode.FloatValue(float32(math.Pow(float64(a.AsFloat()), float64(b.AsFloat()))))
		}
		if r, ok := checkedPow(a.I, b.I); ok {
			return bytecode.IntValue(r)
		}
		if b.I >= 0 {
			vm.diagf("integer overflow in power operation")
		}
		return bytecode.IntValue(0)
	}
	return bytecode.IntValue(0)
}

// ---------------------------------------------------------------------------
// Unary operations
// ---------------------------------------------------------------------------

func (vm *VM) performAbs(a bytecode.Value) bytecode.Value {
	switch a.Kind {
	case bytecode.KindInt:
		if a.I == math.MinInt32 {
			vm.diagf("integer overflow in absolute value")
			return bytecode.IntValue(math.MaxInt32)
		}
		if a.I < 0 {
			return bytecode.IntValue(-a.I)
		}
		return a
	case bytecode.KindFloat:
		return bytecode.FloatValue(float32(math.Abs(float64(a.F))))
	default:
		return bytecode.IntValue(0)
	}
}

// performSqrt always yields a float for numeric input; negative operands
// diagnose and yield 0.0.
func (vm *VM) performSqrt(a bytecode.Value) bytecode.Value {
	switch a.Kind {
	case bytecode.KindInt:
		if a.I < 0 {
			vm.diagf("square root of negative number")
			return bytecode.FloatValue(0)
		}
		return bytecode.FloatValue(float32(math.Sqrt(float64(a.I))))
	case bytecode.KindFloat:
		if a.F < 0 {
			vm.diagf("square root of negative number")
			return bytecode.FloatValue(0)
		}
		return bytecode.FloatValue(float32(math.Sqrt(float64(a.F))))
	default:
		return bytecode.IntValue(0)
	}
}

// performMax and performMin return a float when the operand types are
// mixed and an integer only for two integers. Non-numeric operands yield
// integer 0.
func (vm *VM) performMax(a, b bytecode.Value) bytecode.Value {
	if !bothNumeric(a, b) {
		return bytecode.IntValue(0)
	}
	if a.Kind == bytecode.KindFloat || b.Kind == bytecode.KindFloat {
		return bytecode.FloatValue(max(a.AsFloat(), b.AsFloat()))
	}
	return bytecode.IntValue(max(a.I, b.I))
}

func (vm *VM) performMin(a, b bytecode.Value) bytecode.Value {
	if !bothNumeric(a, b) {
		return bytecode.IntValue(0)
	}
	if a.Kind == bytecode.KindFloat || b.Kind == bytecode.KindFloat {
		return bytecode.FloatValue(min(a.AsFloat(), b.AsFloat()))
	}
	return bytecode.IntValue(min(a.I, b.I))
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// performComparison returns the actual truth of a <op> b. The caller
// inverts it into the 0-true/1-false stack encoding. Equal-typed operands
// compare by value (strings by byte order); mixed numeric operands
// promote to float; any other mix is false.
func (vm *VM) performComparison(a, b bytecode.Value, op bytecode.Opcode) bool {
	if a.Kind != b.Kind {
		if bothNumeric(a, b) {
			return compareFloats(a.AsFloat(), b.AsFloat(), op)
		}
		return false
	}

	switch a.Kind {
	case bytecode.KindInt:
		return compareInts(a.I, b.I, op)
	case bytecode.KindFloat:
		return compareFloats(a.F, b.F, op)
	case bytecode.KindString:
		sa, _ := vm.strings.Lookup(a.S)
		sb, _ := vm.strings.Lookup(b.S)
		return compareStrings(sa, sb, op)
	default:
		return false
	}
}

func compareInts(a, b int32, op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpEq:
		return a == b
	case bytecode.OpNeq:
		return a != b
	case bytecode.OpLt:
		return a < b
	case bytecode.OpGt:
		return a > b
	case bytecode.OpLte:
		return a <= b
	case bytecode.OpGte:
		return a >= b
	}
	return false
}

func compareFloats(a, b float32, op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpEq:
		return a == b
	case bytecode.OpNeq:
		return a != b
	case bytecode.OpLt:
		return a < b
	case bytecode.OpGt:
		return a > b
	case bytecode.OpLte:
		return a <= b
	case bytecode.OpGte:
		return a >= b
	}
	return false
}

func compareStrings(a, b string, op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpEq:
		return a == b
	case bytecode.OpNeq:
		return a != b
	case bytecode.OpLt:
		return a < b
	case bytecode.OpGt:
		return a > b
	case bytecode.OpLte:
		return a <= b
	case bytecode.OpGte:
		return a >= b
	}
	return false
}
