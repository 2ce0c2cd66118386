// Package security holds the resource policy for Skink programs: the
// configurable limits, the GPIO pin allow-list, the string sanitizer, and
// the bytecode verifier that gates every program before execution.
package security

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("skink.security")

// Fixed budgets. These are not configurable.
const (
	// MaxIterations caps the VM dispatch loop regardless of the
	// instruction budget, as a backstop against runaway programs.
	MaxIterations = 100000

	// MaxDelayMS is the largest delay argument the verifier accepts.
	MaxDelayMS = 60000
)

// Bounds for the configurable limits.
const (
	MinStringLength       = 1
	MaxStringLengthBound  = 4096
	MinVariableNameLength = 1
	MaxVariableNameBound  = 256
	MinExpressionDepth    = 1
	MaxExpressionBound    = 256
	MinNestingDepth       = 1
	MaxNestingBound       = 64
	MinStackSize          = 16
	MaxStackBound         = 2048
	MinInstructions       = 1000
	MaxInstructionsBound  = 1000000
)

// BuiltinLED is the pin allowed by default, the classic on-board LED.
const BuiltinLED uint8 = 13

// Limits is the resource policy shared by the compiler and the VM. Zero
// value is not useful; construct with DefaultLimits and adjust through the
// setters, which validate against the fixed bounds and leave the prior
// value in place on rejection.
type Limits struct {
	maxStringLength    int
	maxVariableNameLen int
	maxExpressionDepth int
	maxLoopDepth       int
	maxIfDepth         int
	maxStackSize       int
	maxInstructions    uint32
	allowedPins        []uint8
}

// DefaultLimits returns the policy suitable for a small board: short
// strings, shallow nesting, a 10k instruction budget, and only the
// built-in LED drivable.
func DefaultLimits() *Limits {
	return &Limits{
		maxStringLength:    256,
		maxVariableNameLen: 32,
		maxExpressionDepth: 32,
		maxLoopDepth:       16,
		maxIfDepth:         16,
		maxStackSize:       256,
		maxInstructions:    10000,
		allowedPins:        []uint8{BuiltinLED},
	}
}

func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		err := fmt.Errorf("%s must be between %d and %d, got %d", name, min, max, value)
		log.Error(err.Error())
		return err
	}
	return nil
}

// MaxStringLength returns the sanitizer truncation limit.
func (l *Limits) MaxStringLength() int { return l.maxStringLength }

// SetMaxStringLength adjusts the string truncation limit.
func (l *Limits) SetMaxStringLength(n int) error {
	if err := validateRange("max string length", n, MinStringLength, MaxStringLengthBound); err != nil {
		return err
	}
	l.maxStringLength = n
	return nil
}

// MaxVariableNameLength returns the longest accepted variable name.
func (l *Limits) MaxVariableNameLength() int { return l.maxVariableNameLen }

// SetMaxVariableNameLength adjusts the variable-name length limit.
func (l *Limits) SetMaxVariableNameLength(n int) error {
	if err := validateRange("max variable name length", n, MinVariableNameLength, MaxVariableNameBound); err != nil {
		return err
	}
	l.maxVariableNameLen = n
	return nil
}

// MaxExpressionDepth returns the function-rewrite recursion limit.
func (l *Limits) MaxExpressionDepth() int { return l.maxExpressionDepth }

// SetMaxExpressionDepth adjusts the expression depth limit.
func (l *Limits) SetMaxExpressionDepth(n int) error {
	if err := validateRange("max expression depth", n, MinExpressionDepth, MaxExpressionBound); err != nil {
		return err
	}
	l.maxExpressionDepth = n
	return nil
}

// MaxLoopDepth returns the deepest allowed for-nesting.
func (l *Limits) MaxLoopDepth() int { return l.maxLoopDepth }

// SetMaxLoopDepth adjusts the for-nesting limit.
func (l *Limits) SetMaxLoopDepth(n int) error {
	if err := validateRange("max loop depth", n, MinNestingDepth, MaxNestingBound); err != nil {
		return err
	}
	l.maxLoopDepth = n
	return nil
}

// MaxIfDepth returns the deepest allowed if-nesting.
func (l *Limits) MaxIfDepth() int { return l.maxIfDepth }

// SetMaxIfDepth adjusts the if-nesting limit.
func (l *Limits) SetMaxIfDepth(n int) error {
	if err := validateRange("max if depth", n, MinNestingDepth, MaxNestingBound); err != nil {
		return err
	}
	l.maxIfDepth = n
	return nil
}

// MaxStackSize returns the evaluation stack capacity.
func (l *Limits) MaxStackSize() int { return l.maxStackSize }

// SetMaxStackSize adjusts the evaluation stack capacity.
func (l *Limits) SetMaxStackSize(n int) error {
	if err := validateRange("max stack size", n, MinStackSize, MaxStackBound); err != nil {
		return err
	}
	l.maxStackSize = n
	return nil
}

// MaxInstructions returns the instruction budget.
func (l *Limits) MaxInstructions() uint32 { return l.maxInstructions }

// SetMaxInstructions adjusts the instruction budget.
func (l *Limits) SetMaxInstructions(n uint32) error {
	if n < MinInstructions || n > MaxInstructionsBound {
		err := fmt.Errorf("max instructions must be between %d and %d, got %d", MinInstructions, MaxInstructionsBound, n)
		log.Error(err.Error())
		return err
	}
	l.maxInstructions = n
	return nil
}

// AllowedPins returns a copy of the pin allow-list.
func (l *Limits) AllowedPins() []uint8 {
	pins := make([]uint8, len(l.allowedPins))
	copy(pins, l.allowedPins)
	return pins
}

// SetAllowedPins replaces the pin allow-list.
func (l *Limits) SetAllowedPins(pins []uint8) {
	l.allowedPins = make([]uint8, len(pins))
	copy(l.allowedPins, pins)
}

// AllowPin appends a pin to the allow-list if not already present.
func (l *Limits) AllowPin(pin uint8) {
	if l.PinAllowed(uint32(pin)) {
		return
	}
	l.allowedPins = append(l.allowedPins, pin)
}

// RevokePin removes a pin from the allow-list.
func (l *Limits) RevokePin(pin uint8) {
	for i, p := range l.allowedPins {
		if p == pin {
			l.allowedPins = append(l.allowedPins[:i], l.allowedPins[i+1:]...)
			return
		}
	}
}

// PinAllowed reports whether the pin may be driven. Pin numbers above 255
// are never allowed.
func (l *Limits) PinAllowed(pin uint32) bool {
	if pin > 255 {
		return false
	}
	for _, p := range l.allowedPins {
		if uint32(p) == pin {
			return true
		}
	}
	return false
}
