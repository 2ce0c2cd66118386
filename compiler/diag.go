package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("skink.compiler")

// Diagnostic is one compile-time message tied to a source line. Line 0
// means the message is not attributable to a single line.
type Diagnostic struct {
	Line    int
	Message string
	Warning bool
}

func (d Diagnostic) String() string {
	kind := "ERROR"
	if d.Warning {
		kind = "WARNING"
	}
	if d.Line > 0 {
		return fmt.Sprintf("%s: %s at line %d", kind, d.Message, d.Line)
	}
	return fmt.Sprintf("%s: %s", kind, d.Message)
}

// errorf records a compile error. Compilation continues; the offending
// line simply emits nothing (or a neutral fallback).
func (c *Compiler) errorf(line int, format string, args ...any) {
	d := Diagnostic{Line: line, Message: fmt.Sprintf(format, args...)}
	c.diags = append(c.diags, d)
	log.Error(d.String())
}

// warnf records a compile warning for a line that still emits code.
func (c *Compiler) warnf(line int, format string, args ...any) {
	d := Diagnostic{Line: line, Message: fmt.Sprintf(format, args...), Warning: true}
	c.diags = append(c.diags, d)
	log.Warning(d.String())
}
