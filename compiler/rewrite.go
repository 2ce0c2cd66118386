package compiler

import "strings"

// ---------------------------------------------------------------------------
// Function-call rewriter
// ---------------------------------------------------------------------------
//
// Before tokenization, recognized function calls are rewritten into
// bracketed atoms that the tokenizer treats as single operands:
//
//	abs(E)   -> [E]
//	max(A,B) -> {A,B}
//	min(A,B) -> |A,B|
//	sqrt(E)  -> ~E~
//
// Rewriting is recursive, so arguments may themselves contain function
// calls, and bounded by the expression-depth limit.

type funcRewrite struct {
	name  string // source form, including the open paren
	open  string
	close string
}

var funcRewrites = []funcRewrite{
	{"abs(", "[", "]"},
	{"max(", "{", "}"},
	{"min(", "|", "|"},
	{"sqrt(", "~", "~"},
}

// rewriteFunctions replaces every recognized function call in expr with
// its bracket-atom form. An unmatched opening parenthesis aborts the
// rewrite of that call; exceeding the depth limit, through nesting or
// through sheer call count, raises a diagnostic.
func (c *Compiler) rewriteFunctions(expr string, line int) string {
	if len(expr) > maxExpressionLen {
		c.errorf(line, "expression too long")
		return expr
	}
	return c.rewriteAtDepth(expr, line, 0)
}

func (c *Compiler) rewriteAtDepth(expr string, line int, level int) string {
	maxDepth := c.limits.MaxExpressionDepth()
	if level > maxDepth {
		c.errorf(line, "expression too complex")
		return expr
	}

	result := expr
	depth := 0

	for _, fr := range funcRewrites {
		pos := strings.Index(result, fr.name)
		for pos >= 0 && depth <= maxDepth {
			openParen := pos + len(fr.name) - 1
			end := findMatchingParen(result, openParen)
			if end <= pos {
				break
			}
			inner := c.rewriteAtDepth(result[openParen+1:end], line, level+1)
			result = result[:pos] + fr.open + inner + fr.close + result[end+1:]
			pos = strings.Index(result, fr.name)
			depth++
		}
	}

	if depth > maxDepth {
		c.errorf(line, "expression too complex")
	}

	return result
}

// findMatchingParen returns the index of the parenthesis closing the one
// at start, or -1 when unbalanced.
func findMatchingParen(expr string, start int) int {
	count := 1
	for i := start + 1; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			count++
		case ')':
			count--
		}
		if count == 0 {
			return i
		}
	}
	return -1
}

// splitArgs splits a two-argument atom body at its top-level comma,
// ignoring commas nested inside parentheses or inner atoms. The second
// return is false when no top-level comma exists.
func splitArgs(body string) (string, string, bool) {
	depth := 0
	inPipe := false
	inTilde := false
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '|':
			inPipe = !inPipe
		case '~':
			inTilde = !inTilde
		case ',':
			if depth == 0 && !inPipe && !inTilde {
				return body[:i], body[i+1:], true
			}
		}
	}
	return "", "", false
}
