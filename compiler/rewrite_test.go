package compiler

import "testing"

func TestRewriteFunctions(t *testing.T) {
	c := New(nil)
	tests := []struct {
		in   string
		want string
	}{
		{"abs(x)", "[x]"},
		{"sqrt(16)", "~16~"},
		{"max(a,b)", "{a,b}"},
		{"min(1,2)", "|1,2|"},
		{"abs(x) + sqrt(y)", "[x] + ~y~"},
		{"max(1,min(2,3))", "{1,|2,3|}"},
		{"min(abs(a),b)", "|[a],b|"},
		{"sqrt(max(x,y))", "~{x,y}~"},
		{"abs(abs(x))", "[[x]]"},
		{"no functions here", "no functions here"},
		{"maximum(a)", "maximum(a)"},
	}
	for _, tt := range tests {
		if got := c.rewriteFunctions(tt.in, 1); got != tt.want {
			t.Errorf("rewrite(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRewriteUnmatchedParenAborts(t *testing.T) {
	c := New(nil)
	if got := c.rewriteFunctions("abs(x", 1); got != "abs(x" {
		t.Errorf("rewrite of unbalanced call = %q, want input unchanged", got)
	}
}

func TestRewriteDepthLimit(t *testing.T) {
	c := New(nil)
	c.limits.SetMaxExpressionDepth(4)

	// Nesting past the limit trips the diagnostic.
	c.rewriteFunctions("abs(abs(abs(abs(abs(x)))))", 1)
	if len(c.diags) == 0 {
		t.Error("expected a depth diagnostic for deep nesting")
	}

	// So does a flat run of more calls than the limit.
	c.diags = nil
	c.rewriteFunctions("abs(a)+abs(b)+abs(c)+abs(d)+abs(e)", 1)
	if len(c.diags) == 0 {
		t.Error("expected a depth diagnostic for call count")
	}
}

func TestFindMatchingParen(t *testing.T) {
	tests := []struct {
		expr  string
		start int
		want  int
	}{
		{"(x)", 0, 2},
		{"(a(b)c)", 0, 6},
		{"(a(b)c)", 2, 4},
		{"(open", 0, -1},
	}
	for _, tt := range tests {
		if got := findMatchingParen(tt.expr, tt.start); got != tt.want {
			t.Errorf("findMatchingParen(%q, %d) = %d, want %d", tt.expr, tt.start, got, tt.want)
		}
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in    string
		a, b  string
		found bool
	}{
		{"1,2", "1", "2", true},
		{"|2,3|,4", "|2,3|", "4", true},
		{"(a,b),c", "(a,b)", "c", true},
		{"[x],~y~", "[x]", "~y~", true},
		{"noComma", "", "", false},
	}
	for _, tt := range tests {
		a, b, found := splitArgs(tt.in)
		if a != tt.a || b != tt.b || found != tt.found {
			t.Errorf("splitArgs(%q) = %q, %q, %v", tt.in, a, b, found)
		}
	}
}
