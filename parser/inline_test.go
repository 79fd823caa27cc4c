package parser

import (
	"strings"
	"testing"

	"github.com/Crispae/wasm-pk/sbml"
)

func TestInlineSimpleFunction(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "multiply", Arguments: []string{"x", "y"}, MathString: "x * y"},
	})
	got := in.Inline("multiply(a, b)")
	if got != "((a) * (b))" {
		t.Errorf("Inline: got %q", got)
	}
}

func TestInlineMultipleArguments(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "add3", Arguments: []string{"x", "y", "z"}, MathString: "x + y + z"},
	})
	got := in.Inline("add3(1, 2, 3)")
	if got != "((1) + (2) + (3))" {
		t.Errorf("Inline: got %q", got)
	}
}

func TestInlineNestedCalls(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "double", Arguments: []string{"x"}, MathString: "2 * x"},
		{ID: "square", Arguments: []string{"x"}, MathString: "x * x"},
	})
	got := in.Inline("double(square(a))")
	if strings.Contains(got, "double(") || strings.Contains(got, "square(") {
		t.Errorf("nested call not fully inlined: %q", got)
	}
	if !strings.Contains(got, "((a) * (a))") {
		t.Errorf("inner body missing: %q", got)
	}
}

func TestInlineInsideExpression(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "multiply", Arguments: []string{"x", "y"}, MathString: "x * y"},
	})
	got := in.Inline("multiply(a, b) + c")
	if got != "((a) * (b)) + c" {
		t.Errorf("Inline: got %q", got)
	}
}

func TestInlineMultipleCallSites(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "multiply", Arguments: []string{"x", "y"}, MathString: "x * y"},
	})
	got := in.Inline("multiply(a, b) + multiply(c, d)")
	if !strings.Contains(got, "((a) * (b))") || !strings.Contains(got, "((c) * (d))") {
		t.Errorf("Inline: got %q", got)
	}
}

func TestInlineNestedParenthesesInArguments(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "add", Arguments: []string{"x", "y"}, MathString: "x + y"},
	})
	// The first argument is itself a call with two arguments; the split
	// must not break at its inner comma.
	got := in.Inline("add(f(a, b), c)")
	if got != "((f(a, b)) + (c))" {
		t.Errorf("Inline: got %q", got)
	}
}

func TestInlineUnknownFunctionUnchanged(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "known", Arguments: []string{"x"}, MathString: "x * 2"},
	})
	got := in.Inline("unknown(a) + known(b)")
	if !strings.Contains(got, "unknown(a)") {
		t.Errorf("unknown call was rewritten: %q", got)
	}
	if !strings.Contains(got, "((b) * 2)") {
		t.Errorf("known call not inlined: %q", got)
	}
}

func TestInlineNoFunctions(t *testing.T) {
	in := NewInliner(nil)
	got := in.Inline("some_function(a, b)")
	if got != "some_function(a, b)" {
		t.Errorf("Inline: got %q", got)
	}
}

func TestInlineLongestFormalFirst(t *testing.T) {
	// Formal "rate" contains formal "r"; substituting "r" first would
	// corrupt occurrences of "rate" in the body.
	in := NewInliner([]sbml.Function{
		{ID: "f", Arguments: []string{"r", "rate"}, MathString: "rate * r + rate"},
	})
	got := in.Inline("f(2, 3)")
	if got != "((3) * (2) + (3))" {
		t.Errorf("Inline: got %q", got)
	}
}

func TestInlinePrefixNameNotClipped(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "ab", Arguments: []string{"x"}, MathString: "x + 1"},
		{ID: "abc", Arguments: []string{"x"}, MathString: "x * 2"},
	})
	got := in.Inline("abc(5)")
	if got != "((5) * 2)" {
		t.Errorf("Inline: got %q", got)
	}
}

func TestInlineRecursiveDefinitionTerminates(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "recursive", Arguments: []string{"x"}, MathString: "recursive(x) + 1"},
	})
	got := in.Inline("recursive(5)")
	// The depth bound leaves the innermost call in place instead of
	// looping forever.
	if !strings.Contains(got, "recursive(") {
		t.Errorf("expected a residual call at the depth bound: %q", got)
	}
}

func TestInlineUnbalancedCallLeftAlone(t *testing.T) {
	in := NewInliner([]sbml.Function{
		{ID: "f", Arguments: []string{"x"}, MathString: "x + 1"},
	})
	got := in.Inline("f(a + b")
	if got != "f(a + b" {
		t.Errorf("Inline: got %q", got)
	}
}

func TestSplitArguments(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a, b", []string{"a", "b"}},
		{"a, b, f(x, y)", []string{"a", "b", "f(x, y)"}},
		{"g(h(1, 2), 3), c", []string{"g(h(1, 2), 3)", "c"}},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		got := splitArguments(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitArguments(%q): got %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitArguments(%q)[%d]: got %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
