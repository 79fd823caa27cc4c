package rust

import (
	"math"
	"strings"
	"testing"

	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/cse"
)

func TestPrintNumbers(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{5, "5.0"},
		{-3, "-3.0"},
		{0, "0.0"},
		{0.5, "0.5"},
		{0.001, "0.001"},
		{24, "24.0"},
		{6.02214179e23, "6.02214179e+23"},
		{math.Inf(1), "f64::INFINITY"},
		{math.Inf(-1), "f64::NEG_INFINITY"},
	}

	p := NewPrinter()
	for _, tc := range tests {
		got := p.Print(air.Num(tc.value))
		if got != tc.want {
			t.Errorf("Print(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestPrintArithmetic(t *testing.T) {
	a, b, c := air.Sym("a"), air.Sym("b"), air.Sym("c")
	tests := []struct {
		name string
		expr air.Expr
		want string
	}{
		{"add", air.Add(a, b), "a + b"},
		{"sub nested sum keeps parens", air.Sub(a, air.Add(b, c)), "a - (b + c)"},
		{"add nested sum keeps parens", air.Add(a, air.Add(b, c)), "a + (b + c)"},
		{"left nested sum is flat", air.Add(air.Add(a, b), c), "a + b + c"},
		{"mul", air.Mul(a, b), "a*b"},
		{"mul of sum", air.Mul(air.Add(a, b), c), "(a + b)*c"},
		{"mul by sum", air.Mul(a, air.Add(b, c)), "a*(b + c)"},
		{"mul by quotient", air.Mul(a, air.Div(b, c)), "a*(b/c)"},
		{"div chain", air.Div(air.Div(a, b), c), "a/b/c"},
		{"div by product", air.Div(a, air.Mul(b, c)), "a/(b*c)"},
		{"neg", air.Neg(a), "-a"},
		{"neg of sum", air.Neg(air.Add(a, b)), "-(a + b)"},
		{"coefficient", air.Mul(air.Num(-1), a), "-1.0*a"},
	}

	p := NewPrinter()
	for _, tc := range tests {
		got := p.Print(tc.expr)
		if got != tc.want {
			t.Errorf("%s: Print() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPrintPowers(t *testing.T) {
	a, b := air.Sym("a"), air.Sym("b")
	tests := []struct {
		name string
		expr air.Expr
		want string
	}{
		{"square", air.Pow(a, air.Num(2)), "a.powi(2)"},
		{"reciprocal", air.Pow(a, air.Num(-1)), "a.powi(-1)"},
		{"sum base", air.Pow(air.Add(a, b), air.Num(2)), "(a + b).powi(2)"},
		{"product base", air.Pow(air.Mul(a, b), air.Num(-2)), "(a*b).powi(-2)"},
		{"fractional exponent", air.Pow(a, air.Num(0.5)), "a.powf(0.5)"},
		{"symbolic exponent", air.Pow(a, b), "a.powf(b)"},
		{"negative literal base", air.Pow(air.Num(-2), air.Num(2)), "(-2.0).powi(2)"},
	}

	p := NewPrinter()
	for _, tc := range tests {
		got := p.Print(tc.expr)
		if got != tc.want {
			t.Errorf("%s: Print() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPrintFunctions(t *testing.T) {
	x := air.Sym("x")
	tests := []struct {
		name string
		expr air.Expr
		want string
	}{
		{"exp", air.NewCall("exp", x), "x.exp()"},
		{"ln alias", air.NewCall("log", x), "x.ln()"},
		{"log10", air.NewCall("log10", x), "x.log10()"},
		{"sqrt", air.NewCall("sqrt", x), "x.sqrt()"},
		{"ceiling alias", air.NewCall("ceiling", x), "x.ceil()"},
		{"sign", air.NewCall("sign", x), "x.signum()"},
		{"sum receiver", air.NewCall("exp", air.Add(x, air.Num(1))), "(x + 1.0).exp()"},
		{"unknown call", air.NewCall("hill", x, air.Sym("n")), "hill(x, n)"},
	}

	p := NewPrinter()
	for _, tc := range tests {
		got := p.Print(tc.expr)
		if got != tc.want {
			t.Errorf("%s: Print() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPrintGuardedPower(t *testing.T) {
	p := NewPrinter()

	call := air.NewCall(cse.SafePowCall, air.Sym("x0"), air.Num(-2))
	got := p.Print(call)
	want := "(if x0 != 0.0 { x0.powi(-2) } else { f64::INFINITY })"
	if got != want {
		t.Errorf("Print(safe pow) = %q, want %q", got, want)
	}

	sum := air.NewCall(cse.SafePowCall, air.Add(air.Sym("Km"), air.Sym("x0")), air.Num(-1))
	got = p.Print(sum)
	want = "(if (Km + x0) != 0.0 { (Km + x0).powi(-1) } else { f64::INFINITY })"
	if got != want {
		t.Errorf("Print(safe pow of sum) = %q, want %q", got, want)
	}
}

func TestPrintPowGuardsPiecewiseBase(t *testing.T) {
	pw := &air.Piecewise{Branches: []air.Branch{
		{Value: air.Sym("R"), Cond: air.NewRelation(air.OpLt, air.Sym("t"), air.Num(5))},
		{Value: air.Num(0), Cond: air.True()},
	}}
	expr := air.Pow(pw, air.Num(-1))

	got := NewPrinter().Print(expr)
	if !strings.Contains(got, "!= 0.0 {") {
		t.Error("expected a zero guard around the piecewise base")
	}
	if !strings.Contains(got, ".powi(-1)") {
		t.Error("expected powi in the guarded branch")
	}
	if !strings.Contains(got, "f64::INFINITY") {
		t.Error("expected infinity fallback")
	}

	plain := air.Pow(air.Sym("V"), air.Num(-1))
	if got := NewPrinter().Print(plain); got != "V.powi(-1)" {
		t.Errorf("Print(V^-1) = %q, want plain powi", got)
	}
}

func TestPrintConditions(t *testing.T) {
	a := air.Sym("a")
	tTime := air.Sym("t")
	ge := air.NewRelation(air.OpGe, a, air.Num(5))
	lt := air.NewRelation(air.OpLt, tTime, air.Num(10))

	tests := []struct {
		name string
		expr air.Expr
		want string
	}{
		{"relation", ge, "a >= 5.0"},
		{"and", air.NewLogical(air.OpAnd, ge, lt), "a >= 5.0 && t < 10.0"},
		{"or", air.NewLogical(air.OpOr, ge, lt), "a >= 5.0 || t < 10.0"},
		{"not", air.NewLogical(air.OpNot, ge), "!(a >= 5.0)"},
		{"and inside or", air.NewLogical(air.OpOr, air.NewLogical(air.OpAnd, ge, lt), ge), "a >= 5.0 && t < 10.0 || a >= 5.0"},
		{"or inside and", air.NewLogical(air.OpAnd, air.NewLogical(air.OpOr, ge, lt), ge), "(a >= 5.0 || t < 10.0) && a >= 5.0"},
		{"arithmetic operand", air.NewRelation(air.OpGt, air.Add(a, air.Num(1)), air.Num(0)), "a + 1.0 > 0.0"},
	}

	p := NewPrinter()
	for _, tc := range tests {
		got := p.Print(tc.expr)
		if got != tc.want {
			t.Errorf("%s: Print() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPrintPiecewiseChain(t *testing.T) {
	p := NewPrinter()

	pw := &air.Piecewise{Branches: []air.Branch{
		{Value: air.Num(1), Cond: air.NewRelation(air.OpLt, air.Sym("t"), air.Num(5))},
		{Value: air.Num(0), Cond: air.True()},
	}}
	want := "if t < 5.0 {\n    1.0\n} else {\n    0.0\n}"
	if got := p.Print(pw); got != want {
		t.Errorf("Print(piecewise) = %q, want %q", got, want)
	}

	three := &air.Piecewise{Branches: []air.Branch{
		{Value: air.Sym("a"), Cond: air.NewRelation(air.OpLt, air.Sym("t"), air.Num(1))},
		{Value: air.Sym("b"), Cond: air.NewRelation(air.OpLt, air.Sym("t"), air.Num(2))},
		{Value: air.Sym("c"), Cond: air.True()},
	}}
	got := p.Print(three)
	if !strings.Contains(got, "} else if t < 2.0 {") {
		t.Error("expected an else-if arm for the middle branch")
	}
	if !strings.HasSuffix(got, "} else {\n    c\n}") {
		t.Errorf("expected a bare else for the default branch, got %q", got)
	}
}

func TestPrintPiecewiseInjectsDefault(t *testing.T) {
	pw := &air.Piecewise{Branches: []air.Branch{
		{Value: air.Sym("R"), Cond: air.NewRelation(air.OpLt, air.Sym("t"), air.Num(5))},
	}}
	want := "if t < 5.0 {\n    R\n} else {\n    0.0\n}"
	if got := NewPrinter().Print(pw); got != want {
		t.Errorf("Print(piecewise without default) = %q, want %q", got, want)
	}
}

func TestPrintPiecewiseAlwaysTrueCollapses(t *testing.T) {
	pw := &air.Piecewise{Branches: []air.Branch{
		{Value: air.Sym("R"), Cond: air.True()},
	}}
	if got := NewPrinter().Print(pw); got != "R" {
		t.Errorf("Print(always-true piecewise) = %q, want R", got)
	}
}

func TestPrintFormattedIndentsChain(t *testing.T) {
	pw := &air.Piecewise{Branches: []air.Branch{
		{Value: air.Num(1), Cond: air.NewRelation(air.OpLt, air.Sym("t"), air.Num(5))},
		{Value: air.Num(0), Cond: air.True()},
	}}
	want := "if t < 5.0 {\n            1.0\n        } else {\n            0.0\n        }"
	if got := NewPrinter().PrintFormatted(pw); got != want {
		t.Errorf("PrintFormatted(piecewise) = %q, want %q", got, want)
	}

	flat := air.Mul(air.Sym("a"), air.Sym("b"))
	if got := NewPrinter().PrintFormatted(flat); got != "a*b" {
		t.Errorf("PrintFormatted(flat) = %q, want a*b", got)
	}
}
