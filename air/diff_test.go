package air

import (
	"math"
	"testing"
)

func TestDiffBasics(t *testing.T) {
	x := Sym("x")
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"constant", Num(5), "0"},
		{"self", x, "1"},
		{"other symbol", Sym("y"), "0"},
		{"linear", Mul(Sym("k"), x), "k"},
		{"sum", Add(Mul(Num(3), x), Num(7)), "3"},
		{"square", Pow(x, Num(2)), "(2 * x)"},
		{"cube", Pow(x, Num(3)), "(3 * (x ^ 2))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.expr, "x")
			if got.String() != tt.want {
				t.Errorf("d/dx %s: expected %q, got %q", tt.expr, tt.want, got.String())
			}
		})
	}
}

func TestDiffProductRule(t *testing.T) {
	// d/dx (x * exp(x)) = exp(x) + x*exp(x)
	x := Sym("x")
	got := Diff(Mul(x, NewCall("exp", x)), "x")
	want := Simplify(Add(NewCall("exp", x), Mul(x, NewCall("exp", x))))
	if !Equal(got, want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestDiffQuotientUsesNegativePowers(t *testing.T) {
	// d/dx (1/x) = -x^-2, kept in power form rather than division so
	// the zero-capable guard can inspect the exponent.
	x := Sym("x")
	got := Diff(Div(Num(1), x), "x")
	want := Simplify(Neg(Pow(x, Num(-2))))
	if !Equal(got, want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestDiffChainRule(t *testing.T) {
	x := Sym("x")
	tests := []struct {
		name string
		expr Expr
		// evaluated check point, since printed forms vary
		at   float64
		want float64
	}{
		{"exp", NewCall("exp", Mul(Num(2), x)), 0.5, 2 * math.Exp(1)},
		{"ln", NewCall("ln", x), 2, 0.5},
		{"sin", NewCall("sin", x), 0, 1},
		{"cos", NewCall("cos", x), 0, 0},
		{"sqrt", NewCall("sqrt", x), 4, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Diff(tt.expr, "x")
			got, err := Eval(d, map[string]float64{"x": tt.at})
			if err != nil {
				t.Fatalf("eval failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("d/dx %s at %v: expected %v, got %v", tt.expr, tt.at, tt.want, got)
			}
		})
	}
}

func TestDiffMichaelisMenten(t *testing.T) {
	// d/dS (Vmax*S / (Km + S)) evaluated against the closed form
	// Vmax*Km / (Km + S)^2.
	s := Sym("S")
	rate := Div(Mul(Sym("Vmax"), s), Add(Sym("Km"), s))
	d := Diff(rate, "S")

	env := map[string]float64{"Vmax": 2.0, "Km": 0.5, "S": 1.5}
	got, err := Eval(d, env)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	want := env["Vmax"] * env["Km"] / math.Pow(env["Km"]+env["S"], 2)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDiffPiecewiseBranchwise(t *testing.T) {
	x := Sym("x")
	pw := &Piecewise{Branches: []Branch{
		{Value: Pow(x, Num(2)), Cond: NewRelation(OpGt, x, Num(0))},
		{Value: Num(0), Cond: True()},
	}}
	d := Diff(pw, "x")
	dp, ok := d.(*Piecewise)
	if !ok {
		t.Fatalf("expected Piecewise derivative, got %T (%s)", d, d)
	}
	if len(dp.Branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(dp.Branches))
	}
	if dp.Branches[0].Value.String() != "(2 * x)" {
		t.Errorf("expected first branch 2*x, got %s", dp.Branches[0].Value)
	}
	// Conditions carry over untouched.
	if dp.Branches[0].Cond.String() != pw.Branches[0].Cond.String() {
		t.Errorf("condition changed: %s", dp.Branches[0].Cond)
	}
}

func TestDiffRelationIsZero(t *testing.T) {
	d := Diff(NewRelation(OpGt, Sym("x"), Num(1)), "x")
	if !Zero(d) {
		t.Errorf("expected 0, got %s", d)
	}
}

func TestDiffStructurallyZeroDropsOut(t *testing.T) {
	// A rate law not mentioning the state variable differentiates to
	// the zero literal, which is what sparse Jacobian pruning keys on.
	rate := Mul(Sym("k1"), Sym("A"))
	d := Diff(rate, "B")
	if !Zero(d) {
		t.Errorf("expected structural zero, got %s", d)
	}
}
