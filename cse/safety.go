package cse

import "github.com/Crispae/wasm-pk/air"

// guardNegativePowers rewrites base^(-k) into a SafePowCall wherever the
// base can evaluate to exactly zero at runtime, so the emitted code can
// branch instead of dividing by zero.
//
// Zero capability starts at piecewise expressions with a literal-0
// branch and propagates through temporaries: a temporary whose
// definition contains such a piecewise, or references an already
// zero-capable temporary, taints every expression reading it.
// Temporaries are defined in dependency order, so one forward sweep over
// the replacements settles the set before the reduced expressions are
// rewritten.
func guardNegativePowers(reps []Replacement, reduced []air.Expr) ([]Replacement, []air.Expr, int) {
	zeroCapable := make(map[string]struct{})
	capable := func(e air.Expr) bool {
		if air.ContainsZeroPiecewise(e) {
			return true
		}
		for sym := range air.FreeSymbols(e) {
			if _, ok := zeroCapable[sym]; ok {
				return true
			}
		}
		return false
	}

	rewrites := 0
	var rewrite func(e air.Expr) air.Expr
	rewrite = func(e air.Expr) air.Expr {
		if kids := air.Children(e); len(kids) > 0 {
			rebuilt := make([]air.Expr, len(kids))
			changed := false
			for i, k := range kids {
				rebuilt[i] = rewrite(k)
				if rebuilt[i] != k {
					changed = true
				}
			}
			if changed {
				e = air.Rebuild(e, rebuilt)
			}
		}
		b, ok := e.(*air.BinaryOp)
		if !ok || b.Op != air.OpPow {
			return e
		}
		n, ok := b.Right.(*air.Number)
		if !ok {
			return e
		}
		if k, isInt := air.IsInt(n.Value); !isInt || k >= 0 {
			return e
		}
		if !capable(b.Left) {
			return e
		}
		rewrites++
		return air.NewCall(SafePowCall, b.Left, b.Right)
	}

	for i, rep := range reps {
		taints := capable(rep.Expr)
		reps[i].Expr = rewrite(rep.Expr)
		if taints {
			zeroCapable[rep.Name] = struct{}{}
		}
	}
	for i, e := range reduced {
		reduced[i] = rewrite(e)
	}
	return reps, reduced, rewrites
}
