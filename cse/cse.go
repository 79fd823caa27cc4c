// Package cse eliminates common subexpressions from expression lists
// ahead of code emission. Extraction is structural only: repeated
// sub-trees become numbered temporaries, but no sub-term is ever
// rewritten into a different arithmetic form, so divisions stay
// divisions and keep their runtime behavior.
package cse

import (
	"fmt"

	"github.com/Crispae/wasm-pk/air"
)

// SafePowCall marks a power that must be emitted behind a zero check.
// Args are (base, negative integer exponent).
const SafePowCall = "__safe_powi"

// Replacement binds one temporary to the subexpression it stands for.
// Temporaries are valid in the order given: later definitions may
// reference earlier names.
type Replacement struct {
	Name string
	Expr air.Expr
}

// Stats describes the last Optimize run.
type Stats struct {
	Expressions  int
	Temporaries  int
	Reduced      int
	SafeRewrites int
	Level        int
}

// Optimizer applies level-dependent expression optimization.
//
// Level 0 passes expressions through untouched, level 1 simplifies each
// expression without extracting anything, and levels 2 and 3 run common
// subexpression elimination followed by the negative-power safety pass.
type Optimizer struct {
	level int
	stats Stats
}

// New returns an optimizer for the given level.
func New(level int) (*Optimizer, error) {
	o := &Optimizer{}
	if err := o.SetLevel(level); err != nil {
		return nil, err
	}
	return o, nil
}

// SetLevel validates and sets the optimization level (0..3).
func (o *Optimizer) SetLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("%w: %d", ErrBadLevel, level)
	}
	o.level = level
	return nil
}

// Level reports the current optimization level.
func (o *Optimizer) Level() int { return o.level }

// Optimize rewrites exprs according to the configured level and returns
// the temporary definitions plus the reduced expressions, index-aligned
// with the input. Finding nothing to extract is not an error: the
// reduced list then equals the input.
func (o *Optimizer) Optimize(exprs []air.Expr) ([]Replacement, []air.Expr) {
	o.stats = Stats{Expressions: len(exprs), Level: o.level}

	switch {
	case o.level <= 0:
		reduced := append([]air.Expr(nil), exprs...)
		o.stats.Reduced = len(reduced)
		return nil, reduced
	case o.level == 1:
		reduced := make([]air.Expr, len(exprs))
		for i, e := range exprs {
			reduced[i] = air.Simplify(e)
		}
		o.stats.Reduced = len(reduced)
		return nil, reduced
	}

	reps, reduced := extract(exprs)
	reps, reduced, rewrites := guardNegativePowers(reps, reduced)
	o.stats.Temporaries = len(reps)
	o.stats.Reduced = len(reduced)
	o.stats.SafeRewrites = rewrites
	return reps, reduced
}

// OptimizeCombined optimizes the ODE right-hand sides and the Jacobian
// entries as one list, so subexpressions shared between an equation and
// its derivatives are extracted exactly once, then splits the result
// back apart.
func (o *Optimizer) OptimizeCombined(ode, jac []air.Expr) ([]Replacement, []air.Expr, []air.Expr) {
	combined := make([]air.Expr, 0, len(ode)+len(jac))
	combined = append(combined, ode...)
	combined = append(combined, jac...)

	reps, reduced := o.Optimize(combined)
	return reps, reduced[:len(ode)], reduced[len(ode):]
}

// Stats reports counters from the last Optimize run.
func (o *Optimizer) Stats() Stats { return o.stats }
