// Package odesys assembles the ordinary differential equations of a
// reaction network: one time derivative per species, accumulated from
// reaction rate laws weighted by stoichiometry.
package odesys

import (
	"fmt"
	"strings"

	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/sbml"
)

// ParseFunc turns a rate-law formula into an expression tree.
type ParseFunc func(string) (air.Expr, error)

// Build returns dy/dt for every species in speciesIndex, in index order.
// Each reactant contributes -stoichiometry*rate to its species, each
// product +stoichiometry*rate. A reaction without a rate law contributes
// zero. Species referenced by a reaction but absent from speciesIndex
// (boundary species) are skipped. A rate law that fails to parse aborts
// the build.
func Build(reactions []sbml.Reaction, speciesIndex map[string]int, parse ParseFunc) ([]air.Expr, error) {
	dy := make([]air.Expr, len(speciesIndex))
	for i := range dy {
		dy[i] = air.Num(0)
	}

	for _, rxn := range reactions {
		law := strings.TrimSpace(rxn.RateLaw)
		if law == "" {
			law = "0"
		}
		rate, err := parse(law)
		if err != nil {
			return nil, fmt.Errorf("reaction %s: %w", rxn.ID, err)
		}
		for _, ref := range rxn.Reactants {
			idx, ok := speciesIndex[ref.Species]
			if !ok {
				continue
			}
			dy[idx] = air.Simplify(air.Sub(dy[idx], air.Mul(air.Num(ref.Stoichiometry), rate)))
		}
		for _, ref := range rxn.Products {
			idx, ok := speciesIndex[ref.Species]
			if !ok {
				continue
			}
			dy[idx] = air.Simplify(air.Add(dy[idx], air.Mul(air.Num(ref.Stoichiometry), rate)))
		}
	}
	return dy, nil
}
