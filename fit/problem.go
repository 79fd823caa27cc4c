// Package fit estimates model parameters from observed timecourse data.
//
// A Problem names the global parameters to estimate; Fit searches for the
// values that minimize a loss between simulated and observed trajectories.
// Each candidate is evaluated by rebuilding the simulation from a model
// copy, so initial assignments and rules see the candidate values.
package fit

import (
	"fmt"
	"math"

	"github.com/Crispae/wasm-pk/sbml"
	"github.com/Crispae/wasm-pk/simulate"
)

// Problem binds a model to the parameters being estimated.
type Problem struct {
	model *sbml.Model
	names []string
	tspan [2]float64
}

// NewProblem selects which global parameters of the model to estimate.
// The parameter order fixes the layout of the optimization vector.
func NewProblem(m *sbml.Model, parameters []string, tspan [2]float64) (*Problem, error) {
	if len(parameters) == 0 {
		return nil, fmt.Errorf("no parameters to fit")
	}
	known := make(map[string]bool, len(m.Parameters))
	for _, p := range m.Parameters {
		known[p.ID] = true
	}
	seen := make(map[string]bool, len(parameters))
	for _, name := range parameters {
		if !known[name] {
			return nil, fmt.Errorf("unknown parameter: %s", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate parameter: %s", name)
		}
		seen[name] = true
	}
	return &Problem{
		model: m,
		names: append([]string(nil), parameters...),
		tspan: tspan,
	}, nil
}

// Names returns the fitted parameter IDs in vector order.
func (p *Problem) Names() []string {
	return append([]string(nil), p.names...)
}

// initialValues reads the model's current values for the fitted parameters.
func (p *Problem) initialValues() []float64 {
	vals := make([]float64, len(p.names))
	for i, name := range p.names {
		for _, mp := range p.model.Parameters {
			if mp.ID == name {
				vals[i] = mp.Value
				break
			}
		}
	}
	return vals
}

// evaluate scores one candidate vector. Integration failures map to +Inf
// so the optimizer backs away from pathological regions.
func (p *Problem) evaluate(x []float64, data *Dataset, loss LossFunc, opts *simulate.Options) float64 {
	overrides := make(map[string]float64, len(p.names))
	for i, name := range p.names {
		overrides[name] = x[i]
	}
	m := p.model.WithParameters(overrides)

	prob, err := simulate.NewProblem(m, p.tspan)
	if err != nil {
		return math.Inf(1)
	}
	sol, err := simulate.Solve(prob, nil, opts)
	if err != nil {
		return math.Inf(1)
	}
	l := loss(sol, data)
	if math.IsNaN(l) {
		return math.Inf(1)
	}
	return l
}
