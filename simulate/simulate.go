// Package simulate integrates a model's reaction network in process,
// without generating code first. The right-hand side evaluates the
// compiled expression trees directly, so a trajectory here is the
// reference the generated source can be checked against. Events are not
// simulated; previews are trigger-free.
package simulate

import (
	"fmt"
	"math"

	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/odesys"
	"github.com/Crispae/wasm-pk/parser"
	"github.com/Crispae/wasm-pk/rules"
	"github.com/Crispae/wasm-pk/sbml"
)

// Problem is an initial value problem built from one model. Static
// rules and initial assignments are folded at construction; dynamic
// rules are re-evaluated on every derivative call. A Problem is not
// safe for concurrent use because derivative evaluation reuses one
// scratch environment.
type Problem struct {
	Labels []string  // species IDs in state order
	Y0     []float64 // initial state
	Tspan  [2]float64

	odes    []air.Expr
	dynamic []rules.Rule
	scratch map[string]float64
}

// NewProblem compiles the model into an evaluable ODE problem over the
// given time span.
func NewProblem(m *sbml.Model, tspan [2]float64) (*Problem, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model validation failed: %w", err)
	}

	params, _ := m.MergedParameters()
	index := m.SpeciesIndex()
	labels := m.SpeciesIDs()
	p := parser.New(parser.NewContext(m))

	env := make(map[string]float64, len(params)+len(m.Compartments))
	staticKnown := make([]string, 0, len(params)+len(m.Compartments))
	for _, pr := range params {
		env[pr.ID] = pr.Value
		staticKnown = append(staticKnown, pr.ID)
	}
	for _, cp := range m.Compartments {
		env[cp.ID] = cp.Size
		staticKnown = append(staticKnown, cp.ID)
	}

	parsed := make([]rules.Rule, 0, len(m.AssignmentRules))
	for _, r := range m.AssignmentRules {
		expr, err := p.Parse(r.Math)
		if err != nil {
			return nil, fmt.Errorf("assignment rule %s: %w", r.Variable, err)
		}
		parsed = append(parsed, rules.Rule{Variable: r.Variable, Expr: expr})
	}
	static, dynamic := rules.Classify(parsed, staticKnown, labels)
	for _, r := range static {
		v, err := air.Eval(r.Expr, env)
		if err != nil {
			return nil, fmt.Errorf("static rule %s: %w", r.Variable, err)
		}
		env[r.Variable] = v
	}

	y0 := make([]float64, len(labels))
	for i, s := range m.Species {
		y0[i] = s.Value
	}

	initial := make([]rules.Rule, 0, len(m.InitialAssignments))
	for _, r := range m.InitialAssignments {
		expr, err := p.Parse(r.Math)
		if err != nil {
			return nil, fmt.Errorf("initial assignment %s: %w", r.Variable, err)
		}
		initial = append(initial, rules.Rule{Variable: r.Variable, Expr: expr})
	}
	initial, err := rules.SortStrict(initial)
	if err != nil {
		return nil, fmt.Errorf("initial assignment ordering failed: %w", err)
	}
	// Initial assignments see species defaults and t=0; a non-species
	// target overrides its constant for the rest of the run.
	ienv := make(map[string]float64, len(env)+len(labels)+1)
	for k, v := range env {
		ienv[k] = v
	}
	for i, label := range labels {
		ienv[label] = y0[i]
	}
	ienv[parser.TimeSymbol] = 0
	for _, r := range initial {
		v, err := air.Eval(r.Expr, ienv)
		if err != nil {
			return nil, fmt.Errorf("initial assignment %s: %w", r.Variable, err)
		}
		ienv[r.Variable] = v
		if idx, ok := index[r.Variable]; ok {
			y0[idx] = v
		} else {
			env[r.Variable] = v
		}
	}

	odes, err := odesys.Build(m.Reactions, index, p.Parse)
	if err != nil {
		return nil, fmt.Errorf("ode construction failed: %w", err)
	}

	scratch := make(map[string]float64, len(env)+len(labels)+len(dynamic)+1)
	for k, v := range env {
		scratch[k] = v
	}
	return &Problem{
		Labels:  labels,
		Y0:      y0,
		Tspan:   tspan,
		odes:    odes,
		dynamic: dynamic,
		scratch: scratch,
	}, nil
}

// derivatives fills du with dy/dt at (t, u). Dynamic rule targets are
// recomputed before any equation is evaluated.
func (p *Problem) derivatives(t float64, u, du []float64) error {
	env := p.scratch
	env[parser.TimeSymbol] = t
	for i, label := range p.Labels {
		env[label] = u[i]
	}
	for _, r := range p.dynamic {
		v, err := air.Eval(r.Expr, env)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.Variable, err)
		}
		env[r.Variable] = v
	}
	for i, eq := range p.odes {
		v, err := air.Eval(eq, env)
		if err != nil {
			return fmt.Errorf("equation %d: %w", i, err)
		}
		du[i] = v
	}
	return nil
}

// Solution is an integrated trajectory.
type Solution struct {
	T      []float64   // accepted time points
	Y      [][]float64 // state at each time point
	Labels []string
}

// Series returns the trajectory of one species, or nil for an unknown
// label.
func (s *Solution) Series(label string) []float64 {
	idx := -1
	for i, l := range s.Labels {
		if l == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(s.Y))
	for i, state := range s.Y {
		out[i] = state[idx]
	}
	return out
}

// Final returns the last state vector, or nil for an empty solution.
func (s *Solution) Final() []float64 {
	if len(s.Y) == 0 {
		return nil
	}
	return s.Y[len(s.Y)-1]
}

// FinalState returns the last state keyed by species ID.
func (s *Solution) FinalState() map[string]float64 {
	last := s.Final()
	if last == nil {
		return nil
	}
	out := make(map[string]float64, len(s.Labels))
	for i, label := range s.Labels {
		out[label] = last[i]
	}
	return out
}

// Options configures the integrator.
type Options struct {
	Dt       float64 // initial step
	Dtmin    float64 // smallest permitted step
	Dtmax    float64 // largest permitted step
	Abstol   float64 // absolute error tolerance
	Reltol   float64 // relative error tolerance
	Maxiters int     // step budget
	Adaptive bool    // error-controlled step size
}

// DefaultOptions balances accuracy against runtime for typical
// pharmacokinetic time scales.
func DefaultOptions() *Options {
	return &Options{
		Dt:       0.01,
		Dtmin:    1e-6,
		Dtmax:    0.5,
		Abstol:   1e-6,
		Reltol:   1e-3,
		Maxiters: 100000,
		Adaptive: true,
	}
}

// FastOptions trades precision for speed, for interactive previews.
func FastOptions() *Options {
	return &Options{
		Dt:       0.1,
		Dtmin:    1e-4,
		Dtmax:    1.0,
		Abstol:   1e-2,
		Reltol:   1e-2,
		Maxiters: 10000,
		Adaptive: true,
	}
}

// AccurateOptions is for cross-checking generated code, where the
// preview serves as the reference trajectory.
func AccurateOptions() *Options {
	return &Options{
		Dt:       0.001,
		Dtmin:    1e-8,
		Dtmax:    0.1,
		Abstol:   1e-9,
		Reltol:   1e-6,
		Maxiters: 1000000,
		Adaptive: true,
	}
}

// StiffOptions keeps steps small for systems with widely separated
// rate constants. An explicit method only mitigates stiffness, so
// expect long runs.
func StiffOptions() *Options {
	return &Options{
		Dt:       0.001,
		Dtmin:    1e-10,
		Dtmax:    0.01,
		Abstol:   1e-8,
		Reltol:   1e-5,
		Maxiters: 500000,
		Adaptive: true,
	}
}

// Solve integrates the problem. A nil method selects Tsit5, a nil opts
// selects DefaultOptions. When the step budget runs out before the end
// of the span, the partial trajectory is returned together with
// ErrIncomplete.
func Solve(prob *Problem, method *Method, opts *Options) (*Solution, error) {
	if method == nil {
		method = Tsit5()
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	t0, tf := prob.Tspan[0], prob.Tspan[1]
	n := len(prob.Y0)
	stages := len(method.C)

	tOut := []float64{t0}
	yOut := [][]float64{append([]float64(nil), prob.Y0...)}
	tcur := t0
	ucur := append([]float64(nil), prob.Y0...)
	dtcur := opts.Dt
	nsteps := 0

	k := make([][]float64, stages)
	for i := range k {
		k[i] = make([]float64, n)
	}
	ustage := make([]float64, n)

	for tcur < tf && nsteps < opts.Maxiters {
		if tcur+dtcur > tf {
			dtcur = tf - tcur
		}

		if err := prob.derivatives(tcur, ucur, k[0]); err != nil {
			return nil, err
		}
		for stage := 1; stage < stages; stage++ {
			copy(ustage, ucur)
			for j := 0; j < stage; j++ {
				aj := method.A[stage][j]
				if aj == 0 {
					continue
				}
				scale := dtcur * aj
				for i := 0; i < n; i++ {
					ustage[i] += scale * k[j][i]
				}
			}
			if err := prob.derivatives(tcur+method.C[stage]*dtcur, ustage, k[stage]); err != nil {
				return nil, err
			}
		}

		unext := append([]float64(nil), ucur...)
		for j, bj := range method.B {
			if bj == 0 {
				continue
			}
			scale := dtcur * bj
			for i := 0; i < n; i++ {
				unext[i] += scale * k[j][i]
			}
		}

		errEst := 0.0
		if opts.Adaptive {
			for i := 0; i < n; i++ {
				e := 0.0
				for j, bh := range method.Bhat {
					e += dtcur * bh * k[j][i]
				}
				scale := opts.Abstol + opts.Reltol*math.Max(math.Abs(ucur[i]), math.Abs(unext[i]))
				if scale == 0 {
					scale = opts.Abstol
				}
				if v := math.Abs(e) / scale; v > errEst {
					errEst = v
				}
			}
		}

		if !opts.Adaptive || errEst <= 1.0 || dtcur <= opts.Dtmin {
			tcur += dtcur
			ucur = unext
			tOut = append(tOut, tcur)
			yOut = append(yOut, append([]float64(nil), ucur...))
			nsteps++
			if opts.Adaptive && errEst > 0 {
				factor := 0.9 * math.Pow(1.0/errEst, 1.0/float64(method.Order+1))
				factor = math.Min(factor, 5.0)
				dtcur = math.Min(opts.Dtmax, math.Max(opts.Dtmin, dtcur*factor))
			}
		} else {
			factor := 0.9 * math.Pow(1.0/errEst, 1.0/float64(method.Order+1))
			factor = math.Max(factor, 0.1)
			dtcur = math.Max(opts.Dtmin, dtcur*factor)
		}
	}

	sol := &Solution{T: tOut, Y: yOut, Labels: prob.Labels}
	if tcur < tf {
		return sol, fmt.Errorf("%w: stopped at t=%g after %d steps", ErrIncomplete, tcur, nsteps)
	}
	return sol, nil
}

// Preview builds a problem from the model and integrates it to tf with
// default settings.
func Preview(m *sbml.Model, tf float64) (*Solution, error) {
	prob, err := NewProblem(m, [2]float64{0, tf})
	if err != nil {
		return nil, err
	}
	return Solve(prob, nil, nil)
}
