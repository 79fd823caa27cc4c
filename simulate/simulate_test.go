package simulate

import (
	"errors"
	"math"
	"testing"

	"github.com/Crispae/wasm-pk/sbml"
)

// decayModel is dA/dt = -k*A with A(0)=10.
func decayModel(k float64) *sbml.Model {
	return &sbml.Model{
		Name:       "decay",
		Parameters: []sbml.Parameter{{ID: "k", Value: k, IsConstant: true}},
		Species:    []sbml.Species{{ID: "A", Value: 10}},
		Reactions: []sbml.Reaction{
			{
				ID:        "elim",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "A"}},
				RateLaw:   "k * A",
			},
		},
	}
}

func TestNewProblem(t *testing.T) {
	m := decayModel(0.5)
	m.Parameters = append(m.Parameters, sbml.Parameter{ID: "dose", Value: 100, IsConstant: true})
	m.InitialAssignments = []sbml.Rule{{ID: "ia", Variable: "A", Math: "dose"}}

	prob, err := NewProblem(m, [2]float64{0, 24})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	if len(prob.Labels) != 1 || prob.Labels[0] != "A" {
		t.Errorf("Labels = %v", prob.Labels)
	}
	if prob.Y0[0] != 100 {
		t.Errorf("Y0[0] = %v, want 100 from the initial assignment", prob.Y0[0])
	}
	if prob.Tspan != [2]float64{0, 24} {
		t.Errorf("Tspan = %v", prob.Tspan)
	}
}

func TestNewProblemRejectsBadModel(t *testing.T) {
	if _, err := NewProblem(&sbml.Model{Name: "empty"}, [2]float64{0, 1}); !errors.Is(err, sbml.ErrNoSpecies) {
		t.Errorf("got %v, want ErrNoSpecies", err)
	}

	broken := decayModel(0.5)
	broken.Reactions[0].RateLaw = "k +* A"
	if _, err := NewProblem(broken, [2]float64{0, 1}); err == nil {
		t.Error("broken rate law accepted")
	}
}

func TestSolveExponentialDecay(t *testing.T) {
	prob, err := NewProblem(decayModel(0.5), [2]float64{0, 2})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	sol, err := Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	want := 10 * math.Exp(-1)
	got := sol.Final()[0]
	if math.Abs(got-want) > 0.02 {
		t.Errorf("A(2) = %v, want %v", got, want)
	}
	if sol.T[len(sol.T)-1] != 2 {
		t.Errorf("final time = %v, want 2", sol.T[len(sol.T)-1])
	}
}

func TestSolveConservation(t *testing.T) {
	m := &sbml.Model{
		Name:       "transfer",
		Parameters: []sbml.Parameter{{ID: "k", Value: 0.7, IsConstant: true}},
		Species: []sbml.Species{
			{ID: "A", Value: 10},
			{ID: "B", Value: 0},
		},
		Reactions: []sbml.Reaction{
			{
				ID:        "move",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "A"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "B"}},
				RateLaw:   "k * A",
			},
		},
	}
	prob, err := NewProblem(m, [2]float64{0, 5})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	sol, err := Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i, state := range sol.Y {
		if total := state[0] + state[1]; math.Abs(total-10) > 1e-9 {
			t.Fatalf("mass not conserved at step %d: total = %v", i, total)
		}
	}
}

func TestSolveDynamicRule(t *testing.T) {
	// conc is recomputed every step, so the rate stays ke*A.
	m := &sbml.Model{
		Name:         "ruled",
		Parameters:   []sbml.Parameter{{ID: "ke", Value: 0.3, IsConstant: true}},
		Compartments: []sbml.Compartment{{ID: "V", Size: 2, IsConstant: true}},
		Species:      []sbml.Species{{ID: "A", Value: 10, Compartment: "V"}},
		AssignmentRules: []sbml.Rule{
			{ID: "conc_rule", Variable: "conc", Math: "A / V"},
		},
		Reactions: []sbml.Reaction{
			{
				ID:        "elim",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "A"}},
				RateLaw:   "ke * conc * V",
			},
		},
	}
	prob, err := NewProblem(m, [2]float64{0, 3})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	sol, err := Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := 10 * math.Exp(-0.9)
	if got := sol.Final()[0]; math.Abs(got-want) > 0.02 {
		t.Errorf("A(3) = %v, want %v", got, want)
	}
}

func TestSolveStaticRuleFolded(t *testing.T) {
	m := decayModel(0.25)
	m.AssignmentRules = []sbml.Rule{{ID: "scale_rule", Variable: "scale", Math: "2 * k"}}
	m.Reactions[0].RateLaw = "scale * A"

	prob, err := NewProblem(m, [2]float64{0, 2})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	sol, err := Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := 10 * math.Exp(-1)
	if got := sol.Final()[0]; math.Abs(got-want) > 0.02 {
		t.Errorf("A(2) = %v, want %v", got, want)
	}
}

func TestSolveInitialAssignmentConstant(t *testing.T) {
	// kEff exists only through its initial assignment.
	m := decayModel(0.25)
	m.InitialAssignments = []sbml.Rule{{ID: "ia_keff", Variable: "kEff", Math: "k * 2"}}
	m.Reactions[0].RateLaw = "kEff * A"

	prob, err := NewProblem(m, [2]float64{0, 2})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	sol, err := Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := 10 * math.Exp(-1)
	if got := sol.Final()[0]; math.Abs(got-want) > 0.02 {
		t.Errorf("A(2) = %v, want %v", got, want)
	}
}

func TestSolveTimeDependentRate(t *testing.T) {
	// dA/dt = -t*A integrates to A0*exp(-t^2/2).
	m := decayModel(1)
	m.Reactions[0].RateLaw = "t * A"

	prob, err := NewProblem(m, [2]float64{0, 1})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	sol, err := Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := 10 * math.Exp(-0.5)
	if got := sol.Final()[0]; math.Abs(got-want) > 0.02 {
		t.Errorf("A(1) = %v, want %v", got, want)
	}
}

func TestSolveIncomplete(t *testing.T) {
	prob, err := NewProblem(decayModel(0.5), [2]float64{0, 1000})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	opts := DefaultOptions()
	opts.Maxiters = 3
	sol, err := Solve(prob, nil, opts)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("got %v, want ErrIncomplete", err)
	}
	if sol == nil || len(sol.T) == 0 {
		t.Fatal("partial trajectory not returned")
	}
	if len(sol.T) > 4 {
		t.Errorf("got %d time points from a 3-step budget", len(sol.T))
	}
}

func TestSolutionLookups(t *testing.T) {
	sol := &Solution{
		T:      []float64{0, 1},
		Y:      [][]float64{{10, 0}, {5, 5}},
		Labels: []string{"A", "B"},
	}

	a := sol.Series("A")
	if len(a) != 2 || a[0] != 10 || a[1] != 5 {
		t.Errorf("Series(A) = %v", a)
	}
	if sol.Series("missing") != nil {
		t.Error("unknown label should return nil")
	}
	final := sol.FinalState()
	if final["A"] != 5 || final["B"] != 5 {
		t.Errorf("FinalState = %v", final)
	}

	empty := &Solution{Labels: []string{"A"}}
	if empty.Final() != nil || empty.FinalState() != nil {
		t.Error("empty solution should have nil final state")
	}
}

func TestPreview(t *testing.T) {
	sol, err := Preview(decayModel(0.5), 2)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	want := 10 * math.Exp(-1)
	if got := sol.Final()[0]; math.Abs(got-want) > 0.02 {
		t.Errorf("A(2) = %v, want %v", got, want)
	}
}
