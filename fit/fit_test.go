package fit

import (
	"math"
	"strings"
	"testing"

	"github.com/Crispae/wasm-pk/sbml"
	"github.com/Crispae/wasm-pk/simulate"
	"github.com/Crispae/wasm-pk/templates"
)

func pkModel(t *testing.T, overrides map[string]interface{}) *sbml.Model {
	t.Helper()
	tpl, err := templates.Get("onecomp")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m, err := tpl.Generate(overrides)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return m
}

func paramValue(t *testing.T, m *sbml.Model, id string) float64 {
	t.Helper()
	for _, p := range m.Parameters {
		if p.ID == id {
			return p.Value
		}
	}
	t.Fatalf("parameter %s not found", id)
	return 0
}

// rampSolution is a small hand-checkable trajectory: A falls 100 to 0,
// B rises 0 to 100 over t in [0, 2].
func rampSolution() *simulate.Solution {
	return &simulate.Solution{
		T:      []float64{0, 1, 2},
		Y:      [][]float64{{100, 0}, {50, 50}, {0, 100}},
		Labels: []string{"A", "B"},
	}
}

func TestNewDataset(t *testing.T) {
	ds, err := NewDataset(
		[]float64{0, 1, 2},
		map[string][]float64{
			"B": {0, 50, 100},
			"A": {100, 50, 0},
		},
	)
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if len(ds.Species) != 2 || ds.Species[0] != "A" || ds.Species[1] != "B" {
		t.Errorf("species not sorted: %v", ds.Species)
	}
}

func TestDatasetValidation(t *testing.T) {
	_, err := NewDataset(nil, map[string][]float64{"A": {1}})
	if err == nil {
		t.Error("expected error for empty times")
	}

	_, err = NewDataset([]float64{0, 1}, map[string][]float64{"A": {1, 2, 3}})
	if err == nil {
		t.Fatal("expected error for length mismatch")
	}
	if !strings.Contains(err.Error(), "3 values, want 2") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMSELoss(t *testing.T) {
	sol := rampSolution()

	perfect, err := NewDataset(sol.T, map[string][]float64{
		"A": {100, 50, 0},
		"B": {0, 50, 100},
	})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if l := MSELoss(sol, perfect); l > 1e-9 {
		t.Errorf("perfect fit loss = %g, want 0", l)
	}

	// A off by 0,10,10 and B off by 0,10,10: sum of squares 400 over 6 points
	noisy, err := NewDataset(sol.T, map[string][]float64{
		"A": {100, 60, 10},
		"B": {0, 40, 90},
	})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	want := 400.0 / 6.0
	if l := MSELoss(sol, noisy); math.Abs(l-want) > 0.01 {
		t.Errorf("MSELoss = %g, want %g", l, want)
	}

	// Species absent from the solution contribute nothing
	missing, err := NewDataset(sol.T, map[string][]float64{"C": {1, 2, 3}})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if l := MSELoss(sol, missing); l != 0 {
		t.Errorf("loss with no matching species = %g, want 0", l)
	}
}

func TestRMSELoss(t *testing.T) {
	sol := rampSolution()
	ds, err := NewDataset(sol.T, map[string][]float64{
		"A": {100, 60, 10},
		"B": {0, 40, 90},
	})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	mse := MSELoss(sol, ds)
	rmse := RMSELoss(sol, ds)
	if math.Abs(rmse-math.Sqrt(mse)) > 1e-12 {
		t.Errorf("RMSELoss = %g, want sqrt(%g) = %g", rmse, mse, math.Sqrt(mse))
	}
}

func TestRelativeMSELoss(t *testing.T) {
	sol := rampSolution()
	ds, err := NewDataset(sol.T, map[string][]float64{
		"A": {100, 60, 10},
		"B": {0, 40, 90},
	})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	meanA := 170.0 / 3.0
	meanB := 130.0 / 3.0
	want := (200.0/(meanA*meanA) + 200.0/(meanB*meanB)) / 6.0
	if l := RelativeMSELoss(sol, ds); math.Abs(l-want) > 1e-9 {
		t.Errorf("RelativeMSELoss = %g, want %g", l, want)
	}
}

func TestInterpolate(t *testing.T) {
	sol := &simulate.Solution{
		T:      []float64{0, 10, 20},
		Y:      [][]float64{{0, 100}, {10, 50}, {20, 0}},
		Labels: []string{"A", "B"},
	}

	exact := Interpolate(sol, []float64{0, 10, 20}, "A")
	for i, want := range []float64{0, 10, 20} {
		if math.Abs(exact[i]-want) > 1e-12 {
			t.Errorf("exact[%d] = %g, want %g", i, exact[i], want)
		}
	}

	mid := Interpolate(sol, []float64{5, 15}, "A")
	if math.Abs(mid[0]-5) > 1e-12 || math.Abs(mid[1]-15) > 1e-12 {
		t.Errorf("midpoints = %v, want [5 15]", mid)
	}

	clamped := Interpolate(sol, []float64{-5, 25}, "B")
	if clamped[0] != 100 || clamped[1] != 0 {
		t.Errorf("clamped = %v, want [100 0]", clamped)
	}

	if got := Interpolate(sol, []float64{0}, "C"); got != nil {
		t.Errorf("unknown species = %v, want nil", got)
	}
}

func TestSample(t *testing.T) {
	sol := &simulate.Solution{
		T:      []float64{0, 10, 20},
		Y:      [][]float64{{0, 100}, {10, 50}, {20, 0}},
		Labels: []string{"A", "B"},
	}

	ds, err := Sample(sol, []float64{0, 5, 10}, []string{"A", "B"})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	wantA := []float64{0, 5, 10}
	wantB := []float64{100, 75, 50}
	for i := range ds.Times {
		if math.Abs(ds.Observations["A"][i]-wantA[i]) > 1e-12 {
			t.Errorf("A[%d] = %g, want %g", i, ds.Observations["A"][i], wantA[i])
		}
		if math.Abs(ds.Observations["B"][i]-wantB[i]) > 1e-12 {
			t.Errorf("B[%d] = %g, want %g", i, ds.Observations["B"][i], wantB[i])
		}
	}

	if _, err := Sample(sol, []float64{0}, []string{"nope"}); err == nil {
		t.Error("expected error for unknown species")
	}
}

func TestGenerateUniformTimes(t *testing.T) {
	times := GenerateUniformTimes(0, 10, 11)
	if len(times) != 11 {
		t.Fatalf("len = %d, want 11", len(times))
	}
	if times[0] != 0 || times[10] != 10 {
		t.Errorf("endpoints = %g, %g, want 0, 10", times[0], times[10])
	}
	for i := 1; i < len(times); i++ {
		if math.Abs(times[i]-times[i-1]-1.0) > 1e-12 {
			t.Errorf("spacing at %d = %g, want 1", i, times[i]-times[i-1])
		}
	}

	single := GenerateUniformTimes(5, 10, 1)
	if len(single) != 1 || single[0] != 5 {
		t.Errorf("single = %v, want [5]", single)
	}
}

func TestNewProblemValidation(t *testing.T) {
	m := pkModel(t, nil)

	if _, err := NewProblem(m, nil, [2]float64{0, 24}); err == nil {
		t.Error("expected error for no parameters")
	}
	if _, err := NewProblem(m, []string{"bogus"}, [2]float64{0, 24}); err == nil {
		t.Error("expected error for unknown parameter")
	} else if !strings.Contains(err.Error(), "unknown parameter") {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := NewProblem(m, []string{"ke", "ke"}, [2]float64{0, 24}); err == nil {
		t.Error("expected error for duplicate parameter")
	}

	prob, err := NewProblem(m, []string{"ke", "dose"}, [2]float64{0, 24})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	names := prob.Names()
	if len(names) != 2 || names[0] != "ke" || names[1] != "dose" {
		t.Fatalf("Names = %v", names)
	}
	names[0] = "mutated"
	if prob.Names()[0] != "ke" {
		t.Error("Names should return a copy")
	}
}

func TestFitUnknownMethod(t *testing.T) {
	m := pkModel(t, nil)
	prob, err := NewProblem(m, []string{"ke"}, [2]float64{0, 24})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	ds, err := NewDataset([]float64{0, 12, 24}, map[string][]float64{"Central": {0, 20, 10}})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	opts := DefaultFitOptions()
	opts.Method = "bogus"
	if _, err := Fit(prob, ds, nil, opts); err == nil {
		t.Fatal("expected error for unknown method")
	} else if !strings.Contains(err.Error(), "unknown optimization method") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFitRecoversEliminationRate(t *testing.T) {
	truth := pkModel(t, map[string]interface{}{"ke": 0.25})
	solTrue, err := simulate.Preview(truth, 24)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	times := GenerateUniformTimes(0, 24, 13)
	data, err := Sample(solTrue, times, []string{"Central"})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	m := pkModel(t, nil) // starts at ke = 0.1
	prob, err := NewProblem(m, []string{"ke"}, [2]float64{0, 24})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}

	res, err := Fit(prob, data, MSELoss, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if math.Abs(res.Params["ke"]-0.25) > 0.01 {
		t.Errorf("fitted ke = %g, want 0.25", res.Params["ke"])
	}
	if !res.Converged {
		t.Error("fit did not converge")
	}
	if res.FinalLoss >= res.InitialLoss {
		t.Errorf("loss did not improve: %g -> %g", res.InitialLoss, res.FinalLoss)
	}
	if res.FinalLoss > 0.1 {
		t.Errorf("final loss = %g, want near 0", res.FinalLoss)
	}

	fitted := res.Apply(m)
	if got := paramValue(t, fitted, "ke"); math.Abs(got-res.Params["ke"]) > 1e-12 {
		t.Errorf("Apply set ke = %g, want %g", got, res.Params["ke"])
	}
	if got := paramValue(t, m, "ke"); got != 0.1 {
		t.Errorf("Apply mutated the original model: ke = %g", got)
	}
}

func TestFitRecoversDoseCoordinateDescent(t *testing.T) {
	truth := pkModel(t, map[string]interface{}{"dose": 80.0})
	solTrue, err := simulate.Preview(truth, 24)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	times := GenerateUniformTimes(0, 24, 13)
	data, err := Sample(solTrue, times, []string{"Central"})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	m := pkModel(t, nil) // starts at dose = 100
	prob, err := NewProblem(m, []string{"dose"}, [2]float64{0, 24})
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}

	opts := &FitOptions{
		MaxIters:  500,
		Tolerance: 1e-6,
		Method:    CoordinateDescent,
		StepSize:  10,
		Solver:    simulate.DefaultOptions(),
	}
	res, err := Fit(prob, data, MSELoss, opts)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if math.Abs(res.Params["dose"]-80) > 0.5 {
		t.Errorf("fitted dose = %g, want 80", res.Params["dose"])
	}
	if !res.Converged {
		t.Error("fit did not converge")
	}
	if res.FinalLoss > opts.Tolerance {
		t.Errorf("final loss = %g, want below %g", res.FinalLoss, opts.Tolerance)
	}
}
