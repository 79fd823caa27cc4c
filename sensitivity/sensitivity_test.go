package sensitivity

import (
	"math"
	"strings"
	"testing"

	"github.com/Crispae/wasm-pk/sbml"
	"github.com/Crispae/wasm-pk/simulate"
	"github.com/Crispae/wasm-pk/templates"
)

// pkModel builds the one-compartment oral dosing model:
// dose 100, ka 1.0, ke 0.1, so Central(24) is close to 10.08.
func pkModel(t *testing.T) *sbml.Model {
	t.Helper()
	tpl, err := templates.Get("onecomp")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m, err := tpl.Generate(nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return m
}

func sirModel(t *testing.T) *sbml.Model {
	t.Helper()
	tpl, err := templates.Get("sir")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m, err := tpl.Generate(nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return m
}

func TestScorers(t *testing.T) {
	sol := &simulate.Solution{
		T:      []float64{0, 1},
		Y:      [][]float64{{1, 2}, {3, 4}},
		Labels: []string{"A", "B"},
	}

	if got := SpeciesScorer("B")(sol); got != 4 {
		t.Errorf("SpeciesScorer = %g, want 4", got)
	}
	if got := DiffScorer("A", "B")(sol); got != -1 {
		t.Errorf("DiffScorer = %g, want -1", got)
	}
	custom := FinalStateScorer(func(final map[string]float64) float64 {
		return final["A"] + final["B"]
	})
	if got := custom(sol); got != 7 {
		t.Errorf("FinalStateScorer = %g, want 7", got)
	}
	if got := PeakScorer("A")(sol); got != 3 {
		t.Errorf("PeakScorer = %g, want 3", got)
	}
	if got := PeakScorer("missing")(sol); got != 0 {
		t.Errorf("PeakScorer on unknown species = %g, want 0", got)
	}
	if got := AUCScorer("A")(sol); got != 2 {
		t.Errorf("AUCScorer = %g, want 2", got)
	}
	if got := AUCScorer("missing")(sol); got != 0 {
		t.Errorf("AUCScorer on unknown species = %g, want 0", got)
	}
}

func TestPeakScorerEpidemic(t *testing.T) {
	sol, err := simulate.Preview(sirModel(t), 100)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	// Analytic peak: I0 + S0 - rho + rho*ln(rho/S0) with rho = gamma/beta
	peak := PeakScorer("I")(sol)
	if peak < 295 || peak > 312 {
		t.Errorf("epidemic peak = %g, want near 303.8", peak)
	}
}

func TestAnalyzeKnockouts(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central")).WithTimeSpan(0, 24)

	res, err := analyzer.AnalyzeKnockouts()
	if err != nil {
		t.Fatalf("AnalyzeKnockouts: %v", err)
	}

	if res.Baseline < 9.6 || res.Baseline > 10.6 {
		t.Errorf("baseline = %g, want near 10.08", res.Baseline)
	}
	if len(res.Scores) != 3 {
		t.Fatalf("scores for %d parameters, want 3", len(res.Scores))
	}

	// Without absorption nothing reaches the central compartment
	if res.Scores["ka"] != 0 {
		t.Errorf("ka knockout score = %g, want 0", res.Scores["ka"])
	}
	if res.Scores["dose"] != 0 {
		t.Errorf("dose knockout score = %g, want 0", res.Scores["dose"])
	}
	// Without elimination the full dose accumulates
	if res.Scores["ke"] < 99 || res.Scores["ke"] > 100.5 {
		t.Errorf("ke knockout score = %g, want near 100", res.Scores["ke"])
	}

	if math.Abs(res.Impact["ka"]+res.Baseline) > 1e-12 {
		t.Errorf("ka impact = %g, want -baseline", res.Impact["ka"])
	}

	// ke dominates; the tied zero-score knockouts rank by name
	wantOrder := []string{"ke", "dose", "ka"}
	for i, want := range wantOrder {
		if res.Ranking[i].Name != want {
			t.Errorf("ranking[%d] = %s, want %s", i, res.Ranking[i].Name, want)
		}
	}
}

func TestAnalyzeKnockoutsParallel(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central")).
		WithTimeSpan(0, 24).
		WithOptions(simulate.FastOptions())

	par, err := analyzer.AnalyzeKnockoutsParallel()
	if err != nil {
		t.Fatalf("AnalyzeKnockoutsParallel: %v", err)
	}
	seq, err := analyzer.AnalyzeKnockouts()
	if err != nil {
		t.Fatalf("AnalyzeKnockouts: %v", err)
	}

	if math.Abs(par.Baseline-seq.Baseline) > 1e-12 {
		t.Errorf("parallel baseline %g != sequential %g", par.Baseline, seq.Baseline)
	}
	for name, want := range seq.Scores {
		if got := par.Scores[name]; math.Abs(got-want) > 1e-12 {
			t.Errorf("score[%s] = %g parallel vs %g sequential", name, got, want)
		}
	}
	for i := range seq.Ranking {
		if par.Ranking[i].Name != seq.Ranking[i].Name {
			t.Errorf("ranking[%d] differs: %s vs %s", i, par.Ranking[i].Name, seq.Ranking[i].Name)
		}
	}
}

func TestSweepParameter(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central")).WithTimeSpan(0, 24)

	res, err := analyzer.SweepParameter("ke", []float64{0.05, 0.1, 0.2})
	if err != nil {
		t.Fatalf("SweepParameter: %v", err)
	}

	if len(res.Scores) != 3 {
		t.Fatalf("got %d scores, want 3", len(res.Scores))
	}
	// Slower elimination leaves more drug at 24h
	if !(res.Scores[0] > res.Scores[1] && res.Scores[1] > res.Scores[2]) {
		t.Errorf("scores not decreasing in ke: %v", res.Scores)
	}
	if res.Best.Value != 0.05 {
		t.Errorf("best ke = %g, want 0.05", res.Best.Value)
	}
	if res.Worst.Value != 0.2 {
		t.Errorf("worst ke = %g, want 0.2", res.Worst.Value)
	}
}

func TestSweepParameterRange(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central")).WithTimeSpan(0, 24)

	res, err := analyzer.SweepParameterRange("ke", 0.1, 0.3, 3)
	if err != nil {
		t.Fatalf("SweepParameterRange: %v", err)
	}
	want := []float64{0.1, 0.2, 0.3}
	for i, v := range res.Values {
		if math.Abs(v-want[i]) > 1e-9 {
			t.Errorf("value[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestSweepUnknownParameter(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central"))
	_, err := analyzer.SweepParameter("nope", []float64{1})
	if err == nil || !strings.Contains(err.Error(), "unknown parameter") {
		t.Errorf("expected unknown parameter error, got %v", err)
	}
}

func TestGradient(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central")).WithTimeSpan(0, 24)

	// Central(24) scales linearly with dose, so the slope is Central(24)/100
	g, err := analyzer.Gradient("dose", 0)
	if err != nil {
		t.Fatalf("Gradient(dose): %v", err)
	}
	if g < 0.08 || g > 0.12 {
		t.Errorf("dose gradient = %g, want near 0.1008", g)
	}

	g, err = analyzer.Gradient("ke", 0.01)
	if err != nil {
		t.Fatalf("Gradient(ke): %v", err)
	}
	if g > -205 || g < -260 {
		t.Errorf("ke gradient = %g, want near -232", g)
	}

	if _, err := analyzer.Gradient("nope", 0); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestAllGradients(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central")).WithTimeSpan(0, 24)

	grads, err := analyzer.AllGradients(0)
	if err != nil {
		t.Fatalf("AllGradients: %v", err)
	}
	if len(grads) != 3 {
		t.Fatalf("got %d gradients, want 3", len(grads))
	}
	if grads["dose"] <= 0 {
		t.Errorf("dose gradient = %g, want positive", grads["dose"])
	}
	if grads["ke"] >= 0 {
		t.Errorf("ke gradient = %g, want negative", grads["ke"])
	}

	par, err := analyzer.AllGradientsParallel(0)
	if err != nil {
		t.Fatalf("AllGradientsParallel: %v", err)
	}
	for name, want := range grads {
		if got := par[name]; math.Abs(got-want) > 1e-12 {
			t.Errorf("parallel gradient[%s] = %g, want %g", name, got, want)
		}
	}
}

func TestGridSearch(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central")).WithTimeSpan(0, 24)

	grid := NewGridSearch(analyzer).
		AddParameter("dose", []float64{50, 100}).
		AddParameter("ke", []float64{0.1, 0.2})

	res, err := grid.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Combinations) != 4 || len(res.Scores) != 4 {
		t.Fatalf("got %d combinations, %d scores, want 4 each", len(res.Combinations), len(res.Scores))
	}
	// dose is first alphabetically so it varies fastest
	if res.Combinations[0]["dose"] != 50 || res.Combinations[0]["ke"] != 0.1 {
		t.Errorf("combination[0] = %v", res.Combinations[0])
	}
	if res.Combinations[3]["dose"] != 100 || res.Combinations[3]["ke"] != 0.2 {
		t.Errorf("combination[3] = %v", res.Combinations[3])
	}

	// Highest remaining amount: full dose with slow elimination
	if res.Best.Parameters["dose"] != 100 || res.Best.Parameters["ke"] != 0.1 {
		t.Errorf("best parameters = %v", res.Best.Parameters)
	}
	if res.Best.Index != 1 {
		t.Errorf("best index = %d, want 1", res.Best.Index)
	}
	if res.Best.Score < 9.6 || res.Best.Score > 10.6 {
		t.Errorf("best score = %g, want near 10.08", res.Best.Score)
	}
}

func TestGridSearchRange(t *testing.T) {
	analyzer := NewAnalyzer(pkModel(t), SpeciesScorer("Central")).WithTimeSpan(0, 12)

	res, err := NewGridSearch(analyzer).
		AddParameterRange("ke", 0.1, 0.5, 3).
		Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Combinations) != 3 {
		t.Errorf("got %d combinations, want 3", len(res.Combinations))
	}
}
