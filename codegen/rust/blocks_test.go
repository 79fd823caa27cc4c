package rust

import (
	"strings"
	"testing"

	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/cse"
	"github.com/Crispae/wasm-pk/odesys"
	"github.com/Crispae/wasm-pk/rules"
	"github.com/Crispae/wasm-pk/sbml"
)

func TestTempVars(t *testing.T) {
	w := NewBlockWriter()
	reps := []cse.Replacement{
		{Name: "x0", Expr: air.Add(air.Sym("a"), air.Sym("b"))},
		{Name: "x1", Expr: air.Mul(air.Sym("x0"), air.Sym("c"))},
	}
	got := w.TempVars(reps)
	want := "        let x0 = a + b;\n        let x1 = x0*c;"
	if got != want {
		t.Errorf("TempVars() = %q, want %q", got, want)
	}
}

func TestDerivatives(t *testing.T) {
	w := NewBlockWriter()
	exprs := []air.Expr{
		air.Neg(air.Mul(air.Sym("A"), air.Sym("k1"))),
		air.Mul(air.Sym("A"), air.Sym("k1")),
	}
	got := w.Derivatives(exprs)
	want := "        dy[0] = -(A*k1);\n        dy[1] = A*k1;"
	if got != want {
		t.Errorf("Derivatives() = %q, want %q", got, want)
	}
}

func TestJacobianProducts(t *testing.T) {
	w := NewBlockWriter()
	entries := []odesys.Entry{
		{Row: 0, Col: 0, Expr: air.Neg(air.Sym("k1"))},
		{Row: 1, Col: 0, Expr: air.Sym("k1")},
	}
	got := w.JacobianProducts(entries)
	want := "        jv[0] += (-k1) * v[0];\n        jv[1] += (k1) * v[0];"
	if got != want {
		t.Errorf("JacobianProducts() = %q, want %q", got, want)
	}
}

func TestStateExtractionUnderscoresUnused(t *testing.T) {
	w := NewBlockWriter()
	used := map[string]struct{}{"A": {}}
	got := w.StateExtraction([]string{"A", "B"}, used)
	want := "        let A = y[0];\n        let _B = y[1];"
	if got != want {
		t.Errorf("StateExtraction() = %q, want %q", got, want)
	}
}

func TestParamExtraction(t *testing.T) {
	w := NewBlockWriter()
	params := []sbml.Parameter{
		{ID: "k1", Value: 0.5},
		{ID: "k2", Value: 2},
	}
	comps := []sbml.Compartment{{ID: "cell", Size: 1}}
	used := map[string]struct{}{"k1": {}, "cell": {}}

	got := w.ParamExtraction(params, comps, used)
	for _, line := range []string{
		"    let k1 = sim_params.k1.unwrap_or(0.5);",
		"    let _k2 = sim_params.k2.unwrap_or(2.0);",
		"    let cell = sim_params.cell.unwrap_or(1.0);",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("ParamExtraction() missing %q in %q", line, got)
		}
	}
}

func TestParamExtractionSkipsDuplicateCompartment(t *testing.T) {
	w := NewBlockWriter()
	params := []sbml.Parameter{{ID: "cell", Value: 2}}
	comps := []sbml.Compartment{{ID: "cell", Size: 1}}
	used := map[string]struct{}{"cell": {}}

	got := w.ParamExtraction(params, comps, used)
	if strings.Count(got, "let cell") != 1 {
		t.Errorf("expected a single binding for cell, got %q", got)
	}
	if !strings.Contains(got, "unwrap_or(2.0)") {
		t.Errorf("parameter default should win over compartment size, got %q", got)
	}
}

func TestRuleBlocksIndentByScope(t *testing.T) {
	w := NewBlockWriter()
	list := []rules.Rule{{Variable: "Vb", Expr: air.Mul(air.Sym("BW"), air.Num(0.08))}}

	if got, want := w.StaticRules(list), "    let Vb = BW*0.08;"; got != want {
		t.Errorf("StaticRules() = %q, want %q", got, want)
	}
	if got, want := w.DynamicRules(list), "        let Vb = BW*0.08;"; got != want {
		t.Errorf("DynamicRules() = %q, want %q", got, want)
	}
}

func TestInitialStateBlocks(t *testing.T) {
	w := NewBlockWriter()
	species := []sbml.Species{
		{ID: "A", Value: 1},
		{ID: "B", Value: 0},
	}

	defaults := w.InitialDefaults(species)
	if want := "    y0[0] = 1.0;\n    y0[1] = 0.0;"; defaults != want {
		t.Errorf("InitialDefaults() = %q, want %q", defaults, want)
	}

	overrides := w.InitialOverrides(species)
	want := `    if let Some(v) = sim_params.initial_values.as_ref().and_then(|m| m.get("A")) { y0[0] = *v; }`
	if !strings.Contains(overrides, want) {
		t.Errorf("InitialOverrides() missing %q in %q", want, overrides)
	}
}

func TestInitialAssignmentsTargetSplit(t *testing.T) {
	w := NewBlockWriter()
	list := []rules.Rule{
		{Variable: "A", Expr: air.Mul(air.Sym("dose"), air.Num(2))},
		{Variable: "kEff", Expr: air.Add(air.Sym("k1"), air.Sym("k2"))},
	}
	got := w.InitialAssignments(list, map[string]int{"A": 0, "B": 1})
	want := "    y0[0] = dose*2.0;\n    let kEff = k1 + k2;"
	if got != want {
		t.Errorf("InitialAssignments() = %q, want %q", got, want)
	}
}

func TestResultBlocksUseRustIdentifiers(t *testing.T) {
	w := NewBlockWriter()
	ids := []string{"GutLumen", "B-2"}

	vectors := w.ResultVectors(ids)
	if !strings.Contains(vectors, "let mut gutlumen = Vec::new();") {
		t.Errorf("ResultVectors() missing sanitized binding, got %q", vectors)
	}
	if !strings.Contains(vectors, "let mut b_2 = Vec::new();") {
		t.Errorf("ResultVectors() should sanitize B-2, got %q", vectors)
	}

	pushes := w.ResultPushes(ids, "    ")
	if !strings.Contains(pushes, "    gutlumen.push(solver.state().y[0]);") {
		t.Errorf("ResultPushes() missing push, got %q", pushes)
	}

	inserts := w.MapInserts(ids)
	if !strings.Contains(inserts, `        species_map.insert("b_2".to_string(), b_2);`) {
		t.Errorf("MapInserts() missing insert, got %q", inserts)
	}
}

func TestParamFields(t *testing.T) {
	params := []sbml.Parameter{{ID: "k1", Value: 0.5}}
	comps := []sbml.Compartment{{ID: "cell", Size: 1}, {ID: "k1", Size: 3}}

	got := ParamFields(params, comps)
	want := "    pub k1: Option<f64>,\n    pub cell: Option<f64>,\n"
	if got != want {
		t.Errorf("ParamFields() = %q, want %q", got, want)
	}
}

func TestUsedSymbols(t *testing.T) {
	groups := [][]air.Expr{
		{air.Mul(air.Sym("A"), air.Sym("k1"))},
		{air.Sym("t")},
	}
	used := UsedSymbols(groups...)
	for _, want := range []string{"A", "k1", "t"} {
		if _, ok := used[want]; !ok {
			t.Errorf("UsedSymbols() missing %s", want)
		}
	}
	if _, ok := used["B"]; ok {
		t.Error("UsedSymbols() should not invent symbols")
	}
}
