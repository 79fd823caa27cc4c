package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Crispae/wasm-pk/cse"
	"github.com/Crispae/wasm-pk/sbml"
)

// twoCompartmentModel is a small absorption/elimination system with one
// rule of each kind, an initial assignment and a re-dosing event.
func twoCompartmentModel() *sbml.Model {
	return &sbml.Model{
		Name: "TwoComp",
		Parameters: []sbml.Parameter{
			{ID: "ka", Value: 1.0, IsConstant: true},
			{ID: "ke", Value: 0.1, IsConstant: true},
			{ID: "dose", Value: 100, IsConstant: true},
			{ID: "unused", Value: 0.3, IsConstant: true},
		},
		Compartments: []sbml.Compartment{
			{ID: "gut", Size: 1, IsConstant: true},
			{ID: "central", Size: 5, IsConstant: true},
		},
		Species: []sbml.Species{
			{ID: "Gut", Compartment: "gut"},
			{ID: "Central", Compartment: "central"},
		},
		Reactions: []sbml.Reaction{
			{
				ID:        "absorption",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Gut"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Central"}},
				RateLaw:   "ka * Gut",
			},
			{
				ID:        "elimination",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Central"}},
				RateLaw:   "ke * Central",
			},
		},
		AssignmentRules: []sbml.Rule{
			{ID: "conc_rule", Variable: "conc", Math: "Central / central"},
			{ID: "vd_rule", Variable: "Vd", Math: "central * 2"},
		},
		InitialAssignments: []sbml.Rule{
			{ID: "ia_gut", Variable: "Gut", Math: "dose"},
		},
		Events: []sbml.Event{
			{
				ID:      "redose",
				Trigger: "t >= 12",
				EventAssignments: []sbml.EventAssignment{
					{Variable: "Gut", Math: "Gut + dose"},
				},
			},
		},
	}
}

func TestCompileTwoCompartment(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	art, err := c.Compile(twoCompartmentModel())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if art.ID == "" {
		t.Error("artifact has no ID")
	}
	if art.ModelID != "TwoComp" {
		t.Errorf("ModelID = %q, want TwoComp", art.ModelID)
	}
	if art.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	s := art.Stats
	if s.Species != 2 || s.Parameters != 4 || s.Reactions != 2 {
		t.Errorf("counts = %d species, %d parameters, %d reactions", s.Species, s.Parameters, s.Reactions)
	}
	if s.StaticRules != 1 || s.DynamicRules != 1 {
		t.Errorf("rules = %d static, %d dynamic, want 1 each", s.StaticRules, s.DynamicRules)
	}
	if s.InitialAssignments != 1 || s.Events != 1 {
		t.Errorf("initial assignments = %d, events = %d", s.InitialAssignments, s.Events)
	}
	if s.JacobianNonZero != 3 {
		t.Errorf("JacobianNonZero = %d, want 3", s.JacobianNonZero)
	}
	if s.JacobianFill != 0.75 {
		t.Errorf("JacobianFill = %v, want 0.75", s.JacobianFill)
	}
	if s.CSE.Level != 2 {
		t.Errorf("CSE.Level = %d, want 2", s.CSE.Level)
	}
	if s.CSE.Temporaries != 1 {
		t.Errorf("CSE.Temporaries = %d, want 1", s.CSE.Temporaries)
	}

	for _, want := range []string{
		"#![recursion_limit = \"256\"]",
		"// Generated WASM-compatible Rust code from SBML model: TwoComp",
		"    pub ka: Option<f64>,",
		"    pub dose: Option<f64>,",
		"    pub central: Option<f64>,",
		"    let ka = sim_params.ka.unwrap_or(1.0);",
		"    let dose = sim_params.dose.unwrap_or(100.0);",
		"    let _unused = sim_params.unused.unwrap_or(0.3);",
		"    let _gut = sim_params.gut.unwrap_or(1.0);",
		"    let Vd = 2.0*central;",
		"    // Initial Assignments\n    y0[0] = dose;",
		"m.get(\"Gut\")) { y0[0] = *v; }",
		"    let rhs = |y: &diffsol::NalgebraVec<f64>, _p: &diffsol::NalgebraVec<f64>, _t: f64, dy: &mut diffsol::NalgebraVec<f64>| {",
		"        let Gut = y[0];",
		"        let Central = y[1];",
		"        let conc = Central/central;",
		"        let x0 = Gut*ka;",
		"        dy[0] = -x0;",
		"        dy[1] = x0 - Central*ke;",
		"        jv[0] += (-ka) * v[0];",
		"        jv[1] += (ka) * v[0];",
		"        jv[1] += (-ke) * v[1];",
		"        .root(1, root_fn)",
		"        roots[0] = (t >= 12.0) as i32 as f64 - 0.5;",
		"solver.state_mut().y[0] = solver.state().y[0] + dose;",
		"\"model_id\": \"TwoComp\",",
	} {
		if !strings.Contains(art.Source, want) {
			t.Errorf("source missing %q", want)
		}
	}
	if strings.Contains(art.Source, "Ok(OdeSolverStopReason::RootFound(_)) => break,") {
		t.Error("event model should not keep the bare RootFound arm")
	}
	t.Logf("generated %d bytes", len(art.Source))
}

func TestCompileBareModel(t *testing.T) {
	m := &sbml.Model{
		Name:    "Bare",
		Species: []sbml.Species{{ID: "S", Value: 5}},
	}
	art, err := Compile(m)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if art.Stats.CSE.Level != DefaultOptLevel {
		t.Errorf("CSE.Level = %d, want %d", art.Stats.CSE.Level, DefaultOptLevel)
	}
	if art.Stats.JacobianNonZero != 0 {
		t.Errorf("JacobianNonZero = %d, want 0", art.Stats.JacobianNonZero)
	}

	for _, want := range []string{
		"    y0[0] = 5.0;",
		"        let _S = y[0];",
		"        dy[0] = 0.0;",
		"_t: f64, dy: &mut diffsol::NalgebraVec<f64>| {",
		"_v: &diffsol::NalgebraVec<f64>, jv: &mut diffsol::NalgebraVec<f64>| {",
		"            Ok(OdeSolverStopReason::RootFound(_)) => break,",
		"    let params = serde_json::json!([]);",
	} {
		if !strings.Contains(art.Source, want) {
			t.Errorf("source missing %q", want)
		}
	}
	if strings.Contains(art.Source, ".root(") {
		t.Error("model without events should not register a root function")
	}
	if strings.Contains(art.Source, "// Jacobian-Vector Product") {
		t.Error("empty Jacobian should omit the product section")
	}
}

func TestCompileRejectsBadModels(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.Compile(&sbml.Model{Name: "empty"}); !errors.Is(err, sbml.ErrNoSpecies) {
		t.Errorf("empty model: got %v, want ErrNoSpecies", err)
	}

	rated := &sbml.Model{
		Name:      "rated",
		Species:   []sbml.Species{{ID: "S"}},
		RateRules: []sbml.Rule{{Variable: "S", Math: "1"}},
	}
	if _, err := c.Compile(rated); !errors.Is(err, sbml.ErrUnsupportedConstruct) {
		t.Errorf("rate rule model: got %v, want ErrUnsupportedConstruct", err)
	}

	broken := twoCompartmentModel()
	broken.Reactions[0].RateLaw = "ka +* Gut"
	_, err = c.Compile(broken)
	if err == nil {
		t.Fatal("broken rate law accepted")
	}
	if !strings.Contains(err.Error(), "absorption") {
		t.Errorf("error %q does not name the reaction", err)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(7); !errors.Is(err, cse.ErrBadLevel) {
		t.Errorf("got %v, want ErrBadLevel", err)
	}
}

func TestArtifactSummaryAndWriteFile(t *testing.T) {
	art, err := Compile(twoCompartmentModel())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	sum := art.Summary()
	for _, want := range []string{"Compilation Summary", "TwoComp", "Non-zero Entries:  3"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q", want)
		}
	}

	path := filepath.Join(t.TempDir(), "out", "model.rs")
	if err := art.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != art.Source {
		t.Error("written file differs from artifact source")
	}
}
