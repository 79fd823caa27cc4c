package templates

import (
	"math"
	"strings"
	"testing"

	"github.com/Crispae/wasm-pk/compiler"
	"github.com/Crispae/wasm-pk/simulate"
)

func TestListSorted(t *testing.T) {
	want := []string{"enzyme", "onecomp", "seir", "sir", "twocomp"}
	got := List()
	if len(got) != len(want) {
		t.Fatalf("List() returned %d names, want %d: %v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestGetUnknown(t *testing.T) {
	if _, err := Get("threecomp"); err == nil {
		t.Fatal("expected error for unknown template")
	} else if !strings.Contains(err.Error(), "unknown template") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerateDefaults(t *testing.T) {
	for key, tmpl := range Registry {
		if tmpl.Name() != key {
			t.Errorf("registry key %q holds template named %q", key, tmpl.Name())
		}
		m, err := tmpl.Generate(nil)
		if err != nil {
			t.Fatalf("%s: Generate failed: %v", key, err)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("%s: generated model does not validate: %v", key, err)
		}
		if len(tmpl.Parameters()) == 0 {
			t.Errorf("%s: template declares no parameters", key)
		}
	}
}

func TestGenerateOverrides(t *testing.T) {
	tmpl, err := Get("sir")
	if err != nil {
		t.Fatal(err)
	}
	m, err := tmpl.Generate(map[string]interface{}{
		"population":       500,
		"initial_infected": 50,
		"recovery_rate":    0.25,
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Species[0].Value != 450 {
		t.Errorf("S = %v, want 450", m.Species[0].Value)
	}
	if m.Species[1].Value != 50 {
		t.Errorf("I = %v, want 50", m.Species[1].Value)
	}
	for _, p := range m.Parameters {
		if p.ID == "gamma" && p.Value != 0.25 {
			t.Errorf("gamma = %v, want 0.25", p.Value)
		}
	}
}

func TestTemplatesCompile(t *testing.T) {
	for _, name := range List() {
		tmpl, err := Get(name)
		if err != nil {
			t.Fatal(err)
		}
		m, err := tmpl.Generate(nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		art, err := compiler.Compile(m)
		if err != nil {
			t.Fatalf("%s: compile failed: %v", name, err)
		}
		if art.Source == "" {
			t.Errorf("%s: empty generated source", name)
		}
	}
}

func TestEnzymeKinetics(t *testing.T) {
	tmpl, err := Get("enzyme")
	if err != nil {
		t.Fatal(err)
	}
	m, err := tmpl.Generate(nil)
	if err != nil {
		t.Fatal(err)
	}
	sol, err := simulate.Preview(m, 20)
	if err != nil {
		t.Fatal(err)
	}

	final := sol.FinalState()
	if total := final["S"] + final["P"]; math.Abs(total-10) > 1e-6 {
		t.Errorf("substrate+product = %v, want 10", total)
	}
	if final["P"] < 8 || final["P"] > 10 {
		t.Errorf("product = %v, want most substrate converted by t=20", final["P"])
	}
}

func TestSIRConservation(t *testing.T) {
	tmpl, err := Get("sir")
	if err != nil {
		t.Fatal(err)
	}
	m, err := tmpl.Generate(nil)
	if err != nil {
		t.Fatal(err)
	}
	sol, err := simulate.Preview(m, 30)
	if err != nil {
		t.Fatal(err)
	}

	for i, state := range sol.Y {
		total := state[0] + state[1] + state[2]
		if math.Abs(total-1000) > 1e-6 {
			t.Fatalf("population not conserved at t=%v: %v", sol.T[i], total)
		}
	}
}
