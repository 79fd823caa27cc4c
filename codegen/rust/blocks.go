package rust

import (
	"fmt"
	"strings"

	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/cse"
	"github.com/Crispae/wasm-pk/odesys"
	"github.com/Crispae/wasm-pk/rules"
	"github.com/Crispae/wasm-pk/sbml"
)

// BlockWriter composes printed expressions into the statement sections
// of the generated file. Closure-body sections indent eight spaces,
// function-body sections four.
type BlockWriter struct {
	p *Printer
}

// NewBlockWriter returns a BlockWriter with a fresh printer.
func NewBlockWriter() *BlockWriter { return &BlockWriter{p: NewPrinter()} }

// Printer exposes the underlying expression printer.
func (w *BlockWriter) Printer() *Printer { return w.p }

// UsedSymbols collects every free symbol appearing in the given
// expression groups. Extraction sections consult it so bindings nothing
// reads are emitted underscore-prefixed and the generated file stays
// warning-free.
func UsedSymbols(groups ...[]air.Expr) map[string]struct{} {
	used := make(map[string]struct{})
	for _, group := range groups {
		for _, e := range group {
			for sym := range air.FreeSymbols(e) {
				used[sym] = struct{}{}
			}
		}
	}
	return used
}

// RuleExprs returns the expressions of a rule list, for UsedSymbols.
func RuleExprs(list []rules.Rule) []air.Expr {
	out := make([]air.Expr, len(list))
	for i, r := range list {
		out[i] = r.Expr
	}
	return out
}

// TempVars renders the CSE temporary bindings.
func (w *BlockWriter) TempVars(reps []cse.Replacement) string {
	lines := make([]string, len(reps))
	for i, rep := range reps {
		lines[i] = fmt.Sprintf("        let %s = %s;", rep.Name, w.p.PrintFormatted(rep.Expr))
	}
	return strings.Join(lines, "\n")
}

// Derivatives renders the dy assignments, one per state index.
func (w *BlockWriter) Derivatives(exprs []air.Expr) string {
	lines := make([]string, len(exprs))
	for i, e := range exprs {
		lines[i] = fmt.Sprintf("        dy[%d] = %s;", i, w.p.Print(e))
	}
	return strings.Join(lines, "\n")
}

// JacobianProducts renders the sparse Jacobian-vector accumulation.
func (w *BlockWriter) JacobianProducts(entries []odesys.Entry) string {
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = fmt.Sprintf("        jv[%d] += (%s) * v[%d];", entry.Row, w.p.Print(entry.Expr), entry.Col)
	}
	return strings.Join(lines, "\n")
}

// StateExtraction renders the species bindings read from the state
// vector inside a closure.
func (w *BlockWriter) StateExtraction(speciesIDs []string, used map[string]struct{}) string {
	lines := make([]string, len(speciesIDs))
	for i, id := range speciesIDs {
		name := id
		if _, ok := used[id]; !ok {
			name = "_" + id
		}
		lines[i] = fmt.Sprintf("        let %s = y[%d];", name, i)
	}
	return strings.Join(lines, "\n")
}

// ParamExtraction renders the parameter and compartment bindings from
// the deserialized params struct, falling back to model defaults.
func (w *BlockWriter) ParamExtraction(params []sbml.Parameter, compartments []sbml.Compartment, used map[string]struct{}) string {
	var lines []string
	seen := make(map[string]struct{}, len(params))
	emit := func(id string, value float64) {
		name := id
		if _, ok := used[id]; !ok {
			name = "_" + id
		}
		lines = append(lines, fmt.Sprintf("    let %s = sim_params.%s.unwrap_or(%s);", name, id, formatFloat(value)))
	}
	for _, p := range params {
		emit(p.ID, p.Value)
		seen[p.ID] = struct{}{}
	}
	for _, c := range compartments {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		emit(c.ID, c.Size)
	}
	return strings.Join(lines, "\n")
}

// StaticRules renders rules that only depend on constants; they run
// once per simulation, outside the closures.
func (w *BlockWriter) StaticRules(list []rules.Rule) string {
	lines := make([]string, len(list))
	for i, r := range list {
		lines[i] = fmt.Sprintf("    let %s = %s;", r.Variable, w.p.PrintFormatted(r.Expr))
	}
	return strings.Join(lines, "\n")
}

// DynamicRules renders rules that must be re-evaluated on every solver
// call, inside the closures after state extraction.
func (w *BlockWriter) DynamicRules(list []rules.Rule) string {
	lines := make([]string, len(list))
	for i, r := range list {
		lines[i] = fmt.Sprintf("        let %s = %s;", r.Variable, w.p.PrintFormatted(r.Expr))
	}
	return strings.Join(lines, "\n")
}

// InitialDefaults renders the model initial amounts into the y0
// vector.
func (w *BlockWriter) InitialDefaults(species []sbml.Species) string {
	lines := make([]string, len(species))
	for i, s := range species {
		lines[i] = fmt.Sprintf("    y0[%d] = %s;", i, formatFloat(s.Value))
	}
	return strings.Join(lines, "\n")
}

// InitialOverrides renders the runtime per-species overrides. They run
// after defaults and initial assignments, so an explicit caller value
// always wins.
func (w *BlockWriter) InitialOverrides(species []sbml.Species) string {
	lines := make([]string, len(species))
	for i, s := range species {
		lines[i] = fmt.Sprintf(
			"    if let Some(v) = sim_params.initial_values.as_ref().and_then(|m| m.get(%q)) { y0[%d] = *v; }",
			s.ID, i)
	}
	return strings.Join(lines, "\n")
}

// InitialAssignments renders the sorted initial assignments. A species
// target overwrites its slot of the initial condition vector; any other
// target becomes a binding that shadows the parameter default.
func (w *BlockWriter) InitialAssignments(list []rules.Rule, speciesIndex map[string]int) string {
	lines := make([]string, len(list))
	for i, r := range list {
		if idx, ok := speciesIndex[r.Variable]; ok {
			lines[i] = fmt.Sprintf("    y0[%d] = %s;", idx, w.p.Print(r.Expr))
			continue
		}
		lines[i] = fmt.Sprintf("    let %s = %s;", r.Variable, w.p.Print(r.Expr))
	}
	return strings.Join(lines, "\n")
}

// ResultVectors renders one trajectory vector per species.
func (w *BlockWriter) ResultVectors(speciesIDs []string) string {
	lines := make([]string, len(speciesIDs))
	for i, id := range speciesIDs {
		lines[i] = fmt.Sprintf("    let mut %s = Vec::new();", sbml.RustIdentifier(id))
	}
	return strings.Join(lines, "\n")
}

// ResultPushes renders the per-step state recording at the given
// indentation.
func (w *BlockWriter) ResultPushes(speciesIDs []string, indent string) string {
	lines := make([]string, len(speciesIDs))
	for i, id := range speciesIDs {
		lines[i] = fmt.Sprintf("%s%s.push(solver.state().y[%d]);", indent, sbml.RustIdentifier(id), i)
	}
	return strings.Join(lines, "\n")
}

// MapInserts renders the trajectory map population.
func (w *BlockWriter) MapInserts(speciesIDs []string) string {
	lines := make([]string, len(speciesIDs))
	for i, id := range speciesIDs {
		rid := sbml.RustIdentifier(id)
		lines[i] = fmt.Sprintf("        species_map.insert(%q.to_string(), %s);", rid, rid)
	}
	return strings.Join(lines, "\n")
}

// ParamFields renders the optional override fields of the params
// struct, one per parameter and non-duplicate compartment.
func ParamFields(params []sbml.Parameter, compartments []sbml.Compartment) string {
	var b strings.Builder
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		fmt.Fprintf(&b, "    pub %s: Option<f64>,\n", p.ID)
		seen[p.ID] = struct{}{}
	}
	for _, c := range compartments {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		fmt.Fprintf(&b, "    pub %s: Option<f64>,\n", c.ID)
	}
	return b.String()
}
