package rust

import (
	"fmt"
	"strings"

	"github.com/Crispae/wasm-pk/sbml"
)

// Components holds the rendered sections Assemble stitches into one
// compilable source file. Section strings carry no trailing newline;
// empty optional sections are omitted together with their headers.
type Components struct {
	ModelName     string
	NumSpecies    int
	NumParameters int
	NumReactions  int

	ParamFields        string
	ParamExtract       string
	StaticRules        string
	InitialDefaults    string
	InitialAssignments string
	InitialOverrides   string

	StateExtract string
	DynamicRules string
	TempVars     string
	Derivatives  string
	Jacobian     string

	ResultVectors string
	InitialPushes string
	LoopPushes    string
	MapInserts    string

	Events EventBlocks

	// RHSUsesTime and JacUsesTime pick the closure time parameter name,
	// underscore-prefixed when nothing in the body reads it. JacUsesV
	// does the same for the direction vector of the Jacobian product.
	RHSUsesTime bool
	JacUsesTime bool
	JacUsesV    bool

	ParametersInfo string
	SpeciesInfo    string
	DefaultParams  string
}

const filePrelude = `use diffsol::{OdeBuilder, OdeSolverMethod, OdeSolverStopReason, Vector};
use wasm_bindgen::prelude::*;
use serde::{Deserialize, Serialize};
use std::collections::HashMap;

type M = diffsol::NalgebraMat<f64>;
type LS = diffsol::NalgebraLU<f64>;

#[derive(Serialize, Deserialize)]
pub struct SimulationResult {
    pub species: std::collections::HashMap<String, Vec<f64>>,
    pub time: Vec<f64>,
}

`

const consolePrelude = `#[wasm_bindgen]
extern "C" {
    #[wasm_bindgen(js_namespace = console)]
    fn log(s: &str);
}

macro_rules! console_log {
    ($($t:tt)*) => (log(&format_args!($($t)*).to_string()))
}

`

const runHead = `#[wasm_bindgen]
pub fn run_simulation(params: &str) -> String {
    console_log!("Starting simulation...");

    let sim_params: SimulationParams = match serde_json::from_str(params) {
        Ok(p) => p,
        Err(e) => {
            console_log!("Error parsing params: {}", e);
            return serde_json::to_string(&SimulationResult {
                species: HashMap::new(),
                time: vec![],
            }).unwrap();
        }
    };

`

// Assemble renders the complete generated file: header, data structs,
// the simulation entry point with its solver loop, and the metadata
// accessors.
func Assemble(c Components) string {
	var b strings.Builder
	b.Grow(1 << 14)

	b.WriteString("#![recursion_limit = \"256\"]\n")
	b.WriteString("#![allow(non_snake_case, unused_parens)]\n")
	fmt.Fprintf(&b, "// Generated WASM-compatible Rust code from SBML model: %s\n", c.ModelName)
	b.WriteString("// CSE-optimized derivatives and analytic Jacobian\n\n")
	b.WriteString(filePrelude)

	b.WriteString("#[derive(Serialize, Deserialize)]\n")
	b.WriteString("pub struct SimulationParams {\n")
	b.WriteString(c.ParamFields)
	b.WriteString("\n    // Initial amounts (optional, for runtime dosing)\n")
	b.WriteString("    pub initial_values: Option<HashMap<String, f64>>,\n")
	b.WriteString("    pub final_time: Option<f64>,\n")
	b.WriteString("}\n\n")

	b.WriteString(consolePrelude)
	b.WriteString(runHead)

	if c.ParamExtract != "" {
		b.WriteString(c.ParamExtract + "\n\n")
	}
	if c.StaticRules != "" {
		b.WriteString("    // Assignment Rules\n")
		b.WriteString(c.StaticRules + "\n\n")
	}

	fmt.Fprintf(&b, "    let mut y0 = vec![0.0_f64; %d];\n", c.NumSpecies)
	b.WriteString(c.InitialDefaults + "\n")
	if c.InitialAssignments != "" {
		b.WriteString("\n    // Initial Assignments\n")
		b.WriteString(c.InitialAssignments + "\n")
	}
	b.WriteString("\n    // Runtime initial value overrides\n")
	b.WriteString(c.InitialOverrides + "\n\n")

	if c.Events.RootFn != "" {
		b.WriteString(c.Events.RootFn + "\n\n")
	}

	b.WriteString("    // RHS Closure\n")
	fmt.Fprintf(&b, "    let rhs = |y: &diffsol::NalgebraVec<f64>, _p: &diffsol::NalgebraVec<f64>, %s: f64, dy: &mut diffsol::NalgebraVec<f64>| {\n",
		timeParam(c.RHSUsesTime))
	writeClosureBody(&b, c)
	b.WriteString("\n        // Derivatives\n")
	b.WriteString(c.Derivatives + "\n")
	b.WriteString("    };\n\n")

	b.WriteString("    // Jacobian Closure (Matrix-Vector Product)\n")
	fmt.Fprintf(&b, "    let jac = |y: &diffsol::NalgebraVec<f64>, _p: &diffsol::NalgebraVec<f64>, %s: f64, %s: &diffsol::NalgebraVec<f64>, jv: &mut diffsol::NalgebraVec<f64>| {\n",
		timeParam(c.JacUsesTime), vectorParam(c.JacUsesV))
	b.WriteString("        for i in 0..jv.len() { jv[i] = 0.0; }\n\n")
	writeClosureBody(&b, c)
	if c.Jacobian != "" {
		b.WriteString("\n        // Jacobian-Vector Product\n")
		b.WriteString(c.Jacobian + "\n")
	}
	b.WriteString("    };\n\n")

	b.WriteString("    let init = move |_y0: &diffsol::NalgebraVec<f64>, _t: f64, y: &mut diffsol::NalgebraVec<f64>| {\n")
	fmt.Fprintf(&b, "        for i in 0..%d { y[i] = y0[i]; }\n", c.NumSpecies)
	b.WriteString("    };\n\n")

	b.WriteString("    let problem = OdeBuilder::<M>::new()\n")
	b.WriteString("        .rhs_implicit(rhs, jac)\n")
	fmt.Fprintf(&b, "        .init(init, %d)\n", c.NumSpecies)
	if c.Events.Registration != "" {
		fmt.Fprintf(&b, "        %s\n", c.Events.Registration)
	}
	b.WriteString("        .build()\n")
	b.WriteString("        .unwrap();\n\n")

	b.WriteString("    let mut solver = problem.bdf::<LS>().unwrap();\n")
	b.WriteString("    let mut time = Vec::new();\n\n")
	b.WriteString("    // Initialize result vectors\n")
	b.WriteString(c.ResultVectors + "\n\n")
	b.WriteString(c.InitialPushes + "\n")
	b.WriteString("    time.push(0.0);\n\n")

	b.WriteString("    let final_time = sim_params.final_time.unwrap_or(24.0);\n")
	b.WriteString("    solver.set_stop_time(final_time).unwrap();\n")
	b.WriteString("    loop {\n")
	b.WriteString("        match solver.step() {\n")
	b.WriteString("            Ok(OdeSolverStopReason::InternalTimestep) => {\n")
	b.WriteString(c.LoopPushes + "\n")
	b.WriteString("                time.push(solver.state().t);\n")
	b.WriteString("            },\n")
	if c.Events.Handling != "" {
		b.WriteString(c.Events.Handling + "\n")
	} else {
		b.WriteString("            Ok(OdeSolverStopReason::RootFound(_)) => break,\n")
	}
	b.WriteString("            Ok(OdeSolverStopReason::TstopReached) => break,\n")
	b.WriteString("            Err(_) => panic!(\"Solver Error\"),\n")
	b.WriteString("        }\n")
	b.WriteString("    }\n\n")

	b.WriteString("    let mut species_map = HashMap::new();\n")
	b.WriteString(c.MapInserts + "\n\n")
	b.WriteString("    let result = SimulationResult {\n")
	b.WriteString("        time,\n")
	b.WriteString("        species: species_map,\n")
	b.WriteString("    };\n\n")
	b.WriteString("    serde_json::to_string(&result).unwrap()\n")
	b.WriteString("}\n\n")

	writeMetadata(&b, c)
	return b.String()
}

func writeClosureBody(b *strings.Builder, c Components) {
	b.WriteString("        // Map species names to y indices\n")
	b.WriteString(c.StateExtract + "\n")
	if c.DynamicRules != "" {
		b.WriteString("\n        // Assignment Rules\n")
		b.WriteString(c.DynamicRules + "\n")
	}
	if c.TempVars != "" {
		b.WriteString("\n        // Temporary variables (CSE)\n")
		b.WriteString(c.TempVars + "\n")
	}
}

func writeMetadata(b *strings.Builder, c Components) {
	b.WriteString("#[wasm_bindgen]\n")
	b.WriteString("pub fn get_model_metadata() -> String {\n")
	b.WriteString("    let metadata = serde_json::json!({\n")
	fmt.Fprintf(b, "        \"model_id\": %q,\n", c.ModelName)
	fmt.Fprintf(b, "        \"num_species\": %d,\n", c.NumSpecies)
	fmt.Fprintf(b, "        \"num_parameters\": %d,\n", c.NumParameters)
	fmt.Fprintf(b, "        \"num_reactions\": %d\n", c.NumReactions)
	b.WriteString("    });\n")
	b.WriteString("    serde_json::to_string(&metadata).unwrap()\n")
	b.WriteString("}\n\n")

	b.WriteString("#[wasm_bindgen]\n")
	b.WriteString("pub fn get_parameters_info() -> String {\n")
	if c.ParametersInfo == "" {
		b.WriteString("    let params = serde_json::json!([]);\n")
	} else {
		b.WriteString("    let params = serde_json::json!([\n")
		b.WriteString(c.ParametersInfo + "\n")
		b.WriteString("    ]);\n")
	}
	b.WriteString("    serde_json::to_string(&params).unwrap()\n")
	b.WriteString("}\n\n")

	b.WriteString("#[wasm_bindgen]\n")
	b.WriteString("pub fn get_species_info() -> String {\n")
	if c.SpeciesInfo == "" {
		b.WriteString("    let species = serde_json::json!([]);\n")
	} else {
		b.WriteString("    let species = serde_json::json!([\n")
		b.WriteString(c.SpeciesInfo + "\n")
		b.WriteString("    ]);\n")
	}
	b.WriteString("    serde_json::to_string(&species).unwrap()\n")
	b.WriteString("}\n\n")

	b.WriteString("#[wasm_bindgen]\n")
	b.WriteString("pub fn get_default_parameters() -> String {\n")
	b.WriteString("    let defaults = serde_json::json!({\n")
	if c.DefaultParams != "" {
		b.WriteString(c.DefaultParams + "\n")
	}
	b.WriteString("        \"final_time\": 24.0\n")
	b.WriteString("    });\n")
	b.WriteString("    serde_json::to_string(&defaults).unwrap()\n")
	b.WriteString("}\n")
}

func timeParam(used bool) string {
	if used {
		return "t"
	}
	return "_t"
}

func vectorParam(used bool) string {
	if used {
		return "v"
	}
	return "_v"
}

// ParametersInfoJSON renders the entries of the descriptor array served
// by get_parameters_info. Every value is optional at runtime, so all
// entries report required false.
func ParametersInfoJSON(params []sbml.Parameter, compartments []sbml.Compartment) string {
	var entries []string
	seen := make(map[string]struct{}, len(params))
	add := func(id string, value float64) {
		entries = append(entries, fmt.Sprintf(
			"        {\n            \"id\": %q,\n            \"default_value\": %s,\n            \"required\": false\n        }",
			id, formatFloat(value)))
	}
	for _, p := range params {
		add(p.ID, p.Value)
		seen[p.ID] = struct{}{}
	}
	for _, cp := range compartments {
		if _, dup := seen[cp.ID]; dup {
			continue
		}
		add(cp.ID, cp.Size)
	}
	return strings.Join(entries, ",\n")
}

// SpeciesInfoJSON renders the entries of the descriptor array served by
// get_species_info.
func SpeciesInfoJSON(species []sbml.Species) string {
	entries := make([]string, len(species))
	for i, s := range species {
		entries[i] = fmt.Sprintf(
			"        {\n            \"id\": %q,\n            \"initial_amount\": %s\n        }",
			s.ID, formatFloat(s.Value))
	}
	return strings.Join(entries, ",\n")
}

// DefaultParamsJSON renders the body of the defaults object served by
// get_default_parameters. Every line keeps a trailing comma since the
// final_time entry follows.
func DefaultParamsJSON(params []sbml.Parameter, compartments []sbml.Compartment) string {
	var lines []string
	seen := make(map[string]struct{}, len(params))
	add := func(id string, value float64) {
		lines = append(lines, fmt.Sprintf("        %q: %s,", id, formatFloat(value)))
	}
	for _, p := range params {
		add(p.ID, p.Value)
		seen[p.ID] = struct{}{}
	}
	for _, cp := range compartments {
		if _, dup := seen[cp.ID]; dup {
			continue
		}
		add(cp.ID, cp.Size)
	}
	return strings.Join(lines, "\n")
}
