// Package compiler orchestrates the full translation flow:
// Model → Expression Trees → ODE System + Jacobian → Optimized Source
package compiler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/codegen/rust"
	"github.com/Crispae/wasm-pk/cse"
	"github.com/Crispae/wasm-pk/odesys"
	"github.com/Crispae/wasm-pk/parser"
	"github.com/Crispae/wasm-pk/rules"
	"github.com/Crispae/wasm-pk/sbml"
)

// DefaultOptLevel is the optimization level used by the package-level
// Compile: subexpression extraction plus the negative-power guards.
const DefaultOptLevel = 2

// Compiler turns models into simulation source files. Construct with
// New; the zero value has no optimizer.
type Compiler struct {
	opt *cse.Optimizer
}

// New creates a compiler generating at the given optimization level
// (0 emits expressions untouched, 3 is the most aggressive).
func New(level int) (*Compiler, error) {
	opt, err := cse.New(level)
	if err != nil {
		return nil, err
	}
	return &Compiler{opt: opt}, nil
}

// Stats summarizes one compilation run.
type Stats struct {
	Species            int           `json:"species"`
	Parameters         int           `json:"parameters"`
	Reactions          int           `json:"reactions"`
	StaticRules        int           `json:"staticRules"`
	DynamicRules       int           `json:"dynamicRules"`
	InitialAssignments int           `json:"initialAssignments"`
	Events             int           `json:"events"`
	JacobianNonZero    int           `json:"jacobianNonZero"`
	JacobianFill       float64       `json:"jacobianFill"`
	CSE                cse.Stats     `json:"cse"`
	Elapsed            time.Duration `json:"elapsed"`
}

// Artifact is the durable output of one compilation.
type Artifact struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"modelId"`
	Source    string    `json:"source"`
	Stats     Stats     `json:"stats"`
	CreatedAt time.Time `json:"createdAt"`
}

// Compile runs the full pipeline for one model.
func (c *Compiler) Compile(m *sbml.Model) (*Artifact, error) {
	start := time.Now()

	// Step 1: reject constructs the generated code cannot express.
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model validation failed: %w", err)
	}

	// Step 2: merge reaction-local parameters into one namespace.
	params, qualified := m.MergedParameters()
	if len(qualified) > 0 {
		slog.Warn("local parameter names collide with globals, qualified by reaction",
			"parameters", qualified)
	}
	index := m.SpeciesIndex()
	speciesIDs := m.SpeciesIDs()
	p := parser.New(parser.NewContext(m))

	slog.Info("compiling model",
		"model", m.Name,
		"species", len(speciesIDs),
		"parameters", len(params),
		"reactions", len(m.Reactions))

	// Step 3: parse assignment rules and split them by variability.
	parsed, err := parseRules(p, m.AssignmentRules, "assignment rule")
	if err != nil {
		return nil, err
	}
	staticKnown := make([]string, 0, len(params)+len(m.Compartments))
	for _, pr := range params {
		staticKnown = append(staticKnown, pr.ID)
	}
	for _, cp := range m.Compartments {
		staticKnown = append(staticKnown, cp.ID)
	}
	static, dynamic := rules.Classify(parsed, staticKnown, speciesIDs)

	// Step 4: parse initial assignments and order them strictly.
	initial, err := parseRules(p, m.InitialAssignments, "initial assignment")
	if err != nil {
		return nil, err
	}
	if initial, err = rules.SortStrict(initial); err != nil {
		return nil, fmt.Errorf("initial assignment ordering failed: %w", err)
	}

	// Step 5: assemble the ODE system and differentiate it.
	odes, err := odesys.Build(m.Reactions, index, p.Parse)
	if err != nil {
		return nil, fmt.Errorf("ode construction failed: %w", err)
	}
	entries := odesys.SparseJacobian(odes, speciesIDs)
	fill := odesys.Sparsity(entries, len(speciesIDs))

	// Step 6: extract shared subexpressions across RHS and Jacobian.
	jacExprs := make([]air.Expr, len(entries))
	for i, e := range entries {
		jacExprs[i] = e.Expr
	}
	temps, odes, jacExprs := c.opt.OptimizeCombined(odes, jacExprs)
	for i := range entries {
		entries[i].Expr = jacExprs[i]
	}
	cseStats := c.opt.Stats()

	// Step 7: render the source blocks and assemble the file.
	w := rust.NewBlockWriter()
	events := w.Events(m.Events, index, p.Parse)

	tempExprs := make([]air.Expr, len(temps))
	for i, r := range temps {
		tempExprs[i] = r.Expr
	}
	dynExprs := rust.RuleExprs(dynamic)

	// The state extraction, dynamic rules and temporaries appear in both
	// closures, so species visibility is decided over the union while the
	// time and direction-vector parameters are decided per closure.
	closureUsed := rust.UsedSymbols(odes, jacExprs, tempExprs, dynExprs)
	rhsUsed := rust.UsedSymbols(odes, tempExprs, dynExprs)
	jacUsed := rust.UsedSymbols(jacExprs, tempExprs, dynExprs)
	paramUsed := rust.UsedSymbols(odes, jacExprs, tempExprs, dynExprs,
		rust.RuleExprs(static), rust.RuleExprs(initial), events.Exprs)

	_, rhsTime := rhsUsed[parser.TimeSymbol]
	_, jacTime := jacUsed[parser.TimeSymbol]

	comps := rust.Components{
		ModelName:     modelName(m),
		NumSpecies:    len(speciesIDs),
		NumParameters: len(params),
		NumReactions:  len(m.Reactions),

		ParamFields:        rust.ParamFields(params, m.Compartments),
		ParamExtract:       w.ParamExtraction(params, m.Compartments, paramUsed),
		StaticRules:        w.StaticRules(static),
		InitialDefaults:    w.InitialDefaults(m.Species),
		InitialAssignments: w.InitialAssignments(initial, index),
		InitialOverrides:   w.InitialOverrides(m.Species),

		StateExtract: w.StateExtraction(speciesIDs, closureUsed),
		DynamicRules: w.DynamicRules(dynamic),
		TempVars:     w.TempVars(temps),
		Derivatives:  w.Derivatives(odes),
		Jacobian:     w.JacobianProducts(entries),

		ResultVectors: w.ResultVectors(speciesIDs),
		InitialPushes: w.ResultPushes(speciesIDs, "    "),
		LoopPushes:    w.ResultPushes(speciesIDs, "                "),
		MapInserts:    w.MapInserts(speciesIDs),

		Events: events,

		RHSUsesTime: rhsTime,
		JacUsesTime: jacTime,
		JacUsesV:    len(entries) > 0,

		ParametersInfo: rust.ParametersInfoJSON(params, m.Compartments),
		SpeciesInfo:    rust.SpeciesInfoJSON(m.Species),
		DefaultParams:  rust.DefaultParamsJSON(params, m.Compartments),
	}
	source := rust.Assemble(comps)

	art := &Artifact{
		ID:      uuid.NewString(),
		ModelID: modelName(m),
		Source:  source,
		Stats: Stats{
			Species:            len(speciesIDs),
			Parameters:         len(params),
			Reactions:          len(m.Reactions),
			StaticRules:        len(static),
			DynamicRules:       len(dynamic),
			InitialAssignments: len(initial),
			Events:             len(m.Events),
			JacobianNonZero:    len(entries),
			JacobianFill:       fill,
			CSE:                cseStats,
			Elapsed:            time.Since(start),
		},
		CreatedAt: time.Now().UTC(),
	}
	slog.Info("compilation finished",
		"model", art.ModelID,
		"bytes", len(source),
		"temporaries", cseStats.Temporaries,
		"elapsed", art.Stats.Elapsed)
	return art, nil
}

// parseRules parses the math of every rule in list, aborting on the
// first failure.
func parseRules(p *parser.Parser, list []sbml.Rule, kind string) ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(list))
	for _, r := range list {
		expr, err := p.Parse(r.Math)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, r.Variable, err)
		}
		slog.Debug("parsed rule", "kind", kind, "variable", r.Variable)
		out = append(out, rules.Rule{Variable: r.Variable, Expr: expr})
	}
	return out, nil
}

func modelName(m *sbml.Model) string {
	if m.Name == "" {
		return "model"
	}
	return m.Name
}

// WriteFile writes the artifact source to path, creating parent
// directories as needed.
func (a *Artifact) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(a.Source), 0644); err != nil {
		return fmt.Errorf("failed to write source: %w", err)
	}
	return nil
}

// Summary returns a human-readable account of the compilation.
func (a *Artifact) Summary() string {
	return fmt.Sprintf(`Compilation Summary
===================
Model:               %s
Species:             %d
Parameters:          %d
Reactions:           %d
Assignment Rules:    %d static, %d dynamic
Initial Assignments: %d
Events:              %d

Jacobian:
  Non-zero Entries:  %d
  Fill:              %.1f%%

Optimization (level %d):
  Temporaries:       %d
  Safe Rewrites:     %d

Generated Code:      %d bytes in %s`,
		a.ModelID,
		a.Stats.Species,
		a.Stats.Parameters,
		a.Stats.Reactions,
		a.Stats.StaticRules,
		a.Stats.DynamicRules,
		a.Stats.InitialAssignments,
		a.Stats.Events,
		a.Stats.JacobianNonZero,
		100*a.Stats.JacobianFill,
		a.Stats.CSE.Level,
		a.Stats.CSE.Temporaries,
		a.Stats.CSE.SafeRewrites,
		len(a.Source),
		a.Stats.Elapsed.Round(time.Millisecond),
	)
}

// Compile runs a model through a fresh compiler at DefaultOptLevel.
func Compile(m *sbml.Model) (*Artifact, error) {
	c, err := New(DefaultOptLevel)
	if err != nil {
		return nil, err
	}
	return c.Compile(m)
}
