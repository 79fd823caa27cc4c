package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Crispae/wasm-pk/odesys"
	"github.com/Crispae/wasm-pk/parser"
	"github.com/Crispae/wasm-pk/rules"
)

func inspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	template := fs.String("template", "", "Inspect a named template instead of a file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: wasmpk inspect <model-file>

Show the structure of an SBML model (JSON), how its assignment rules
classify into static and dynamic, and the shape of its Jacobian,
without generating any code.

Examples:
  wasmpk inspect model.json
  wasmpk inspect --template twocomp
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	modelFile := ""
	if fs.NArg() > 0 {
		modelFile = fs.Arg(0)
	}
	model, err := loadModel(modelFile, *template)
	if err != nil {
		return err
	}

	sum := model.Summarize()
	name := sum.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("Model: %s\n", name)
	if err := model.Validate(); err != nil {
		fmt.Printf("Validation: FAILED (%v)\n", err)
	} else {
		fmt.Println("Validation: OK")
	}
	fmt.Println()

	merged, qualified := model.MergedParameters()
	fmt.Printf("Species:             %d\n", sum.Species)
	if len(qualified) > 0 {
		fmt.Printf("Parameters:          %d (%d reaction-local, qualified: %s)\n",
			len(merged), len(qualified), strings.Join(qualified, ", "))
	} else {
		fmt.Printf("Parameters:          %d\n", len(merged))
	}
	fmt.Printf("Compartments:        %d\n", sum.Compartments)
	fmt.Printf("Reactions:           %d\n", sum.Reactions)
	fmt.Printf("Functions:           %d\n", sum.Functions)
	fmt.Printf("Assignment rules:    %d\n", sum.AssignmentRules)
	if sum.RateRules > 0 {
		fmt.Printf("Rate rules:          %d (unsupported)\n", sum.RateRules)
	}
	fmt.Printf("Initial assignments: %d\n", sum.InitialAssignments)
	fmt.Printf("Events:              %d\n", sum.Events)

	p := parser.New(parser.NewContext(model))

	parsed := make([]rules.Rule, 0, len(model.AssignmentRules))
	for _, r := range model.AssignmentRules {
		expr, err := p.Parse(r.Math)
		if err != nil {
			return fmt.Errorf("assignment rule %s: %w", r.Variable, err)
		}
		parsed = append(parsed, rules.Rule{Variable: r.Variable, Expr: expr})
	}

	staticKnown := make([]string, 0, len(merged)+len(model.Compartments))
	for _, param := range merged {
		staticKnown = append(staticKnown, param.ID)
	}
	for _, comp := range model.Compartments {
		staticKnown = append(staticKnown, comp.ID)
	}
	static, dynamic := rules.Classify(parsed, staticKnown, model.SpeciesIDs())

	if len(parsed) > 0 {
		fmt.Println()
		fmt.Println("Rule classification:")
		fmt.Printf("  static  (%d): %s\n", len(static), ruleTargets(static))
		fmt.Printf("  dynamic (%d): %s\n", len(dynamic), ruleTargets(dynamic))
	}

	odes, err := odesys.Build(model.Reactions, model.SpeciesIndex(), p.Parse)
	if err != nil {
		return err
	}
	entries := odesys.SparseJacobian(odes, model.SpeciesIDs())
	n := len(odes)
	fill := odesys.Sparsity(entries, n)

	fmt.Println()
	fmt.Printf("ODE system: %d equations\n", n)
	fmt.Printf("Jacobian: %d of %d entries non-zero (%.1f%% fill)\n",
		len(entries), n*n, 100*fill)

	return nil
}

func ruleTargets(list []rules.Rule) string {
	if len(list) == 0 {
		return "none"
	}
	targets := make([]string, len(list))
	for i, r := range list {
		targets[i] = r.Variable
	}
	return strings.Join(targets, ", ")
}
