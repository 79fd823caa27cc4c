package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Crispae/wasm-pk/plotter"
	"github.com/Crispae/wasm-pk/results"
	"github.com/Crispae/wasm-pk/simulate"
)

func preview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	endTime := fs.Float64("time", 24.0, "End time for the integration")
	preset := fs.String("preset", "default", "Solver preset: default, fast, accurate, stiff")
	template := fs.String("template", "", "Build the model from a named template instead of a file")
	resultsPath := fs.String("results", "", "Write analyzed results as JSON to this file")
	plotPath := fs.String("plot", "", "Write the trajectory as SVG to this file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: wasmpk preview [options] <model-file>

Integrate the model in-process with an explicit Runge-Kutta method and
print the final state. Events are not applied; this is a quick check
of the continuous dynamics before committing to a Rust build.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  wasmpk preview model.json
  wasmpk preview model.json --time 168 --preset accurate
  wasmpk preview --template sir --time 100 --plot sir.svg
  wasmpk preview model.json --results out.json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	var opts *simulate.Options
	switch *preset {
	case "default":
		opts = simulate.DefaultOptions()
	case "fast":
		opts = simulate.FastOptions()
	case "accurate":
		opts = simulate.AccurateOptions()
	case "stiff":
		opts = simulate.StiffOptions()
	default:
		return fmt.Errorf("unknown preset: %s", *preset)
	}

	modelFile := ""
	if fs.NArg() > 0 {
		modelFile = fs.Arg(0)
	}
	model, err := loadModel(modelFile, *template)
	if err != nil {
		return err
	}

	prob, err := simulate.NewProblem(model, [2]float64{0, *endTime})
	if err != nil {
		return err
	}

	start := time.Now()
	sol, err := simulate.Solve(prob, nil, opts)
	if err != nil {
		if !errors.Is(err, simulate.ErrIncomplete) {
			return err
		}
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	elapsed := time.Since(start).Seconds()
	if sol == nil || len(sol.T) == 0 {
		return fmt.Errorf("integration produced no output")
	}

	fmt.Printf("Time: %.1f → %.1f (%d points)\n", sol.T[0], sol.T[len(sol.T)-1], len(sol.T))
	fmt.Println("\nFinal state:")
	final := sol.Final()
	for i, label := range sol.Labels {
		fmt.Printf("  %s = %.6g\n", label, final[i])
	}

	if *resultsPath != "" {
		r := results.NewBuilder().
			WithModel(model).
			WithProblem(prob, opts).
			WithSolution(sol, "Tsit5", elapsed, 200).
			Build()
		r.Analysis = results.NewAnalyzer(r).ComputeAll()
		if err := results.WriteJSON(r, *resultsPath); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		fmt.Printf("\nResults: %s\n", *resultsPath)
	}

	if *plotPath != "" {
		svg := plotter.PlotSolution(sol, nil, 800, 500, model.Name)
		if err := os.WriteFile(*plotPath, []byte(svg), 0644); err != nil {
			return fmt.Errorf("failed to write plot: %w", err)
		}
		fmt.Printf("Plot: %s\n", *plotPath)
	}

	return nil
}
