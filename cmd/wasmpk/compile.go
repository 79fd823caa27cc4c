package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Crispae/wasm-pk/compiler"
	"github.com/Crispae/wasm-pk/registry"
)

func compile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	output := fs.String("output", "", "Output file for the generated source (default: <model>.rs)")
	optLevel := fs.Int("opt-level", compiler.DefaultOptLevel, "Optimization level (0-3)")
	registryPath := fs.String("registry", "", "Also store the artifact in this SQLite database")
	template := fs.String("template", "", "Build the model from a named template instead of a file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: wasmpk compile [options] <model-file>

Compile an SBML model (JSON) into a self-contained Rust source file
ready for a wasm32 build.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  wasmpk compile model.json
  wasmpk compile model.json --output sim/model.rs --opt-level 3
  wasmpk compile model.json --registry builds.db
  wasmpk compile --template onecomp --output onecomp.rs
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

	c, err := compiler.New(*optLevel)
	if err != nil {
		return err
	}
	artifact, err := c.Compile(model)
	if err != nil {
		return err
	}

	outPath := *output
	if outPath == "" {
		if modelFile != "" {
			outPath = strings.TrimSuffix(modelFile, filepath.Ext(modelFile)) + ".rs"
		} else {
			outPath = *template + ".rs"
		}
	}
	if err := artifact.WriteFile(outPath); err != nil {
		return err
	}

	if *registryPath != "" {
		store, err := registry.New(*registryPath)
		if err != nil {
			return fmt.Errorf("failed to open registry: %w", err)
		}
		defer store.Close()
		if err := store.Put(artifact); err != nil {
			return err
		}
	}

	// Print summary to stderr so it doesn't interfere with piping
	fmt.Fprintln(os.Stderr, artifact.Summary())
	fmt.Fprintf(os.Stderr, "Output: %s\n", outPath)
	if *registryPath != "" {
		fmt.Fprintf(os.Stderr, "Stored as: %s in %s\n", artifact.ID, *registryPath)
	}

	return nil
}
