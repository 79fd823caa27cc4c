package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Crispae/wasm-pk/registry"
)

func artifacts(args []string) error {
	fs := flag.NewFlagSet("artifacts", flag.ExitOnError)
	registryPath := fs.String("registry", "", "SQLite database holding artifacts (required)")
	modelID := fs.String("model", "", "Only list artifacts for this model")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: wasmpk artifacts [options]

List compile artifacts stored in a registry, newest first.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  wasmpk artifacts --registry builds.db
  wasmpk artifacts --registry builds.db --model Zake2021
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *registryPath == "" {
		fs.Usage()
		return fmt.Errorf("--registry required")
	}

	store, err := registry.New(*registryPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer store.Close()

	list, err := store.List(*modelID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No artifacts found.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-16s  %7s  %5s  %5s\n",
		"ID", "MODEL", "CREATED", "SPECIES", "NNZ", "TEMPS")
	for _, a := range list {
		fmt.Printf("%-36s  %-20s  %-16s  %7d  %5d  %5d\n",
			a.ID, a.ModelID, a.CreatedAt.Format("2006-01-02 15:04"),
			a.Stats.Species, a.Stats.JacobianNonZero, a.Stats.CSE.Temporaries)
	}

	return nil
}
