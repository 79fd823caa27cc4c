package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "compile":
		if err := compile(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "inspect":
		if err := inspect(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "preview":
		if err := preview(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "artifacts":
		if err := artifacts(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "templates":
		if err := listTemplates(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("wasmpk version 0.1.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`wasmpk - compile SBML reaction networks to WASM simulation code

Usage:
  wasmpk <command> [options]

Commands:
  compile    Compile a model into Rust simulation source
  inspect    Show model structure, rule classification and Jacobian shape
  preview    Integrate the model in-process and print the final state
  templates  List the built-in model templates
  artifacts  List compile artifacts stored in a registry
  help       Show this help message
  version    Show version information

Examples:
  # Compile a model to Rust
  wasmpk compile model.json --output model.rs

  # Keep a record of the compile
  wasmpk compile model.json --output model.rs --registry builds.db

  # Check how rules classify before compiling
  wasmpk inspect model.json

  # Smoke-test the dynamics without a Rust toolchain
  wasmpk preview model.json --time 48

  # Simulate a built-in template and plot it
  wasmpk preview --template sir --time 100 --plot sir.svg

For command-specific help, run:
  wasmpk <command> --help`)
}
