package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Crispae/wasm-pk/templates"
)

func listTemplates(args []string) error {
	fs := flag.NewFlagSet("templates", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show template parameters")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: wasmpk templates [options]

List the built-in model templates. Any of them can be compiled,
inspected or previewed directly with --template <name>.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  wasmpk templates --verbose
  wasmpk preview --template sir --time 100
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, name := range templates.List() {
		tpl := templates.Registry[name]
		fmt.Printf("%-10s %s\n", name, tpl.Description())
		if *verbose {
			for _, p := range tpl.Parameters() {
				fmt.Printf("    %-22s %-6s default %-8v %s\n",
					p.Name, p.Type, p.Default, p.Description)
			}
			fmt.Println()
		}
	}
	return nil
}
