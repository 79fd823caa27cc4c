package main

import (
	"fmt"

	"github.com/Crispae/wasm-pk/sbml"
	"github.com/Crispae/wasm-pk/templates"
)

// loadModel resolves the model from a positional file argument or a
// template name. Exactly one of the two must be given.
func loadModel(file, template string) (*sbml.Model, error) {
	switch {
	case file != "" && template != "":
		return nil, fmt.Errorf("give either a model file or --template, not both")
	case template != "":
		tpl, err := templates.Get(template)
		if err != nil {
			return nil, err
		}
		return tpl.Generate(nil)
	case file != "":
		m, err := sbml.Load(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load model: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("model file or --template required")
	}
}
