// Package templates provides common kinetic model patterns
package templates

import (
	"fmt"
	"sort"

	"github.com/Crispae/wasm-pk/sbml"
)

// Template defines a parameterized model pattern
type Template interface {
	Name() string
	Description() string
	Parameters() []Parameter
	Generate(params map[string]interface{}) (*sbml.Model, error)
}

// Parameter defines a template parameter
type Parameter struct {
	Name        string
	Description string
	Type        string // "int", "float"
	Default     interface{}
	Required    bool
	Min         *float64 // For numeric types
	Max         *float64
}

// Registry holds all available templates
var Registry = map[string]Template{
	"onecomp": &OneCompartmentTemplate{},
	"twocomp": &TwoCompartmentTemplate{},
	"sir":     &SIRTemplate{},
	"seir":    &SEIRTemplate{},
	"enzyme":  &EnzymeTemplate{},
}

// Get returns a template by name
func Get(name string) (Template, error) {
	t, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", name)
	}
	return t, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
