package templates

import (
	"github.com/Crispae/wasm-pk/sbml"
)

// EnzymeTemplate implements irreversible Michaelis-Menten conversion
// with the saturating rate expressed as a function definition, so the
// generated model also exercises function inlining.
type EnzymeTemplate struct{}

func (t *EnzymeTemplate) Name() string {
	return "enzyme"
}

func (t *EnzymeTemplate) Description() string {
	return "Michaelis-Menten enzyme kinetics (Substrate → Product)"
}

func (t *EnzymeTemplate) Parameters() []Parameter {
	return []Parameter{
		{
			Name:        "substrate",
			Description: "Initial substrate amount",
			Type:        "float",
			Default:     10.0,
			Required:    false,
		},
		{
			Name:        "vmax",
			Description: "Maximum conversion velocity",
			Type:        "float",
			Default:     1.0,
			Required:    false,
		},
		{
			Name:        "km",
			Description: "Michaelis constant (substrate level at half velocity)",
			Type:        "float",
			Default:     5.0,
			Required:    false,
		},
	}
}

func (t *EnzymeTemplate) Generate(params map[string]interface{}) (*sbml.Model, error) {
	substrate := getFloatParam(params, "substrate", 10.0)
	vmax := getFloatParam(params, "vmax", 1.0)
	km := getFloatParam(params, "km", 5.0)

	return &sbml.Model{
		Name: "MichaelisMenten",
		Parameters: []sbml.Parameter{
			{ID: "Vmax", Name: "Maximum velocity", Value: vmax, IsConstant: true},
			{ID: "Km", Name: "Michaelis constant", Value: km, IsConstant: true},
		},
		Species: []sbml.Species{
			{ID: "S", Name: "Substrate", Value: substrate, ValueType: sbml.ValueTypeAmount},
			{ID: "P", Name: "Product", Value: 0, ValueType: sbml.ValueTypeAmount},
		},
		Functions: []sbml.Function{
			{
				ID:         "mm",
				Name:       "Michaelis-Menten rate",
				Arguments:  []string{"s", "vm", "k"},
				MathString: "vm * s / (k + s)",
			},
		},
		Reactions: []sbml.Reaction{
			{
				ID:        "conversion",
				Name:      "Conversion",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "S"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "P"}},
				RateLaw:   "mm(S, Vmax, Km)",
			},
		},
	}, nil
}
