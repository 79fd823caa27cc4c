package templates

import (
	"github.com/Crispae/wasm-pk/sbml"
)

// OneCompartmentTemplate implements one-compartment oral dosing with
// first-order absorption and elimination.
type OneCompartmentTemplate struct{}

func (t *OneCompartmentTemplate) Name() string {
	return "onecomp"
}

func (t *OneCompartmentTemplate) Description() string {
	return "One-compartment oral dosing (Gut → Central → eliminated)"
}

func (t *OneCompartmentTemplate) Parameters() []Parameter {
	return []Parameter{
		{
			Name:        "dose",
			Description: "Administered dose placed in the gut at t=0",
			Type:        "float",
			Default:     100.0,
			Required:    false,
		},
		{
			Name:        "ka",
			Description: "First-order absorption rate constant (1/h)",
			Type:        "float",
			Default:     1.0,
			Required:    false,
		},
		{
			Name:        "ke",
			Description: "First-order elimination rate constant (1/h)",
			Type:        "float",
			Default:     0.1,
			Required:    false,
		},
		{
			Name:        "volume",
			Description: "Central compartment volume (L)",
			Type:        "float",
			Default:     5.0,
			Required:    false,
		},
	}
}

func (t *OneCompartmentTemplate) Generate(params map[string]interface{}) (*sbml.Model, error) {
	dose := getFloatParam(params, "dose", 100.0)
	ka := getFloatParam(params, "ka", 1.0)
	ke := getFloatParam(params, "ke", 0.1)
	volume := getFloatParam(params, "volume", 5.0)

	return &sbml.Model{
		Name: "OneCompartment",
		Parameters: []sbml.Parameter{
			{ID: "dose", Name: "Dose", Value: dose, IsConstant: true},
			{ID: "ka", Name: "Absorption rate", Value: ka, IsConstant: true},
			{ID: "ke", Name: "Elimination rate", Value: ke, IsConstant: true},
		},
		Compartments: []sbml.Compartment{
			{ID: "central", Name: "Central", Size: volume, Dimensionality: 3, IsConstant: true},
		},
		Species: []sbml.Species{
			{ID: "Gut", Name: "Gut depot", Value: 0, ValueType: sbml.ValueTypeAmount, Compartment: "central"},
			{ID: "Central", Name: "Central amount", Value: 0, ValueType: sbml.ValueTypeAmount, Compartment: "central"},
		},
		Reactions: []sbml.Reaction{
			{
				ID:        "absorption",
				Name:      "Absorption",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Gut"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Central"}},
				RateLaw:   "ka * Gut",
			},
			{
				ID:        "elimination",
				Name:      "Elimination",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Central"}},
				RateLaw:   "ke * Central",
			},
		},
		AssignmentRules: []sbml.Rule{
			{ID: "r_conc", Variable: "conc", Math: "Central / central"},
		},
		InitialAssignments: []sbml.Rule{
			{ID: "ia_gut", Variable: "Gut", Math: "dose"},
		},
	}, nil
}

// TwoCompartmentTemplate adds a peripheral distribution compartment to
// the one-compartment model.
type TwoCompartmentTemplate struct{}

func (t *TwoCompartmentTemplate) Name() string {
	return "twocomp"
}

func (t *TwoCompartmentTemplate) Description() string {
	return "Two-compartment oral dosing with peripheral distribution"
}

func (t *TwoCompartmentTemplate) Parameters() []Parameter {
	return []Parameter{
		{
			Name:        "dose",
			Description: "Administered dose placed in the gut at t=0",
			Type:        "float",
			Default:     100.0,
			Required:    false,
		},
		{
			Name:        "ka",
			Description: "First-order absorption rate constant (1/h)",
			Type:        "float",
			Default:     1.0,
			Required:    false,
		},
		{
			Name:        "ke",
			Description: "First-order elimination rate constant (1/h)",
			Type:        "float",
			Default:     0.1,
			Required:    false,
		},
		{
			Name:        "k12",
			Description: "Central to peripheral distribution rate (1/h)",
			Type:        "float",
			Default:     0.3,
			Required:    false,
		},
		{
			Name:        "k21",
			Description: "Peripheral to central redistribution rate (1/h)",
			Type:        "float",
			Default:     0.15,
			Required:    false,
		},
		{
			Name:        "volume",
			Description: "Central compartment volume (L)",
			Type:        "float",
			Default:     5.0,
			Required:    false,
		},
	}
}

func (t *TwoCompartmentTemplate) Generate(params map[string]interface{}) (*sbml.Model, error) {
	dose := getFloatParam(params, "dose", 100.0)
	ka := getFloatParam(params, "ka", 1.0)
	ke := getFloatParam(params, "ke", 0.1)
	k12 := getFloatParam(params, "k12", 0.3)
	k21 := getFloatParam(params, "k21", 0.15)
	volume := getFloatParam(params, "volume", 5.0)

	return &sbml.Model{
		Name: "TwoCompartment",
		Parameters: []sbml.Parameter{
			{ID: "dose", Name: "Dose", Value: dose, IsConstant: true},
			{ID: "ka", Name: "Absorption rate", Value: ka, IsConstant: true},
			{ID: "ke", Name: "Elimination rate", Value: ke, IsConstant: true},
			{ID: "k12", Name: "Distribution rate", Value: k12, IsConstant: true},
			{ID: "k21", Name: "Redistribution rate", Value: k21, IsConstant: true},
		},
		Compartments: []sbml.Compartment{
			{ID: "central", Name: "Central", Size: volume, Dimensionality: 3, IsConstant: true},
		},
		Species: []sbml.Species{
			{ID: "Gut", Name: "Gut depot", Value: 0, ValueType: sbml.ValueTypeAmount, Compartment: "central"},
			{ID: "Central", Name: "Central amount", Value: 0, ValueType: sbml.ValueTypeAmount, Compartment: "central"},
			{ID: "Peripheral", Name: "Peripheral amount", Value: 0, ValueType: sbml.ValueTypeAmount, Compartment: "central"},
		},
		Reactions: []sbml.Reaction{
			{
				ID:        "absorption",
				Name:      "Absorption",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Gut"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Central"}},
				RateLaw:   "ka * Gut",
			},
			{
				ID:        "distribution",
				Name:      "Distribution",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Central"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Peripheral"}},
				RateLaw:   "k12 * Central",
			},
			{
				ID:        "redistribution",
				Name:      "Redistribution",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Peripheral"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Central"}},
				RateLaw:   "k21 * Peripheral",
			},
			{
				ID:        "elimination",
				Name:      "Elimination",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "Central"}},
				RateLaw:   "ke * Central",
			},
		},
		AssignmentRules: []sbml.Rule{
			{ID: "r_conc", Variable: "conc", Math: "Central / central"},
		},
		InitialAssignments: []sbml.Rule{
			{ID: "ia_gut", Variable: "Gut", Math: "dose"},
		},
	}, nil
}
