package templates

import (
	"github.com/Crispae/wasm-pk/sbml"
)

// SIRTemplate implements the SIR epidemic model as a mass-action
// reaction network
type SIRTemplate struct{}

func (t *SIRTemplate) Name() string {
	return "sir"
}

func (t *SIRTemplate) Description() string {
	return "SIR epidemic model (Susceptible → Infected → Recovered)"
}

func (t *SIRTemplate) Parameters() []Parameter {
	return []Parameter{
		{
			Name:        "population",
			Description: "Total population size",
			Type:        "int",
			Default:     1000,
			Required:    false,
		},
		{
			Name:        "initial_infected",
			Description: "Initial number of infected individuals",
			Type:        "int",
			Default:     10,
			Required:    false,
		},
		{
			Name:        "infection_rate",
			Description: "Rate of infection (beta/N)",
			Type:        "float",
			Default:     0.0003,
			Required:    false,
		},
		{
			Name:        "recovery_rate",
			Description: "Rate of recovery (gamma)",
			Type:        "float",
			Default:     0.1,
			Required:    false,
		},
	}
}

func (t *SIRTemplate) Generate(params map[string]interface{}) (*sbml.Model, error) {
	population := getIntParam(params, "population", 1000)
	initialInfected := getIntParam(params, "initial_infected", 10)
	initialSusceptible := population - initialInfected
	beta := getFloatParam(params, "infection_rate", 0.0003)
	gamma := getFloatParam(params, "recovery_rate", 0.1)

	return &sbml.Model{
		Name: "SIR",
		Parameters: []sbml.Parameter{
			{ID: "beta", Name: "Infection rate", Value: beta, IsConstant: true},
			{ID: "gamma", Name: "Recovery rate", Value: gamma, IsConstant: true},
		},
		Species: []sbml.Species{
			{ID: "S", Name: "Susceptible", Value: float64(initialSusceptible), ValueType: sbml.ValueTypeAmount},
			{ID: "I", Name: "Infected", Value: float64(initialInfected), ValueType: sbml.ValueTypeAmount},
			{ID: "R", Name: "Recovered", Value: 0, ValueType: sbml.ValueTypeAmount},
		},
		Reactions: []sbml.Reaction{
			// Infection: S + I → 2I
			{
				ID:   "infection",
				Name: "Infection",
				Reactants: []sbml.SpeciesRef{
					{Stoichiometry: 1, Species: "S"},
					{Stoichiometry: 1, Species: "I"},
				},
				Products: []sbml.SpeciesRef{{Stoichiometry: 2, Species: "I"}},
				RateLaw:  "beta * S * I",
			},
			// Recovery: I → R
			{
				ID:        "recovery",
				Name:      "Recovery",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "I"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "R"}},
				RateLaw:   "gamma * I",
			},
		},
	}, nil
}

// SEIRTemplate implements the SEIR epidemic model with an Exposed state
type SEIRTemplate struct{}

func (t *SEIRTemplate) Name() string {
	return "seir"
}

func (t *SEIRTemplate) Description() string {
	return "SEIR epidemic model (Susceptible → Exposed → Infected → Recovered)"
}

func (t *SEIRTemplate) Parameters() []Parameter {
	return []Parameter{
		{
			Name:        "population",
			Description: "Total population size",
			Type:        "int",
			Default:     1000,
			Required:    false,
		},
		{
			Name:        "initial_exposed",
			Description: "Initial number of exposed individuals",
			Type:        "int",
			Default:     5,
			Required:    false,
		},
		{
			Name:        "initial_infected",
			Description: "Initial number of infected individuals",
			Type:        "int",
			Default:     5,
			Required:    false,
		},
		{
			Name:        "exposure_rate",
			Description: "Rate of exposure (beta/N)",
			Type:        "float",
			Default:     0.0003,
			Required:    false,
		},
		{
			Name:        "incubation_rate",
			Description: "Rate of becoming infectious (sigma)",
			Type:        "float",
			Default:     0.2,
			Required:    false,
		},
		{
			Name:        "recovery_rate",
			Description: "Rate of recovery (gamma)",
			Type:        "float",
			Default:     0.1,
			Required:    false,
		},
	}
}

func (t *SEIRTemplate) Generate(params map[string]interface{}) (*sbml.Model, error) {
	population := getIntParam(params, "population", 1000)
	initialExposed := getIntParam(params, "initial_exposed", 5)
	initialInfected := getIntParam(params, "initial_infected", 5)
	initialSusceptible := population - initialExposed - initialInfected
	beta := getFloatParam(params, "exposure_rate", 0.0003)
	sigma := getFloatParam(params, "incubation_rate", 0.2)
	gamma := getFloatParam(params, "recovery_rate", 0.1)

	return &sbml.Model{
		Name: "SEIR",
		Parameters: []sbml.Parameter{
			{ID: "beta", Name: "Exposure rate", Value: beta, IsConstant: true},
			{ID: "sigma", Name: "Incubation rate", Value: sigma, IsConstant: true},
			{ID: "gamma", Name: "Recovery rate", Value: gamma, IsConstant: true},
		},
		Species: []sbml.Species{
			{ID: "S", Name: "Susceptible", Value: float64(initialSusceptible), ValueType: sbml.ValueTypeAmount},
			{ID: "E", Name: "Exposed", Value: float64(initialExposed), ValueType: sbml.ValueTypeAmount},
			{ID: "I", Name: "Infected", Value: float64(initialInfected), ValueType: sbml.ValueTypeAmount},
			{ID: "R", Name: "Recovered", Value: 0, ValueType: sbml.ValueTypeAmount},
		},
		Reactions: []sbml.Reaction{
			// Exposure: S + I → E + I
			{
				ID:   "exposure",
				Name: "Exposure",
				Reactants: []sbml.SpeciesRef{
					{Stoichiometry: 1, Species: "S"},
					{Stoichiometry: 1, Species: "I"},
				},
				Products: []sbml.SpeciesRef{
					{Stoichiometry: 1, Species: "E"},
					{Stoichiometry: 1, Species: "I"},
				},
				RateLaw: "beta * S * I",
			},
			// Incubation: E → I
			{
				ID:        "incubation",
				Name:      "Incubation",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "E"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "I"}},
				RateLaw:   "sigma * E",
			},
			// Recovery: I → R
			{
				ID:        "recovery",
				Name:      "Recovery",
				Reactants: []sbml.SpeciesRef{{Stoichiometry: 1, Species: "I"}},
				Products:  []sbml.SpeciesRef{{Stoichiometry: 1, Species: "R"}},
				RateLaw:   "gamma * I",
			},
		},
	}, nil
}

// Helper functions
func getIntParam(params map[string]interface{}, name string, defaultVal int) int {
	if val, ok := params[name]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return defaultVal
}

func getFloatParam(params map[string]interface{}, name string, defaultVal float64) float64 {
	if val, ok := params[name]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return defaultVal
}
