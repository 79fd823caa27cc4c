package sbml

import "errors"

// Error types for the sbml package.
var (
	// ErrUnsupportedConstruct is returned for SBML features the
	// compiler deliberately rejects: rate rules, algebraic rules and
	// event delays.
	ErrUnsupportedConstruct = errors.New("unsupported SBML construct")

	// ErrUnknownCompartment is returned when a species references a
	// compartment absent from the model.
	ErrUnknownCompartment = errors.New("unknown compartment")

	// ErrDuplicateID is returned when two components share an ID.
	ErrDuplicateID = errors.New("duplicate component id")

	// ErrNoSpecies is returned when a model defines no species.
	ErrNoSpecies = errors.New("model has no species")

	// ErrBadDocument is returned when the model JSON cannot be decoded.
	ErrBadDocument = errors.New("malformed model document")
)
