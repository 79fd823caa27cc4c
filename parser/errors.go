package parser

import "errors"

// Error types for the parser package.
var (
	// ErrParse is returned when an expression cannot be parsed. The wrapping
	// error carries the offending fragment and its position.
	ErrParse = errors.New("malformed expression")

	// ErrUnknownIdentifier is returned when an expression references a symbol
	// that is absent from every known namespace (species, parameter,
	// compartment, rule target, time, builtin).
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrUnsupportedElement is returned for MathML constructs the translator
	// does not handle, such as delay csymbols.
	ErrUnsupportedElement = errors.New("unsupported MathML element")

	// ErrBadArguments is returned when a builtin is called with the wrong
	// number of arguments.
	ErrBadArguments = errors.New("wrong number of arguments")
)
