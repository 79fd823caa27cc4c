package air

import "errors"

// Error types for the air package.
var (
	// ErrUnknownSymbol is returned when evaluation reaches a symbol
	// absent from the environment.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUnknownFunction is returned when evaluation reaches a call
	// with no numeric binding.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrBadArity is returned when a call has the wrong argument count.
	ErrBadArity = errors.New("wrong argument count")
)
