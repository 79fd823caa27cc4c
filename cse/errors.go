package cse

import "errors"

var (
	// ErrBadLevel is returned when an optimization level outside 0..3
	// is requested.
	ErrBadLevel = errors.New("optimization level out of range")
)
