package rules

import "errors"

var (
	// ErrCircularDependency is returned by SortStrict when assignment
	// rules reference each other in a cycle and no evaluation order exists.
	ErrCircularDependency = errors.New("circular dependency detected in assignment rules")
)
