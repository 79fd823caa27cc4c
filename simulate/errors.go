package simulate

import "errors"

// ErrIncomplete reports an integration that exhausted its step budget
// before reaching the end of the time span.
var ErrIncomplete = errors.New("integration incomplete")
