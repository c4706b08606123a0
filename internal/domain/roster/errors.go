package roster

import "errors"

// ErrInvalidRules marks inconsistent roster rules.
var ErrInvalidRules = errors.New("invalid roster rules")
