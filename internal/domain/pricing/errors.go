package pricing

import "errors"

// ErrInvalidParams marks malformed pricing constants.
var ErrInvalidParams = errors.New("invalid pricing params")
