package scoring

import "errors"

// ErrInvalidTable marks a malformed scoring table.
var ErrInvalidTable = errors.New("invalid scoring table")
