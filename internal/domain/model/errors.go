package model

import "errors"

// Sentinel kinds for malformed domain records.
var (
	ErrUnknownPosition = errors.New("unknown position")
	ErrUnknownResult   = errors.New("unknown match result")
	ErrInvalidAthlete  = errors.New("invalid athlete")
	ErrInvalidReport   = errors.New("invalid match report")
)
