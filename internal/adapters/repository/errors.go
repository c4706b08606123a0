package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("ledger version conflict")
	ErrPeriodFinalized = errors.New("period already finalized")
	ErrInvalidAthlete  = errors.New("invalid athlete")
)
