package service

import "errors"

// Sentinel error kinds returned by Service. The HTTP layer maps them to
// status codes with errors.Is.
var (
	ErrNotStarted          = errors.New("service not started")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConcurrencyConflict = errors.New("concurrent modification")
	ErrPeriodFinalized     = errors.New("period already finalized")
	ErrDuplicateBatch      = errors.New("duplicate batch")
	ErrQueueFull           = errors.New("finalization queue full")
)
