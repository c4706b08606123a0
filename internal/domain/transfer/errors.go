package transfer

import "errors"

// Sentinel kinds for ledger transitions.
var (
	ErrInvalidRules       = errors.New("invalid transfer rules")
	ErrNoTeam             = errors.New("manager has no committed team")
	ErrChipUsed           = errors.New("chip already used")
	ErrChipPending        = errors.New("chip already pending")
	ErrChipConflict       = errors.New("another chip is pending")
	ErrNotArmed           = errors.New("triple captain is not armed")
	ErrAlreadyRolled      = errors.New("ledger already rolled for period")
	ErrMissingAthlete     = errors.New("roster references an athlete with no period points")
	ErrCaptainNotInRoster = errors.New("captain is not in the roster")
)
