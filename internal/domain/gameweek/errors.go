package gameweek

import "errors"

var (
	// ErrInvalidBatch is returned for a batch that cannot be planned at all.
	ErrInvalidBatch = errors.New("invalid period batch")
	// ErrDataIntegrity marks a single entity skipped during finalization.
	ErrDataIntegrity = errors.New("data integrity fault")
)
