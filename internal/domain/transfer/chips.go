package transfer

import (
	"fmt"
	"time"

	"github.com/okian/squad/internal/domain/model"
)

// Chip names.
const (
	ChipWildcard      = "wildcard"
	ChipTripleCaptain = "triple_captain"
)

// ActivateWildcard marks the wildcard pending. Transfers committed while it is
// pending are free; it becomes used at the next finalization.
func ActivateWildcard(l model.TeamLedger, now time.Time) (model.TeamLedger, error) {
	if !l.Exists() {
		return l, ErrNoTeam
	}
	switch {
	case l.WildcardUsed:
		return l, fmt.Errorf("%s: %w", ChipWildcard, ErrChipUsed)
	case l.WildcardPending:
		return l, fmt.Errorf("%s: %w", ChipWildcard, ErrChipPending)
	case l.TripleCaptainPending || l.TripleCaptainArmed:
		return l, fmt.Errorf("%s: %w", ChipWildcard, ErrChipConflict)
	}
	out := l.Clone()
	out.WildcardPending = true
	out.UpdatedAt = now
	return out, nil
}

// ArmTripleCaptain is the first of the two confirmation steps.
func ArmTripleCaptain(l model.TeamLedger, now time.Time) (model.TeamLedger, error) {
	if err := tripleCaptainAvailable(l); err != nil {
		return l, err
	}
	out := l.Clone()
	out.TripleCaptainArmed = true
	out.UpdatedAt = now
	return out, nil
}

// ConfirmTripleCaptain turns an armed chip into a pending one.
func ConfirmTripleCaptain(l model.TeamLedger, now time.Time) (model.TeamLedger, error) {
	if err := tripleCaptainAvailable(l); err != nil {
		return l, err
	}
	if !l.TripleCaptainArmed {
		return l, fmt.Errorf("%s: %w", ChipTripleCaptain, ErrNotArmed)
	}
	out := l.Clone()
	out.TripleCaptainArmed = false
	out.TripleCaptainPending = true
	out.UpdatedAt = now
	return out, nil
}

// DisarmTripleCaptain backs out of an unconfirmed activation.
func DisarmTripleCaptain(l model.TeamLedger, now time.Time) (model.TeamLedger, error) {
	if !l.Exists() {
		return l, ErrNoTeam
	}
	if !l.TripleCaptainArmed {
		return l, fmt.Errorf("%s: %w", ChipTripleCaptain, ErrNotArmed)
	}
	out := l.Clone()
	out.TripleCaptainArmed = false
	out.UpdatedAt = now
	return out, nil
}

func tripleCaptainAvailable(l model.TeamLedger) error {
	switch {
	case !l.Exists():
		return ErrNoTeam
	case l.TripleCaptainUsed:
		return fmt.Errorf("%s: %w", ChipTripleCaptain, ErrChipUsed)
	case l.TripleCaptainPending:
		return fmt.Errorf("%s: %w", ChipTripleCaptain, ErrChipPending)
	case l.WildcardPending:
		return fmt.Errorf("%s: %w", ChipTripleCaptain, ErrChipConflict)
	}
	return nil
}
