package transfer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rules are the economic constants of the transfer market.
type Rules struct {
	InitialFreeTransfers    int
	MaxFreeTransfers        int
	PenaltyPoints           int // per transfer beyond the free balance
	Budget                  decimal.Decimal
	CaptainMultiplier       int
	TripleCaptainMultiplier int
}

// DefaultRules returns one starting free transfer, a cap of three, a four
// point penalty and a 100.0 budget.
func DefaultRules() Rules {
	return Rules{
		InitialFreeTransfers:    1,
		MaxFreeTransfers:        3,
		PenaltyPoints:           4,
		Budget:                  decimal.NewFromInt(100),
		CaptainMultiplier:       2,
		TripleCaptainMultiplier: 3,
	}
}

// Validate rejects inconsistent rules.
func (r Rules) Validate() error {
	var errs []error
	if r.MaxFreeTransfers < 0 || r.InitialFreeTransfers < 0 || r.InitialFreeTransfers > r.MaxFreeTransfers {
		errs = append(errs, errors.New("free transfers must satisfy 0 <= initial <= max"))
	}
	if r.PenaltyPoints < 0 {
		errs = append(errs, errors.New("penalty must not be negative"))
	}
	if !r.Budget.IsPositive() {
		errs = append(errs, errors.New("budget must be positive"))
	}
	if r.CaptainMultiplier < 1 || r.TripleCaptainMultiplier < r.CaptainMultiplier {
		errs = append(errs, errors.New("multipliers must satisfy 1 <= captain <= triple captain"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRules, errors.Join(errs...))
	}
	return nil
}
