package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Params are the constants of the price model. They are injected so the model
// stays pure and can be exercised against many parameter sets.
type Params struct {
	Unit            decimal.Decimal // price grid step
	Min             decimal.Decimal
	Max             decimal.Decimal
	WeeklyMaxChange decimal.Decimal

	// Demand signal.
	RiseThreshold decimal.Decimal // net transfers worth one price unit
	AlphaDemand   decimal.Decimal

	// Performance signal.
	Lookback           int
	KPerf              decimal.Decimal
	AlphaPerf          decimal.Decimal
	DefaultBaselinePPG decimal.Decimal

	// Hybrid weights, used once an athlete has played more than one match.
	WDemand decimal.Decimal
	WPerf   decimal.Decimal

	HistoryLength int
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultParams returns the league's standard pricing constants.
func DefaultParams() Params {
	return Params{
		Unit:               d("0.1"),
		Min:                d("5.0"),
		Max:                d("18.0"),
		WeeklyMaxChange:    d("1.4"),
		RiseThreshold:      d("8"),
		AlphaDemand:        d("0.6"),
		Lookback:           2,
		KPerf:              d("0.1"),
		AlphaPerf:          d("0.7"),
		DefaultBaselinePPG: d("5"),
		WDemand:            d("0.6"),
		WPerf:              d("0.4"),
		HistoryLength:      20,
	}
}

// Validate reports every malformed constant at once.
func (p Params) Validate() error {
	var errs []error
	one := decimal.NewFromInt(1)

	if !p.Unit.IsPositive() {
		errs = append(errs, errors.New("unit must be positive"))
	}
	if !p.Min.IsPositive() || !p.Max.GreaterThan(p.Min) {
		errs = append(errs, fmt.Errorf("bounds [%s, %s] are not a positive range", p.Min, p.Max))
	}
	if p.Unit.IsPositive() && (!p.Min.Mod(p.Unit).IsZero() || !p.Max.Mod(p.Unit).IsZero()) {
		errs = append(errs, errors.New("bounds must sit on the price grid"))
	}
	if p.WeeklyMaxChange.IsNegative() {
		errs = append(errs, errors.New("weekly max change must not be negative"))
	}
	if !p.RiseThreshold.IsPositive() {
		errs = append(errs, errors.New("rise threshold must be positive"))
	}
	for name, a := range map[string]decimal.Decimal{"alpha_demand": p.AlphaDemand, "alpha_perf": p.AlphaPerf} {
		if a.IsNegative() || a.GreaterThan(one) {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1]", name))
		}
	}
	if p.WDemand.IsNegative() || p.WPerf.IsNegative() {
		errs = append(errs, errors.New("hybrid weights must not be negative"))
	}
	if p.KPerf.IsNegative() {
		errs = append(errs, errors.New("performance coefficient must not be negative"))
	}
	if p.DefaultBaselinePPG.IsNegative() {
		errs = append(errs, errors.New("default baseline must not be negative"))
	}
	if p.Lookback < 1 {
		errs = append(errs, errors.New("lookback must be at least 1"))
	}
	if p.HistoryLength < p.Lookback {
		errs = append(errs, errors.New("history length must cover the lookback window"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParams, errors.Join(errs...))
	}
	return nil
}
