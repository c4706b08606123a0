package seasonsim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pricing"
	"github.com/okian/squad/pkg/logger"
)

// ErrInconsistent marks a ledger or price that breaks an engine invariant.
var ErrInconsistent = errors.New("inconsistent state")

// verify fetches the final state and checks it.
func (r *Runner) verify(ctx context.Context) ([]model.TeamLedger, error) {
	var athletes []model.Athlete
	if _, err := r.client.Do(ctx, http.MethodGet, "/athletes", nil, &athletes); err != nil {
		return nil, err
	}
	var ledgers []model.TeamLedger
	if _, err := r.client.Do(ctx, http.MethodGet, "/ledgers", nil, &ledgers); err != nil {
		return nil, err
	}

	pm, err := pricing.New(pricing.DefaultParams())
	if err != nil {
		return nil, err
	}
	if err := errors.Join(checkPrices(pm, athletes), checkLedgers(ledgers, r.cfg.Periods)); err != nil {
		return ledgers, err
	}
	r.stats.LedgersVerified = len(ledgers)
	r.displayTopManagers(ctx, ledgers)
	return ledgers, nil
}

// checkPrices asserts every price is on the grid and inside the bounds.
func checkPrices(pm *pricing.Model, athletes []model.Athlete) error {
	p := pm.Params()
	var errs []error
	for _, a := range athletes {
		if !pm.OnGrid(a.Price) {
			errs = append(errs, fmt.Errorf("%w: %s price %s off grid", ErrInconsistent, a.ID, a.Price))
		}
		if a.Price.LessThan(p.Min) || a.Price.GreaterThan(p.Max) {
			errs = append(errs, fmt.Errorf("%w: %s price %s out of bounds", ErrInconsistent, a.ID, a.Price))
		}
	}
	return errors.Join(errs...)
}

// checkLedgers asserts each ledger saw every period and that its bucket
// totals add up to its season total.
func checkLedgers(ledgers []model.TeamLedger, periods int) error {
	var errs []error
	for _, l := range ledgers {
		if l.LastFinalizedPeriod != periods {
			errs = append(errs, fmt.Errorf("%w: %s last finalized %d, want %d",
				ErrInconsistent, l.ManagerID, l.LastFinalizedPeriod, periods))
		}
		sum := 0
		for _, v := range l.BucketPoints {
			sum += v
		}
		if sum != l.TotalPoints {
			errs = append(errs, fmt.Errorf("%w: %s buckets sum to %d, total is %d",
				ErrInconsistent, l.ManagerID, sum, l.TotalPoints))
		}
		if l.Bank.IsNegative() {
			errs = append(errs, fmt.Errorf("%w: %s bank %s is negative", ErrInconsistent, l.ManagerID, l.Bank))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) displayTopManagers(ctx context.Context, ledgers []model.TeamLedger) {
	sorted := make([]model.TeamLedger, len(ledgers))
	copy(sorted, ledgers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalPoints != sorted[j].TotalPoints {
			return sorted[i].TotalPoints > sorted[j].TotalPoints
		}
		return sorted[i].ManagerID < sorted[j].ManagerID
	})

	top := min(10, len(sorted))
	for i := 0; i < top; i++ {
		r.log.Info(ctx, "top manager",
			logger.Int("rank", i+1),
			logger.String("manager", sorted[i].ManagerID),
			logger.Int("points", sorted[i].TotalPoints),
			logger.String("bank", sorted[i].Bank.String()),
		)
	}
}
