package transfer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/squad/internal/domain/model"
)

// Rollup is the point arithmetic of one ledger's finalization.
type Rollup struct {
	ManagerID  string `json:"manager_id"`
	Sum        int    `json:"sum"`
	Captain    int    `json:"captain_extra"`
	Multiplier int    `json:"multiplier"`
	Deduction  int    `json:"deduction"`
	Points     int    `json:"points"`
}

// Rollover folds a finalized period into a ledger. points must hold the
// period points of every roster athlete.
//
// The captain counts Multiplier times, deductions are charged, period totals
// roll into previous, pending chips become used and the free transfer balance
// grows by one up to the cap.
func (b *Book) Rollover(l model.TeamLedger, points map[string]int, period int, bucket string, now time.Time) (model.TeamLedger, Rollup, error) {
	r := Rollup{ManagerID: l.ManagerID}
	if l.LastFinalizedPeriod >= period {
		return l, r, fmt.Errorf("%s period %d: %w", l.ManagerID, period, ErrAlreadyRolled)
	}
	if !l.Holds(l.CaptainID) {
		return l, r, fmt.Errorf("%s: %w", l.ManagerID, ErrCaptainNotInRoster)
	}
	for _, id := range l.Roster {
		p, ok := points[id]
		if !ok {
			return l, r, fmt.Errorf("%s references %s: %w", l.ManagerID, id, ErrMissingAthlete)
		}
		r.Sum += p
	}

	r.Multiplier = b.rules.CaptainMultiplier
	if l.TripleCaptainPending {
		r.Multiplier = b.rules.TripleCaptainMultiplier
	}
	r.Captain = points[l.CaptainID] * (r.Multiplier - 1)
	r.Deduction = l.PendingDeduction
	r.Points = r.Sum + r.Captain - r.Deduction

	out := l.Clone()
	out.PrevPeriodPoints = l.PeriodPoints
	out.PeriodPoints = r.Points
	out.TotalPoints += r.Points
	if out.BucketPoints == nil {
		out.BucketPoints = map[string]int{}
	}
	out.BucketPoints[bucket] += r.Points
	out.PendingDeduction = 0

	if out.WildcardPending {
		out.WildcardPending = false
		out.WildcardUsed = true
	}
	if out.TripleCaptainPending {
		out.TripleCaptainPending = false
		out.TripleCaptainUsed = true
	}
	out.TripleCaptainArmed = false

	out.FreeTransfers = min(max(out.FreeTransfers, 0)+1, b.rules.MaxFreeTransfers)
	out.TransfersThisPeriod = 0
	// bank is clamped during finalization, never rejected
	if out.Bank.IsNegative() {
		out.Bank = decimal.Zero
	}
	out.LastFinalizedPeriod = period
	out.UpdatedAt = now
	return out, r, nil
}
