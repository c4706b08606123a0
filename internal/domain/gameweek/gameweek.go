// Package gameweek plans the finalization of one scoring period.
//
// Plan is pure: it reads a batch, the catalog and every committed ledger and
// returns the full set of writes. Persisting them atomically is the caller's
// job.
package gameweek

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pricing"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/transfer"
)

// Skip kinds.
const (
	KindReport  = "report"
	KindAthlete = "athlete"
	KindLedger  = "ledger"
)

// Outcome is everything one finalization writes.
type Outcome struct {
	Record   model.FinalizationRecord `json:"record"`
	Athletes []model.Athlete          `json:"athletes"`
	Ledgers  []model.TeamLedger       `json:"ledgers"`
	Rollups  []transfer.Rollup        `json:"rollups"`
	// Failures holds one ErrDataIntegrity-wrapped error per skipped entity.
	Failures []error `json:"-"`
}

// Finalizer combines scoring, pricing and ledger rollover.
type Finalizer struct {
	scorer      *scoring.Calculator
	pricer      *pricing.Model
	book        *transfer.Book
	parallelism int
	suggestions int
}

// New returns a Finalizer. Ledgers are rolled four at a time unless
// WithParallelism says otherwise.
func New(scorer *scoring.Calculator, pricer *pricing.Model, book *transfer.Book, opts ...Option) *Finalizer {
	f := &Finalizer{
		scorer:      scorer,
		pricer:      pricer,
		book:        book,
		parallelism: 4,
		suggestions: 3,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Plan computes the outcome of finalizing batch. The inputs are not mutated.
//
// Reports for unknown athletes and ledgers that cannot be rolled are skipped
// and recorded; they never abort the batch. An error is returned only for an
// invalid batch or a cancelled context.
func (f *Finalizer) Plan(ctx context.Context, batch model.PeriodBatch, catalog model.Catalog, ledgers []model.TeamLedger) (Outcome, error) {
	if err := batch.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrInvalidBatch, err)
	}
	if batch.FinalizedAt.IsZero() {
		return Outcome{}, fmt.Errorf("%w: missing finalized_at", ErrInvalidBatch)
	}

	out := Outcome{Record: model.FinalizationRecord{
		Period:      batch.Period,
		BatchID:     batch.BatchID,
		Bucket:      model.BucketKey(batch.FinalizedAt),
		FinalizedAt: batch.FinalizedAt,
	}}

	reports := make(map[string]model.MatchEventReport, len(batch.Reports))
	for _, r := range batch.Reports {
		if _, ok := catalog[r.AthleteID]; !ok {
			out.skip(KindReport, r.AthleteID, "unknown athlete", catalog.Suggest(r.AthleteID, f.suggestions))
			continue
		}
		reports[r.AthleteID] = r
	}
	out.Record.ReportsScored = len(reports)

	points := f.scoreAthletes(&out, batch, catalog, reports)
	if err := f.rollLedgers(ctx, &out, batch, ledgers, points); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// scoreAthletes folds every report into its athlete, pushes a zero history
// entry for the unreported and reprices the whole catalog. It returns the
// period points of every athlete.
func (f *Finalizer) scoreAthletes(out *Outcome, batch model.PeriodBatch, catalog model.Catalog, reports map[string]model.MatchEventReport) map[string]int {
	ids := catalog.IDs()
	sort.Strings(ids)

	points := make(map[string]int, len(ids))
	out.Athletes = make([]model.Athlete, 0, len(ids))
	for _, id := range ids {
		a := catalog[id].Clone()
		if a.LastFinalizedPeriod >= batch.Period {
			out.skip(KindAthlete, id, fmt.Sprintf("already finalized for period %d", a.LastFinalizedPeriod), nil)
			points[id] = a.PointsPeriod
			continue
		}

		p := 0
		if r, ok := reports[id]; ok {
			p = f.scorer.CalculatePoints(a.Position, r)
			a.MatchesPlayed++
			a.Goals += r.Goals
			a.Assists += r.Assists
			if r.CleanSheet {
				a.CleanSheets++
			}
			a.CardsTier1 += r.Cards[0]
			a.CardsTier2 += r.Cards[1]
			a.CardsTier3 += r.Cards[2]
			if r.ManOfTheMatch {
				a.ManOfTheMatch++
			}
		}
		a.PrevPeriodPoints = a.PointsPeriod
		a.PointsPeriod = p
		a.PointsTotal += p
		a.PointsHistory = f.pricer.PushHistory(a.PointsHistory, p)

		a = f.pricer.UpdatePrice(a)
		a.LastFinalizedPeriod = batch.Period
		a.UpdatedAt = batch.FinalizedAt

		points[id] = p
		out.Athletes = append(out.Athletes, a)
	}
	out.Record.AthletesPriced = len(out.Athletes)
	return points
}

// rollLedgers rolls every ledger in parallel. A ledger that fails is skipped;
// the rest still roll.
func (f *Finalizer) rollLedgers(ctx context.Context, out *Outcome, batch model.PeriodBatch, ledgers []model.TeamLedger, points map[string]int) error {
	type result struct {
		ledger model.TeamLedger
		rollup transfer.Rollup
		err    error
	}
	results := make([]result, len(ledgers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)
	for i := range ledgers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			l, r, err := f.book.Rollover(ledgers[i], points, batch.Period, out.Record.Bucket, batch.FinalizedAt)
			results[i] = result{ledger: l, rollup: r, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		if res.err != nil {
			reason := res.err.Error()
			if errors.Is(res.err, transfer.ErrAlreadyRolled) {
				reason = "already finalized"
			}
			out.skip(KindLedger, ledgers[i].ManagerID, reason, nil)
			continue
		}
		out.Ledgers = append(out.Ledgers, res.ledger)
		out.Rollups = append(out.Rollups, res.rollup)
	}
	out.Record.LedgersRolled = len(out.Ledgers)
	return nil
}

func (o *Outcome) skip(kind, id, reason string, suggestions []string) {
	o.Record.Skipped = append(o.Record.Skipped, model.Skip{Kind: kind, ID: id, Reason: reason, Suggestions: suggestions})
	o.Failures = append(o.Failures, fmt.Errorf("%s %s: %w: %s", kind, id, ErrDataIntegrity, reason))
}
