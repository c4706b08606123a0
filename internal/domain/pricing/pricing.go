// Package pricing recomputes athlete market prices from transfer demand and
// recent performance.
//
// Every function here is pure: inputs are copied, nothing is shared, and the
// same athlete with the same Params always yields the same price.
package pricing

import (
	"github.com/okian/squad/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Quote is the breakdown of one price update.
type Quote struct {
	AthleteID string          `json:"athlete_id"`
	Current   decimal.Decimal `json:"current"`
	Next      decimal.Decimal `json:"next"`
	Demand    decimal.Decimal `json:"demand_delta"`
	Perf      decimal.Decimal `json:"perf_delta"`
	Hybrid    decimal.Decimal `json:"hybrid_delta"`
	Applied   decimal.Decimal `json:"applied_delta"`
}

// Direction returns up, down or flat.
func (q Quote) Direction() string {
	switch q.Next.Cmp(q.Current) {
	case 1:
		return "up"
	case -1:
		return "down"
	}
	return "flat"
}

// Model applies Params to athletes.
type Model struct {
	p Params
}

// New validates p and returns a Model.
func New(p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Model{p: p}, nil
}

// Params returns the constants the model was built with.
func (m *Model) Params() Params { return m.p }

// Quote computes the next price without touching the athlete.
func (m *Model) Quote(a model.Athlete) Quote {
	one := decimal.NewFromInt(1)

	net := decimal.NewFromInt(int64(a.TransfersIn - a.TransfersOut))
	demandRaw := net.Div(m.p.RiseThreshold).Mul(m.p.Unit)
	demand := m.p.AlphaDemand.Mul(demandRaw).Add(one.Sub(m.p.AlphaDemand).Mul(a.PrevDemandDelta))

	baseline := m.baselinePPG(a)
	recent := m.recentPPG(a, baseline)
	perfRaw := m.p.KPerf.Mul(recent.Sub(baseline))
	perf := m.p.AlphaPerf.Mul(perfRaw).Add(one.Sub(m.p.AlphaPerf).Mul(a.PrevPerfDelta))

	hybrid := perf
	if a.MatchesPlayed > 1 {
		hybrid = m.p.WDemand.Mul(demand).Add(m.p.WPerf.Mul(perf))
	}
	applied := clamp(hybrid, m.p.WeeklyMaxChange.Neg(), m.p.WeeklyMaxChange)

	next := clamp(m.Round(a.Price.Add(applied)), m.p.Min, m.p.Max)
	return Quote{
		AthleteID: a.ID,
		Current:   a.Price,
		Next:      next,
		Demand:    demand,
		Perf:      perf,
		Hybrid:    hybrid,
		Applied:   applied,
	}
}

// UpdatePrice returns the athlete with its next price, the smoothing state
// carried forward, and the period's transfer counters reset.
func (m *Model) UpdatePrice(a model.Athlete) model.Athlete {
	q := m.Quote(a)
	out := a.Clone()
	out.Price = q.Next
	out.PrevDemandDelta = q.Demand
	out.PrevPerfDelta = q.Perf
	out.TransfersIn = 0
	out.TransfersOut = 0
	return out
}

// Round snaps v to the nearest multiple of the price unit, halves rounding up.
// Round(Round(v)) == Round(v).
func (m *Model) Round(v decimal.Decimal) decimal.Decimal {
	return v.Div(m.p.Unit).Round(0).Mul(m.p.Unit)
}

// OnGrid reports whether v is an exact multiple of the price unit.
func (m *Model) OnGrid(v decimal.Decimal) bool {
	return v.Mod(m.p.Unit).IsZero()
}

// PushHistory prepends points and trims the history to the configured length.
func (m *Model) PushHistory(history []int, points int) []int {
	out := make([]int, 0, min(len(history)+1, m.p.HistoryLength))
	out = append(out, points)
	for _, h := range history {
		if len(out) == m.p.HistoryLength {
			break
		}
		out = append(out, h)
	}
	return out
}

func (m *Model) baselinePPG(a model.Athlete) decimal.Decimal {
	if a.MatchesPlayed > 1 {
		return decimal.NewFromInt(int64(a.PointsTotal)).Div(decimal.NewFromInt(int64(a.MatchesPlayed)))
	}
	return m.p.DefaultBaselinePPG
}

// recentPPG averages the lookback window. An empty history is neutral.
func (m *Model) recentPPG(a model.Athlete, baseline decimal.Decimal) decimal.Decimal {
	n := min(m.p.Lookback, len(a.PointsHistory))
	if n == 0 {
		return baseline
	}
	sum := 0
	for _, p := range a.PointsHistory[:n] {
		sum += p
	}
	return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(n)))
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
