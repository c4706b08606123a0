// Package scoring maps a period's match events to fantasy points.
package scoring

import (
	"errors"
	"fmt"

	"github.com/okian/squad/internal/domain/model"
)

// Table holds the points awarded per event. Values are configuration, not
// literals at call sites.
type Table struct {
	Goal          map[model.Position]int
	Assist        map[model.Position]int
	CleanSheet    map[model.Position]int
	Cards         [model.CardTiers]int // per card, each tier negative
	Win           int
	Draw          int
	Loss          int
	ManOfTheMatch int
}

// DefaultTable returns the league's standard scoring table.
func DefaultTable() Table {
	return Table{
		Goal: map[model.Position]int{
			model.Keeper: 6, model.Defender: 6, model.Midfielder: 5, model.Forward: 4,
		},
		Assist: map[model.Position]int{
			model.Keeper: 0, model.Defender: 3, model.Midfielder: 3, model.Forward: 3,
		},
		CleanSheet: map[model.Position]int{
			model.Keeper: 6, model.Defender: 4, model.Midfielder: 2, model.Forward: 0,
		},
		Cards:         [model.CardTiers]int{-1, -2, -3},
		Win:           3,
		Draw:          1,
		Loss:          0,
		ManOfTheMatch: 3,
	}
}

// Validate rejects tables that would make scoring ambiguous.
func (t Table) Validate() error {
	var errs []error
	for _, p := range model.Positions {
		g, ok := t.Goal[p]
		if !ok {
			errs = append(errs, fmt.Errorf("goal value missing for %s", p))
		} else if g < 0 {
			errs = append(errs, fmt.Errorf("goal value for %s is negative", p))
		}
		if a, ok := t.Assist[p]; !ok {
			errs = append(errs, fmt.Errorf("assist value missing for %s", p))
		} else if a < 0 {
			errs = append(errs, fmt.Errorf("assist value for %s is negative", p))
		}
		cs, ok := t.CleanSheet[p]
		if !ok {
			errs = append(errs, fmt.Errorf("clean sheet value missing for %s", p))
		} else if cs < 0 {
			errs = append(errs, fmt.Errorf("clean sheet value for %s is negative", p))
		}
	}
	if t.Goal[model.Forward] >= t.Goal[model.Midfielder] || t.Goal[model.Midfielder] >= t.Goal[model.Defender] {
		errs = append(errs, errors.New("goal values must rise strictly from forward to defender"))
	}
	if t.CleanSheet[model.Forward] != 0 {
		errs = append(errs, errors.New("clean sheet value for FWD must be zero"))
	}
	if t.CleanSheet[model.Forward] >= t.CleanSheet[model.Midfielder] ||
		t.CleanSheet[model.Midfielder] >= t.CleanSheet[model.Defender] ||
		t.CleanSheet[model.Defender] >= t.CleanSheet[model.Keeper] {
		errs = append(errs, errors.New("clean sheet values must rise strictly from forward to keeper"))
	}
	for i, c := range t.Cards {
		if c >= 0 {
			errs = append(errs, fmt.Errorf("card tier %d must be negative", i+1))
		}
	}
	if t.Loss < 0 || t.Draw < t.Loss || t.Win < t.Draw {
		errs = append(errs, errors.New("result values must satisfy win >= draw >= loss >= 0"))
	}
	if t.ManOfTheMatch < 0 {
		errs = append(errs, errors.New("man of the match bonus must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTable, errors.Join(errs...))
	}
	return nil
}

// Breakdown itemizes a point total.
type Breakdown struct {
	Goals         int `json:"goals"`
	Assists       int `json:"assists"`
	CleanSheet    int `json:"clean_sheet"`
	Cards         int `json:"cards"`
	Result        int `json:"result"`
	ManOfTheMatch int `json:"man_of_the_match"`
	Total         int `json:"total"`
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithTable replaces the whole scoring table.
func WithTable(t Table) Option {
	return func(c *Calculator) {
		c.table = t
	}
}

// WithGoalValue overrides the goal value of one position.
func WithGoalValue(p model.Position, v int) Option {
	return func(c *Calculator) {
		c.table.Goal = cloneValues(c.table.Goal)
		c.table.Goal[p] = v
	}
}

// Calculator scores match reports. It is immutable after New and safe for
// concurrent use.
type Calculator struct {
	table Table
}

// New builds a Calculator from the default table plus opts.
func New(opts ...Option) (*Calculator, error) {
	c := &Calculator{table: DefaultTable()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.table.Validate(); err != nil {
		return nil, err
	}
	c.table.Goal = cloneValues(c.table.Goal)
	c.table.Assist = cloneValues(c.table.Assist)
	c.table.CleanSheet = cloneValues(c.table.CleanSheet)
	return c, nil
}

// Table returns a copy of the active table.
func (c *Calculator) Table() Table {
	t := c.table
	t.Goal = cloneValues(t.Goal)
	t.Assist = cloneValues(t.Assist)
	t.CleanSheet = cloneValues(t.CleanSheet)
	return t
}

// CalculatePoints returns the period total for an athlete at position p.
func (c *Calculator) CalculatePoints(p model.Position, r model.MatchEventReport) int {
	return c.Breakdown(p, r).Total
}

// Breakdown returns the per-component points for one report.
func (c *Calculator) Breakdown(p model.Position, r model.MatchEventReport) Breakdown {
	var b Breakdown
	b.Goals = r.Goals * c.table.Goal[p]
	b.Assists = r.Assists * c.table.Assist[p]
	if r.CleanSheet {
		b.CleanSheet = c.table.CleanSheet[p]
	}
	// tiers are additive: each card counts at its own tier value
	for i, n := range r.Cards {
		b.Cards += n * c.table.Cards[i]
	}
	switch r.Result {
	case model.ResultWin:
		b.Result = c.table.Win
	case model.ResultDraw:
		b.Result = c.table.Draw
	case model.ResultLoss:
		b.Result = c.table.Loss
	}
	if r.ManOfTheMatch {
		b.ManOfTheMatch = c.table.ManOfTheMatch
	}
	b.Total = b.Goals + b.Assists + b.CleanSheet + b.Cards + b.Result + b.ManOfTheMatch
	return b
}

func cloneValues(in map[model.Position]int) map[model.Position]int {
	out := make(map[model.Position]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
