// Package roster validates a proposed squad against the league's rules.
//
// Validation never fails with an error: every broken rule is collected into
// the Report so a caller can show all problems at once.
package roster

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/squad/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Violation codes.
const (
	CodeSquadSize      = "squad_size"
	CodeDuplicate      = "duplicate_athlete"
	CodeUnknownAthlete = "unknown_athlete"
	CodeFormation      = "formation"
	CodeTeamCap        = "team_cap"
	CodeTeamMinimum    = "team_minimum"
	CodeCaptainMissing = "captain_missing"
	CodeCaptainOutside = "captain_not_in_squad"
	CodeOverBudget     = "over_budget"
	CodeDeadlineLocked = "deadline_locked"
	CodeNegativeBank   = "negative_bank"
	CodeChipConflict   = "chip_conflict"
)

// Violation is one broken rule.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report is the outcome of a validation.
type Report struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Add appends a violation and marks the report invalid.
func (r *Report) Add(code, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Code: code, Message: fmt.Sprintf(format, args...)})
	r.Valid = false
}

// Has reports whether a violation with code is present.
func (r Report) Has(code string) bool {
	for _, v := range r.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Rules describe a legal squad.
type Rules struct {
	SquadSize  int
	Formation  map[model.Position]int
	MaxPerTeam int // zero disables the cap
	MinPerTeam int // zero disables the minimum
	// Teams the minimum applies to. Empty means every team in the catalog.
	Teams  []string
	Budget decimal.Decimal
}

// DefaultRules returns the 1-4-3-3 eleven with a 100.0 budget and at most
// three athletes per feeder team.
func DefaultRules() Rules {
	return Rules{
		SquadSize: 11,
		Formation: map[model.Position]int{
			model.Keeper: 1, model.Defender: 4, model.Midfielder: 3, model.Forward: 3,
		},
		MaxPerTeam: 3,
		Budget:     decimal.NewFromInt(100),
	}
}

// Validate rejects inconsistent rules.
func (r Rules) Validate() error {
	var errs []error
	if r.SquadSize <= 0 {
		errs = append(errs, errors.New("squad size must be positive"))
	}
	total := 0
	for _, p := range model.Positions {
		n, ok := r.Formation[p]
		if !ok || n < 0 {
			errs = append(errs, fmt.Errorf("formation count for %s is missing or negative", p))
		}
		total += n
	}
	if total != r.SquadSize {
		errs = append(errs, fmt.Errorf("formation sums to %d, squad size is %d", total, r.SquadSize))
	}
	if r.MaxPerTeam < 0 || r.MinPerTeam < 0 {
		errs = append(errs, errors.New("team limits must not be negative"))
	}
	if r.MaxPerTeam > 0 && r.MinPerTeam > r.MaxPerTeam {
		errs = append(errs, errors.New("team minimum exceeds team cap"))
	}
	if r.MinPerTeam > 0 && len(r.Teams)*r.MinPerTeam > r.SquadSize {
		errs = append(errs, errors.New("team minimum cannot be met by one squad"))
	}
	if !r.Budget.IsPositive() {
		errs = append(errs, errors.New("budget must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRules, errors.Join(errs...))
	}
	return nil
}

// Context is what validation needs beyond the draft itself.
type Context struct {
	Catalog  model.Catalog
	Baseline model.TeamLedger // zero value when the manager has no team yet
	Settings model.Settings
	Now      time.Time
}

// Summary aggregates a draft's composition.
type Summary struct {
	Positions map[model.Position]int `json:"positions"`
	Teams     map[string]int         `json:"teams"`
	Cost      decimal.Decimal        `json:"cost"`
}

// Summarize computes position counts, team counts and cost over the known
// athletes of a draft. Unknown ids are ignored.
func Summarize(draft model.RosterDraft, catalog model.Catalog) Summary {
	s := Summary{Positions: map[model.Position]int{}, Teams: map[string]int{}, Cost: decimal.Zero}
	for _, id := range draft.AthleteIDs {
		a, ok := catalog[id]
		if !ok {
			continue
		}
		s.Positions[a.Position]++
		s.Teams[a.Team]++
		s.Cost = s.Cost.Add(a.Price)
	}
	return s
}

// Validator checks drafts against Rules.
type Validator struct {
	rules Rules
}

// New validates rules and returns a Validator.
func New(rules Rules) (*Validator, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Validator{rules: rules}, nil
}

// Rules returns the active rules.
func (v *Validator) Rules() Rules { return v.rules }

// Validate checks every rule and returns all violations.
func (v *Validator) Validate(draft model.RosterDraft, ctx Context) Report {
	rep := Report{Valid: true, Summary: Summarize(draft, ctx.Catalog)}

	if n := len(draft.AthleteIDs); n != v.rules.SquadSize {
		rep.Add(CodeSquadSize, "squad has %d athletes, need exactly %d", n, v.rules.SquadSize)
	}

	seen := make(map[string]struct{}, len(draft.AthleteIDs))
	for _, id := range draft.AthleteIDs {
		if _, dup := seen[id]; dup {
			rep.Add(CodeDuplicate, "athlete %s appears more than once", id)
			continue
		}
		seen[id] = struct{}{}
		if _, ok := ctx.Catalog[id]; !ok {
			if s := ctx.Catalog.Suggest(id, 3); len(s) > 0 {
				rep.Add(CodeUnknownAthlete, "unknown athlete %s (did you mean %s?)", id, strings.Join(s, ", "))
			} else {
				rep.Add(CodeUnknownAthlete, "unknown athlete %s", id)
			}
		}
	}

	for _, p := range model.Positions {
		want := v.rules.Formation[p]
		if got := rep.Summary.Positions[p]; got != want {
			rep.Add(CodeFormation, "%s count is %d, formation requires %d", p, got, want)
		}
	}

	v.checkTeams(&rep, ctx.Catalog)

	switch {
	case strings.TrimSpace(draft.CaptainID) == "":
		rep.Add(CodeCaptainMissing, "captain is not set")
	case !contains(draft.AthleteIDs, draft.CaptainID):
		rep.Add(CodeCaptainOutside, "captain %s is not in the squad", draft.CaptainID)
	}

	if rep.Summary.Cost.GreaterThan(v.rules.Budget) {
		rep.Add(CodeOverBudget, "squad costs %s, budget is %s", rep.Summary.Cost.StringFixed(1), v.rules.Budget.StringFixed(1))
	}

	v.checkDeadline(&rep, draft, ctx)
	return rep
}

func (v *Validator) checkTeams(rep *Report, catalog model.Catalog) {
	teams := rep.Summary.Teams
	if v.rules.MaxPerTeam > 0 {
		for _, team := range sortedKeys(teams) {
			if n := teams[team]; n > v.rules.MaxPerTeam {
				rep.Add(CodeTeamCap, "%d athletes from %s, cap is %d", n, team, v.rules.MaxPerTeam)
			}
		}
	}
	if v.rules.MinPerTeam > 0 {
		required := v.rules.Teams
		if len(required) == 0 {
			all := map[string]int{}
			for _, a := range catalog {
				all[a.Team]++
			}
			required = sortedKeys(all)
		}
		for _, team := range required {
			if n := teams[team]; n < v.rules.MinPerTeam {
				rep.Add(CodeTeamMinimum, "%d athletes from %s, minimum is %d", n, team, v.rules.MinPerTeam)
			}
		}
	}
}

// checkDeadline applies the post-deadline lock. A manager without a committed
// team is exempt; captain changes are always allowed.
func (v *Validator) checkDeadline(rep *Report, draft model.RosterDraft, ctx Context) {
	if ctx.Settings.WindowOpen(ctx.Now) || ctx.Settings.TransfersEnabled || !ctx.Baseline.Exists() {
		return
	}
	if !SameMembers(ctx.Baseline.Roster, draft.AthleteIDs) {
		rep.Add(CodeDeadlineLocked, "transfers are closed after the deadline; only the captain may change")
	}
}

// SameMembers reports whether a and b hold the same ids, ignoring order.
func SameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, id := range a {
		set[id]++
	}
	for _, id := range b {
		if set[id] == 0 {
			return false
		}
		set[id]--
	}
	return true
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
