package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of the athlete's match.
type Result string

const (
	ResultNone Result = ""
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
	ResultWin  Result = "win"
)

// ParseResult accepts win/draw/loss/none and single-letter forms.
func ParseResult(s string) (Result, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "-":
		return ResultNone, nil
	case "w", "win":
		return ResultWin, nil
	case "d", "draw":
		return ResultDraw, nil
	case "l", "loss":
		return ResultLoss, nil
	}
	return ResultNone, fmt.Errorf("%w: %q", ErrUnknownResult, s)
}

// Valid reports whether r is one of the four known results.
func (r Result) Valid() bool {
	switch r {
	case ResultNone, ResultLoss, ResultDraw, ResultWin:
		return true
	}
	return false
}

// UnmarshalJSON accepts the forms ParseResult does and rejects anything else.
func (r *Result) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownResult, b)
	}
	v, err := ParseResult(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// CardTiers is the number of card severity tiers.
const CardTiers = 3

// MatchEventReport is the administrator's record for one athlete in one period.
type MatchEventReport struct {
	AthleteID     string         `json:"athlete_id"`
	Goals         int            `json:"goals"`
	Assists       int            `json:"assists"`
	CleanSheet    bool           `json:"clean_sheet"`
	Cards         [CardTiers]int `json:"cards"`
	Result        Result         `json:"result"`
	ManOfTheMatch bool           `json:"man_of_the_match"`
}

// Validate rejects negative counters and unknown results.
func (r MatchEventReport) Validate() error {
	if strings.TrimSpace(r.AthleteID) == "" {
		return fmt.Errorf("%w: missing athlete_id", ErrInvalidReport)
	}
	if r.Goals < 0 {
		return fmt.Errorf("%w: %s has negative goals", ErrInvalidReport, r.AthleteID)
	}
	if r.Assists < 0 {
		return fmt.Errorf("%w: %s has negative assists", ErrInvalidReport, r.AthleteID)
	}
	if !r.Result.Valid() {
		return fmt.Errorf("%w: %s: %w: %q", ErrInvalidReport, r.AthleteID, ErrUnknownResult, string(r.Result))
	}
	for i, c := range r.Cards {
		if c < 0 {
			return fmt.Errorf("%w: %s has negative tier %d cards", ErrInvalidReport, r.AthleteID, i+1)
		}
	}
	return nil
}

// PeriodBatch groups the reports of one scoring period.
type PeriodBatch struct {
	Period      int                `json:"period"`
	BatchID     string             `json:"batch_id"`
	Reports     []MatchEventReport `json:"reports"`
	FinalizedAt time.Time          `json:"finalized_at"`
}

// Validate checks the batch envelope and every report.
func (b PeriodBatch) Validate() error {
	if b.Period <= 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidReport)
	}
	seen := make(map[string]struct{}, len(b.Reports))
	for _, r := range b.Reports {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.AthleteID]; dup {
			return fmt.Errorf("%w: %s reported twice", ErrInvalidReport, r.AthleteID)
		}
		seen[r.AthleteID] = struct{}{}
	}
	return nil
}

// BucketKey returns the monthly bucket a finalization time falls into.
func BucketKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Skip records an entity left out of a finalization run.
type Skip struct {
	Kind        string   `json:"kind"` // report, athlete or ledger
	ID          string   `json:"id"`
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// FinalizationRecord is persisted once per finalized period.
type FinalizationRecord struct {
	Period         int       `json:"period"`
	BatchID        string    `json:"batch_id"`
	Bucket         string    `json:"bucket"`
	FinalizedAt    time.Time `json:"finalized_at"`
	ReportsScored  int       `json:"reports_scored"`
	AthletesPriced int       `json:"athletes_priced"`
	LedgersRolled  int       `json:"ledgers_rolled"`
	Skipped        []Skip    `json:"skipped,omitempty"`
}
