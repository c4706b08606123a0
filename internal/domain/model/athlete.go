// Package model contains the domain records passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Position is the on-field role of an athlete.
type Position string

const (
	Keeper     Position = "GK"
	Defender   Position = "DEF"
	Midfielder Position = "MID"
	Forward    Position = "FWD"
)

// Positions lists every position in formation order.
var Positions = []Position{Keeper, Defender, Midfielder, Forward}

// Valid reports whether p is one of the four known positions.
func (p Position) Valid() bool {
	switch p {
	case Keeper, Defender, Midfielder, Forward:
		return true
	}
	return false
}

// ParsePosition accepts the short codes and the long names, case-insensitive.
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GK", "KEEPER", "GOALKEEPER":
		return Keeper, nil
	case "DEF", "DEFENDER":
		return Defender, nil
	case "MID", "MIDFIELDER":
		return Midfielder, nil
	case "FWD", "FORWARD", "STRIKER":
		return Forward, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPosition, s)
}

// Athlete is a selectable player in the catalog.
//
// Price is kept within the configured bounds and on the price-unit grid by
// the pricing model; everything else about an athlete is accumulated at
// period boundaries.
type Athlete struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Team     string          `json:"team"`
	Position Position        `json:"position"`
	Price    decimal.Decimal `json:"price"`

	PointsTotal      int   `json:"points_total"`
	PointsPeriod     int   `json:"points_period"`
	PrevPeriodPoints int   `json:"prev_period_points"`
	PointsHistory    []int `json:"points_history"` // most recent first

	TransfersIn  int `json:"transfers_in"`
	TransfersOut int `json:"transfers_out"`

	Goals         int `json:"goals"`
	Assists       int `json:"assists"`
	CleanSheets   int `json:"clean_sheets"`
	CardsTier1    int `json:"cards_tier1"`
	CardsTier2    int `json:"cards_tier2"`
	CardsTier3    int `json:"cards_tier3"`
	ManOfTheMatch int `json:"man_of_the_match"`
	MatchesPlayed int `json:"matches_played"`

	PrevDemandDelta decimal.Decimal `json:"prev_demand_delta"`
	PrevPerfDelta   decimal.Decimal `json:"prev_perf_delta"`

	LastFinalizedPeriod int       `json:"last_finalized_period"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate the history freely.
func (a Athlete) Clone() Athlete {
	c := a
	if a.PointsHistory != nil {
		c.PointsHistory = append([]int(nil), a.PointsHistory...)
	}
	return c
}

// Validate checks the fields a catalog write must carry.
func (a Athlete) Validate() error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidAthlete)
	case strings.TrimSpace(a.Team) == "":
		return fmt.Errorf("%w: %s missing team", ErrInvalidAthlete, a.ID)
	case !a.Position.Valid():
		return fmt.Errorf("%w: %s has position %q", ErrInvalidAthlete, a.ID, a.Position)
	case !a.Price.IsPositive():
		return fmt.Errorf("%w: %s has non-positive price", ErrInvalidAthlete, a.ID)
	}
	return nil
}

// Catalog indexes athletes by id.
type Catalog map[string]Athlete

// NewCatalog builds a Catalog from a slice. Later duplicates win.
func NewCatalog(athletes []Athlete) Catalog {
	c := make(Catalog, len(athletes))
	for _, a := range athletes {
		c[a.ID] = a
	}
	return c
}

// IDs returns the catalog keys.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	return ids
}
