package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TeamLedger is the authoritative per-manager state.
//
// It is created by the first successful commit and then mutated only by
// later commits and by period finalization.
type TeamLedger struct {
	ManagerID      string                     `json:"manager_id"`
	Roster         []string                   `json:"roster"`
	CaptainID      string                     `json:"captain_id"`
	Bank           decimal.Decimal            `json:"bank"`
	PurchasePrices map[string]decimal.Decimal `json:"purchase_prices"`

	FreeTransfers       int `json:"free_transfers"`
	TransfersThisPeriod int `json:"transfers_this_period"`
	PendingDeduction    int `json:"pending_deduction"`

	WildcardUsed         bool `json:"wildcard_used"`
	WildcardPending      bool `json:"wildcard_pending"`
	TripleCaptainUsed    bool `json:"triple_captain_used"`
	TripleCaptainArmed   bool `json:"triple_captain_armed"`
	TripleCaptainPending bool `json:"triple_captain_pending"`

	TotalPoints      int            `json:"total_points"`
	PeriodPoints     int            `json:"period_points"`
	PrevPeriodPoints int            `json:"prev_period_points"`
	BucketPoints     map[string]int `json:"bucket_points"`

	LastFinalizedPeriod int       `json:"last_finalized_period"`
	Version             int64     `json:"version"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Exists reports whether the ledger has ever been committed.
func (l TeamLedger) Exists() bool {
	return l.Version > 0
}

// Holds reports whether id is in the committed roster.
func (l TeamLedger) Holds(id string) bool {
	for _, r := range l.Roster {
		if r == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the ledger.
func (l TeamLedger) Clone() TeamLedger {
	c := l
	c.Roster = append([]string(nil), l.Roster...)
	if l.PurchasePrices != nil {
		c.PurchasePrices = make(map[string]decimal.Decimal, len(l.PurchasePrices))
		for k, v := range l.PurchasePrices {
			c.PurchasePrices[k] = v
		}
	}
	if l.BucketPoints != nil {
		c.BucketPoints = make(map[string]int, len(l.BucketPoints))
		for k, v := range l.BucketPoints {
			c.BucketPoints[k] = v
		}
	}
	return c
}

// RosterDraft is a manager's proposed squad. It exists only until committed.
type RosterDraft struct {
	ManagerID  string   `json:"manager_id"`
	AthleteIDs []string `json:"athlete_ids"`
	CaptainID  string   `json:"captain_id"`
	// BaseVersion is the ledger version the draft was built against.
	// Zero skips the staleness check.
	BaseVersion int64 `json:"base_version"`
}

// Settings are the global knobs read by validation and commits.
type Settings struct {
	TransfersEnabled bool      `json:"transfers_enabled"`
	Deadline         time.Time `json:"deadline"`
}

// WindowOpen reports whether now is before the transfer deadline.
// A zero deadline keeps the window open.
func (s Settings) WindowOpen(now time.Time) bool {
	return s.Deadline.IsZero() || now.Before(s.Deadline)
}
