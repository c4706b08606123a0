// Package repository persists the catalog, team ledgers, settings and
// finalization records.
package repository

import (
	"context"

	"github.com/okian/squad/internal/domain/model"
)

// Store provides read/write access to engine state.
//
// Every write that touches more than one entity happens atomically: a reader
// never observes half of a commit or half of a finalization.
type Store interface {
	// Athlete returns ErrNotFound for an unknown id.
	Athlete(ctx context.Context, id string) (model.Athlete, error)
	Athletes(ctx context.Context) (model.Catalog, error)
	// UpsertAthletes creates or replaces catalog entries.
	UpsertAthletes(ctx context.Context, athletes []model.Athlete) error

	// Ledger returns ErrNotFound when the manager has never committed.
	Ledger(ctx context.Context, managerID string) (model.TeamLedger, error)
	// Ledgers returns every committed ledger ordered by manager id.
	Ledgers(ctx context.Context) ([]model.TeamLedger, error)
	// CommitLedger stores l if the stored version still equals expected
	// (zero for a first commit) and returns it with the bumped version.
	// Added and removed athletes have their transfer counters incremented in
	// the same transaction. A stale expected version yields
	// ErrVersionConflict.
	CommitLedger(ctx context.Context, l model.TeamLedger, expected int64, added, removed []string) (model.TeamLedger, error)

	Settings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error

	// Finalization returns ErrNotFound for a period not yet finalized.
	Finalization(ctx context.Context, period int) (model.FinalizationRecord, error)
	// ApplyFinalization writes every athlete and ledger of one period and
	// records the period as finalized, all or nothing. A period that was
	// already finalized yields ErrPeriodFinalized and changes nothing. Each
	// ledger carries the version it was planned from; a ledger committed since
	// yields ErrVersionConflict and changes nothing.
	ApplyFinalization(ctx context.Context, rec model.FinalizationRecord, athletes []model.Athlete, ledgers []model.TeamLedger) error

	Close() error
}
