package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/metrics"
)

// SQLSTATE codes surfaced as version conflicts.
const (
	pgSerializationFailure = "40001"
	pgUniqueViolation      = "23505"
)

type athleteRow struct {
	bun.BaseModel `bun:"table:athletes,alias:a"`

	ID           string          `bun:"id,pk"`
	Name         string          `bun:"name,notnull"`
	Team         string          `bun:"team,notnull"`
	Position     string          `bun:"position,notnull"`
	Price        decimal.Decimal `bun:"price,type:numeric,notnull"`
	TransfersIn  int             `bun:"transfers_in,notnull"`
	TransfersOut int             `bun:"transfers_out,notnull"`
	Doc          model.Athlete   `bun:"doc,type:jsonb,notnull"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newAthleteRow(a model.Athlete) athleteRow {
	return athleteRow{
		ID:           a.ID,
		Name:         a.Name,
		Team:         a.Team,
		Position:     string(a.Position),
		Price:        a.Price,
		TransfersIn:  a.TransfersIn,
		TransfersOut: a.TransfersOut,
		Doc:          a,
		UpdatedAt:    a.UpdatedAt,
	}
}

// athlete overlays the columns that are updated in place onto the document.
func (r athleteRow) athlete() model.Athlete {
	a := r.Doc
	a.ID = r.ID
	a.Price = r.Price
	a.TransfersIn = r.TransfersIn
	a.TransfersOut = r.TransfersOut
	return a
}

type ledgerRow struct {
	bun.BaseModel `bun:"table:ledgers,alias:l"`

	ManagerID           string           `bun:"manager_id,pk"`
	Version             int64            `bun:"version,notnull"`
	TotalPoints         int              `bun:"total_points,notnull"`
	LastFinalizedPeriod int              `bun:"last_finalized_period,notnull"`
	Doc                 model.TeamLedger `bun:"doc,type:jsonb,notnull"`
	UpdatedAt           time.Time        `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newLedgerRow(l model.TeamLedger) ledgerRow {
	return ledgerRow{
		ManagerID:           l.ManagerID,
		Version:             l.Version,
		TotalPoints:         l.TotalPoints,
		LastFinalizedPeriod: l.LastFinalizedPeriod,
		Doc:                 l,
		UpdatedAt:           l.UpdatedAt,
	}
}

func (r ledgerRow) ledger() model.TeamLedger {
	l := r.Doc
	l.ManagerID = r.ManagerID
	l.Version = r.Version
	return l
}

type settingsRow struct {
	bun.BaseModel `bun:"table:settings"`

	ID               int       `bun:"id,pk"`
	TransfersEnabled bool      `bun:"transfers_enabled,notnull"`
	Deadline         time.Time `bun:"deadline,nullzero"`
}

type finalizationRow struct {
	bun.BaseModel `bun:"table:finalizations"`

	Period      int                      `bun:"period,pk"`
	BatchID     string                   `bun:"batch_id,notnull"`
	Doc         model.FinalizationRecord `bun:"doc,type:jsonb,notnull"`
	FinalizedAt time.Time                `bun:"finalized_at,notnull"`
}

// PostgresStore is a Store backed by PostgreSQL through bun.
type PostgresStore struct {
	db      *bun.DB
	timeout time.Duration
}

// NewPostgresStore wraps an open bun handle. Call Migrate first.
func NewPostgresStore(db *bun.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Athlete(ctx context.Context, id string) (model.Athlete, error) {
	ctx, done := s.begin(ctx, "athlete")
	defer done()

	var row athleteRow
	err := s.db.NewSelect().Model(&row).Where("a.id = ?", id).Scan(ctx)
	if err != nil {
		return model.Athlete{}, s.fail("athlete", fmt.Sprintf("athlete %s", id), err)
	}
	return row.athlete(), nil
}

func (s *PostgresStore) Athletes(ctx context.Context) (model.Catalog, error) {
	ctx, done := s.begin(ctx, "athletes")
	defer done()

	var rows []athleteRow
	if err := s.db.NewSelect().Model(&rows).Order("a.id").Scan(ctx); err != nil {
		return nil, s.fail("athletes", "athletes", err)
	}
	c := make(model.Catalog, len(rows))
	for _, r := range rows {
		c[r.ID] = r.athlete()
	}
	return c, nil
}

func (s *PostgresStore) UpsertAthletes(ctx context.Context, athletes []model.Athlete) error {
	if len(athletes) == 0 {
		return nil
	}
	rows := make([]athleteRow, 0, len(athletes))
	for _, a := range athletes {
		if err := a.Validate(); err != nil {
			metrics.RecordStoreError("upsert_athletes")
			return fmt.Errorf("%w: %w", ErrInvalidAthlete, err)
		}
		rows = append(rows, newAthleteRow(a))
	}

	ctx, done := s.begin(ctx, "upsert_athletes")
	defer done()
	_, err := upsertAthletes(s.db.NewInsert(), &rows).Exec(ctx)
	if err != nil {
		return s.fail("upsert_athletes", "athletes", err)
	}
	return nil
}

func upsertAthletes(q *bun.InsertQuery, rows *[]athleteRow) *bun.InsertQuery {
	return q.Model(rows).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("team = EXCLUDED.team").
		Set("position = EXCLUDED.position").
		Set("price = EXCLUDED.price").
		Set("transfers_in = EXCLUDED.transfers_in").
		Set("transfers_out = EXCLUDED.transfers_out").
		Set("doc = EXCLUDED.doc").
		Set("updated_at = EXCLUDED.updated_at")
}

func (s *PostgresStore) Ledger(ctx context.Context, managerID string) (model.TeamLedger, error) {
	ctx, done := s.begin(ctx, "ledger")
	defer done()

	var row ledgerRow
	err := s.db.NewSelect().Model(&row).Where("l.manager_id = ?", managerID).Scan(ctx)
	if err != nil {
		return model.TeamLedger{}, s.fail("ledger", fmt.Sprintf("ledger %s", managerID), err)
	}
	return row.ledger(), nil
}

func (s *PostgresStore) Ledgers(ctx context.Context) ([]model.TeamLedger, error) {
	ctx, done := s.begin(ctx, "ledgers")
	defer done()

	var rows []ledgerRow
	if err := s.db.NewSelect().Model(&rows).Order("l.manager_id").Scan(ctx); err != nil {
		return nil, s.fail("ledgers", "ledgers", err)
	}
	out := make([]model.TeamLedger, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ledger())
	}
	return out, nil
}

func (s *PostgresStore) CommitLedger(ctx context.Context, l model.TeamLedger, expected int64, added, removed []string) (model.TeamLedger, error) {
	ctx, done := s.begin(ctx, "commit_ledger")
	defer done()

	out := l.Clone()
	out.Version = expected + 1
	row := newLedgerRow(out)

	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		var (
			res sql.Result
			err error
		)
		if expected == 0 {
			res, err = tx.NewInsert().Model(&row).On("CONFLICT (manager_id) DO NOTHING").Exec(ctx)
		} else {
			res, err = tx.NewUpdate().Model(&row).WherePK().Where("version = ?", expected).Exec(ctx)
		}
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("ledger %s expected version %d: %w", l.ManagerID, expected, ErrVersionConflict)
		}

		if len(added) > 0 {
			if _, err := tx.NewUpdate().Model((*athleteRow)(nil)).
				Set("transfers_in = transfers_in + 1").
				Where("a.id IN (?)", bun.In(added)).
				Exec(ctx); err != nil {
				return err
			}
		}
		if len(removed) > 0 {
			if _, err := tx.NewUpdate().Model((*athleteRow)(nil)).
				Set("transfers_out = transfers_out + 1").
				Where("a.id IN (?)", bun.In(removed)).
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.TeamLedger{}, s.fail("commit_ledger", fmt.Sprintf("ledger %s", l.ManagerID), err)
	}
	return out, nil
}

func (s *PostgresStore) Settings(ctx context.Context) (model.Settings, error) {
	ctx, done := s.begin(ctx, "settings")
	defer done()

	var row settingsRow
	err := s.db.NewSelect().Model(&row).Where("id = 1").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Settings{}, nil
	}
	if err != nil {
		return model.Settings{}, s.fail("settings", "settings", err)
	}
	return model.Settings{TransfersEnabled: row.TransfersEnabled, Deadline: row.Deadline}, nil
}

func (s *PostgresStore) SaveSettings(ctx context.Context, settings model.Settings) error {
	ctx, done := s.begin(ctx, "save_settings")
	defer done()

	row := settingsRow{ID: 1, TransfersEnabled: settings.TransfersEnabled, Deadline: settings.Deadline}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("transfers_enabled = EXCLUDED.transfers_enabled").
		Set("deadline = EXCLUDED.deadline").
		Exec(ctx)
	if err != nil {
		return s.fail("save_settings", "settings", err)
	}
	return nil
}

func (s *PostgresStore) Finalization(ctx context.Context, period int) (model.FinalizationRecord, error) {
	ctx, done := s.begin(ctx, "finalization")
	defer done()

	var row finalizationRow
	err := s.db.NewSelect().Model(&row).Where("period = ?", period).Scan(ctx)
	if err != nil {
		return model.FinalizationRecord{}, s.fail("finalization", fmt.Sprintf("period %d", period), err)
	}
	return row.Doc, nil
}

func (s *PostgresStore) ApplyFinalization(ctx context.Context, rec model.FinalizationRecord, athletes []model.Athlete, ledgers []model.TeamLedger) error {
	ctx, done := s.begin(ctx, "apply_finalization")
	defer done()

	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		fin := finalizationRow{Period: rec.Period, BatchID: rec.BatchID, Doc: rec, FinalizedAt: rec.FinalizedAt}
		res, err := tx.NewInsert().Model(&fin).On("CONFLICT (period) DO NOTHING").Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("period %d: %w", rec.Period, ErrPeriodFinalized)
		}

		if len(athletes) > 0 {
			rows := make([]athleteRow, 0, len(athletes))
			for _, a := range athletes {
				rows = append(rows, newAthleteRow(a))
			}
			if _, err := upsertAthletes(tx.NewInsert(), &rows).Exec(ctx); err != nil {
				return err
			}
		}

		for _, l := range ledgers {
			planned := l.Version
			l.Version = planned + 1
			row := newLedgerRow(l)
			res, err := tx.NewUpdate().Model(&row).WherePK().Where("version = ?", planned).Exec(ctx)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return fmt.Errorf("ledger %s planned at version %d: %w", l.ManagerID, planned, ErrVersionConflict)
			}
		}
		return nil
	})
	if err != nil {
		return s.fail("apply_finalization", fmt.Sprintf("period %d", rec.Period), err)
	}
	return nil
}

func (s *PostgresStore) begin(ctx context.Context, op string) (context.Context, func()) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, func() {
		cancel()
		observe(op, start)
	}
}

// fail maps driver errors onto the package sentinels.
func (s *PostgresStore) fail(op, subject string, err error) error {
	metrics.RecordStoreError(op)
	return fmt.Errorf("%s: %w", subject, classify(err))
}

func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrVersionConflict, pgErr.Message)
		}
	}
	return err
}
