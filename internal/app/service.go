// Package service provides the engine facade that implements the
// dependencies required by the HTTP API and the finalization workers.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/squad/internal/adapters/mq/queue"
	workerpool "github.com/okian/squad/internal/adapters/mq/worker"
	repository "github.com/okian/squad/internal/adapters/repository"
	"github.com/okian/squad/internal/domain/dedupe"
	"github.com/okian/squad/internal/domain/gameweek"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pricing"
	"github.com/okian/squad/internal/domain/roster"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/transfer"
	"github.com/okian/squad/pkg/logger"
	"github.com/okian/squad/pkg/metrics"
)

// maxFinalizeAttempts bounds replanning after a ledger version conflict.
const maxFinalizeAttempts = 3

// Service wires the pure domain components to a store, a queue and a worker
// pool.
//
// Commits for one manager are serialized by a per-manager lock and guarded by
// the store's optimistic versions. Finalization holds the write side of gate,
// so commits arriving mid-run wait for it instead of being dropped.
type Service struct {
	mu sync.RWMutex

	// Domain
	validator *roster.Validator
	pricer    *pricing.Model
	scorer    *scoring.Calculator
	book      *transfer.Book
	finalizer *gameweek.Finalizer

	// Infrastructure
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	parallelism   int
	seed          model.Settings
	pricingParams pricing.Params
	scoringTable  scoring.Table
	rosterRules   roster.Rules
	transferRules transfer.Rules
	now           func() time.Time

	gate     sync.RWMutex
	locksMu  sync.Mutex
	managers map[string]*sync.Mutex

	jobsMu sync.RWMutex
	jobs   map[int]JobStatus

	started  bool
	stopping bool
	logger   logger.Logger
}

// CommitResult is returned by CommitTransfer. A rejected draft is not an
// error: Committed is false and Plan.Report lists the violations.
type CommitResult struct {
	Committed bool             `json:"committed"`
	Receipt   string           `json:"receipt,omitempty"`
	Plan      transfer.Plan    `json:"plan"`
	Ledger    model.TeamLedger `json:"ledger"`
}

// New constructs a Service with default rules unless options replace them.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		workerCount:   1,
		queueSize:     64,
		dedupeSize:    10_000,
		parallelism:   4,
		pricingParams: pricing.DefaultParams(),
		scoringTable:  scoring.DefaultTable(),
		rosterRules:   roster.DefaultRules(),
		transferRules: transfer.DefaultRules(),
		now:           func() time.Time { return time.Now().UTC() },
		managers:      make(map[string]*sync.Mutex),
		jobs:          make(map[int]JobStatus),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.validator, err = roster.New(s.rosterRules); err != nil {
		return nil, err
	}
	if s.pricer, err = pricing.New(s.pricingParams); err != nil {
		return nil, err
	}
	if s.scorer, err = scoring.New(scoring.WithTable(s.scoringTable)); err != nil {
		return nil, err
	}
	if s.book, err = transfer.NewBook(s.transferRules, s.validator); err != nil {
		return nil, err
	}
	s.finalizer = gameweek.New(s.scorer, s.pricer, s.book, gameweek.WithParallelism(s.parallelism))
	return s, nil
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting engine service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx, repository.WithSettings(s.seed))
		s.logger.Info(ctx, "using memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s, workerpool.WithLogger(s.logger.Named("worker")))
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "engine service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue, stops the workers and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pool := s.workerPool
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping engine service...")

	// a batch already being finalized completes before its worker exits
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close", logger.Error(err))
	}
	s.started = false
	s.stopping = false
	s.logger.Info(ctx, "engine service stopped")
}

// Started reports whether Start has run and Stop has not.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) ready() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// lockManager serializes writes to one ledger.
func (s *Service) lockManager(id string) func() {
	s.locksMu.Lock()
	m, ok := s.managers[id]
	if !ok {
		m = &sync.Mutex{}
		s.managers[id] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

// rosterContext loads everything validation needs for one manager. A manager
// that never committed gets the zero ledger.
func (s *Service) rosterContext(ctx context.Context, store repository.Store, managerID string) (roster.Context, error) {
	catalog, err := store.Athletes(ctx)
	if err != nil {
		return roster.Context{}, fmt.Errorf("load catalog: %w", err)
	}
	settings, err := store.Settings(ctx)
	if err != nil {
		return roster.Context{}, fmt.Errorf("load settings: %w", err)
	}
	l, err := store.Ledger(ctx, managerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return roster.Context{}, fmt.Errorf("load ledger %s: %w", managerID, err)
	}
	return roster.Context{Catalog: catalog, Baseline: l, Settings: settings, Now: s.now()}, nil
}

// Validate checks a draft against the squad rules and the deadline policy.
func (s *Service) Validate(ctx context.Context, draft model.RosterDraft) (roster.Report, error) {
	store, err := s.ready()
	if err != nil {
		return roster.Report{}, err
	}
	rc, err := s.rosterContext(ctx, store, draft.ManagerID)
	if err != nil {
		return roster.Report{}, err
	}
	rep := s.validator.Validate(draft, rc)
	for _, v := range rep.Violations {
		metrics.RecordViolation(v.Code)
	}
	return rep, nil
}

// UpdatePrice returns the price the athlete would move to if the period
// were finalized now. Prices are only persisted by FinalizePeriod.
func (s *Service) UpdatePrice(ctx context.Context, athleteID string) (pricing.Quote, error) {
	a, err := s.Athlete(ctx, athleteID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return s.pricer.Quote(a), nil
}

// CalculatePoints scores one report for the athlete it names.
func (s *Service) CalculatePoints(ctx context.Context, r model.MatchEventReport) (scoring.Breakdown, error) {
	if err := r.Validate(); err != nil {
		return scoring.Breakdown{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	a, err := s.Athlete(ctx, r.AthleteID)
	if err != nil {
		return scoring.Breakdown{}, err
	}
	return s.scorer.Breakdown(a.Position, r), nil
}

// PreviewTransfer computes what committing draft would do without writing.
func (s *Service) PreviewTransfer(ctx context.Context, draft model.RosterDraft) (transfer.Plan, error) {
	store, err := s.ready()
	if err != nil {
		return transfer.Plan{}, err
	}
	if strings.TrimSpace(draft.ManagerID) == "" {
		return transfer.Plan{}, fmt.Errorf("%w: manager id is required", ErrInvalidInput)
	}
	rc, err := s.rosterContext(ctx, store, draft.ManagerID)
	if err != nil {
		return transfer.Plan{}, err
	}
	return s.book.Preview(rc.Baseline, draft, rc), nil
}

// CommitTransfer validates and charges a draft, then stores the new ledger.
//
// A draft built against an older ledger version, or a commit that loses a
// race in the store, yields ErrConcurrencyConflict and changes nothing.
func (s *Service) CommitTransfer(ctx context.Context, draft model.RosterDraft) (CommitResult, error) {
	store, err := s.ready()
	if err != nil {
		return CommitResult{}, err
	}
	if strings.TrimSpace(draft.ManagerID) == "" {
		return CommitResult{}, fmt.Errorf("%w: manager id is required", ErrInvalidInput)
	}

	s.gate.RLock()
	defer s.gate.RUnlock()
	unlock := s.lockManager(draft.ManagerID)
	defer unlock()

	rc, err := s.rosterContext(ctx, store, draft.ManagerID)
	if err != nil {
		return CommitResult{}, err
	}
	current := rc.Baseline
	if draft.BaseVersion != 0 && draft.BaseVersion != current.Version {
		metrics.RecordConcurrencyConflict()
		metrics.RecordCommit("conflict")
		return CommitResult{Ledger: current}, fmt.Errorf("%w: draft built on version %d, ledger is at %d",
			ErrConcurrencyConflict, draft.BaseVersion, current.Version)
	}

	next, plan := s.book.Commit(current, draft, rc)
	res := CommitResult{Plan: plan, Ledger: current}
	if !plan.OK() {
		for _, v := range plan.Report.Violations {
			metrics.RecordViolation(v.Code)
		}
		metrics.RecordCommit("rejected")
		return res, nil
	}

	stored, err := store.CommitLedger(ctx, next, current.Version, plan.Added, plan.Removed)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.RecordConcurrencyConflict()
			metrics.RecordCommit("conflict")
			return res, fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
		}
		metrics.RecordCommit("error")
		return res, err
	}

	res.Committed = true
	res.Receipt = uuid.NewString()
	res.Ledger = stored
	metrics.RecordCommit("committed")
	metrics.RecordTransfers(plan.Transfers, plan.PenaltyPoints)

	s.logger.Info(ctx, "transfer committed",
		logger.String("manager", draft.ManagerID),
		logger.String("receipt", res.Receipt),
		logger.Int64("version", stored.Version),
		logger.Int("transfers", plan.Transfers),
		logger.Int("penalty", plan.PenaltyPoints),
	)
	return res, nil
}

// ActivateWildcard makes this period's transfers free.
func (s *Service) ActivateWildcard(ctx context.Context, managerID string) (model.TeamLedger, error) {
	return s.applyChip(ctx, managerID, transfer.ChipWildcard, "activate", transfer.ActivateWildcard)
}

// ArmTripleCaptain is the first step of activating the triple captain.
func (s *Service) ArmTripleCaptain(ctx context.Context, managerID string) (model.TeamLedger, error) {
	return s.applyChip(ctx, managerID, transfer.ChipTripleCaptain, "arm", transfer.ArmTripleCaptain)
}

// ConfirmTripleCaptain completes an armed activation.
func (s *Service) ConfirmTripleCaptain(ctx context.Context, managerID string) (model.TeamLedger, error) {
	return s.applyChip(ctx, managerID, transfer.ChipTripleCaptain, "confirm", transfer.ConfirmTripleCaptain)
}

// DisarmTripleCaptain cancels an armed activation.
func (s *Service) DisarmTripleCaptain(ctx context.Context, managerID string) (model.TeamLedger, error) {
	return s.applyChip(ctx, managerID, transfer.ChipTripleCaptain, "disarm", transfer.DisarmTripleCaptain)
}

func (s *Service) applyChip(ctx context.Context, managerID, chip, action string,
	fn func(model.TeamLedger, time.Time) (model.TeamLedger, error),
) (model.TeamLedger, error) {
	store, err := s.ready()
	if err != nil {
		return model.TeamLedger{}, err
	}

	s.gate.RLock()
	defer s.gate.RUnlock()
	unlock := s.lockManager(managerID)
	defer unlock()

	current, err := store.Ledger(ctx, managerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.TeamLedger{}, err
	}
	next, err := fn(current, s.now())
	if err != nil {
		return current, err
	}
	stored, err := store.CommitLedger(ctx, next, current.Version, nil, nil)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.RecordConcurrencyConflict()
			return current, fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
		}
		return current, err
	}
	metrics.RecordChip(chip, action)
	s.logger.Info(ctx, "chip updated",
		logger.String("manager", managerID),
		logger.String("chip", chip),
		logger.String("action", action),
	)
	return stored, nil
}

// FinalizePeriod scores, reprices and rolls every ledger for one period and
// writes the result atomically. Repeating a finalized period returns
// ErrPeriodFinalized and changes nothing. Skipped entities are listed in the
// outcome and logged; they do not fail the call.
func (s *Service) FinalizePeriod(ctx context.Context, batch model.PeriodBatch) (gameweek.Outcome, error) {
	store, err := s.ready()
	if err != nil {
		return gameweek.Outcome{}, err
	}
	start := time.Now()
	if batch.FinalizedAt.IsZero() {
		batch.FinalizedAt = s.now()
	}
	if batch.BatchID == "" {
		batch.BatchID = uuid.NewString()
	}

	s.gate.Lock()
	defer s.gate.Unlock()

	out, err := s.finalize(ctx, store, batch)
	elapsed := float64(time.Since(start).Milliseconds())
	switch {
	case errors.Is(err, ErrPeriodFinalized):
		metrics.RecordFinalization("duplicate", elapsed)
		return out, err
	case err != nil:
		metrics.RecordFinalization("error", elapsed)
		return out, err
	}
	metrics.RecordFinalization("ok", elapsed)

	for _, f := range out.Failures {
		s.logger.Warn(ctx, "finalization skipped entity", logger.Int("period", batch.Period), logger.Error(f))
	}
	s.logger.Info(ctx, "period finalized",
		logger.Int("period", out.Record.Period),
		logger.String("batch", out.Record.BatchID),
		logger.Int("reports", out.Record.ReportsScored),
		logger.Int("athletes", out.Record.AthletesPriced),
		logger.Int("ledgers", out.Record.LedgersRolled),
		logger.Int("skipped", len(out.Record.Skipped)),
	)
	return out, nil
}

func (s *Service) finalize(ctx context.Context, store repository.Store, batch model.PeriodBatch) (gameweek.Outcome, error) {
	if _, err := store.Finalization(ctx, batch.Period); err == nil {
		return gameweek.Outcome{}, fmt.Errorf("period %d: %w", batch.Period, ErrPeriodFinalized)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return gameweek.Outcome{}, err
	}

	var (
		catalog model.Catalog
		ledgers []model.TeamLedger
		out     gameweek.Outcome
	)
	for attempt := 1; ; attempt++ {
		var err error
		catalog, ledgers, out, err = s.planPeriod(ctx, store, batch)
		if err != nil {
			return gameweek.Outcome{}, err
		}
		err = store.ApplyFinalization(ctx, out.Record, out.Athletes, out.Ledgers)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrPeriodFinalized) {
			return gameweek.Outcome{}, fmt.Errorf("period %d: %w", batch.Period, ErrPeriodFinalized)
		}
		// another engine committed a ledger after it was loaded
		if errors.Is(err, repository.ErrVersionConflict) && attempt < maxFinalizeAttempts {
			s.logger.Warn(ctx, "finalization plan is stale, replanning",
				logger.Int("period", batch.Period), logger.Int("attempt", attempt), logger.Error(err))
			continue
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			return gameweek.Outcome{}, fmt.Errorf("apply period %d: %w: %w", batch.Period, ErrConcurrencyConflict, err)
		}
		return gameweek.Outcome{}, fmt.Errorf("apply period %d: %w", batch.Period, err)
	}

	for _, a := range out.Athletes {
		if prev, ok := catalog[a.ID]; ok {
			metrics.RecordPriceChange(pricing.Quote{Current: prev.Price, Next: a.Price}.Direction())
		}
	}
	counts := map[string]int{}
	for _, sk := range out.Record.Skipped {
		counts[sk.Kind]++
	}
	for kind, n := range counts {
		metrics.RecordFinalizationSkipped(kind, n)
	}
	metrics.UpdateCatalogSize(len(catalog), len(ledgers))
	return out, nil
}

// planPeriod loads the current catalog and ledgers and plans batch against
// them.
func (s *Service) planPeriod(ctx context.Context, store repository.Store, batch model.PeriodBatch) (model.Catalog, []model.TeamLedger, gameweek.Outcome, error) {
	catalog, err := store.Athletes(ctx)
	if err != nil {
		return nil, nil, gameweek.Outcome{}, fmt.Errorf("load catalog: %w", err)
	}
	ledgers, err := store.Ledgers(ctx)
	if err != nil {
		return nil, nil, gameweek.Outcome{}, fmt.Errorf("load ledgers: %w", err)
	}
	out, err := s.finalizer.Plan(ctx, batch, catalog, ledgers)
	if err != nil {
		if errors.Is(err, gameweek.ErrInvalidBatch) {
			return nil, nil, gameweek.Outcome{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, nil, gameweek.Outcome{}, err
	}
	return catalog, ledgers, out, nil
}

// Athlete returns one catalog entry.
func (s *Service) Athlete(ctx context.Context, id string) (model.Athlete, error) {
	store, err := s.ready()
	if err != nil {
		return model.Athlete{}, err
	}
	a, err := store.Athlete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Athlete{}, s.unknownAthlete(ctx, store, id)
	}
	return a, err
}

func (s *Service) unknownAthlete(ctx context.Context, store repository.Store, id string) error {
	catalog, err := store.Athletes(ctx)
	if err == nil {
		if hints := catalog.Suggest(id, 3); len(hints) > 0 {
			return fmt.Errorf("%w: athlete %s (did you mean %s?)", ErrNotFound, id, strings.Join(hints, ", "))
		}
	}
	return fmt.Errorf("%w: athlete %s", ErrNotFound, id)
}

// Athletes returns the catalog ordered by id.
func (s *Service) Athletes(ctx context.Context) ([]model.Athlete, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	catalog, err := store.Athletes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Athlete, 0, len(catalog))
	for _, a := range catalog {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertAthletes adds or replaces catalog entries. Prices must sit on the
// price grid within the configured bounds. A write arriving during
// finalization waits for it and lands after.
func (s *Service) UpsertAthletes(ctx context.Context, athletes []model.Athlete) error {
	store, err := s.ready()
	if err != nil {
		return err
	}
	p := s.pricer.Params()
	for _, a := range athletes {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if !s.pricer.OnGrid(a.Price) || a.Price.LessThan(p.Min) || a.Price.GreaterThan(p.Max) {
			return fmt.Errorf("%w: %s price %s is off the grid or outside [%s, %s]",
				ErrInvalidInput, a.ID, a.Price.String(), p.Min.String(), p.Max.String())
		}
	}
	// a finalization in flight rewrites every athlete; wait for it
	s.gate.RLock()
	defer s.gate.RUnlock()
	if err := store.UpsertAthletes(ctx, athletes); err != nil {
		if errors.Is(err, repository.ErrInvalidAthlete) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return err
	}
	return nil
}

// Ledger returns a manager's committed ledger.
func (s *Service) Ledger(ctx context.Context, managerID string) (model.TeamLedger, error) {
	store, err := s.ready()
	if err != nil {
		return model.TeamLedger{}, err
	}
	l, err := store.Ledger(ctx, managerID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.TeamLedger{}, fmt.Errorf("%w: ledger %s", ErrNotFound, managerID)
	}
	return l, err
}

// Ledgers returns every committed ledger ordered by manager id.
func (s *Service) Ledgers(ctx context.Context) ([]model.TeamLedger, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	return store.Ledgers(ctx)
}

// Settings returns the transfer window settings.
func (s *Service) Settings(ctx context.Context) (model.Settings, error) {
	store, err := s.ready()
	if err != nil {
		return model.Settings{}, err
	}
	return store.Settings(ctx)
}

// UpdateSettings replaces the transfer window settings.
func (s *Service) UpdateSettings(ctx context.Context, settings model.Settings) error {
	store, err := s.ready()
	if err != nil {
		return err
	}
	if !settings.Deadline.IsZero() {
		settings.Deadline = settings.Deadline.UTC()
	}
	s.gate.RLock()
	defer s.gate.RUnlock()
	if err := store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	s.logger.Info(ctx, "settings updated",
		logger.Bool("transfersEnabled", settings.TransfersEnabled),
		logger.String("deadline", settings.Deadline.Format(time.RFC3339)),
	)
	return nil
}

// Stats is a point-in-time view of the service for monitoring.
type Stats struct {
	Started       bool  `json:"started"`
	Workers       int   `json:"workers"`
	QueueLength   int   `json:"queue_length"`
	QueueCapacity int   `json:"queue_capacity"`
	DedupeEntries int64 `json:"dedupe_entries"`
	Athletes      int   `json:"athletes"`
	Ledgers       int   `json:"ledgers"`
}

// GetStats returns service statistics and refreshes the matching gauges.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Started: s.started, Workers: s.workerCount, QueueCapacity: s.queueSize}
	if !s.started {
		return st
	}
	st.QueueLength = s.eventQueue.Len(ctx)
	st.DedupeEntries = s.deduper.Size()
	if catalog, err := s.store.Athletes(ctx); err == nil {
		st.Athletes = len(catalog)
	}
	if ledgers, err := s.store.Ledgers(ctx); err == nil {
		st.Ledgers = len(ledgers)
	}

	metrics.UpdateQueueSize(st.QueueLength)
	metrics.UpdateCatalogSize(st.Athletes, st.Ledgers)
	return st
}
