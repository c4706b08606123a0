package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/metrics"
)

// MemoryStore is an in-process Store. One mutex guards all state so that
// commits and finalizations are atomic with respect to each other.
type MemoryStore struct {
	mu        sync.RWMutex
	athletes  map[string]model.Athlete
	ledgers   map[string]model.TeamLedger
	settings  model.Settings
	finalized map[int]model.FinalizationRecord

	metricsUpdateInterval time.Duration
	stopChan              chan struct{}
	stopOnce              sync.Once
	wg                    sync.WaitGroup
}

// NewMemoryStore returns an empty store and starts a background goroutine
// publishing catalog gauges until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		athletes:              make(map[string]model.Athlete),
		ledgers:               make(map[string]model.TeamLedger),
		finalized:             make(map[int]model.FinalizationRecord),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) Athlete(ctx context.Context, id string) (model.Athlete, error) {
	defer observe("athlete", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.athletes[id]
	if !ok {
		metrics.RecordStoreError("athlete")
		return model.Athlete{}, fmt.Errorf("athlete %s: %w", id, ErrNotFound)
	}
	return a.Clone(), nil
}

func (s *MemoryStore) Athletes(ctx context.Context) (model.Catalog, error) {
	defer observe("athletes", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := make(model.Catalog, len(s.athletes))
	for id, a := range s.athletes {
		c[id] = a.Clone()
	}
	return c, nil
}

func (s *MemoryStore) UpsertAthletes(ctx context.Context, athletes []model.Athlete) error {
	defer observe("upsert_athletes", time.Now())
	for _, a := range athletes {
		if err := a.Validate(); err != nil {
			metrics.RecordStoreError("upsert_athletes")
			return fmt.Errorf("%w: %w", ErrInvalidAthlete, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range athletes {
		s.athletes[a.ID] = a.Clone()
	}
	return nil
}

func (s *MemoryStore) Ledger(ctx context.Context, managerID string) (model.TeamLedger, error) {
	defer observe("ledger", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[managerID]
	if !ok {
		return model.TeamLedger{}, fmt.Errorf("ledger %s: %w", managerID, ErrNotFound)
	}
	return l.Clone(), nil
}

func (s *MemoryStore) Ledgers(ctx context.Context) ([]model.TeamLedger, error) {
	defer observe("ledgers", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TeamLedger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ManagerID < out[j].ManagerID })
	return out, nil
}

func (s *MemoryStore) CommitLedger(ctx context.Context, l model.TeamLedger, expected int64, added, removed []string) (model.TeamLedger, error) {
	defer observe("commit_ledger", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.ledgers[l.ManagerID]; cur.Version != expected {
		metrics.RecordStoreError("commit_ledger")
		return model.TeamLedger{}, fmt.Errorf("ledger %s at version %d, expected %d: %w", l.ManagerID, cur.Version, expected, ErrVersionConflict)
	}
	for _, id := range added {
		if a, ok := s.athletes[id]; ok {
			a.TransfersIn++
			s.athletes[id] = a
		}
	}
	for _, id := range removed {
		if a, ok := s.athletes[id]; ok {
			a.TransfersOut++
			s.athletes[id] = a
		}
	}
	out := l.Clone()
	out.Version = expected + 1
	s.ledgers[out.ManagerID] = out
	return out.Clone(), nil
}

func (s *MemoryStore) Settings(ctx context.Context) (model.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *MemoryStore) SaveSettings(ctx context.Context, settings model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

func (s *MemoryStore) Finalization(ctx context.Context, period int) (model.FinalizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.finalized[period]
	if !ok {
		return model.FinalizationRecord{}, fmt.Errorf("period %d: %w", period, ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) ApplyFinalization(ctx context.Context, rec model.FinalizationRecord, athletes []model.Athlete, ledgers []model.TeamLedger) error {
	defer observe("apply_finalization", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.finalized[rec.Period]; done {
		return fmt.Errorf("period %d: %w", rec.Period, ErrPeriodFinalized)
	}
	for _, l := range ledgers {
		cur, ok := s.ledgers[l.ManagerID]
		if !ok {
			metrics.RecordStoreError("apply_finalization")
			return fmt.Errorf("ledger %s: %w", l.ManagerID, ErrNotFound)
		}
		if cur.Version != l.Version {
			metrics.RecordStoreError("apply_finalization")
			return fmt.Errorf("ledger %s planned at version %d, stored %d: %w",
				l.ManagerID, l.Version, cur.Version, ErrVersionConflict)
		}
	}
	for _, a := range athletes {
		s.athletes[a.ID] = a.Clone()
	}
	for _, l := range ledgers {
		out := l.Clone()
		out.Version = l.Version + 1
		s.ledgers[l.ManagerID] = out
	}
	s.finalized[rec.Period] = rec
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	athletes, ledgers := len(s.athletes), len(s.ledgers)
	s.mu.RUnlock()
	metrics.UpdateCatalogSize(athletes, ledgers)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
