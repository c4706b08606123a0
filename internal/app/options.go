package service

import (
	"time"

	repository "github.com/okian/squad/internal/adapters/repository"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pricing"
	"github.com/okian/squad/internal/domain/roster"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/transfer"
	"github.com/okian/squad/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of finalization workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued batches.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many batch ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFinalizeParallelism bounds concurrent ledger rollovers.
func WithFinalizeParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the backing store. Without it Start creates a memory store.
// The service closes the store on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithSettings seeds the memory store created by Start.
func WithSettings(settings model.Settings) Option {
	return func(s *Service) {
		s.seed = settings
	}
}

// WithPricingParams replaces the pricing constants.
func WithPricingParams(p pricing.Params) Option {
	return func(s *Service) {
		s.pricingParams = p
	}
}

// WithScoringTable replaces the scoring table.
func WithScoringTable(t scoring.Table) Option {
	return func(s *Service) {
		s.scoringTable = t
	}
}

// WithRosterRules replaces the squad rules.
func WithRosterRules(r roster.Rules) Option {
	return func(s *Service) {
		s.rosterRules = r
	}
}

// WithTransferRules replaces the transfer market rules.
func WithTransferRules(r transfer.Rules) Option {
	return func(s *Service) {
		s.transferRules = r
	}
}

// WithClock overrides the time source used for deadlines and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
