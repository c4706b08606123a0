package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	repository "github.com/okian/squad/internal/adapters/repository"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/metrics"
)

// Job states.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// JobStatus tracks an asynchronously submitted period batch.
type JobStatus struct {
	Period      int                       `json:"period"`
	BatchID     string                    `json:"batch_id"`
	State       string                    `json:"state"`
	Error       string                    `json:"error,omitempty"`
	Record      *model.FinalizationRecord `json:"record,omitempty"`
	SubmittedAt time.Time                 `json:"submitted_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// SubmitBatch queues a batch for finalization by the worker pool. A batch id
// seen before yields ErrDuplicateBatch; a full queue yields ErrQueueFull and
// the id may be submitted again.
func (s *Service) SubmitBatch(ctx context.Context, batch model.PeriodBatch) (JobStatus, error) {
	if _, err := s.ready(); err != nil {
		return JobStatus{}, err
	}
	if batch.BatchID == "" {
		batch.BatchID = uuid.NewString()
	}
	now := s.now()
	if batch.FinalizedAt.IsZero() {
		batch.FinalizedAt = now
	}
	if err := batch.Validate(); err != nil {
		return JobStatus{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if s.deduper.SeenAndRecord(ctx, batch.BatchID) {
		metrics.RecordBatchDuplicate()
		return JobStatus{}, fmt.Errorf("%w: %s", ErrDuplicateBatch, batch.BatchID)
	}

	job := JobStatus{
		Period:      batch.Period,
		BatchID:     batch.BatchID,
		State:       JobQueued,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	prev, hadPrev := s.setJob(job)
	if !s.eventQueue.Enqueue(ctx, batch) {
		s.deduper.Unrecord(ctx, batch.BatchID)
		s.restoreJob(job, prev, hadPrev)
		return JobStatus{}, fmt.Errorf("%w: period %d", ErrQueueFull, batch.Period)
	}
	metrics.UpdateQueueSize(s.eventQueue.Len(ctx))
	return job, nil
}

// ProcessBatch finalizes one queued batch. It is called by the worker pool.
func (s *Service) ProcessBatch(ctx context.Context, batch model.PeriodBatch) (model.FinalizationRecord, error) {
	s.updateJob(batch, JobRunning, nil, nil)
	out, err := s.FinalizePeriod(ctx, batch)
	if err != nil {
		s.updateJob(batch, JobFailed, nil, err)
		return model.FinalizationRecord{}, err
	}
	rec := out.Record
	s.updateJob(batch, JobDone, &rec, nil)
	return rec, nil
}

// PeriodStatus reports the finalization record of a period, or the state of
// the latest batch submitted for it.
func (s *Service) PeriodStatus(ctx context.Context, period int) (JobStatus, error) {
	store, err := s.ready()
	if err != nil {
		return JobStatus{}, err
	}
	rec, err := store.Finalization(ctx, period)
	switch {
	case err == nil:
		return JobStatus{
			Period:    period,
			BatchID:   rec.BatchID,
			State:     JobDone,
			Record:    &rec,
			UpdatedAt: rec.FinalizedAt,
		}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return JobStatus{}, err
	}

	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	if job, ok := s.jobs[period]; ok {
		return job, nil
	}
	return JobStatus{}, fmt.Errorf("%w: period %d", ErrNotFound, period)
}

func (s *Service) setJob(job JobStatus) (JobStatus, bool) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	prev, ok := s.jobs[job.Period]
	s.jobs[job.Period] = job
	return prev, ok
}

// restoreJob puts back the previous status unless a worker already replaced
// job.
func (s *Service) restoreJob(job, prev JobStatus, hadPrev bool) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if cur := s.jobs[job.Period]; cur.BatchID != job.BatchID {
		return
	}
	if hadPrev {
		s.jobs[job.Period] = prev
		return
	}
	delete(s.jobs, job.Period)
}

// updateJob records progress for batch. Batches finalized directly, without
// SubmitBatch, are tracked too.
func (s *Service) updateJob(batch model.PeriodBatch, state string, rec *model.FinalizationRecord, err error) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	now := s.now()
	job, ok := s.jobs[batch.Period]
	if !ok || job.BatchID != batch.BatchID {
		job = JobStatus{Period: batch.Period, BatchID: batch.BatchID, SubmittedAt: now}
	}
	job.State = state
	job.Record = rec
	job.Error = ""
	if err != nil {
		job.Error = err.Error()
	}
	job.UpdatedAt = now
	s.jobs[batch.Period] = job
}
