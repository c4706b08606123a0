package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/gameweek"
	"github.com/okian/squad/internal/domain/model"
)

// PeriodDependencies covers period finalization, synchronous and queued.
type PeriodDependencies interface {
	SubmitBatch(ctx context.Context, batch model.PeriodBatch) (service.JobStatus, error)
	FinalizePeriod(ctx context.Context, batch model.PeriodBatch) (gameweek.Outcome, error)
	PeriodStatus(ctx context.Context, period int) (service.JobStatus, error)
}

// PeriodHandler handles period batches.
type PeriodHandler struct {
	deps PeriodDependencies
}

// NewPeriodHandler creates a new period handler.
func NewPeriodHandler(deps PeriodDependencies) *PeriodHandler {
	return &PeriodHandler{deps: deps}
}

// HandleSubmit handles POST /periods. The batch is queued for the worker
// pool; a batch id seen before is acknowledged as a duplicate.
func (h *PeriodHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_period"
	var batch model.PeriodBatch
	if err := decodeJSON(w, r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	job, err := h.deps.SubmitBatch(r.Context(), batch)
	if errors.Is(err, service.ErrDuplicateBatch) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// HandleFinalize handles POST /periods/{period}/finalize and runs the
// finalization inline.
func (h *PeriodHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.finalize_period"
	period, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var batch model.PeriodBatch
	if err := decodeJSON(w, r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	switch {
	case batch.Period == 0:
		batch.Period = period
	case batch.Period != period:
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("body period %d does not match path period %d", batch.Period, period)))
		return
	}
	out, err := h.deps.FinalizePeriod(r.Context(), batch)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleStatus handles GET /periods/{period}.
func (h *PeriodHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.period_status"
	period, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	job, err := h.deps.PeriodStatus(r.Context(), period)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func periodParam(r *http.Request) (int, error) {
	raw := r.PathValue("period")
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid period %q", raw)
	}
	return n, nil
}
