package api

import (
	"context"
	"net/http"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pricing"
	"github.com/okian/squad/internal/domain/scoring"
)

// AthleteDependencies covers catalog reads and writes, price quotes and
// point calculation.
type AthleteDependencies interface {
	Athlete(ctx context.Context, id string) (model.Athlete, error)
	Athletes(ctx context.Context) ([]model.Athlete, error)
	UpsertAthletes(ctx context.Context, athletes []model.Athlete) error
	UpdatePrice(ctx context.Context, athleteID string) (pricing.Quote, error)
	CalculatePoints(ctx context.Context, r model.MatchEventReport) (scoring.Breakdown, error)
}

// AthleteHandler serves the catalog.
type AthleteHandler struct {
	deps AthleteDependencies
}

// NewAthleteHandler creates a new athlete handler.
func NewAthleteHandler(deps AthleteDependencies) *AthleteHandler {
	return &AthleteHandler{deps: deps}
}

// HandleList handles GET /athletes.
func (h *AthleteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_athletes"
	athletes, err := h.deps.Athletes(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, athletes)
}

// HandleGet handles GET /athletes/{id}.
func (h *AthleteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_athlete"
	a, err := h.deps.Athlete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleUpsert handles PUT /athletes with a JSON array body.
func (h *AthleteHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	const op = "api.upsert_athletes"
	var athletes []model.Athlete
	if err := decodeJSON(w, r, &athletes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.UpsertAthletes(r.Context(), athletes); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"upserted": len(athletes)})
}

// HandlePrice handles GET /athletes/{id}/price: the price the athlete would
// move to if the period were finalized now.
func (h *AthleteHandler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	const op = "api.price_quote"
	q, err := h.deps.UpdatePrice(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandlePoints handles POST /points with one match report.
func (h *AthleteHandler) HandlePoints(w http.ResponseWriter, r *http.Request) {
	const op = "api.calculate_points"
	var report model.MatchEventReport
	if err := decodeJSON(w, r, &report); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	b, err := h.deps.CalculatePoints(r.Context(), report)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
