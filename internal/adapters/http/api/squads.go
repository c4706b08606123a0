package api

import (
	"context"
	"net/http"

	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/roster"
	"github.com/okian/squad/internal/domain/transfer"
)

// SquadDependencies covers draft validation, previews and commits.
type SquadDependencies interface {
	Validate(ctx context.Context, draft model.RosterDraft) (roster.Report, error)
	PreviewTransfer(ctx context.Context, draft model.RosterDraft) (transfer.Plan, error)
	CommitTransfer(ctx context.Context, draft model.RosterDraft) (service.CommitResult, error)
}

// SquadHandler handles roster drafts.
type SquadHandler struct {
	deps SquadDependencies
}

// NewSquadHandler creates a new squad handler.
func NewSquadHandler(deps SquadDependencies) *SquadHandler {
	return &SquadHandler{deps: deps}
}

func (h *SquadHandler) draft(w http.ResponseWriter, r *http.Request, op string) (model.RosterDraft, bool) {
	var d model.RosterDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return d, false
	}
	return d, true
}

// HandleValidate handles POST /squads/validate. A failing draft is still a
// 200; the report carries the violations.
func (h *SquadHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_squad"
	d, ok := h.draft(w, r, op)
	if !ok {
		return
	}
	rep, err := h.deps.Validate(r.Context(), d)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandlePreview handles POST /squads/preview.
func (h *SquadHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview_transfer"
	d, ok := h.draft(w, r, op)
	if !ok {
		return
	}
	plan, err := h.deps.PreviewTransfer(r.Context(), d)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleCommit handles POST /squads/commit. A rejected draft is answered
// with 422 and the plan that explains why.
func (h *SquadHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	const op = "api.commit_transfer"
	d, ok := h.draft(w, r, op)
	if !ok {
		return
	}
	res, err := h.deps.CommitTransfer(r.Context(), d)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if !res.Committed {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
