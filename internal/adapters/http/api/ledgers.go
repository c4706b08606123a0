package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/squad/internal/domain/model"
)

// LedgerDependencies covers ledger reads and chip activation.
type LedgerDependencies interface {
	Ledger(ctx context.Context, managerID string) (model.TeamLedger, error)
	Ledgers(ctx context.Context) ([]model.TeamLedger, error)
	ActivateWildcard(ctx context.Context, managerID string) (model.TeamLedger, error)
	ArmTripleCaptain(ctx context.Context, managerID string) (model.TeamLedger, error)
	ConfirmTripleCaptain(ctx context.Context, managerID string) (model.TeamLedger, error)
	DisarmTripleCaptain(ctx context.Context, managerID string) (model.TeamLedger, error)
}

// LedgerHandler serves team ledgers.
type LedgerHandler struct {
	deps LedgerDependencies
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(deps LedgerDependencies) *LedgerHandler {
	return &LedgerHandler{deps: deps}
}

// HandleList handles GET /ledgers.
func (h *LedgerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_ledgers"
	ls, err := h.deps.Ledgers(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ls)
}

// HandleGet handles GET /ledgers/{manager}.
func (h *LedgerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ledger"
	l, err := h.deps.Ledger(r.Context(), r.PathValue("manager"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// HandleWildcard handles POST /ledgers/{manager}/wildcard.
func (h *LedgerHandler) HandleWildcard(w http.ResponseWriter, r *http.Request) {
	const op = "api.wildcard"
	l, err := h.deps.ActivateWildcard(r.Context(), r.PathValue("manager"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// HandleTripleCaptain handles POST /ledgers/{manager}/triple-captain/{action}
// where action is arm, confirm or disarm.
func (h *LedgerHandler) HandleTripleCaptain(w http.ResponseWriter, r *http.Request) {
	const op = "api.triple_captain"
	var fn func(context.Context, string) (model.TeamLedger, error)
	switch action := r.PathValue("action"); action {
	case "arm":
		fn = h.deps.ArmTripleCaptain
	case "confirm":
		fn = h.deps.ConfirmTripleCaptain
	case "disarm":
		fn = h.deps.DisarmTripleCaptain
	default:
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("unknown action %q", action)))
		return
	}
	l, err := fn(r.Context(), r.PathValue("manager"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
