// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/transfer"
)

// maxBodyBytes bounds request bodies; a full period batch fits comfortably.
const maxBodyBytes = 4 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AthleteDependencies
	SquadDependencies
	LedgerDependencies
	PeriodDependencies
	SettingsDependencies
	StatsProvider
}

// Server wires HTTP routes for the engine API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	athleteHandler  *AthleteHandler
	squadHandler    *SquadHandler
	ledgerHandler   *LedgerHandler
	periodHandler   *PeriodHandler
	settingsHandler *SettingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		athleteHandler:  NewAthleteHandler(deps),
		squadHandler:    NewSquadHandler(deps),
		ledgerHandler:   NewLedgerHandler(deps),
		periodHandler:   NewPeriodHandler(deps),
		settingsHandler: NewSettingsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("GET /athletes", "athletes", s.athleteHandler.HandleList)
	route("PUT /athletes", "athletes", s.athleteHandler.HandleUpsert)
	route("GET /athletes/{id}", "athlete", s.athleteHandler.HandleGet)
	route("GET /athletes/{id}/price", "athlete_price", s.athleteHandler.HandlePrice)
	route("POST /points", "points", s.athleteHandler.HandlePoints)

	route("POST /squads/validate", "squad_validate", s.squadHandler.HandleValidate)
	route("POST /squads/preview", "squad_preview", s.squadHandler.HandlePreview)
	route("POST /squads/commit", "squad_commit", s.squadHandler.HandleCommit)

	route("GET /ledgers", "ledgers", s.ledgerHandler.HandleList)
	route("GET /ledgers/{manager}", "ledger", s.ledgerHandler.HandleGet)
	route("POST /ledgers/{manager}/wildcard", "chip", s.ledgerHandler.HandleWildcard)
	route("POST /ledgers/{manager}/triple-captain/{action}", "chip", s.ledgerHandler.HandleTripleCaptain)

	route("POST /periods", "periods_submit", s.periodHandler.HandleSubmit)
	route("POST /periods/{period}/finalize", "periods_finalize", s.periodHandler.HandleFinalize)
	route("GET /periods/{period}", "periods_status", s.periodHandler.HandleStatus)

	route("GET /settings", "settings", s.settingsHandler.HandleGet)
	route("PUT /settings", "settings", s.settingsHandler.HandlePut)
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads one JSON document into v and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON body")
	}
	return nil
}

// writeServiceError maps service error kinds to status codes.
func writeServiceError(w http.ResponseWriter, op string, cause error) {
	err := Wrap(op, cause)
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, transfer.ErrNoTeam):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "concurrency_conflict", err)
	case errors.Is(err, service.ErrPeriodFinalized):
		writeError(w, http.StatusConflict, "period_finalized", err)
	case errors.Is(err, transfer.ErrChipUsed),
		errors.Is(err, transfer.ErrChipPending),
		errors.Is(err, transfer.ErrChipConflict),
		errors.Is(err, transfer.ErrNotArmed):
		writeError(w, http.StatusConflict, "chip_rejected", err)
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, cause))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
