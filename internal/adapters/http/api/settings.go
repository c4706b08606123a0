package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/squad/internal/domain/model"
)

// SettingsDependencies covers the global transfer window.
type SettingsDependencies interface {
	Settings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, settings model.Settings) error
}

// SettingsHandler serves the transfer window settings.
type SettingsHandler struct {
	deps SettingsDependencies
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(deps SettingsDependencies) *SettingsHandler {
	return &SettingsHandler{deps: deps}
}

// settingsBody is the wire form; an empty deadline clears it.
type settingsBody struct {
	TransfersEnabled bool   `json:"transfers_enabled"`
	Deadline         string `json:"deadline"`
}

func toBody(s model.Settings) settingsBody {
	b := settingsBody{TransfersEnabled: s.TransfersEnabled}
	if !s.Deadline.IsZero() {
		b.Deadline = s.Deadline.UTC().Format(time.RFC3339)
	}
	return b
}

// HandleGet handles GET /settings.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_settings"
	s, err := h.deps.Settings(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toBody(s))
}

// HandlePut handles PUT /settings.
func (h *SettingsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_settings"
	var body settingsBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	s := model.Settings{TransfersEnabled: body.TransfersEnabled}
	if body.Deadline != "" {
		t, err := time.Parse(time.RFC3339, body.Deadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("deadline: %w", err)))
			return
		}
		s.Deadline = t.UTC()
	}
	if err := h.deps.UpdateSettings(r.Context(), s); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toBody(s))
}
