package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
)

// SettingsStore defines the persistence operations for runtime settings.
type SettingsStore interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// SettingsHandler serves the operational settings endpoints, small toggles
// like "alerts.enabled" that operators flip without a deploy.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(s SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: s}
}

// GetSettings lists every stored setting.
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list settings", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to list settings"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// PutSetting upserts one setting.
// PUT /api/settings/{key}
func (h *SettingsHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(mux.Vars(r)["key"])
	if key == "" || len(key) > 128 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("key", "must be 1-128 characters"))
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.store.SetSetting(r.Context(), key, req.Value); err != nil {
		logger.ErrorContext(r.Context(), "Failed to store setting", "error", err, "key", key)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to store setting"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": strings.TrimSpace(req.Value)})
}
