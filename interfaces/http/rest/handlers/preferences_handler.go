package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"graphlens/application/ports"
)

// PreferencesHandler persists label-display preferences outside any session,
// so a restarted kernel picks them up again.
type PreferencesHandler struct {
	store     ports.PreferenceStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPreferencesHandler creates the handler.
func NewPreferencesHandler(store ports.PreferenceStore, logger *zap.Logger) *PreferencesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferencesHandler{
		store:     store,
		validator: validator.New(),
		logger:    logger,
	}
}

type labelPreferenceRequest struct {
	Label        string `json:"label" validate:"required"`
	PropertyName string `json:"propertyName" validate:"required"`
}

// SaveLabelPreference handles PUT /api/preferences/labels.
func (h *PreferencesHandler) SaveLabelPreference(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "preference persistence is disabled")
		return
	}

	var req labelPreferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "label and propertyName are required")
		return
	}

	if err := h.store.SavePreference(r.Context(), req.Label, req.PropertyName); err != nil {
		h.logger.Error("failed to save label preference",
			zap.String("label", req.Label),
			zap.Error(err),
		)
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ListLabelPreferences handles GET /api/preferences/labels.
func (h *PreferencesHandler) ListLabelPreferences(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondJSON(w, http.StatusOK, map[string]string{})
		return
	}

	prefs, err := h.store.Preferences(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
