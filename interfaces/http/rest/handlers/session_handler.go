package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"graphlens/application/shell"
	"graphlens/application/viz"
	apperrors "graphlens/pkg/errors"
)

// BindableSurface is a render surface that learns its session id after the
// session is created.
type BindableSurface interface {
	viz.Surface
	Bind(sessionID string)
}

// SessionHandler manages session lifecycle and the per-session operations
// the widget cannot express over its socket.
type SessionHandler struct {
	sessions   *shell.Manager
	newSurface func() BindableSurface
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSessionHandler creates the handler. newSurface produces one surface per
// session; the handler binds it once the session id exists.
func NewSessionHandler(sessions *shell.Manager, newSurface func() BindableSurface, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		sessions:   sessions,
		newSurface: newSurface,
		validator:  validator.New(),
		logger:     logger,
	}
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	WSPath    string `json:"wsPath"`
}

// CreateSession handles POST /api/sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	surface := h.newSurface()

	session, err := h.sessions.Create(surface)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		respondAppError(w, err)
		return
	}
	surface.Bind(session.ID)

	h.logger.Info("session created", zap.String("sessionID", session.ID))

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: session.ID,
		WSPath:    "/ws/" + session.ID,
	})
}

// DeleteSession handles DELETE /api/sessions/{sessionID}. Unknown ids still
// return 204: the end state is the same.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	h.sessions.Remove(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

type runQueryRequest struct {
	Query  string            `json:"query" validate:"required"`
	Params map[string]string `json:"params"`
}

// RunQuery handles POST /api/sessions/{sessionID}/query. The resulting graph
// reaches the widget over its socket; the response only acknowledges.
func (h *SessionHandler) RunQuery(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req runQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	if err := session.RunQuery(r.Context(), req.Query, req.Params); err != nil {
		h.logger.Warn("query failed",
			zap.String("sessionID", session.ID),
			zap.Error(err),
		)
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

type expandRequest struct {
	NodeID     int64          `json:"nodeId" validate:"required"`
	Direction  string         `json:"direction"`
	EdgeLabel  string         `json:"edgeLabel"`
	Properties map[string]any `json:"properties"`
}

// Expand handles POST /api/sessions/{sessionID}/expand.
func (h *SessionHandler) Expand(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req expandRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "nodeId is required")
		return
	}

	if err := session.RequestExpansion(req.NodeID, req.Direction, req.EdgeLabel, req.Properties); err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*shell.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "session not found")
		} else {
			respondAppError(w, err)
		}
		return nil, false
	}
	return session, true
}
