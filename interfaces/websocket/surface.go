package websocket

import (
	"sync"

	"go.uber.org/zap"

	"graphlens/application/viz"
)

// Surface projects a session's frames onto its websocket connections. It is
// created before the session (the session id does not exist yet) and bound
// once the session is registered; frames pushed while unbound are dropped,
// matching a widget that has not connected.
type Surface struct {
	hub    *Hub
	logger *zap.Logger

	mu        sync.RWMutex
	sessionID string
}

var _ viz.Surface = (*Surface)(nil)

// NewSurface creates an unbound surface over the hub.
func NewSurface(hub *Hub, logger *zap.Logger) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Surface{hub: hub, logger: logger}
}

// Bind attaches the surface to its session id.
func (s *Surface) Bind(sessionID string) {
	s.mu.Lock()
	s.sessionID = sessionID
	s.mu.Unlock()
}

// PushFrame broadcasts a render frame to the session's connections.
func (s *Surface) PushFrame(frame viz.Frame) {
	s.mu.RLock()
	sessionID := s.sessionID
	s.mu.RUnlock()

	if sessionID == "" {
		return
	}

	if err := s.hub.SendToSession(sessionID, MessageFrame, frame); err != nil {
		s.logger.Warn("dropping frame", zap.Error(err))
	}
}

// ShowError broadcasts a visible error to the session's connections.
func (s *Surface) ShowError(message string) {
	s.mu.RLock()
	sessionID := s.sessionID
	s.mu.RUnlock()

	if sessionID == "" {
		s.logger.Warn("error on unbound surface", zap.String("message", message))
		return
	}

	if err := s.hub.SendToSession(sessionID, MessageError, map[string]string{"message": message}); err != nil {
		s.logger.Warn("dropping error message", zap.Error(err))
	}
}
