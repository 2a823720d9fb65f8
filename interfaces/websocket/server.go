package websocket

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"graphlens/application/shell"
)

// maxConnectionsPerSession caps duplicated tabs on one notebook cell.
const maxConnectionsPerSession = 10

// Server upgrades widget connections and attaches them to their session.
type Server struct {
	hub      *Hub
	sessions *shell.Manager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// ServerConfig holds websocket server configuration.
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultServerConfig returns the stock upgrade configuration. Origins are
// not checked; the notebook host fronts this server.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// NewServer creates the upgrade handler.
func NewServer(hub *Hub, sessions *shell.Manager, cfg *ServerConfig, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: logger,
	}
}

// HandleWebSocket upgrades GET /ws/{sessionID} to a widget connection.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		s.logger.Warn("websocket for unknown session",
			zap.String("sessionID", sessionID),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if s.hub.ConnectionCount(sessionID) >= maxConnectionsPerSession {
		http.Error(w, "connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(session, s.hub, conn, s.logger)
	client.Start()

	s.logger.Info("widget connected",
		zap.String("sessionID", sessionID),
		zap.String("connectionID", client.ID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}
