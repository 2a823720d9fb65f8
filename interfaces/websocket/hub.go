// Package websocket carries the live widget protocol: render frames and
// view models fan out to every connection of a session, and interaction
// events flow back to the session's visualization.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"graphlens/pkg/observability"
)

// Hub maintains the active connections, grouped by session. One notebook
// cell may hold several connections (duplicated browser tabs) and all of
// them see the same frames.
type Hub struct {
	connections map[string]map[*Client]bool
	mu          sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *outboundMessage

	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	metrics *observability.Metrics
}

type outboundMessage struct {
	SessionID string          `json:"-"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewHub creates a connection hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		connections: make(map[string]map[*Client]bool),
		register:    make(chan *Client, 100),
		unregister:  make(chan *Client, 100),
		broadcast:   make(chan *outboundMessage, 1000),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run is the hub's main event loop.
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToSession(message)

		case <-ticker.C:
			h.pingAll()
		}
	}
}

// Stop shuts the hub down.
func (h *Hub) Stop() {
	h.cancel()
}

// SendToSession queues a message to every connection of a session.
func (h *Hub) SendToSession(sessionID, messageType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s message: %w", messageType, err)
	}

	message := &outboundMessage{
		SessionID: sessionID,
		Type:      messageType,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- message:
		return nil
	default:
		return fmt.Errorf("broadcast channel full, %s message dropped", messageType)
	}
}

// ConnectionCount returns the number of live connections for a session.
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[client.sessionID] == nil {
		h.connections[client.sessionID] = make(map[*Client]bool)
	}
	h.connections[client.sessionID][client] = true

	h.metrics.WSConnections.Inc()
	h.logger.Info("client registered",
		zap.String("sessionID", client.sessionID),
		zap.String("connectionID", client.id),
		zap.Int("sessionConnections", len(h.connections[client.sessionID])),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.connections[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.connections, client.sessionID)
	}

	h.metrics.WSConnections.Dec()
	h.logger.Info("client unregistered",
		zap.String("sessionID", client.sessionID),
		zap.String("connectionID", client.id),
	)
}

func (h *Hub) broadcastToSession(message *outboundMessage) {
	h.mu.RLock()
	clients := h.connections[message.SessionID]
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message",
			zap.Error(err),
			zap.String("messageType", message.Type),
		)
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			// A connection that cannot keep up with frames is dead weight.
			h.logger.Warn("closing slow client",
				zap.String("sessionID", client.sessionID),
				zap.String("connectionID", client.id),
			)
			go func(c *Client) {
				c.hub.unregister <- c
				c.conn.Close()
			}(client)
		}
	}
}

func (h *Hub) pingAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.connections {
		for client := range clients {
			select {
			case client.send <- []byte(`{"type":"ping"}`):
			default:
			}
		}
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, clients := range h.connections {
		for client := range clients {
			close(client.send)
			client.conn.Close()
		}
		delete(h.connections, sessionID)
	}
}
