package websocket

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"graphlens/application/shell"
	"graphlens/application/viz"
	"graphlens/domain/graph"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBufferSize = 256
)

// Client is one widget connection. It reads interaction messages, routes
// them to the session, and writes whatever the hub broadcasts.
type Client struct {
	id        string
	sessionID string
	session   *shell.Session
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	logger    *zap.Logger
}

// NewClient creates a client over an upgraded connection.
func NewClient(session *shell.Session, hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:        id,
		sessionID: session.ID,
		session:   session,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		logger: logger.With(
			zap.String("sessionID", session.ID),
			zap.String("connectionID", id),
		),
	}
}

// Start registers with the hub and begins the read and write pumps.
func (c *Client) Start() {
	c.hub.register <- c

	go c.writePump()
	go c.readPump()

	c.sendConnectionEstablished()
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("binary messages not supported")
			continue
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("failed to write message", zap.Error(err))
				return
			}

			// Drain whatever else queued so frames do not lag the ticker.
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.logger.Error("failed to write batched message", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one inbound interaction to the session. Malformed
// messages are logged and dropped; they never kill the connection.
func (c *Client) handleMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("dropping malformed message", zap.Error(err))
		return
	}

	c.session.Touch()
	v := c.session.Viz()

	switch msg.Type {
	case actionNodeHover:
		v.HandleNodeHover(msg.NodeID)
	case actionEdgeHover:
		v.HandleEdgeHover(msg.EdgeKey)
	case actionHoverEnd:
		v.HandleHoverEnd()
	case actionNodeClick:
		v.HandleNodeClick(msg.NodeID)
		c.sendViews()
	case actionEdgeClick:
		v.HandleEdgeClick(msg.EdgeKey)
		c.sendViews()
	case actionBackgroundClick:
		v.HandleBackgroundClick()
		c.sendViews()
	case actionEscape:
		v.HandleEscape()
		c.sendViews()
	case actionZoom:
		v.HandleZoom(msg.Scale)
	case actionPositions:
		v.UpdatePositions(parsePositions(msg.Positions))
	case actionExpand:
		if err := c.session.RequestExpansion(msg.NodeID, msg.Direction, msg.EdgeLabel, msg.Properties); err != nil {
			c.logger.Debug("expansion rejected", zap.Error(err))
		}
	case actionSelectNeighbor:
		c.session.Sidebar().SelectNeighbor(msg.NodeID)
		c.sendViews()
	case actionViewMode:
		c.session.Menu().SetViewMode(graph.ViewMode(msg.Mode))
		c.sendViews()
	case actionLayoutMode:
		c.session.Menu().SetLayoutMode(graph.LayoutMode(msg.Mode))
	case actionColorScheme:
		c.session.Menu().SetColorScheme(graph.ColorScheme(msg.Scheme))
		c.sendViews()
	case actionPong:
		// Keepalive.
	default:
		c.logger.Debug("unknown message type", zap.String("type", msg.Type))
	}
}

// parsePositions converts JSON string keys back to node ids, dropping the
// ones that do not parse.
func parsePositions(raw map[string]viz.Point) map[int64]viz.Point {
	out := make(map[int64]viz.Point, len(raw))
	for key, p := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[id] = p
	}
	return out
}

// viewsPayload bundles the secondary view models into one message.
type viewsPayload struct {
	Sidebar any `json:"sidebar"`
	Menu    any `json:"menu"`
	Table   any `json:"table"`
}

// sendViews pushes the current sidebar, menu and table models to every
// connection of the session, so duplicated tabs stay in sync.
func (c *Client) sendViews() {
	payload := viewsPayload{
		Sidebar: c.session.Sidebar().Model(),
		Menu:    c.session.Menu().Model(),
		Table:   c.session.Table().Model(),
	}
	if err := c.hub.SendToSession(c.sessionID, MessageViews, payload); err != nil {
		c.logger.Warn("failed to push view models", zap.Error(err))
	}
}

func (c *Client) sendConnectionEstablished() {
	data, _ := json.Marshal(map[string]string{
		"connectionId": c.id,
		"sessionId":    c.sessionID,
	})
	message, _ := json.Marshal(outboundMessage{
		Type:      MessageConnectionEstablished,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})

	select {
	case c.send <- message:
	default:
		c.logger.Error("failed to send connection established message")
	}
}
