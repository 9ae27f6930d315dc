package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/12008yz/chibox-reveal/internal/logger"
	"github.com/12008yz/chibox-reveal/internal/reveal"
	"github.com/12008yz/chibox-reveal/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams reveal frames to the user's open case preview.
// It implements services.RevealPublisher and services.StaleNotifier.
type WebSocketHandler struct {
	orchestrator *services.Orchestrator
	hub          *WebSocketHub
}

type WebSocketHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler() *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{hub: hub}
}

// SetOrchestrator breaks the wiring loop: the orchestrator needs the handler
// as its publisher, the handler needs the orchestrator for resume snapshots.
func (h *WebSocketHandler) SetOrchestrator(orchestrator *services.Orchestrator) {
	h.orchestrator = orchestrator
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendActiveReveal(client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("websocket read error", zap.Error(err))
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	case "RESUME_REVEAL":
		h.sendActiveReveal(client)
	}
}

// sendActiveReveal pushes the running session's snapshot so a reconnecting
// view can catch up mid-animation.
func (h *WebSocketHandler) sendActiveReveal(client *Client) {
	if h.orchestrator == nil {
		return
	}

	state, items, ok := h.orchestrator.ActiveReveal(client.UserID)
	if !ok {
		return
	}

	msg := Message{
		Type: "REVEAL_SNAPSHOT",
		Data: gin.H{
			"session_id":    state.SessionID,
			"phase":         state.Phase,
			"cursor":        state.Cursor,
			"display_index": state.DisplayIndex,
			"daily":         state.Daily,
			"items":         items,
		},
	}

	client.Conn.WriteJSON(msg)
}

func (h *WebSocketHandler) sendPong(client *Client) {
	msg := Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	}

	client.Conn.WriteJSON(msg)
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			logger.Log.Info("websocket client registered", zap.Int64("user_id", client.UserID))

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.UserID]; ok {
				delete(hub.clients, client.UserID)
				logger.Log.Info("websocket client unregistered", zap.Int64("user_id", client.UserID))
			}

		case message := <-hub.broadcast:
			hub.send(message)
		}
	}
}

func (hub *WebSocketHub) send(message *Message) {
	if message.UserID != 0 {
		if conn, ok := hub.clients[message.UserID]; ok {
			conn.WriteJSON(message)
		}
		return
	}
	for _, conn := range hub.clients {
		conn.WriteJSON(message)
	}
}

// PublishRevealEvent pushes one scheduler event frame to the owning user.
func (h *WebSocketHandler) PublishRevealEvent(userID int64, ev reveal.Event) {
	msg := &Message{
		Type:   string(ev.Kind),
		UserID: userID,
		Data: gin.H{
			"session_id":    ev.SessionID,
			"phase":         ev.Phase,
			"cursor":        ev.Cursor,
			"display_index": ev.DisplayIndex,
			"item":          ev.Item,
			"timestamp":     time.Now().Unix(),
		},
	}

	select {
	case h.hub.broadcast <- msg:
	default:
		logger.Log.Warn("reveal event dropped, broadcast buffer full",
			zap.Int64("user_id", userID), zap.String("kind", string(ev.Kind)))
	}
}

// NotifyDataStale tells the hosting page to refetch case/inventory lists
// after an already-claimed failure closed the preview.
func (h *WebSocketHandler) NotifyDataStale(userID int64, caseID string) {
	msg := &Message{
		Type:   "CASE_STALE",
		UserID: userID,
		Data: gin.H{
			"case_id":   caseID,
			"timestamp": time.Now().Unix(),
		},
	}

	select {
	case h.hub.broadcast <- msg:
	default:
	}
}
