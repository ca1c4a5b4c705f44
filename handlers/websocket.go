package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/metrics"
	"github.com/lewisian8787/wrestleguess/middleware"
	"github.com/lewisian8787/wrestleguess/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// ErrHubBusy is returned by Notify when the broadcast queue is full
var ErrHubBusy = errors.New("websocket hub broadcast queue is full")

// ErrHubClosed is returned by Notify after Run has stopped
var ErrHubClosed = errors.New("websocket hub is closed")

// Client is one websocket connection. An empty eventIDs set receives everything.
// userID is empty for anonymous viewers.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	userID   string
	mu       sync.RWMutex
	eventIDs map[string]bool
}

// Hub fans scoring notifications out to connected websocket clients.
// Only Run mutates the client set.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan services.Notification
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
	metrics    *metrics.Manager
	logger     *logging.Logger

	mu    sync.RWMutex
	count int
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(m *metrics.Manager) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan services.Notification, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		metrics: m,
		logger:  logging.WithPrefix("WebSocket"),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				h.remove(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount()
			h.logger.Debugf("Client registered (user %q). Total clients: %d", client.userID, len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(client)
				h.logger.Debugf("Client unregistered. Total clients: %d", len(h.clients))
			}

		case n := <-h.broadcast:
			data, err := json.Marshal(n)
			if err != nil {
				h.logger.Errorf("Failed to marshal notification: %v", err)
				continue
			}
			for client := range h.clients {
				if !client.wants(n.EventID) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// slow consumer
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
	h.metrics.SetWebsocketClients(len(h.clients))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Notify queues n for broadcast without blocking on slow clients.
// Run must have been started.
func (h *Hub) Notify(ctx context.Context, n services.Notification) error {
	select {
	case h.broadcast <- n:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrHubBusy
	}
}

// ServeWS handles GET /ws. Run it behind OptionalAuth to tag clients with their user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		eventIDs: make(map[string]bool),
	}
	if user := middleware.GetUserFromContext(r); user != nil {
		client.userID = user.ID
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) wants(eventID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.eventIDs) == 0 || c.eventIDs[eventID]
}

// subscribeMessage narrows or resets the events a client hears about
type subscribeMessage struct {
	Type     string   `json:"type"`
	EventIDs []string `json:"eventIds"`
}

func (c *Client) handleMessage(message []byte) {
	var msg subscribeMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.Debugf("Ignoring malformed client message: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case "subscribe":
		c.eventIDs = make(map[string]bool, len(msg.EventIDs))
		for _, id := range msg.EventIDs {
			c.eventIDs[id] = true
		}
	case "unsubscribe":
		c.eventIDs = make(map[string]bool)
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnf("WebSocket error: %v", err)
			}
			return
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
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
