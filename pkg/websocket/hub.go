// Package websocket pushes opportunity snapshots to browser clients.
package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is the envelope every push is wrapped in.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub tracks connected clients and fans broadcasts out to them. Clients whose
// send buffer is full are disconnected rather than slowing the broadcaster.
type Hub struct {
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
	closed  bool
}

// HubConfig holds hub configuration.
type HubConfig struct {
	SendBufferSize int
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewHub creates a hub. An empty origin list, or one containing "*", accepts
// any origin.
func NewHub(cfg HubConfig) *Hub {
	size := cfg.SendBufferSize
	if size <= 0 {
		size = 16
	}

	h := &Hub{
		sendBuffer: size,
		logger:     cfg.Logger,
		clients:    make(map[*client]struct{}),
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeHTTP upgrades the request and registers the connection. The client
// immediately receives the most recent broadcast, if any.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket-upgrade-failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		hub:  h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	count := len(h.clients)
	h.mu.Unlock()

	ActiveClients.Inc()
	h.logger.Debug("websocket-client-connected",
		zap.String("client-id", c.id),
		zap.String("remote-addr", r.RemoteAddr),
		zap.Int("client-count", count))

	go c.writePump()
	go c.readPump()
}

// Broadcast sends a message to every client and remembers it for clients that
// connect later. It returns the number of clients the message was queued for.
func (h *Hub) Broadcast(msgType string, data interface{}) (int, error) {
	payload, err := json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("marshal %s message: %w", msgType, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, nil
	}

	h.last = payload

	sent := 0
	for c := range h.clients {
		select {
		case c.send <- payload:
			sent++
		default:
			SlowClientsDisconnectedTotal.Inc()
			h.logger.Warn("websocket-client-too-slow", zap.String("client-id", c.id))
			h.removeLocked(c)
		}
	}

	MessagesBroadcastTotal.WithLabelValues(msgType).Inc()

	return sent, nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	h.logger.Info("websocket-hub-closing", zap.Int("client-count", len(h.clients)))

	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	ActiveClients.Dec()
	h.logger.Debug("websocket-client-disconnected", zap.String("client-id", c.id))
}
