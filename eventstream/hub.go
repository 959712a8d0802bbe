package eventstream

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans events out to connected WebSocket clients. Run must be started on
// its own goroutine; Publish never blocks the monitoring loop beyond the
// buffered broadcast channel.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Info("observer connected", "total", n)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Info("observer disconnected", "total", n)
			}

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					if h.logger != nil {
						h.logger.Error("observer write failed", "error", err)
					}
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish marshals the event and queues it for broadcast. Events are dropped
// if the broadcast buffer is full rather than stalling the publisher.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("event marshal failed", "error", err)
		}
		return
	}
	select {
	case h.broadcast <- data:
	default:
		if h.logger != nil {
			h.logger.Warn("event dropped: broadcast buffer full")
		}
	}
}

// Register adds a client connection to the hub.
func (h *Hub) Register(client *websocket.Conn) { h.register <- client }

// Unregister removes a client connection from the hub.
func (h *Hub) Unregister(client *websocket.Conn) { h.unregister <- client }

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
