package eventstream

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades requests to WebSocket connections registered with the hub.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if logger != nil {
				logger.Error("websocket upgrade failed", "error", err)
			}
			return
		}
		hub.Register(conn)
		// Read loop exists only to observe the close; inbound messages
		// are discarded.
		go func() {
			defer hub.Unregister(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Serve exposes the hub at ws://<addr>/events and blocks until the server
// fails. Intended for headless runs; start on its own goroutine.
func Serve(addr string, hub *Hub, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", Handler(hub, logger))
	if logger != nil {
		logger.Info("event stream listening", "addr", addr)
	}
	return http.ListenAndServe(addr, mux)
}
