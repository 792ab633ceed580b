// Package api serves the harness's live event stream to websocket clients,
// so a browser dashboard can follow a test run as it happens.
package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"uartref/harness"
	"uartref/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts harness events to all connected clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are drained and ignored; the stream is
// one-way.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	logger.Info("Event stream client connected: %s", conn.RemoteAddr())

	defer func() {
		h.remove(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends one event to every client. A client whose write fails is
// dropped so a stuck consumer cannot stall the test run.
func (h *Hub) Publish(ev harness.Event) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(ev); err != nil {
			h.remove(c)
			c.Close()
		}
	}
}

// Serve runs the event stream endpoint at addr under /ws. It blocks;
// callers run it in a goroutine.
func Serve(addr string, hub *Hub) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	logger.Info("Event stream listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
