// Package monitor implements the optional station dashboard: a JSON status
// endpoint, a call-initiation control endpoint, and a WebSocket feed of
// state-transition and call-result events. Hub.BroadcastLog can send log
// lines, but StationObserver does not forward the station's log to it.
// Grounded on the teacher's
// internal/server package (http.go/websocket.go/handlers.go), repurposed
// from file-transfer control to ALE station control.
package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is a single WebSocket broadcast message.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub manages WebSocket client connections, each tagged with a uuid for
// log correlation (grounded on the ka9q_ubersdr pack repo's use of
// google/uuid for connection identifiers).
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*websocket.Conn
}

// NewHub creates an empty client hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*websocket.Conn)}
}

// AddClient registers a new connection and returns its correlation id.
func (h *Hub) AddClient(conn *websocket.Conn) uuid.UUID {
	id := uuid.New()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	log.Printf("monitor: client %s connected (%d total)", id, h.Len())
	return id
}

// RemoveClient closes and forgets a connection.
func (h *Hub) RemoveClient(id uuid.UUID) {
	h.mu.Lock()
	conn, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
	log.Printf("monitor: client %s disconnected (%d remaining)", id, h.Len())
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every connected client, dropping any that
// fail to write.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("monitor: marshal error: %v", err)
		return
	}

	h.mu.RLock()
	targets := make(map[uuid.UUID]*websocket.Conn, len(h.clients))
	for id, conn := range h.clients {
		targets[id] = conn
	}
	h.mu.RUnlock()

	for id, conn := range targets {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			go h.RemoveClient(id)
		}
	}
}

// BroadcastStateChange announces a state-machine transition.
func (h *Hub) BroadcastStateChange(from, to string) {
	h.Broadcast(Event{Type: "state", Payload: map[string]string{"from": from, "to": to}})
}

// BroadcastCallEvent announces an incoming-call, connected, or disconnected
// event.
func (h *Hub) BroadcastCallEvent(kind, peer string) {
	h.Broadcast(Event{Type: "call", Payload: map[string]string{"kind": kind, "peer": peer}})
}

// BroadcastLog announces a station log line.
func (h *Hub) BroadcastLog(message string) {
	h.Broadcast(Event{Type: "log", Payload: map[string]string{"message": message}})
}
