package monitor

import (
	"encoding/json"
	"net/http"

	"github.com/kb9vnr/goale/internal/station"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	State    string `json:"state"`
	Channel  string `json:"channel"`
	Scanlist string `json:"scanlist"`
	Online   bool   `json:"online"`
	RadioOK  bool   `json:"radio_ok"`
}

// CallRequest is the body of POST /api/call.
type CallRequest struct {
	Address string `json:"address"`
}

// Handlers binds the monitor's HTTP routes to a station.
type Handlers struct {
	station *station.Station
	hub     *Hub
}

// NewHandlers constructs the route handlers for st, broadcasting client
// events through hub.
func NewHandlers(st *station.Station, hub *Hub) *Handlers {
	return &Handlers{station: st, hub: hub}
}

// HandleStatus serves GET /api/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		State:    h.station.CurrentState(),
		Channel:  h.station.CurrentChannel(),
		Scanlist: h.station.ScanlistName(),
		Online:   h.station.Online(),
		RadioOK:  h.station.RadioOK(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleCall serves POST /api/call.
func (h *Handlers) HandleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}
	h.station.Call(req.Address)
	w.WriteHeader(http.StatusAccepted)
}

// HandleWebSocket upgrades to a WebSocket and registers the connection
// with the hub until it disconnects.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := h.hub.AddClient(conn)
	defer h.hub.RemoveClient(id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
