package monitor

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the monitor's HTTP server: the JSON status/call API, the
// WebSocket event feed, and the Prometheus /metrics endpoint.
type Server struct {
	mux  *http.ServeMux
	addr string
}

// NewServer builds the monitor's route table.
func NewServer(addr string, h *Handlers) *Server {
	s := &Server{mux: http.NewServeMux(), addr: addr}
	s.mux.HandleFunc("/api/status", h.HandleStatus)
	s.mux.HandleFunc("/api/call", h.HandleCall)
	s.mux.HandleFunc("/ws", h.HandleWebSocket)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Start blocks serving HTTP until the process exits or ListenAndServe
// fails.
func (s *Server) Start() error {
	log.Printf("monitor: listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}
