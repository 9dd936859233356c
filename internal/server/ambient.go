package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth is a liveness probe: process uptime and the fact that the
// handler itself is reachable means the listener is accepting, grounded
// in go-server/internal/server/server.go's handleHealth. It carries no
// auth and does not gate publish/subscribe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": s.m.Uptime().Seconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// handleSystemMetrics reports system-wide CPU usage and Go runtime memory stats
// from the background-refreshed snapshot.
func (s *Server) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshot.Info())
}
