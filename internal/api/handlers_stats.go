package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	a := s.orchestrator.Analyzer()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"profile":     a.Profile().Name,
		"queue_depth": s.orchestrator.QueueDepth(),
		"runs":        a.Stats().Snapshot(),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.orchestrator.Analyzer().Profile())
}
