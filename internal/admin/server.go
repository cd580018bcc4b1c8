package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"botops-coord/internal/sim"
)

// Server exposes the coordination state over a JSON API plus a websocket
// event stream.
type Server struct {
	Sim *sim.Simulator
	hub *Hub
	log *slog.Logger
}

// NewServer creates an admin server for the given simulator. A nil hub gets
// replaced with a fresh one; passing a hub lets callers place it in the
// simulator's writer chain.
func NewServer(s *sim.Simulator, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Server{Sim: s, hub: hub, log: logger}
}

// Hub returns the websocket hub. It implements the event writer interfaces
// so it can be composed into the simulator's writer chain.
func (s *Server) Hub() *Hub { return s.hub }

// Routes registers all handlers on the given mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/actions", s.handleActions)
	mux.HandleFunc("/assignments", s.handleAssignments)
	mux.HandleFunc("/squad-health", s.handleSquadHealth)
	mux.HandleFunc("/toggle-chaos", s.handleToggleChaos)
	mux.HandleFunc("/reset-metrics", s.handleResetMetrics)
	mux.HandleFunc("/ws", s.hub.Handler())
}

// Start serves the admin API on addr, blocking until the listener fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	s.Routes(mux)
	s.log.Info("admin API listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Coordinator().Metrics())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Agents())
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.ActiveCasts())
}

func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Coordinator().Assignments())
}

func (s *Server) handleSquadHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Health())
}

func (s *Server) handleToggleChaos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	state := s.Sim.ToggleChaos()
	s.log.Info("chaos toggled", "enabled", state)
	writeJSON(w, map[string]any{"chaos": state})
}

func (s *Server) handleResetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Sim.Coordinator().ResetMetrics()
	w.WriteHeader(http.StatusNoContent)
}
