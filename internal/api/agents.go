package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListAgents(r.URL.Query().Get("status"), r.URL.Query().Get("type"))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": agents})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.store.GetAgent(chi.URLParam(r, "agentID"))
	if err != nil {
		s.writeError(w, err, "Agent not found")
		return
	}
	s.writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleAgentCurrentTask(w http.ResponseWriter, r *http.Request) {
	agent, err := s.store.GetAgent(chi.URLParam(r, "agentID"))
	if err != nil {
		s.writeError(w, err, "Agent not found")
		return
	}

	if agent.CurrentTaskSignalID == "" {
		s.writeJSON(w, http.StatusOK, map[string]any{"message": "Agent has no active task"})
		return
	}

	signal, err := s.store.GetSignal(agent.CurrentTaskSignalID)
	if err != nil {
		s.writeError(w, err, "Signal not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"agent":    agent,
		"signal":   signal,
		"stage":    agent.CurrentTaskStage,
		"progress": agent.CurrentTaskProgress,
	})
}
