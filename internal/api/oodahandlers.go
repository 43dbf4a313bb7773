package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type startOODARequest struct {
	SignalID string `json:"signal_id"`
}

type stepOODARequest struct {
	ProcessID string `json:"process_id"`
}

func (s *Server) handleGetOODAProcess(w http.ResponseWriter, r *http.Request) {
	process, err := s.store.GetOODAProcess(chi.URLParam(r, "processID"))
	if err != nil {
		s.writeError(w, err, "OODA process not found")
		return
	}
	s.writeJSON(w, http.StatusOK, process)
}

func (s *Server) handleStartOODA(w http.ResponseWriter, r *http.Request) {
	var req startOODARequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.SignalID == "" {
		s.badRequest(w, "signal_id is required")
		return
	}

	result, err := s.engine.Start(r.Context(), req.SignalID)
	if err != nil {
		s.writeError(w, err, "Signal not found")
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleStepOODA(w http.ResponseWriter, r *http.Request) {
	var req stepOODARequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.ProcessID == "" {
		s.badRequest(w, "process_id is required")
		return
	}

	result, err := s.engine.Step(r.Context(), req.ProcessID)
	if err != nil {
		s.writeError(w, err, "OODA process not found")
		return
	}
	if result.StageCompleted != "" {
		oodaStepsTotal.WithLabelValues(result.StageCompleted).Inc()
	}
	s.writeJSON(w, http.StatusOK, result)
}
