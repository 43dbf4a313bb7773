package api

import (
	"net/http"
	"strconv"

	"healflow/internal/store"
)

func (s *Server) handleRevenueAtRisk(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if n, err := strconv.Atoi(r.URL.Query().Get("hours")); err == nil && n > 0 {
		hours = n
	}
	series, err := s.store.RevenueAtRisk(hours)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleResolutionStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if n, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && n > 0 {
		days = n
	}
	s.writeJSON(w, http.StatusOK, store.ComputeResolutionStats(days))
}

func (s *Server) handleCriticalInterventions(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	incidents, err := s.store.CriticalInterventions(limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": incidents})
}

func (s *Server) handleListGhostMitigations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	mitigations, err := s.store.ListGhostMitigations(limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": mitigations})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	entries, err := s.store.ListAudit(limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}
