package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}

	incidents, err := s.store.ListIncidents(limit, q.Get("status"), q.Get("severity"))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeList(w, incidents, len(incidents), limit)
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := s.store.GetIncident(chi.URLParam(r, "incidentID"))
	if err != nil {
		s.writeError(w, err, "Incident not found")
		return
	}
	s.writeJSON(w, http.StatusOK, incident)
}
