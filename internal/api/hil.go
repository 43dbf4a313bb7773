package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"healflow/internal/store"
)

type createHILRequest struct {
	AgentID        string         `json:"agent_id"`
	SignalID       string         `json:"signal_id"`
	OODAProcessID  string         `json:"ooda_process_id"`
	Priority       string         `json:"priority"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	RootCause      string         `json:"root_cause"`
	ProposedAction map[string]any `json:"proposed_action"`
	Metrics        map[string]any `json:"metrics"`
}

type resolveHILRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
	By     string `json:"by"`
}

func (s *Server) handleListHILRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = store.HILPending
	}

	// Only the pending queue is exposed; resolved requests are read
	// individually.
	requests := []*store.HILRequest{}
	if status == store.HILPending {
		var err error
		requests, err = s.store.ListPendingHILRequests()
		if err != nil {
			s.internalError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": requests, "count": len(requests)})
}

func (s *Server) handleGetHILRequest(w http.ResponseWriter, r *http.Request) {
	hil, err := s.store.GetHILRequest(chi.URLParam(r, "hilID"))
	if err != nil {
		s.writeError(w, err, "HIL request not found")
		return
	}
	s.writeJSON(w, http.StatusOK, hil)
}

func (s *Server) handleCreateHILRequest(w http.ResponseWriter, r *http.Request) {
	var req createHILRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	required := []struct {
		name string
		ok   bool
	}{
		{"agent_id", req.AgentID != ""},
		{"signal_id", req.SignalID != ""},
		{"title", req.Title != ""},
		{"proposed_action", req.ProposedAction != nil},
		{"metrics", req.Metrics != nil},
	}
	for _, f := range required {
		if !f.ok {
			s.badRequest(w, "Field '"+f.name+"' is required")
			return
		}
	}

	hil, err := s.store.CreateHILRequest(store.HILInput{
		AgentID:        req.AgentID,
		SignalID:       req.SignalID,
		OODAProcessID:  req.OODAProcessID,
		Priority:       req.Priority,
		Title:          req.Title,
		Description:    req.Description,
		RootCause:      req.RootCause,
		ProposedAction: req.ProposedAction,
		Metrics:        req.Metrics,
	})
	if err != nil {
		s.internalError(w, err)
		return
	}

	s.audit("create", "hil_request", hil.ID, nil)
	s.writeJSON(w, http.StatusCreated, hil)
}

func (s *Server) handleResolveHILRequest(w http.ResponseWriter, r *http.Request) {
	hilID := chi.URLParam(r, "hilID")

	var req resolveHILRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.Action != store.HILApproved && req.Action != store.HILRejected {
		s.badRequest(w, "Action must be 'approved' or 'rejected'")
		return
	}

	hil, err := s.store.ResolveHILRequest(hilID, req.Action, req.Notes, req.By)
	if err != nil {
		s.writeError(w, err, "HIL request not found")
		return
	}

	s.audit("resolve", "hil_request", hilID, map[string]any{"action": req.Action})
	s.writeJSON(w, http.StatusOK, hil)
}
