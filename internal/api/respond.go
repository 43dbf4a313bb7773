package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"healflow/internal/ooda"
	"healflow/internal/store"
)

// errorBody is the error envelope every non-2xx response carries.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// listBody is the collection envelope. Pagination is advisory: the
// backend serves bounded windows, so offset is always 0 and hasMore false.
type listBody struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

type pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeList(w http.ResponseWriter, data any, total, limit int) {
	s.writeJSON(w, http.StatusOK, listBody{
		Data: data,
		Pagination: pagination{
			Total:   total,
			Limit:   limit,
			Offset:  0,
			HasMore: false,
		},
	})
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "Bad Request", Message: message})
}

func (s *Server) notFound(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found", Message: message})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error", Message: err.Error()})
}

// writeError maps domain errors onto the envelope: missing entities are
// 404, invalid transitions 400, missing agents 500, anything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.notFound(w, notFoundMsg)
	case errors.Is(err, store.ErrInvalidStatusTransition):
		s.badRequest(w, err.Error())
	case errors.Is(err, ooda.ErrNoAgentAvailable):
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error", Message: "No agents available"})
	default:
		s.internalError(w, err)
	}
}

// decodeBody decodes a JSON request body, rejecting empty bodies.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("request body is required")
	}
	return nil
}
