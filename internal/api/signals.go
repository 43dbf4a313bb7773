package api

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"healflow/internal/store"
)

type createSignalRequest struct {
	Timestamp  string         `json:"timestamp"`
	Severity   string         `json:"severity"`
	Type       string         `json:"type"`
	Source     string         `json:"source"`
	Endpoint   string         `json:"endpoint"`
	MerchantID string         `json:"merchant_id"`
	Metadata   map[string]any `json:"metadata"`
	AgentID    string         `json:"agent_id"`
	Status     string         `json:"status"`
}

type updateSignalRequest struct {
	Status     *string        `json:"status"`
	AgentID    *string        `json:"agent_id"`
	Severity   *string        `json:"severity"`
	Type       *string        `json:"type"`
	Source     *string        `json:"source"`
	Endpoint   *string        `json:"endpoint"`
	MerchantID *string        `json:"merchant_id"`
	Metadata   map[string]any `json:"metadata"`
}

func signalFilterFromQuery(r *http.Request) store.SignalFilter {
	q := r.URL.Query()
	f := store.SignalFilter{
		Status:     q.Get("status"),
		Severity:   q.Get("severity"),
		Phase:      q.Get("phase"),
		TimePeriod: q.Get("time_period"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = limit
	}
	if tier := q.Get("tier"); tier != "" {
		f.Tiers = strings.Split(tier, ",")
	}
	return f
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	f := signalFilterFromQuery(r)
	if f.Limit <= 0 {
		f.Limit = 50
	}
	signals, err := s.store.ListSignals(f)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeList(w, signals, len(signals), f.Limit)
}

func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	signal, err := s.store.GetSignal(chi.URLParam(r, "signalID"))
	if err != nil {
		s.writeError(w, err, "Signal not found")
		return
	}
	s.writeJSON(w, http.StatusOK, signal)
}

func (s *Server) handleCreateSignal(w http.ResponseWriter, r *http.Request) {
	var req createSignalRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.Type == "" {
		s.badRequest(w, "Field 'type' is required")
		return
	}
	if req.Severity == "" {
		s.badRequest(w, "Field 'severity' is required")
		return
	}
	if req.Source == "" {
		s.badRequest(w, "Field 'source' is required")
		return
	}
	if !validSeverity(req.Severity) {
		s.badRequest(w, "Severity must be one of: CRITICAL, ERROR, WARN, INFO, SYSTEM")
		return
	}

	signal, err := s.store.CreateSignal(store.SignalInput{
		Timestamp:  req.Timestamp,
		Severity:   req.Severity,
		Type:       req.Type,
		Source:     req.Source,
		Endpoint:   req.Endpoint,
		MerchantID: req.MerchantID,
		Metadata:   req.Metadata,
		AgentID:    req.AgentID,
		Status:     req.Status,
	})
	if err != nil {
		s.internalError(w, err)
		return
	}

	signalsCreatedTotal.WithLabelValues(signal.Severity).Inc()
	s.audit("create", "signal", signal.ID, map[string]any{
		"type":     signal.Type,
		"severity": signal.Severity,
		"source":   signal.Source,
	})
	s.writeJSON(w, http.StatusCreated, signal)
}

func (s *Server) handleUpdateSignal(w http.ResponseWriter, r *http.Request) {
	signalID := chi.URLParam(r, "signalID")

	var req updateSignalRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	signal, err := s.store.UpdateSignal(signalID, store.SignalUpdate{
		Status:     req.Status,
		AgentID:    req.AgentID,
		Severity:   req.Severity,
		Type:       req.Type,
		Source:     req.Source,
		Endpoint:   req.Endpoint,
		MerchantID: req.MerchantID,
		Metadata:   req.Metadata,
	})
	if err != nil {
		s.writeError(w, err, "Signal not found")
		return
	}

	s.audit("update", "signal", signalID, nil)
	s.writeJSON(w, http.StatusOK, signal)
}

// Demo signal templates, one per severity.
var generatedSignals = []store.SignalInput{
	{Type: "404_SPIKE_DETECTED", Severity: store.SeverityCritical, Source: "Shopify_webhook", Endpoint: "/api/v1/checkout/payment"},
	{Type: "STRIPE_LATENCY_HIGH", Severity: store.SeverityWarn, Source: "PaymentGateway", Endpoint: "/api/v1/payments/process"},
	{Type: "DB_SYNC_SUCCESS", Severity: store.SeverityInfo, Source: "DatabaseSync", Endpoint: "/internal/sync"},
	{Type: "TOKEN_INVALID", Severity: store.SeverityError, Source: "AuthService", Endpoint: "/api/v1/auth/verify"},
	{Type: "HEARTBEAT", Severity: store.SeveritySystem, Source: "SystemMonitor"},
}

func (s *Server) handleGenerateSignal(w http.ResponseWriter, r *http.Request) {
	in := generatedSignals[rand.Intn(len(generatedSignals))]

	merchantIDs, err := s.store.MerchantIDs()
	if err != nil {
		s.logger.Warn("fetch merchants for generated signal", zap.Error(err))
	}
	if len(merchantIDs) > 0 {
		in.MerchantID = merchantIDs[rand.Intn(len(merchantIDs))]
	}

	metadata := map[string]any{
		"latency": strconv.Itoa(rand.Intn(851)+50) + "ms",
		"source":  in.Source,
	}
	if in.Severity == store.SeverityCritical {
		metadata["error"] = "NOT_FOUND"
	}
	in.Metadata = metadata

	signal, err := s.store.CreateSignal(in)
	if err != nil {
		s.internalError(w, err)
		return
	}
	signalsCreatedTotal.WithLabelValues(signal.Severity).Inc()
	s.writeJSON(w, http.StatusCreated, signal)
}

func (s *Server) handleSimilarSignals(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	similar, err := s.store.SimilarSignals(chi.URLParam(r, "signalID"), limit)
	if err != nil {
		s.writeError(w, err, "Signal not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": similar})
}

func validSeverity(sev string) bool {
	for _, v := range store.ValidSeverities {
		if sev == v {
			return true
		}
	}
	return false
}

// audit records an action; failures are logged, never surfaced.
func (s *Server) audit(action, entity, entityID string, details map[string]any) {
	if _, err := s.store.AppendAudit(action, entity, entityID, "system", details); err != nil {
		s.logger.Warn("audit append failed", zap.Error(err))
	}
}
