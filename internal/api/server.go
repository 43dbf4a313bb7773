// Package api serves the dashboard's JSON API.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"healflow/internal/ooda"
	"healflow/internal/store"
	"healflow/internal/sysmon"
)

// Version reported on health checks and the status footer.
const Version = "1.0.0"

// Server holds the handler dependencies. All durable state lives in the
// store; the server itself is stateless and safe to rebuild.
type Server struct {
	store    *store.Store
	engine   *ooda.Engine
	narrator ooda.Narrator
	monitor  *sysmon.Monitor
	logger   *zap.Logger
	started  time.Time
}

// New wires the handler set. narrator may be nil (fallback-only
// deployments); monitor may be nil on platforms without process stats.
func New(s *store.Store, engine *ooda.Engine, narrator ooda.Narrator, monitor *sysmon.Monitor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:    s,
		engine:   engine,
		narrator: narrator,
		monitor:  monitor,
		logger:   logger.Named("api"),
		started:  time.Now(),
	}
}

// Router assembles the full route tree with logging, recovery and metrics
// middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.Get("/config/labels", s.handleConfigLabels)
		r.Get("/config/system", s.handleConfigSystem)
		r.Get("/config/ooda-stages", s.handleConfigOODAStages)

		r.Get("/system/status", s.handleSystemStatus)
		r.Get("/system/metrics", s.handleSystemMetrics)
		r.Get("/system/metrics/history", s.handleMetricsHistory)

		r.Route("/signals", func(r chi.Router) {
			r.Get("/", s.handleListSignals)
			r.Post("/", s.handleCreateSignal)
			r.Post("/generate", s.handleGenerateSignal)
			r.Get("/{signalID}", s.handleGetSignal)
			r.Put("/{signalID}", s.handleUpdateSignal)
			r.Patch("/{signalID}", s.handleUpdateSignal)
			r.Get("/{signalID}/similar", s.handleSimilarSignals)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.handleListAgents)
			r.Get("/{agentID}", s.handleGetAgent)
			r.Get("/{agentID}/current-task", s.handleAgentCurrentTask)
		})

		r.Get("/ooda-processes/{processID}", s.handleGetOODAProcess)
		r.Post("/ooda/start", s.handleStartOODA)
		r.Post("/ooda/step", s.handleStepOODA)

		r.Route("/hil-requests", func(r chi.Router) {
			r.Get("/", s.handleListHILRequests)
			r.Post("/", s.handleCreateHILRequest)
			r.Get("/{hilID}", s.handleGetHILRequest)
			r.Post("/{hilID}/resolve", s.handleResolveHILRequest)
		})

		r.Route("/config-diffs", func(r chi.Router) {
			r.Post("/", s.handleCreateConfigDiff)
			r.Get("/{diffID}", s.handleGetConfigDiff)
			r.Post("/{diffID}/apply", s.handleApplyConfigDiff)
		})

		r.Route("/incidents", func(r chi.Router) {
			r.Get("/", s.handleListIncidents)
			r.Get("/{incidentID}", s.handleGetIncident)
		})

		r.Get("/analytics/revenue-at-risk", s.handleRevenueAtRisk)
		r.Get("/analytics/resolution-stats", s.handleResolutionStats)
		r.Get("/analytics/critical-interventions", s.handleCriticalInterventions)

		r.Get("/ghost-mitigations", s.handleListGhostMitigations)
		r.Get("/audit-log", s.handleAuditLog)
		r.Get("/brief", s.handleBrief)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
