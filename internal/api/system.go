package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"healflow/internal/config"
	"healflow/internal/ooda"
	"healflow/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, aiAvailable := s.narrator.(ooda.Summarizer)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"timestamp":    store.Now(),
		"ai_available": aiAvailable,
		"version":      Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleConfigLabels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, config.UILabels())
}

func (s *Server) handleConfigSystem(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, config.SystemConfig())
}

func (s *Server) handleConfigOODAStages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, config.OODAStageList())
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.store.GetSystemStatus()
	if err != nil {
		s.internalError(w, err)
		return
	}
	if status == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":        "nominal",
			"active_nodes":  42,
			"active_agents": 12,
			"uptime":        99.998,
			"latency":       42,
			"version":       "CMD_V1.0.0",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// A store with no signal history at all serves the static defaults so
	// a fresh install renders a populated dashboard. An empty *filtered*
	// result still computes, yielding the 100% empty-set rate.
	has, err := s.store.HasSignals()
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !has {
		s.writeJSON(w, http.StatusOK, store.DefaultMetrics())
		return
	}

	f := store.MetricsFilter{
		Phase:      q.Get("phase"),
		TimePeriod: q.Get("time_period"),
	}
	if tier := q.Get("tier"); tier != "" {
		f.Tiers = strings.Split(tier, ",")
	}

	metrics, err := s.store.ComputeMetrics(f)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := q.Get("period")
	limit := 24
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}

	history, err := s.store.MetricsHistory(period, limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": history})
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.store.ComputeMetrics(store.MetricsFilter{})
	if err != nil {
		s.internalError(w, err)
		return
	}
	incidents, err := s.store.ListIncidents(5, "", "")
	if err != nil {
		s.internalError(w, err)
		return
	}

	critical := 0
	for _, inc := range incidents {
		if inc.Severity == "critical" {
			critical++
		}
	}

	summary := map[string]any{
		"generated_at": store.Now(),
		"time_range":   "Last 24 hours",
		"highlights": []string{
			fmt.Sprintf("Protected $%s in revenue", groupThousands(int64(metrics.RevenueProtected))),
			fmt.Sprintf("Saved %.0f engineering hours", metrics.DevHoursSaved),
			fmt.Sprintf("Achieved %.1f%% auto-resolution rate", metrics.AutoResolutionRate),
			fmt.Sprintf("System health at %.1f%%", metrics.MigrationHealthScore),
		},
		"recent_incidents": len(incidents),
		"critical_items":   critical,
		"status":           "All systems operational",
	}

	if summarizer, ok := s.narrator.(ooda.Summarizer); ok {
		text, err := summarizer.Summarize(r.Context(), metrics, len(incidents))
		if err != nil {
			s.logger.Warn("brief summary generation failed", zap.Error(err))
		} else {
			summary["ai_summary"] = text
		}
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// groupThousands renders 1234567 as "1,234,567".
func groupThousands(n int64) string {
	raw := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = raw[1:]
	}

	var b strings.Builder
	lead := len(raw) % 3
	if lead > 0 {
		b.WriteString(raw[:lead])
	}
	for i := lead; i < len(raw); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(raw[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
