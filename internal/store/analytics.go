package store

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MetricsFilter scopes the live metrics computation the same way the
// signal listing is scoped.
type MetricsFilter struct {
	Tiers      []string
	Phase      string
	TimePeriod string
}

// RevenueAtRiskSeries is the hourly trend plus its peak point.
type RevenueAtRiskSeries struct {
	Data []*RevenueAtRiskPoint `json:"data"`
	Peak *RevenueAtRiskPoint   `json:"peak,omitempty"`
}

// ResolutionDay is one day of the auto-vs-human efficiency split.
type ResolutionDay struct {
	Period            string  `json:"period"`
	AutoResolved      int     `json:"autoResolved"`
	HumanIntervention int     `json:"humanIntervention"`
	Total             int     `json:"total"`
	AIRatio           float64 `json:"aiRatio"`
}

// ResolutionSummary totals the split over the whole window.
type ResolutionSummary struct {
	TotalAutoResolved      int     `json:"totalAutoResolved"`
	TotalHumanIntervention int     `json:"totalHumanIntervention"`
	OverallAIRatio         float64 `json:"overallAiRatio"`
}

// ResolutionStats is the resolution-stats endpoint payload.
type ResolutionStats struct {
	Data    []ResolutionDay   `json:"data"`
	Summary ResolutionSummary `json:"summary"`
}

// Per-severity weights for the ROI projections. A resolved signal is
// credited with the revenue and engineering time an unhandled incident of
// that severity would have burned.
var (
	revenueWeights = map[string]float64{
		SeverityCritical: 15000,
		SeverityError:    5000,
		SeverityWarn:     1000,
		SeveritySystem:   100,
	}
	devHourWeights = map[string]float64{
		SeverityCritical: 2.5,
		SeverityError:    1.0,
		SeverityWarn:     0.25,
		SeveritySystem:   0.01,
	}
	healthPenalties = map[string]float64{
		SeverityCritical: 15,
		SeverityError:    5,
		SeverityWarn:     1,
	}
)

// ComputeMetrics derives the dashboard aggregate from resolved signal
// history under the given filter. The change fields are fixed dashboard
// placeholders, not derived values.
func (s *Store) ComputeMetrics(f MetricsFilter) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	filter := SignalFilter{Tiers: f.Tiers, Phase: f.Phase, TimePeriod: f.TimePeriod}
	fConds, fParams := signalFilterSQL(filter, now)

	resolvedConds := append([]string{"s.status = 'resolved'"}, fConds...)
	resolvedWhere := " WHERE " + strings.Join(resolvedConds, " AND ")
	join := " FROM signals s LEFT JOIN merchants m ON s.merchant_id = m.id"

	counts, err := s.severityCounts("SELECT s.severity, COUNT(*)"+join+resolvedWhere+" GROUP BY s.severity", fParams)
	if err != nil {
		return nil, err
	}

	revenue := 0.0
	devHours := 0.0
	totalResolved := 0
	for sev, n := range counts {
		revenue += revenueWeights[sev] * float64(n)
		devHours += devHourWeights[sev] * float64(n)
		totalResolved += n
	}

	autoConds := append(append([]string{}, resolvedConds...),
		"(s.agent_id IS NOT NULL OR s.severity = 'SYSTEM' OR s.source = 'SystemMonitor')")
	var autoResolved int
	err = s.db.QueryRow("SELECT COUNT(*)"+join+" WHERE "+strings.Join(autoConds, " AND "), fParams...).Scan(&autoResolved)
	if err != nil {
		return nil, fmt.Errorf("count auto-resolved: %w", err)
	}

	autoRate := 100.0
	if totalResolved > 0 {
		autoRate = float64(autoResolved) / float64(totalResolved) * 100
	}

	// Health is scored off unresolved signals under the same filter.
	activeConds := append([]string{"s.status != 'resolved' AND s.status != 'processed'"}, fConds...)
	activeWhere := " WHERE " + strings.Join(activeConds, " AND ")
	active, err := s.severityCounts("SELECT s.severity, COUNT(*)"+join+activeWhere+" GROUP BY s.severity", fParams)
	if err != nil {
		return nil, err
	}

	penalty := 0.0
	for sev, n := range active {
		penalty += healthPenalties[sev] * float64(n)
	}
	health := math.Max(10, 100-penalty)

	healthChange := 0.4
	if penalty > 0 {
		healthChange = -0.4
	}

	// Active migrations deliberately ignores the filter; the sidebar shows
	// the global count regardless of scope.
	var activeMigrations int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM merchants WHERE migration_phase = 'migration'`).Scan(&activeMigrations)
	if err != nil {
		return nil, fmt.Errorf("count active migrations: %w", err)
	}

	return &MetricsSnapshot{
		RevenueProtected:         revenue,
		RevenueProtectedChange:   12,
		DevHoursSaved:            round1(devHours),
		DevHoursSavedChange:      5,
		AutoResolutionRate:       round1(autoRate),
		AutoResolutionRateChange: 2,
		MigrationHealthScore:     round1(health),
		MigrationHealthChange:    healthChange,
		TotalIncidents:           totalResolved,
		AutoResolved:             autoResolved,
		HumanIntervention:        totalResolved - autoResolved,
		ActiveMigrations:         activeMigrations,
	}, nil
}

func (s *Store) severityCounts(query string, params []any) (map[string]int, error) {
	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("severity counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, err
		}
		counts[sev] = n
	}
	return counts, rows.Err()
}

// DefaultMetrics is the static snapshot served when the signals table is
// entirely empty, so a fresh install still renders a populated dashboard.
func DefaultMetrics() *MetricsSnapshot {
	return &MetricsSnapshot{
		RevenueProtected:         425000,
		RevenueProtectedChange:   12,
		DevHoursSaved:            1240,
		DevHoursSavedChange:      5,
		AutoResolutionRate:       94.2,
		AutoResolutionRateChange: 2,
		MigrationHealthScore:     98.4,
		MigrationHealthChange:    0.4,
		ActiveMigrations:         42,
	}
}

// MetricsHistory returns stored metric rows for a period, newest first.
func (s *Store) MetricsHistory(period string, limit int) ([]map[string]any, error) {
	if period == "" {
		period = "day"
	}
	if limit <= 0 {
		limit = 24
	}
	rows, err := s.db.Query(`
SELECT id, timestamp, period, revenue_protected, revenue_protected_change,
	dev_hours_saved, dev_hours_saved_change, auto_resolution_rate, auto_resolution_rate_change,
	total_incidents, auto_resolved, human_intervention, migration_health_score,
	migration_health_change, active_migrations
FROM metrics WHERE period = ? ORDER BY timestamp DESC LIMIT ?`, period, limit)
	if err != nil {
		return nil, fmt.Errorf("metrics history: %w", err)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		var id, ts, per string
		var snap MetricsSnapshot
		err := rows.Scan(
			&id, &ts, &per, &snap.RevenueProtected, &snap.RevenueProtectedChange,
			&snap.DevHoursSaved, &snap.DevHoursSavedChange, &snap.AutoResolutionRate, &snap.AutoResolutionRateChange,
			&snap.TotalIncidents, &snap.AutoResolved, &snap.HumanIntervention, &snap.MigrationHealthScore,
			&snap.MigrationHealthChange, &snap.ActiveMigrations,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, map[string]any{
			"id":                          id,
			"timestamp":                   ts,
			"period":                      per,
			"revenue_protected":           snap.RevenueProtected,
			"revenue_protected_change":    snap.RevenueProtectedChange,
			"dev_hours_saved":             snap.DevHoursSaved,
			"dev_hours_saved_change":      snap.DevHoursSavedChange,
			"auto_resolution_rate":        snap.AutoResolutionRate,
			"auto_resolution_rate_change": snap.AutoResolutionRateChange,
			"total_incidents":             snap.TotalIncidents,
			"auto_resolved":               snap.AutoResolved,
			"human_intervention":          snap.HumanIntervention,
			"migration_health_score":      snap.MigrationHealthScore,
			"migration_health_change":     snap.MigrationHealthChange,
			"active_migrations":           snap.ActiveMigrations,
		})
	}
	return out, rows.Err()
}

// RevenueAtRisk returns the last N hourly points in chronological order
// along with the peak point.
func (s *Store) RevenueAtRisk(hours int) (*RevenueAtRiskSeries, error) {
	if hours <= 0 {
		hours = 24
	}
	rows, err := s.db.Query(`
SELECT id, timestamp, amount, incidents_count, COALESCE(created_at, '')
FROM revenue_at_risk ORDER BY timestamp DESC LIMIT ?`, hours)
	if err != nil {
		return nil, fmt.Errorf("revenue at risk: %w", err)
	}
	defer rows.Close()

	points := []*RevenueAtRiskPoint{}
	for rows.Next() {
		var p RevenueAtRiskPoint
		if err := rows.Scan(&p.ID, &p.Timestamp, &p.Amount, &p.IncidentsCount, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order and find the peak.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	var peak *RevenueAtRiskPoint
	for _, p := range points {
		if peak == nil || p.Amount > peak.Amount {
			peak = p
		}
	}
	return &RevenueAtRiskSeries{Data: points, Peak: peak}, nil
}

// ComputeResolutionStats produces the deterministic weekday efficiency
// split the ROI page charts.
func ComputeResolutionStats(days int) *ResolutionStats {
	if days <= 0 {
		days = 7
	}
	labels := []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

	stats := make([]ResolutionDay, 0, days)
	totalAuto := 0
	totalHuman := 0
	for i := 0; i < days; i++ {
		auto := 15 + i*3 + (i%3)*2
		human := 3 + i%2
		totalAuto += auto
		totalHuman += human
		stats = append(stats, ResolutionDay{
			Period:            labels[i%7],
			AutoResolved:      auto,
			HumanIntervention: human,
			Total:             auto + human,
			AIRatio:           round1(float64(auto) / float64(auto+human) * 100),
		})
	}
	return &ResolutionStats{
		Data: stats,
		Summary: ResolutionSummary{
			TotalAutoResolved:      totalAuto,
			TotalHumanIntervention: totalHuman,
			OverallAIRatio:         round1(float64(totalAuto) / float64(totalAuto+totalHuman) * 100),
		},
	}
}

// CriticalInterventions returns the most recent resolved incidents.
func (s *Store) CriticalInterventions(limit int) ([]*Incident, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.ListIncidents(limit, "resolved", "")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
