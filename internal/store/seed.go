package store

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Seed populates demo data on first run and refreshes historical
// timestamps so the dashboard always opens onto recent activity. It is a
// no-op when merchants already exist, apart from the timestamp shift.
func (s *Store) Seed() error {
	if err := s.withTx(s.seedInitialData); err != nil {
		return err
	}
	return s.withTx(s.shiftTimestamps)
}

func (s *Store) seedInitialData(tx *sql.Tx) error {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM merchants`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	now := time.Now().UTC()
	nowStr := FormatTime(now)

	merchants := []struct {
		name, tier, phase string
	}{
		{"Lux Modern", "enterprise", "migration"},
		{"Velvet Direct", "enterprise", "post-migration"},
		{"Nordic Soul", "mid_market", "migration"},
		{"Apex Parts", "mid_market", "pre-migration"},
		{"TechFlow Pro", "enterprise", "migration"},
	}
	merchantIDs := make([]string, 0, len(merchants))
	for _, m := range merchants {
		id := GenerateID("merch_")
		merchantIDs = append(merchantIDs, id)
		_, err := tx.Exec(`
INSERT INTO merchants (id, name, tier, logo_url, migration_phase, created_at)
VALUES (?, ?, ?, NULL, ?, ?)`, id, m.name, m.tier, m.phase, nowStr)
		if err != nil {
			return fmt.Errorf("seed merchants: %w", err)
		}
	}

	agents := []struct {
		name, typ, status string
		resolutions       int
		successRate       float64
		avgTime           float64
		revenue           float64
	}{
		{"Issue Resolution Agent", "issue_resolution", "active", 156, 94.2, 45.3, 425000},
		{"Migration Monitor", "monitoring", "idle", 89, 97.1, 12.1, 180000},
		{"Security Sentinel", "security", "idle", 34, 99.8, 8.4, 95000},
	}
	for _, a := range agents {
		_, err := tx.Exec(`
INSERT INTO agents (id, name, type, status, total_resolutions, success_rate, avg_resolution_time, revenue_protected, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			GenerateID("agent_"), a.name, a.typ, a.status, a.resolutions, a.successRate, a.avgTime, a.revenue, nowStr)
		if err != nil {
			return fmt.Errorf("seed agents: %w", err)
		}
	}

	_, err := tx.Exec(`
INSERT INTO metrics (
	id, timestamp, period, revenue_protected, revenue_protected_change,
	dev_hours_saved, dev_hours_saved_change, auto_resolution_rate, auto_resolution_rate_change,
	total_incidents, auto_resolved, human_intervention, migration_health_score,
	migration_health_change, active_migrations, created_at
) VALUES (?, ?, 'day', 425000, 12, 1240, 5, 94.2, 2, 156, 147, 9, 98.4, 0.4, 42, ?)`,
		GenerateID("metric_"), nowStr, nowStr)
	if err != nil {
		return fmt.Errorf("seed metrics: %w", err)
	}

	type seedSignal struct {
		id, ts, severity, typ, source, endpoint string
	}
	signals := []seedSignal{}

	pick := func(opts ...string) string { return opts[rand.Intn(len(opts))] }

	// Recent activity for the 24h view.
	for i := 0; i < 8; i++ {
		offset := time.Duration(i*45+rand.Intn(31)) * time.Minute
		signals = append(signals, seedSignal{
			id:       GenerateID("sig_"),
			ts:       FormatTime(now.Add(-offset)),
			severity: pick(SeverityInfo, SeverityWarn, SeveritySystem),
			typ:      pick("DB_SYNC_SUCCESS", "HEARTBEAT", "CACHE_REFRESH", "API_LATENCY_SPIKE"),
			source:   "SystemMonitor",
			endpoint: "/internal/health",
		})
	}

	// Mid-range history for the 7d view.
	for i := 0; i < 10; i++ {
		offset := time.Duration(rand.Intn(6)+1)*24*time.Hour + time.Duration(rand.Intn(24))*time.Hour
		source, endpoint := "PaymentGateway", "/api/v1/checkout"
		if i%2 == 1 {
			source, endpoint = "InventoryService", "/api/v1/stock"
		}
		signals = append(signals, seedSignal{
			id:       GenerateID("sig_"),
			ts:       FormatTime(now.Add(-offset)),
			severity: pick(SeverityWarn, SeverityError, SeverityInfo),
			typ:      pick("PAYMENT_DECLINE_SPIKE", "INVENTORY_MISMATCH", "LOGIN_FAILURE_RATE"),
			source:   source,
			endpoint: endpoint,
		})
	}

	// Older history for the 30d view.
	for i := 0; i < 12; i++ {
		offset := time.Duration(rand.Intn(22)+8)*24*time.Hour + time.Duration(rand.Intn(24))*time.Hour
		signals = append(signals, seedSignal{
			id:       GenerateID("sig_"),
			ts:       FormatTime(now.Add(-offset)),
			severity: pick(SeverityCritical, SeverityError, SeverityWarn),
			typ:      pick("DB_SCHEMA_CORRUPTION", "LEGACY_BRIDGE_FAILURE", "TOKEN_INVALID"),
			source:   "LegacyBridge",
			endpoint: "/api/v1/legacy/sync",
		})
	}

	for _, sig := range signals {
		merch := merchantIDs[rand.Intn(len(merchantIDs))]
		_, err := tx.Exec(`
INSERT INTO signals (id, timestamp, severity, type, source, endpoint, status, merchant_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, 'resolved', ?, ?)`,
			sig.id, sig.ts, sig.severity, sig.typ, sig.source, sig.endpoint, merch, nowStr)
		if err != nil {
			return fmt.Errorf("seed signals: %w", err)
		}
	}

	// Hourly revenue-at-risk curve for the last day, with an afternoon peak.
	for i := 0; i < 24; i++ {
		amount := 15000 + i*1200 + (i%5)*3000
		if i == 14 {
			amount = 42000
		}
		_, err := tx.Exec(`
INSERT INTO revenue_at_risk (id, timestamp, amount, incidents_count, created_at)
VALUES (?, ?, ?, ?, ?)`,
			GenerateID("risk_"), FormatTime(now.Add(-time.Duration(23-i)*time.Hour)), amount, i%4+1, nowStr)
		if err != nil {
			return fmt.Errorf("seed revenue at risk: %w", err)
		}
	}

	incidents := []struct {
		signal, merchant, typ, title, severity string
		hoursAgo                               int
		resolutionTime                         int
		resolutionType                         string
		revenue                                float64
	}{
		{signals[0].id, merchantIDs[0], "Cart API Latency (Migration UAT)", "Cart API Latency", "critical", 2, 74, "auto_fixed", 12450},
		{signals[1].id, merchantIDs[1], "Payment Webhook Failover", "Payment Webhook Failover", "high", 4, 48, "auto_fixed", 8200},
		{signals[2].id, merchantIDs[2], "Stock Sync Discrepancy", "Stock Sync Discrepancy", "medium", 6, 292, "human_resolved", 4120},
		{signals[3].id, merchantIDs[3], "Checkout CSS Injection (Security)", "Security Alert", "low", 8, 10, "auto_fixed", 2900},
	}
	for _, inc := range incidents {
		_, err := tx.Exec(`
INSERT INTO incidents (
	id, signal_id, merchant_id, type, title, description, severity, status,
	detected_at, resolved_at, resolution_time, resolution_type, revenue_protected, created_at
) VALUES (?, ?, ?, ?, ?, NULL, ?, 'resolved', ?, ?, ?, ?, ?, ?)`,
			GenerateID("inc_"), inc.signal, inc.merchant, inc.typ, inc.title, inc.severity,
			FormatTime(now.Add(-time.Duration(inc.hoursAgo)*time.Hour)), nowStr,
			inc.resolutionTime, inc.resolutionType, inc.revenue, nowStr)
		if err != nil {
			return fmt.Errorf("seed incidents: %w", err)
		}
	}
	return nil
}

// shiftTimestamps moves all historical timestamps forward so the most
// recent signal lands at now. Rows with unparseable timestamps are left
// alone. Skipped when the data is already fresh, so quick restarts do not
// rewrite the file.
func (s *Store) shiftTimestamps(tx *sql.Tx) error {
	var latestStr sql.NullString
	if err := tx.QueryRow(`SELECT MAX(timestamp) FROM signals`).Scan(&latestStr); err != nil {
		return err
	}
	if !latestStr.Valid || latestStr.String == "" {
		return nil
	}
	latest, err := ParseTime(latestStr.String)
	if err != nil {
		return nil
	}

	now := time.Now().UTC()
	shift := now.Sub(latest)
	if shift < 5*time.Minute {
		return nil
	}
	s.logger.Info("shifting historical data", zap.Duration("shift", shift))

	shiftColumn := func(table, column string) error {
		rows, err := tx.Query(fmt.Sprintf(`SELECT id, %s FROM %s`, column, table))
		if err != nil {
			return err
		}
		type rowTS struct{ id, ts string }
		var all []rowTS
		for rows.Next() {
			var r rowTS
			var ts sql.NullString
			if err := rows.Scan(&r.id, &ts); err != nil {
				rows.Close()
				return err
			}
			if ts.Valid {
				r.ts = ts.String
				all = append(all, r)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, r := range all {
			t, err := ParseTime(r.ts)
			if err != nil {
				continue
			}
			_, err = tx.Exec(fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, table, column),
				FormatTime(t.Add(shift)), r.id)
			if err != nil {
				return err
			}
		}
		return nil
	}

	for _, target := range []struct{ table, column string }{
		{"signals", "timestamp"},
		{"metrics", "timestamp"},
		{"revenue_at_risk", "timestamp"},
		{"incidents", "detected_at"},
		{"incidents", "resolved_at"},
	} {
		if err := shiftColumn(target.table, target.column); err != nil {
			return fmt.Errorf("shift %s.%s: %w", target.table, target.column, err)
		}
	}
	return nil
}
