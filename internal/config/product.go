package config

// Static product tables served to the dashboard so no UI text is
// hard-coded in frontend components. Field names match the frontend's
// expectations; change them only together with the frontend.

// OODAStage describes one stage of the four-stage loop for UI rendering.
type OODAStage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Order int    `json:"order"`
}

// OODAStageList returns the ordered stage descriptors.
func OODAStageList() []OODAStage {
	labels := UILabels()
	return []OODAStage{
		{ID: "observe", Label: labels["ooda_observe"], Order: 1},
		{ID: "orient", Label: labels["ooda_orient"], Order: 2},
		{ID: "decide", Label: labels["ooda_decide"], Order: 3},
		{ID: "act", Label: labels["ooda_act"], Order: 4},
	}
}

// SystemConfig returns frontend-facing runtime settings.
func SystemConfig() map[string]any {
	return map[string]any{
		"version":                         "1.0.0",
		"default_time_period":             "24h",
		"default_migration_phase":         "all",
		"sla_timeout_seconds":             300,
		"max_signals_display":             50,
		"chart_refresh_interval_ms":       5000,
		"websocket_reconnect_interval_ms": 3000,
	}
}

// RiskThresholds returns the revenue-per-hour risk bands.
func RiskThresholds() map[string]int {
	return map[string]int{
		"critical": 10000,
		"high":     1000,
		"medium":   100,
		"low":      0,
	}
}

// UILabels returns every text label the dashboard renders.
func UILabels() map[string]string {
	return map[string]string{
		// Header
		"app_name":           "HealFlow",
		"header_badge":       "COMMAND",
		"search_placeholder": "Search systems or events...",
		"brief_me_button":    "Brief Me",

		// Metrics
		"metric_revenue_protected": "Revenue Protected",
		"metric_dev_hours_saved":   "Dev Hours Saved",
		"metric_auto_resolution":   "Auto-Resolution",
		"metric_migration_health":  "Migration Health Score",

		// Sidebar navigation
		"nav_command_center":  "COMMAND CENTER",
		"nav_roi_analytics":   "ROI Analytics",
		"nav_live_monitoring": "Live Monitoring",
		"nav_merchant_logs":   "Merchant Logs",

		// Sidebar filters
		"filter_title":           "GLOBAL FILTERS",
		"filter_time_period":     "Time Period",
		"filter_migration_phase": "Migration Phase",
		"filter_merchant_tier":   "Merchant Tier",

		// Time period options
		"time_last_24h": "Last 24 Hours",
		"time_last_7d":  "Last 7 Days",
		"time_last_30d": "Last 30 Days",
		"time_custom":   "Custom Range",

		// Migration phase options
		"phase_all":       "All Phases",
		"phase_pre":       "Pre-Migration",
		"phase_migration": "Migration",
		"phase_post":      "Post-Migration",

		// Merchant tiers
		"tier_enterprise": "Enterprise",
		"tier_mid_market": "Mid-Market",
		"tier_sme":        "SME",

		// Emergency controls
		"failsafe_title":       "FAIL-SAFE",
		"failsafe_description": "Deactivate autonomous mode for all active migrations",
		"emergency_stop":       "EMERGENCY STOP",

		// Live signal log
		"signal_log_title": "LIVE SIGNAL LOG",
		"signal_log_badge": "LIVE FEED",

		// The Brain (OODA)
		"brain_title":            "THE BRAIN (OODA VISUALIZER)",
		"brain_agent_active":     "AGENT ACTIVE",
		"ooda_observe":           "OBSERVE",
		"ooda_orient":            "ORIENT",
		"ooda_decide":            "DECIDE",
		"ooda_act":               "ACT",
		"task_execution":         "TASK EXECUTION",
		"chain_of_thought_title": "CHAIN-OF-THOUGHT REASONING",
		"processing":             "PROCESSING...",

		// HIL queue
		"hil_title":           "HIL QUEUE",
		"hil_revenue_at_risk": "REVENUE AT RISK",
		"hil_stability_index": "STABILITY INDEX",
		"hil_approve":         "Approve",
		"hil_reject":          "Reject",
		"hil_waiting":         "WAITING FOR NEXT SIGNAL...",

		// Config diff page
		"config_diff_title":       "Config Diff & Documentation",
		"back_to_command":         "BACK TO COMMAND CENTER",
		"current_config_title":    "CURRENT CONFIGURATION",
		"current_config_badge":    "ERROR DETECTED",
		"proposed_config_title":   "PROPOSED CORRECTION",
		"proposed_config_badge":   "HEALFLOW SUGGESTION",
		"docs_title":              "DOCUMENTATION SNIPPETS",
		"docs_search":             "SEARCH ALL DOCS",
		"agent_explanation_title": "HEALFLOW AGENT EXPLANATION",
		"cited_label":             "CITED",
		"confidence_label":        "CONFIDENCE",
		"export_json":             "Export JSON",
		"apply_fix":               "Apply Fix",
		"agent_status":            "AGENT STATUS",
		"analysis_time":           "ANALYSIS TIME",
		"context_label":           "CONTEXT",

		// ROI dashboard
		"roi_title":                "Revenue & ROI Impact",
		"roi_subtitle":             "Autonomous monitoring active across {count} active migrations.",
		"roi_status":               "STATUS",
		"roi_autonomous":           "AUTONOMOUS",
		"roi_last_intervention":    "LAST INTERVENTION",
		"roi_projected":            "Projected ROI for current billing cycle",
		"roi_equivalent":           "Equivalent to {count} full-time Engineers",
		"revenue_trends_title":     "Revenue at Risk Trends",
		"revenue_trends_subtitle":  "Hourly monitoring of potential funnel leakages",
		"resolution_title":         "Auto-Resolved vs Human",
		"resolution_subtitle":      "Last 7 days efficiency split",
		"ai_ratio":                 "AI Ratio",
		"interventions_title":      "Recent Critical Interventions",
		"view_all":                 "VIEW ALL INTERVENTIONS",

		// Table headers
		"table_merchant":         "MERCHANT NAME",
		"table_incident_type":    "INCIDENT TYPE",
		"table_resolution_time":  "RESOLUTION TIME",
		"table_protected_impact": "PROTECTED IMPACT",
		"table_status":           "STATUS",

		// Status labels
		"status_auto_fixed": "AUTO-FIXED",
		"status_resolved":   "RESOLVED",
		"status_pending":    "PENDING",

		// Footer
		"footer_system_nominal": "SYSTEM NOMINAL",
		"footer_nodes":          "NODES",
		"footer_online":         "ONLINE",
		"footer_active_agents":  "ACTIVE AGENTS",
		"footer_uptime":         "UPTIME",
		"footer_latency":        "LATENCY",

		// Severity labels
		"severity_critical": "CRITICAL",
		"severity_error":    "ERROR",
		"severity_warn":     "WARN",
		"severity_info":     "INFO",
		"severity_system":   "SYSTEM",
	}
}
