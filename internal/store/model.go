package store

// Signal severities. SYSTEM marks heartbeats and other non-merchant
// telemetry, which bypass the merchant tier/phase filters everywhere.
const (
	SeverityCritical = "CRITICAL"
	SeverityError    = "ERROR"
	SeverityWarn     = "WARN"
	SeverityInfo     = "INFO"
	SeveritySystem   = "SYSTEM"
)

// ValidSeverities lists the accepted severity values in display order.
var ValidSeverities = []string{
	SeverityCritical, SeverityError, SeverityWarn, SeverityInfo, SeveritySystem,
}

// Signal lifecycle. Transitions are monotonic: pending -> processing -> resolved.
const (
	SignalPending    = "pending"
	SignalProcessing = "processing"
	SignalResolved   = "resolved"
)

// Agent statuses.
const (
	AgentIdle       = "idle"
	AgentProcessing = "processing"
	AgentActive     = "active"
)

// OODA stage slot statuses.
const (
	StagePending  = "pending"
	StageActive   = "active"
	StageComplete = "complete"
)

// HIL request statuses.
const (
	HILPending  = "pending"
	HILApproved = "approved"
	HILRejected = "rejected"
)

type Merchant struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Tier           string `json:"tier"`
	LogoURL        string `json:"logo_url,omitempty"`
	MigrationPhase string `json:"migration_phase"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

type Signal struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	Severity   string         `json:"severity"`
	Type       string         `json:"type"`
	Source     string         `json:"source"`
	Endpoint   string         `json:"endpoint,omitempty"`
	MerchantID string         `json:"merchant_id,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	AgentID    string         `json:"agent_id,omitempty"`
	Status     string         `json:"status"`
	CreatedAt  string         `json:"created_at"`

	// Populated on filtered listings via the merchant join.
	MerchantTier   string `json:"merchant_tier,omitempty"`
	MigrationPhase string `json:"migration_phase,omitempty"`
}

type Agent struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Status               string   `json:"status"`
	CurrentTaskSignalID  string   `json:"current_task_signal_id,omitempty"`
	CurrentTaskStage     string   `json:"current_task_stage,omitempty"`
	CurrentTaskProgress  int      `json:"current_task_progress"`
	CurrentTaskStartedAt string   `json:"current_task_started_at,omitempty"`
	Capabilities         []string `json:"capabilities"`
	TotalResolutions     int      `json:"total_resolutions"`
	SuccessRate          float64  `json:"success_rate"`
	AvgResolutionTime    float64  `json:"avg_resolution_time"`
	RevenueProtected     float64  `json:"revenue_protected"`
	CreatedAt            string   `json:"created_at"`
	UpdatedAt            string   `json:"updated_at,omitempty"`
}

// Solution is the decide stage's proposed remediation.
type Solution struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Confidence  int    `json:"confidence"`
	RiskLevel   string `json:"risk_level"`
}

// Action is one entry of the act stage's plan.
type Action struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type OODAProcess struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id"`
	SignalID    string `json:"signal_id"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`

	ObserveStatus      string   `json:"observe_status"`
	ObserveFindings    []string `json:"observe_findings"`
	ObserveCompletedAt string   `json:"observe_completed_at,omitempty"`

	OrientStatus           string   `json:"orient_status"`
	OrientContext          string   `json:"orient_context,omitempty"`
	OrientRelatedIncidents []string `json:"orient_related_incidents"`
	OrientCompletedAt      string   `json:"orient_completed_at,omitempty"`

	DecideStatus           string    `json:"decide_status"`
	DecideChainOfThought   []string  `json:"decide_chain_of_thought"`
	DecideProposedSolution *Solution `json:"decide_proposed_solution,omitempty"`
	DecideCompletedAt      string    `json:"decide_completed_at,omitempty"`

	ActStatus      string   `json:"act_status"`
	ActActions     []Action `json:"act_actions"`
	ActCompletedAt string   `json:"act_completed_at,omitempty"`
}

// HILResolution records the single human decision taken on a request.
type HILResolution struct {
	Action string `json:"action"`
	By     string `json:"by"`
	At     string `json:"at"`
	Notes  string `json:"notes,omitempty"`
}

type HILRequest struct {
	ID             string         `json:"id"`
	AgentID        string         `json:"agent_id"`
	SignalID       string         `json:"signal_id"`
	OODAProcessID  string         `json:"ooda_process_id,omitempty"`
	CreatedAt      string         `json:"created_at"`
	Priority       string         `json:"priority"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	RootCause      string         `json:"root_cause,omitempty"`
	ProposedAction map[string]any `json:"proposed_action"`
	Metrics        map[string]any `json:"metrics"`
	Status         string         `json:"status"`
	Resolution     *HILResolution `json:"resolution,omitempty"`
	ExpiresAt      string         `json:"expires_at"`
}

type ConfigDiff struct {
	ID              string           `json:"id"`
	IncidentID      string           `json:"incident_id"`
	CurrentConfig   map[string]any   `json:"current_config"`
	CurrentErrors   []map[string]any `json:"current_errors"`
	ProposedConfig  map[string]any   `json:"proposed_config"`
	ProposedChanges []map[string]any `json:"proposed_changes"`
	Documentation   []map[string]any `json:"documentation"`
	Explanation     string           `json:"explanation"`
	Confidence      float64          `json:"confidence"`
	CitedDocs       []string         `json:"cited_docs"`
	CreatedAt       string           `json:"created_at"`
}

type Incident struct {
	ID               string           `json:"id"`
	SignalID         string           `json:"signal_id"`
	MerchantID       string           `json:"merchant_id"`
	Type             string           `json:"type"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Severity         string           `json:"severity"`
	Status           string           `json:"status"`
	DetectedAt       string           `json:"detected_at"`
	ResolvedAt       string           `json:"resolved_at,omitempty"`
	ResolutionTime   int              `json:"resolution_time"`
	ResolutionType   string           `json:"resolution_type,omitempty"`
	RevenueProtected float64          `json:"revenue_protected"`
	AffectedUsers    int              `json:"affected_users"`
	Downtime         int              `json:"downtime"`
	AgentID          string           `json:"agent_id,omitempty"`
	OODAProcessID    string           `json:"ooda_process_id,omitempty"`
	HILRequestID     string           `json:"hil_request_id,omitempty"`
	ConfigDiffID     string           `json:"config_diff_id,omitempty"`
	Timeline         []map[string]any `json:"timeline"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at,omitempty"`

	// Populated via the merchant join on reads.
	MerchantName string `json:"merchant_name,omitempty"`
	MerchantLogo string `json:"merchant_logo,omitempty"`
}

// MetricsSnapshot is the dashboard aggregate computed from live signal
// history (see ComputeMetrics) or loaded from the metrics history table.
type MetricsSnapshot struct {
	RevenueProtected         float64 `json:"revenue_protected"`
	RevenueProtectedChange   float64 `json:"revenue_protected_change"`
	DevHoursSaved            float64 `json:"dev_hours_saved"`
	DevHoursSavedChange      float64 `json:"dev_hours_saved_change"`
	AutoResolutionRate       float64 `json:"auto_resolution_rate"`
	AutoResolutionRateChange float64 `json:"auto_resolution_rate_change"`
	MigrationHealthScore     float64 `json:"migration_health_score"`
	MigrationHealthChange    float64 `json:"migration_health_change"`
	TotalIncidents           int     `json:"total_incidents"`
	AutoResolved             int     `json:"auto_resolved"`
	HumanIntervention        int     `json:"human_intervention"`
	ActiveMigrations         int     `json:"active_migrations"`
}

type RevenueAtRiskPoint struct {
	ID             string  `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Amount         float64 `json:"amount"`
	IncidentsCount int     `json:"incidents_count"`
	CreatedAt      string  `json:"created_at"`
}

type GhostMitigation struct {
	ID               string  `json:"id"`
	SignalID         string  `json:"signal_id"`
	ActionTaken      string  `json:"action_taken"`
	RevenueProtected float64 `json:"revenue_protected"`
	CreatedAt        string  `json:"created_at"`
}

type AuditEntry struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	ActionType string         `json:"action_type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Actor      string         `json:"actor"`
	Details    map[string]any `json:"details,omitempty"`
}

type SystemStatus struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	ActiveNodes  int     `json:"active_nodes"`
	ActiveAgents int     `json:"active_agents"`
	Uptime       float64 `json:"uptime"`
	Latency      int     `json:"latency"`
	Version      string  `json:"version"`
	UpdatedAt    string  `json:"updated_at"`
}
