package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// IncidentInput carries the fields for a new incident record.
type IncidentInput struct {
	SignalID         string
	MerchantID       string
	Type             string
	Title            string
	Description      string
	Severity         string
	Status           string
	DetectedAt       string
	ResolvedAt       string
	ResolutionTime   int
	ResolutionType   string
	RevenueProtected float64
	AffectedUsers    int
	Downtime         int
	AgentID          string
	OODAProcessID    string
	HILRequestID     string
	ConfigDiffID     string
	Timeline         []map[string]any
}

const incidentSelect = `
SELECT i.id, i.signal_id, i.merchant_id, i.type, i.title, COALESCE(i.description, ''),
	i.severity, i.status, i.detected_at, COALESCE(i.resolved_at, ''),
	COALESCE(i.resolution_time, 0), COALESCE(i.resolution_type, ''),
	i.revenue_protected, i.affected_users, i.downtime,
	COALESCE(i.agent_id, ''), COALESCE(i.ooda_process_id, ''),
	COALESCE(i.hil_request_id, ''), COALESCE(i.config_diff_id, ''),
	COALESCE(i.timeline, '[]'), COALESCE(i.created_at, ''), COALESCE(i.updated_at, ''),
	COALESCE(m.name, ''), COALESCE(m.logo_url, '')
FROM incidents i
LEFT JOIN merchants m ON i.merchant_id = m.id`

func scanIncident(row interface{ Scan(...any) error }) (*Incident, error) {
	var inc Incident
	var timeline string
	err := row.Scan(
		&inc.ID, &inc.SignalID, &inc.MerchantID, &inc.Type, &inc.Title, &inc.Description,
		&inc.Severity, &inc.Status, &inc.DetectedAt, &inc.ResolvedAt,
		&inc.ResolutionTime, &inc.ResolutionType,
		&inc.RevenueProtected, &inc.AffectedUsers, &inc.Downtime,
		&inc.AgentID, &inc.OODAProcessID,
		&inc.HILRequestID, &inc.ConfigDiffID,
		&timeline, &inc.CreatedAt, &inc.UpdatedAt,
		&inc.MerchantName, &inc.MerchantLogo,
	)
	if err != nil {
		return nil, err
	}
	inc.Timeline = unmarshalMapSlice(timeline)
	return &inc, nil
}

// CreateIncident inserts an incident record and returns it with the
// merchant join populated.
func (s *Store) CreateIncident(in IncidentInput) (*Incident, error) {
	if in.Severity == "" {
		in.Severity = "medium"
	}
	if in.Status == "" {
		in.Status = "detected"
	}
	if in.DetectedAt == "" {
		in.DetectedAt = Now()
	}
	if in.Timeline == nil {
		in.Timeline = []map[string]any{}
	}

	id := GenerateID("inc_")
	err := s.withTx(func(tx *sql.Tx) error {
		return insertIncidentTx(tx, id, in)
	})
	if err != nil {
		return nil, err
	}
	return s.GetIncident(id)
}

func insertIncidentTx(tx *sql.Tx, id string, in IncidentInput) error {
	_, err := tx.Exec(`
INSERT INTO incidents (id, signal_id, merchant_id, type, title, description, severity, status,
	detected_at, resolved_at, resolution_time, resolution_type, revenue_protected,
	affected_users, downtime, agent_id, ooda_process_id, hil_request_id, config_diff_id,
	timeline, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.SignalID, in.MerchantID, in.Type, in.Title, nullable(in.Description),
		in.Severity, in.Status,
		in.DetectedAt, nullable(in.ResolvedAt), in.ResolutionTime, nullable(in.ResolutionType),
		in.RevenueProtected, in.AffectedUsers, in.Downtime,
		nullable(in.AgentID), nullable(in.OODAProcessID), nullable(in.HILRequestID),
		nullable(in.ConfigDiffID), marshalJSON(in.Timeline), Now(),
	)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident returns an incident with merchant details or ErrNotFound.
func (s *Store) GetIncident(id string) (*Incident, error) {
	row := s.db.QueryRow(incidentSelect+` WHERE i.id = ?`, id)
	inc, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// ListIncidents returns incidents newest first by detection time.
func (s *Store) ListIncidents(limit int, status, severity string) ([]*Incident, error) {
	if limit <= 0 {
		limit = 50
	}

	conds := []string{}
	params := []any{}
	if status != "" {
		conds = append(conds, "i.status = ?")
		params = append(params, status)
	}
	if severity != "" {
		conds = append(conds, "i.severity = ?")
		params = append(params, severity)
	}

	query := incidentSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY i.detected_at DESC LIMIT ?"
	params = append(params, limit)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	out := []*Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}
