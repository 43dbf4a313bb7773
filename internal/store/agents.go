package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AgentUpdate is a partial agent update; nil pointers leave the column
// unchanged and an empty-string pointer clears a nullable column.
type AgentUpdate struct {
	Status               *string
	CurrentTaskSignalID  *string
	CurrentTaskStage     *string
	CurrentTaskProgress  *int
	CurrentTaskStartedAt *string
	TotalResolutions     *int
	SuccessRate          *float64
	AvgResolutionTime    *float64
	RevenueProtected     *float64
}

const agentColumns = `id, name, type, status,
	COALESCE(current_task_signal_id, ''), COALESCE(current_task_stage, ''),
	current_task_progress, COALESCE(current_task_started_at, ''),
	COALESCE(capabilities, '[]'), total_resolutions, success_rate,
	avg_resolution_time, revenue_protected, COALESCE(created_at, ''), COALESCE(updated_at, '')`

func scanAgent(row interface{ Scan(...any) error }) (*Agent, error) {
	var a Agent
	var capabilities string
	err := row.Scan(
		&a.ID, &a.Name, &a.Type, &a.Status,
		&a.CurrentTaskSignalID, &a.CurrentTaskStage,
		&a.CurrentTaskProgress, &a.CurrentTaskStartedAt,
		&capabilities, &a.TotalResolutions, &a.SuccessRate,
		&a.AvgResolutionTime, &a.RevenueProtected, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Capabilities = unmarshalStrings(capabilities)
	return &a, nil
}

// ListAgents returns agents, optionally filtered by status and type.
func (s *Store) ListAgents(status, agentType string) ([]*Agent, error) {
	conds := []string{}
	params := []any{}
	if status != "" {
		conds = append(conds, "status = ?")
		params = append(params, status)
	}
	if agentType != "" {
		conds = append(conds, "type = ?")
		params = append(params, agentType)
	}

	query := `SELECT ` + agentColumns + ` FROM agents`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	out := []*Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAgent returns an agent by id or ErrNotFound.
func (s *Store) GetAgent(id string) (*Agent, error) {
	row := s.db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAgent applies a partial update and stamps updated_at.
func (s *Store) UpdateAgent(id string, u AgentUpdate) (*Agent, error) {
	err := s.withTx(func(tx *sql.Tx) error {
		return updateAgentTx(tx, id, u)
	})
	if err != nil {
		return nil, err
	}
	return s.GetAgent(id)
}

func updateAgentTx(tx *sql.Tx, id string, u AgentUpdate) error {
	sets := []string{}
	params := []any{}
	add := func(col string, val any) {
		sets = append(sets, col+" = ?")
		params = append(params, val)
	}

	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.CurrentTaskSignalID != nil {
		add("current_task_signal_id", nullable(*u.CurrentTaskSignalID))
	}
	if u.CurrentTaskStage != nil {
		add("current_task_stage", nullable(*u.CurrentTaskStage))
	}
	if u.CurrentTaskProgress != nil {
		add("current_task_progress", *u.CurrentTaskProgress)
	}
	if u.CurrentTaskStartedAt != nil {
		add("current_task_started_at", nullable(*u.CurrentTaskStartedAt))
	}
	if u.TotalResolutions != nil {
		add("total_resolutions", *u.TotalResolutions)
	}
	if u.SuccessRate != nil {
		add("success_rate", *u.SuccessRate)
	}
	if u.AvgResolutionTime != nil {
		add("avg_resolution_time", *u.AvgResolutionTime)
	}
	if u.RevenueProtected != nil {
		add("revenue_protected", *u.RevenueProtected)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", Now())

	params = append(params, id)
	res, err := tx.Exec(`UPDATE agents SET `+strings.Join(sets, ", ")+` WHERE id = ?`, params...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
