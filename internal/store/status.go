package store

import (
	"database/sql"
	"errors"
)

// GetSystemStatus returns the singleton status row, or nil when the row is
// missing so callers can serve defaults.
func (s *Store) GetSystemStatus() (*SystemStatus, error) {
	row := s.db.QueryRow(`
SELECT id, status, active_nodes, active_agents, uptime, latency, version, COALESCE(updated_at, '')
FROM system_status LIMIT 1`)

	var st SystemStatus
	err := row.Scan(&st.ID, &st.Status, &st.ActiveNodes, &st.ActiveAgents, &st.Uptime, &st.Latency, &st.Version, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// UpdateSystemStatus sets the operational status string and stamps updated_at.
func (s *Store) UpdateSystemStatus(status string) error {
	_, err := s.db.Exec(`UPDATE system_status SET status = ?, updated_at = ?`, status, Now())
	return err
}

// ListMerchants returns all merchants.
func (s *Store) ListMerchants() ([]*Merchant, error) {
	rows, err := s.db.Query(`
SELECT id, name, tier, COALESCE(logo_url, ''), COALESCE(migration_phase, ''),
	COALESCE(created_at, ''), COALESCE(updated_at, '')
FROM merchants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Merchant{}
	for rows.Next() {
		var m Merchant
		if err := rows.Scan(&m.ID, &m.Name, &m.Tier, &m.LogoURL, &m.MigrationPhase, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// MerchantIDs returns just the merchant ids, for random assignment in
// generated demo signals.
func (s *Store) MerchantIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM merchants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
