package store

import (
	"database/sql"
	"fmt"
)

// CreateGhostMitigation records a mitigation applied without a visible
// incident, returning the new id.
func (s *Store) CreateGhostMitigation(signalID, actionTaken string, revenueProtected float64) (string, error) {
	var id string
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		id, err = insertGhostMitigationTx(tx, signalID, actionTaken, revenueProtected)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func insertGhostMitigationTx(tx *sql.Tx, signalID, actionTaken string, revenueProtected float64) (string, error) {
	id := GenerateID("ghost_")
	_, err := tx.Exec(`
INSERT INTO ghost_mitigations (id, signal_id, action_taken, revenue_protected, created_at)
VALUES (?, ?, ?, ?, ?)`,
		id, signalID, actionTaken, revenueProtected, Now(),
	)
	if err != nil {
		return "", fmt.Errorf("create ghost mitigation: %w", err)
	}
	return id, nil
}

// ListGhostMitigations returns mitigations, newest first.
func (s *Store) ListGhostMitigations(limit int) ([]*GhostMitigation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
SELECT id, signal_id, action_taken, revenue_protected, COALESCE(created_at, '')
FROM ghost_mitigations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ghost mitigations: %w", err)
	}
	defer rows.Close()

	out := []*GhostMitigation{}
	for rows.Next() {
		var g GhostMitigation
		if err := rows.Scan(&g.ID, &g.SignalID, &g.ActionTaken, &g.RevenueProtected, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}
