package store

import (
	"database/sql"
	"fmt"
)

// AppendAudit records an action against an entity. Audit failures are the
// caller's to decide on; handlers log and continue.
func (s *Store) AppendAudit(actionType, entityType, entityID, actor string, details map[string]any) (string, error) {
	var id string
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		id, err = appendAuditTx(tx, actionType, entityType, entityID, actor, details)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func appendAuditTx(tx *sql.Tx, actionType, entityType, entityID, actor string, details map[string]any) (string, error) {
	if actor == "" {
		actor = "system"
	}
	id := GenerateID("audit_")

	var detailsCol any
	if details != nil {
		detailsCol = marshalJSON(details)
	}
	_, err := tx.Exec(`
INSERT INTO audit_log (id, timestamp, action_type, entity_type, entity_id, actor, details)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, Now(), actionType, entityType, nullable(entityID), actor, detailsCol,
	)
	if err != nil {
		return "", fmt.Errorf("append audit: %w", err)
	}
	return id, nil
}

// ListAudit returns audit entries, newest first.
func (s *Store) ListAudit(limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
SELECT id, timestamp, action_type, entity_type, COALESCE(entity_id, ''), actor, COALESCE(details, '')
FROM audit_log ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	out := []*AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		var details string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActionType, &e.EntityType, &e.EntityID, &e.Actor, &details); err != nil {
			return nil, err
		}
		if details != "" {
			e.Details = unmarshalMap(details)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
