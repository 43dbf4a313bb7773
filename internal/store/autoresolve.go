package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// AutoResolveAgentID marks a signal as resolved by the background agent
// rather than a registry agent.
const AutoResolveAgentID = "agent_background_ai"

// AutoResolveSignal resolves a stale signal and records the matching
// incident, ghost mitigation and audit entry in one transaction. The
// guarded UPDATE makes the operation idempotent: if another writer already
// resolved the signal, nothing happens and false is returned, so the
// follow-on records are never written twice.
func (s *Store) AutoResolveSignal(sig *Signal, notes string, revenue float64) (bool, error) {
	resolved := false
	err := s.withTx(func(tx *sql.Tx) error {
		metadata := map[string]any{}
		for k, v := range sig.Metadata {
			metadata[k] = v
		}
		metadata["resolution"] = notes
		metadata["resolved_by"] = "HealFlow_Auto_GBK"

		res, err := tx.Exec(`
UPDATE signals SET status = ?, agent_id = ?, metadata = ?
WHERE id = ? AND status != ?`,
			SignalResolved, AutoResolveAgentID, marshalJSON(metadata),
			sig.ID, SignalResolved,
		)
		if err != nil {
			return fmt.Errorf("auto-resolve signal: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		resolved = true

		merchantID := sig.MerchantID
		if merchantID == "" {
			merchantID = "merch_default"
		}
		now := Now()
		if err := insertIncidentTx(tx, GenerateID("inc_auto_"), IncidentInput{
			SignalID:         sig.ID,
			MerchantID:       merchantID,
			Type:             sig.Type,
			Title:            "Auto-Resolved: " + sig.Type,
			Description:      notes,
			Severity:         strings.ToLower(sig.Severity),
			Status:           "resolved",
			DetectedAt:       sig.Timestamp,
			ResolvedAt:       now,
			ResolutionTime:   45,
			ResolutionType:   "auto_fixed",
			RevenueProtected: revenue,
			AgentID:          AutoResolveAgentID,
			Timeline:         []map[string]any{},
		}); err != nil {
			return err
		}

		if _, err := insertGhostMitigationTx(tx, sig.ID, notes, revenue); err != nil {
			return err
		}
		_, err = appendAuditTx(tx, "auto_resolve", "signal", sig.ID, AutoResolveAgentID, map[string]any{
			"resolution":        notes,
			"revenue_protected": revenue,
		})
		return err
	})
	return resolved, err
}
