package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// HILInput carries the fields for a new human-in-the-loop request.
type HILInput struct {
	AgentID        string
	SignalID       string
	OODAProcessID  string
	Priority       string
	Title          string
	Description    string
	RootCause      string
	ProposedAction map[string]any
	Metrics        map[string]any
}

// hilTTL is how long a request stays actionable before the UI treats it
// as expired.
const hilTTL = 5 * time.Minute

const hilColumns = `id, agent_id, signal_id, COALESCE(ooda_process_id, ''), created_at,
	priority, title, COALESCE(description, ''), COALESCE(root_cause, ''),
	proposed_action, metrics, status, COALESCE(resolution, ''), COALESCE(expires_at, '')`

func scanHIL(row interface{ Scan(...any) error }) (*HILRequest, error) {
	var h HILRequest
	var proposed, metrics, resolution string
	err := row.Scan(
		&h.ID, &h.AgentID, &h.SignalID, &h.OODAProcessID, &h.CreatedAt,
		&h.Priority, &h.Title, &h.Description, &h.RootCause,
		&proposed, &metrics, &h.Status, &resolution, &h.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	h.ProposedAction = unmarshalMap(proposed)
	h.Metrics = unmarshalMap(metrics)
	if resolution != "" {
		var res HILResolution
		if jsonUnmarshal(resolution, &res) == nil {
			h.Resolution = &res
		}
	}
	return &h, nil
}

// CreateHILRequest inserts a pending request expiring five minutes out.
func (s *Store) CreateHILRequest(in HILInput) (*HILRequest, error) {
	if in.Priority == "" {
		in.Priority = "medium"
	}
	if in.ProposedAction == nil {
		in.ProposedAction = map[string]any{}
	}
	if in.Metrics == nil {
		in.Metrics = map[string]any{}
	}

	id := GenerateID("hil_")
	now := time.Now().UTC()
	_, err := s.db.Exec(`
INSERT INTO hil_requests (id, agent_id, signal_id, ooda_process_id, created_at,
	priority, title, description, root_cause, proposed_action, metrics, status, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)`,
		id, in.AgentID, in.SignalID, nullable(in.OODAProcessID), FormatTime(now),
		in.Priority, in.Title, nullable(in.Description), nullable(in.RootCause),
		marshalJSON(in.ProposedAction), marshalJSON(in.Metrics), FormatTime(now.Add(hilTTL)),
	)
	if err != nil {
		return nil, fmt.Errorf("create hil request: %w", err)
	}
	return s.GetHILRequest(id)
}

// GetHILRequest returns a request by id or ErrNotFound.
func (s *Store) GetHILRequest(id string) (*HILRequest, error) {
	row := s.db.QueryRow(`SELECT `+hilColumns+` FROM hil_requests WHERE id = ?`, id)
	h, err := scanHIL(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListPendingHILRequests returns pending requests, newest first.
func (s *Store) ListPendingHILRequests() ([]*HILRequest, error) {
	rows, err := s.db.Query(`SELECT ` + hilColumns + `
FROM hil_requests WHERE status = 'pending' ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pending hil requests: %w", err)
	}
	defer rows.Close()

	out := []*HILRequest{}
	for rows.Next() {
		h, err := scanHIL(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ResolveHILRequest records the human decision. Only a pending request can
// be resolved; resolving twice returns ErrInvalidStatusTransition.
func (s *Store) ResolveHILRequest(id, action, notes, decidedBy string) (*HILRequest, error) {
	if action != HILApproved && action != HILRejected {
		return nil, fmt.Errorf("%w: action %q", ErrInvalidStatusTransition, action)
	}
	if decidedBy == "" {
		decidedBy = "human_operator"
	}

	resolution := HILResolution{
		Action: action,
		By:     decidedBy,
		At:     Now(),
		Notes:  notes,
	}

	err := s.withTx(func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRow(`SELECT status FROM hil_requests WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if current != HILPending {
			return fmt.Errorf("%w: already %s", ErrInvalidStatusTransition, current)
		}
		_, err = tx.Exec(`UPDATE hil_requests SET status = ?, resolution = ? WHERE id = ?`,
			action, marshalJSON(resolution), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetHILRequest(id)
}
