package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SignalInput carries the caller-supplied fields for a new signal.
// Zero-valued fields fall back to the same defaults the dashboard relies on.
type SignalInput struct {
	Timestamp  string
	Severity   string
	Type       string
	Source     string
	Endpoint   string
	MerchantID string
	Metadata   map[string]any
	AgentID    string
	Status     string
}

// SignalUpdate is a partial update with named optional fields; a nil
// pointer leaves the column untouched. Setting a pointer to the empty
// string clears a nullable column.
type SignalUpdate struct {
	Status     *string
	AgentID    *string
	Severity   *string
	Type       *string
	Source     *string
	Endpoint   *string
	MerchantID *string
	Metadata   map[string]any
}

// SignalFilter selects signals for listing and aggregation. Tier and phase
// filters are merchant-scoped; SYSTEM-severity signals always pass them.
type SignalFilter struct {
	Limit      int
	Status     string
	Severity   string
	Tiers      []string
	Phase      string
	TimePeriod string // 24h, 7d, 30d
}

var signalStatusRank = map[string]int{
	SignalPending:    0,
	SignalProcessing: 1,
	SignalResolved:   2,
}

const signalColumns = `id, timestamp, severity, type, source,
	COALESCE(endpoint, ''), COALESCE(merchant_id, ''), COALESCE(metadata, '{}'),
	COALESCE(agent_id, ''), status, COALESCE(created_at, '')`

func scanSignal(row interface{ Scan(...any) error }) (*Signal, error) {
	var sig Signal
	var metadata string
	err := row.Scan(
		&sig.ID, &sig.Timestamp, &sig.Severity, &sig.Type, &sig.Source,
		&sig.Endpoint, &sig.MerchantID, &metadata,
		&sig.AgentID, &sig.Status, &sig.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sig.Metadata = unmarshalMap(metadata)
	return &sig, nil
}

// CreateSignal inserts a new signal and returns the stored record.
func (s *Store) CreateSignal(in SignalInput) (*Signal, error) {
	now := Now()
	if in.Timestamp == "" {
		in.Timestamp = now
	}
	if in.Severity == "" {
		in.Severity = SeverityInfo
	}
	if in.Type == "" {
		in.Type = "UNKNOWN"
	}
	if in.Source == "" {
		in.Source = "Unknown"
	}
	if in.Status == "" {
		in.Status = SignalPending
	}
	if in.Metadata == nil {
		in.Metadata = map[string]any{}
	}

	id := GenerateID("sig_")
	_, err := s.db.Exec(`
INSERT INTO signals (id, timestamp, severity, type, source, endpoint, merchant_id, metadata, agent_id, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Timestamp, in.Severity, in.Type, in.Source,
		nullable(in.Endpoint), nullable(in.MerchantID), marshalJSON(in.Metadata),
		nullable(in.AgentID), in.Status, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create signal: %w", err)
	}
	return s.GetSignal(id)
}

// GetSignal returns a signal by id or ErrNotFound.
func (s *Store) GetSignal(id string) (*Signal, error) {
	row := s.db.QueryRow(`SELECT `+signalColumns+` FROM signals WHERE id = ?`, id)
	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// signalFilterSQL builds the shared tier/phase/time predicate used by both
// listing and metrics aggregation. Conditions reference signals as "s" and
// merchants as "m".
func signalFilterSQL(f SignalFilter, now time.Time) (conds []string, params []any) {
	if len(f.Tiers) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Tiers)), ",")
		conds = append(conds, fmt.Sprintf("(m.tier IN (%s) OR s.severity = 'SYSTEM')", placeholders))
		for _, t := range f.Tiers {
			params = append(params, t)
		}
	}
	if f.Phase != "" && f.Phase != "all" {
		conds = append(conds, "(m.migration_phase = ? OR s.severity = 'SYSTEM')")
		params = append(params, f.Phase)
	}
	if cutoff, ok := timePeriodCutoff(f.TimePeriod, now); ok {
		conds = append(conds, "s.timestamp >= ?")
		params = append(params, FormatTime(cutoff))
	}
	return conds, params
}

func timePeriodCutoff(period string, now time.Time) (time.Time, bool) {
	switch period {
	case "24h":
		return now.Add(-24 * time.Hour), true
	case "7d":
		return now.AddDate(0, 0, -7), true
	case "30d":
		return now.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}

// ListSignals returns the most recent matching signals, newest first.
func (s *Store) ListSignals(f SignalFilter) ([]*Signal, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	conds := []string{}
	params := []any{}
	if f.Status != "" {
		conds = append(conds, "s.status = ?")
		params = append(params, f.Status)
	}
	if f.Severity != "" {
		conds = append(conds, "s.severity = ?")
		params = append(params, f.Severity)
	}
	fConds, fParams := signalFilterSQL(f, time.Now().UTC())
	conds = append(conds, fConds...)
	params = append(params, fParams...)

	query := `
SELECT s.id, s.timestamp, s.severity, s.type, s.source,
	COALESCE(s.endpoint, ''), COALESCE(s.merchant_id, ''), COALESCE(s.metadata, '{}'),
	COALESCE(s.agent_id, ''), s.status, COALESCE(s.created_at, ''),
	COALESCE(m.tier, ''), COALESCE(m.migration_phase, '')
FROM signals s
LEFT JOIN merchants m ON s.merchant_id = m.id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.timestamp DESC LIMIT ?"
	params = append(params, f.Limit)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	out := []*Signal{}
	for rows.Next() {
		var sig Signal
		var metadata string
		err := rows.Scan(
			&sig.ID, &sig.Timestamp, &sig.Severity, &sig.Type, &sig.Source,
			&sig.Endpoint, &sig.MerchantID, &metadata,
			&sig.AgentID, &sig.Status, &sig.CreatedAt,
			&sig.MerchantTier, &sig.MigrationPhase,
		)
		if err != nil {
			return nil, err
		}
		sig.Metadata = unmarshalMap(metadata)
		out = append(out, &sig)
	}
	return out, rows.Err()
}

// UpdateSignal applies a partial update. Status changes must move forward
// through pending -> processing -> resolved; regressions are rejected.
func (s *Store) UpdateSignal(id string, u SignalUpdate) (*Signal, error) {
	err := s.withTx(func(tx *sql.Tx) error {
		return updateSignalTx(tx, id, u)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSignal(id)
}

func updateSignalTx(tx *sql.Tx, id string, u SignalUpdate) error {
	var current string
	err := tx.QueryRow(`SELECT status FROM signals WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	sets := []string{}
	params := []any{}
	add := func(col string, val any) {
		sets = append(sets, col+" = ?")
		params = append(params, val)
	}

	if u.Status != nil {
		next, ok := signalStatusRank[*u.Status]
		if !ok {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, *u.Status)
		}
		if next < signalStatusRank[current] {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current, *u.Status)
		}
		add("status", *u.Status)
	}
	if u.AgentID != nil {
		add("agent_id", nullable(*u.AgentID))
	}
	if u.Severity != nil {
		add("severity", *u.Severity)
	}
	if u.Type != nil {
		add("type", *u.Type)
	}
	if u.Source != nil {
		add("source", *u.Source)
	}
	if u.Endpoint != nil {
		add("endpoint", nullable(*u.Endpoint))
	}
	if u.MerchantID != nil {
		add("merchant_id", nullable(*u.MerchantID))
	}
	if u.Metadata != nil {
		add("metadata", marshalJSON(u.Metadata))
	}
	if len(sets) == 0 {
		return nil
	}

	params = append(params, id)
	_, err = tx.Exec(`UPDATE signals SET `+strings.Join(sets, ", ")+` WHERE id = ?`, params...)
	return err
}

// HasSignals reports whether any signal rows exist at all; the metrics
// endpoint serves static defaults for a completely empty store.
func (s *Store) HasSignals() (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM signals`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
