package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidStatusTransition guards the pending -> processing -> resolved
// monotonic signal lifecycle.
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// TimeLayout is the canonical timestamp encoding for every table. Fixed
// width and always UTC, so lexicographic ordering in SQL matches
// chronological ordering.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Store owns all persisted state. Every durable mutation round-trips
// through it; the engine, sweeper and handlers hold no state of their own.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the sqlite file at path and ensures the
// schema exists. The returned handle is safe for concurrent use; sqlite's
// own locking plus the busy timeout serialize writers.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, logger: logger.Named("store")}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the backing file is still reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Now returns the current UTC time encoded with TimeLayout.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// FormatTime encodes t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a stored timestamp. Seeded or externally supplied rows
// may carry plain RFC3339; accept that as a fallback.
func ParseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// GenerateID returns an opaque identifier with a human-debuggable prefix,
// e.g. "sig_3f2a9c0d41be". Prefixes carry no semantics.
func GenerateID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + raw[:12]
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS system_status (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'nominal',
			active_nodes INTEGER DEFAULT 42,
			active_agents INTEGER DEFAULT 12,
			uptime REAL DEFAULT 99.998,
			latency INTEGER DEFAULT 42,
			version TEXT DEFAULT 'CMD_V1.0.0',
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS merchants (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tier TEXT DEFAULT 'mid_market',
			logo_url TEXT,
			migration_phase TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			severity TEXT NOT NULL,
			type TEXT NOT NULL,
			source TEXT NOT NULL,
			endpoint TEXT,
			merchant_id TEXT,
			metadata TEXT DEFAULT '{}',
			agent_id TEXT,
			status TEXT DEFAULT 'pending',
			created_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_status_ts ON signals(status, timestamp)`,
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT DEFAULT 'issue_resolution',
			status TEXT DEFAULT 'idle',
			current_task_signal_id TEXT,
			current_task_stage TEXT,
			current_task_progress INTEGER DEFAULT 0,
			current_task_started_at TEXT,
			capabilities TEXT DEFAULT '[]',
			total_resolutions INTEGER DEFAULT 0,
			success_rate REAL DEFAULT 0,
			avg_resolution_time REAL DEFAULT 0,
			revenue_protected REAL DEFAULT 0,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS ooda_processes (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			signal_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			observe_status TEXT DEFAULT 'pending',
			observe_findings TEXT DEFAULT '[]',
			observe_completed_at TEXT,
			orient_status TEXT DEFAULT 'pending',
			orient_context TEXT,
			orient_related_incidents TEXT DEFAULT '[]',
			orient_completed_at TEXT,
			decide_status TEXT DEFAULT 'pending',
			decide_chain_of_thought TEXT DEFAULT '[]',
			decide_proposed_solution TEXT,
			decide_completed_at TEXT,
			act_status TEXT DEFAULT 'pending',
			act_actions TEXT DEFAULT '[]',
			act_completed_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS hil_requests (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			signal_id TEXT NOT NULL,
			ooda_process_id TEXT,
			created_at TEXT NOT NULL,
			priority TEXT DEFAULT 'medium',
			title TEXT NOT NULL,
			description TEXT,
			root_cause TEXT,
			proposed_action TEXT NOT NULL,
			metrics TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			resolution TEXT,
			expires_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS config_diffs (
			id TEXT PRIMARY KEY,
			incident_id TEXT NOT NULL,
			current_config TEXT NOT NULL,
			current_errors TEXT DEFAULT '[]',
			proposed_config TEXT NOT NULL,
			proposed_changes TEXT DEFAULT '[]',
			documentation TEXT DEFAULT '[]',
			explanation TEXT NOT NULL,
			confidence REAL DEFAULT 0,
			cited_docs TEXT DEFAULT '[]',
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			signal_id TEXT NOT NULL,
			merchant_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			severity TEXT DEFAULT 'medium',
			status TEXT DEFAULT 'detected',
			detected_at TEXT NOT NULL,
			resolved_at TEXT,
			resolution_time INTEGER,
			resolution_type TEXT,
			revenue_protected REAL DEFAULT 0,
			affected_users INTEGER DEFAULT 0,
			downtime INTEGER DEFAULT 0,
			agent_id TEXT,
			ooda_process_id TEXT,
			hil_request_id TEXT,
			config_diff_id TEXT,
			timeline TEXT DEFAULT '[]',
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			period TEXT DEFAULT 'hour',
			revenue_protected REAL DEFAULT 0,
			revenue_protected_change REAL DEFAULT 0,
			dev_hours_saved REAL DEFAULT 0,
			dev_hours_saved_change REAL DEFAULT 0,
			auto_resolution_rate REAL DEFAULT 0,
			auto_resolution_rate_change REAL DEFAULT 0,
			total_incidents INTEGER DEFAULT 0,
			auto_resolved INTEGER DEFAULT 0,
			human_intervention INTEGER DEFAULT 0,
			migration_health_score REAL DEFAULT 0,
			migration_health_change REAL DEFAULT 0,
			active_migrations INTEGER DEFAULT 0,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS revenue_at_risk (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			amount REAL NOT NULL,
			incidents_count INTEGER DEFAULT 0,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS ghost_mitigations (
			id TEXT PRIMARY KEY,
			signal_id TEXT NOT NULL,
			action_taken TEXT NOT NULL,
			revenue_protected REAL DEFAULT 0,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			action_type TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			actor TEXT DEFAULT 'system',
			details TEXT
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	// One system status row, created on first open.
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM system_status`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		_, err := s.db.Exec(
			`INSERT INTO system_status (id, status, updated_at) VALUES (?, ?, ?)`,
			GenerateID("sys_"), "nominal", Now(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
