package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ConfigDiffInput carries the fields for a new config diff.
type ConfigDiffInput struct {
	IncidentID      string
	CurrentConfig   map[string]any
	CurrentErrors   []map[string]any
	ProposedConfig  map[string]any
	ProposedChanges []map[string]any
	Documentation   []map[string]any
	Explanation     string
	Confidence      float64
	CitedDocs       []string
}

const diffColumns = `id, incident_id, current_config, COALESCE(current_errors, '[]'),
	proposed_config, COALESCE(proposed_changes, '[]'), COALESCE(documentation, '[]'),
	explanation, confidence, COALESCE(cited_docs, '[]'), COALESCE(created_at, '')`

func scanDiff(row interface{ Scan(...any) error }) (*ConfigDiff, error) {
	var d ConfigDiff
	var current, currentErrs, proposed, changes, docs, cited string
	err := row.Scan(
		&d.ID, &d.IncidentID, &current, &currentErrs,
		&proposed, &changes, &docs,
		&d.Explanation, &d.Confidence, &cited, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.CurrentConfig = unmarshalMap(current)
	d.CurrentErrors = unmarshalMapSlice(currentErrs)
	d.ProposedConfig = unmarshalMap(proposed)
	d.ProposedChanges = unmarshalMapSlice(changes)
	d.Documentation = unmarshalMapSlice(docs)
	d.CitedDocs = unmarshalStrings(cited)
	return &d, nil
}

// CreateConfigDiff inserts a config diff and returns the stored record.
func (s *Store) CreateConfigDiff(in ConfigDiffInput) (*ConfigDiff, error) {
	if in.CurrentConfig == nil {
		in.CurrentConfig = map[string]any{}
	}
	if in.ProposedConfig == nil {
		in.ProposedConfig = map[string]any{}
	}

	id := GenerateID("diff_")
	_, err := s.db.Exec(`
INSERT INTO config_diffs (id, incident_id, current_config, current_errors,
	proposed_config, proposed_changes, documentation, explanation, confidence, cited_docs, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.IncidentID, marshalJSON(in.CurrentConfig), marshalJSON(in.CurrentErrors),
		marshalJSON(in.ProposedConfig), marshalJSON(in.ProposedChanges), marshalJSON(in.Documentation),
		in.Explanation, in.Confidence, marshalJSON(in.CitedDocs), Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("create config diff: %w", err)
	}
	return s.GetConfigDiff(id)
}

// GetConfigDiff returns a diff by id or ErrNotFound.
func (s *Store) GetConfigDiff(id string) (*ConfigDiff, error) {
	row := s.db.QueryRow(`SELECT `+diffColumns+` FROM config_diffs WHERE id = ?`, id)
	d, err := scanDiff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DemoConfigDiff returns the canned diff served when a requested diff does
// not exist, keyed to the legacy session bridge scenario the dashboard
// walks through.
func DemoConfigDiff(id string) *ConfigDiff {
	return &ConfigDiff{
		ID:         id,
		IncidentID: id,
		CurrentConfig: map[string]any{
			"gateway":         "v2.legacy_bridge",
			"auth_strategy":   "jwt_standard",
			"session_mapping": "auto",
			"token_injection": false,
			"retry_policy": map[string]any{
				"attempts": 3,
				"backoff":  "exponential",
			},
			"endpoints": []any{"/api/v1/checkout", "/api/v1/payment"},
		},
		CurrentErrors: []map[string]any{
			{"line": 4, "key": "session_mapping", "value": "auto", "reason": "Legacy sessions not recognized"},
			{"line": 5, "key": "token_injection", "value": false, "reason": "Tokens not being re-signed"},
		},
		ProposedConfig: map[string]any{
			"gateway":          "v2.legacy_bridge",
			"auth_strategy":    "jwt_standard",
			"session_mapping":  "strict_legacy_v2",
			"token_injection":  true,
			"injection_script": "legacy_fix_v1.js",
			"retry_policy": map[string]any{
				"attempts": 3,
				"backoff":  "exponential",
			},
			"endpoints": []any{"/api/v1/checkout", "/api/v1/payment"},
		},
		ProposedChanges: []map[string]any{
			{"line": 4, "type": "modified", "key": "session_mapping", "oldValue": "auto", "newValue": "strict_legacy_v2"},
			{"line": 5, "type": "modified", "key": "token_injection", "oldValue": false, "newValue": true},
			{"line": 6, "type": "added", "key": "injection_script", "newValue": "legacy_fix_v1.js"},
		},
		Documentation: []map[string]any{
			{
				"id":        "DOC-MIG-772",
				"title":     "Legacy Session Persistence",
				"category":  "Migration",
				"content":   "When migrating from legacy architectures, the session_mapping parameter must be explicitly defined as strict_legacy_v2 if custom...",
				"relevance": 98,
			},
			{
				"id":        "AUTH-API-101",
				"title":     "Token Injection Protocols",
				"category":  "Authentication",
				"content":   "Enabling token_injection allows the gateway to automatically append necessary JWT claims required by the backend fulfillment service...",
				"relevance": 85,
			},
			{
				"id":        "SYS-ERR-404",
				"title":     "Common Migration 404s",
				"category":  "Troubleshooting",
				"content":   "Unexpected 404 errors at the checkout endpoint often indicate a failure in header propagation or session mismatch between...",
				"relevance": 76,
			},
		},
		Explanation: "The detected 404 spike is caused by a failure in the legacy session bridge. The current configuration uses auto session mapping, which is failing to recognize headers from your legacy Shopify Plus storefront.\n\nBased on the Migration Documentation (Section 4.2: Session Persistence), I have proposed switching to strict_legacy_v2 and enabling token_injection. This will ensure that legacy auth tokens are correctly re-signed before being passed to the new checkout gateway.",
		Confidence:  98.4,
		CitedDocs:   []string{"DOC-MIG-772"},
	}
}
