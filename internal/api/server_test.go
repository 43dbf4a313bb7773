package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"healflow/internal/ooda"
	"healflow/internal/store"
)

func newTestServer(t *testing.T, seed bool) (http.Handler, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if seed {
		if err := st.Seed(); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	engine := ooda.NewEngine(st, nil, zap.NewNop())
	srv := New(st, engine, ooda.FallbackNarrator{}, nil, zap.NewNop())
	return srv.Router(), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["status"] != "healthy" {
		t.Fatalf("unexpected status: %v", body["status"])
	}
	if body["version"] != Version {
		t.Fatalf("unexpected version: %v", body["version"])
	}
	// FallbackNarrator has no summarizer, so AI is reported unavailable.
	if body["ai_available"] != false {
		t.Fatalf("expected ai_available false, got %v", body["ai_available"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodGet, "/api/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateSignal(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodPost, "/api/signals/", map[string]any{
		"type":     "404_SPIKE_DETECTED",
		"severity": "CRITICAL",
		"source":   "Shopify_webhook",
		"endpoint": "/api/v1/checkout/payment",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var sig store.Signal
	decodeJSON(t, rec, &sig)
	if sig.ID == "" || sig.Status != store.SignalPending {
		t.Fatalf("unexpected created signal: %+v", sig)
	}
}

func TestCreateSignalValidation(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodPost, "/api/signals/", map[string]any{
		"severity": "CRITICAL",
		"source":   "Gateway",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing type, got %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["error"] != "Bad Request" || body["message"] != "Field 'type' is required" {
		t.Fatalf("unexpected error envelope: %+v", body)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/signals/", map[string]any{
		"type":     "X",
		"severity": "FATAL",
		"source":   "Gateway",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown severity, got %d", rec.Code)
	}
}

func TestGetSignalNotFoundEnvelope(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodGet, "/api/signals/sig_missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["error"] != "Not Found" || body["message"] != "Signal not found" {
		t.Fatalf("unexpected error envelope: %+v", body)
	}
}

func TestListSignalsEnvelope(t *testing.T) {
	h, st := newTestServer(t, false)
	for i := 0; i < 3; i++ {
		if _, err := st.CreateSignal(store.SignalInput{Type: "T", Severity: store.SeverityInfo, Source: "X"}); err != nil {
			t.Fatalf("create signal: %v", err)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/signals/?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data       []store.Signal `json:"data"`
		Pagination struct {
			Total   int  `json:"total"`
			Limit   int  `json:"limit"`
			Offset  int  `json:"offset"`
			HasMore bool `json:"hasMore"`
		} `json:"pagination"`
	}
	decodeJSON(t, rec, &body)
	if len(body.Data) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(body.Data))
	}
	if body.Pagination.Limit != 2 || body.Pagination.Offset != 0 || body.Pagination.HasMore {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestGenerateSignal(t *testing.T) {
	h, _ := newTestServer(t, true)

	rec := doJSON(t, h, http.MethodPost, "/api/signals/generate", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sig store.Signal
	decodeJSON(t, rec, &sig)
	if sig.Type == "" || sig.Metadata["latency"] == nil {
		t.Fatalf("generated signal missing template fields: %+v", sig)
	}
}

func TestOODAStartAndStepFlow(t *testing.T) {
	h, st := newTestServer(t, true)

	sig, err := st.CreateSignal(store.SignalInput{
		Type: "404_SPIKE_DETECTED", Severity: store.SeverityCritical, Source: "Shopify_webhook",
	})
	if err != nil {
		t.Fatalf("create signal: %v", err)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/ooda/start", map[string]any{"signal_id": sig.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on start, got %d: %s", rec.Code, rec.Body.String())
	}
	var started store.StartResult
	decodeJSON(t, rec, &started)
	if started.Process == nil || started.Process.ObserveStatus != "active" {
		t.Fatalf("unexpected start result: %+v", started)
	}

	for i := 0; i < 4; i++ {
		rec = doJSON(t, h, http.MethodPost, "/api/ooda/step", map[string]any{"process_id": started.Process.ID})
		if rec.Code != http.StatusOK {
			t.Fatalf("step %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, h, http.MethodGet, "/api/ooda-processes/"+started.Process.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var process store.OODAProcess
	decodeJSON(t, rec, &process)
	if process.CompletedAt == "" {
		t.Fatalf("process not completed: %+v", process)
	}

	resolved, err := st.GetSignal(sig.ID)
	if err != nil {
		t.Fatalf("get signal: %v", err)
	}
	if resolved.Status != store.SignalResolved {
		t.Fatalf("expected resolved signal, got %q", resolved.Status)
	}
}

func TestOODAStartRequiresSignalID(t *testing.T) {
	h, _ := newTestServer(t, true)

	rec := doJSON(t, h, http.MethodPost, "/api/ooda/start", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHILCreateAndResolve(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodPost, "/api/hil-requests/", map[string]any{
		"agent_id":        "agent_1",
		"signal_id":       "sig_1",
		"title":           "Approve gateway remap",
		"proposed_action": map[string]any{"type": "config_change"},
		"metrics":         map[string]any{"revenue_at_risk": 42000},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created store.HILRequest
	decodeJSON(t, rec, &created)
	if created.Status != store.HILPending {
		t.Fatalf("expected pending request, got %+v", created)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/hil-requests/"+created.ID+"/resolve", map[string]any{
		"action": "approved",
		"notes":  "go ahead",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on resolve, got %d: %s", rec.Code, rec.Body.String())
	}
	var resolved store.HILRequest
	decodeJSON(t, rec, &resolved)
	if resolved.Status != store.HILApproved || resolved.Resolution == nil {
		t.Fatalf("unexpected resolved request: %+v", resolved)
	}

	// Resolving twice is rejected.
	rec = doJSON(t, h, http.MethodPost, "/api/hil-requests/"+created.ID+"/resolve", map[string]any{
		"action": "rejected",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on double resolve, got %d", rec.Code)
	}
}

func TestHILCreateValidatesFieldsInOrder(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodPost, "/api/hil-requests/", map[string]any{
		"signal_id": "sig_1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["message"] != "Field 'agent_id' is required" {
		t.Fatalf("expected the first missing field to be reported, got %+v", body)
	}
}

func TestConfigDiffFallsBackToDemoDiff(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodGet, "/api/config-diffs/diff_unknown", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected demo diff 200, got %d", rec.Code)
	}
	var diff store.ConfigDiff
	decodeJSON(t, rec, &diff)
	if diff.ID != "diff_unknown" {
		t.Fatalf("demo diff must echo the requested id, got %q", diff.ID)
	}
	if diff.Confidence != 98.4 || len(diff.CitedDocs) != 1 {
		t.Fatalf("unexpected demo diff: %+v", diff)
	}
}

func TestApplyConfigDiff(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodPost, "/api/config-diffs/", map[string]any{
		"incident_id":     "inc_1",
		"current_config":  map[string]any{"gateway": "v2"},
		"proposed_config": map[string]any{"gateway": "v2.legacy_bridge"},
		"explanation":     "remap legacy sessions",
		"confidence":      95.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var diff store.ConfigDiff
	decodeJSON(t, rec, &diff)

	rec = doJSON(t, h, http.MethodPost, "/api/config-diffs/"+diff.ID+"/apply", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["success"] != true || body["appliedAt"] == nil {
		t.Fatalf("unexpected apply response: %+v", body)
	}

	// Applying an unknown diff is a 404, unlike reads which fall back.
	rec = doJSON(t, h, http.MethodPost, "/api/config-diffs/diff_unknown/apply", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown diff, got %d", rec.Code)
	}
}

func TestSystemMetricsDefaultsOnEmptyStore(t *testing.T) {
	h, _ := newTestServer(t, false)

	rec := doJSON(t, h, http.MethodGet, "/api/system/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var m store.MetricsSnapshot
	decodeJSON(t, rec, &m)
	if m.RevenueProtected != 425000 {
		t.Fatalf("expected static defaults for an empty store, got %+v", m)
	}
}

func TestSystemMetricsComputedWithHistory(t *testing.T) {
	h, st := newTestServer(t, false)
	if _, err := st.CreateSignal(store.SignalInput{
		Type: "T", Severity: store.SeverityCritical, Source: "X", Status: store.SignalResolved, AgentID: "agent_1",
	}); err != nil {
		t.Fatalf("create signal: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/system/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var m store.MetricsSnapshot
	decodeJSON(t, rec, &m)
	if m.RevenueProtected != 15000 {
		t.Fatalf("expected computed revenue 15000, got %f", m.RevenueProtected)
	}
	if m.AutoResolutionRate != 100 {
		t.Fatalf("expected 100%% auto rate, got %f", m.AutoResolutionRate)
	}
}

func TestAgentCurrentTaskIdle(t *testing.T) {
	h, st := newTestServer(t, true)

	agents, err := st.ListAgents("", "")
	if err != nil || len(agents) == 0 {
		t.Fatalf("list agents: %v (%d)", err, len(agents))
	}

	rec := doJSON(t, h, http.MethodGet, "/api/agents/"+agents[0].ID+"/current-task", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["message"] != "Agent has no active task" {
		t.Fatalf("expected idle message, got %+v", body)
	}
}

func TestBriefHighlights(t *testing.T) {
	h, st := newTestServer(t, false)
	if _, err := st.CreateSignal(store.SignalInput{
		Type: "T", Severity: store.SeverityCritical, Source: "X", Status: store.SignalResolved, AgentID: "agent_1",
	}); err != nil {
		t.Fatalf("create signal: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/brief", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Highlights []string `json:"highlights"`
		Status     string   `json:"status"`
	}
	decodeJSON(t, rec, &body)
	if len(body.Highlights) != 4 {
		t.Fatalf("expected 4 highlights, got %d", len(body.Highlights))
	}
	if body.Highlights[0] != "Protected $15,000 in revenue" {
		t.Fatalf("unexpected revenue highlight: %q", body.Highlights[0])
	}
	if body.Status != "All systems operational" {
		t.Fatalf("unexpected status: %q", body.Status)
	}
}

func TestGroupThousands(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		425000:   "425,000",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for in, want := range cases {
		if got := groupThousands(in); got != want {
			t.Fatalf("groupThousands(%d) = %q, want %q", in, got, want)
		}
	}
}
