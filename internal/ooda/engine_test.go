package ooda

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"healflow/internal/store"
)

func newTestEngine(t *testing.T, narrator Narrator) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Seed(); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return NewEngine(s, narrator, zap.NewNop()), s
}

func raiseSignal(t *testing.T, s *store.Store, severity string) *store.Signal {
	t.Helper()
	sig, err := s.CreateSignal(store.SignalInput{
		Type:     "404_SPIKE_DETECTED",
		Severity: severity,
		Source:   "Shopify_webhook",
		Endpoint: "/api/v1/checkout/payment",
	})
	if err != nil {
		t.Fatalf("create signal: %v", err)
	}
	return sig
}

// failingNarrator always errors, forcing the engine onto the fallback. It
// counts calls so tests can assert the primary is tried exactly once.
type failingNarrator struct{ calls int }

func (f *failingNarrator) Narrate(context.Context, string, *store.Signal, *store.OODAProcess) (*StageOutput, error) {
	f.calls++
	return nil, errors.New("upstream unavailable")
}

func TestStartPrefersIdleAgent(t *testing.T) {
	engine, s := newTestEngine(t, nil)
	sig := raiseSignal(t, s, store.SeverityCritical)

	res, err := engine.Start(context.Background(), sig.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Agent.Status != store.AgentProcessing {
		t.Fatalf("expected bound agent processing, got %q", res.Agent.Status)
	}
	if res.Signal.Status != store.SignalProcessing || res.Signal.AgentID != res.Agent.ID {
		t.Fatalf("signal not bound to agent: %+v", res.Signal)
	}
	if res.Process.ObserveStatus != "active" {
		t.Fatalf("expected observe active, got %q", res.Process.ObserveStatus)
	}
}

func TestStartUnknownSignalWritesNothing(t *testing.T) {
	engine, s := newTestEngine(t, nil)

	if _, err := engine.Start(context.Background(), "sig_missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	agents, err := s.ListAgents(store.AgentProcessing, "")
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 0 {
		t.Fatalf("expected no agent bound after a failed start, got %d", len(agents))
	}
}

func TestStartEmptyPoolLeavesStoreUntouched(t *testing.T) {
	// No Seed, so the agent registry is empty.
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	engine := NewEngine(s, nil, zap.NewNop())

	sig := raiseSignal(t, s, store.SeverityCritical)

	if _, err := engine.Start(context.Background(), sig.ID); !errors.Is(err, ErrNoAgentAvailable) {
		t.Fatalf("expected ErrNoAgentAvailable, got %v", err)
	}

	got, err := s.GetSignal(sig.ID)
	if err != nil {
		t.Fatalf("get signal: %v", err)
	}
	if got.Status != store.SignalPending || got.AgentID != "" {
		t.Fatalf("signal must be untouched after a failed start: %+v", got)
	}
}

func TestStepFullLoop(t *testing.T) {
	engine, s := newTestEngine(t, nil)
	sig := raiseSignal(t, s, store.SeverityCritical)

	res, err := engine.Start(context.Background(), sig.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	wantProgress := []int{25, 50, 75, 0}
	for i, stage := range Stages {
		step, err := engine.Step(context.Background(), res.Process.ID)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if step.StageCompleted != stage {
			t.Fatalf("step %d: expected stage %q, got %q", i, stage, step.StageCompleted)
		}

		agent, err := s.GetAgent(res.Agent.ID)
		if err != nil {
			t.Fatalf("get agent: %v", err)
		}
		if agent.CurrentTaskProgress != wantProgress[i] {
			t.Fatalf("after %s: expected progress %d, got %d", stage, wantProgress[i], agent.CurrentTaskProgress)
		}
	}

	process, err := s.GetOODAProcess(res.Process.ID)
	if err != nil {
		t.Fatalf("get process: %v", err)
	}
	if process.CompletedAt == "" || process.ActStatus != "complete" {
		t.Fatalf("process not completed: %+v", process)
	}
	if len(process.ObserveFindings) != 5 || process.DecideProposedSolution == nil || len(process.ActActions) != 3 {
		t.Fatalf("stage payloads not persisted: %+v", process)
	}
	if process.DecideProposedSolution.RiskLevel != "high" {
		t.Fatalf("expected high risk for CRITICAL signal, got %q", process.DecideProposedSolution.RiskLevel)
	}

	resolved, err := s.GetSignal(sig.ID)
	if err != nil {
		t.Fatalf("get signal: %v", err)
	}
	if resolved.Status != store.SignalResolved {
		t.Fatalf("signal not resolved, got %q", resolved.Status)
	}
	agent, err := s.GetAgent(res.Agent.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.Status != store.AgentIdle || agent.CurrentTaskSignalID != "" {
		t.Fatalf("agent not released: %+v", agent)
	}
}

func TestStepCompletedProcessIsNoOp(t *testing.T) {
	engine, s := newTestEngine(t, nil)
	sig := raiseSignal(t, s, store.SeverityWarn)

	res, err := engine.Start(context.Background(), sig.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for range Stages {
		if _, err := engine.Step(context.Background(), res.Process.ID); err != nil {
			t.Fatalf("step: %v", err)
		}
	}

	step, err := engine.Step(context.Background(), res.Process.ID)
	if err != nil {
		t.Fatalf("extra step: %v", err)
	}
	if step.StageCompleted != "" {
		t.Fatalf("expected no stage on a completed process, got %q", step.StageCompleted)
	}
	if step.Message != "OODA process already complete" {
		t.Fatalf("unexpected message: %q", step.Message)
	}
}

func TestStepNarratorFailureFallsBackOnce(t *testing.T) {
	failing := &failingNarrator{}
	engine, s := newTestEngine(t, failing)
	sig := raiseSignal(t, s, store.SeverityError)

	res, err := engine.Start(context.Background(), sig.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	step, err := engine.Step(context.Background(), res.Process.ID)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if failing.calls != 1 {
		t.Fatalf("primary narrator must be tried exactly once, got %d calls", failing.calls)
	}
	if step.Output == nil || len(step.Output.Findings) != 5 {
		t.Fatalf("expected fallback findings, got %+v", step.Output)
	}
}
