package store

import (
	"errors"
	"testing"
)

func seedAgent(t *testing.T, s *Store, name string, status string) string {
	t.Helper()
	id := GenerateID("agent_")
	_, err := s.db.Exec(`
INSERT INTO agents (id, name, type, status, capabilities, created_at, updated_at)
VALUES (?, ?, 'issue_resolution', ?, '[]', ?, ?)`, id, name, status, Now(), Now())
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return id
}

func TestStartOODABindsAgentAndSignal(t *testing.T) {
	s := newTestStore(t)
	agentID := seedAgent(t, s, "Issue Resolution Agent", AgentIdle)
	sig, err := s.CreateSignal(SignalInput{Type: "API_TIMEOUT", Severity: SeverityError, Source: "Gateway"})
	if err != nil {
		t.Fatalf("create signal: %v", err)
	}

	res, err := s.StartOODA(agentID, sig.ID)
	if err != nil {
		t.Fatalf("start ooda: %v", err)
	}

	if res.Process.ObserveStatus != "active" {
		t.Fatalf("expected observe active, got %q", res.Process.ObserveStatus)
	}
	if res.Process.OrientStatus != "pending" || res.Process.DecideStatus != "pending" || res.Process.ActStatus != "pending" {
		t.Fatalf("expected later stages pending, got %+v", res.Process)
	}
	if res.Agent.Status != AgentProcessing || res.Agent.CurrentTaskSignalID != sig.ID || res.Agent.CurrentTaskStage != "observe" {
		t.Fatalf("agent not bound: %+v", res.Agent)
	}
	if res.Signal.Status != SignalProcessing || res.Signal.AgentID != agentID {
		t.Fatalf("signal not bound: %+v", res.Signal)
	}
}

func TestApplyStepAdvancesStage(t *testing.T) {
	s := newTestStore(t)
	agentID := seedAgent(t, s, "Issue Resolution Agent", AgentIdle)
	sig, err := s.CreateSignal(SignalInput{Type: "API_TIMEOUT", Severity: SeverityError, Source: "Gateway"})
	if err != nil {
		t.Fatalf("create signal: %v", err)
	}
	res, err := s.StartOODA(agentID, sig.ID)
	if err != nil {
		t.Fatalf("start ooda: %v", err)
	}

	p, err := s.ApplyStep(res.Process.ID, StepMutation{
		Stage:         "observe",
		CompletedAt:   Now(),
		Findings:      []string{"Detected API_TIMEOUT signal from Gateway"},
		NextStage:     "orient",
		AgentID:       agentID,
		SignalID:      sig.ID,
		AgentProgress: 25,
	})
	if err != nil {
		t.Fatalf("apply observe step: %v", err)
	}

	if p.ObserveStatus != "complete" || p.ObserveCompletedAt == "" {
		t.Fatalf("observe not completed: %+v", p)
	}
	if len(p.ObserveFindings) != 1 {
		t.Fatalf("findings not persisted: %+v", p.ObserveFindings)
	}
	if p.OrientStatus != "active" {
		t.Fatalf("expected orient active, got %q", p.OrientStatus)
	}

	agent, err := s.GetAgent(agentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.CurrentTaskStage != "orient" || agent.CurrentTaskProgress != 25 {
		t.Fatalf("agent stage/progress not advanced: %+v", agent)
	}
}

func TestApplyStepDecidePersistsSolution(t *testing.T) {
	s := newTestStore(t)
	agentID := seedAgent(t, s, "Issue Resolution Agent", AgentIdle)
	sig, err := s.CreateSignal(SignalInput{Type: "API_TIMEOUT", Severity: SeverityError, Source: "Gateway"})
	if err != nil {
		t.Fatalf("create signal: %v", err)
	}
	res, err := s.StartOODA(agentID, sig.ID)
	if err != nil {
		t.Fatalf("start ooda: %v", err)
	}

	sol := &Solution{Type: "config_change", Description: "Remap session handling", Confidence: 87, RiskLevel: "medium"}
	p, err := s.ApplyStep(res.Process.ID, StepMutation{
		Stage:          "decide",
		CompletedAt:    Now(),
		ChainOfThought: []string{"Analyzing signal pattern", "Selecting remediation"},
		Solution:       sol,
		NextStage:      "act",
		AgentID:        agentID,
		SignalID:       sig.ID,
		AgentProgress:  75,
	})
	if err != nil {
		t.Fatalf("apply decide step: %v", err)
	}
	if p.DecideProposedSolution == nil {
		t.Fatal("expected proposed solution to round-trip")
	}
	if p.DecideProposedSolution.Confidence != 87 || p.DecideProposedSolution.RiskLevel != "medium" {
		t.Fatalf("solution fields lost: %+v", p.DecideProposedSolution)
	}
	if len(p.DecideChainOfThought) != 2 {
		t.Fatalf("chain of thought lost: %+v", p.DecideChainOfThought)
	}
}

func TestApplyStepTerminalReleasesAgentAndResolvesSignal(t *testing.T) {
	s := newTestStore(t)
	agentID := seedAgent(t, s, "Issue Resolution Agent", AgentIdle)
	sig, err := s.CreateSignal(SignalInput{Type: "API_TIMEOUT", Severity: SeverityError, Source: "Gateway"})
	if err != nil {
		t.Fatalf("create signal: %v", err)
	}
	res, err := s.StartOODA(agentID, sig.ID)
	if err != nil {
		t.Fatalf("start ooda: %v", err)
	}

	p, err := s.ApplyStep(res.Process.ID, StepMutation{
		Stage:       "act",
		CompletedAt: Now(),
		Actions:     []Action{{Type: "config_change", Description: "Applied configuration fix"}},
		AgentID:     agentID,
		SignalID:    sig.ID,
		Terminal:    true,
	})
	if err != nil {
		t.Fatalf("apply act step: %v", err)
	}
	if p.ActStatus != "complete" || p.CompletedAt == "" {
		t.Fatalf("process not completed: %+v", p)
	}

	agent, err := s.GetAgent(agentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.Status != AgentIdle || agent.CurrentTaskSignalID != "" || agent.CurrentTaskProgress != 0 {
		t.Fatalf("agent not released: %+v", agent)
	}

	resolved, err := s.GetSignal(sig.ID)
	if err != nil {
		t.Fatalf("get signal: %v", err)
	}
	if resolved.Status != SignalResolved {
		t.Fatalf("signal not resolved, got %q", resolved.Status)
	}
}

func TestApplyStepUnknownProcess(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ApplyStep("ooda_missing", StepMutation{Stage: "observe", CompletedAt: Now()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
