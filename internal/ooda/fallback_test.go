package ooda

import (
	"context"
	"strings"
	"testing"

	"healflow/internal/store"
)

func TestFallbackObserve(t *testing.T) {
	n := FallbackNarrator{}
	sig := &store.Signal{
		Type:     "404_SPIKE_DETECTED",
		Severity: store.SeverityCritical,
		Source:   "Shopify_webhook",
		Endpoint: "/api/v1/checkout/payment",
	}

	out, err := n.Narrate(context.Background(), StageObserve, sig, nil)
	if err != nil {
		t.Fatalf("narrate observe: %v", err)
	}
	if len(out.Findings) != 5 {
		t.Fatalf("expected 5 findings, got %d", len(out.Findings))
	}
	if out.Findings[0] != "Detected CRITICAL signal: 404_SPIKE_DETECTED" {
		t.Fatalf("unexpected first finding: %q", out.Findings[0])
	}
	if out.Findings[2] != "Endpoint affected: /api/v1/checkout/payment" {
		t.Fatalf("unexpected endpoint finding: %q", out.Findings[2])
	}
}

func TestFallbackObserveMissingEndpoint(t *testing.T) {
	n := FallbackNarrator{}
	sig := &store.Signal{Type: "HEARTBEAT", Severity: store.SeveritySystem, Source: "SystemMonitor"}

	out, err := n.Narrate(context.Background(), StageObserve, sig, nil)
	if err != nil {
		t.Fatalf("narrate observe: %v", err)
	}
	if out.Findings[2] != "Endpoint affected: N/A" {
		t.Fatalf("expected N/A endpoint placeholder, got %q", out.Findings[2])
	}
}

func TestFallbackOrient(t *testing.T) {
	n := FallbackNarrator{}
	sig := &store.Signal{Type: "TOKEN_INVALID", Severity: store.SeverityError, Source: "AuthService"}

	out, err := n.Narrate(context.Background(), StageOrient, sig, nil)
	if err != nil {
		t.Fatalf("narrate orient: %v", err)
	}
	if !strings.HasPrefix(out.Context, "Signal TOKEN_INVALID indicates") {
		t.Fatalf("unexpected context: %q", out.Context)
	}
	if len(out.Related) != 2 {
		t.Fatalf("expected 2 related incidents, got %d", len(out.Related))
	}
}

func TestFallbackDecideRiskTracksSeverity(t *testing.T) {
	n := FallbackNarrator{}

	critical := &store.Signal{Type: "404_SPIKE_DETECTED", Severity: store.SeverityCritical, Source: "Gateway"}
	out, err := n.Narrate(context.Background(), StageDecide, critical, nil)
	if err != nil {
		t.Fatalf("narrate decide: %v", err)
	}
	if out.ProposedSolution == nil {
		t.Fatal("expected a proposed solution")
	}
	if out.ProposedSolution.RiskLevel != "high" {
		t.Fatalf("expected high risk for CRITICAL, got %q", out.ProposedSolution.RiskLevel)
	}
	if out.ProposedSolution.Type != "config_change" || out.ProposedSolution.Confidence != 87 {
		t.Fatalf("unexpected solution shape: %+v", out.ProposedSolution)
	}
	if len(out.ChainOfThought) != 5 {
		t.Fatalf("expected 5 reasoning steps, got %d", len(out.ChainOfThought))
	}

	warn := &store.Signal{Type: "API_LATENCY_SPIKE", Severity: store.SeverityWarn, Source: "Gateway"}
	out, err = n.Narrate(context.Background(), StageDecide, warn, nil)
	if err != nil {
		t.Fatalf("narrate decide warn: %v", err)
	}
	if out.ProposedSolution.RiskLevel != "medium" {
		t.Fatalf("expected medium risk below CRITICAL, got %q", out.ProposedSolution.RiskLevel)
	}
}

func TestFallbackDecideMissingEndpoint(t *testing.T) {
	n := FallbackNarrator{}
	sig := &store.Signal{Type: "TOKEN_INVALID", Severity: store.SeverityError, Source: "AuthService"}

	out, err := n.Narrate(context.Background(), StageDecide, sig, nil)
	if err != nil {
		t.Fatalf("narrate decide: %v", err)
	}
	if !strings.Contains(out.ChainOfThought[0], "from gateway.") {
		t.Fatalf("expected gateway endpoint placeholder, got %q", out.ChainOfThought[0])
	}
}

func TestFallbackAct(t *testing.T) {
	n := FallbackNarrator{}
	sig := &store.Signal{Type: "404_SPIKE_DETECTED", Severity: store.SeverityCritical, Source: "Gateway"}

	out, err := n.Narrate(context.Background(), StageAct, sig, nil)
	if err != nil {
		t.Fatalf("narrate act: %v", err)
	}
	if len(out.Actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(out.Actions))
	}
	if out.Actions[0].Type != "config_update" {
		t.Fatalf("unexpected first action: %+v", out.Actions[0])
	}
}

func TestFallbackUnknownStage(t *testing.T) {
	n := FallbackNarrator{}
	sig := &store.Signal{Type: "T", Severity: store.SeverityInfo}
	if _, err := n.Narrate(context.Background(), "reflect", sig, nil); err == nil {
		t.Fatal("expected an error for an unknown stage")
	}
}
