package ooda

import (
	"errors"
	"testing"
)

func TestParseStageOutputPlainJSON(t *testing.T) {
	out, err := parseStageOutput(`{"findings": ["a", "b", "c"]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out.Findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(out.Findings))
	}
}

func TestParseStageOutputFencedReply(t *testing.T) {
	reply := "Here is the analysis you asked for:\n```json\n" +
		`{"context": "gateway degradation", "related": ["pattern-a"]}` +
		"\n```\nLet me know if you need more detail."

	out, err := parseStageOutput(reply)
	if err != nil {
		t.Fatalf("parse fenced reply: %v", err)
	}
	if out.Context != "gateway degradation" {
		t.Fatalf("unexpected context: %q", out.Context)
	}
	if len(out.Related) != 1 || out.Related[0] != "pattern-a" {
		t.Fatalf("unexpected related: %+v", out.Related)
	}
}

func TestParseStageOutputSolution(t *testing.T) {
	reply := `{"chain_of_thought": ["step 1"], "proposed_solution": {"type": "config_change", "description": "remap", "confidence": 92, "risk_level": "medium"}}`

	out, err := parseStageOutput(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.ProposedSolution == nil || out.ProposedSolution.Confidence != 92 {
		t.Fatalf("solution lost: %+v", out.ProposedSolution)
	}
}

func TestParseStageOutputNoJSON(t *testing.T) {
	if _, err := parseStageOutput("I cannot help with that."); !errors.Is(err, ErrNoNarrative) {
		t.Fatalf("expected ErrNoNarrative, got %v", err)
	}
}

func TestParseStageOutputMalformedJSON(t *testing.T) {
	if _, err := parseStageOutput(`{"findings": "not an array"}`); !errors.Is(err, ErrNoNarrative) {
		t.Fatalf("expected ErrNoNarrative wrap, got %v", err)
	}
}
