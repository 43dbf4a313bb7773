package ooda

import (
	"context"
	"fmt"

	"healflow/internal/store"
)

// FallbackNarrator produces deterministic stage narratives from the signal
// alone. It is the default narrator and the safety net behind AI-backed
// ones, so its output is stable across runs by construction.
type FallbackNarrator struct{}

// Narrate renders the canned narrative for a stage.
func (FallbackNarrator) Narrate(_ context.Context, stage string, signal *store.Signal, _ *store.OODAProcess) (*StageOutput, error) {
	signalType := signal.Type
	if signalType == "" {
		signalType = "UNKNOWN"
	}
	severity := signal.Severity
	if severity == "" {
		severity = store.SeverityInfo
	}

	switch stage {
	case StageObserve:
		endpoint := signal.Endpoint
		if endpoint == "" {
			endpoint = "N/A"
		}
		source := signal.Source
		if source == "" {
			source = "Unknown"
		}
		return &StageOutput{
			Findings: []string{
				fmt.Sprintf("Detected %s signal: %s", severity, signalType),
				fmt.Sprintf("Source: %s", source),
				fmt.Sprintf("Endpoint affected: %s", endpoint),
				"Analyzing pattern against historical data",
				"Correlating with recent system changes",
			},
		}, nil

	case StageOrient:
		return &StageOutput{
			Context: fmt.Sprintf("Signal %s indicates potential system issue. Analyzing impact on checkout flow and revenue.", signalType),
			Related: []string{
				"Similar pattern observed 3 days ago",
				"Migration phase correlation detected",
			},
		}, nil

	case StageDecide:
		endpoint := signal.Endpoint
		if endpoint == "" {
			endpoint = "gateway"
		}
		risk := "medium"
		if severity == store.SeverityCritical {
			risk = "high"
		}
		return &StageOutput{
			ChainOfThought: []string{
				fmt.Sprintf("Detecting abnormal spike in responses from %s.", endpoint),
				"Comparing current log pattern with migration schema v2.1. Identification: Missing legacy session mapping.",
				"Hypothesis: API Gateway middleware is dropping headers from legacy session tokens.",
				"Proposed Decision: Re-route traffic through Legacy-Bridge node and inject token-fix-script.",
				"Waiting for human approval for High-Risk action (Revenue at risk)...",
			},
			ProposedSolution: &store.Solution{
				Type:        "config_change",
				Description: "Apply session mapping fix and enable token injection",
				Confidence:  87,
				RiskLevel:   risk,
			},
		}, nil

	case StageAct:
		return &StageOutput{
			Actions: []store.Action{
				{Type: "config_update", Description: "Update session_mapping to strict_legacy_v2"},
				{Type: "enable_feature", Description: "Enable token_injection"},
				{Type: "deploy_script", Description: "Deploy legacy_fix_v1.js"},
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown stage %q", stage)
}
