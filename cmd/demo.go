package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"healflow/internal/config"
	"healflow/internal/ooda"
	"healflow/internal/store"
)

var demoSignals int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an end-to-end incident walkthrough without the server",
	Long: `Seeds the database, raises a burst of demo signals, then drives one
critical signal through the full observe/orient/decide/act loop and prints
the outcome. Useful for smoke-testing a build and for live demos.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo()
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntVar(&demoSignals, "signals", 4, "number of warm-up signals to raise before the critical one")
}

func runDemo() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Database.Path, zap.NewNop())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Seed(); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	fmt.Println("[Demo] Raising warm-up signals...")
	warmups := []store.SignalInput{
		{Type: "STRIPE_LATENCY_HIGH", Severity: store.SeverityWarn, Source: "PaymentGateway", Endpoint: "/api/v1/payments/process"},
		{Type: "DB_SYNC_SUCCESS", Severity: store.SeverityInfo, Source: "DatabaseSync", Endpoint: "/internal/sync"},
		{Type: "TOKEN_INVALID", Severity: store.SeverityError, Source: "AuthService", Endpoint: "/api/v1/auth/verify"},
		{Type: "HEARTBEAT", Severity: store.SeveritySystem, Source: "SystemMonitor"},
	}
	var mitigated *store.Signal
	for i := 0; i < demoSignals && i < len(warmups); i++ {
		sig, err := st.CreateSignal(warmups[i])
		if err != nil {
			return fmt.Errorf("create warm-up signal: %w", err)
		}
		fmt.Printf("[Demo]   %s %s from %s\n", sig.Severity, sig.Type, sig.Source)
		if mitigated == nil && sig.Severity == store.SeverityWarn {
			mitigated = sig
		}
	}

	if mitigated != nil {
		if _, err := st.CreateGhostMitigation(mitigated.ID, "Connection pool recycled on payment gateway", 1800); err != nil {
			return fmt.Errorf("record ghost mitigation: %w", err)
		}
		fmt.Printf("[Demo]   silently mitigated %s before it escalated\n", mitigated.Type)
	}

	fmt.Println("[Demo] Raising critical signal...")
	critical, err := st.CreateSignal(store.SignalInput{
		Type:     "404_SPIKE_DETECTED",
		Severity: store.SeverityCritical,
		Source:   "Shopify_webhook",
		Endpoint: "/api/v1/checkout/payment",
		Metadata: map[string]any{"error": "NOT_FOUND"},
	})
	if err != nil {
		return fmt.Errorf("create critical signal: %w", err)
	}

	engine := ooda.NewEngine(st, ooda.FallbackNarrator{}, zap.NewNop())
	ctx := context.Background()

	result, err := engine.Start(ctx, critical.ID)
	if err != nil {
		return fmt.Errorf("start loop: %w", err)
	}
	fmt.Printf("[Demo] Agent %q bound to signal %s\n", result.Agent.Name, critical.ID)

	for i := 0; i < len(ooda.Stages); i++ {
		step, err := engine.Step(ctx, result.Process.ID)
		if err != nil {
			return fmt.Errorf("advance loop: %w", err)
		}
		fmt.Printf("[Demo] Stage complete: %s\n", step.StageCompleted)
		if step.Output != nil && step.Output.ProposedSolution != nil {
			sol := step.Output.ProposedSolution
			fmt.Printf("[Demo]   Proposed %s (confidence %d%%, risk %s)\n", sol.Type, sol.Confidence, sol.RiskLevel)
		}
	}

	resolved, err := st.GetSignal(critical.ID)
	if err != nil {
		return fmt.Errorf("reload signal: %w", err)
	}
	agent, err := st.GetAgent(result.Agent.ID)
	if err != nil {
		return fmt.Errorf("reload agent: %w", err)
	}

	incident, err := st.CreateIncident(store.IncidentInput{
		SignalID:         critical.ID,
		MerchantID:       "merch_default",
		Type:             resolved.Type,
		Title:            "Resolved: " + resolved.Type,
		Description:      "Resolved through the full observe/orient/decide/act loop",
		Severity:         "critical",
		Status:           "resolved",
		DetectedAt:       resolved.Timestamp,
		ResolvedAt:       store.Now(),
		ResolutionTime:   30,
		ResolutionType:   "agent_resolved",
		RevenueProtected: 15000,
		AgentID:          agent.ID,
		OODAProcessID:    result.Process.ID,
	})
	if err != nil {
		return fmt.Errorf("record incident: %w", err)
	}

	resolutions := agent.TotalResolutions + 1
	protected := agent.RevenueProtected + incident.RevenueProtected
	agent, err = st.UpdateAgent(agent.ID, store.AgentUpdate{
		TotalResolutions: &resolutions,
		RevenueProtected: &protected,
	})
	if err != nil {
		return fmt.Errorf("credit agent: %w", err)
	}

	fmt.Println("[Demo] Outcome:")
	fmt.Printf("[Demo]   incident:      %s\n", incident.ID)
	fmt.Printf("[Demo]   signal status: %s\n", resolved.Status)
	fmt.Printf("[Demo]   agent status:  %s (%d resolutions)\n", agent.Status, agent.TotalResolutions)

	metrics, err := st.ComputeMetrics(store.MetricsFilter{})
	if err != nil {
		return fmt.Errorf("compute metrics: %w", err)
	}
	fmt.Printf("[Demo]   revenue protected: $%.0f, auto-resolution %.1f%%\n",
		metrics.RevenueProtected, metrics.AutoResolutionRate)
	return nil
}
