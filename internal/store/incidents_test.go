package store

import "testing"

func TestCreateIncidentDefaults(t *testing.T) {
	s := newTestStore(t)

	inc, err := s.CreateIncident(IncidentInput{
		SignalID:   "sig_demo",
		MerchantID: "merch_default",
		Type:       "404_SPIKE_DETECTED",
		Title:      "Resolved: 404_SPIKE_DETECTED",
	})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}
	if inc.Severity != "medium" || inc.Status != "detected" {
		t.Fatalf("defaults not applied: %+v", inc)
	}
	if inc.DetectedAt == "" {
		t.Fatal("expected detected_at to default to now")
	}
	if inc.Timeline == nil {
		t.Fatal("expected an empty timeline, not nil")
	}
}

func TestCreateIncidentJoinsMerchant(t *testing.T) {
	s := newTestStore(t)
	if err := s.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	merchants, err := s.ListMerchants()
	if err != nil {
		t.Fatalf("list merchants: %v", err)
	}
	if len(merchants) == 0 {
		t.Fatal("seed produced no merchants")
	}

	inc, err := s.CreateIncident(IncidentInput{
		SignalID:         "sig_demo",
		MerchantID:       merchants[0].ID,
		Type:             "API_TIMEOUT",
		Title:            "Resolved: API_TIMEOUT",
		Severity:         "critical",
		Status:           "resolved",
		ResolutionType:   "agent_resolved",
		RevenueProtected: 15000,
	})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}
	if inc.MerchantName != merchants[0].Name {
		t.Fatalf("merchant join missing: got %q, want %q", inc.MerchantName, merchants[0].Name)
	}

	got, err := s.GetIncident(inc.ID)
	if err != nil {
		t.Fatalf("get incident: %v", err)
	}
	if got.RevenueProtected != 15000 || got.ResolutionType != "agent_resolved" {
		t.Fatalf("incident fields lost on reload: %+v", got)
	}
}
