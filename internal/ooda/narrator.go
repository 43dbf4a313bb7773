package ooda

import (
	"context"

	"healflow/internal/store"
)

// Loop stages in execution order.
const (
	StageObserve = "observe"
	StageOrient  = "orient"
	StageDecide  = "decide"
	StageAct     = "act"
)

// Stages lists the loop stages in order.
var Stages = []string{StageObserve, StageOrient, StageDecide, StageAct}

// StageOutput is the narrative payload for one completed stage. Only the
// fields belonging to the generated stage are populated.
type StageOutput struct {
	Findings         []string        `json:"findings,omitempty"`
	Context          string          `json:"context,omitempty"`
	Related          []string        `json:"related,omitempty"`
	ChainOfThought   []string        `json:"chain_of_thought,omitempty"`
	ProposedSolution *store.Solution `json:"proposed_solution,omitempty"`
	Actions          []store.Action  `json:"actions,omitempty"`
}

// Narrator produces the stage narrative for a signal under analysis. An
// implementation may consult an external model; errors make the engine
// fall back to the deterministic narrator for that step, exactly once.
type Narrator interface {
	Narrate(ctx context.Context, stage string, signal *store.Signal, process *store.OODAProcess) (*StageOutput, error)
}

// Summarizer produces the optional free-text paragraph for the executive
// brief. Implemented by AI-backed narrators only.
type Summarizer interface {
	Summarize(ctx context.Context, metrics *store.MetricsSnapshot, incidentCount int) (string, error)
}
