package ooda

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"healflow/internal/store"
)

// ErrNoAgentAvailable means a loop could not start because the registry
// holds no agents at all.
var ErrNoAgentAvailable = errors.New("no agent available")

// Engine drives the observe/orient/decide/act loop. It holds no state of
// its own; every mutation goes through the store so concurrent callers and
// the background sweeper see one consistent world.
type Engine struct {
	store    *store.Store
	narrator Narrator
	fallback FallbackNarrator
	logger   *zap.Logger
}

// StepResult reports the outcome of advancing a process.
type StepResult struct {
	StageCompleted string             `json:"stage_completed,omitempty"`
	Output         *StageOutput       `json:"output,omitempty"`
	Process        *store.OODAProcess `json:"process"`
	Message        string             `json:"message,omitempty"`
}

// NewEngine wires the engine to its store and narrator. A nil narrator
// means the deterministic fallback is the primary.
func NewEngine(s *store.Store, narrator Narrator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if narrator == nil {
		narrator = FallbackNarrator{}
	}
	return &Engine{
		store:    s,
		narrator: narrator,
		logger:   logger.Named("ooda"),
	}
}

// Start binds an agent to the signal and opens a new process with observe
// active. Idle agents are preferred; when none are idle any agent is
// drafted. With no agents at all it fails without writing anything.
func (e *Engine) Start(ctx context.Context, signalID string) (*store.StartResult, error) {
	if _, err := e.store.GetSignal(signalID); err != nil {
		return nil, err
	}

	agents, err := e.store.ListAgents(store.AgentIdle, "")
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		agents, err = e.store.ListAgents("", "")
		if err != nil {
			return nil, err
		}
	}
	if len(agents) == 0 {
		return nil, ErrNoAgentAvailable
	}
	agent := agents[0]

	result, err := e.store.StartOODA(agent.ID, signalID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("loop started",
		zap.String("process_id", result.Process.ID),
		zap.String("agent_id", agent.ID),
		zap.String("signal_id", signalID))
	return result, nil
}

// Step advances the process by one stage: the active stage if there is
// one, otherwise the first pending stage. A fully complete process is a
// no-op. Narration failures degrade to the deterministic fallback exactly
// once; the primary narrator is never retried within a step.
func (e *Engine) Step(ctx context.Context, processID string) (*StepResult, error) {
	process, err := e.store.GetOODAProcess(processID)
	if err != nil {
		return nil, err
	}

	stage := currentStage(process)
	if stage == "" {
		return &StepResult{
			Message: "OODA process already complete",
			Process: process,
		}, nil
	}

	signal, err := e.store.GetSignal(process.SignalID)
	if err != nil {
		return nil, err
	}

	output, err := e.narrator.Narrate(ctx, stage, signal, process)
	if err != nil {
		e.logger.Warn("narrator failed, using fallback",
			zap.String("stage", stage),
			zap.String("process_id", processID),
			zap.Error(err))
		output, err = e.fallback.Narrate(ctx, stage, signal, process)
		if err != nil {
			return nil, err
		}
	}

	mutation := store.StepMutation{
		Stage:       stage,
		CompletedAt: store.Now(),
		AgentID:     process.AgentID,
		SignalID:    process.SignalID,
	}
	switch stage {
	case StageObserve:
		mutation.Findings = output.Findings
	case StageOrient:
		mutation.Context = output.Context
		mutation.Related = output.Related
	case StageDecide:
		mutation.ChainOfThought = output.ChainOfThought
		mutation.Solution = output.ProposedSolution
	case StageAct:
		mutation.Actions = output.Actions
	}

	idx := stageIndex(stage)
	if idx < len(Stages)-1 {
		mutation.NextStage = Stages[idx+1]
		mutation.AgentProgress = (idx + 1) * 100 / len(Stages)
	} else {
		mutation.Terminal = true
	}

	updated, err := e.store.ApplyStep(processID, mutation)
	if err != nil {
		return nil, err
	}

	e.logger.Info("stage completed",
		zap.String("process_id", processID),
		zap.String("stage", stage),
		zap.Bool("terminal", mutation.Terminal))

	return &StepResult{
		StageCompleted: stage,
		Output:         output,
		Process:        updated,
	}, nil
}

// currentStage picks the stage a step should work on: the single active
// stage, else the first still-pending one, else "" when all are complete.
func currentStage(p *store.OODAProcess) string {
	statuses := map[string]string{
		StageObserve: p.ObserveStatus,
		StageOrient:  p.OrientStatus,
		StageDecide:  p.DecideStatus,
		StageAct:     p.ActStatus,
	}
	for _, stage := range Stages {
		if statuses[stage] == store.StageActive {
			return stage
		}
	}
	for _, stage := range Stages {
		if statuses[stage] == store.StagePending {
			return stage
		}
	}
	return ""
}

func stageIndex(stage string) int {
	for i, s := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}
