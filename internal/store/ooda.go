package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// StartResult bundles the records touched when a loop starts.
type StartResult struct {
	Process *OODAProcess `json:"process"`
	Agent   *Agent       `json:"agent"`
	Signal  *Signal      `json:"signal"`
}

// StepMutation is the full effect of completing one loop stage. The engine
// computes it; ApplyStep persists it in a single transaction so a crash
// can never leave the process, agent and signal disagreeing.
type StepMutation struct {
	Stage       string
	CompletedAt string

	// Stage payload; only the fields for Stage are consulted.
	Findings       []string
	Context        string
	Related        []string
	ChainOfThought []string
	Solution       *Solution
	Actions        []Action

	// Next stage to activate, empty when Stage is the last one.
	NextStage     string
	AgentID       string
	SignalID      string
	AgentProgress int

	// Terminal marks the act stage: the process completes, the agent goes
	// idle and unbound, and the signal resolves.
	Terminal bool
}

const oodaColumns = `id, agent_id, signal_id, started_at, COALESCE(completed_at, ''),
	observe_status, COALESCE(observe_findings, '[]'), COALESCE(observe_completed_at, ''),
	orient_status, COALESCE(orient_context, ''), COALESCE(orient_related_incidents, '[]'), COALESCE(orient_completed_at, ''),
	decide_status, COALESCE(decide_chain_of_thought, '[]'), COALESCE(decide_proposed_solution, ''), COALESCE(decide_completed_at, ''),
	act_status, COALESCE(act_actions, '[]'), COALESCE(act_completed_at, '')`

func scanOODA(row interface{ Scan(...any) error }) (*OODAProcess, error) {
	var p OODAProcess
	var findings, related, cot, solution, actions string
	err := row.Scan(
		&p.ID, &p.AgentID, &p.SignalID, &p.StartedAt, &p.CompletedAt,
		&p.ObserveStatus, &findings, &p.ObserveCompletedAt,
		&p.OrientStatus, &p.OrientContext, &related, &p.OrientCompletedAt,
		&p.DecideStatus, &cot, &solution, &p.DecideCompletedAt,
		&p.ActStatus, &actions, &p.ActCompletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ObserveFindings = unmarshalStrings(findings)
	p.OrientRelatedIncidents = unmarshalStrings(related)
	p.DecideChainOfThought = unmarshalStrings(cot)
	p.DecideProposedSolution = unmarshalSolution(solution)
	p.ActActions = unmarshalActions(actions)
	return &p, nil
}

// GetOODAProcess returns a process by id or ErrNotFound.
func (s *Store) GetOODAProcess(id string) (*OODAProcess, error) {
	row := s.db.QueryRow(`SELECT `+oodaColumns+` FROM ooda_processes WHERE id = ?`, id)
	p, err := scanOODA(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// StartOODA creates a process for the agent/signal pair with observe
// already active, marks the agent as working the signal and the signal as
// processing. All three writes commit or roll back together.
func (s *Store) StartOODA(agentID, signalID string) (*StartResult, error) {
	processID := GenerateID("ooda_")
	now := Now()

	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
INSERT INTO ooda_processes (id, agent_id, signal_id, started_at, observe_status)
VALUES (?, ?, ?, ?, 'active')`,
			processID, agentID, signalID, now,
		)
		if err != nil {
			return fmt.Errorf("create ooda process: %w", err)
		}

		status := AgentProcessing
		stage := "observe"
		progress := 0
		if err := updateAgentTx(tx, agentID, AgentUpdate{
			Status:               &status,
			CurrentTaskSignalID:  &signalID,
			CurrentTaskStage:     &stage,
			CurrentTaskProgress:  &progress,
			CurrentTaskStartedAt: &now,
		}); err != nil {
			return err
		}

		sigStatus := SignalProcessing
		return updateSignalTx(tx, signalID, SignalUpdate{
			Status:  &sigStatus,
			AgentID: &agentID,
		})
	})
	if err != nil {
		return nil, err
	}

	process, err := s.GetOODAProcess(processID)
	if err != nil {
		return nil, err
	}
	agent, err := s.GetAgent(agentID)
	if err != nil {
		return nil, err
	}
	signal, err := s.GetSignal(signalID)
	if err != nil {
		return nil, err
	}
	return &StartResult{Process: process, Agent: agent, Signal: signal}, nil
}

// ApplyStep persists the completion of one stage: stage payload, next-stage
// activation or terminal cleanup, agent progress and signal status, all in
// one transaction.
func (s *Store) ApplyStep(processID string, m StepMutation) (*OODAProcess, error) {
	err := s.withTx(func(tx *sql.Tx) error {
		var stmt string
		params := []any{}

		switch m.Stage {
		case "observe":
			stmt = `UPDATE ooda_processes SET observe_status = 'complete', observe_completed_at = ?, observe_findings = ?`
			params = append(params, m.CompletedAt, marshalJSON(m.Findings))
		case "orient":
			stmt = `UPDATE ooda_processes SET orient_status = 'complete', orient_completed_at = ?, orient_context = ?, orient_related_incidents = ?`
			params = append(params, m.CompletedAt, m.Context, marshalJSON(m.Related))
		case "decide":
			stmt = `UPDATE ooda_processes SET decide_status = 'complete', decide_completed_at = ?, decide_chain_of_thought = ?, decide_proposed_solution = ?`
			params = append(params, m.CompletedAt, marshalJSON(m.ChainOfThought), marshalJSON(m.Solution))
		case "act":
			stmt = `UPDATE ooda_processes SET act_status = 'complete', act_completed_at = ?, act_actions = ?, completed_at = ?`
			params = append(params, m.CompletedAt, marshalJSON(m.Actions), m.CompletedAt)
		default:
			return fmt.Errorf("unknown stage %q", m.Stage)
		}

		if m.NextStage != "" {
			stmt += fmt.Sprintf(", %s_status = 'active'", m.NextStage)
		}
		stmt += ` WHERE id = ?`
		params = append(params, processID)

		res, err := tx.Exec(stmt, params...)
		if err != nil {
			return fmt.Errorf("apply %s step: %w", m.Stage, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		if m.Terminal {
			idle := AgentIdle
			empty := ""
			zero := 0
			if err := updateAgentTx(tx, m.AgentID, AgentUpdate{
				Status:              &idle,
				CurrentTaskSignalID: &empty,
				CurrentTaskStage:    &empty,
				CurrentTaskProgress: &zero,
			}); err != nil {
				return err
			}
			resolved := SignalResolved
			return updateSignalTx(tx, m.SignalID, SignalUpdate{Status: &resolved})
		}

		if m.NextStage != "" {
			return updateAgentTx(tx, m.AgentID, AgentUpdate{
				CurrentTaskStage:    &m.NextStage,
				CurrentTaskProgress: &m.AgentProgress,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOODAProcess(processID)
}

func unmarshalSolution(raw string) *Solution {
	if raw == "" || raw == "null" {
		return nil
	}
	var sol Solution
	if err := jsonUnmarshal(raw, &sol); err != nil {
		return nil
	}
	return &sol
}

func unmarshalActions(raw string) []Action {
	out := []Action{}
	if raw == "" {
		return out
	}
	_ = jsonUnmarshal(raw, &out)
	return out
}
