package ooda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/pkoukk/tiktoken-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"healflow/internal/config"
	"healflow/internal/store"
)

// ErrNoNarrative is returned when the model reply carries no parseable
// JSON object.
var ErrNoNarrative = errors.New("no narrative in model response")

// OpenAINarrator generates stage narratives with a chat model. Prompts are
// token-truncated before sending, and the request path sits behind a
// circuit breaker so a flapping upstream degrades to the fallback narrator
// instead of stalling every step.
type OpenAINarrator struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	cb        *gobreaker.CircuitBreaker
	encoder   *tiktoken.Tiktoken
	logger    *zap.Logger
}

// NewOpenAINarrator builds a narrator from the narration config.
func NewOpenAINarrator(cfg config.NarrationConfig, logger *zap.Logger) (*OpenAINarrator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("narration api key not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	encoder, err := tiktoken.EncodingForModel(cfg.Model)
	if err != nil {
		// Unknown model names fall back to the common base encoding.
		encoder, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load token encoding: %w", err)
		}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "narration-upstream",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})

	return &OpenAINarrator{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: cfg.MaxPromptTokens,
		timeout:   cfg.RequestTimeout,
		cb:        cb,
		encoder:   encoder,
		logger:    logger.Named("narrator"),
	}, nil
}

// Narrate asks the model for the stage narrative. A failure anywhere in
// the path returns an error; the engine then falls back exactly once and
// never retries the model within the same step.
func (n *OpenAINarrator) Narrate(ctx context.Context, stage string, signal *store.Signal, process *store.OODAProcess) (*StageOutput, error) {
	prompt, err := n.stagePrompt(stage, signal, process)
	if err != nil {
		return nil, err
	}
	prompt = n.truncate(prompt)

	result, err := n.cb.Execute(func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		resp, err := n.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model: n.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: "You are an incident-response analyst. Reply with a single JSON object and nothing else."},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, ErrNoNarrative
		}
		return parseStageOutput(resp.Choices[0].Message.Content)
	})
	if err != nil {
		n.logger.Warn("model narration failed",
			zap.String("stage", stage),
			zap.String("signal_id", signal.ID),
			zap.Error(err))
		return nil, err
	}
	return result.(*StageOutput), nil
}

// Summarize produces the executive brief paragraph.
func (n *OpenAINarrator) Summarize(ctx context.Context, metrics *store.MetricsSnapshot, incidentCount int) (string, error) {
	raw, err := json.Marshal(metrics)
	if err != nil {
		return "", err
	}
	prompt := n.truncate(fmt.Sprintf(`Generate a brief executive summary paragraph based on:
Metrics: %s
Recent incidents: %d
Keep it to 2-3 sentences, professional tone.`, raw, incidentCount))

	result, err := n.cb.Execute(func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		resp, err := n.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model: n.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, ErrNoNarrative
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (n *OpenAINarrator) stagePrompt(stage string, signal *store.Signal, process *store.OODAProcess) (string, error) {
	sig, err := json.Marshal(signal)
	if err != nil {
		return "", err
	}

	switch stage {
	case StageObserve:
		return fmt.Sprintf(`Analyze this system signal and identify key observations:
Signal: %s
Return JSON with 'findings' array of 3-5 key observations.`, sig), nil

	case StageOrient:
		findings, _ := json.Marshal(process.ObserveFindings)
		return fmt.Sprintf(`Given these signal observations, provide context:
Signal: %s
Findings: %s
Return JSON with 'context' string and 'related' array of related incident patterns.`, sig, findings), nil

	case StageDecide:
		return fmt.Sprintf(`Based on analysis, determine root cause and solution:
Signal: %s
Context: %s
Return JSON with:
- 'chain_of_thought': array of 5 reasoning steps
- 'proposed_solution': object with 'type', 'description', 'confidence', 'risk_level'`, sig, process.OrientContext), nil

	case StageAct:
		solution, _ := json.Marshal(process.DecideProposedSolution)
		return fmt.Sprintf(`Generate action plan for resolution:
Signal: %s
Solution: %s
Return JSON with 'actions' array containing action objects with 'type' and 'description'.`, sig, solution), nil
	}
	return "", fmt.Errorf("unknown stage %q", stage)
}

// truncate trims the prompt to the configured token budget, keeping the
// head where the instructions live.
func (n *OpenAINarrator) truncate(prompt string) string {
	if n.maxTokens <= 0 {
		return prompt
	}
	tokens := n.encoder.Encode(prompt, nil, nil)
	if len(tokens) <= n.maxTokens {
		return prompt
	}
	return n.encoder.Decode(tokens[:n.maxTokens])
}

// parseStageOutput scrapes the first JSON object out of a model reply,
// tolerating prose or code fences around it.
func parseStageOutput(text string) (*StageOutput, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoNarrative
	}
	var out StageOutput
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoNarrative, err)
	}
	return &out, nil
}
