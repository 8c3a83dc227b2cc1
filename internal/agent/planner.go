package agent

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/browserpilot/browserpilot/internal/llmclient"
	"github.com/browserpilot/browserpilot/internal/tools"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Decision is one planner verdict: either invoke a named tool or reply to the
// user directly.
type Decision struct {
	Action string         `json:"action"` // "tool" or "reply"
	Tool   string         `json:"tool,omitempty"`
	Input  map[string]any `json:"input,omitempty"`
	Reply  string         `json:"reply,omitempty"`
}

// Planner decides the next action for one utterance given the steps taken so
// far.
type Planner interface {
	Decide(ctx context.Context, utterance string, steps []Step) (Decision, error)
}

const plannerSystemPrompt = `You are a browser-automation assistant. You can invoke exactly one tool per turn, chosen from this catalog:

%s
Respond with a single JSON object and nothing else:
  {"action": "tool", "tool": "<name>", "input": {<tool input>}}
to invoke a tool, or
  {"action": "reply", "reply": "<message>"}
to answer the user directly when no browser action is needed.

Previous tool results are provided; do not repeat an action that already succeeded.`

// LLMPlanner asks the language model for a JSON decision.
type LLMPlanner struct {
	llm      llmclient.Client
	registry *tools.Registry
	logger   *zap.Logger
}

func NewLLMPlanner(llm llmclient.Client, registry *tools.Registry, logger *zap.Logger) *LLMPlanner {
	return &LLMPlanner{llm: llm, registry: registry, logger: logger.Named("agent.planner")}
}

func (p *LLMPlanner) Decide(ctx context.Context, utterance string, steps []Step) (Decision, error) {
	out, err := p.llm.Generate(ctx, llmclient.GenerationRequest{
		SystemPrompt: fmt.Sprintf(plannerSystemPrompt, p.registry.Catalog()),
		UserPrompt:   buildUserPrompt(utterance, steps),
		ForceJSON:    true,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("planner generation failed: %w", err)
	}

	var dec Decision
	if err := json.Unmarshal([]byte(stripFences(out)), &dec); err != nil {
		return Decision{}, fmt.Errorf("planner returned unparseable decision: %w", err)
	}
	switch dec.Action {
	case "tool":
		if dec.Tool == "" {
			return Decision{}, fmt.Errorf("planner chose a tool action without a tool name")
		}
	case "reply":
	default:
		return Decision{}, fmt.Errorf("planner returned unknown action %q", dec.Action)
	}
	return dec, nil
}

func buildUserPrompt(utterance string, steps []Step) string {
	var b strings.Builder
	b.WriteString("User request: ")
	b.WriteString(utterance)
	if len(steps) > 0 {
		b.WriteString("\n\nActions taken so far:\n")
		for i, s := range steps {
			fmt.Fprintf(&b, "%d. %s -> %s\n", i+1, s.Tool, s.Output)
		}
	}
	return b.String()
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite the mime-type hint.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
