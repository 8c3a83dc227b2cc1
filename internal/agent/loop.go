// Package agent runs the bounded tool-dispatch loop over one user utterance.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/browserpilot/browserpilot/internal/tools"
)

// State is the terminal condition a turn ended in.
type State string

const (
	StateSuccess       State = "success"
	StateMaxIterations State = "max-iterations"
	StateError         State = "error"
)

// Step records one tool invocation for the intermediateSteps debug surface.
type Step struct {
	Tool    string         `json:"tool"`
	Input   map[string]any `json:"toolInput"`
	Output  string         `json:"output"`
	Outcome tools.Outcome  `json:"outcome"`
}

// Result is the finalized turn.
type Result struct {
	Output string `json:"output"`
	State  State  `json:"state"`
	Steps  []Step `json:"intermediateSteps"`
}

// Loop dispatches tools for one utterance at a time. The iteration bound and
// the outcome-tag check exist to stop the loop from re-invoking an already
// successful browser action; automation is slow and stateful, and repeating
// it can mean a duplicate email.
type Loop struct {
	planner       Planner
	registry      *tools.Registry
	maxIterations int
	logger        *zap.Logger
}

func NewLoop(planner Planner, registry *tools.Registry, maxIterations int, logger *zap.Logger) *Loop {
	if maxIterations <= 0 {
		maxIterations = 2
	}
	return &Loop{
		planner:       planner,
		registry:      registry,
		maxIterations: maxIterations,
		logger:        logger.Named("agent"),
	}
}

// Run executes one turn. Tool failures become textual observations so the
// turn can still end with a coherent answer; only planner failures abort it.
func (l *Loop) Run(ctx context.Context, utterance string) (Result, error) {
	var steps []Step

	for i := 0; i < l.maxIterations; i++ {
		dec, err := l.planner.Decide(ctx, utterance, steps)
		if err != nil {
			return Result{State: StateError, Steps: steps}, err
		}

		if dec.Action == "reply" {
			l.logger.Debug("Planner replied directly", zap.Int("iteration", i+1))
			return Result{Output: dec.Reply, State: StateSuccess, Steps: steps}, nil
		}

		step := l.invoke(ctx, dec)
		steps = append(steps, step)
		l.logger.Info("Tool invoked",
			zap.Int("iteration", i+1),
			zap.String("tool", step.Tool),
			zap.String("outcome", string(step.Outcome)))

		// A success outcome is terminal: the step's text becomes the final
		// output and no further steps are appended.
		if step.Outcome == tools.OutcomeSuccess {
			return Result{Output: step.Output, State: StateSuccess, Steps: steps}, nil
		}
	}

	return l.finalizeAtBound(steps), nil
}

func (l *Loop) invoke(ctx context.Context, dec Decision) Step {
	step := Step{Tool: dec.Tool, Input: dec.Input}

	tool, ok := l.registry.Get(dec.Tool)
	if !ok {
		step.Output = fmt.Sprintf("❌ Error: unknown tool %q", dec.Tool)
		step.Outcome = tools.OutcomeFailure
		return step
	}

	obs, err := tool.Call(ctx, dec.Input)
	if err != nil {
		step.Output = fmt.Sprintf("❌ Error: %v", err)
		step.Outcome = tools.OutcomeFailure
		return step
	}
	step.Output = obs.Text
	step.Outcome = obs.Outcome
	return step
}

// finalizeAtBound picks the turn's answer when the iteration cap is reached:
// the last observation if it reads as a completion, else an explicit stop
// message.
func (l *Loop) finalizeAtBound(steps []Step) Result {
	if len(steps) > 0 {
		last := steps[len(steps)-1]
		if last.Output != "" && last.Outcome != tools.OutcomeFailure {
			return Result{Output: last.Output, State: StateMaxIterations, Steps: steps}
		}
	}
	return Result{
		Output: fmt.Sprintf("Agent stopped after %d steps without completing the task.", l.maxIterations),
		State:  StateMaxIterations,
		Steps:  steps,
	}
}
