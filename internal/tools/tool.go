// Package tools defines the schema-validated operations the agent loop can
// invoke. Client-owned side effects (tab creation, screen capture) go through
// the relay queue; browser-owned side effects go through the automation
// driver directly.
package tools

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Outcome is the structured result tag every tool returns, so the agent loop
// never has to sniff output strings to detect terminal success.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// Observation is what a tool hands back to the agent loop: a short
// human-readable text plus the outcome tag.
type Observation struct {
	Text    string  `json:"text"`
	Outcome Outcome `json:"outcome"`
}

// Success builds a terminal-success observation.
func Success(format string, args ...any) Observation {
	return Observation{Text: fmt.Sprintf(format, args...), Outcome: OutcomeSuccess}
}

// Partial builds an observation for work that ran but cannot confirm its
// effect.
func Partial(format string, args ...any) Observation {
	return Observation{Text: fmt.Sprintf(format, args...), Outcome: OutcomePartial}
}

// Tool is a named operation with a declared input schema. Call validates the
// input before executing and returns either an observation or a typed error.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input map[string]any) (Observation, error)
}

// decodeInput maps the loosely-typed planner input onto a typed param struct.
func decodeInput(input map[string]any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return &ValidationError{Field: "input", Reason: err.Error()}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ValidationError{Field: "input", Reason: err.Error()}
	}
	return nil
}

// Registry holds the tool set in registration order.
type Registry struct {
	order  []string
	byName map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, dup := r.byName[t.Name()]; dup {
			continue
		}
		r.order = append(r.order, t.Name())
		r.byName[t.Name()] = t
	}
	return r
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Catalog renders the one-line-per-tool listing embedded in the planner's
// system prompt.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, name := range r.order {
		fmt.Fprintf(&b, "- %s: %s\n", name, r.byName[name].Description())
	}
	return b.String()
}
