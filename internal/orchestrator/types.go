// Package orchestrator runs the reasoning loop: a reasoning engine picks
// tools from a group, the orchestrator executes them against the tenant's
// corpus under a call budget and per-call timeouts, and the assembler
// folds everything into one response envelope. Tool failures are
// contained; one bad call never takes down the pass.
package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/anomalyhq/corpusd/internal/tools"
)

// Turn is one prior exchange in the conversation, oldest first.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ToolCall is one tool request issued by the reasoning engine.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      tools.Name      `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Invocation is the record of one executed tool call.
type Invocation struct {
	Tool      tools.Name      `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    any             `json:"result,omitempty"`
	Err       *tools.Error    `json:"error,omitempty"`
	Retried   bool            `json:"retried,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
}

// Failure is one contained tool failure surfaced to the caller.
type Failure struct {
	Tool    tools.Name `json:"tool"`
	Kind    tools.Kind `json:"kind"`
	Message string     `json:"message"`
}

// Result is the raw outcome of one orchestration pass, before assembly.
type Result struct {
	Narrative   string        `json:"narrative"`
	Invocations []Invocation  `json:"invocations"`
	Failures    []Failure     `json:"failures"`
	CallsUsed   int           `json:"calls_used"`
	Elapsed     time.Duration `json:"elapsed"`
}
