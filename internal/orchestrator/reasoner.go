package orchestrator

import (
	"context"

	"github.com/anomalyhq/corpusd/internal/tools"
)

// Observation feeds one executed tool call back to the reasoning engine.
// Failed calls are observed too, so the engine can route around them.
type Observation struct {
	CallID string
	Tool   tools.Name
	Result any
	Err    *tools.Error
}

// DecideRequest is everything the reasoning engine sees for one step.
type DecideRequest struct {
	Input        string
	Identity     string
	Locale       string
	Turns        []Turn
	Tools        []tools.Definition
	Observations []Observation
}

// DecideResponse is the engine's next move: tool calls to run, or a final
// narrative when Done is set.
type DecideResponse struct {
	Calls     []ToolCall
	Narrative string
	Done      bool
}

// Reasoner decides which tools to run next. Implementations must be safe
// for concurrent use across orchestration passes.
type Reasoner interface {
	Decide(ctx context.Context, req DecideRequest) (DecideResponse, error)
}
