package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/anomalyhq/corpusd/internal/tools"
)

const systemPrompt = `You orchestrate analysis tools over a corpus of user-submitted accounts of
unusual personal experiences. Answer the user's request by calling the
provided tools; chain calls when a later tool needs an earlier tool's
output. Call only the tools you were given. When you have enough to
answer, reply with a final narrative and no tool calls. Requesting user: %s. Locale: %s.`

// LLMReasoner drives the loop with a chat model that supports function
// calling. Any langchaingo model works; the daemon wires an
// OpenAI-compatible endpoint by default.
type LLMReasoner struct {
	model llms.Model
}

// NewLLMReasoner wraps a chat model.
func NewLLMReasoner(model llms.Model) (*LLMReasoner, error) {
	if model == nil {
		return nil, fmt.Errorf("model required")
	}
	return &LLMReasoner{model: model}, nil
}

// Decide asks the model for the next tool calls, replaying the
// conversation plus the previous step's observations.
func (l *LLMReasoner) Decide(ctx context.Context, req DecideRequest) (DecideResponse, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem,
			fmt.Sprintf(systemPrompt, req.Identity, req.Locale)),
	}
	for _, turn := range req.Turns {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Input))
	messages = append(messages, observationMessages(req.Observations)...)

	resp, err := l.model.GenerateContent(ctx, messages,
		llms.WithTools(llmTools(req.Tools)), llms.WithToolChoice("auto"))
	if err != nil {
		return DecideResponse{}, fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return DecideResponse{}, fmt.Errorf("model returned no choices")
	}

	choice := resp.Choices[0]
	out := DecideResponse{Narrative: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		out.Calls = append(out.Calls, ToolCall{
			ID:        tc.ID,
			Name:      tools.Name(tc.FunctionCall.Name),
			Arguments: json.RawMessage(tc.FunctionCall.Arguments),
		})
	}
	out.Done = len(out.Calls) == 0
	return out, nil
}

// observationMessages replays the previous step's tool calls and their
// results in the shape function-calling models expect.
func observationMessages(obs []Observation) []llms.MessageContent {
	if len(obs) == 0 {
		return nil
	}

	assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	var responses []llms.MessageContent
	for _, o := range obs {
		assistant.Parts = append(assistant.Parts, llms.ToolCall{
			ID:   o.CallID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      string(o.Tool),
				Arguments: "{}",
			},
		})

		var content string
		if o.Err != nil {
			data, _ := json.Marshal(o.Err)
			content = string(data)
		} else if data, err := json.Marshal(o.Result); err == nil {
			content = string(data)
		} else {
			content = fmt.Sprintf("unencodable result: %v", err)
		}
		responses = append(responses, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: o.CallID,
				Name:       string(o.Tool),
				Content:    content,
			}},
		})
	}
	return append([]llms.MessageContent{assistant}, responses...)
}

func llmTools(defs []tools.Definition) []llms.Tool {
	out := make([]llms.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        string(def.Name),
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}
