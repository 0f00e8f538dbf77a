package orchestrator

import (
	"fmt"
	"strings"

	"github.com/anomalyhq/corpusd/internal/tools"
)

// Section is the output of one successful tool call, in execution order.
type Section struct {
	Tool tools.Name `json:"tool"`
	Data any        `json:"data"`
}

// Envelope is the assembled response returned to clients. Failures are
// always carried alongside whatever data survived; a partial pass is
// still a response.
type Envelope struct {
	Narrative string    `json:"narrative"`
	Sections  []Section `json:"sections"`
	Failures  []Failure `json:"failures,omitempty"`
	CallsUsed int       `json:"calls_used"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// Assemble folds one or more pass results into a single response
// envelope: sections and failures concatenate, call and elapsed totals
// sum, and narratives join in order. The narrative falls back to a
// generated summary when no pass produced one.
func Assemble(results ...*Result) *Envelope {
	env := &Envelope{}
	var narratives []string
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Narrative != "" {
			narratives = append(narratives, res.Narrative)
		}
		env.CallsUsed += res.CallsUsed
		env.ElapsedMs += res.Elapsed.Milliseconds()
		env.Failures = append(env.Failures, res.Failures...)
		for _, inv := range res.Invocations {
			if inv.Err != nil {
				continue
			}
			env.Sections = append(env.Sections, Section{Tool: inv.Tool, Data: inv.Result})
		}
	}
	env.Narrative = strings.Join(narratives, "\n\n")
	if env.Narrative == "" {
		env.Narrative = fallbackNarrative(env)
	}
	return env
}

func fallbackNarrative(env *Envelope) string {
	switch {
	case len(env.Sections) == 0 && len(env.Failures) > 0:
		return fmt.Sprintf("No results: all %d tool call(s) failed.", len(env.Failures))
	case len(env.Sections) == 0:
		return "No tools were run for this request."
	case len(env.Failures) > 0:
		return fmt.Sprintf("Partial results from %d tool(s); %d call(s) failed.",
			len(env.Sections), len(env.Failures))
	default:
		return fmt.Sprintf("Results from %d tool(s).", len(env.Sections))
	}
}
