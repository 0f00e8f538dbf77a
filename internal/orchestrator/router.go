package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/tools"
)

// Specialist is one capability-scoped entry point: a name, the tool group
// it runs with, and the request vocabulary it claims.
type Specialist struct {
	Name     string
	Group    tools.GroupName
	Keywords []string
}

// The four capability specialists. Keyword claims overlap on purpose;
// a request about "a map of patterns" legitimately concerns more than
// one specialist, and all claimants run.
func defaultSpecialists() []Specialist {
	return []Specialist{
		{
			Name:  "search",
			Group: tools.GroupSearch,
			Keywords: []string{
				"find", "search", "look", "show me", "near", "within",
				"reports about", "sightings",
			},
		},
		{
			Name:  "insight",
			Group: tools.GroupInsight,
			Keywords: []string{
				"insight", "trend", "predict", "forecast", "summar",
				"compare", "versus", " vs ", "analy", "top", "rank",
				"correlat", "export",
			},
		},
		{
			Name:  "visualization",
			Group: tools.GroupVisualization,
			Keywords: []string{
				"chart", "graph", "plot", "map", "timeline", "visual",
				"dashboard", "over time",
			},
		},
		{
			Name:  "relationship",
			Group: tools.GroupRelationship,
			Keywords: []string{
				"connect", "related", "relation", "similar to", "pattern",
				"cluster", "link",
			},
		},
	}
}

// Router dispatches a request to whichever specialists claim it. Every
// specialist is a thin parameterization of the one orchestrator core.
type Router struct {
	orch        *Orchestrator
	specialists []Specialist
	logger      *zap.Logger
}

// NewRouter builds a router over the default specialist set.
func NewRouter(orch *Orchestrator, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{orch: orch, specialists: defaultSpecialists(), logger: logger}
}

// Specialists lists the registered specialist names in stable order.
func (r *Router) Specialists() []string {
	names := make([]string, 0, len(r.specialists))
	for _, s := range r.specialists {
		names = append(names, s.Name)
	}
	return names
}

// RoutedResponse is the merged answer of every claiming specialist.
type RoutedResponse struct {
	Matched  []string  `json:"matched"`
	Envelope *Envelope `json:"envelope"`
}

// Route runs the request through every specialist whose vocabulary
// matches it and assembles their passes into one envelope. One
// specialist failing becomes a failure entry in the merged envelope and
// does not block the others. No match at all is an error.
func (r *Router) Route(ctx context.Context, rc *reqctx.Context, input string, turns []Turn) (*RoutedResponse, error) {
	matched := r.match(input)
	if len(matched) == 0 {
		return nil, tools.Errorf(tools.KindNoSpecialistMatch,
			"no specialist claims this request; address one of %s directly",
			strings.Join(r.Specialists(), ", "))
	}

	out := &RoutedResponse{}
	var results []*Result
	for _, s := range matched {
		out.Matched = append(out.Matched, s.Name)
		res, err := r.orch.Run(ctx, rc, s.Group, input, turns)
		if err != nil {
			te := tools.Convert(err)
			r.logger.Warn("specialist failed",
				zap.String("specialist", s.Name),
				zap.Error(err))
			results = append(results, &Result{Failures: []Failure{{
				Kind:    te.Kind,
				Message: fmt.Sprintf("%s specialist: %s", s.Name, te.Message),
			}}})
			continue
		}
		results = append(results, res)
	}
	out.Envelope = Assemble(results...)
	return out, nil
}

// RunSpecialist addresses one specialist by name, bypassing matching.
func (r *Router) RunSpecialist(ctx context.Context, rc *reqctx.Context, name, input string, turns []Turn) (*Envelope, error) {
	for _, s := range r.specialists {
		if s.Name == name {
			res, err := r.orch.Run(ctx, rc, s.Group, input, turns)
			if err != nil {
				return nil, err
			}
			return Assemble(res), nil
		}
	}
	return nil, tools.Errorf(tools.KindNoSpecialistMatch, "no specialist named %q", name)
}

func (r *Router) match(input string) []Specialist {
	lower := strings.ToLower(input)
	var matched []Specialist
	for _, s := range r.specialists {
		for _, kw := range s.Keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, s)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched
}
