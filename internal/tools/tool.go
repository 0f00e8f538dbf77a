// Package tools is the catalog of data-access and analysis operations the
// orchestration layer can run against the experience corpus.
//
// The catalog is a closed set: Name is an enumerated constant, and
// Registry.Execute dispatches with an exhaustive switch. Adding a tool
// means adding a constant, a case, and a definition, all of which the
// compiler checks; there is no string-keyed lookup that a typo can turn
// into a silent no-op.
//
// Every tool is stateless end-to-end. Input arrives as raw JSON from the
// reasoning engine, is decoded into a typed input struct, validated, and
// only then executed with the request context. A schema violation never
// reaches an execute function. Tenant-scoped data access happens
// exclusively through the store handle inside the supplied request
// context.
package tools

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/reqctx"
)

// Name identifies one tool in the catalog.
type Name string

// The full catalog. Grouping is in groups.go.
const (
	// Search.
	NameAdvancedSearch  Name = "advanced_search"
	NameAttributeSearch Name = "attribute_search"
	NameSemanticSearch  Name = "semantic_search"
	NameFulltextSearch  Name = "fulltext_search"
	NameGeoSearch       Name = "geo_search"

	// Insights.
	NameGenerateInsights Name = "generate_insights"
	NamePredictTrends    Name = "predict_trends"
	NameSuggestFollowups Name = "suggest_followups"
	NameExportResults    Name = "export_results"

	// Visualization data.
	NameTimeseriesData Name = "timeseries_data"
	NameMapData        Name = "map_data"
	NameTimelineData   Name = "timeline_data"
	NameGraphData      Name = "graph_data"
	NameDashboardData  Name = "dashboard_data"

	// Analytics.
	NameRankContributors    Name = "rank_contributors"
	NameAnalyzeCategory     Name = "analyze_category"
	NameCompareCategories   Name = "compare_categories"
	NameCorrelateAttributes Name = "correlate_attributes"

	// Relationships.
	NameFindConnections Name = "find_connections"
	NameDetectPatterns  Name = "detect_patterns"
)

// Names returns the full catalog in its canonical order.
func Names() []Name {
	return []Name{
		NameAdvancedSearch, NameAttributeSearch, NameSemanticSearch,
		NameFulltextSearch, NameGeoSearch,
		NameGenerateInsights, NamePredictTrends, NameSuggestFollowups,
		NameExportResults,
		NameTimeseriesData, NameMapData, NameTimelineData, NameGraphData,
		NameDashboardData,
		NameRankContributors, NameAnalyzeCategory, NameCompareCategories,
		NameCorrelateAttributes,
		NameFindConnections, NameDetectPatterns,
	}
}

// Valid reports whether n names a catalog tool.
func (n Name) Valid() bool {
	switch n {
	case NameAdvancedSearch, NameAttributeSearch, NameSemanticSearch,
		NameFulltextSearch, NameGeoSearch,
		NameGenerateInsights, NamePredictTrends, NameSuggestFollowups,
		NameExportResults,
		NameTimeseriesData, NameMapData, NameTimelineData, NameGraphData,
		NameDashboardData,
		NameRankContributors, NameAnalyzeCategory, NameCompareCategories,
		NameCorrelateAttributes,
		NameFindConnections, NameDetectPatterns:
		return true
	}
	return false
}

// Definition describes one tool to the reasoning engine: its name, a short
// purpose statement, and a JSON schema for its arguments.
type Definition struct {
	Name        Name           `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry executes catalog tools. It holds the tuning weights and a
// logger; all data access flows through the request context handed to
// Execute.
type Registry struct {
	weights Weights
	logger  *zap.Logger
}

// NewRegistry creates a registry with the given weights.
func NewRegistry(weights Weights, logger *zap.Logger) (*Registry, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{weights: weights, logger: logger}, nil
}

// Weights returns the registry's tuning constants.
func (r *Registry) Weights() Weights { return r.weights }

// Execute validates raw arguments and runs one tool under the request
// context. Errors are always typed.
func (r *Registry) Execute(ctx context.Context, rc *reqctx.Context, name Name, raw json.RawMessage) (any, error) {
	if rc == nil {
		return nil, Errorf(KindInvalidContext, "request context required")
	}

	switch name {
	case NameAdvancedSearch:
		return runTool(ctx, rc, raw, r.advancedSearch)
	case NameAttributeSearch:
		return runTool(ctx, rc, raw, r.attributeSearch)
	case NameSemanticSearch:
		return runTool(ctx, rc, raw, r.semanticSearch)
	case NameFulltextSearch:
		return runTool(ctx, rc, raw, r.fulltextSearch)
	case NameGeoSearch:
		return runTool(ctx, rc, raw, r.geoSearch)
	case NameGenerateInsights:
		return runTool(ctx, rc, raw, r.generateInsights)
	case NamePredictTrends:
		return runTool(ctx, rc, raw, r.predictTrends)
	case NameSuggestFollowups:
		return runTool(ctx, rc, raw, r.suggestFollowups)
	case NameExportResults:
		return runTool(ctx, rc, raw, r.exportResults)
	case NameTimeseriesData:
		return runTool(ctx, rc, raw, r.timeseriesData)
	case NameMapData:
		return runTool(ctx, rc, raw, r.mapData)
	case NameTimelineData:
		return runTool(ctx, rc, raw, r.timelineData)
	case NameGraphData:
		return runTool(ctx, rc, raw, r.graphData)
	case NameDashboardData:
		return runTool(ctx, rc, raw, r.dashboardData)
	case NameRankContributors:
		return runTool(ctx, rc, raw, r.rankContributors)
	case NameAnalyzeCategory:
		return runTool(ctx, rc, raw, r.analyzeCategory)
	case NameCompareCategories:
		return runTool(ctx, rc, raw, r.compareCategories)
	case NameCorrelateAttributes:
		return runTool(ctx, rc, raw, r.correlateAttributes)
	case NameFindConnections:
		return runTool(ctx, rc, raw, r.findConnections)
	case NameDetectPatterns:
		return runTool(ctx, rc, raw, r.detectPatterns)
	default:
		return nil, Errorf(KindUnknownTool, "no tool named %q", name)
	}
}

// validator is the contract every tool input satisfies. Validate may
// normalize the input in place (defaults, clamping) before rejecting it.
type validator interface {
	Validate() error
}

// runTool decodes, validates and executes one tool call. Validation errors
// short-circuit before the execute function runs.
func runTool[I, O any, PI interface {
	validator
	*I
}](
	ctx context.Context,
	rc *reqctx.Context,
	raw json.RawMessage,
	fn func(context.Context, *reqctx.Context, *I) (O, error),
) (any, error) {
	var in I
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, Errorf(KindInvalidArguments, "malformed arguments: %v", err)
		}
	}

	if err := PI(&in).Validate(); err != nil {
		return nil, Convert(err)
	}

	out, err := fn(ctx, rc, &in)
	if err != nil {
		return nil, Convert(err)
	}
	return out, nil
}
