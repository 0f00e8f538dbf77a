package tools

// GroupName identifies a subset of the catalog exposed to the reasoning
// engine in one orchestration run. Groups overlap where a tool genuinely
// serves more than one capability.
type GroupName string

const (
	GroupUnified       GroupName = "unified"
	GroupSearch        GroupName = "search"
	GroupInsight       GroupName = "insight"
	GroupVisualization GroupName = "visualization"
	GroupAnalytics     GroupName = "analytics"
	GroupRelationship  GroupName = "relationship"
)

// Groups returns every group name.
func Groups() []GroupName {
	return []GroupName{
		GroupUnified, GroupSearch, GroupInsight,
		GroupVisualization, GroupAnalytics, GroupRelationship,
	}
}

// Valid reports whether g names a known group.
func (g GroupName) Valid() bool {
	switch g {
	case GroupUnified, GroupSearch, GroupInsight,
		GroupVisualization, GroupAnalytics, GroupRelationship:
		return true
	}
	return false
}

// Members returns the tools in group g, in catalog order. The unified
// group is the whole catalog.
func Members(g GroupName) []Name {
	switch g {
	case GroupUnified:
		return Names()
	case GroupSearch:
		return []Name{
			NameAdvancedSearch, NameAttributeSearch, NameSemanticSearch,
			NameFulltextSearch, NameGeoSearch,
		}
	case GroupInsight:
		// Comparisons and trend questions route here, so the insight
		// specialist carries the analytics tools as well.
		return []Name{
			NameGenerateInsights, NamePredictTrends, NameSuggestFollowups,
			NameExportResults,
			NameRankContributors, NameAnalyzeCategory, NameCompareCategories,
			NameCorrelateAttributes,
			NameDetectPatterns,
		}
	case GroupVisualization:
		return []Name{
			NameTimeseriesData, NameMapData, NameTimelineData,
			NameGraphData, NameDashboardData,
		}
	case GroupAnalytics:
		return []Name{
			NameRankContributors, NameAnalyzeCategory, NameCompareCategories,
			NameCorrelateAttributes,
		}
	case GroupRelationship:
		return []Name{NameFindConnections, NameDetectPatterns}
	}
	return nil
}

// DefinitionsFor returns the reasoning-engine definitions for group g.
func DefinitionsFor(g GroupName) []Definition {
	members := Members(g)
	defs := make([]Definition, 0, len(members))
	for _, n := range members {
		defs = append(defs, definitionOf(n))
	}
	return defs
}
