package tools

// JSON-schema fragments handed to the reasoning engine. These describe the
// argument shape only; authoritative validation lives on each input type.

func obj(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strEnum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

func num(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func arr(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": items}
}

func limitProp() map[string]any {
	return integer("Maximum results to return, 1-100. Defaults to 20.")
}

var recordRefSchema = obj(map[string]any{
	"id": str("Record identifier."),
})

func definitionOf(n Name) Definition {
	switch n {
	case NameAdvancedSearch:
		return Definition{
			Name:        n,
			Description: "Filter records by category, date range, location text and tags, with sorting and pagination.",
			Parameters: obj(map[string]any{
				"category":      str("Exact category to filter by, e.g. ufo-uap or dreams."),
				"from":          str("Earliest occurrence time, RFC 3339."),
				"to":            str("Latest occurrence time, RFC 3339."),
				"location_text": str("Case-insensitive substring matched against the record's location text."),
				"tags":          arr("Match records carrying any of these tags.", str("Tag value.")),
				"sort_by":       strEnum("Sort key.", "occurred_at", "submitted_at"),
				"descending":    map[string]any{"type": "boolean", "description": "Sort newest first."},
				"offset":        integer("Results to skip before the first returned."),
				"limit":         limitProp(),
			}),
		}
	case NameAttributeSearch:
		return Definition{
			Name:        n,
			Description: "Find records by structured attribute key/value pairs, matching all or any.",
			Parameters: obj(map[string]any{
				"attributes": map[string]any{
					"type":                 "object",
					"description":          "Attribute key/value pairs to match.",
					"additionalProperties": map[string]any{"type": "string"},
				},
				"mode":       strEnum("Whether every pair must match or any one suffices.", "and", "or"),
				"limit":      limitProp(),
			}, "attributes"),
		}
	case NameSemanticSearch:
		return Definition{
			Name:        n,
			Description: "Search records by meaning using vector similarity over narratives.",
			Parameters: obj(map[string]any{
				"query": str("Free-text description of what to look for."),
				"limit": limitProp(),
			}, "query"),
		}
	case NameFulltextSearch:
		return Definition{
			Name:        n,
			Description: "Keyword search over titles and narratives, ranked by term frequency with title matches weighted higher.",
			Parameters: obj(map[string]any{
				"query": str("Keywords to search for."),
				"limit": limitProp(),
			}, "query"),
		}
	case NameGeoSearch:
		return Definition{
			Name:        n,
			Description: "Find records near a point (radius in km) or inside a bounding box.",
			Parameters: obj(map[string]any{
				"lat":       num("Center latitude for radius search."),
				"lon":       num("Center longitude for radius search."),
				"radius_km": num("Search radius in kilometers."),
				"bounds": obj(map[string]any{
					"min_lat": num("South edge."),
					"max_lat": num("North edge."),
					"min_lon": num("West edge."),
					"max_lon": num("East edge."),
				}),
				"limit": limitProp(),
			}),
		}
	case NameGenerateInsights:
		return Definition{
			Name:        n,
			Description: "Summarize a result set into findings: category mix, temporal spikes, geographic hotspots and dominant attributes.",
			Parameters: obj(map[string]any{
				"records": arr("Records to analyze, as returned by a search tool.", recordRefSchema),
				"depth":   strEnum("Analysis depth.", "basic", "advanced"),
			}, "records"),
		}
	case NamePredictTrends:
		return Definition{
			Name:        n,
			Description: "Fit a linear trend to report volume over time and estimate the next period.",
			Parameters: obj(map[string]any{
				"category": str("Restrict the trend to one category."),
				"interval": strEnum("Bucket width.", "day", "week", "month", "year"),
			}),
		}
	case NameSuggestFollowups:
		return Definition{
			Name:        n,
			Description: "Suggest next queries a user could run, based on what the current results contain.",
			Parameters: obj(map[string]any{
				"total_results":  integer("How many records the current result set holds."),
				"categories":     arr("Categories present in the current results.", str("Category name.")),
				"recent_actions": arr("Tools already run in this conversation; matching suggestions are dropped.", str("Tool name.")),
			}),
		}
	case NameExportResults:
		return Definition{
			Name:        n,
			Description: "Render a result set as a downloadable document in csv or json format.",
			Parameters: obj(map[string]any{
				"records": arr("Records to export.", recordRefSchema),
				"format":  strEnum("Output format.", "csv", "json"),
			}, "records", "format"),
		}
	case NameTimeseriesData:
		return Definition{
			Name:        n,
			Description: "Bucket report counts over time for charting.",
			Parameters: obj(map[string]any{
				"category": str("Restrict to one category."),
				"interval": strEnum("Bucket width.", "hour", "day", "week", "month", "year"),
			}, "interval"),
		}
	case NameMapData:
		return Definition{
			Name:        n,
			Description: "Produce map markers and a density grid from geolocated records.",
			Parameters: obj(map[string]any{
				"category": str("Restrict to one category."),
				"limit":    limitProp(),
			}),
		}
	case NameTimelineData:
		return Definition{
			Name:        n,
			Description: "Produce a chronological timeline of events for display.",
			Parameters: obj(map[string]any{
				"category": str("Restrict to one category."),
				"limit":    limitProp(),
			}),
		}
	case NameGraphData:
		return Definition{
			Name:        n,
			Description: "Build a node/edge graph from records and their declared connections.",
			Parameters: obj(map[string]any{
				"category": str("Restrict to one category."),
				"limit":    limitProp(),
			}),
		}
	case NameDashboardData:
		return Definition{
			Name:        n,
			Description: "Bundle the headline series a dashboard needs: totals, category mix, recent activity and top locations.",
			Parameters: obj(map[string]any{
				"interval": strEnum("Bucket width for the activity series.", "day", "week", "month"),
			}),
		}
	case NameRankContributors:
		return Definition{
			Name:        n,
			Description: "Rank identities by report count, breaking ties by category breadth.",
			Parameters: obj(map[string]any{
				"category": str("Restrict to one category."),
				"limit":    limitProp(),
			}),
		}
	case NameAnalyzeCategory:
		return Definition{
			Name:        n,
			Description: "Profile one category: volume, activity over time, common attributes and locations.",
			Parameters: obj(map[string]any{
				"category": str("Category to analyze."),
			}, "category"),
		}
	case NameCompareCategories:
		return Definition{
			Name:        n,
			Description: "Compare two categories side by side on volume, cadence and attribute overlap.",
			Parameters: obj(map[string]any{
				"left":  str("First category."),
				"right": str("Second category."),
			}, "left", "right"),
		}
	case NameCorrelateAttributes:
		return Definition{
			Name:        n,
			Description: "Find attribute value pairs that co-occur across records more often than chance.",
			Parameters: obj(map[string]any{
				"category": str("Restrict to one category."),
				"limit":    limitProp(),
			}),
		}
	case NameFindConnections:
		return Definition{
			Name:        n,
			Description: "Score records related to a seed record by semantic, geographic, temporal and attribute similarity.",
			Parameters: obj(map[string]any{
				"seed_id": str("Identifier of the record to start from."),
				"limit":   limitProp(),
			}, "seed_id"),
		}
	case NameDetectPatterns:
		return Definition{
			Name:        n,
			Description: "Detect clusters, recurring attributes and temporal rhythms inside a supplied set of records.",
			Parameters: obj(map[string]any{
				"records": arr("Records to inspect.", recordRefSchema),
			}, "records"),
		}
	}
	return Definition{Name: n}
}
