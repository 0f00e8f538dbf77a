package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomalyhq/corpusd/internal/store"
)

func recordsArg(t *testing.T, recs []store.Record) string {
	t.Helper()
	data, err := json.Marshal(recs)
	require.NoError(t, err)
	return string(data)
}

func ufoRecords() []store.Record {
	var out []store.Record
	for _, rec := range fixtureRecords() {
		if rec.Category == "ufo-uap" {
			out = append(out, rec)
		}
	}
	return out
}

func findingTypes(res InsightsResult) map[string]int {
	types := map[string]int{}
	for _, f := range res.Findings {
		types[f.Type]++
	}
	return types
}

func TestGenerateInsights_Basic(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	out, err := execute(t, reg, rc, NameGenerateInsights,
		fmt.Sprintf(`{"records": %s}`, recordsArg(t, fixtureRecords())))
	require.NoError(t, err)
	res := out.(InsightsResult)

	assert.Equal(t, 8, res.TotalRecords)
	assert.Equal(t, "basic", res.Depth)
	types := findingTypes(res)
	assert.Equal(t, 2, types["category_share"], "one share finding per category")
	assert.Zero(t, types["temporal_spike"], "basic depth stops at the category mix")
	assert.Zero(t, types["category_dominance"])

	require.Len(t, res.TopLocations, 3)
	assert.Equal(t, LocationCount{Location: "San Francisco, CA", Count: 3}, res.TopLocations[0])

	require.Len(t, res.Histogram, 4, "one monthly bucket January through April")
	assert.Equal(t, 3, res.Histogram[2].Count, "March holds three reports")
}

func TestGenerateInsights_Advanced(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	out, err := execute(t, reg, rc, NameGenerateInsights,
		fmt.Sprintf(`{"records": %s, "depth": "advanced"}`, recordsArg(t, ufoRecords())))
	require.NoError(t, err)
	res := out.(InsightsResult)

	types := findingTypes(res)
	assert.Equal(t, 1, types["temporal_spike"], "March doubles the monthly mean")
	assert.Equal(t, 2, types["geographic_hotspot"], "hotspot share threshold is inclusive")
	assert.Equal(t, 1, types["category_dominance"])

	var spike, dominant Finding
	for _, f := range res.Findings {
		switch f.Type {
		case "temporal_spike":
			spike = f
		case "category_dominance":
			dominant = f
		}
	}
	assert.Contains(t, spike.Summary, "March 2024")
	assert.Contains(t, dominant.Summary, "ufo-uap")

	for _, f := range res.Findings {
		assert.GreaterOrEqual(t, f.Confidence, 0.0)
		assert.LessOrEqual(t, f.Confidence, 1.0)
	}
}

func TestGenerateInsights_NoRecords(t *testing.T) {
	reg, rc, engine := newTestContext(t)

	_, err := execute(t, reg, rc, NameGenerateInsights, `{"records": []}`)
	assert.Equal(t, KindInsufficientData, KindOf(err))
	assert.Zero(t, engine.reads)
}

func TestPredictTrends(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	out, err := execute(t, reg, rc, NamePredictTrends,
		`{"category": "ufo-uap", "interval": "month"}`)
	require.NoError(t, err)
	res := out.(TrendResult)

	// Monthly counts Jan..Apr are 1,1,2,1.
	require.Len(t, res.Buckets, 4)
	assert.InDelta(t, 0.1, res.Slope, 1e-9)
	assert.InDelta(t, 1.5, res.NextPeriodEstimate, 1e-9)
	assert.Equal(t, "rising", res.Direction)
	assert.LessOrEqual(t, res.ConfidenceLow, res.Slope)
	assert.GreaterOrEqual(t, res.ConfidenceHigh, res.Slope)
}

func TestPredictTrends_InsufficientData(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	_, err := execute(t, reg, rc, NamePredictTrends, `{"category": "visions"}`)
	assert.Equal(t, KindInsufficientData, KindOf(err))
}

func TestPredictTrends_EstimateNeverNegative(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	// Weekly buckets over the dream reports are sparse and falling;
	// whatever the fit says, the estimate must not go below zero.
	out, err := execute(t, reg, rc, NamePredictTrends,
		`{"category": "dreams", "interval": "month"}`)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.(TrendResult).NextPeriodEstimate, 0.0)
}

func TestSuggestFollowups(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	actions := func(res FollowupResult) map[string]bool {
		set := map[string]bool{}
		for _, s := range res.Suggestions {
			set[s.Action] = true
		}
		return set
	}

	out, err := execute(t, reg, rc, NameSuggestFollowups, `{"total_results": 0}`)
	require.NoError(t, err)
	got := actions(out.(FollowupResult))
	assert.True(t, got["explore"])
	assert.False(t, got["export"], "nothing to export from an empty result set")

	out, err = execute(t, reg, rc, NameSuggestFollowups,
		`{"total_results": 120, "categories": ["ufo-uap", "dreams"]}`)
	require.NoError(t, err)
	got = actions(out.(FollowupResult))
	assert.True(t, got["filter"])
	assert.True(t, got["compare"])
	assert.True(t, got["export"])

	out, err = execute(t, reg, rc, NameSuggestFollowups, `{"total_results": 12}`)
	require.NoError(t, err)
	assert.True(t, actions(out.(FollowupResult))["visualize"])
}

func TestSuggestFollowups_SkipsRecentActions(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	actions := func(res FollowupResult) map[string]bool {
		set := map[string]bool{}
		for _, s := range res.Suggestions {
			set[s.Action] = true
		}
		return set
	}

	// The conversation just built a map; do not tell it to visualize.
	out, err := execute(t, reg, rc, NameSuggestFollowups,
		`{"total_results": 12, "recent_actions": ["map_data"]}`)
	require.NoError(t, err)
	got := actions(out.(FollowupResult))
	assert.False(t, got["visualize"])
	assert.True(t, got["explore"])

	out, err = execute(t, reg, rc, NameSuggestFollowups,
		`{"total_results": 120, "categories": ["ufo-uap", "dreams"], "recent_actions": ["export_results", "compare_categories"]}`)
	require.NoError(t, err)
	got = actions(out.(FollowupResult))
	assert.False(t, got["export"])
	assert.False(t, got["compare"])
	assert.True(t, got["filter"])
}

func TestExportResults(t *testing.T) {
	reg, rc, _ := newTestContext(t)
	recs := recordsArg(t, ufoRecords())

	out, err := execute(t, reg, rc, NameExportResults,
		fmt.Sprintf(`{"records": %s, "format": "csv"}`, recs))
	require.NoError(t, err)
	res := out.(ExportResult)
	assert.Equal(t, "text/csv", res.ContentType)
	assert.Equal(t, 5, res.Count)
	lines := strings.Split(strings.TrimSpace(res.Content), "\n")
	require.Len(t, lines, 6, "header plus one row per record")
	assert.Equal(t, "id,identity_id,category,title,occurred_at,location,tags", lines[0])

	out, err = execute(t, reg, rc, NameExportResults,
		fmt.Sprintf(`{"records": %s, "format": "json"}`, recs))
	require.NoError(t, err)
	res = out.(ExportResult)
	assert.Equal(t, "application/json", res.ContentType)
	var decoded struct {
		Format     string         `json:"format"`
		Count      int            `json:"count"`
		ExportedAt time.Time      `json:"exported_at"`
		Records    []store.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &decoded))
	assert.Equal(t, "json", decoded.Format)
	assert.Equal(t, 5, decoded.Count)
	assert.False(t, decoded.ExportedAt.IsZero())
	assert.Len(t, decoded.Records, 5)
}

func TestExportResults_Rejections(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	_, err := execute(t, reg, rc, NameExportResults,
		fmt.Sprintf(`{"records": %s, "format": "xml"}`, recordsArg(t, ufoRecords())))
	assert.Equal(t, KindUnsupportedFormat, KindOf(err))

	_, err = execute(t, reg, rc, NameExportResults, `{"records": [], "format": "csv"}`)
	assert.Equal(t, KindInsufficientData, KindOf(err))
}
