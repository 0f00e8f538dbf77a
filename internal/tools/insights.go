package tools

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/stats"
	"github.com/anomalyhq/corpusd/internal/store"
)

// Finding is one insight extracted from a result set.
type Finding struct {
	Type       string  `json:"type"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// confidenceFor grades a finding by how much data backs it. Thirty
// records is treated as a fully supported finding.
func confidenceFor(n int) float64 {
	c := float64(n) / 30
	if c > 1 {
		c = 1
	}
	return c
}

// --- generate_insights ---

type GenerateInsightsInput struct {
	Records []store.Record `json:"records"`
	Depth   string         `json:"depth"`
}

func (in *GenerateInsightsInput) Validate() error {
	switch in.Depth {
	case "":
		in.Depth = "basic"
	case "basic", "advanced":
	default:
		return InvalidArgument("depth", "must be basic or advanced")
	}
	if len(in.Records) == 0 {
		return Errorf(KindInsufficientData, "no records to analyze")
	}
	return nil
}

type InsightsResult struct {
	TotalRecords int             `json:"total_records"`
	Depth        string          `json:"depth"`
	TopLocations []LocationCount `json:"top_locations"`
	Histogram    []TimeBucket    `json:"histogram"`
	Findings     []Finding       `json:"findings"`
}

func (r *Registry) generateInsights(ctx context.Context, rc *reqctx.Context, in *GenerateInsightsInput) (InsightsResult, error) {
	n := len(in.Records)
	out := InsightsResult{
		TotalRecords: n,
		Depth:        in.Depth,
		TopLocations: topLocations(in.Records, 5),
		Histogram:    buildSeries(in.Records, "month"),
	}

	// Category mix, always reported.
	byCategory := map[string]int{}
	for _, rec := range in.Records {
		byCategory[rec.Category]++
	}
	for _, cat := range sortedKeys(byCategory) {
		share := float64(byCategory[cat]) / float64(n)
		out.Findings = append(out.Findings, Finding{
			Type:       "category_share",
			Summary:    fmt.Sprintf("%s accounts for %.0f%% of results (%d of %d)", cat, share*100, byCategory[cat], n),
			Confidence: confidenceFor(byCategory[cat]),
		})
	}

	if in.Depth == "basic" {
		return out, nil
	}

	out.Findings = append(out.Findings, findingsFrom(r.spikePatterns(in.Records))...)
	out.Findings = append(out.Findings, findingsFrom(r.hotspotPatterns(in.Records))...)
	out.Findings = append(out.Findings, findingsFrom(r.dominancePatterns(in.Records))...)
	return out, nil
}

// findingsFrom restates detected patterns as insight findings.
func findingsFrom(ps []Pattern) []Finding {
	findings := make([]Finding, 0, len(ps))
	for _, p := range ps {
		findings = append(findings, Finding{Type: p.Type, Summary: p.Description, Confidence: p.Confidence})
	}
	return findings
}

// spikePatterns flags months whose report count sits at least the
// configured number of standard deviations above the monthly mean.
func (r *Registry) spikePatterns(recs []store.Record) []Pattern {
	series := buildSeries(recs, "month")
	if len(series) < 3 {
		return nil
	}
	counts := make([]float64, len(series))
	for i, b := range series {
		counts[i] = float64(b.Count)
	}
	mean := stats.Mean(counts)
	sd := stats.StdDev(counts)

	var patterns []Pattern
	for _, b := range series {
		if stats.ZScore(float64(b.Count), mean, sd) >= r.weights.SpikeStdDev {
			patterns = append(patterns, Pattern{
				Type:        "temporal_spike",
				Description: fmt.Sprintf("activity spike in %s: %d reports against a mean of %.1f", b.Start.Format("January 2006"), b.Count, mean),
				Support:     b.Count,
				Confidence:  confidenceFor(b.Count),
			})
		}
	}
	return patterns
}

// hotspotPatterns flags locations holding at least the configured share
// of all geolocatable results.
func (r *Registry) hotspotPatterns(recs []store.Record) []Pattern {
	byLocation := map[string]int{}
	located := 0
	for _, rec := range recs {
		if rec.LocationText == "" {
			continue
		}
		byLocation[rec.LocationText]++
		located++
	}
	if located == 0 {
		return nil
	}

	var patterns []Pattern
	for _, loc := range sortedKeys(byLocation) {
		share := float64(byLocation[loc]) / float64(located)
		if share >= r.weights.HotspotShare {
			patterns = append(patterns, Pattern{
				Type:        "geographic_hotspot",
				Description: fmt.Sprintf("%s concentrates %.0f%% of located reports", loc, share*100),
				Support:     byLocation[loc],
				Confidence:  confidenceFor(byLocation[loc]),
			})
		}
	}
	return patterns
}

// dominancePatterns flags categories holding at least the configured
// share of the whole set.
func (r *Registry) dominancePatterns(recs []store.Record) []Pattern {
	byCategory := map[string]int{}
	for _, rec := range recs {
		byCategory[rec.Category]++
	}

	var patterns []Pattern
	for _, cat := range sortedKeys(byCategory) {
		share := float64(byCategory[cat]) / float64(len(recs))
		if share >= r.weights.DominanceShare {
			patterns = append(patterns, Pattern{
				Type:        "category_dominance",
				Description: fmt.Sprintf("%s holds %.0f%% of reports (%d of %d)", cat, share*100, byCategory[cat], len(recs)),
				Support:     byCategory[cat],
				Confidence:  confidenceFor(byCategory[cat]),
			})
		}
	}
	return patterns
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- time bucketing, shared with the visualization tools ---

// TimeBucket is one interval of a report-volume series.
type TimeBucket struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

func truncateToInterval(t time.Time, interval string) time.Time {
	t = t.UTC()
	switch interval {
	case "hour":
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case "week":
		// Weeks start on Monday.
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case "year":
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

func nextIntervalStart(t time.Time, interval string) time.Time {
	switch interval {
	case "hour":
		return t.Add(time.Hour)
	case "day":
		return t.AddDate(0, 0, 1)
	case "week":
		return t.AddDate(0, 0, 7)
	case "month":
		return t.AddDate(0, 1, 0)
	case "year":
		return t.AddDate(1, 0, 0)
	}
	return t
}

// buildSeries buckets records by occurrence time into an unbroken,
// chronological series. Intervals with no reports appear with a zero
// count so trend math sees the gaps.
func buildSeries(recs []store.Record, interval string) []TimeBucket {
	if len(recs) == 0 {
		return nil
	}
	counts := map[time.Time]int{}
	var min, max time.Time
	for i, rec := range recs {
		b := truncateToInterval(rec.OccurredAt, interval)
		counts[b]++
		if i == 0 || b.Before(min) {
			min = b
		}
		if i == 0 || b.After(max) {
			max = b
		}
	}

	var series []TimeBucket
	for cur := min; !cur.After(max); cur = nextIntervalStart(cur, interval) {
		series = append(series, TimeBucket{Start: cur, Count: counts[cur]})
	}
	return series
}

// --- predict_trends ---

type PredictTrendsInput struct {
	Category string `json:"category"`
	Interval string `json:"interval"`
}

func (in *PredictTrendsInput) Validate() error {
	switch in.Interval {
	case "":
		in.Interval = "month"
	case "day", "week", "month", "year":
	default:
		return InvalidArgument("interval", "must be day, week, month or year")
	}
	return nil
}

type TrendResult struct {
	Category           string       `json:"category,omitempty"`
	Interval           string       `json:"interval"`
	Buckets            []TimeBucket `json:"buckets"`
	Slope              float64      `json:"slope"`
	RSquared           float64      `json:"r_squared"`
	Direction          string       `json:"direction"`
	NextPeriodEstimate float64      `json:"next_period_estimate"`
	ConfidenceLow      float64      `json:"confidence_low"`
	ConfidenceHigh     float64      `json:"confidence_high"`
}

func (r *Registry) predictTrends(ctx context.Context, rc *reqctx.Context, in *PredictTrendsInput) (TrendResult, error) {
	recs, _, err := rc.Store().Find(ctx, store.Query{Category: in.Category, Limit: maxRecordScan})
	if err != nil {
		return TrendResult{}, err
	}

	series := buildSeries(recs, in.Interval)
	nonZero := 0
	for _, b := range series {
		if b.Count > 0 {
			nonZero++
		}
	}
	if nonZero < 3 {
		return TrendResult{}, Errorf(KindInsufficientData,
			"trend needs at least 3 active %s buckets, have %d", in.Interval, nonZero)
	}

	ys := make([]float64, len(series))
	for i, b := range series {
		ys[i] = float64(b.Count)
	}
	fit, err := stats.LinearRegression(ys)
	if err != nil {
		return TrendResult{}, Errorf(KindInsufficientData, "trend fit failed: %v", err)
	}

	next := fit.Slope*float64(len(series)) + fit.Intercept
	if next < 0 {
		next = 0
	}

	direction := "flat"
	switch {
	case fit.Slope > 0.05:
		direction = "rising"
	case fit.Slope < -0.05:
		direction = "falling"
	}

	return TrendResult{
		Category:           in.Category,
		Interval:           in.Interval,
		Buckets:            series,
		Slope:              fit.Slope,
		RSquared:           fit.RSquared,
		Direction:          direction,
		NextPeriodEstimate: next,
		ConfidenceLow:      fit.ConfidenceLow,
		ConfidenceHigh:     fit.ConfidenceHigh,
	}, nil
}

// --- suggest_followups ---

type SuggestFollowupsInput struct {
	TotalResults  int      `json:"total_results"`
	Categories    []string `json:"categories"`
	RecentActions []string `json:"recent_actions"`
}

func (in *SuggestFollowupsInput) Validate() error {
	if in.TotalResults < 0 {
		return InvalidArgument("total_results", "must not be negative")
	}
	return nil
}

type Followup struct {
	Action string `json:"action"`
	Prompt string `json:"prompt"`
}

type FollowupResult struct {
	Suggestions []Followup `json:"suggestions"`
}

// followupAction maps a tool name from the conversation so far onto the
// suggestion action it would satisfy.
func followupAction(tool string) string {
	switch Name(tool) {
	case NameExportResults:
		return "export"
	case NameCompareCategories:
		return "compare"
	case NameTimeseriesData, NameMapData, NameTimelineData, NameGraphData, NameDashboardData:
		return "visualize"
	}
	return tool
}

func (r *Registry) suggestFollowups(ctx context.Context, rc *reqctx.Context, in *SuggestFollowupsInput) (FollowupResult, error) {
	var out FollowupResult

	switch {
	case in.TotalResults == 0:
		out.Suggestions = append(out.Suggestions,
			Followup{Action: "explore", Prompt: "Broaden the search: drop filters or try a semantic search over the whole corpus"},
			Followup{Action: "explore", Prompt: "Ask what categories exist and how active each has been recently"},
		)
	case in.TotalResults > 50:
		out.Suggestions = append(out.Suggestions,
			Followup{Action: "filter", Prompt: "Narrow by date range or location to focus the result set"},
			Followup{Action: "visualize", Prompt: "Chart these results over time to see when activity peaked"},
		)
	default:
		out.Suggestions = append(out.Suggestions,
			Followup{Action: "visualize", Prompt: "Plot these results on a map or timeline"},
			Followup{Action: "explore", Prompt: "Find records connected to the most striking result"},
		)
	}

	if len(in.Categories) > 1 {
		out.Suggestions = append(out.Suggestions, Followup{
			Action: "compare",
			Prompt: fmt.Sprintf("Compare %s against %s", in.Categories[0], in.Categories[1]),
		})
	}
	if in.TotalResults > 0 {
		out.Suggestions = append(out.Suggestions, Followup{
			Action: "export",
			Prompt: "Export these results as CSV or JSON",
		})
	}

	// Do not suggest what the conversation just did.
	done := map[string]bool{}
	for _, a := range in.RecentActions {
		done[followupAction(a)] = true
	}
	if len(done) > 0 {
		kept := out.Suggestions[:0]
		for _, s := range out.Suggestions {
			if !done[s.Action] {
				kept = append(kept, s)
			}
		}
		out.Suggestions = kept
	}
	return out, nil
}

// --- export_results ---

type ExportResultsInput struct {
	Records []store.Record `json:"records"`
	Format  string         `json:"format"`
}

func (in *ExportResultsInput) Validate() error {
	switch in.Format {
	case "csv", "json":
	default:
		return Errorf(KindUnsupportedFormat, "format %q is not supported, use csv or json", in.Format)
	}
	if len(in.Records) == 0 {
		return Errorf(KindInsufficientData, "no records to export")
	}
	return nil
}

type ExportResult struct {
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
	Count       int    `json:"count"`
}

func (r *Registry) exportResults(ctx context.Context, rc *reqctx.Context, in *ExportResultsInput) (ExportResult, error) {
	switch in.Format {
	case "json":
		doc := struct {
			Format     string         `json:"format"`
			Count      int            `json:"count"`
			ExportedAt time.Time      `json:"exported_at"`
			Records    []store.Record `json:"records"`
		}{
			Format:     "json",
			Count:      len(in.Records),
			ExportedAt: time.Now().UTC(),
			Records:    in.Records,
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return ExportResult{}, fmt.Errorf("encode export: %w", err)
		}
		return ExportResult{
			Format:      "json",
			ContentType: "application/json",
			Content:     string(data),
			Count:       len(in.Records),
		}, nil

	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		header := []string{"id", "identity_id", "category", "title", "occurred_at", "location", "tags"}
		if err := w.Write(header); err != nil {
			return ExportResult{}, fmt.Errorf("encode export: %w", err)
		}
		for _, rec := range in.Records {
			row := []string{
				rec.ID,
				rec.IdentityID,
				rec.Category,
				rec.Title,
				rec.OccurredAt.UTC().Format(time.RFC3339),
				rec.LocationText,
				strings.Join(rec.Tags, ";"),
			}
			if err := w.Write(row); err != nil {
				return ExportResult{}, fmt.Errorf("encode export: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return ExportResult{}, fmt.Errorf("encode export: %w", err)
		}
		return ExportResult{
			Format:      "csv",
			ContentType: "text/csv",
			Content:     buf.String(),
			Count:       len(in.Records),
		}, nil
	}
	return ExportResult{}, Errorf(KindUnsupportedFormat, "format %q is not supported", in.Format)
}
