package tools

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/store"
)

// --- timeseries_data ---

type TimeseriesDataInput struct {
	Category string `json:"category"`
	Interval string `json:"interval"`
}

func (in *TimeseriesDataInput) Validate() error {
	switch in.Interval {
	case "hour", "day", "week", "month", "year":
		return nil
	}
	return InvalidArgument("interval", "must be hour, day, week, month or year")
}

type TimeseriesResult struct {
	Category string       `json:"category,omitempty"`
	Interval string       `json:"interval"`
	Buckets  []TimeBucket `json:"buckets"`
	Total    int          `json:"total"`
}

func (r *Registry) timeseriesData(ctx context.Context, rc *reqctx.Context, in *TimeseriesDataInput) (TimeseriesResult, error) {
	recs, total, err := rc.Store().Find(ctx, store.Query{Category: in.Category, Limit: maxRecordScan})
	if err != nil {
		return TimeseriesResult{}, err
	}
	return TimeseriesResult{
		Category: in.Category,
		Interval: in.Interval,
		Buckets:  buildSeries(recs, in.Interval),
		Total:    total,
	}, nil
}

// --- map_data ---

type MapDataInput struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

func (in *MapDataInput) Validate() error {
	return normalizeLimit(&in.Limit)
}

type MapMarker struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DensityCell is one 1-degree grid cell; Lat and Lon are the cell's
// southwest corner.
type DensityCell struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Count int     `json:"count"`
}

type MapDataResult struct {
	Markers []MapMarker   `json:"markers"`
	Density []DensityCell `json:"density"`
	Located int           `json:"located"`
	Skipped int           `json:"skipped"`
}

func (r *Registry) mapData(ctx context.Context, rc *reqctx.Context, in *MapDataInput) (MapDataResult, error) {
	recs, _, err := rc.Store().Find(ctx, store.Query{Category: in.Category, Limit: maxRecordScan})
	if err != nil {
		return MapDataResult{}, err
	}

	out := MapDataResult{}
	cells := map[[2]float64]int{}
	for _, rec := range recs {
		if rec.Location == nil {
			out.Skipped++
			continue
		}
		out.Located++
		if len(out.Markers) < in.Limit {
			out.Markers = append(out.Markers, MapMarker{
				ID:         rec.ID,
				Title:      rec.Title,
				Category:   rec.Category,
				Lat:        rec.Location.Lat,
				Lon:        rec.Location.Lon,
				OccurredAt: rec.OccurredAt,
			})
		}
		key := [2]float64{math.Floor(rec.Location.Lat), math.Floor(rec.Location.Lon)}
		cells[key]++
	}

	for key, count := range cells {
		out.Density = append(out.Density, DensityCell{Lat: key[0], Lon: key[1], Count: count})
	}
	sort.Slice(out.Density, func(i, j int) bool {
		a, b := out.Density[i], out.Density[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Lat != b.Lat {
			return a.Lat < b.Lat
		}
		return a.Lon < b.Lon
	})
	return out, nil
}

// --- timeline_data ---

type TimelineDataInput struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

func (in *TimelineDataInput) Validate() error {
	return normalizeLimit(&in.Limit)
}

type TimelineEvent struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	OccurredAt   time.Time `json:"occurred_at"`
	LocationText string    `json:"location_text,omitempty"`
}

type TimelineResult struct {
	Events []TimelineEvent `json:"events"`
	Total  int             `json:"total"`
}

func (r *Registry) timelineData(ctx context.Context, rc *reqctx.Context, in *TimelineDataInput) (TimelineResult, error) {
	recs, total, err := rc.Store().Find(ctx, store.Query{
		Category: in.Category,
		SortBy:   store.SortOccurredAt,
		Limit:    in.Limit,
	})
	if err != nil {
		return TimelineResult{}, err
	}

	events := make([]TimelineEvent, 0, len(recs))
	for _, rec := range recs {
		events = append(events, TimelineEvent{
			ID:           rec.ID,
			Title:        rec.Title,
			Category:     rec.Category,
			OccurredAt:   rec.OccurredAt,
			LocationText: rec.LocationText,
		})
	}
	return TimelineResult{Events: events, Total: total}, nil
}

// --- graph_data ---

type GraphDataInput struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

func (in *GraphDataInput) Validate() error {
	return normalizeLimit(&in.Limit)
}

type GraphNode struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

type GraphEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Kind   string  `json:"kind"`
	Weight float64 `json:"weight"`
}

type GraphResult struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// graphData builds a graph from records and their declared connections.
// Edges whose target falls outside the returned node set are dropped
// rather than rendered dangling.
func (r *Registry) graphData(ctx context.Context, rc *reqctx.Context, in *GraphDataInput) (GraphResult, error) {
	recs, _, err := rc.Store().Find(ctx, store.Query{Category: in.Category, Limit: in.Limit})
	if err != nil {
		return GraphResult{}, err
	}

	out := GraphResult{}
	present := map[string]bool{}
	for _, rec := range recs {
		present[rec.ID] = true
		out.Nodes = append(out.Nodes, GraphNode{ID: rec.ID, Label: rec.Title, Category: rec.Category})
	}
	for _, rec := range recs {
		for _, conn := range rec.Connections {
			if !present[conn.TargetID] {
				continue
			}
			out.Edges = append(out.Edges, GraphEdge{
				Source: rec.ID,
				Target: conn.TargetID,
				Kind:   conn.Kind,
				Weight: conn.Weight,
			})
		}
	}
	return out, nil
}

// --- dashboard_data ---

type DashboardDataInput struct {
	Interval string `json:"interval"`
}

func (in *DashboardDataInput) Validate() error {
	switch in.Interval {
	case "":
		in.Interval = "day"
	case "day", "week", "month":
	default:
		return InvalidArgument("interval", "must be day, week or month")
	}
	return nil
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// topLocations tallies free-text locations and keeps the most frequent,
// highest count first with a name tiebreak.
func topLocations(recs []store.Record, max int) []LocationCount {
	byLocation := map[string]int{}
	for _, rec := range recs {
		if rec.LocationText != "" {
			byLocation[rec.LocationText]++
		}
	}
	out := make([]LocationCount, 0, len(byLocation))
	for _, loc := range sortedKeys(byLocation) {
		out = append(out, LocationCount{Location: loc, Count: byLocation[loc]})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Location < b.Location
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

type DashboardResult struct {
	TotalRecords int             `json:"total_records"`
	Categories   []CategoryCount `json:"categories"`
	Activity     []TimeBucket    `json:"activity"`
	TopLocations []LocationCount `json:"top_locations"`
	Recent       []TimelineEvent `json:"recent"`
}

func (r *Registry) dashboardData(ctx context.Context, rc *reqctx.Context, in *DashboardDataInput) (DashboardResult, error) {
	recs, total, err := rc.Store().Find(ctx, store.Query{Limit: maxRecordScan})
	if err != nil {
		return DashboardResult{}, err
	}

	out := DashboardResult{
		TotalRecords: total,
		Activity:     buildSeries(recs, in.Interval),
		TopLocations: topLocations(recs, 5),
	}

	byCategory := map[string]int{}
	for _, rec := range recs {
		byCategory[rec.Category]++
	}
	for _, cat := range sortedKeys(byCategory) {
		out.Categories = append(out.Categories, CategoryCount{Category: cat, Count: byCategory[cat]})
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})

	recent, _, err := rc.Store().Find(ctx, store.Query{
		SortBy:     store.SortSubmittedAt,
		Descending: true,
		Limit:      5,
	})
	if err != nil {
		return DashboardResult{}, err
	}
	for _, rec := range recent {
		out.Recent = append(out.Recent, TimelineEvent{
			ID:           rec.ID,
			Title:        rec.Title,
			Category:     rec.Category,
			OccurredAt:   rec.OccurredAt,
			LocationText: rec.LocationText,
		})
	}
	return out, nil
}
