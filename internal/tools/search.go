package tools

import (
	"context"
	"strings"
	"time"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	// maxRecordScan caps how many records analysis tools pull from the
	// store in one pass.
	maxRecordScan = 10000
)

// normalizeLimit applies the shared limit contract: zero means the
// default, anything outside 1..100 is rejected.
func normalizeLimit(limit *int) error {
	if *limit == 0 {
		*limit = defaultLimit
		return nil
	}
	if *limit < 1 || *limit > maxLimit {
		return InvalidArgument("limit", "must be between 1 and %d", maxLimit)
	}
	return nil
}

func parseTimeField(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, InvalidArgument(field, "must be RFC 3339: %v", err)
	}
	return t, nil
}

// SearchResult is the shared shape for filter-style searches.
type SearchResult struct {
	Records []store.Record `json:"records"`
	Total   int            `json:"total"`
	Offset  int            `json:"offset"`
	Limit   int            `json:"limit"`
}

// ScoredResult is the shared shape for relevance-ranked searches.
type ScoredResult struct {
	Results []store.Scored `json:"results"`
	Total   int            `json:"total"`
}

// --- advanced_search ---

type AdvancedSearchInput struct {
	Category     string   `json:"category"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	LocationText string   `json:"location_text"`
	Tags         []string `json:"tags"`
	SortBy       string   `json:"sort_by"`
	Descending   bool     `json:"descending"`
	Offset       int      `json:"offset"`
	Limit        int      `json:"limit"`

	from, to time.Time
}

func (in *AdvancedSearchInput) Validate() error {
	if err := normalizeLimit(&in.Limit); err != nil {
		return err
	}
	if in.Offset < 0 {
		return InvalidArgument("offset", "must not be negative")
	}
	var err error
	if in.from, err = parseTimeField("from", in.From); err != nil {
		return err
	}
	if in.to, err = parseTimeField("to", in.To); err != nil {
		return err
	}
	if !in.from.IsZero() && !in.to.IsZero() && in.to.Before(in.from) {
		return InvalidArgument("to", "must not be before from")
	}
	switch in.SortBy {
	case "", string(store.SortOccurredAt), string(store.SortSubmittedAt):
	default:
		return InvalidArgument("sort_by", "must be occurred_at or submitted_at")
	}
	return nil
}

func (r *Registry) advancedSearch(ctx context.Context, rc *reqctx.Context, in *AdvancedSearchInput) (SearchResult, error) {
	q := store.Query{
		Category:     in.Category,
		From:         in.from,
		To:           in.to,
		LocationText: in.LocationText,
		Tags:         in.Tags,
		SortBy:       store.SortKey(in.SortBy),
		Descending:   in.Descending,
		Offset:       in.Offset,
		Limit:        in.Limit,
	}
	recs, total, err := rc.Store().Find(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Records: recs, Total: total, Offset: in.Offset, Limit: in.Limit}, nil
}

// --- attribute_search ---

type AttributeSearchInput struct {
	Attributes map[string]string `json:"attributes"`
	Mode       string            `json:"mode"`
	Limit      int               `json:"limit"`
}

func (in *AttributeSearchInput) Validate() error {
	if err := normalizeLimit(&in.Limit); err != nil {
		return err
	}
	if len(in.Attributes) == 0 {
		return InvalidArgument("attributes", "at least one pair required")
	}
	for k := range in.Attributes {
		if strings.TrimSpace(k) == "" {
			return InvalidArgument("attributes", "keys must not be blank")
		}
	}
	switch in.Mode {
	case "":
		in.Mode = string(store.MatchAll)
	case string(store.MatchAll), string(store.MatchAny):
	default:
		return InvalidArgument("mode", "must be and or or")
	}
	return nil
}

func (r *Registry) attributeSearch(ctx context.Context, rc *reqctx.Context, in *AttributeSearchInput) (SearchResult, error) {
	q := store.Query{
		Attributes:    in.Attributes,
		AttributeMode: store.AttributeMode(in.Mode),
		Limit:         in.Limit,
	}
	recs, total, err := rc.Store().Find(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Records: recs, Total: total, Limit: in.Limit}, nil
}

// --- semantic_search ---

type SemanticSearchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (in *SemanticSearchInput) Validate() error {
	if err := normalizeLimit(&in.Limit); err != nil {
		return err
	}
	// An empty query cannot be embedded; this is an embedding failure,
	// not a schema one, so callers can distinguish it from malformed
	// arguments.
	if strings.TrimSpace(in.Query) == "" {
		return Errorf(KindEmbeddingUnavailable, "query text is empty")
	}
	return nil
}

func (r *Registry) semanticSearch(ctx context.Context, rc *reqctx.Context, in *SemanticSearchInput) (ScoredResult, error) {
	hits, err := rc.Store().Similar(ctx, in.Query, in.Limit)
	if err != nil {
		return ScoredResult{}, err
	}
	return ScoredResult{Results: hits, Total: len(hits)}, nil
}

// --- fulltext_search ---

type FulltextSearchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (in *FulltextSearchInput) Validate() error {
	if err := normalizeLimit(&in.Limit); err != nil {
		return err
	}
	if strings.TrimSpace(in.Query) == "" {
		return InvalidArgument("query", "must not be empty")
	}
	return nil
}

func (r *Registry) fulltextSearch(ctx context.Context, rc *reqctx.Context, in *FulltextSearchInput) (ScoredResult, error) {
	hits, total, err := rc.Store().FullText(ctx, in.Query, in.Limit)
	if err != nil {
		return ScoredResult{}, err
	}
	return ScoredResult{Results: hits, Total: total}, nil
}

// --- geo_search ---

type GeoBounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

type GeoSearchInput struct {
	Lat      *float64   `json:"lat"`
	Lon      *float64   `json:"lon"`
	RadiusKm *float64   `json:"radius_km"`
	Bounds   *GeoBounds `json:"bounds"`
	Limit    int        `json:"limit"`
}

// Validate rejects every malformed geometry before any store access: a
// radius search needs lat, lon and a positive radius; a bounds search
// needs a non-inverted box; exactly one of the two shapes must be given.
func (in *GeoSearchInput) Validate() error {
	if err := normalizeLimit(&in.Limit); err != nil {
		return err
	}

	radial := in.Lat != nil || in.Lon != nil || in.RadiusKm != nil
	boxed := in.Bounds != nil

	switch {
	case radial && boxed:
		return Errorf(KindInvalidGeometry, "specify either a center and radius or bounds, not both")
	case !radial && !boxed:
		return Errorf(KindInvalidGeometry, "a center and radius or bounds is required")
	}

	if radial {
		if in.Lat == nil || in.Lon == nil || in.RadiusKm == nil {
			return Errorf(KindInvalidGeometry, "lat, lon and radius_km are all required for a radius search")
		}
		if *in.Lat < -90 || *in.Lat > 90 {
			return Errorf(KindInvalidGeometry, "lat must be within -90..90")
		}
		if *in.Lon < -180 || *in.Lon > 180 {
			return Errorf(KindInvalidGeometry, "lon must be within -180..180")
		}
		if *in.RadiusKm <= 0 {
			return Errorf(KindInvalidGeometry, "radius_km must be positive")
		}
		return nil
	}

	b := in.Bounds
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return Errorf(KindInvalidGeometry, "bounds exceed valid coordinates")
	}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return Errorf(KindInvalidGeometry, "bounds are inverted or empty")
	}
	return nil
}

func (r *Registry) geoSearch(ctx context.Context, rc *reqctx.Context, in *GeoSearchInput) (ScoredResult, error) {
	var (
		hits  []store.Scored
		total int
		err   error
	)
	if in.Bounds != nil {
		hits, total, err = rc.Store().Within(ctx, store.Bounds{
			MinLat: in.Bounds.MinLat,
			MaxLat: in.Bounds.MaxLat,
			MinLon: in.Bounds.MinLon,
			MaxLon: in.Bounds.MaxLon,
		}, in.Limit)
	} else {
		hits, total, err = rc.Store().Near(ctx, *in.Lat, *in.Lon, *in.RadiusKm, in.Limit)
	}
	if err != nil {
		return ScoredResult{}, err
	}
	return ScoredResult{Results: hits, Total: total}, nil
}
