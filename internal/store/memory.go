package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/anomalyhq/corpusd/internal/stats"
)

// MemoryEngine is an embedded, dependency-free engine. It is the default
// backend and the one tests run against. Records are partitioned per tenant
// and results are deterministically ordered.
type MemoryEngine struct {
	mu      sync.RWMutex
	tenants map[string]map[string]Record
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		tenants: make(map[string]map[string]Record),
	}
}

// Put stores or replaces a record within a tenant partition.
func (m *MemoryEngine) Put(ctx context.Context, tenantID string, rec Record) error {
	if tenantID == "" {
		return ErrInvalidTenant
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	part, ok := m.tenants[tenantID]
	if !ok {
		part = make(map[string]Record)
		m.tenants[tenantID] = part
	}
	part[rec.ID] = rec
	return nil
}

// Get fetches one record by ID.
func (m *MemoryEngine) Get(ctx context.Context, tenantID, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tenants[tenantID][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Find applies the query filters and returns one page plus the total count.
func (m *MemoryEngine) Find(ctx context.Context, tenantID string, q Query) ([]Record, int, error) {
	recs := m.snapshot(tenantID)

	var matched []Record
	for _, rec := range recs {
		if matches(rec, q) {
			matched = append(matched, rec)
		}
	}

	sortRecords(matched, q.SortBy, q.Descending)
	total := len(matched)

	return paginate(matched, q.Offset, q.Limit), total, nil
}

// FullText ranks records by keyword overlap. Title matches weigh double.
func (m *MemoryEngine) FullText(ctx context.Context, tenantID, text string, limit int) ([]Scored, int, error) {
	terms := tokenize(text)
	if len(terms) == 0 {
		return nil, 0, nil
	}

	recs := m.snapshot(tenantID)

	var hits []Scored
	for _, rec := range recs {
		score := keywordScore(rec, terms)
		if score > 0 {
			hits = append(hits, Scored{Record: rec, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})

	total := len(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, total, nil
}

// Near returns geo-tagged records within radiusKm of a point, nearest
// first. Scores are distances in kilometers.
func (m *MemoryEngine) Near(ctx context.Context, tenantID string, lat, lon, radiusKm float64, limit int) ([]Scored, int, error) {
	recs := m.snapshot(tenantID)

	var hits []Scored
	for _, rec := range recs {
		if rec.Location == nil {
			continue
		}
		d := stats.HaversineKm(lat, lon, rec.Location.Lat, rec.Location.Lon)
		if d <= radiusKm {
			hits = append(hits, Scored{Record: rec, Score: d})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})

	total := len(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, total, nil
}

// Within returns geo-tagged records inside the bounding box, ordered by ID.
func (m *MemoryEngine) Within(ctx context.Context, tenantID string, b Bounds, limit int) ([]Scored, int, error) {
	recs := m.snapshot(tenantID)

	var hits []Scored
	for _, rec := range recs {
		if rec.Location == nil {
			continue
		}
		if rec.Location.Lat < b.MinLat || rec.Location.Lat > b.MaxLat {
			continue
		}
		if rec.Location.Lon < b.MinLon || rec.Location.Lon > b.MaxLon {
			continue
		}
		hits = append(hits, Scored{Record: rec})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Record.ID < hits[j].Record.ID
	})

	total := len(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, total, nil
}

// snapshot copies a tenant partition in stable order (submitted, then ID).
func (m *MemoryEngine) snapshot(tenantID string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	part := m.tenants[tenantID]
	recs := make([]Record, 0, len(part))
	for _, rec := range part {
		recs = append(recs, rec)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].SubmittedAt.Equal(recs[j].SubmittedAt) {
			return recs[i].SubmittedAt.Before(recs[j].SubmittedAt)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs
}

func matches(rec Record, q Query) bool {
	if q.Category != "" && rec.Category != q.Category {
		return false
	}
	if !q.From.IsZero() && rec.OccurredAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && rec.OccurredAt.After(q.To) {
		return false
	}
	if q.LocationText != "" &&
		!strings.Contains(strings.ToLower(rec.LocationText), strings.ToLower(q.LocationText)) {
		return false
	}
	if len(q.Attributes) > 0 && !matchesAttributes(rec, q.Attributes, q.AttributeMode) {
		return false
	}
	if len(q.Tags) > 0 && !hasAnyTag(rec, q.Tags) {
		return false
	}
	return true
}

func matchesAttributes(rec Record, want map[string]string, mode AttributeMode) bool {
	matched := 0
	for k, v := range want {
		if rec.Attributes[k] == v {
			matched++
		}
	}
	if mode == MatchAny {
		return matched > 0
	}
	return matched == len(want)
}

func hasAnyTag(rec Record, tags []string) bool {
	for _, want := range tags {
		for _, have := range rec.Tags {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

func sortRecords(recs []Record, key SortKey, descending bool) {
	less := func(a, b Record) bool {
		switch key {
		case SortSubmittedAt:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.Before(b.SubmittedAt)
			}
		default:
			if !a.OccurredAt.Equal(b.OccurredAt) {
				return a.OccurredAt.Before(b.OccurredAt)
			}
		}
		return a.ID < b.ID
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if descending {
			return less(recs[j], recs[i])
		}
		return less(recs[i], recs[j])
	})
}

func paginate(recs []Record, offset, limit int) []Record {
	if offset >= len(recs) {
		return nil
	}
	recs = recs[offset:]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// tokenize splits text into lowercase Unicode word tokens, so keyword
// search works across scripts without language-specific stemming.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

func keywordScore(rec Record, terms []string) float64 {
	title := strings.ToLower(rec.Title)
	narrative := strings.ToLower(rec.Narrative)

	var score float64
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += 2
		}
		if strings.Contains(narrative, term) {
			score++
		}
	}
	return score
}
