package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/stats"
	"github.com/anomalyhq/corpusd/internal/store"
)

// --- find_connections ---

type FindConnectionsInput struct {
	SeedID string `json:"seed_id"`
	Limit  int    `json:"limit"`
}

func (in *FindConnectionsInput) Validate() error {
	if err := normalizeLimit(&in.Limit); err != nil {
		return err
	}
	if in.SeedID == "" {
		return InvalidArgument("seed_id", "required")
	}
	return nil
}

// Signals are the per-dimension similarity scores behind a connection,
// each in 0..1.
type Signals struct {
	Semantic   float64 `json:"semantic"`
	Geographic float64 `json:"geographic"`
	Temporal   float64 `json:"temporal"`
	Attribute  float64 `json:"attribute"`
}

type RelatedRecord struct {
	Record  store.Record `json:"record"`
	Score   float64      `json:"score"`
	Signals Signals      `json:"signals"`
}

type ConnectionsResult struct {
	SeedID  string          `json:"seed_id"`
	Related []RelatedRecord `json:"related"`
}

const (
	// Distances beyond this no longer contribute geographic signal.
	geoSignalRangeKm = 500
	// Gaps beyond this no longer contribute temporal signal.
	temporalRangeDays = 365
)

func (r *Registry) findConnections(ctx context.Context, rc *reqctx.Context, in *FindConnectionsInput) (ConnectionsResult, error) {
	seed, err := rc.Store().Get(ctx, in.SeedID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ConnectionsResult{}, Errorf(KindSeedNotFound, "seed record %q not found", in.SeedID)
		}
		return ConnectionsResult{}, err
	}

	candidates, _, err := rc.Store().Find(ctx, store.Query{Limit: maxRecordScan})
	if err != nil {
		return ConnectionsResult{}, err
	}

	semantic := r.semanticScores(ctx, rc, seed, candidates)

	out := ConnectionsResult{SeedID: seed.ID}
	for _, cand := range candidates {
		if cand.ID == seed.ID {
			continue
		}
		sig := Signals{
			Semantic:   semantic[cand.ID],
			Geographic: geoSignal(seed, cand),
			Temporal:   temporalSignal(seed, cand),
			Attribute:  attributeSignal(seed, cand),
		}
		score := r.weights.Semantic*sig.Semantic +
			r.weights.Geographic*sig.Geographic +
			r.weights.Temporal*sig.Temporal +
			r.weights.Attribute*sig.Attribute
		if score <= 0 {
			continue
		}
		out.Related = append(out.Related, RelatedRecord{Record: cand, Score: score, Signals: sig})
	}

	sort.SliceStable(out.Related, func(i, j int) bool {
		if out.Related[i].Score != out.Related[j].Score {
			return out.Related[i].Score > out.Related[j].Score
		}
		return out.Related[i].Record.ID < out.Related[j].Record.ID
	})
	if len(out.Related) > in.Limit {
		out.Related = out.Related[:in.Limit]
	}
	return out, nil
}

// semanticScores scores candidates against the seed narrative, via the
// vector index when one is wired and token overlap otherwise. Connection
// finding still works on a deployment with no embedding service.
func (r *Registry) semanticScores(ctx context.Context, rc *reqctx.Context, seed store.Record, candidates []store.Record) map[string]float64 {
	scores := map[string]float64{}

	hits, err := rc.Store().Similar(ctx, seed.Narrative, maxLimit)
	if err == nil {
		for _, h := range hits {
			scores[h.Record.ID] = h.Score
		}
		return scores
	}
	r.logger.Debug("vector similarity unavailable, falling back to token overlap",
		zap.Error(err))

	seedTokens := tokenSet(seed.Narrative)
	for _, cand := range candidates {
		scores[cand.ID] = jaccard(seedTokens, tokenSet(cand.Narrative))
	}
	return scores
}

func geoSignal(a, b store.Record) float64 {
	if a.Location == nil || b.Location == nil {
		return 0
	}
	d := stats.HaversineKm(a.Location.Lat, a.Location.Lon, b.Location.Lat, b.Location.Lon)
	if d > geoSignalRangeKm {
		return 0
	}
	return 1 - d/geoSignalRangeKm
}

func temporalSignal(a, b store.Record) float64 {
	days := math.Abs(a.OccurredAt.Sub(b.OccurredAt).Hours()) / 24
	if days > temporalRangeDays {
		return 0
	}
	return 1 - days/temporalRangeDays
}

func attributeSignal(a, b store.Record) float64 {
	if len(a.Attributes) == 0 || len(b.Attributes) == 0 {
		return 0
	}
	shared := 0
	for k, v := range a.Attributes {
		if b.Attributes[k] == v {
			shared++
		}
	}
	denom := len(a.Attributes)
	if len(b.Attributes) > denom {
		denom = len(b.Attributes)
	}
	return float64(shared) / float64(denom)
}

func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		set[tok] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if b[tok] {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// --- detect_patterns ---

type DetectPatternsInput struct {
	Records []store.Record `json:"records"`
}

func (in *DetectPatternsInput) Validate() error {
	if len(in.Records) == 0 {
		return Errorf(KindInsufficientData, "no records to inspect")
	}
	return nil
}

type Pattern struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Support     int     `json:"support"`
	Confidence  float64 `json:"confidence"`
}

type PatternsResult struct {
	RecordsSeen int       `json:"records_seen"`
	Patterns    []Pattern `json:"patterns"`
}

// detectPatterns inspects only the records it is handed. It never goes
// back to the store, so it can be chained after any search without
// changing what was searched.
func (r *Registry) detectPatterns(ctx context.Context, rc *reqctx.Context, in *DetectPatternsInput) (PatternsResult, error) {
	out := PatternsResult{RecordsSeen: len(in.Records)}

	out.Patterns = append(out.Patterns, r.spikePatterns(in.Records)...)
	out.Patterns = append(out.Patterns, r.hotspotPatterns(in.Records)...)
	out.Patterns = append(out.Patterns, r.dominancePatterns(in.Records)...)
	out.Patterns = append(out.Patterns, geoClusters(in.Records)...)
	out.Patterns = append(out.Patterns, recurringAttributes(in.Records, r.weights.CooccurrenceFloor)...)
	out.Patterns = append(out.Patterns, weekdayRhythm(in.Records)...)

	sort.SliceStable(out.Patterns, func(i, j int) bool {
		if out.Patterns[i].Support != out.Patterns[j].Support {
			return out.Patterns[i].Support > out.Patterns[j].Support
		}
		return out.Patterns[i].Description < out.Patterns[j].Description
	})
	return out, nil
}

// geoClusters reports 1-degree grid cells holding more than one record.
func geoClusters(recs []store.Record) []Pattern {
	cells := map[[2]float64][]string{}
	for _, rec := range recs {
		if rec.Location == nil {
			continue
		}
		key := [2]float64{math.Floor(rec.Location.Lat), math.Floor(rec.Location.Lon)}
		cells[key] = append(cells[key], rec.ID)
	}

	var patterns []Pattern
	for key, ids := range cells {
		if len(ids) < 2 {
			continue
		}
		patterns = append(patterns, Pattern{
			Type:        "geo_cluster",
			Description: fmt.Sprintf("%d reports cluster near %.0f,%.0f", len(ids), key[0], key[1]),
			Support:     len(ids),
			Confidence:  confidenceFor(len(ids)),
		})
	}
	return patterns
}

// recurringAttributes reports attribute values that repeat at least
// floor times across the set.
func recurringAttributes(recs []store.Record, floor int) []Pattern {
	counts := map[string]int{}
	for _, rec := range recs {
		for _, k := range sortedKeys(rec.Attributes) {
			counts[k+"="+rec.Attributes[k]]++
		}
	}

	var patterns []Pattern
	for _, token := range sortedKeys(counts) {
		if counts[token] < floor {
			continue
		}
		patterns = append(patterns, Pattern{
			Type:        "recurring_attribute",
			Description: fmt.Sprintf("%s recurs across %d reports", token, counts[token]),
			Support:     counts[token],
			Confidence:  confidenceFor(counts[token]),
		})
	}
	return patterns
}

// weekdayRhythm reports a weekday carrying at least half of all records,
// when there are enough records for that to mean anything.
func weekdayRhythm(recs []store.Record) []Pattern {
	if len(recs) < 4 {
		return nil
	}
	byDay := map[string]int{}
	for _, rec := range recs {
		byDay[rec.OccurredAt.UTC().Weekday().String()]++
	}

	var patterns []Pattern
	for _, day := range sortedKeys(byDay) {
		if float64(byDay[day]) < float64(len(recs))/2 {
			continue
		}
		patterns = append(patterns, Pattern{
			Type:        "temporal_rhythm",
			Description: fmt.Sprintf("%d of %d reports fall on a %s", byDay[day], len(recs), day),
			Support:     byDay[day],
			Confidence:  confidenceFor(byDay[day]),
		})
	}
	return patterns
}
