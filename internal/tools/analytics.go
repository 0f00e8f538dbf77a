package tools

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/store"
)

// --- rank_contributors ---

type RankContributorsInput struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

func (in *RankContributorsInput) Validate() error {
	return normalizeLimit(&in.Limit)
}

type Contributor struct {
	IdentityID string `json:"identity_id"`
	Reports    int    `json:"reports"`
	Categories int    `json:"categories"`
}

type ContributorsResult struct {
	Contributors []Contributor `json:"contributors"`
	Total        int           `json:"total"`
}

// rankContributors orders identities by report count; identities tied on
// count rank by how many distinct categories they report in, then by ID
// so the order is stable.
func (r *Registry) rankContributors(ctx context.Context, rc *reqctx.Context, in *RankContributorsInput) (ContributorsResult, error) {
	recs, _, err := rc.Store().Find(ctx, store.Query{Category: in.Category, Limit: maxRecordScan})
	if err != nil {
		return ContributorsResult{}, err
	}

	reports := map[string]int{}
	cats := map[string]map[string]bool{}
	for _, rec := range recs {
		reports[rec.IdentityID]++
		if cats[rec.IdentityID] == nil {
			cats[rec.IdentityID] = map[string]bool{}
		}
		cats[rec.IdentityID][rec.Category] = true
	}

	ranked := make([]Contributor, 0, len(reports))
	for _, id := range sortedKeys(reports) {
		ranked = append(ranked, Contributor{
			IdentityID: id,
			Reports:    reports[id],
			Categories: len(cats[id]),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Reports != b.Reports {
			return a.Reports > b.Reports
		}
		if a.Categories != b.Categories {
			return a.Categories > b.Categories
		}
		return a.IdentityID < b.IdentityID
	})

	total := len(ranked)
	if len(ranked) > in.Limit {
		ranked = ranked[:in.Limit]
	}
	return ContributorsResult{Contributors: ranked, Total: total}, nil
}

// --- analyze_category ---

type AnalyzeCategoryInput struct {
	Category string `json:"category"`
}

func (in *AnalyzeCategoryInput) Validate() error {
	if in.Category == "" {
		return InvalidArgument("category", "required")
	}
	return nil
}

type AttributeValueCount struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

type CategoryProfile struct {
	Category      string                `json:"category"`
	Total         int                   `json:"total"`
	FirstAt       time.Time             `json:"first_at"`
	LastAt        time.Time             `json:"last_at"`
	Activity      []TimeBucket          `json:"activity"`
	TopAttributes []AttributeValueCount `json:"top_attributes"`
	TopLocations  []LocationCount       `json:"top_locations"`
}

func (r *Registry) analyzeCategory(ctx context.Context, rc *reqctx.Context, in *AnalyzeCategoryInput) (CategoryProfile, error) {
	profile, err := r.categoryProfile(ctx, rc, in.Category)
	if err != nil {
		return CategoryProfile{}, err
	}
	if profile.Total == 0 {
		return CategoryProfile{}, Errorf(KindInsufficientData, "no records in category %q", in.Category)
	}
	return profile, nil
}

func (r *Registry) categoryProfile(ctx context.Context, rc *reqctx.Context, category string) (CategoryProfile, error) {
	recs, total, err := rc.Store().Find(ctx, store.Query{Category: category, Limit: maxRecordScan})
	if err != nil {
		return CategoryProfile{}, err
	}

	profile := CategoryProfile{Category: category, Total: total}
	if len(recs) == 0 {
		return profile, nil
	}

	profile.Activity = buildSeries(recs, "month")

	attrs := map[string]map[string]int{}
	locations := map[string]int{}
	for i, rec := range recs {
		if i == 0 || rec.OccurredAt.Before(profile.FirstAt) {
			profile.FirstAt = rec.OccurredAt
		}
		if i == 0 || rec.OccurredAt.After(profile.LastAt) {
			profile.LastAt = rec.OccurredAt
		}
		for k, v := range rec.Attributes {
			if attrs[k] == nil {
				attrs[k] = map[string]int{}
			}
			attrs[k][v]++
		}
		if rec.LocationText != "" {
			locations[rec.LocationText]++
		}
	}

	for _, k := range sortedKeys(attrs) {
		for _, v := range sortedKeys(attrs[k]) {
			profile.TopAttributes = append(profile.TopAttributes, AttributeValueCount{Key: k, Value: v, Count: attrs[k][v]})
		}
	}
	sort.SliceStable(profile.TopAttributes, func(i, j int) bool {
		return profile.TopAttributes[i].Count > profile.TopAttributes[j].Count
	})
	if len(profile.TopAttributes) > 10 {
		profile.TopAttributes = profile.TopAttributes[:10]
	}

	for _, loc := range sortedKeys(locations) {
		profile.TopLocations = append(profile.TopLocations, LocationCount{Location: loc, Count: locations[loc]})
	}
	sort.SliceStable(profile.TopLocations, func(i, j int) bool {
		return profile.TopLocations[i].Count > profile.TopLocations[j].Count
	})
	if len(profile.TopLocations) > 5 {
		profile.TopLocations = profile.TopLocations[:5]
	}
	return profile, nil
}

// --- compare_categories ---

type CompareCategoriesInput struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

func (in *CompareCategoriesInput) Validate() error {
	if in.Left == "" {
		return InvalidArgument("left", "required")
	}
	if in.Right == "" {
		return InvalidArgument("right", "required")
	}
	if in.Left == in.Right {
		return InvalidArgument("right", "must differ from left")
	}
	return nil
}

type ComparisonResult struct {
	Left            CategoryProfile `json:"left"`
	Right           CategoryProfile `json:"right"`
	VolumeRatio     float64         `json:"volume_ratio"`
	SharedAttribute []string        `json:"shared_attribute_keys"`
}

// compareCategories profiles both sides. A side with no records makes
// the comparison meaningless, so it fails rather than reporting ratios
// against zero.
func (r *Registry) compareCategories(ctx context.Context, rc *reqctx.Context, in *CompareCategoriesInput) (ComparisonResult, error) {
	left, err := r.categoryProfile(ctx, rc, in.Left)
	if err != nil {
		return ComparisonResult{}, err
	}
	right, err := r.categoryProfile(ctx, rc, in.Right)
	if err != nil {
		return ComparisonResult{}, err
	}
	if left.Total == 0 || right.Total == 0 {
		return ComparisonResult{}, Errorf(KindComparisonIncomplete,
			"comparison needs records on both sides: %s has %d, %s has %d",
			in.Left, left.Total, in.Right, right.Total)
	}

	out := ComparisonResult{
		Left:        left,
		Right:       right,
		VolumeRatio: float64(left.Total) / float64(right.Total),
	}

	rightKeys := map[string]bool{}
	for _, a := range right.TopAttributes {
		rightKeys[a.Key] = true
	}
	seen := map[string]bool{}
	for _, a := range left.TopAttributes {
		if rightKeys[a.Key] && !seen[a.Key] {
			seen[a.Key] = true
			out.SharedAttribute = append(out.SharedAttribute, a.Key)
		}
	}
	sort.Strings(out.SharedAttribute)
	return out, nil
}

// --- correlate_attributes ---

type CorrelateAttributesInput struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

func (in *CorrelateAttributesInput) Validate() error {
	return normalizeLimit(&in.Limit)
}

type Correlation struct {
	A        string  `json:"a"`
	B        string  `json:"b"`
	Count    int     `json:"count"`
	Strength float64 `json:"strength"`
}

type CorrelationResult struct {
	Correlations []Correlation `json:"correlations"`
	RecordsSeen  int           `json:"records_seen"`
}

// correlateAttributes finds attribute values that show up together.
// Strength is cosine-style: count(a and b) / sqrt(count(a) * count(b)).
// Pairs co-occurring fewer times than the configured floor are noise and
// are dropped.
func (r *Registry) correlateAttributes(ctx context.Context, rc *reqctx.Context, in *CorrelateAttributesInput) (CorrelationResult, error) {
	recs, _, err := rc.Store().Find(ctx, store.Query{Category: in.Category, Limit: maxRecordScan})
	if err != nil {
		return CorrelationResult{}, err
	}

	single := map[string]int{}
	pair := map[[2]string]int{}
	for _, rec := range recs {
		tokens := make([]string, 0, len(rec.Attributes))
		for _, k := range sortedKeys(rec.Attributes) {
			tokens = append(tokens, k+"="+rec.Attributes[k])
		}
		for i, a := range tokens {
			single[a]++
			for _, b := range tokens[i+1:] {
				pair[[2]string{a, b}]++
			}
		}
	}

	out := CorrelationResult{RecordsSeen: len(recs)}
	for key, count := range pair {
		if count < r.weights.CooccurrenceFloor {
			continue
		}
		strength := float64(count) / math.Sqrt(float64(single[key[0]])*float64(single[key[1]]))
		out.Correlations = append(out.Correlations, Correlation{
			A:        key[0],
			B:        key[1],
			Count:    count,
			Strength: strength,
		})
	}
	sort.Slice(out.Correlations, func(i, j int) bool {
		a, b := out.Correlations[i], out.Correlations[j]
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.A != b.A {
			return a.A < b.A
		}
		return a.B < b.B
	})
	if len(out.Correlations) > in.Limit {
		out.Correlations = out.Correlations[:in.Limit]
	}
	return out, nil
}
