package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// fixtureRecords is the shared corpus for tool tests: five UFO reports
// (three of them a triangle cluster around San Francisco) and three
// dream reports, spread over four months and three identities.
func fixtureRecords() []store.Record {
	return []store.Record{
		{
			ID: "r1", IdentityID: "alice", Category: "ufo-uap",
			Title: "Triangle over Twin Peaks", Narrative: "silent black triangle with orange lights drifting slowly",
			OccurredAt: day(2024, time.January, 10), SubmittedAt: day(2024, time.January, 11),
			Location: &store.GeoPoint{Lat: 37.77, Lon: -122.42}, LocationText: "San Francisco, CA",
			Attributes:  map[string]string{"shape": "triangle", "color": "orange"},
			Tags:        []string{"night"},
			Connections: []store.Connection{{TargetID: "r2", Kind: "similar", Weight: 0.8}, {TargetID: "zz-missing", Kind: "similar", Weight: 0.5}},
		},
		{
			ID: "r2", IdentityID: "bob", Category: "ufo-uap",
			Title: "Triangle formation", Narrative: "three orange lights in a triangle formation over the bay",
			OccurredAt: day(2024, time.February, 15), SubmittedAt: day(2024, time.February, 16),
			Location: &store.GeoPoint{Lat: 37.75, Lon: -122.41}, LocationText: "San Francisco, CA",
			Attributes: map[string]string{"shape": "triangle", "color": "orange"},
		},
		{
			ID: "r3", IdentityID: "alice", Category: "ufo-uap",
			Title: "Another triangle", Narrative: "the same silent triangle again, orange glow at each corner",
			OccurredAt: day(2024, time.March, 20), SubmittedAt: day(2024, time.March, 21),
			Location: &store.GeoPoint{Lat: 37.78, Lon: -122.40}, LocationText: "San Francisco, CA",
			Attributes: map[string]string{"shape": "triangle", "color": "orange"},
			Tags:       []string{"night"},
		},
		{
			ID: "r4", IdentityID: "carol", Category: "ufo-uap",
			Title: "Silver disc", Narrative: "a silver disc hovering near the hills at dusk",
			OccurredAt: day(2024, time.March, 25), SubmittedAt: day(2024, time.March, 26),
			Location: &store.GeoPoint{Lat: 34.05, Lon: -118.24}, LocationText: "Los Angeles, CA",
			Attributes: map[string]string{"shape": "disc", "color": "silver"},
		},
		{
			ID: "r5", IdentityID: "alice", Category: "ufo-uap",
			Title: "Disc without a camera", Narrative: "silver disc seen from a moving train, no photo",
			OccurredAt: day(2024, time.April, 5), SubmittedAt: day(2024, time.April, 6),
			Attributes: map[string]string{"shape": "disc", "color": "silver"},
		},
		{
			ID: "r6", IdentityID: "alice", Category: "dreams",
			Title: "Lucid flight", Narrative: "flying over a glass city, fully lucid",
			OccurredAt: day(2024, time.February, 20), SubmittedAt: day(2024, time.February, 21),
			LocationText: "Portland, OR",
			Attributes:   map[string]string{"lucidity": "high"},
		},
		{
			ID: "r7", IdentityID: "bob", Category: "dreams",
			Title: "Recurring hallway", Narrative: "the same endless hallway, doors that will not open",
			OccurredAt: day(2024, time.March, 1), SubmittedAt: day(2024, time.March, 2),
			Attributes: map[string]string{"lucidity": "high"},
		},
		{
			ID: "r8", IdentityID: "carol", Category: "dreams",
			Title: "Storm at sea", Narrative: "waves the size of buildings, no fear at all",
			OccurredAt: day(2024, time.April, 2), SubmittedAt: day(2024, time.April, 3),
			Attributes: map[string]string{"lucidity": "low"},
		},
	}
}

// countingEngine wraps MemoryEngine and counts read operations, so tests
// can assert a tool never touched the store.
type countingEngine struct {
	*store.MemoryEngine
	reads int
}

func (c *countingEngine) Get(ctx context.Context, tenantID, id string) (store.Record, error) {
	c.reads++
	return c.MemoryEngine.Get(ctx, tenantID, id)
}

func (c *countingEngine) Find(ctx context.Context, tenantID string, q store.Query) ([]store.Record, int, error) {
	c.reads++
	return c.MemoryEngine.Find(ctx, tenantID, q)
}

func (c *countingEngine) FullText(ctx context.Context, tenantID, text string, limit int) ([]store.Scored, int, error) {
	c.reads++
	return c.MemoryEngine.FullText(ctx, tenantID, text, limit)
}

func (c *countingEngine) Near(ctx context.Context, tenantID string, lat, lon, radiusKm float64, limit int) ([]store.Scored, int, error) {
	c.reads++
	return c.MemoryEngine.Near(ctx, tenantID, lat, lon, radiusKm, limit)
}

func (c *countingEngine) Within(ctx context.Context, tenantID string, b store.Bounds, limit int) ([]store.Scored, int, error) {
	c.reads++
	return c.MemoryEngine.Within(ctx, tenantID, b, limit)
}

// newTestContext builds a registry plus a request context over the
// fixture corpus. The returned engine exposes the read counter.
func newTestContext(t *testing.T) (*Registry, *reqctx.Context, *countingEngine) {
	t.Helper()

	engine := &countingEngine{MemoryEngine: store.NewMemoryEngine()}
	svc := store.NewService(engine, nil, zap.NewNop())
	for _, rec := range fixtureRecords() {
		require.NoError(t, svc.Add(context.Background(), "tenant-a", rec))
	}

	handle, err := svc.Open("tenant-a")
	require.NoError(t, err)
	rc, err := reqctx.New(handle, "alice")
	require.NoError(t, err)

	reg, err := NewRegistry(DefaultWeights(), zap.NewNop())
	require.NoError(t, err)
	engine.reads = 0
	return reg, rc, engine
}

func execute(t *testing.T, reg *Registry, rc *reqctx.Context, name Name, args string) (any, error) {
	t.Helper()
	return reg.Execute(context.Background(), rc, name, json.RawMessage(args))
}

func TestRegistry_UnknownTool(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	_, err := execute(t, reg, rc, Name("read_minds"), `{}`)
	assert.Equal(t, KindUnknownTool, KindOf(err))
}

func TestRegistry_NilContext(t *testing.T) {
	reg, _, _ := newTestContext(t)

	_, err := reg.Execute(context.Background(), nil, NameFulltextSearch, json.RawMessage(`{"query":"x"}`))
	assert.Equal(t, KindInvalidContext, KindOf(err))
}

func TestRegistry_MalformedArguments(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	_, err := execute(t, reg, rc, NameFulltextSearch, `{"query": 7}`)
	assert.Equal(t, KindInvalidArguments, KindOf(err))
}

func TestRegistry_LimitBounds(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	tests := []struct {
		name string
		args string
		want Kind
	}{
		{"zero takes default", `{}`, ""},
		{"max allowed", `{"limit": 100}`, ""},
		{"above max", `{"limit": 101}`, KindInvalidArguments},
		{"negative", `{"limit": -1}`, KindInvalidArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, reg, rc, NameAdvancedSearch, tt.args)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestNames_AllValid(t *testing.T) {
	names := Names()
	assert.Len(t, names, 20)
	for _, n := range names {
		assert.True(t, n.Valid(), "catalog name %s must validate", n)
	}
	assert.False(t, Name("advanced-search").Valid())
}

func TestGroups_Membership(t *testing.T) {
	assert.Equal(t, Names(), Members(GroupUnified))

	search := Members(GroupSearch)
	assert.Len(t, search, 5)

	// detect_patterns serves both the insight and relationship groups.
	assert.Contains(t, Members(GroupInsight), NameDetectPatterns)
	assert.Contains(t, Members(GroupRelationship), NameDetectPatterns)

	// The insight group carries the analytics tools so comparison
	// questions can be answered there.
	for _, n := range Members(GroupAnalytics) {
		assert.Contains(t, Members(GroupInsight), n)
	}

	assert.Nil(t, Members(GroupName("nope")))
	assert.False(t, GroupName("nope").Valid())
}

func TestDefinitionsFor_CompleteSchemas(t *testing.T) {
	for _, g := range Groups() {
		defs := DefinitionsFor(g)
		require.Len(t, defs, len(Members(g)))
		for _, def := range defs {
			assert.NotEmpty(t, def.Description, "%s needs a description", def.Name)
			assert.Equal(t, "object", def.Parameters["type"], "%s schema must be an object", def.Name)
		}
	}
}
