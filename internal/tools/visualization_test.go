package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeseriesData(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	out, err := execute(t, reg, rc, NameTimeseriesData,
		`{"category": "ufo-uap", "interval": "month"}`)
	require.NoError(t, err)
	res := out.(TimeseriesResult)

	require.Len(t, res.Buckets, 4)
	counts := make([]int, 0, 4)
	for i, b := range res.Buckets {
		counts = append(counts, b.Count)
		if i > 0 {
			assert.True(t, res.Buckets[i-1].Start.Before(b.Start), "buckets must be chronological")
		}
	}
	assert.Equal(t, []int{1, 1, 2, 1}, counts)
	assert.Equal(t, 5, res.Total)
}

func TestTimeseriesData_FillsGaps(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	// r1 (January) and r5 (April) are months apart at a weekly grain;
	// the series must carry the empty weeks in between.
	out, err := execute(t, reg, rc, NameTimeseriesData,
		`{"category": "ufo-uap", "interval": "week"}`)
	require.NoError(t, err)
	res := out.(TimeseriesResult)

	require.Greater(t, len(res.Buckets), 10)
	empty := 0
	for _, b := range res.Buckets {
		if b.Count == 0 {
			empty++
		}
	}
	assert.Greater(t, empty, 0, "gap weeks appear with zero counts")
}

func TestTimeseriesData_BadInterval(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	_, err := execute(t, reg, rc, NameTimeseriesData, `{"interval": "fortnight"}`)
	assert.Equal(t, KindInvalidArguments, KindOf(err))
}

func TestMapData(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	out, err := execute(t, reg, rc, NameMapData, `{"category": "ufo-uap"}`)
	require.NoError(t, err)
	res := out.(MapDataResult)

	assert.Equal(t, 4, res.Located)
	assert.Equal(t, 1, res.Skipped, "records without coordinates stay off the map")
	assert.Len(t, res.Markers, 4)

	// The three San Francisco reports share one 1-degree cell, which
	// ranks first.
	require.NotEmpty(t, res.Density)
	assert.Equal(t, 3, res.Density[0].Count)
	assert.Equal(t, 37.0, res.Density[0].Lat)
	assert.Equal(t, -123.0, res.Density[0].Lon)
}

func TestTimelineData(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	out, err := execute(t, reg, rc, NameTimelineData, `{}`)
	require.NoError(t, err)
	res := out.(TimelineResult)

	require.Len(t, res.Events, 8)
	for i := 1; i < len(res.Events); i++ {
		prev, cur := res.Events[i-1], res.Events[i]
		ok := prev.OccurredAt.Before(cur.OccurredAt) ||
			(prev.OccurredAt.Equal(cur.OccurredAt) && prev.ID < cur.ID)
		assert.True(t, ok, "timeline must order by date then ID")
	}
}

func TestGraphData(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	out, err := execute(t, reg, rc, NameGraphData, `{"category": "ufo-uap"}`)
	require.NoError(t, err)
	res := out.(GraphResult)

	assert.Len(t, res.Nodes, 5)
	// r1 declares two connections but only the one inside the node set
	// survives.
	require.Len(t, res.Edges, 1)
	assert.Equal(t, "r1", res.Edges[0].Source)
	assert.Equal(t, "r2", res.Edges[0].Target)
	assert.Equal(t, 0.8, res.Edges[0].Weight)
}

func TestDashboardData(t *testing.T) {
	reg, rc, _ := newTestContext(t)

	out, err := execute(t, reg, rc, NameDashboardData, `{"interval": "month"}`)
	require.NoError(t, err)
	res := out.(DashboardResult)

	assert.Equal(t, 8, res.TotalRecords)
	require.Len(t, res.Categories, 2)
	assert.Equal(t, CategoryCount{Category: "ufo-uap", Count: 5}, res.Categories[0])
	assert.Equal(t, CategoryCount{Category: "dreams", Count: 3}, res.Categories[1])

	require.NotEmpty(t, res.TopLocations)
	assert.Equal(t, LocationCount{Location: "San Francisco, CA", Count: 3}, res.TopLocations[0])

	require.Len(t, res.Recent, 5)
	assert.Equal(t, "r5", res.Recent[0].ID, "most recently submitted leads")

	require.NotEmpty(t, res.Activity)
	assert.Equal(t, time.January, res.Activity[0].Start.Month())
}
