package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomalyhq/corpusd/internal/tools"
)

func TestAssemble(t *testing.T) {
	res := &Result{
		Narrative: "Here is what I found.",
		Invocations: []Invocation{
			{Tool: tools.NameAdvancedSearch, Result: tools.SearchResult{Total: 2}},
			{Tool: tools.NameSemanticSearch, Err: tools.Errorf(tools.KindEmbeddingUnavailable, "no index")},
			{Tool: tools.NameTimeseriesData, Result: tools.TimeseriesResult{Total: 2}},
		},
		Failures: []Failure{
			{Tool: tools.NameSemanticSearch, Kind: tools.KindEmbeddingUnavailable, Message: "no index"},
		},
		CallsUsed: 3,
		Elapsed:   1500 * time.Millisecond,
	}

	env := Assemble(res)
	assert.Equal(t, "Here is what I found.", env.Narrative)
	assert.Equal(t, 3, env.CallsUsed)
	assert.Equal(t, int64(1500), env.ElapsedMs)

	// Failed invocations contribute no section but their failure stays.
	require.Len(t, env.Sections, 2)
	assert.Equal(t, tools.NameAdvancedSearch, env.Sections[0].Tool)
	assert.Equal(t, tools.NameTimeseriesData, env.Sections[1].Tool)
	require.Len(t, env.Failures, 1)
	assert.Equal(t, tools.KindEmbeddingUnavailable, env.Failures[0].Kind)
}

func TestAssemble_MergesResults(t *testing.T) {
	search := &Result{
		Narrative: "Two matching reports.",
		Invocations: []Invocation{
			{Tool: tools.NameAdvancedSearch, Result: tools.SearchResult{Total: 2}},
		},
		CallsUsed: 1,
		Elapsed:   400 * time.Millisecond,
	}
	viz := &Result{
		Narrative: "Charted them by month.",
		Invocations: []Invocation{
			{Tool: tools.NameTimeseriesData, Result: tools.TimeseriesResult{Total: 2}},
			{Tool: tools.NameMapData, Err: tools.Errorf(tools.KindInvalidGeometry, "bad box")},
		},
		Failures: []Failure{
			{Tool: tools.NameMapData, Kind: tools.KindInvalidGeometry, Message: "bad box"},
		},
		CallsUsed: 2,
		Elapsed:   600 * time.Millisecond,
	}

	env := Assemble(search, nil, viz)
	assert.Equal(t, "Two matching reports.\n\nCharted them by month.", env.Narrative)
	assert.Equal(t, 3, env.CallsUsed)
	assert.Equal(t, int64(1000), env.ElapsedMs)

	require.Len(t, env.Sections, 2)
	assert.Equal(t, tools.NameAdvancedSearch, env.Sections[0].Tool)
	assert.Equal(t, tools.NameTimeseriesData, env.Sections[1].Tool)
	require.Len(t, env.Failures, 1)
	assert.Equal(t, tools.KindInvalidGeometry, env.Failures[0].Kind)
}

func TestAssemble_FallbackNarrative(t *testing.T) {
	tests := []struct {
		name string
		res  *Result
		want string
	}{
		{
			name: "no tools run",
			res:  &Result{},
			want: "No tools were run for this request.",
		},
		{
			name: "all failed",
			res: &Result{
				Invocations: []Invocation{{Tool: tools.NameGeoSearch, Err: tools.Errorf(tools.KindInvalidGeometry, "bad box")}},
				Failures:    []Failure{{Tool: tools.NameGeoSearch, Kind: tools.KindInvalidGeometry}},
			},
			want: "No results: all 1 tool call(s) failed.",
		},
		{
			name: "partial",
			res: &Result{
				Invocations: []Invocation{
					{Tool: tools.NameFulltextSearch, Result: tools.ScoredResult{}},
					{Tool: tools.NameGeoSearch, Err: tools.Errorf(tools.KindInvalidGeometry, "bad box")},
				},
				Failures: []Failure{{Tool: tools.NameGeoSearch, Kind: tools.KindInvalidGeometry}},
			},
			want: "Partial results from 1 tool(s); 1 call(s) failed.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assemble(tt.res).Narrative)
		})
	}
}

func TestPublisher_NilSafe(t *testing.T) {
	// A deployment without a broker passes a nil publisher end to end.
	var p *Publisher
	p.OrchestrationCompleted(nil, nil, tools.GroupSearch, &Result{})

	p = NewPublisher(nil, "", nil)
	p.OrchestrationCompleted(nil, nil, tools.GroupSearch, &Result{})
}
