package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/config"
	"github.com/anomalyhq/corpusd/internal/orchestrator"
	"github.com/anomalyhq/corpusd/internal/store"
	"github.com/anomalyhq/corpusd/internal/tools"
)

// doneReasoner answers every request with a final narrative and no tool
// calls.
type doneReasoner struct{}

func (doneReasoner) Decide(ctx context.Context, req orchestrator.DecideRequest) (orchestrator.DecideResponse, error) {
	return orchestrator.DecideResponse{Done: true, Narrative: "handled: " + req.Input}, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	svc := store.NewService(store.NewMemoryEngine(), nil, zap.NewNop())
	require.NoError(t, svc.Add(context.Background(), "tenant-a", store.Record{
		ID: "r1", IdentityID: "alice", Category: "ufo-uap", Title: "Triangle",
		Narrative:   "black triangle",
		OccurredAt:  time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		SubmittedAt: time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC),
	}))

	reg, err := tools.NewRegistry(tools.DefaultWeights(), zap.NewNop())
	require.NoError(t, err)
	orch, err := orchestrator.New(reg, doneReasoner{}, nil, orchestrator.Options{}, zap.NewNop())
	require.NoError(t, err)
	router := orchestrator.NewRouter(orch, zap.NewNop())

	return NewServer(config.ServerConfig{}, svc, orch, router, zap.NewNop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) tools.Kind {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	return er.Kind
}

func TestHealth(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"corpusd"`)
}

func TestTools(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodGet, "/v1/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res toolsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, tools.GroupUnified, res.Group)
	assert.Len(t, res.Tools, 20)

	rec = do(t, s, http.MethodGet, "/v1/tools?group=search", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Tools, 5)

	rec = do(t, s, http.MethodGet, "/v1/tools?group=psychic", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, tools.KindInvalidArguments, errorKind(t, rec))
}

func TestOrchestrate(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/v1/orchestrate",
		`{"tenant": "tenant-a", "identity": "alice", "input": "what is in my corpus"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env orchestrator.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "handled: what is in my corpus", env.Narrative)
	assert.Zero(t, env.CallsUsed)
}

func TestOrchestrate_MissingContext(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/v1/orchestrate",
		`{"identity": "alice", "input": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, tools.KindMissingContextField, errorKind(t, rec))

	rec = do(t, s, http.MethodPost, "/v1/orchestrate",
		`{"tenant": "tenant-a", "input": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, tools.KindMissingContextField, errorKind(t, rec))

	rec = do(t, s, http.MethodPost, "/v1/orchestrate",
		`{"tenant": "tenant-a", "identity": "alice", "input": "x", "group": "psychic"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpecialist(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/v1/specialists/search",
		`{"tenant": "tenant-a", "identity": "alice", "input": "find triangles"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/specialists/astrology",
		`{"tenant": "tenant-a", "identity": "alice", "input": "find triangles"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, tools.KindNoSpecialistMatch, errorKind(t, rec))
}

func TestRoute(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/v1/route",
		`{"tenant": "tenant-a", "identity": "alice", "input": "find reports and chart them over time"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out orchestrator.RoutedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Matched, "search")
	assert.Contains(t, out.Matched, "visualization")
	require.NotNil(t, out.Envelope, "claiming specialists merge into one envelope")
	assert.NotEmpty(t, out.Envelope.Narrative)

	rec = do(t, s, http.MethodPost, "/v1/route",
		`{"tenant": "tenant-a", "identity": "alice", "input": "hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServer_AppliesTimeouts(t *testing.T) {
	cfg := config.ServerConfig{
		ReadTimeout:  config.Duration(7 * time.Second),
		WriteTimeout: config.Duration(11 * time.Second),
	}
	s := NewServer(cfg, nil, nil, nil, zap.NewNop())

	assert.Equal(t, 7*time.Second, s.Echo().Server.ReadTimeout)
	assert.Equal(t, 11*time.Second, s.Echo().Server.WriteTimeout)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind tools.Kind
		want int
	}{
		{tools.KindInvalidArguments, http.StatusBadRequest},
		{tools.KindInvalidGeometry, http.StatusBadRequest},
		{tools.KindUnknownTool, http.StatusNotFound},
		{tools.KindSeedNotFound, http.StatusNotFound},
		{tools.KindInsufficientData, http.StatusUnprocessableEntity},
		{tools.KindComparisonIncomplete, http.StatusUnprocessableEntity},
		{tools.KindBudgetExceeded, http.StatusTooManyRequests},
		{tools.KindTimeout, http.StatusGatewayTimeout},
		{tools.KindStoreUnavailable, http.StatusServiceUnavailable},
		{tools.KindEmbeddingUnavailable, http.StatusServiceUnavailable},
		{tools.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.kind), string(tt.kind))
	}
}
