// Package store provides tenant-isolated storage for experience reports.
//
// A single Service owns the backing engine and the optional vector index.
// Callers never touch either directly: Service.Open returns a Handle bound
// to exactly one tenant, and every query a Handle runs is scoped to that
// tenant before it reaches the engine. Constructing a Handle for tenant A
// gives no path to tenant B's records.
//
// Backend selection is an explicit constructor argument. Nothing in this
// package reads environment state at call time, so tests can assemble a
// Service per test with whatever engine and index they need.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Common errors.
var (
	// ErrNotFound indicates the record does not exist within the tenant scope.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTenant indicates an empty or malformed tenant ID.
	ErrInvalidTenant = errors.New("invalid tenant ID")

	// ErrInvalidQuery indicates a structurally invalid query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrVectorsUnavailable indicates no vector index is configured.
	ErrVectorsUnavailable = errors.New("vector index unavailable")

	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Connection is a declared link between two reports.
type Connection struct {
	TargetID string  `json:"target_id" yaml:"target_id"`
	Kind     string  `json:"kind" yaml:"kind"`
	Weight   float64 `json:"weight" yaml:"weight"`
}

// Record is one submitted experience report.
type Record struct {
	ID           string            `json:"id" yaml:"id"`
	IdentityID   string            `json:"identity_id" yaml:"identity_id"`
	Category     string            `json:"category" yaml:"category"`
	Title        string            `json:"title" yaml:"title"`
	Narrative    string            `json:"narrative" yaml:"narrative"`
	OccurredAt   time.Time         `json:"occurred_at" yaml:"occurred_at"`
	SubmittedAt  time.Time         `json:"submitted_at" yaml:"submitted_at"`
	Location     *GeoPoint         `json:"location,omitempty" yaml:"location,omitempty"`
	LocationText string            `json:"location_text,omitempty" yaml:"location_text,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Connections  []Connection      `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Scored pairs a record with a query-dependent score: match rank for
// full-text, distance in kilometers for geo, similarity for vectors.
type Scored struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// SortKey selects the ordering for filtered reads.
type SortKey string

const (
	SortOccurredAt  SortKey = "occurred_at"
	SortSubmittedAt SortKey = "submitted_at"
)

// AttributeMode selects how multiple attribute filters combine.
type AttributeMode string

const (
	MatchAll AttributeMode = "and"
	MatchAny AttributeMode = "or"
)

// Query describes a filtered read. Zero-value fields are unbounded.
type Query struct {
	Category      string
	From          time.Time
	To            time.Time
	LocationText  string
	Attributes    map[string]string
	AttributeMode AttributeMode
	Tags          []string
	SortBy        SortKey
	Descending    bool
	Limit         int
	Offset        int
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Engine is the tenant-partitioned backing storage. Implementations must
// never return records outside the requested tenant.
type Engine interface {
	Put(ctx context.Context, tenantID string, rec Record) error
	Get(ctx context.Context, tenantID, id string) (Record, error)
	Find(ctx context.Context, tenantID string, q Query) ([]Record, int, error)
	FullText(ctx context.Context, tenantID, text string, limit int) ([]Scored, int, error)
	Near(ctx context.Context, tenantID string, lat, lon, radiusKm float64, limit int) ([]Scored, int, error)
	Within(ctx context.Context, tenantID string, b Bounds, limit int) ([]Scored, int, error)
}

// Hit is a vector index match.
type Hit struct {
	ID    string
	Score float64
}

// VectorIndex answers meaning-based queries, partitioned by tenant.
type VectorIndex interface {
	Index(ctx context.Context, tenantID, id, text string) error
	Query(ctx context.Context, tenantID, text string, k int) ([]Hit, error)
}

// Service owns the engine and vector index and hands out tenant handles.
type Service struct {
	engine  Engine
	vectors VectorIndex // nil disables semantic search
	logger  *zap.Logger
}

// NewService creates a store service. vectors may be nil when no vector
// backend is configured; semantic queries then fail with
// ErrVectorsUnavailable.
func NewService(engine Engine, vectors VectorIndex, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:  engine,
		vectors: vectors,
		logger:  logger,
	}
}

// Open returns a handle bound to one tenant. The handle is safe for
// concurrent reads within a request.
func (s *Service) Open(tenantID string) (*Handle, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenant
	}
	return &Handle{
		tenant:  tenantID,
		engine:  s.engine,
		vectors: s.vectors,
	}, nil
}

// Add ingests a record for a tenant and indexes it for semantic search.
// Vector indexing failures are logged, not fatal: the record stays readable
// through the filtered paths.
func (s *Service) Add(ctx context.Context, tenantID string, rec Record) error {
	if tenantID == "" {
		return ErrInvalidTenant
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: record ID required", ErrInvalidQuery)
	}

	if err := s.engine.Put(ctx, tenantID, rec); err != nil {
		return fmt.Errorf("storing record: %w", err)
	}

	if s.vectors != nil {
		text := rec.Title + "\n" + rec.Narrative
		if err := s.vectors.Index(ctx, tenantID, rec.ID, text); err != nil {
			s.logger.Warn("vector indexing failed",
				zap.String("tenant", tenantID),
				zap.String("record", rec.ID),
				zap.Error(err))
		}
	}

	return nil
}

// Handle is a tenant-scoped view of the store. It is read-only and
// immutable after creation.
type Handle struct {
	tenant  string
	engine  Engine
	vectors VectorIndex
}

// Tenant returns the tenant this handle is bound to.
func (h *Handle) Tenant() string { return h.tenant }

// Get fetches one record by ID within the tenant scope.
func (h *Handle) Get(ctx context.Context, id string) (Record, error) {
	return h.engine.Get(ctx, h.tenant, id)
}

// Find runs a filtered read and returns the page plus the total match count.
func (h *Handle) Find(ctx context.Context, q Query) ([]Record, int, error) {
	return h.engine.Find(ctx, h.tenant, q)
}

// FullText runs a ranked keyword search.
func (h *Handle) FullText(ctx context.Context, text string, limit int) ([]Scored, int, error) {
	return h.engine.FullText(ctx, h.tenant, text, limit)
}

// Near returns records within radiusKm of a point, nearest first. Scores
// are distances in kilometers.
func (h *Handle) Near(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]Scored, int, error) {
	return h.engine.Near(ctx, h.tenant, lat, lon, radiusKm, limit)
}

// Within returns records inside a bounding box.
func (h *Handle) Within(ctx context.Context, b Bounds, limit int) ([]Scored, int, error) {
	return h.engine.Within(ctx, h.tenant, b, limit)
}

// Similar resolves a free-text query against the vector index and returns
// the matching records with similarity scores.
func (h *Handle) Similar(ctx context.Context, text string, k int) ([]Scored, error) {
	if h.vectors == nil {
		return nil, ErrVectorsUnavailable
	}

	hits, err := h.vectors.Query(ctx, h.tenant, text, k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	results := make([]Scored, 0, len(hits))
	for _, hit := range hits {
		rec, err := h.engine.Get(ctx, h.tenant, hit.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Index lag: the vector entry outlived the record.
				continue
			}
			return nil, err
		}
		results = append(results, Scored{Record: rec, Score: hit.Score})
	}
	return results, nil
}
