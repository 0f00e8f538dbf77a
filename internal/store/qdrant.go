package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures the qdrant vector backend.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	VectorSize uint64
}

// QdrantIndex is the external vector backend, one collection per tenant.
// Record IDs are mapped to deterministic UUIDs for qdrant point IDs; the
// original ID travels in the payload.
type QdrantIndex struct {
	client   *qdrant.Client
	embedder Embedder
	size     uint64

	mu       sync.Mutex
	prepared map[string]bool
}

// NewQdrantIndex connects to qdrant and verifies the connection.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig, embedder Embedder) (*QdrantIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("qdrant backend requires an embedder")
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant vector size required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: qdrant health check: %v", ErrUnavailable, err)
	}

	return &QdrantIndex{
		client:   client,
		embedder: embedder,
		size:     cfg.VectorSize,
		prepared: make(map[string]bool),
	}, nil
}

// Close releases the underlying connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// Index embeds the text and upserts it into the tenant's collection.
func (q *QdrantIndex) Index(ctx context.Context, tenantID, id, text string) error {
	if tenantID == "" {
		return ErrInvalidTenant
	}
	if text == "" {
		return ErrEmptyText
	}

	name := collectionName(tenantID)
	if err := q.ensureCollection(ctx, name); err != nil {
		return err
	}

	vec, err := q.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", id, err)
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointUUID(id)),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(map[string]any{"record_id": id}),
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: upserting point: %v", ErrUnavailable, err)
	}
	return nil
}

// Query embeds the text and returns the top-k matches for the tenant.
func (q *QdrantIndex) Query(ctx context.Context, tenantID, text string, k int) ([]Hit, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenant
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	name := collectionName(tenantID)
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: checking collection: %v", ErrUnavailable, err)
	}
	if !exists {
		return nil, nil
	}

	vec, err := q.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	limit := uint64(k)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection: %v", ErrUnavailable, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		id := p.Payload["record_id"].GetStringValue()
		if id == "" {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: float64(p.Score)})
	}
	return hits, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.prepared[name] {
		return nil
	}

	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", ErrUnavailable, err)
	}
	if !exists {
		err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     q.size,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("%w: creating collection %s: %v", ErrUnavailable, name, err)
		}
	}

	q.prepared[name] = true
	return nil
}

func collectionName(tenantID string) string {
	return "tenant_" + tenantID + "_reports"
}

// pointUUID derives a stable UUID from a record ID.
func pointUUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}
