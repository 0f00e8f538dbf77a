package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemIndex is the embedded vector backend. It keeps one chromem
// collection per tenant, so a tenant's vectors are never queried alongside
// another's.
type ChromemIndex struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewChromemIndex creates the index. An empty path keeps everything in
// memory; otherwise vectors persist under path.
func NewChromemIndex(path string, embedder Embedder) (*ChromemIndex, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("opening chromem at %s: %w", path, err)
		}
	}

	return &ChromemIndex{
		db:          db,
		embed:       embeddingFunc(embedder),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// Index adds or replaces one document in the tenant's collection.
func (c *ChromemIndex) Index(ctx context.Context, tenantID, id, text string) error {
	if tenantID == "" {
		return ErrInvalidTenant
	}
	if text == "" {
		return ErrEmptyText
	}

	col, err := c.collection(tenantID)
	if err != nil {
		return err
	}

	if err := col.AddDocument(ctx, chromem.Document{ID: id, Content: text}); err != nil {
		return fmt.Errorf("indexing document %s: %w", id, err)
	}
	return nil
}

// Query returns up to k matches for the text within the tenant scope.
func (c *ChromemIndex) Query(ctx context.Context, tenantID, text string, k int) ([]Hit, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenant
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	col, err := c.collection(tenantID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size.
	if count := col.Count(); k > count {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	results, err := col.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{ID: r.ID, Score: float64(r.Similarity)}
	}
	return hits, nil
}

func (c *ChromemIndex) collection(tenantID string) (*chromem.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if col, ok := c.collections[tenantID]; ok {
		return col, nil
	}

	col, err := c.db.GetOrCreateCollection("tenant_"+tenantID, nil, c.embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection for tenant %s: %w", tenantID, err)
	}
	c.collections[tenantID] = col
	return col, nil
}

// embeddingFunc adapts an Embedder to chromem's callback. A nil embedder
// falls through to chromem's default (local OpenAI-compatible endpoint).
func embeddingFunc(embedder Embedder) chromem.EmbeddingFunc {
	if embedder == nil {
		return nil
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
}
