// Package embedding caches candidate embeddings and serves
// nearest-neighbor queries over them.
package embedding

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/benchgen/internal/config"
	"github.com/abhisek/benchgen/internal/llm"
)

// ErrDimensionMismatch is returned when a vector's dimensionality differs
// from the one pinned by the first stored vector. It is fatal for the run.
type ErrDimensionMismatch struct {
	ID   string
	Want int
	Got  int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("embedding for %s has dimension %d, cache pinned to %d", e.ID, e.Got, e.Want)
}

// Item is one text to embed, keyed by candidate id.
type Item struct {
	ID   string
	Text string
}

// Neighbor is one nearest-neighbor result.
type Neighbor struct {
	ID         string
	Similarity float64
}

// Cache embeds items in batches and memoizes vectors per id. Re-embedding
// a cached id returns the stored vector without a gateway call. The first
// stored vector pins the dimensionality for the rest of the run.
type Cache struct {
	provider    llm.Provider
	batchSize   int
	concurrency int

	mu      sync.Mutex
	vectors map[string][]float64
	dim     int

	collection *chromem.Collection
}

// NewCache builds an empty in-memory cache backed by a chromem collection.
// concurrency bounds the number of in-flight embed batches.
func NewCache(provider llm.Provider, cfg config.EmbeddingConfig, concurrency int) (*Cache, error) {
	batch := cfg.BatchSize
	if batch < 1 {
		batch = 32
	}
	if concurrency < 1 {
		concurrency = 1
	}
	collection, err := chromem.NewDB().GetOrCreateCollection("candidates", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create vector collection: %w", err)
	}
	return &Cache{
		provider:    provider,
		batchSize:   batch,
		concurrency: concurrency,
		vectors:     make(map[string][]float64),
		collection:  collection,
	}, nil
}

// Embed fetches vectors for every item not already cached. Batches run
// concurrently, but all new vectors are dimension-checked before any of
// them is stored, so a failed call or a mismatch leaves the cache exactly
// as it was.
func (c *Cache) Embed(ctx context.Context, items []Item) error {
	c.mu.Lock()
	var missing []Item
	for _, it := range items {
		if _, ok := c.vectors[it.ID]; !ok {
			missing = append(missing, it)
		}
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeEmbedding)

	staged := make([][]float64, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for start := 0; start < len(missing); start += c.batchSize {
		end := min(start+c.batchSize, len(missing))
		batch := missing[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, it := range batch {
				texts[i] = it.Text
			}
			vectors, err := c.provider.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed batch: got %d vectors for %d texts", len(vectors), len(batch))
			}
			copy(staged[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dim := c.dim
	for i, v := range staged {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return &ErrDimensionMismatch{ID: missing[i].ID, Want: dim, Got: len(v)}
		}
	}

	docs := make([]chromem.Document, 0, len(missing))
	for i, it := range missing {
		v := staged[i]
		emb := make([]float32, len(v))
		for j, x := range v {
			emb[j] = float32(x)
		}
		docs = append(docs, chromem.Document{ID: it.ID, Content: it.Text, Embedding: emb})
		c.vectors[it.ID] = v
	}
	c.dim = dim

	if err := c.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index vectors: %w", err)
	}
	return nil
}

// Vector returns the cached vector for id, if present.
func (c *Cache) Vector(id string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vectors[id]
	return v, ok
}

// Dimension returns the pinned dimensionality, or 0 before the first store.
func (c *Cache) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dim
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vectors)
}

// Nearest returns up to k cached neighbors of id by cosine similarity,
// excluding id itself.
func (c *Cache) Nearest(ctx context.Context, id string, k int) ([]Neighbor, error) {
	c.mu.Lock()
	v, ok := c.vectors[id]
	total := len(c.vectors)
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no cached vector for %s", id)
	}

	// Ask for one extra so the query id can be dropped from its own results.
	n := min(k+1, total)
	if n == 0 {
		return nil, nil
	}

	query := make([]float32, len(v))
	for i, x := range v {
		query[i] = float32(x)
	}

	results, err := c.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: query,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	neighbors := make([]Neighbor, 0, k)
	for _, r := range results {
		if r.ID == id {
			continue
		}
		neighbors = append(neighbors, Neighbor{ID: r.ID, Similarity: float64(r.Similarity)})
		if len(neighbors) == k {
			break
		}
	}
	return neighbors, nil
}
