package vectorindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// ChromemOptions configure the chromem-backed index.
type ChromemOptions struct {
	// Path persists the index on disk; empty keeps it in memory.
	Path string
	// Collection names the chromem collection.
	Collection string
	// EmbeddingFunc overrides the embedding provider. Nil uses the chromem
	// default (OpenAI, keyed from the environment).
	EmbeddingFunc chromem.EmbeddingFunc
}

// Chromem implements Index on top of a chromem-go collection.
type Chromem struct {
	collection *chromem.Collection
}

var _ Index = (*Chromem)(nil)

// NewChromem opens (or creates) the configured collection.
func NewChromem(optFns ...func(o *ChromemOptions)) (*Chromem, error) {
	opts := ChromemOptions{Collection: "items"}
	for _, fn := range optFns {
		fn(&opts)
	}

	var db *chromem.DB
	var err error
	if opts.Path != "" {
		db, err = chromem.NewPersistentDB(opts.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(opts.Collection, nil, opts.EmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("open vector collection: %w", err)
	}
	return &Chromem{collection: collection}, nil
}

// Upsert stores (or replaces) the embedding document for an item.
func (c *Chromem) Upsert(ctx context.Context, id uint, text string) error {
	err := c.collection.AddDocument(ctx, chromem.Document{
		ID:       strconv.FormatUint(uint64(id), 10),
		Content:  text,
		Metadata: map[string]string{"item_id": strconv.FormatUint(uint64(id), 10)},
	})
	if err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}
	return nil
}

// Delete removes the embedding document for an item.
func (c *Chromem) Delete(ctx context.Context, id uint) error {
	err := c.collection.Delete(ctx, nil, nil, strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}
	return nil
}

// Query returns up to k neighbors. Chromem reports similarity; the contract
// speaks distance, so results carry 1 - similarity.
func (c *Chromem) Query(ctx context.Context, text string, k int) ([]Neighbor, error) {
	if count := c.collection.Count(); count < k {
		// chromem rejects nResults above the document count
		k = count
	}
	if k <= 0 {
		return nil, nil
	}
	results, err := c.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	neighbors := make([]Neighbor, 0, len(results))
	for _, r := range results {
		id, err := strconv.ParseUint(r.ID, 10, 64)
		if err != nil {
			continue
		}
		// similarity can exceed 1 on unnormalized embedding vectors
		d := 1 - float64(r.Similarity)
		if d < 0 {
			d = 0
		}
		neighbors = append(neighbors, Neighbor{ID: uint(id), Distance: d})
	}
	return neighbors, nil
}
