package vectorindex

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toyEmbedding keeps tests offline: a fixed vocabulary bag-of-words vector.
func toyEmbedding(_ context.Context, text string) ([]float32, error) {
	vocab := []string{"adventure", "science", "history", "dune", "sherlock", "island"}
	vec := make([]float32, len(vocab))
	lower := strings.ToLower(text)
	var any bool
	for i, w := range vocab {
		if strings.Contains(lower, w) {
			vec[i] = 1
			any = true
		}
	}
	if !any {
		vec[len(vec)-1] = 0.001
	}
	return vec, nil
}

func newTestIndex(t *testing.T) *Chromem {
	t.Helper()
	idx, err := NewChromem(func(o *ChromemOptions) {
		o.Collection = "test"
		o.EmbeddingFunc = toyEmbedding
	})
	require.NoError(t, err)
	return idx
}

func TestQueryEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	neighbors, err := idx.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, neighbors)
}

func TestUpsertQueryDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, 1, "Dune by Frank Herbert. Category: science"))
	require.NoError(t, idx.Upsert(ctx, 2, "Treasure Island by Stevenson. Category: adventure"))

	neighbors, err := idx.Query(ctx, "adventure island", 5)
	require.NoError(t, err)
	require.NotEmpty(t, neighbors)
	assert.Equal(t, uint(2), neighbors[0].ID)
	for _, n := range neighbors {
		assert.GreaterOrEqual(t, n.Distance, 0.0)
	}

	// upsert replaces rather than duplicates
	require.NoError(t, idx.Upsert(ctx, 2, "Treasure Island by Stevenson. Category: adventure"))
	neighbors, err = idx.Query(ctx, "adventure", 5)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(neighbors), 2)

	require.NoError(t, idx.Delete(ctx, 2))
	neighbors, err = idx.Query(ctx, "adventure island", 5)
	require.NoError(t, err)
	for _, n := range neighbors {
		assert.NotEqual(t, uint(2), n.ID)
	}
}
