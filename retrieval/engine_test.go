package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdvu/bookstore-agent/store"
	"github.com/tdvu/bookstore-agent/vectorindex"
)

// fakeSource serves candidates from a slice, mimicking the store queries.
type fakeSource struct {
	items        []store.Item
	fullTextErr  error
	categoryHits int
}

func (f *fakeSource) ItemsByCategory(_ context.Context, category string, limit int) ([]store.Item, error) {
	f.categoryHits++
	var out []store.Item
	needle := strings.ToLower(category)
	for _, it := range f.items {
		if strings.Contains(strings.ToLower(it.Category), needle) {
			out = append(out, it)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSource) FullTextItems(_ context.Context, query string, limit int) ([]store.Item, error) {
	if f.fullTextErr != nil {
		return nil, f.fullTextErr
	}
	return f.substring(query, limit), nil
}

func (f *fakeSource) LikeItems(_ context.Context, query string, limit int) ([]store.Item, error) {
	return f.substring(query, limit), nil
}

func (f *fakeSource) ItemsByIDs(_ context.Context, ids []uint) ([]store.Item, error) {
	var out []store.Item
	for _, id := range ids {
		for _, it := range f.items {
			if it.ID == id {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (f *fakeSource) substring(query string, limit int) []store.Item {
	var out []store.Item
	needle := strings.ToLower(query)
	for _, it := range f.items {
		hay := strings.ToLower(it.Title + " " + it.Author + " " + it.Category)
		if strings.Contains(hay, needle) {
			out = append(out, it)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

// fakeIndex returns canned neighbors regardless of query text.
type fakeIndex struct {
	neighbors []vectorindex.Neighbor
	err       error
}

func (f *fakeIndex) Upsert(context.Context, uint, string) error { return nil }
func (f *fakeIndex) Delete(context.Context, uint) error         { return nil }
func (f *fakeIndex) Query(context.Context, string, int) ([]vectorindex.Neighbor, error) {
	return f.neighbors, f.err
}

func TestSearchCategoryPathWithEmptyVectorIndex(t *testing.T) {
	src := &fakeSource{items: []store.Item{
		{ID: 1, Title: "Treasure Island", Author: "Stevenson", Price: 60000, Stock: 9, Category: "adventure"},
		{ID: 2, Title: "Cosmos", Author: "Sagan", Price: 80000, Stock: 4, Category: "science"},
	}, fullTextErr: store.ErrFullTextUnavailable}

	eng := NewEngine(src, &fakeIndex{})
	hits, err := eng.Search(context.Background(), "do you have any adventure books", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, uint(1), hits[0].Item.ID)
}

func TestSearchExactTitleSurfaces(t *testing.T) {
	src := &fakeSource{items: []store.Item{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", Category: "science"},
		{ID: 2, Title: "Dune Messiah", Author: "Frank Herbert", Category: "science"},
		{ID: 3, Title: "Cosmos", Author: "Carl Sagan", Category: "science"},
	}, fullTextErr: store.ErrFullTextUnavailable}

	eng := NewEngine(src, &fakeIndex{})
	hits, err := eng.Search(context.Background(), "Dune", 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Dune", hits[0].Item.Title)
	assert.LessOrEqual(t, len(hits), 2)
}

func TestSearchVectorOnlyCandidatesBatchFetched(t *testing.T) {
	src := &fakeSource{items: []store.Item{
		{ID: 7, Title: "The Martian", Author: "Andy Weir", Category: "science"},
	}, fullTextErr: store.ErrFullTextUnavailable}
	idx := &fakeIndex{neighbors: []vectorindex.Neighbor{{ID: 7, Distance: 0.1}}}

	eng := NewEngine(src, idx)
	// lexical signals miss entirely; the vector index still surfaces the item
	hits, err := eng.Search(context.Background(), "stranded astronaut survival story on the red planet", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint(7), hits[0].Item.ID)
	assert.InDelta(t, 1.0/1.1, hits[0].Vector, 1e-9)
}

func TestSearchToleratesVectorFailure(t *testing.T) {
	src := &fakeSource{items: []store.Item{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", Category: "science"},
	}, fullTextErr: store.ErrFullTextUnavailable}
	idx := &fakeIndex{err: errors.New("index offline")}

	eng := NewEngine(src, idx)
	hits, err := eng.Search(context.Background(), "Dune", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].Vector)
}

func TestScoreWeights(t *testing.T) {
	eng := NewEngine(&fakeSource{}, &fakeIndex{})
	it := store.Item{Title: "Dune", Author: "Frank Herbert", Category: "science"}

	hit := eng.score("dune", it, 0.5)
	// lexical is a perfect token-set match against a superset string
	assert.Greater(t, hit.Lexical, 0.0)
	expected := 0.55*hit.Lexical + 0.35*0.5 + 0.20 // title boost, no category boost
	assert.InDelta(t, expected, hit.Score, 1e-9)

	hit = eng.score("science", it, 0)
	assert.InDelta(t, 0.55*hit.Lexical+0.15, hit.Score, 1e-9)
}

func TestSearchStableTieOrder(t *testing.T) {
	src := &fakeSource{items: []store.Item{
		{ID: 1, Title: "Same Title", Author: "A", Category: "c"},
		{ID: 2, Title: "Same Title", Author: "A", Category: "c"},
	}, fullTextErr: store.ErrFullTextUnavailable}

	eng := NewEngine(src, &fakeIndex{})
	hits, err := eng.Search(context.Background(), "Same Title", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint(1), hits[0].Item.ID)
	assert.Equal(t, uint(2), hits[1].Item.ID)
}
