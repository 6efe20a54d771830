package retrieval

import (
	"context"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/tdvu/bookstore-agent/logging"
	"github.com/tdvu/bookstore-agent/store"
	"github.com/tdvu/bookstore-agent/vectorindex"
)

// maxVectorNeighbors caps how many neighbors one query pulls from the index.
const maxVectorNeighbors = 10

// Weights are the fusion coefficients. The defaults are hand-tuned carry-overs,
// exposed for tuning rather than fixed invariants.
type Weights struct {
	Lexical  float64
	Vector   float64
	Title    float64
	Category float64
}

// DefaultWeights returns the tuned fusion coefficients.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.55, Vector: 0.35, Title: 0.20, Category: 0.15}
}

// Hit is one scored candidate. It lives only for the duration of a search.
type Hit struct {
	Item    store.Item
	Lexical float64
	Vector  float64
	Score   float64
}

// ItemSource is the slice of the catalog store the engine reads.
type ItemSource interface {
	ItemsByCategory(ctx context.Context, category string, limit int) ([]store.Item, error)
	FullTextItems(ctx context.Context, query string, limit int) ([]store.Item, error)
	LikeItems(ctx context.Context, query string, limit int) ([]store.Item, error)
	ItemsByIDs(ctx context.Context, ids []uint) ([]store.Item, error)
}

// Options configure the engine.
type Options struct {
	Weights  Weights
	Synonyms map[string][]string
	Logger   logging.Logger
}

// Engine fuses lexical and vector candidates into one ranked list.
type Engine struct {
	source ItemSource
	index  vectorindex.Index
	opts   Options
}

// NewEngine builds an engine over the catalog source and vector index.
func NewEngine(source ItemSource, index vectorindex.Index, optFns ...func(o *Options)) *Engine {
	opts := Options{Weights: DefaultWeights(), Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{source: source, index: index, opts: opts}
}

// Search returns up to limit items, most relevant first. Candidate order is
// stable: ties keep the order of first appearance.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	parsed := ParseQuery(query, e.opts.Synonyms)

	var ordered []store.Item
	seen := map[uint]bool{}
	add := func(items []store.Item) {
		for _, it := range items {
			if !seen[it.ID] {
				seen[it.ID] = true
				ordered = append(ordered, it)
			}
		}
	}

	if parsed.Category != "" {
		add(e.categoryCandidates(ctx, parsed, 2*limit))
	}
	if q := parsed.Query; len(q) >= 2 {
		add(e.textCandidates(ctx, q, 2*limit))
	}

	vecScores := e.vectorScores(ctx, query, min(2*limit, maxVectorNeighbors))

	// vector-only ids still need full item data
	var missing []uint
	for id := range vecScores {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	if len(missing) > 0 {
		items, err := e.source.ItemsByIDs(ctx, missing)
		if err != nil {
			e.opts.Logger.Warn("retrieval.batch_fetch_failed", "error", err)
		} else {
			add(items)
		}
	}

	hits := make([]Hit, len(ordered))
	for i, it := range ordered {
		hits[i] = e.score(parsed.Query, it, vecScores[it.ID])
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (e *Engine) categoryCandidates(ctx context.Context, parsed Parsed, limit int) []store.Item {
	items, err := e.source.ItemsByCategory(ctx, parsed.Category, limit)
	if err != nil {
		e.opts.Logger.Warn("retrieval.category_lookup_failed", "category", parsed.Category, "error", err)
		return nil
	}
	if len(items) == 0 && parsed.RawCategory != "" && parsed.RawCategory != parsed.Category {
		// the catalog may be labeled in the user's language rather than the
		// canonical synonym
		if raw, err := e.source.ItemsByCategory(ctx, parsed.RawCategory, limit); err == nil {
			return raw
		}
	}
	return items
}

func (e *Engine) textCandidates(ctx context.Context, query string, limit int) []store.Item {
	items, err := e.source.FullTextItems(ctx, query, limit)
	if err == nil {
		return items
	}
	items, err = e.source.LikeItems(ctx, query, limit)
	if err != nil {
		e.opts.Logger.Warn("retrieval.text_lookup_failed", "error", err)
		return nil
	}
	return items
}

// vectorScores queries the index best-effort; any failure degrades to an
// empty signal.
func (e *Engine) vectorScores(ctx context.Context, query string, k int) map[uint]float64 {
	scores := map[uint]float64{}
	if e.index == nil || k <= 0 {
		return scores
	}
	neighbors, err := e.index.Query(ctx, query, k)
	if err != nil {
		e.opts.Logger.Warn("retrieval.vector_query_failed", "error", err)
		return scores
	}
	for _, n := range neighbors {
		scores[n.ID] = 1.0 / (1.0 + n.Distance)
	}
	return scores
}

func (e *Engine) score(query string, it store.Item, vector float64) Hit {
	text := it.Title + " " + it.Author + " " + it.Category
	lexical := float64(fuzzy.TokenSetRatio(query, text)) / 100.0

	var titleBoost, categoryBoost float64
	titleLower := strings.ToLower(it.Title)
	categoryLower := strings.ToLower(it.Category)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if titleBoost == 0 && strings.Contains(titleLower, w) {
			titleBoost = e.opts.Weights.Title
		}
		if categoryBoost == 0 && categoryLower != "" && strings.Contains(categoryLower, w) {
			categoryBoost = e.opts.Weights.Category
		}
	}

	w := e.opts.Weights
	return Hit{
		Item:    it,
		Lexical: lexical,
		Vector:  vector,
		Score:   w.Lexical*lexical + w.Vector*vector + titleBoost + categoryBoost,
	}
}
