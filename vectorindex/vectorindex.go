package vectorindex

import "context"

// Neighbor is one nearest-neighbor result. Distance grows with dissimilarity
// and is always >= 0; retrieval maps it to a similarity via 1/(1+d).
type Neighbor struct {
	ID       uint
	Distance float64
}

// Index stores one embedding per catalog item keyed by item id. A freshly
// deployed (empty) index must answer queries with an empty result, not an
// error.
type Index interface {
	Upsert(ctx context.Context, id uint, text string) error
	Delete(ctx context.Context, id uint) error
	Query(ctx context.Context, text string, k int) ([]Neighbor, error)
}
