// Package retrieval ranks catalog items for a free-text query by fusing a
// lexical signal (token-set similarity plus keyword boosts) with vector
// similarity from the embedding index. Either signal may be unavailable; the
// cascade degrades without failing the call.
package retrieval
