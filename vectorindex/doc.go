// Package vectorindex mirrors catalog items into an embedding index and
// answers nearest-neighbor queries. The contract is intentionally narrow:
// upsert/delete by item id plus a ranked query, so the backing index can be
// swapped without touching retrieval.
package vectorindex
