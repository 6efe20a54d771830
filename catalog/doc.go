// Package catalog manages the item inventory. Every write goes to the
// relational store first and is then mirrored into the vector index; index
// failures degrade retrieval quality but never fail the write. ReindexAll
// rebuilds the mirror from the store when the two drift.
package catalog
