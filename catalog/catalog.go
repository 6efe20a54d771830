package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/tdvu/bookstore-agent/logging"
	"github.com/tdvu/bookstore-agent/store"
	"github.com/tdvu/bookstore-agent/vectorindex"
)

// Service exposes catalog CRUD with vector mirroring.
type Service struct {
	store  *store.Store
	index  vectorindex.Index
	logger logging.Logger
}

// Options configure a Service.
type Options struct {
	// Index receives a document per item. Nil disables mirroring.
	Index vectorindex.Index

	Logger logging.Logger
}

// NewService creates a catalog service on top of the given store.
func NewService(st *store.Store, optFns ...func(o *Options)) *Service {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{store: st, index: opts.Index, logger: opts.Logger}
}

// Create inserts an item and mirrors it into the vector index.
func (s *Service) Create(ctx context.Context, it *store.Item) error {
	if err := s.store.CreateItem(ctx, it); err != nil {
		return err
	}
	s.mirror(ctx, *it)
	return nil
}

// Update rewrites an item and refreshes its index document.
func (s *Service) Update(ctx context.Context, it store.Item) error {
	if err := s.store.UpdateItem(ctx, it); err != nil {
		return err
	}
	s.mirror(ctx, it)
	return nil
}

// Delete removes an item and its index document.
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	if s.index == nil {
		return nil
	}
	if err := s.index.Delete(ctx, id); err != nil {
		s.logger.Warn("vector index delete failed", "item_id", id, "error", err)
	}
	return nil
}

// Get loads one item.
func (s *Service) Get(ctx context.Context, id uint) (store.Item, error) {
	return s.store.GetItem(ctx, id)
}

// List returns the full inventory.
func (s *Service) List(ctx context.Context) ([]store.Item, error) {
	return s.store.ListItems(ctx)
}

// ReindexAll rebuilds the vector documents for every item, for example after
// switching embedding models. Returns the number of items indexed.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, fmt.Errorf("catalog: no vector index configured")
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return 0, err
	}
	indexed := 0
	for _, it := range items {
		if err := s.index.Upsert(ctx, it.ID, Document(it)); err != nil {
			s.logger.Warn("vector index upsert failed", "item_id", it.ID, "error", err)
			continue
		}
		indexed++
	}
	s.logger.Info("catalog reindexed", "items", len(items), "indexed", indexed)
	return indexed, nil
}

// Document renders the text embedded for an item.
func Document(it store.Item) string {
	parts := []string{it.Title, it.Author}
	if it.Category != "" {
		parts = append(parts, it.Category)
	}
	return strings.Join(parts, " - ")
}

func (s *Service) mirror(ctx context.Context, it store.Item) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(ctx, it.ID, Document(it)); err != nil {
		s.logger.Warn("vector index upsert failed", "item_id", it.ID, "error", err)
	}
}
