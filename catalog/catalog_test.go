package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdvu/bookstore-agent/store"
	"github.com/tdvu/bookstore-agent/vectorindex"
)

// fakeIndex records mirrored documents.
type fakeIndex struct {
	mu   sync.Mutex
	docs map[uint]string
	fail bool
}

var _ vectorindex.Index = (*fakeIndex)(nil)

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[uint]string{}} }

func (f *fakeIndex) Upsert(_ context.Context, id uint, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("index down")
	}
	f.docs[id] = text
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("index down")
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Query(context.Context, string, int) ([]vectorindex.Neighbor, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *store.Store, *fakeIndex) {
	t.Helper()
	st, err := store.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	idx := newFakeIndex()
	svc := NewService(st, func(o *Options) { o.Index = idx })
	return svc, st, idx
}

func TestCreateMirrorsDocument(t *testing.T) {
	ctx := context.Background()
	svc, _, idx := newTestService(t)

	it := store.Item{Title: "Kho Báu Đảo Hoang", Author: "R. L. Stevenson", Price: 72000, Stock: 4, Category: "Phiêu lưu"}
	require.NoError(t, svc.Create(ctx, &it))
	require.NotZero(t, it.ID)

	doc, ok := idx.docs[it.ID]
	require.True(t, ok)
	assert.Equal(t, "Kho Báu Đảo Hoang - R. L. Stevenson - Phiêu lưu", doc)
}

func TestUpdateRefreshesDocument(t *testing.T) {
	ctx := context.Background()
	svc, _, idx := newTestService(t)

	it := store.Item{Title: "Dune", Author: "Frank Herbert", Price: 98000, Stock: 2, Category: "Khoa học viễn tưởng"}
	require.NoError(t, svc.Create(ctx, &it))

	it.Title = "Dune (tái bản)"
	require.NoError(t, svc.Update(ctx, it))

	got, err := svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune (tái bản)", got.Title)
	assert.Contains(t, idx.docs[it.ID], "Dune (tái bản)")
}

func TestDeleteRemovesDocument(t *testing.T) {
	ctx := context.Background()
	svc, _, idx := newTestService(t)

	it := store.Item{Title: "Totto-chan", Author: "Kuroyanagi Tetsuko", Price: 65000, Stock: 6}
	require.NoError(t, svc.Create(ctx, &it))
	require.NoError(t, svc.Delete(ctx, it.ID))

	_, err := svc.Get(ctx, it.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, ok := idx.docs[it.ID]
	assert.False(t, ok)
}

func TestIndexFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, st, idx := newTestService(t)
	idx.fail = true

	it := store.Item{Title: "Sapiens", Author: "Yuval Noah Harari", Price: 120000, Stock: 3, Category: "Lịch sử"}
	require.NoError(t, svc.Create(ctx, &it))

	got, err := st.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sapiens", got.Title)
	assert.Empty(t, idx.docs)
}

func TestReindexAll(t *testing.T) {
	ctx := context.Background()
	svc, st, idx := newTestService(t)

	for _, title := range []string{"A", "B", "C"} {
		it := store.Item{Title: title, Author: "X", Price: 1000, Stock: 1}
		require.NoError(t, st.CreateItem(ctx, &it))
	}
	require.Empty(t, idx.docs)

	n, err := svc.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, idx.docs, 3)
}

func TestReindexWithoutIndex(t *testing.T) {
	st, err := store.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	svc := NewService(st)
	_, err = svc.ReindexAll(context.Background())
	assert.Error(t, err)
}

func TestDocumentWithoutCategory(t *testing.T) {
	doc := Document(store.Item{Title: "T", Author: "A"})
	assert.Equal(t, "T - A", doc)
}
