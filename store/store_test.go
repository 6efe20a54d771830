package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	return s
}

func seedItem(t *testing.T, s *Store, title, author string, price int64, stock int, category string) Item {
	t.Helper()
	it := Item{Title: title, Author: author, Price: price, Stock: stock, Category: category}
	require.NoError(t, s.CreateItem(context.Background(), &it))
	return it
}

func TestItemCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := seedItem(t, s, "Dune", "Frank Herbert", 120000, 5, "Science Fiction")
	require.NotZero(t, it.ID)

	got, err := s.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, it, got)

	it.Stock = 7
	it.Category = "Sci-Fi"
	require.NoError(t, s.UpdateItem(ctx, it))
	got, err = s.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
	assert.Equal(t, "Sci-Fi", got.Category)

	require.NoError(t, s.DeleteItem(ctx, it.ID))
	_, err = s.GetItem(ctx, it.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteItem(ctx, it.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateItem(ctx, it), ErrNotFound)
}

func TestItemsByCategoryDiacriticInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	low := seedItem(t, s, "Two Towers", "Tolkien", 90000, 1, "Phiêu Lưu")
	high := seedItem(t, s, "Treasure Island", "Stevenson", 60000, 9, "phieu luu")
	seedItem(t, s, "Cosmos", "Sagan", 80000, 4, "science")

	items, err := s.ItemsByCategory(ctx, "Phiêu lưu", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// best stocked first
	assert.Equal(t, high.ID, items[0].ID)
	assert.Equal(t, low.ID, items[1].ID)
}

func TestLikeItemsAndFullTextFallback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := seedItem(t, s, "Sherlock Holmes Collected", "Conan Doyle", 150000, 3, "mystery")

	_, err := s.FullTextItems(ctx, "sherlock", 10)
	assert.ErrorIs(t, err, ErrFullTextUnavailable)

	items, err := s.LikeItems(ctx, "SHERLOCK", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it.ID, items[0].ID)

	items, err = s.LikeItems(ctx, "doyle", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestItemsByIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := seedItem(t, s, "A", "x", 1, 1, "c")
	b := seedItem(t, s, "B", "y", 2, 2, "c")

	items, err := s.ItemsByIDs(ctx, []uint{a.ID, b.ID, 999})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = s.ItemsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderRoundTripApprove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := seedItem(t, s, "Dune", "Herbert", 120000, 5, "sci-fi")
	o := Order{CustomerName: "An", Phone: "0912345678", Address: "12 Ly Thuong Kiet", ItemID: it.ID, Quantity: 2, SessionID: "sess-1"}
	require.NoError(t, s.CreateOrder(ctx, &o))
	assert.Equal(t, StatusPending, o.Status)

	ok, err := s.ApproveOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	item, err := s.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Stock)

	// approved is terminal: a second approval reports failure, stock untouched
	ok, err = s.ApproveOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	item, _ = s.GetItem(ctx, it.ID)
	assert.Equal(t, 3, item.Stock)
}

func TestApproveInsufficientStock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := seedItem(t, s, "Rare Print", "N/A", 500000, 1, "art")
	first := Order{CustomerName: "A", Phone: "0900000001", Address: "addr", ItemID: it.ID, Quantity: 1, SessionID: "s1"}
	second := Order{CustomerName: "B", Phone: "0900000002", Address: "addr", ItemID: it.ID, Quantity: 1, SessionID: "s2"}
	require.NoError(t, s.CreateOrder(ctx, &first))
	require.NoError(t, s.CreateOrder(ctx, &second))

	ok, err := s.ApproveOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// the conditional decrement guards the last unit
	ok, err = s.ApproveOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	item, err := s.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Stock)

	got, err := s.GetOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestCancelOrderTerminal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := seedItem(t, s, "Dune", "Herbert", 120000, 5, "sci-fi")
	o := Order{CustomerName: "An", Phone: "0912345678", Address: "addr", ItemID: it.ID, Quantity: 2, SessionID: "sess-1"}
	require.NoError(t, s.CreateOrder(ctx, &o))

	ok, err := s.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// second cancel is a no-op failure
	ok, err = s.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// cancel leaves stock unchanged
	item, err := s.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Stock)

	// cancelled is terminal for approval too
	ok, err = s.ApproveOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CancelOrder(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrdersByStatusAndSessionQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := seedItem(t, s, "Dune", "Herbert", 100, 5, "sci-fi")
	o1 := Order{CustomerName: "An", Phone: "1", Address: "a", ItemID: it.ID, Quantity: 2, SessionID: "sess-1"}
	o2 := Order{CustomerName: "Binh", Phone: "2", Address: "b", ItemID: it.ID, Quantity: 1, SessionID: "sess-1"}
	require.NoError(t, s.CreateOrder(ctx, &o1))
	require.NoError(t, s.CreateOrder(ctx, &o2))

	pending, err := s.OrdersByStatus(ctx, StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Dune", pending[0].Title)
	ids := make(map[uint]OrderSummary, len(pending))
	for _, sum := range pending {
		ids[sum.ID] = sum
		assert.Equal(t, int64(100), sum.Price)
		assert.Equal(t, StatusPending, sum.Status)
		assert.False(t, sum.CreatedAt.IsZero())
	}
	require.Contains(t, ids, o1.ID)
	require.Contains(t, ids, o2.ID)
	assert.Equal(t, "An", ids[o1.ID].CustomerName)
	assert.Equal(t, int64(200), ids[o1.ID].Total)
	assert.Equal(t, "Binh", ids[o2.ID].CustomerName)
	assert.Equal(t, int64(100), ids[o2.ID].Total)

	last, err := s.LastOrderBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, o2.ID, last.ID)

	sid, err := s.OrderSession(ctx, o1.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sid)

	_, err = s.LastOrderBySession(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.OrderSession(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChatHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureSession(ctx, "sess-1"))
	require.NoError(t, s.EnsureSession(ctx, "sess-1")) // idempotent

	for i := 0; i < 5; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		require.NoError(t, s.AppendMessage(ctx, "sess-1", role, fmt.Sprintf("msg %d", i)))
	}

	all, err := s.History(ctx, "sess-1", 100)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "msg 0", all[0].Content)
	assert.Equal(t, "msg 4", all[4].Content)

	recent, err := s.RecentMessages(ctx, "sess-1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "msg 3", recent[0].Content)
	assert.Equal(t, "msg 4", recent[1].Content)

	infos, err := s.ListSessions(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "sess-1", infos[0].SessionID)
	assert.Equal(t, 5, infos[0].MessageCount)
	assert.False(t, infos[0].LastActivity.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), infos[0].LastActivity, time.Minute)

	infos, err = s.ListSessions(ctx, "nope", 10)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestParseDBTime(t *testing.T) {
	for _, s := range []string{
		"2026-08-31T10:20:30.123456789Z",
		"2026-08-31 10:20:30.123456789+00:00",
		"2026-08-31 10:20:30.123",
		"2026-08-31 10:20:30",
	} {
		assert.False(t, parseDBTime(s).IsZero(), s)
	}
	assert.True(t, parseDBTime("not a timestamp").IsZero())
}
