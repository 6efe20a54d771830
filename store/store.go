package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tdvu/bookstore-agent/internal/textnorm"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrFullTextUnavailable signals that the active driver has no full-text
// support; callers fall back to substring matching.
var ErrFullTextUnavailable = errors.New("store: full-text search unavailable")

// errStockConflict aborts the approval transaction when the conditional
// decrement matches no row.
var errStockConflict = errors.New("store: insufficient stock")

// Store wraps a gorm handle with the queries the agent needs.
type Store struct {
	db *gorm.DB
}

// Open connects to the database named by driver ("sqlite" or "postgres") and
// migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(&itemRow{}, &orderRow{}, &messageRow{}, &chatSessionRow{})
}

// ---- Items ----

// CreateItem inserts a catalog item and fills in its assigned id.
func (s *Store) CreateItem(ctx context.Context, it *Item) error {
	row := itemRowFrom(*it)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	it.ID = row.ID
	return nil
}

// GetItem loads one catalog item.
func (s *Store) GetItem(ctx context.Context, id uint) (Item, error) {
	var row itemRow
	err := s.db.WithContext(ctx).Take(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	return row.toItem(), nil
}

// ListItems returns the full catalog, newest first.
func (s *Store) ListItems(ctx context.Context) ([]Item, error) {
	var rows []itemRow
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return toItems(rows), nil
}

// UpdateItem overwrites the stored item, keeping the normalized category mirror.
func (s *Store) UpdateItem(ctx context.Context, it Item) error {
	row := itemRowFrom(it)
	res := s.db.WithContext(ctx).Model(&itemRow{}).Where("id = ?", it.ID).Updates(map[string]any{
		"title":         row.Title,
		"author":        row.Author,
		"price":         row.Price,
		"stock":         row.Stock,
		"category":      row.Category,
		"category_norm": row.CategoryNorm,
	})
	if res.Error != nil {
		return fmt.Errorf("update item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes an item from the catalog.
func (s *Store) DeleteItem(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&itemRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ItemsByCategory matches the normalized category as a substring, best-stocked
// first then newest.
func (s *Store) ItemsByCategory(ctx context.Context, category string, limit int) ([]Item, error) {
	var rows []itemRow
	pattern := "%" + textnorm.Fold(category) + "%"
	err := s.db.WithContext(ctx).
		Where("category_norm LIKE ?", pattern).
		Order("stock DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("items by category: %w", err)
	}
	return toItems(rows), nil
}

// FullTextItems ranks items by full-text relevance over title+author. Only the
// Postgres driver supports it; other drivers report ErrFullTextUnavailable so
// the retrieval cascade can degrade to LikeItems.
func (s *Store) FullTextItems(ctx context.Context, query string, limit int) ([]Item, error) {
	if s.db.Dialector.Name() != "postgres" {
		return nil, ErrFullTextUnavailable
	}
	var rows []itemRow
	err := s.db.WithContext(ctx).
		Where("to_tsvector('simple', title || ' ' || author) @@ plainto_tsquery('simple', ?)", query).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "ts_rank(to_tsvector('simple', title || ' ' || author), plainto_tsquery('simple', ?)) DESC",
			Vars:               []any{query},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("full-text items: %w", err)
	}
	return toItems(rows), nil
}

// LikeItems is the substring fallback across title, author and category.
func (s *Store) LikeItems(ctx context.Context, query string, limit int) ([]Item, error) {
	var rows []itemRow
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := s.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern, pattern).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("like items: %w", err)
	}
	return toItems(rows), nil
}

// ItemsByIDs batch-fetches items, in no particular order.
func (s *Store) ItemsByIDs(ctx context.Context, ids []uint) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []itemRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("items by ids: %w", err)
	}
	return toItems(rows), nil
}

func toItems(rows []itemRow) []Item {
	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = r.toItem()
	}
	return items
}

// ---- Orders ----

// CreateOrder inserts a pending order and fills in its assigned id.
func (s *Store) CreateOrder(ctx context.Context, o *Order) error {
	row := orderRow{
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Address:      o.Address,
		ItemID:       o.ItemID,
		Quantity:     o.Quantity,
		Status:       string(StatusPending),
		SessionID:    o.SessionID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	o.ID = row.ID
	o.Status = StatusPending
	o.CreatedAt = row.CreatedAt
	return nil
}

// GetOrder loads one order.
func (s *Store) GetOrder(ctx context.Context, id uint) (Order, error) {
	var row orderRow
	err := s.db.WithContext(ctx).Take(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return row.toOrder(), nil
}

// ApproveOrder atomically locks the pending order, decrements stock when
// enough remains and flips the status. It reports false without error when the
// order is missing, already decided, or stock is insufficient — two concurrent
// approvals of the last unit can never both succeed.
func (s *Store) ApproveOrder(ctx context.Context, id uint) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ? AND status = ?", id, string(StatusPending))
		if tx.Dialector.Name() == "postgres" {
			// Row lock so concurrent approvals serialize on the order.
			// SQLite transactions already serialize writers.
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row orderRow
		if err := q.Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errStockConflict
			}
			return err
		}
		res := tx.Model(&itemRow{}).
			Where("id = ? AND stock >= ?", row.ItemID, row.Quantity).
			Update("stock", gorm.Expr("stock - ?", row.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStockConflict
		}
		return tx.Model(&orderRow{}).Where("id = ?", row.ID).
			Update("status", string(StatusApproved)).Error
	})
	if errors.Is(err, errStockConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("approve order: %w", err)
	}
	return true, nil
}

// CancelOrder flips a pending order to cancelled. False when the order is
// unknown or already decided; terminal states never change again.
func (s *Store) CancelOrder(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&orderRow{}).
		Where("id = ? AND status = ?", id, string(StatusPending)).
		Update("status", string(StatusCancelled))
	if res.Error != nil {
		return false, fmt.Errorf("cancel order: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// OrderSession returns the session that created the order.
func (s *Store) OrderSession(ctx context.Context, id uint) (string, error) {
	var row orderRow
	err := s.db.WithContext(ctx).Select("session_id").Take(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("order session: %w", err)
	}
	return row.SessionID, nil
}

// LastOrderBySession returns the most recent order for one session.
func (s *Store) LastOrderBySession(ctx context.Context, sessionID string) (Order, error) {
	var row orderRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("last order by session: %w", err)
	}
	return row.toOrder(), nil
}

// OrdersByStatus lists orders in one status joined with their item, newest
// first, with the computed total. Backs the admin dashboard.
func (s *Store) OrdersByStatus(ctx context.Context, status OrderStatus, limit int) ([]OrderSummary, error) {
	// Scan does not flatten an untagged embedded row struct, so the order
	// columns are selected into named fields.
	type joined struct {
		OrderID      uint
		CustomerName string
		Phone        string
		Address      string
		ItemID       uint
		Quantity     int
		Status       string
		SessionID    string
		CreatedAt    time.Time
		Title        string
		Author       string
		Price        int64
	}
	var rows []joined
	err := s.db.WithContext(ctx).
		Table("orders").
		Select("orders.id AS order_id, orders.customer_name, orders.phone, orders.address, " +
			"orders.item_id, orders.quantity, orders.status, orders.session_id, orders.created_at, " +
			"items.title, items.author, items.price").
		Joins("JOIN items ON items.id = orders.item_id").
		Where("orders.status = ?", string(status)).
		Order("orders.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("orders by status: %w", err)
	}
	out := make([]OrderSummary, len(rows))
	for i, r := range rows {
		out[i] = OrderSummary{
			Order: Order{
				ID:           r.OrderID,
				CustomerName: r.CustomerName,
				Phone:        r.Phone,
				Address:      r.Address,
				ItemID:       r.ItemID,
				Quantity:     r.Quantity,
				Status:       OrderStatus(r.Status),
				SessionID:    r.SessionID,
				CreatedAt:    r.CreatedAt,
			},
			Title:  r.Title,
			Author: r.Author,
			Price:  r.Price,
			Total:  r.Price * int64(r.Quantity),
		}
	}
	return out, nil
}

// ---- Chat ----

// EnsureSession upserts the session row so message appends never dangle.
func (s *Store) EnsureSession(ctx context.Context, sessionID string) error {
	row := chatSessionRow{SessionID: sessionID, CreatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// AppendMessage records one chat turn. Messages are append-only.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	row := messageRow{SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// History returns the oldest-first transcript capped at limit.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return toMessages(rows), nil
}

// RecentMessages returns the last limit messages in chronological order; this
// window is the pipeline's short-term memory.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	// reverse into insertion order
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toMessages(rows), nil
}

// ListSessions summarizes chat sessions, most recently active first, optionally
// filtered by a session-id substring.
func (s *Store) ListSessions(ctx context.Context, query string, limit int) ([]SessionInfo, error) {
	// An aggregate expression loses the column's declared type: the sqlite
	// driver hands it back as a string, and database/sql formats postgres
	// timestamps as RFC3339Nano when scanned into one. Scan a string and
	// parse, so both drivers take the same path.
	type joined struct {
		SessionID    string
		LastActivity string
		MessageCount int
	}
	q := s.db.WithContext(ctx).
		Table("chat_sessions").
		Select("chat_sessions.session_id AS session_id, " +
			"COALESCE(MAX(chat_messages.created_at), chat_sessions.created_at) AS last_activity, " +
			"COUNT(chat_messages.id) AS message_count").
		Joins("LEFT JOIN chat_messages ON chat_messages.session_id = chat_sessions.session_id").
		Group("chat_sessions.session_id, chat_sessions.created_at").
		Order("last_activity DESC").
		Limit(limit)
	if strings.TrimSpace(query) != "" {
		q = q.Where("chat_sessions.session_id LIKE ?", "%"+strings.TrimSpace(query)+"%")
	}
	var rows []joined
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]SessionInfo, len(rows))
	for i, r := range rows {
		out[i] = SessionInfo{SessionID: r.SessionID, LastActivity: parseDBTime(r.LastActivity), MessageCount: r.MessageCount}
	}
	return out, nil
}

var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseDBTime(s string) time.Time {
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toMessages(rows []messageRow) []Message {
	msgs := make([]Message, len(rows))
	for i, r := range rows {
		msgs[i] = r.toMessage()
	}
	return msgs
}
