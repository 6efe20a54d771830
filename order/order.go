package order

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/tdvu/bookstore-agent/logging"
	"github.com/tdvu/bookstore-agent/notify"
	"github.com/tdvu/bookstore-agent/store"
)

// ErrOutOfStock rejects a submission whose quantity exceeds current stock.
var ErrOutOfStock = errors.New("order: insufficient stock")

var phonePattern = regexp.MustCompile(`^0\d{9,10}$`)

// Submission is a validated purchase request assembled from filled dialogue
// slots.
type Submission struct {
	SessionID    string `validate:"required"`
	ItemID       uint   `validate:"required"`
	Quantity     int    `validate:"required,gt=0"`
	CustomerName string `validate:"required,min=2"`
	Phone        string `validate:"required,vn_phone"`
	Address      string `validate:"required,min=5"`
}

// Manager coordinates order submission and admin decisions.
type Manager struct {
	store    *store.Store
	hub      notify.Hub
	validate *validator.Validate
	logger   logging.Logger
}

// ManagerOptions configure a Manager.
type ManagerOptions struct {
	Hub    notify.Hub
	Logger logging.Logger
}

// NewManager creates an order manager on top of the given store.
func NewManager(st *store.Store, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("vn_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Manager{store: st, hub: opts.Hub, validate: v, logger: opts.Logger}
}

// Submit validates and stores a pending order, then announces it. Stock is
// only checked here as a courtesy; the decisive check happens inside the
// approval transaction.
func (m *Manager) Submit(ctx context.Context, sub Submission) (store.Order, error) {
	if err := m.validate.Struct(sub); err != nil {
		return store.Order{}, fmt.Errorf("order: invalid submission: %w", err)
	}

	item, err := m.store.GetItem(ctx, sub.ItemID)
	if err != nil {
		return store.Order{}, fmt.Errorf("order: look up item %d: %w", sub.ItemID, err)
	}
	if item.Stock < sub.Quantity {
		return store.Order{}, fmt.Errorf("%w: %d requested, %d available", ErrOutOfStock, sub.Quantity, item.Stock)
	}

	o := store.Order{
		CustomerName: sub.CustomerName,
		Phone:        sub.Phone,
		Address:      sub.Address,
		ItemID:       sub.ItemID,
		Quantity:     sub.Quantity,
		Status:       store.StatusPending,
		SessionID:    sub.SessionID,
	}
	if err := m.store.CreateOrder(ctx, &o); err != nil {
		return store.Order{}, fmt.Errorf("order: create: %w", err)
	}

	m.logger.Info("order submitted", "order_id", o.ID, "item_id", o.ItemID, "quantity", o.Quantity, "session_id", o.SessionID)
	m.publish(notify.EventNewOrder, o.ID, o.SessionID)
	return o, nil
}

// Approve marks a pending order approved and decrements stock atomically.
// Returns false without error when the order is missing, already decided or
// stock ran out in the meantime.
func (m *Manager) Approve(ctx context.Context, orderID uint) (bool, error) {
	ok, err := m.store.ApproveOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !ok {
		m.logger.Info("order approval rejected", "order_id", orderID)
		return false, nil
	}

	m.logger.Info("order approved", "order_id", orderID)
	sessionID := m.notifySession(ctx, orderID,
		fmt.Sprintf("✅ Đơn hàng #%d đã được duyệt. Cảm ơn bạn đã mua sách!", orderID))
	m.publish(notify.EventOrderApproved, orderID, sessionID)
	return true, nil
}

// Cancel marks a pending order cancelled. Stock is untouched because it was
// never decremented. Returns false when the order is missing or terminal.
func (m *Manager) Cancel(ctx context.Context, orderID uint) (bool, error) {
	ok, err := m.store.CancelOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !ok {
		m.logger.Info("order cancellation rejected", "order_id", orderID)
		return false, nil
	}

	m.logger.Info("order cancelled", "order_id", orderID)
	sessionID := m.notifySession(ctx, orderID,
		fmt.Sprintf("❌ Đơn hàng #%d đã bị huỷ. Bạn có thể đặt lại hoặc chọn sách khác.", orderID))
	m.publish(notify.EventOrderCancelled, orderID, sessionID)
	return true, nil
}

// Pending lists undecided orders for the admin queue.
func (m *Manager) Pending(ctx context.Context, limit int) ([]store.OrderSummary, error) {
	return m.store.OrdersByStatus(ctx, store.StatusPending, limit)
}

// ByStatus lists orders in the given lifecycle state.
func (m *Manager) ByStatus(ctx context.Context, status store.OrderStatus, limit int) ([]store.OrderSummary, error) {
	return m.store.OrdersByStatus(ctx, status, limit)
}

// notifySession appends an assistant message to the order's chat session so
// the customer sees the decision on their next visit. Best effort.
func (m *Manager) notifySession(ctx context.Context, orderID uint, text string) string {
	sessionID, err := m.store.OrderSession(ctx, orderID)
	if err != nil {
		m.logger.Warn("resolve order session failed", "order_id", orderID, "error", err)
		return ""
	}
	if err := m.store.AppendMessage(ctx, sessionID, "assistant", text); err != nil {
		m.logger.Warn("append decision message failed", "order_id", orderID, "session_id", sessionID, "error", err)
	}
	return sessionID
}

func (m *Manager) publish(typ notify.EventType, orderID uint, sessionID string) {
	if m.hub == nil {
		return
	}
	m.hub.Publish(notify.NewEvent(typ, orderID, sessionID))
}
