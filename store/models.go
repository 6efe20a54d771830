package store

import (
	"time"

	"github.com/tdvu/bookstore-agent/internal/textnorm"
)

// OrderStatus enumerates the order lifecycle. Pending is the only non-terminal
// state; approved and cancelled orders never transition again.
type OrderStatus string

const (
	// StatusPending marks a submitted order awaiting the admin decision.
	StatusPending OrderStatus = "pending"
	// StatusApproved marks an order whose stock decrement committed.
	StatusApproved OrderStatus = "approved"
	// StatusCancelled marks an order rejected by the admin.
	StatusCancelled OrderStatus = "cancelled"
)

// Item is a catalog entry. Price is in the smallest currency unit.
type Item struct {
	ID       uint
	Title    string
	Author   string
	Price    int64
	Stock    int
	Category string
}

// Order is a purchase request tied to the chat session that produced it.
type Order struct {
	ID           uint
	CustomerName string
	Phone        string
	Address      string
	ItemID       uint
	Quantity     int
	Status       OrderStatus
	SessionID    string
	CreatedAt    time.Time
}

// OrderSummary joins an order with its item for the admin listing.
type OrderSummary struct {
	Order
	Title  string
	Author string
	Price  int64
	Total  int64
}

// Message is one append-only chat record. Role is "user" or "assistant".
type Message struct {
	ID        uint
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// SessionInfo summarizes one chat session for the admin browser.
type SessionInfo struct {
	SessionID    string
	LastActivity time.Time
	MessageCount int
}

type itemRow struct {
	ID       uint   `gorm:"primaryKey"`
	Title    string `gorm:"size:512;not null"`
	Author   string `gorm:"size:256;not null"`
	Price    int64  `gorm:"not null"`
	Stock    int    `gorm:"not null"`
	Category string `gorm:"size:256"`
	// CategoryNorm mirrors Category lowercased with diacritics stripped so
	// substring category matches behave the same on every driver.
	CategoryNorm string `gorm:"size:256;index"`
}

func (itemRow) TableName() string { return "items" }

func (r itemRow) toItem() Item {
	return Item{ID: r.ID, Title: r.Title, Author: r.Author, Price: r.Price, Stock: r.Stock, Category: r.Category}
}

func itemRowFrom(it Item) itemRow {
	return itemRow{
		ID:           it.ID,
		Title:        it.Title,
		Author:       it.Author,
		Price:        it.Price,
		Stock:        it.Stock,
		Category:     it.Category,
		CategoryNorm: textnorm.Fold(it.Category),
	}
}

type orderRow struct {
	ID           uint   `gorm:"primaryKey"`
	CustomerName string `gorm:"size:256;not null"`
	Phone        string `gorm:"size:64;not null"`
	Address      string `gorm:"size:512;not null"`
	ItemID       uint   `gorm:"not null;index"`
	Quantity     int    `gorm:"not null"`
	Status       string `gorm:"size:32;not null;index"`
	SessionID    string `gorm:"size:191;not null;index"`
	CreatedAt    time.Time
}

func (orderRow) TableName() string { return "orders" }

func (r orderRow) toOrder() Order {
	return Order{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		Phone:        r.Phone,
		Address:      r.Address,
		ItemID:       r.ItemID,
		Quantity:     r.Quantity,
		Status:       OrderStatus(r.Status),
		SessionID:    r.SessionID,
		CreatedAt:    r.CreatedAt,
	}
}

type messageRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:191;not null;index"`
	Role      string `gorm:"size:16;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (messageRow) TableName() string { return "chat_messages" }

func (r messageRow) toMessage() Message {
	return Message{ID: r.ID, SessionID: r.SessionID, Role: r.Role, Content: r.Content, CreatedAt: r.CreatedAt}
}

type chatSessionRow struct {
	SessionID string `gorm:"primaryKey;size:191"`
	CreatedAt time.Time
}

func (chatSessionRow) TableName() string { return "chat_sessions" }
