package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tdvu/bookstore-agent/logging"
)

// EventType classifies an order lifecycle event.
type EventType string

const (
	EventNewOrder       EventType = "new_order"
	EventOrderApproved  EventType = "order_approved"
	EventOrderCancelled EventType = "order_cancelled"
)

// Event describes one order lifecycle change.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	OrderID   uint      `json:"order_id"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// Handler consumes delivered events.
type Handler func(ctx context.Context, ev Event)

// Hub accepts events for asynchronous delivery.
type Hub interface {
	// Publish enqueues an event without blocking. Events are dropped with
	// a warning when the queue is full.
	Publish(ev Event)
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(typ EventType, orderID uint, sessionID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		OrderID:   orderID,
		SessionID: sessionID,
		At:        time.Now().UTC(),
	}
}

// Dispatcher is a channel-backed Hub delivering events to registered handlers
// on a single background goroutine.
type Dispatcher struct {
	queue  chan Event
	logger logging.Logger

	mu       sync.RWMutex
	handlers []Handler

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

var _ Hub = (*Dispatcher)(nil)

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	// QueueSize bounds the pending event buffer.
	QueueSize int

	Logger logging.Logger
}

// NewDispatcher creates and starts a dispatcher.
func NewDispatcher(optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{QueueSize: 64, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	d := &Dispatcher{
		queue:  make(chan Event, opts.QueueSize),
		logger: opts.Logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Subscribe registers a handler for all subsequent events.
func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Publish implements Hub. Publishing after Close is a no-op; the queue channel
// is never closed so a concurrent Publish cannot panic.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case <-d.stop:
		return
	default:
	}
	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("notification queue full, dropping event",
			"event_id", ev.ID, "type", ev.Type, "order_id", ev.OrderID)
	}
}

// Close stops the dispatcher after draining already-queued events.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		close(d.stop)
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()
	for _, h := range handlers {
		h(context.Background(), ev)
	}
}
