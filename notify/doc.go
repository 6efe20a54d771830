// Package notify fans out order lifecycle events to interested listeners.
// Producers enqueue onto a bounded channel and never block; a dispatcher
// goroutine delivers to handlers in order. Delivery is fire-and-forget:
// when the queue is full the event is dropped with a warning rather than
// stalling the business path.
package notify
