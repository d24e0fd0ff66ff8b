/*
Package bus contains the in-process relay between the transport and every session that
observes it.

The transport is the only publisher. Any number of subscribers may register; each published
frame is handed to every subscriber registered when the publish cycle started, synchronously
and in publish order. A failing or panicking subscriber is logged and skipped so the remaining
subscribers still receive the frame.
*/
package bus

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"lumochat/internal/pkg/logx"
	"lumochat/internal/pkg/metrics"
)

// Handler receives one raw frame. A returned error is logged; it never stops delivery.
// Handlers must not call Publish on the bus that invoked them.
type Handler func(frame string) error

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus fans out raw frames to registered handlers.
type Bus struct {
	// publishMu serializes publish cycles so every subscriber observes the same order.
	publishMu sync.Mutex

	// mu protects subscribers, nextID and closed.
	mu sync.RWMutex

	// subscribers in registration order.
	subscribers []subscriber

	nextID uint64
	closed bool

	logger zerolog.Logger
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{
		logger: logx.Component("bus"),
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id   uint64
	bus  *Bus
	once sync.Once
}

// Unsubscribe removes the handler. It is idempotent, safe on a nil handle and safe after the
// bus has been closed. It takes effect before the next publish cycle; a cycle already in
// progress may still deliver its frame.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() {
		s.bus.unsubscribe(s.id)
	})
}

// Subscribe registers handler and returns its subscription handle. Subscribing to a closed bus
// returns an inert handle whose handler is never invoked.
func (b *Bus) Subscribe(handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || handler == nil {
		return &Subscription{}
	}

	b.nextID++
	id := b.nextID
	b.subscribers = append(b.subscribers, subscriber{id: id, handler: handler})

	metrics.Incr(metrics.BusSubscribers, 1)
	b.logger.Debug().Uint64("subscription_id", id).Int("subscribers", len(b.subscribers)).Msg("Subscriber registered.")

	return &Subscription{id: id, bus: b}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub.id == id {
			// Copy instead of splicing in place so snapshots held by an in-flight publish stay intact.
			next := make([]subscriber, 0, len(b.subscribers)-1)
			next = append(next, b.subscribers[:i]...)
			next = append(next, b.subscribers[i+1:]...)
			b.subscribers = next

			metrics.Decr(metrics.BusSubscribers, 1)
			b.logger.Debug().Uint64("subscription_id", id).Int("subscribers", len(b.subscribers)).Msg("Subscriber removed.")
			return
		}
	}
}

// Publish delivers frame to every subscriber registered when the call starts.
func (b *Bus) Publish(frame string) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.RLock()
	snapshot := b.subscribers
	b.mu.RUnlock()

	metrics.Incr(metrics.BusPublished, 1)

	for _, sub := range snapshot {
		if err := b.deliver(sub, frame); err != nil {
			metrics.Incr(metrics.BusHandlerErrors, 1)
			b.logger.Warn().Err(err).Uint64("subscription_id", sub.id).Msg("Subscriber failed to handle frame.")
			continue
		}
		metrics.Incr(metrics.BusDelivered, 1)
	}
}

// deliver runs one handler, converting a panic into an error.
func (b *Bus) deliver(sub subscriber, frame string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()

	return sub.handler(frame)
}

// Len returns the number of registered subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Close drops every registration. Later Subscribe calls return inert handles and later
// Unsubscribe calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	metrics.Decr(metrics.BusSubscribers, int64(len(b.subscribers)))
	b.subscribers = nil
	b.closed = true

	b.logger.Info().Msg("Bus closed.")
}
