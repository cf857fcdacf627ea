// Package events fans out in-process events to cancellable subscriptions.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type Subscription[T any] struct {
	ID     uuid.UUID
	C      <-chan T
	cancel func()
}

// Cancel unregisters the subscription and closes C. Safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.cancel()
}

type Broker[T any] struct {
	log    *slog.Logger
	buffer int

	mu     sync.RWMutex
	subs   map[uuid.UUID]chan T
	closed bool
}

func NewBroker[T any](log *slog.Logger, buffer int) *Broker[T] {
	return &Broker[T]{
		log:    log,
		buffer: buffer,
		subs:   make(map[uuid.UUID]chan T),
	}
}

// Subscribe registers a new subscriber. The subscription is cancelled when ctx is done.
func (b *Broker[T]) Subscribe(ctx context.Context) *Subscription[T] {
	id := uuid.New()
	ch := make(chan T, b.buffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs[id] = ch
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return &Subscription[T]{ID: id, C: ch, cancel: cancel}
}

// Publish delivers event to every subscriber without blocking.
// Subscribers whose buffer is full miss the event.
func (b *Broker[T]) Publish(event T) {
	const op = "events.Broker.Publish"
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.log.Warn("subscriber buffer full, event dropped", "op", op, "subscription", id)
		}
	}
}

func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close cancels every subscription. Later subscriptions receive a closed channel.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
