// Package eventbus is an in-process publish/subscribe bus used to stream
// progress of long running batches (trials, sweeps) to whoever reports it.
package eventbus

import "sync"

const defaultBuffer = 8

// TypedBus fans events of type T out to subscriber channels.
type TypedBus[T any] struct {
	mu     sync.RWMutex
	subs   []chan T
	buffer int
	closed bool
}

// NewTyped creates a bus whose subscriber channels hold up to buffer
// pending events. A non-positive buffer uses a small default.
func NewTyped[T any](buffer int) *TypedBus[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &TypedBus[T]{buffer: buffer}
}

// Publish hands e to every subscriber. Delivery never blocks: a subscriber
// whose buffer is full misses the event. Publishing on a nil bus is a no-op.
func (b *TypedBus[T]) Publish(e T) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber. The returned channel is closed by
// Unsubscribe or Close.
func (b *TypedBus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes the bus and every subscriber channel.
func (b *TypedBus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
