package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

// EventBus fans batch events out to subscribers that live until Close.
// Publishing never blocks: an event a full subscriber cannot take is dropped
// and counted.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	closed      bool

	dropped atomic.Uint64
}

func New() *EventBus {
	return &EventBus{}
}

// Subscribe returns a channel receiving every event published after the call.
// The channel is closed by Close, after which buffered events can still be read.
func (b *EventBus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// PublishEvent stamps and delivers event. It reports false when ctx is done or
// the bus is closed.
func (b *EventBus) PublishEvent(ctx context.Context, event Event) bool {
	if ctx != nil && ctx.Err() != nil {
		return false
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}

	return true
}

// Dropped is the number of deliveries skipped because a subscriber was full.
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops publishing and closes every subscriber channel. It is safe to
// call more than once.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
