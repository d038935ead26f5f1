package job

import (
	"sync"
	"sync/atomic"
)

const defaultSubscriberBuffer = 64

// Broadcaster fans job events out to live subscribers.
type Broadcaster interface {
	Subscribe() (func(), <-chan Event)
	Publish(evt Event)
	SubscriberCount() int
	StopAll()
}

// BroadcasterOptions configure the default broadcaster implementation.
type BroadcasterOptions struct {
	// Buffer is the per-subscriber channel capacity.
	Buffer int
	// OnDrop is invoked when a subscriber's buffer is full and an event is discarded for it.
	OnDrop func(EventType)
}

// DefaultBroadcaster delivers events without ever blocking the publisher.
// A slow subscriber loses events; other subscribers are unaffected.
type DefaultBroadcaster struct {
	buffer int
	onDrop func(EventType)

	mu      sync.Mutex
	subs    map[chan Event]struct{}
	stopped bool

	dropped atomic.Int64
}

// NewBroadcaster constructs the default broadcaster.
func NewBroadcaster(opts BroadcasterOptions) *DefaultBroadcaster {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &DefaultBroadcaster{
		buffer: buffer,
		onDrop: opts.OnDrop,
		subs:   make(map[chan Event]struct{}),
	}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes the channel;
// it is safe to call more than once. After StopAll the channel is returned already closed.
func (b *DefaultBroadcaster) Subscribe() (func(), <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.stopped {
		close(ch)
		return func() {}, ch
	}
	b.subs[ch] = struct{}{}

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		drainAndClose(ch)
	}
	return unsub, ch
}

// Publish is fire-and-forget to every current subscriber.
func (b *DefaultBroadcaster) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
			if b.onDrop != nil {
				b.onDrop(evt.Type)
			}
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *DefaultBroadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns the number of per-subscriber deliveries discarded so far.
func (b *DefaultBroadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// StopAll closes every subscriber channel and rejects future subscriptions.
func (b *DefaultBroadcaster) StopAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for ch := range b.subs {
		drainAndClose(ch)
		delete(b.subs, ch)
	}
}

// drainAndClose removes any buffered events before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan Event) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Broadcaster = (*DefaultBroadcaster)(nil)
