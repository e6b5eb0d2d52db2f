package events

import (
	"context"
	"sync"
	"time"
)

// subscriberBuffer is the channel capacity of each subscription. A
// subscriber that falls this far behind misses events.
const subscriberBuffer = 64

// MemoryBus keeps events in process.
type MemoryBus struct {
	mu      sync.RWMutex
	history map[string][]Event
	subs    map[string]map[chan Event]struct{}
	limit   int
	closed  bool
}

// NewMemoryBus returns a MemoryBus keeping at most limit events per book.
// A limit of zero or less keeps everything until Prune.
func NewMemoryBus(limit int) *MemoryBus {
	return &MemoryBus{
		history: make(map[string][]Event),
		subs:    make(map[string]map[chan Event]struct{}),
		limit:   limit,
	}
}

// Emit implements Bus. Heartbeats are delivered but not recorded.
func (b *MemoryBus) Emit(ctx context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	if e.Type != Heartbeat {
		h := append(b.history[e.Filename], e)
		if b.limit > 0 && len(h) > b.limit {
			h = append([]Event(nil), h[len(h)-b.limit:]...)
		}
		b.history[e.Filename] = h
	}

	for ch := range b.subs[e.Filename] {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Since implements Bus.
func (b *MemoryBus) Since(ctx context.Context, filename string, t time.Time) ([]Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	var out []Event
	for _, e := range b.history[filename] {
		if e.Timestamp.After(t) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Prune implements Bus.
func (b *MemoryBus) Prune(ctx context.Context, filename string, olderThan time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	h := b.history[filename]
	kept := h[:0]
	for _, e := range h {
		if e.Timestamp.After(olderThan) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(b.history, filename)
		return nil
	}
	b.history[filename] = kept
	return nil
}

// Subscribe implements Bus.
func (b *MemoryBus) Subscribe(ctx context.Context, filename string) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	ch := make(chan Event, subscriberBuffer)
	if b.subs[filename] == nil {
		b.subs[filename] = make(map[chan Event]struct{})
	}
	b.subs[filename][ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(filename, ch)
	}()
	return ch, nil
}

func (b *MemoryBus) unsubscribe(filename string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.subs[filename]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(b.subs, filename)
	}
	close(ch)
}

// Close implements Bus. It closes every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for ch := range subs {
			close(ch)
		}
	}
	b.subs = nil
	b.history = nil
	return nil
}

var _ Bus = (*MemoryBus)(nil)
