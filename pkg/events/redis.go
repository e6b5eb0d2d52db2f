package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus keeps each book's history in a Redis list and delivers live
// events over a pub/sub channel, so every server sharing the Redis sees
// the same stream.
type RedisBus struct {
	client redis.UniversalClient
	limit  int

	mu     sync.Mutex
	closed bool
}

// NewRedisBus returns a bus on client keeping at most limit events per
// book. The bus owns client and closes it in Close.
func NewRedisBus(client redis.UniversalClient, limit int) *RedisBus {
	return &RedisBus{client: client, limit: limit}
}

func historyKey(filename string) string { return "pixl:events:" + filename }
func liveChannel(filename string) string { return "pixl:events:" + filename + ":live" }

func (b *RedisBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Emit implements Bus. Heartbeats are published but not recorded.
func (b *RedisBus) Emit(ctx context.Context, e Event) error {
	if b.isClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if e.Type != Heartbeat {
			key := historyKey(e.Filename)
			p.RPush(ctx, key, data)
			if b.limit > 0 {
				p.LTrim(ctx, key, int64(-b.limit), -1)
			}
		}
		p.Publish(ctx, liveChannel(e.Filename), data)
		return nil
	})
	return err
}

func (b *RedisBus) history(ctx context.Context, filename string) ([]Event, error) {
	raws, err := b.client.LRange(ctx, historyKey(filename), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raws))
	for _, raw := range raws {
		var e Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Since implements Bus.
func (b *RedisBus) Since(ctx context.Context, filename string, t time.Time) ([]Event, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	all, err := b.history(ctx, filename)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, e := range all {
		if e.Timestamp.After(t) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Prune implements Bus. The list is in emission order, so pruning trims
// the leading run of old events.
func (b *RedisBus) Prune(ctx context.Context, filename string, olderThan time.Time) error {
	if b.isClosed() {
		return ErrClosed
	}
	all, err := b.history(ctx, filename)
	if err != nil {
		return err
	}
	n := 0
	for n < len(all) && !all[n].Timestamp.After(olderThan) {
		n++
	}
	if n == 0 {
		return nil
	}
	return b.client.LTrim(ctx, historyKey(filename), int64(n), -1).Err()
}

// Subscribe implements Bus.
func (b *RedisBus) Subscribe(ctx context.Context, filename string) (<-chan Event, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	ps := b.client.Subscribe(ctx, liveChannel(filename))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", filename, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					continue
				}
				select {
				case out <- e:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close implements Bus. Open subscriptions end when the client closes.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

var _ Bus = (*RedisBus)(nil)
