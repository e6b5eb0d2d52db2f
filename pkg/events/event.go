// Package events records what happens to books and delivers it to live
// subscribers.
//
// Every change made through the library service is announced as an
// [Event]: one drawing_operation event per applied operation, then
// book_saved. Viewers either poll [Bus.Since] or hold a [Bus.Subscribe]
// stream open. Two buses exist:
//
//   - [MemoryBus] keeps history in process; good for a single server.
//   - [RedisBus] keeps history in Redis lists and fans out over pub/sub, so
//     several server instances see each other's events.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pixlkit/pixl/pkg/draw"
)

// Type names an event kind.
type Type string

// Event types.
const (
	DrawingOperation Type = "drawing_operation"
	BookSaved        Type = "book_saved"
	BookLoaded       Type = "book_loaded"
	FrameChanged     Type = "frame_changed"
	Heartbeat        Type = "heartbeat"
)

// Event is one change notification for a book.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Filename  string         `json:"filename"`
	Timestamp time.Time      `json:"timestamp"`
	Type      Type           `json:"type"`
	Operation *draw.Envelope `json:"operation,omitempty"`
	Frame     *int           `json:"frame_index,omitempty"`
}

// ErrClosed is returned by a bus after Close.
var ErrClosed = errors.New("event bus closed")

// Bus stores and distributes events. Implementations are safe for
// concurrent use.
type Bus interface {
	// Emit records e and delivers it to current subscribers of its book.
	Emit(ctx context.Context, e Event) error

	// Since returns the recorded events for filename strictly newer than t,
	// oldest first.
	Since(ctx context.Context, filename string, t time.Time) ([]Event, error)

	// Prune drops recorded events for filename that are not newer than
	// olderThan.
	Prune(ctx context.Context, filename string, olderThan time.Time) error

	// Subscribe streams events for filename until ctx is done or the bus is
	// closed; the channel is closed then.
	Subscribe(ctx context.Context, filename string) (<-chan Event, error)

	Close() error
}

func newEvent(filename string, typ Type) Event {
	return Event{
		ID:        uuid.New(),
		Filename:  filename,
		Timestamp: time.Now().UTC(),
		Type:      typ,
	}
}

// NewDrawingOperation returns the event for one applied operation.
func NewDrawingOperation(filename string, op draw.Operation) Event {
	e := newEvent(filename, DrawingOperation)
	env := draw.Wrap(op)
	e.Operation = &env
	return e
}

// NewBookSaved returns a book_saved event.
func NewBookSaved(filename string) Event {
	return newEvent(filename, BookSaved)
}

// NewBookLoaded returns a book_loaded event.
func NewBookLoaded(filename string) Event {
	return newEvent(filename, BookLoaded)
}

// NewFrameChanged returns a frame_changed event for frame index i.
func NewFrameChanged(filename string, i int) Event {
	e := newEvent(filename, FrameChanged)
	e.Frame = &i
	return e
}

// NewHeartbeat returns a heartbeat event. Heartbeats are sent to
// subscribers and never recorded.
func NewHeartbeat(filename string) Event {
	return newEvent(filename, Heartbeat)
}
