package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pixlkit/pixl/pkg/book"
	"github.com/pixlkit/pixl/pkg/draw"
)

func TestMemoryBusSince(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(0)
	defer bus.Close()

	start := time.Now().UTC().Add(-time.Second)
	first := NewBookLoaded("a.pxl")
	first.Timestamp = start
	second := NewBookSaved("a.pxl")
	second.Timestamp = start.Add(time.Millisecond)
	other := NewBookSaved("b.pxl")

	for _, e := range []Event{first, second, other} {
		if err := bus.Emit(ctx, e); err != nil {
			t.Fatalf("Emit() error: %v", err)
		}
	}

	got, err := bus.Since(ctx, "a.pxl", start)
	if err != nil {
		t.Fatalf("Since() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != second.ID {
		t.Errorf("Since() = %v, want only the second event", got)
	}

	got, _ = bus.Since(ctx, "a.pxl", time.Time{})
	if len(got) != 2 {
		t.Errorf("Since(zero) returned %d events, want 2", len(got))
	}

	got, _ = bus.Since(ctx, "missing.pxl", time.Time{})
	if len(got) != 0 {
		t.Errorf("Since() on unknown book returned %d events", len(got))
	}
}

func TestMemoryBusPrune(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(0)
	defer bus.Close()

	base := time.Now().UTC()
	for i := range 4 {
		e := NewBookSaved("a.pxl")
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		bus.Emit(ctx, e)
	}

	if err := bus.Prune(ctx, "a.pxl", base.Add(time.Second)); err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	got, _ := bus.Since(ctx, "a.pxl", time.Time{})
	if len(got) != 2 {
		t.Fatalf("after Prune: %d events, want 2", len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("oldest kept = %v, want %v", got[0].Timestamp, base.Add(2*time.Second))
	}
}

func TestMemoryBusLimit(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(3)
	defer bus.Close()

	var ids []string
	for range 5 {
		e := NewBookSaved("a.pxl")
		ids = append(ids, e.ID.String())
		bus.Emit(ctx, e)
	}

	got, _ := bus.Since(ctx, "a.pxl", time.Time{})
	var gotIDs []string
	for _, e := range got {
		gotIDs = append(gotIDs, e.ID.String())
	}
	if diff := cmp.Diff(ids[2:], gotIDs); diff != "" {
		t.Errorf("kept events mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryBusSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewMemoryBus(0)
	defer bus.Close()

	ch, err := bus.Subscribe(ctx, "a.pxl")
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	bus.Emit(context.Background(), NewBookSaved("b.pxl"))
	hb := NewHeartbeat("a.pxl")
	bus.Emit(context.Background(), hb)

	select {
	case e := <-ch:
		if e.ID != hb.ID {
			t.Errorf("received %s event, want the heartbeat", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	if got, _ := bus.Since(context.Background(), "a.pxl", time.Time{}); len(got) != 0 {
		t.Errorf("heartbeat was recorded: %v", got)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel delivered after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemoryBusClose(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(0)
	ch, _ := bus.Subscribe(ctx, "a.pxl")

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscription still open after Close")
	}
	if err := bus.Emit(ctx, NewBookSaved("a.pxl")); !errors.Is(err, ErrClosed) {
		t.Errorf("Emit() after Close = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe(ctx, "a.pxl"); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() after Close = %v, want ErrClosed", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestEventJSON(t *testing.T) {
	op := draw.DrawPixel{X: 1, Y: 2, Color: book.RGBA(1, 2, 3, 4)}
	in := NewDrawingOperation("a.pxl", op)

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var out Event
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if out.ID != in.ID || out.Type != DrawingOperation || out.Filename != "a.pxl" {
		t.Errorf("decoded event = %+v", out)
	}
	if out.Operation == nil {
		t.Fatal("operation missing after round trip")
	}
	if diff := cmp.Diff(draw.Operation(op), out.Operation.Op); diff != "" {
		t.Errorf("operation mismatch (-want +got):\n%s", diff)
	}

	frame := NewFrameChanged("a.pxl", 3)
	data, _ = json.Marshal(frame)
	var fields map[string]any
	json.Unmarshal(data, &fields)
	if fields["frame_index"] != 3.0 {
		t.Errorf("frame_index = %v, want 3", fields["frame_index"])
	}
	if _, ok := fields["operation"]; ok {
		t.Error("frame_changed event carries an operation field")
	}
}
