package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine and the test
// to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDraws(t *testing.T) {
	var buf syncBuffer
	s := newSpinnerTo(context.Background(), &buf, "Exporting 3 frames...")
	s.interval = time.Millisecond
	s.Start()
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "Exporting 3 frames...") {
		if time.Now().After(deadline) {
			t.Fatal("spinner never drew its message")
		}
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	if got := buf.String(); !strings.HasSuffix(got, "\r") {
		t.Errorf("Stop() should clear the line, output ends with %q", got[max(len(got)-8, 0):])
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after an explicit Stop")
	}
}

func TestSpinnerWithoutTerminal(t *testing.T) {
	s := newSpinnerTo(context.Background(), nil, "quiet")
	s.Start()
	s.Stop()
}

func TestSpinnerParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf syncBuffer
	s := newSpinnerTo(ctx, &buf, "Waiting...")
	s.Start()
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked after the parent context was cancelled")
	}
	if !s.Cancelled() {
		t.Error("Cancelled() = false after the parent context was cancelled")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	tests := []struct {
		name  string
		start bool
	}{
		{"started", true},
		{"never started", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSpinnerTo(context.Background(), &syncBuffer{}, "x")
			if tt.start {
				s.Start()
			}
			s.Stop()
			s.Stop()
			s.Start()
		})
	}
}
