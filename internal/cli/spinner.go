package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a status line while a long step runs. It draws nothing
// when its writer is not a terminal, so piped output stays clean.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration
	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  chan struct{}
	start    sync.Once
	stop     sync.Once
	mu       sync.Mutex
	frames   int
}

// newSpinnerWithContext creates a stderr spinner that stops on its own when
// ctx is done.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	var w io.Writer
	if isatty.IsTerminal(os.Stderr.Fd()) {
		w = os.Stderr
	}
	return newSpinnerTo(ctx, w, message)
}

// newSpinnerTo creates a spinner drawing to w. A nil w disables drawing.
func newSpinnerTo(parent context.Context, w io.Writer, message string) *Spinner {
	ctx, cancel := context.WithCancel(parent)
	return &Spinner{
		w:        w,
		message:  message,
		interval: 80 * time.Millisecond,
		parent:   parent,
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
	}
}

// Start begins the animation. Calling it again has no effect.
func (s *Spinner) Start() {
	s.start.Do(func() {
		go s.run()
	})
}

func (s *Spinner) run() {
	defer close(s.stopped)
	if s.w == nil {
		<-s.ctx.Done()
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			s.clearLine()
			return
		case <-ticker.C:
			s.mu.Lock()
			frame := spinnerFrames[s.frames%len(spinnerFrames)]
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
			s.frames++
			s.mu.Unlock()
		}
	}
}

// Stop ends the animation and clears the line. It is safe to call more
// than once, and before Start.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		s.cancel()
		s.start.Do(func() { close(s.stopped) })
		<-s.stopped
	})
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// Cancelled reports whether the parent context was done, as opposed to
// the spinner being stopped by its caller.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
