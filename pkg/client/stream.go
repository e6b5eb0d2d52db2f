package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pixlkit/pixl/pkg/events"
	"github.com/pixlkit/pixl/pkg/observability"
)

// Subscribe opens the server's event stream for a book. Events newer than
// since are replayed first; a zero since skips the replay. The channel is
// closed when ctx is done or the stream ends, after which Err on the
// returned Stream reports why.
func (c *Client) Subscribe(ctx context.Context, filename string, since time.Time) (*Stream, error) {
	path := bookPath(filename) + "/events"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.Format(time.RFC3339Nano))
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	observability.HTTP().OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := c.stream.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return nil, err
	}
	observability.HTTP().OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))
	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, unwrapRetryable(err)
	}

	s := &Stream{
		events: make(chan events.Event, 16),
		done:   make(chan struct{}),
	}
	go s.read(ctx, resp)
	return s, nil
}

// Stream is an open event stream.
type Stream struct {
	events chan events.Event
	done   chan struct{}
	err    error
}

// Events returns the channel of received events, heartbeats included.
func (s *Stream) Events() <-chan events.Event {
	return s.events
}

// Err returns the error that ended the stream, if any, once the events
// channel is closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

func (s *Stream) read(ctx context.Context, resp *http.Response) {
	defer close(s.done)
	defer close(s.events)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	var data strings.Builder
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var e events.Event
			err := json.Unmarshal([]byte(data.String()), &e)
			data.Reset()
			if err != nil {
				s.err = err
				return
			}
			select {
			case s.events <- e:
			case <-ctx.Done():
				return
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if ctx.Err() == nil {
		s.err = sc.Err()
	}
}
