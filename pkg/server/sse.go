package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	perrors "github.com/pixlkit/pixl/pkg/errors"
	"github.com/pixlkit/pixl/pkg/events"
)

// stream serves the events of one book as Server-Sent Events. With
// ?since, recorded events newer than that time are replayed first. A
// heartbeat event is written whenever the stream has been idle for the
// heartbeat interval.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	if err := perrors.ValidateFilename(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	bus := s.lib.Events()
	if bus == nil {
		s.writeError(w, r, errNoBus)
		return
	}
	since, err := sinceParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	live, err := bus.Subscribe(ctx, name)
	if err != nil {
		s.writeError(w, r, perrors.Wrap(perrors.ErrCodeInternal, err, "subscribe"))
		return
	}

	var replay []events.Event
	if r.URL.Query().Has("since") {
		if replay, err = bus.Since(ctx, name, since); err != nil {
			s.writeError(w, r, perrors.Wrap(perrors.ErrCodeInternal, err, "read events"))
			return
		}
	}

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return
	}
	for _, e := range replay {
		if err := writeEvent(w, e); err != nil {
			return
		}
	}
	if err := rc.Flush(); err != nil {
		s.logger.Warn("Event stream not flushable", "err", err)
		return
	}
	s.logger.Debug("Event stream opened", "file", name, "replayed", len(replay))

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		var e events.Event
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case ev, ok := <-live:
			if !ok {
				return
			}
			e = ev
			ticker.Reset(s.heartbeat)
		case <-ticker.C:
			e = events.NewHeartbeat(name)
		}
		if err := writeEvent(w, e); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w io.Writer, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data)
	return err
}
