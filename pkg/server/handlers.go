package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pixlkit/pixl/pkg/api"
	"github.com/pixlkit/pixl/pkg/buildinfo"
	"github.com/pixlkit/pixl/pkg/codec"
	perrors "github.com/pixlkit/pixl/pkg/errors"
	"github.com/pixlkit/pixl/pkg/events"
	"github.com/pixlkit/pixl/pkg/render"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Health{
		Status:  "healthy",
		Service: api.ServiceName,
		Version: buildinfo.Version,
	})
}

func (s *Server) getPath(w http.ResponseWriter, r *http.Request) {
	path, err := s.lib.Path()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Path{Path: path})
}

func (s *Server) setPath(w http.ResponseWriter, r *http.Request) {
	var req api.Path
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.lib.SetPath(req.Path); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.lib.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if books == nil {
		books = []codec.Info{}
	}
	writeJSON(w, http.StatusOK, api.Books{Books: books})
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	var req api.CreateBook
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Frames == 0 {
		req.Frames = codec.DefaultFrameCount
	}

	b, err := s.lib.Create(r.Context(), req.Filename, req.Width, req.Height, req.Frames)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Created{
		Success:  true,
		Filename: b.Filename,
		Path:     s.lib.Location(b.Filename),
	})
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	b, err := s.lib.Get(r.Context(), filenameParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) updateBook(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	if err := perrors.ValidateFilename(name); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req api.UpdateBook
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := s.lib.Update(r.Context(), name, req.Operations)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Updated{
		Success:           true,
		OperationsApplied: n,
		Filename:          name,
	})
}

func (s *Server) exportFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := strconv.Atoi(chi.URLParam(r, "frame"))
	if err != nil {
		s.writeError(w, r, perrors.New(perrors.ErrCodeInvalidInput, "frame must be an integer"))
		return
	}
	opts, err := exportOptions(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.lib.Get(r.Context(), filenameParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.exporter.Export(r.Context(), b, frame, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format, _ := render.ParseFormat(opts.Format)
	w.Header().Set("Content-Type", render.ContentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func exportOptions(q url.Values) (render.Options, error) {
	opts := render.Options{Format: render.FormatPNG, Scale: 1}
	if f := q.Get("format"); f != "" {
		format, err := render.ParseFormat(f)
		if err != nil {
			return opts, err
		}
		opts.Format = format
	}
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.Atoi(v)
		if err != nil {
			return opts, perrors.New(perrors.ErrCodeInvalidInput, "scale must be an integer")
		}
		opts.Scale = scale
	}
	if v := q.Get("raw"); v != "" {
		raw, err := strconv.ParseBool(v)
		if err != nil {
			return opts, perrors.New(perrors.ErrCodeInvalidInput, "raw must be a boolean")
		}
		opts.Raw = raw
	}
	return opts, nil
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
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

	evs, err := bus.Since(r.Context(), name, since)
	if err != nil {
		s.writeError(w, r, perrors.Wrap(perrors.ErrCodeInternal, err, "read events"))
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}
	writeJSON(w, http.StatusOK, api.History{Events: evs})
}

func filenameParam(r *http.Request) string {
	name := chi.URLParam(r, "filename")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func sinceParam(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("since")
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, perrors.New(perrors.ErrCodeInvalidInput, "since must be an RFC 3339 timestamp")
	}
	return t, nil
}
