// Package server exposes a library.Service over HTTP.
//
// Routes:
//
//	GET  /                                  health
//	GET  /path, PUT /path                   base path of the book store
//	GET  /books, POST /books                list and create books
//	GET  /books/{filename}                  book with base64 frame data
//	PUT  /books/{filename}                  apply a batch of operations
//	GET  /books/{filename}/frames/{frame}   encoded frame (?format=png|bmp&scale=N&raw=1)
//	GET  /books/{filename}/history          recorded events (?since=RFC3339)
//	GET  /books/{filename}/events           Server-Sent Events stream
//
// Every failure is a JSON body {"error": message, "code": CODE}.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pixlkit/pixl/pkg/library"
	"github.com/pixlkit/pixl/pkg/render"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":3000"

	// DefaultHeartbeat is the interval between heartbeat events on an
	// open event stream.
	DefaultHeartbeat = 30 * time.Second

	maxBodyBytes    = 32 << 20
	shutdownTimeout = 5 * time.Second
)

// Server serves the pixl HTTP API.
type Server struct {
	lib       *library.Service
	exporter  *render.Exporter
	logger    *log.Logger
	heartbeat time.Duration
	router    chi.Router

	// done is closed on shutdown so open event streams end.
	done     chan struct{}
	doneOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithHeartbeat sets the heartbeat interval of event streams.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// New returns a Server for lib. A nil exporter encodes without caching and
// a nil logger uses log.Default().
func New(lib *library.Service, exporter *render.Exporter, logger *log.Logger, opts ...Option) *Server {
	if exporter == nil {
		exporter = render.NewExporter(nil, nil, 0)
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		lib:       lib,
		exporter:  exporter,
		logger:    logger,
		heartbeat: DefaultHeartbeat,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errNoRoute)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errMethod)
	})

	r.Get("/", s.health)
	r.Route("/path", func(r chi.Router) {
		r.Get("/", s.getPath)
		r.Put("/", s.setPath)
	})
	r.Route("/books", func(r chi.Router) {
		r.Get("/", s.listBooks)
		r.Post("/", s.createBook)
		r.Route("/{filename}", func(r chi.Router) {
			r.Get("/", s.getBook)
			r.Put("/", s.updateBook)
			r.Get("/frames/{frame}", s.exportFrame)
			r.Get("/history", s.history)
			r.Get("/events", s.stream)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.shutdownStreams)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdownStreams() {
	s.doneOnce.Do(func() { close(s.done) })
}
