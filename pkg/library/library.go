// Package library is the orchestration layer between transports and the
// core: it serializes access to a book store, runs drawing batches through
// the engine, persists the result and announces what changed.
//
// Reads (List, Get, Path) share a read lock; Create, Update and SetPath
// take the write lock, so an Update is load, apply, save with no other
// writer in between. A failing batch leaves the stored book untouched.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pixlkit/pixl/pkg/book"
	"github.com/pixlkit/pixl/pkg/codec"
	"github.com/pixlkit/pixl/pkg/draw"
	perrors "github.com/pixlkit/pixl/pkg/errors"
	"github.com/pixlkit/pixl/pkg/events"
	"github.com/pixlkit/pixl/pkg/observability"
)

// Store persists books by filename.
type Store interface {
	List(ctx context.Context) ([]codec.Info, error)
	Load(ctx context.Context, filename string) (*book.Book, error)
	Save(ctx context.Context, b *book.Book) error
	Exists(ctx context.Context, filename string) (bool, error)
}

// PathStore is a Store whose base location can change at runtime.
type PathStore interface {
	Store
	Path() string
	SetPath(dir string) error
}

var _ PathStore = (*codec.FileService)(nil)

// Service coordinates a Store, a drawing engine and an event bus.
type Service struct {
	mu     sync.RWMutex
	store  Store
	bus    events.Bus
	engine *draw.Engine
	logger *log.Logger
}

// New returns a Service. A nil bus disables events; a nil logger uses
// log.Default().
func New(store Store, bus events.Bus, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:  store,
		bus:    bus,
		engine: draw.New(),
		logger: logger,
	}
}

// Events returns the service's bus, or nil.
func (s *Service) Events() events.Bus {
	return s.bus
}

// PruneEvents drops recorded events not newer than olderThan for every
// stored book and returns how many books it visited.
func (s *Service) PruneEvents(ctx context.Context, olderThan time.Time) (int, error) {
	if s.bus == nil {
		return 0, nil
	}
	infos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, info := range infos {
		if err := s.bus.Prune(ctx, info.Filename, olderThan); err != nil {
			return 0, fmt.Errorf("prune events for %s: %w", info.Filename, err)
		}
	}
	return len(infos), nil
}

// List returns the stored books.
func (s *Service) List(ctx context.Context) ([]codec.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.List(ctx)
}

// Get loads a book and emits book_loaded. A missing book fails with
// NOT_FOUND.
func (s *Service) Get(ctx context.Context, filename string) (*book.Book, error) {
	if err := perrors.ValidateFilename(filename); err != nil {
		return nil, err
	}

	s.mu.RLock()
	b, err := s.load(ctx, filename)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.NewBookLoaded(filename))
	return b, nil
}

// Create validates the request, then stores a new transparent book. An
// existing book with the same name is overwritten.
func (s *Service) Create(ctx context.Context, filename string, width, height, frames int) (*book.Book, error) {
	if err := perrors.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if err := perrors.ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	if err := perrors.ValidateFrameCount(frames); err != nil {
		return nil, err
	}

	b, err := book.New(filename, uint16(width), uint16(height), frames)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("Created book", "file", filename, "size", fmtSize(b), "frames", frames)
	return b, nil
}

// Update applies ops to the named book and saves it. It returns the
// number of operations applied. If any operation fails the error is
// returned and nothing is saved. After a successful save one
// drawing_operation event per operation is emitted, then book_saved.
func (s *Service) Update(ctx context.Context, filename string, ops []draw.Operation) (int, error) {
	if err := perrors.ValidateFilename(filename); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx, filename)
	if err != nil {
		return 0, err
	}

	hooks := observability.Draw()
	hooks.OnApplyStart(ctx, filename, len(ops))
	start := time.Now()
	err = s.engine.Apply(b, ops)
	hooks.OnApplyComplete(ctx, filename, len(ops), time.Since(start), err)
	if err != nil {
		s.logger.Warn("Drawing failed", "file", filename, "err", err)
		return 0, err
	}

	if err := s.save(ctx, b); err != nil {
		return 0, err
	}
	s.logger.Debug("Applied operations", "file", filename, "ops", len(ops), "elapsed", time.Since(start).Round(time.Microsecond))

	for _, op := range ops {
		s.emit(ctx, events.NewDrawingOperation(filename, op))
	}
	s.emit(ctx, events.NewBookSaved(filename))
	return len(ops), nil
}

// Path returns the store's base location. Stores without one fail with
// UNSUPPORTED.
func (s *Service) Path() (string, error) {
	ps, ok := s.store.(PathStore)
	if !ok {
		return "", perrors.New(perrors.ErrCodeUnsupported, "storage backend has no base path")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ps.Path(), nil
}

// SetPath changes the store's base location.
func (s *Service) SetPath(dir string) error {
	ps, ok := s.store.(PathStore)
	if !ok {
		return perrors.New(perrors.ErrCodeUnsupported, "storage backend has no base path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ps.SetPath(dir); err != nil {
		return err
	}
	s.logger.Info("Base path changed", "path", dir)
	return nil
}

// Location describes where filename is stored: the file path for
// path-based stores, the bare name otherwise.
func (s *Service) Location(filename string) string {
	if ps, ok := s.store.(PathStore); ok {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return filepath.Join(ps.Path(), filename)
	}
	return filename
}

// load must be called with s.mu held.
func (s *Service) load(ctx context.Context, filename string) (*book.Book, error) {
	start := time.Now()
	b, err := s.store.Load(ctx, filename)
	observability.Store().OnLoad(ctx, filename, time.Since(start), err)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, perrors.Wrap(perrors.ErrCodeNotFound, err, "file not found: %s", filename)
	}
	return b, err
}

// save must be called with s.mu held for writing.
func (s *Service) save(ctx context.Context, b *book.Book) error {
	start := time.Now()
	err := s.store.Save(ctx, b)
	observability.Store().OnSave(ctx, b.Filename, codec.EncodedSize(b), time.Since(start), err)
	return err
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, e); err != nil {
		s.logger.Warn("Event not delivered", "file", e.Filename, "type", e.Type, "err", err)
	}
}

func fmtSize(b *book.Book) string {
	return fmt.Sprintf("%dx%d", b.Width, b.Height)
}
