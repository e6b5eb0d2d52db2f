package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pixlkit/pixl/pkg/api"
	"github.com/pixlkit/pixl/pkg/book"
	"github.com/pixlkit/pixl/pkg/client"
	"github.com/pixlkit/pixl/pkg/codec"
	"github.com/pixlkit/pixl/pkg/config"
	"github.com/pixlkit/pixl/pkg/draw"
	"github.com/pixlkit/pixl/pkg/events"
	"github.com/pixlkit/pixl/pkg/library"
	"github.com/pixlkit/pixl/pkg/storage/mongo"
)

// books is what the book commands need, served either by an in-process
// library or by a remote server.
type books interface {
	List(ctx context.Context) ([]codec.Info, error)
	Get(ctx context.Context, filename string) (*book.Book, error)
	Create(ctx context.Context, filename string, width, height, frames int) (string, error)
	Update(ctx context.Context, filename string, ops []draw.Operation) (int, error)
	Path(ctx context.Context) (string, error)
	SetPath(ctx context.Context, dir string) error
	Close() error
}

// openBooks returns the remote backend with --remote, else a library on
// the configured storage.
func (c *CLI) openBooks(ctx context.Context) (books, error) {
	if c.remote {
		cl, err := client.New(c.serverURL)
		if err != nil {
			return nil, err
		}
		loggerFromContext(ctx).Debug("Using server", "url", cl.URL())
		return remoteBooks{cl}, nil
	}

	lib, closeFn, err := openLibrary(ctx, c.cfg, loggerFromContext(ctx), false)
	if err != nil {
		return nil, err
	}
	return localBooks{lib: lib, close: closeFn}, nil
}

// openLibrary wires the configured storage and, when withEvents is set,
// the configured event bus into a library.Service. The returned function
// releases both.
func openLibrary(ctx context.Context, cfg config.Config, logger *log.Logger, withEvents bool) (*library.Service, func() error, error) {
	var (
		store   library.Store
		closers []func() error
	)

	switch cfg.Storage.Backend {
	case config.StorageMongo:
		ms, err := mongo.Open(ctx, mongo.Config{
			URI:        cfg.Storage.MongoURI,
			Database:   cfg.Storage.MongoDatabase,
			Collection: cfg.Storage.MongoCollection,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo storage: %w", err)
		}
		store = ms
		closers = append(closers, func() error { return ms.Close(context.Background()) })
		logger.Debug("Storage", "backend", "mongo", "database", cfg.Storage.MongoDatabase)
	default:
		store = codec.NewFileService(cfg.Storage.Path)
		logger.Debug("Storage", "backend", "file", "path", cfg.Storage.Path)
	}

	var bus events.Bus
	if withEvents {
		switch cfg.Events.Backend {
		case config.EventsRedis:
			rb := events.NewRedisBus(newRedisClient(cfg.Events), cfg.Events.History)
			bus = rb
			logger.Debug("Events", "backend", "redis", "addr", cfg.Events.RedisAddr)
		default:
			bus = events.NewMemoryBus(cfg.Events.History)
			logger.Debug("Events", "backend", "memory", "history", cfg.Events.History)
		}
		closers = append(closers, bus.Close)
	}

	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return library.New(store, bus, logger), closeAll, nil
}

// =============================================================================
// Local
// =============================================================================

type localBooks struct {
	lib   *library.Service
	close func() error
}

func (l localBooks) List(ctx context.Context) ([]codec.Info, error) { return l.lib.List(ctx) }

func (l localBooks) Get(ctx context.Context, filename string) (*book.Book, error) {
	return l.lib.Get(ctx, filename)
}

func (l localBooks) Create(ctx context.Context, filename string, width, height, frames int) (string, error) {
	b, err := l.lib.Create(ctx, filename, width, height, frames)
	if err != nil {
		return "", err
	}
	return l.lib.Location(b.Filename), nil
}

func (l localBooks) Update(ctx context.Context, filename string, ops []draw.Operation) (int, error) {
	return l.lib.Update(ctx, filename, ops)
}

func (l localBooks) Path(context.Context) (string, error) { return l.lib.Path() }
func (l localBooks) SetPath(_ context.Context, dir string) error {
	return l.lib.SetPath(dir)
}
func (l localBooks) Close() error { return l.close() }

// =============================================================================
// Remote
// =============================================================================

type remoteBooks struct {
	*client.Client
}

func (r remoteBooks) List(ctx context.Context) ([]codec.Info, error) { return r.ListBooks(ctx) }

func (r remoteBooks) Get(ctx context.Context, filename string) (*book.Book, error) {
	return r.GetBook(ctx, filename)
}

func (r remoteBooks) Create(ctx context.Context, filename string, width, height, frames int) (string, error) {
	res, err := r.CreateBook(ctx, api.CreateBook{Filename: filename, Width: width, Height: height, Frames: frames})
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

func (r remoteBooks) Update(ctx context.Context, filename string, ops []draw.Operation) (int, error) {
	return r.UpdateBook(ctx, filename, ops)
}

func (r remoteBooks) Path(ctx context.Context) (string, error) { return r.GetPath(ctx) }
func (r remoteBooks) Close() error                            { return nil }
