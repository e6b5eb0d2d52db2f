// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries in this module report what they do through small hook
// interfaces instead of depending on a metrics backend. The defaults are
// no-ops; a binary that wants numbers registers its own implementations at
// startup:
//
//	func main() {
//	    observability.SetDrawHooks(&myDrawHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call the registered hooks around the work they do:
//
//	observability.Draw().OnApplyStart(ctx, filename, len(ops))
//	// ... apply ...
//	observability.Draw().OnApplyComplete(ctx, filename, applied, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Draw Hooks
// =============================================================================

// DrawHooks receives events from operation batches applied to a book.
type DrawHooks interface {
	OnApplyStart(ctx context.Context, filename string, ops int)
	OnApplyComplete(ctx context.Context, filename string, applied int, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from book persistence.
type StoreHooks interface {
	// OnLoad records a book load.
	OnLoad(ctx context.Context, filename string, duration time.Duration, err error)

	// OnSave records a book save and the encoded size in bytes.
	OnSave(ctx context.Context, filename string, size int64, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP traffic, both the API client's
// outgoing requests and the server's handled ones.
type HTTPHooks interface {
	// OnRequest records an HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopDrawHooks is a no-op implementation of DrawHooks.
type NoopDrawHooks struct{}

func (NoopDrawHooks) OnApplyStart(context.Context, string, int)                          {}
func (NoopDrawHooks) OnApplyComplete(context.Context, string, int, time.Duration, error) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnLoad(context.Context, string, time.Duration, error)        {}
func (NoopStoreHooks) OnSave(context.Context, string, int64, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	drawHooks  DrawHooks  = NoopDrawHooks{}
	storeHooks StoreHooks = NoopStoreHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetDrawHooks registers custom draw hooks.
// This should be called once at application startup.
func SetDrawHooks(h DrawHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		drawHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Draw returns the registered draw hooks.
func Draw() DrawHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return drawHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	drawHooks = NoopDrawHooks{}
	storeHooks = NoopStoreHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
