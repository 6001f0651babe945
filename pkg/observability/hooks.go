// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through a small global registry; binaries decide what
// to do with them. Nothing here depends on a concrete backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetRelaxHooks(&myRelaxHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Relax().OnFieldBuilt(ctx, w, h, total, degenerate, elapsed)
//	// ... relax points ...
//	observability.Relax().OnRunComplete(ctx, iterations, points, elapsed, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Relax Hooks
// =============================================================================

// RelaxHooks receives events from a stippling run.
type RelaxHooks interface {
	// OnFieldBuilt records construction of a density field.
	OnFieldBuilt(ctx context.Context, width, height int, total float64, degenerate bool, duration time.Duration)

	// OnStep records one completed relaxation step.
	OnStep(ctx context.Context, iteration, samples int, duration time.Duration)

	// OnRunComplete records the end of a run, successful or not.
	OnRunComplete(ctx context.Context, iterations, points int, duration time.Duration, err error)

	// OnRenderComplete records artifact rendering for a finished run.
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
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

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records a completed response.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)

	// OnError records a request that failed with an error.
	OnError(ctx context.Context, method, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRelaxHooks is a no-op implementation of RelaxHooks.
type NoopRelaxHooks struct{}

func (NoopRelaxHooks) OnFieldBuilt(context.Context, int, int, float64, bool, time.Duration) {}
func (NoopRelaxHooks) OnStep(context.Context, int, int, time.Duration)                      {}
func (NoopRelaxHooks) OnRunComplete(context.Context, int, int, time.Duration, error)        {}
func (NoopRelaxHooks) OnRenderComplete(context.Context, []string, time.Duration, error)     {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	relaxHooks RelaxHooks = NoopRelaxHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetRelaxHooks registers custom relaxation hooks.
// This should be called once at application startup before any run starts.
func SetRelaxHooks(h RelaxHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		relaxHooks = h
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
// This should be called once at application startup before the server starts.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Relax returns the registered relaxation hooks.
func Relax() RelaxHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return relaxHooks
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
	relaxHooks = NoopRelaxHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
