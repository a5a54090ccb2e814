// Package observability provides hooks for metrics, tracing, and logging.
//
// Library packages emit events through the registered hooks without
// depending on any particular backend. The CLI registers [LogHooks] at
// startup; tests and embedders may register their own.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetLaunchHooks(observability.NewLogHooks(logger))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Launch().OnAcquireStart(ctx, versionID, tasks)
//	// ... fetch artifacts ...
//	observability.Launch().OnAcquireComplete(ctx, versionID, fetched, failed, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Launch Hooks
// =============================================================================

// LaunchHooks receives events from the launch pipeline.
type LaunchHooks interface {
	// Resolution events
	OnResolveComplete(ctx context.Context, versionID string, libraries, natives, assets int, err error)

	// Acquisition events
	OnAcquireStart(ctx context.Context, versionID string, tasks int)
	OnAcquireComplete(ctx context.Context, versionID string, fetched, failed int, duration time.Duration)
	OnBackgroundComplete(ctx context.Context, versionID string, fetched, failed int, duration time.Duration)

	// Process events
	OnSpawn(ctx context.Context, executable string, pid int)
	OnOutcome(ctx context.Context, versionID string, outcome string, duration time.Duration, err error)
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

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLaunchHooks is a no-op implementation of LaunchHooks.
type NoopLaunchHooks struct{}

func (NoopLaunchHooks) OnResolveComplete(context.Context, string, int, int, int, error)       {}
func (NoopLaunchHooks) OnAcquireStart(context.Context, string, int)                           {}
func (NoopLaunchHooks) OnAcquireComplete(context.Context, string, int, int, time.Duration)    {}
func (NoopLaunchHooks) OnBackgroundComplete(context.Context, string, int, int, time.Duration) {}
func (NoopLaunchHooks) OnSpawn(context.Context, string, int)                                  {}
func (NoopLaunchHooks) OnOutcome(context.Context, string, string, time.Duration, error)       {}

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
// Registry
// =============================================================================

var registry = struct {
	sync.RWMutex
	launch LaunchHooks
	cache  CacheHooks
	http   HTTPHooks
}{
	launch: NoopLaunchHooks{},
	cache:  NoopCacheHooks{},
	http:   NoopHTTPHooks{},
}

// SetLaunchHooks replaces the launch hooks. A nil h is ignored.
func SetLaunchHooks(h LaunchHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.launch = h
	registry.Unlock()
}

// SetCacheHooks replaces the cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.cache = h
	registry.Unlock()
}

// SetHTTPHooks replaces the HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.http = h
	registry.Unlock()
}

// Launch returns the active launch hooks.
func Launch() LaunchHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.launch
}

// Cache returns the active cache hooks.
func Cache() CacheHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.cache
}

// HTTP returns the active HTTP hooks.
func HTTP() HTTPHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.http
}

// Reset restores the no-op hooks. Tests call it in cleanup.
func Reset() {
	registry.Lock()
	defer registry.Unlock()
	registry.launch = NoopLaunchHooks{}
	registry.cache = NoopCacheHooks{}
	registry.http = NoopHTTPHooks{}
}
