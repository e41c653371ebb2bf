// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about data source queries, query runs, and API requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the traversal packages
// never import a metrics backend. pkg/metrics ships a Prometheus implementation.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSourceHooks(metrics.SourceHooks())
//	    observability.SetQueryHooks(metrics.QueryHooks())
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Query().OnQueryStart(ctx, "references", root)
//	// ... run the query ...
//	observability.Query().OnQueryComplete(ctx, "references", count, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Source Hooks
// =============================================================================

// SourceHooks receives events from data source queries. backend names the
// source implementation ("memory", "redis", "mongo"); op names the query
// ("adjacent:referenced", "descriptors", "flags", ...).
type SourceHooks interface {
	// OnSourceQuery records one answered query. count is the number of
	// elements yielded for sequence queries and 1 for scalar ones.
	OnSourceQuery(ctx context.Context, backend, op string, count int, duration time.Duration)

	// OnSourceError records a query that failed.
	OnSourceError(ctx context.Context, backend, op string, err error)
}

// =============================================================================
// Query Hooks
// =============================================================================

// QueryHooks receives events from query runs.
type QueryHooks interface {
	// OnQueryStart records the start of a query rooted at root.
	OnQueryStart(ctx context.Context, relation, root string)

	// OnQueryComplete records the end of a query with the number of documents it produced.
	OnQueryComplete(ctx context.Context, relation string, count int, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an incoming request. route is the matched route
	// pattern, not the raw path.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a completed response.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSourceHooks is a no-op implementation of SourceHooks.
type NoopSourceHooks struct{}

func (NoopSourceHooks) OnSourceQuery(context.Context, string, string, int, time.Duration) {}
func (NoopSourceHooks) OnSourceError(context.Context, string, string, error)              {}

// NoopQueryHooks is a no-op implementation of QueryHooks.
type NoopQueryHooks struct{}

func (NoopQueryHooks) OnQueryStart(context.Context, string, string)                        {}
func (NoopQueryHooks) OnQueryComplete(context.Context, string, int, time.Duration, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	sourceHooks SourceHooks = NoopSourceHooks{}
	queryHooks  QueryHooks  = NoopQueryHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetSourceHooks registers custom source hooks.
// This should be called once at application startup before any source is opened.
func SetSourceHooks(h SourceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sourceHooks = h
	}
}

// SetQueryHooks registers custom query hooks.
func SetQueryHooks(h QueryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		queryHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Source returns the registered source hooks.
func Source() SourceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sourceHooks
}

// Query returns the registered query hooks.
func Query() QueryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return queryHooks
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
	sourceHooks = NoopSourceHooks{}
	queryHooks = NoopQueryHooks{}
	httpHooks = NoopHTTPHooks{}
}
