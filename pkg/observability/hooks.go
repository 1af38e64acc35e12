// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about conversion stages and about the lock graph diagnostics
// (orphans and cycles) found along the way.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetGraphHooks(&myGraphHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnClassifyStart(ctx, len(lock.Packages))
//	// ... classify ...
//	observability.Pipeline().OnClassifyComplete(ctx, counts, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// Counts summarizes a classification.
type Counts struct {
	Default int
	Develop int
	Orphans int
}

// PipelineHooks receives events from the conversion pipeline.
type PipelineHooks interface {
	// Classify events
	OnClassifyStart(ctx context.Context, packageCount int)
	OnClassifyComplete(ctx context.Context, counts Counts, duration time.Duration, err error)

	// Emit events
	OnEmitStart(ctx context.Context, project string)
	OnEmitComplete(ctx context.Context, project string, size int, duration time.Duration, err error)
}

// =============================================================================
// Graph Hooks
// =============================================================================

// GraphHooks receives diagnostics about the lock graph.
type GraphHooks interface {
	// OnOrphan records a package that was omitted because no root reaches it.
	OnOrphan(ctx context.Context, name, version string)

	// OnCycle records an edge that closes a dependency cycle.
	OnCycle(ctx context.Context, from, to string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnClassifyStart(context.Context, int)                              {}
func (NoopPipelineHooks) OnClassifyComplete(context.Context, Counts, time.Duration, error)  {}
func (NoopPipelineHooks) OnEmitStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnEmitComplete(context.Context, string, int, time.Duration, error) {}

// NoopGraphHooks is a no-op implementation of GraphHooks.
type NoopGraphHooks struct{}

func (NoopGraphHooks) OnOrphan(context.Context, string, string) {}
func (NoopGraphHooks) OnCycle(context.Context, string, string)  {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	graphHooks    GraphHooks    = NoopGraphHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any conversion.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetGraphHooks registers custom graph diagnostic hooks.
func SetGraphHooks(h GraphHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		graphHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Graph returns the registered graph hooks.
func Graph() GraphHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return graphHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	graphHooks = NoopGraphHooks{}
}
