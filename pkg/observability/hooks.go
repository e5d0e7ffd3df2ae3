// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; the defaults do
// nothing. Binaries that want metrics register an implementation at
// startup, for example the Prometheus one in this package:
//
//	reg := prometheus.NewRegistry()
//	p := observability.NewPrometheus(reg)
//	observability.SetPipelineHooks(p)
//	observability.SetCacheHooks(p)
//	observability.SetBackendHooks(p)
//
// Libraries call hooks around their work:
//
//	observability.Pipeline().OnCollectStart(ctx, "azcli", "inventory")
//	// ... collect ...
//	observability.Pipeline().OnCollectComplete(ctx, "azcli", "inventory", nodes, edges, took, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the diagram pipeline.
type PipelineHooks interface {
	OnCollectStart(ctx context.Context, backend, view string)
	OnCollectComplete(ctx context.Context, backend, view string, nodes, edges int, duration time.Duration, err error)

	OnLayoutStart(ctx context.Context, elements int)
	OnLayoutComplete(ctx context.Context, density int, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks receives events from cache lookups. keyType is the cache
// namespace ("collect", "artifact", "list").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// BackendHooks receives events from inventory backend calls, one per
// attempt. op names the call ("graph query", "subnet list").
type BackendHooks interface {
	OnCall(ctx context.Context, op string)
	OnResult(ctx context.Context, op string, duration time.Duration, err error)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnCollectStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnCollectComplete(context.Context, string, string, int, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, time.Duration, error)      {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopBackendHooks is a no-op implementation of BackendHooks.
type NoopBackendHooks struct{}

func (NoopBackendHooks) OnCall(context.Context, string)                         {}
func (NoopBackendHooks) OnResult(context.Context, string, time.Duration, error) {}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	backendHooks  BackendHooks  = NoopBackendHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers pipeline hooks. A nil argument is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers cache hooks. A nil argument is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetBackendHooks registers backend hooks. A nil argument is ignored.
func SetBackendHooks(h BackendHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		backendHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Backend returns the registered backend hooks.
func Backend() BackendHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return backendHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	backendHooks = NoopBackendHooks{}
}
