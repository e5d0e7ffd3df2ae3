package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/observability"
)

const keyTypeCollect = "collect"

// CollectWithCacheInfo runs a collection, reusing a cached result for the
// same scope unless opts.Refresh is set. The bool reports a cache hit.
func (r *Runner) CollectWithCacheInfo(ctx context.Context, b collector.Backend, opts Options) (collector.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForCollect(); err != nil {
		return collector.Result{}, false, err
	}
	key := r.Keyer.CollectKey(opts.CollectKeyOpts())
	hooks := observability.Pipeline()
	cacheHooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var res collector.Result
			if err := json.Unmarshal(data, &res); err == nil {
				cacheHooks.OnCacheHit(ctx, keyTypeCollect)
				opts.Logger.Debug("using cached inventory", "nodes", res.Graph.NodeCount())
				return res, true, nil
			}
		}
		cacheHooks.OnCacheMiss(ctx, keyTypeCollect)
	}

	start := time.Now()
	hooks.OnCollectStart(ctx, opts.Source, opts.View)
	res, err := collector.Collect(ctx, b, opts.CollectorOptions())
	hooks.OnCollectComplete(ctx, opts.Source, opts.View, res.Graph.NodeCount(), res.Graph.EdgeCount(), time.Since(start), err)
	if err != nil {
		return collector.Result{}, false, err
	}
	opts.Logger.Info("collected inventory",
		"nodes", res.Graph.NodeCount(),
		"edges", res.Graph.EdgeCount(),
		"duration", time.Since(start).Round(time.Millisecond))
	if n := len(res.Report.Dangling); n > 0 {
		opts.Logger.Info("dropped dangling edges", "count", n)
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.CollectTTL); err == nil {
			cacheHooks.OnCacheSet(ctx, keyTypeCollect, len(data))
		}
	}
	return res, false, nil
}
