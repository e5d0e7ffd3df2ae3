package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/layout"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/snapshot"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

// Runner encapsulates pipeline execution with caching and history.
//
// A Runner holds no per-run state; several goroutines may share one with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	Table  *taxonomy.Table
	Params layout.Params

	// History, when set, receives a generation for runs with
	// Options.History.
	History snapshot.Store

	// CollectTTL bounds how long a collected graph is reused.
	CollectTTL time.Duration
}

// NewRunner creates a runner with the default taxonomy and layout
// parameters. A nil keyer selects DefaultKeyer; a nil cache disables
// caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Logger:     logger,
		Table:      taxonomy.Default(),
		Params:     layout.DefaultParams(),
		CollectTTL: cache.TTLCollect,
	}
}

// Execute collects from b and renders the result.
func (r *Runner) Execute(ctx context.Context, b collector.Backend, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForCollect(); err != nil {
		return nil, err
	}
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	start := time.Now()
	col, hit, err := r.CollectWithCacheInfo(ctx, b, opts)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	collectTime := time.Since(start)

	result, err := r.Render(ctx, col.Graph, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Report = col.Report
	result.Meta = &col.Meta
	result.Stats.CollectTime = collectTime
	result.CacheInfo.CollectHit = hit
	return result, nil
}

// Collect is CollectWithCacheInfo without the cache hit flag.
func (r *Runner) Collect(ctx context.Context, b collector.Backend, opts Options) (collector.Result, error) {
	res, _, err := r.CollectWithCacheInfo(ctx, b, opts)
	return res, err
}

// Close releases the cache and the history store.
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.History != nil {
		if err := r.History.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Runner) table() *taxonomy.Table {
	if r.Table == nil {
		return taxonomy.Default()
	}
	return r.Table
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// graphHash hashes the canonical JSON form of g.
func graphHash(g model.Graph) string {
	data, err := model.MarshalGraph(model.Graph{Nodes: g.Nodes, Edges: g.Edges})
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}
