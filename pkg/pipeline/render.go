package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/drawio"
	"github.com/matzehuels/azdiagram/pkg/hierarchy"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/observability"
	"github.com/matzehuels/azdiagram/pkg/preview"
	"github.com/matzehuels/azdiagram/pkg/snapshot"
)

const keyTypeArtifact = "artifact"

// PNGScale is the rasterization scale of PNG previews.
const PNGScale = 2.0

// Render lays out g and produces the requested formats. The draw.io
// document is always built, since its statistics and cell ids feed the
// result and the history; previews that need Graphviz or rsvg-convert are
// served from the artifact cache when possible.
func (r *Runner) Render(ctx context.Context, g model.Graph, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	result := &Result{
		Graph:     g,
		GraphHash: graphHash(g),
		Artifacts: make(map[string][]byte),
		Stats: Stats{
			NodeCount: g.NodeCount(),
			EdgeCount: g.EdgeCount(),
		},
	}

	layoutStart := time.Now()
	tree, l := r.Arrange(ctx, g)
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	renderStart := time.Now()

	f, stats := drawio.Build(drawio.Document{
		Name:   opts.Name,
		Layout: l,
		Edges:  g.Edges,
		Table:  r.table(),
	})
	result.Drawio = stats

	var doc []byte
	err := func() error {
		var err error
		doc, err = encode(f)
		if err != nil {
			return fmt.Errorf("encode drawio: %w", err)
		}
		hit, err := r.renderFormats(ctx, result, tree, doc, opts)
		result.CacheInfo.RenderHit = hit
		return err
	}()
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("rendered diagram",
		"name", opts.Name,
		"cells", f.Count(),
		"connectors", stats.Connectors,
		"formats", opts.Formats)
	if stats.Dangling > 0 || stats.Duplicates > 0 {
		opts.Logger.Debug("skipped connectors", "dangling", stats.Dangling, "duplicates", stats.Duplicates)
	}

	if opts.History && r.History != nil {
		gen := snapshot.New(opts.Name, doc, f.CellIDs(), g.NodeCount(), g.EdgeCount())
		diff, err := snapshot.RecordAndCompare(ctx, r.History, &gen)
		if err != nil {
			return nil, fmt.Errorf("record history: %w", err)
		}
		result.Changes = &diff
		opts.Logger.Info(diff.Summary())
	}
	return result, nil
}

// renderFormats fills result.Artifacts. The bool is true when every
// preview came from the cache.
func (r *Runner) renderFormats(ctx context.Context, result *Result, tree hierarchy.Tree, doc []byte, opts Options) (bool, error) {
	paramsHash, _ := cache.HashJSON(struct {
		Params   any
		Icons    map[string]string
		Generic  string
		Detailed bool
	}{r.Params, r.table().Icons, r.table().GenericIcon, opts.Detailed})

	previews, hits := 0, 0
	var svg []byte
	for _, format := range opts.Formats {
		switch format {
		case FormatDrawio:
			result.Artifacts[format] = doc
			continue
		case FormatJSON:
			data, err := json.MarshalIndent(result.Layout, "", "  ")
			if err != nil {
				return false, fmt.Errorf("serialize layout: %w", err)
			}
			result.Artifacts[format] = data
			continue
		}

		previews++
		key := r.Keyer.ArtifactKey(result.GraphHash, cache.ArtifactKeyOpts{
			Name:   opts.Name,
			Format: format,
			Params: paramsHash,
		})
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			result.Artifacts[format] = data
			hits++
			continue
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)

		if svg == nil {
			dot := preview.ToDOT(tree, result.Graph.Edges, r.table(), preview.Options{Detailed: opts.Detailed})
			var err error
			if svg, err = preview.RenderSVG(ctx, dot); err != nil {
				return false, fmt.Errorf("render svg: %w", err)
			}
		}
		data := svg
		if format != FormatSVG {
			var err error
			if data, err = preview.Rasterize(ctx, svg, format, PNGScale); err != nil {
				return false, fmt.Errorf("render %s: %w", format, err)
			}
		}
		result.Artifacts[format] = data
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}
	return previews > 0 && hits == previews, nil
}

func encode(f *drawio.MxFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := drawio.Encode(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
