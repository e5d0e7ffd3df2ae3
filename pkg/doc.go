// Package pkg provides the libraries behind azdiagram, which draws Azure
// resource inventories as editable draw.io diagrams.
//
// # Overview
//
// A run is a straight pipeline. Each stage consumes plain data produced by
// the previous one, so any stage can be driven on its own:
//
//	Azure Resource Graph (az CLI) or recorded snapshot
//	         ↓
//	    [collector] (query rows, infer relations, validate)
//	         ↓
//	    [hierarchy] (nest resources: region, group, VNet, subnet)
//	         ↓
//	    [layout] (boxes and grid geometry)
//	         ↓
//	    [drawio] (mxfile XML)   [preview] (Graphviz SVG/PNG/PDF)
//
// [pipeline] wires the stages together with caching, history and metrics
// hooks. The CLI in internal/cli, the HTTP API in [server] and the MCP
// tools in [mcp] are thin shells around a [pipeline.Runner].
//
// # Quick Start
//
// Render a graph file that "azdiagram collect" wrote earlier:
//
//	import (
//	    "os"
//	    "github.com/matzehuels/azdiagram/pkg/drawio"
//	    "github.com/matzehuels/azdiagram/pkg/hierarchy"
//	    "github.com/matzehuels/azdiagram/pkg/layout"
//	    "github.com/matzehuels/azdiagram/pkg/model"
//	    "github.com/matzehuels/azdiagram/pkg/taxonomy"
//	)
//
//	g, _, err := model.ReadGraphFile("net.json")
//	if err != nil {
//	    return err
//	}
//	tbl := taxonomy.Default()
//	tree := hierarchy.Build(g, tbl)
//	l := layout.Arrange(tree, layout.DefaultParams())
//	return drawio.Render(os.Stdout, drawio.Document{
//	    Name:   "net",
//	    Layout: l,
//	    Edges:  g.Edges,
//	    Table:  tbl,
//	})
//
// # Main Packages
//
// ## Domain
//
// [model] - The resource graph: nodes keyed by lower-cased resource id,
// typed relation edges, validation and the JSON file format.
//
// [taxonomy] - Where a resource type belongs: its containment level, its
// sibling rank and its icon.
//
// [collector] - Builds a graph from inventory rows. Relations are inferred
// from resource properties; referenced resources outside the scope are
// fetched once, best effort.
//
// [hierarchy], [layout], [drawio] - Containment tree, geometry and the
// serialized document. Output is deterministic for a given graph.
//
// [cellid] - Short stable cell ids derived from resource ids.
//
// ## Inventory Backends
//
// [inventory/azcli] - Queries Azure Resource Graph by running the az CLI.
//
// [inventory/file] - Replays a recorded snapshot; used for tests and
// offline rendering.
//
// ## Infrastructure
//
// [cache] - File, Redis and no-op caches for collected graphs and
// previews.
//
// [snapshot] - Generation history of named diagrams in a directory,
// SQLite or MongoDB, with diffs between generations.
//
// [config] - TOML configuration for defaults, cache and history.
//
// [observability] - Hook interfaces with a Prometheus implementation.
//
// [errors], [retry], [buildinfo] - Shared error codes, backoff and
// version information.
package pkg
