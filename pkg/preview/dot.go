// Package preview renders a quick SVG overview of a resource graph with
// Graphviz.
//
// The preview is not the deliverable; the draw.io document is. It exists so
// that the CLI, the HTTP API and the MCP server can show a picture without
// a diagram editor. Containers become DOT clusters and relationship edges
// are drawn with the same colors as the draw.io connectors. Graphviz runs
// in-process through [github.com/goccy/go-graphviz].
package preview

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/azdiagram/pkg/cellid"
	"github.com/matzehuels/azdiagram/pkg/hierarchy"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

// Options configures DOT output.
type Options struct {
	// Detailed adds the short resource type under each label.
	Detailed bool
	// RankDir is the Graphviz rankdir, LR when empty.
	RankDir string
}

var clusterColors = map[taxonomy.Level][2]string{
	taxonomy.LevelCloud:         {"#E8EAF6", "#5C6BC0"},
	taxonomy.LevelRegion:        {"#E8EAF6", "#5C6BC0"},
	taxonomy.LevelResourceGroup: {"#FFF8E1", "#F9A825"},
	taxonomy.LevelVNet:          {"#E3F2FD", "#1565C0"},
	taxonomy.LevelSubnet:        {"#F1F8E9", "#558B2F"},
}

var edgeAttrs = map[model.EdgeKind]string{
	model.KindPeeredWith:  `color="#0078D4", penwidth=3, style=dashed, label="peering"`,
	model.KindConnectedTo: `color="#0078D4", penwidth=3, style=dashed, label="VPN/ER"`,
	model.KindSecuredBy:   `color="#E53935", style=dashed, label="NSG"`,
	model.KindAssignedTo:  `color="#0078D4"`,
	model.KindAttachedTo:  `color="#333333", penwidth=2`,
	model.KindConnectsTo:  `label="PE"`,
}

// ToDOT converts a containment tree and its relationship edges to DOT.
// Node ids are the draw.io cell ids, so the two outputs can be correlated.
func ToDOT(tree hierarchy.Tree, edges []model.Edge, tbl *taxonomy.Table, opts Options) string {
	if tbl == nil {
		tbl = taxonomy.Default()
	}
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "LR"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=Helvetica, fontsize=11, fontcolor=white];\n")
	buf.WriteString("  edge [fontsize=9, fontcolor=\"#666666\"];\n")
	buf.WriteString("\n")

	ids := map[string]string{}
	if tree.Root != nil {
		w := &writer{buf: &buf, tbl: tbl, opts: opts, ids: ids}
		w.element(tree.Root, 1)
	}

	buf.WriteString("\n")
	for _, e := range edges {
		if e.Kind.IsContainment() {
			continue
		}
		src, ok1 := ids[e.Source]
		tgt, ok2 := ids[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		attrs := edgeAttrs[e.Kind]
		if attrs == "" {
			attrs = `color="#999999"`
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", src, tgt, attrs)
	}
	buf.WriteString("}\n")
	return buf.String()
}

type writer struct {
	buf  *bytes.Buffer
	tbl  *taxonomy.Table
	opts Options
	ids  map[string]string
}

func (w *writer) element(e *hierarchy.Element, depth int) {
	indent := strings.Repeat("  ", depth)
	if !e.IsContainer() {
		id := cellid.CellID(e.Key)
		w.ids[e.Key] = id
		fmt.Fprintf(w.buf, "%s%q [label=%q, fillcolor=%q];\n", indent, id, w.label(e), w.color(e))
		return
	}

	id := clusterID(e)
	colors := clusterColors[e.Level]
	fmt.Fprintf(w.buf, "%ssubgraph %q {\n", indent, "cluster_"+id)
	fmt.Fprintf(w.buf, "%s  label=%q; style=\"rounded,filled\"; fillcolor=%q; color=%q; fontname=Helvetica; fontcolor=\"#333333\";\n",
		indent, containerLabel(e), colors[0], colors[1])
	if !e.Synthetic() {
		// invisible anchor so edges can end at a VNet or subnet
		w.ids[e.Key] = id
		fmt.Fprintf(w.buf, "%s  %q [shape=point, style=invis, width=0];\n", indent, id)
	}
	for _, c := range e.Children {
		w.element(c, depth+1)
	}
	fmt.Fprintf(w.buf, "%s}\n", indent)
}

func (w *writer) label(e *hierarchy.Element) string {
	if !w.opts.Detailed || e.Summary {
		return e.Label
	}
	return e.Label + "\n" + taxonomy.ShortType(e.Type)
}

func (w *writer) color(e *hierarchy.Element) string {
	if e.Summary {
		return "#9E9E9E"
	}
	return w.tbl.FallbackColor(e.Type)
}

func clusterID(e *hierarchy.Element) string {
	if e.Synthetic() {
		return cellid.SyntheticID(e.SyntheticKind(), e.Key)
	}
	return cellid.CellID(e.Key)
}

func containerLabel(e *hierarchy.Element) string {
	switch e.Level {
	case taxonomy.LevelVNet:
		return "VNet: " + e.Label
	case taxonomy.LevelSubnet:
		return "Subnet: " + e.Label
	}
	return e.Label
}

// RenderSVG renders DOT source to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a plain
// viewBox so the preview scales in a browser.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
