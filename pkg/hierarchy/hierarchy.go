// Package hierarchy nests a validated resource graph into the fixed diagram
// containment tree: Cloud > Region > Resource Group > VNet > Subnet > leaf.
//
// VNet and Subnet containers are backed by resources and always kept.
// Cloud, Region and Resource Group containers are synthetic: they exist
// only to group resources and are elided when they would hold a single
// child, so a diagram of one virtual network is just that network.
//
// Children are ordered by the taxonomy rank table, then by type, summary
// flag, label and key, which makes the tree a pure function of its input.
package hierarchy

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

// GlobalRegion is the region key for resources without a usable location.
const GlobalRegion = "global"

// CloudLabel is the label of the root container.
const CloudLabel = "Azure"

// SummaryIDPrefix marks pre-aggregated "+N more" nodes.
const SummaryIDPrefix = "__group__"

var summaryName = regexp.MustCompile(`\(\+\d+ more\)\s*$`)

// Element is a node of the containment tree.
type Element struct {
	Level taxonomy.Level
	// Key is the canonical resource id, or a synthetic key such as
	// "rg:japaneast/app" for containers without a backing resource.
	Key   string
	Label string
	// Type is the lower-case resource type; empty for synthetic containers.
	Type     string
	Rank     int
	Resource *model.Node
	Summary  bool
	Children []*Element
}

// IsContainer reports whether the element is drawn as a container.
func (e *Element) IsContainer() bool { return e.Level.IsContainer() }

// Synthetic reports whether the element has no backing resource.
func (e *Element) Synthetic() bool { return e.Resource == nil }

// SyntheticKind names the id namespace of a synthetic container.
func (e *Element) SyntheticKind() string {
	switch e.Level {
	case taxonomy.LevelCloud:
		return "root"
	case taxonomy.LevelRegion:
		return "region"
	case taxonomy.LevelResourceGroup:
		return "rg"
	}
	return ""
}

// Walk visits e and its descendants depth-first in child order.
func (e *Element) Walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Tree is the containment tree of a graph. Root is nil for an empty graph.
type Tree struct {
	Root *Element
}

// Leaves counts the leaf elements of the tree.
func (t Tree) Leaves() int {
	n := 0
	if t.Root != nil {
		t.Root.Walk(func(e *Element) {
			if !e.IsContainer() {
				n++
			}
		})
	}
	return n
}

// Elements returns every element keyed by Key.
func (t Tree) Elements() map[string]*Element {
	out := make(map[string]*Element)
	if t.Root != nil {
		t.Root.Walk(func(e *Element) { out[e.Key] = e })
	}
	return out
}

// IsSummary reports whether a node is a pre-aggregated "+N more" group.
func IsSummary(n model.Node) bool {
	return strings.HasPrefix(n.ID, SummaryIDPrefix) || summaryName.MatchString(n.Name)
}

// RegionKey maps a location to its region container key.
func RegionKey(location string) string {
	loc := strings.ToLower(strings.TrimSpace(location))
	switch loc {
	case "", GlobalRegion, "unknown":
		return GlobalRegion
	}
	return loc
}

// Build nests the graph's nodes into a containment tree.
func Build(g model.Graph, tbl *taxonomy.Table) Tree {
	if len(g.Nodes) == 0 {
		return Tree{}
	}
	b := &builder{
		tbl:      tbl,
		elements: make(map[string]*Element, len(g.Nodes)),
		regions:  make(map[string]*Element),
		groups:   make(map[string]*Element),
		root: &Element{
			Level: taxonomy.LevelCloud,
			Key:   "cloud",
			Label: CloudLabel,
		},
	}
	for i := range g.Nodes {
		b.addNode(&g.Nodes[i])
	}
	b.index(g.Edges)

	for i := range g.Nodes {
		n := &g.Nodes[i]
		e := b.elements[n.ID]
		parent := b.parentOf(e)
		parent.Children = append(parent.Children, e)
	}

	kept := collapse(b.root)
	switch len(kept) {
	case 0:
		return Tree{}
	case 1:
		b.root = kept[0]
	}
	sortTree(b.root)
	return Tree{Root: b.root}
}

type builder struct {
	tbl      *taxonomy.Table
	elements map[string]*Element
	regions  map[string]*Element
	groups   map[string]*Element
	root     *Element

	// containment targets per source id, by edge kind
	contained map[string][]string
	// attached-to neighbours (either direction)
	attached map[string][]string
}

func (b *builder) addNode(n *model.Node) {
	typ := n.LowerType()
	e := &Element{
		Level:    b.tbl.Level(typ),
		Key:      n.ID,
		Label:    n.Name,
		Type:     typ,
		Rank:     b.tbl.Rank(typ),
		Resource: n,
		Summary:  IsSummary(*n),
	}
	b.elements[n.ID] = e
}

func (b *builder) index(edges []model.Edge) {
	b.contained = make(map[string][]string)
	b.attached = make(map[string][]string)
	for _, e := range edges {
		switch {
		case e.Kind.IsContainment():
			b.contained[e.Source] = append(b.contained[e.Source], e.Target)
		case e.Kind == model.KindAttachedTo:
			b.attached[e.Source] = append(b.attached[e.Source], e.Target)
			b.attached[e.Target] = append(b.attached[e.Target], e.Source)
		}
	}
}

// parentOf resolves the container an element nests in.
func (b *builder) parentOf(e *Element) *Element {
	switch e.Level {
	case taxonomy.LevelVNet:
		return b.group(e.Resource)

	case taxonomy.LevelSubnet:
		for _, target := range b.contained[e.Key] {
			if p := b.elements[target]; p != nil && p.Level == taxonomy.LevelVNet {
				return p
			}
		}
		if i := strings.Index(e.Key, "/subnets/"); i > 0 {
			if p := b.elements[e.Key[:i]]; p != nil && p.Level == taxonomy.LevelVNet {
				return p
			}
		}
		return b.group(e.Resource)
	}

	if p := b.networkParent(e.Key); p != nil {
		return p
	}
	if e.Resource.Is(model.TypeVirtualMachine) {
		var candidates []*Element
		for _, nic := range b.attached[e.Key] {
			if ne := b.elements[nic]; ne != nil && ne.Resource.Is(model.TypeNetworkInterface) {
				if p := b.networkParent(nic); p != nil {
					candidates = append(candidates, p)
				}
			}
		}
		if p := pickContainer(candidates); p != nil {
			return p
		}
	}
	return b.group(e.Resource)
}

// networkParent returns the subnet (preferred) or VNet an id is contained in.
func (b *builder) networkParent(id string) *Element {
	var candidates []*Element
	for _, target := range b.contained[id] {
		if p := b.elements[target]; p != nil && (p.Level == taxonomy.LevelSubnet || p.Level == taxonomy.LevelVNet) {
			candidates = append(candidates, p)
		}
	}
	return pickContainer(candidates)
}

// pickContainer prefers the innermost level, then the lowest key.
func pickContainer(candidates []*Element) *Element {
	if len(candidates) == 0 {
		return nil
	}
	return slices.MinFunc(candidates, func(a, b *Element) int {
		return cmp.Or(cmp.Compare(a.Level, b.Level), cmp.Compare(a.Key, b.Key))
	})
}

// group returns the resource group container for n, creating it and its
// region on first use.
func (b *builder) group(n *model.Node) *Element {
	region := RegionKey(n.Location)
	rg := strings.ToLower(strings.TrimSpace(n.ResourceGroup))
	key := "rg:" + region + "/" + rg
	if g, ok := b.groups[key]; ok {
		return g
	}

	r, ok := b.regions[region]
	if !ok {
		r = &Element{Level: taxonomy.LevelRegion, Key: "region:" + region, Label: region}
		b.regions[region] = r
		b.root.Children = append(b.root.Children, r)
	}

	label := strings.TrimSpace(n.ResourceGroup)
	if label == "" {
		label = "(no resource group)"
	}
	g := &Element{Level: taxonomy.LevelResourceGroup, Key: key, Label: label}
	b.groups[key] = g
	r.Children = append(r.Children, g)
	return g
}

// collapse elides synthetic containers with fewer than two children and
// returns what should take e's place in its parent.
func collapse(e *Element) []*Element {
	var children []*Element
	for _, c := range e.Children {
		children = append(children, collapse(c)...)
	}
	e.Children = children

	if !e.Level.IsSynthetic() {
		return []*Element{e}
	}
	if len(children) < 2 {
		return children
	}
	return []*Element{e}
}

func sortTree(e *Element) {
	slices.SortFunc(e.Children, Compare)
	for _, c := range e.Children {
		sortTree(c)
	}
}

// Compare orders siblings: rank, type, summary last, label, key.
func Compare(a, b *Element) int {
	return cmp.Or(
		cmp.Compare(a.Rank, b.Rank),
		cmp.Compare(a.Type, b.Type),
		compareBool(a.Summary, b.Summary),
		cmp.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label)),
		cmp.Compare(a.Key, b.Key),
	)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}
