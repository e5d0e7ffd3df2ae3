package model

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matzehuels/azdiagram/pkg/cellid"
)

// Graph is a validated node/edge collection.
//
// Node ids are canonical and unique, every edge references existing nodes,
// and both slices are sorted so that equal inputs give equal graphs.
type Graph struct {
	Nodes []Node         `json:"nodes" bson:"nodes"`
	Edges []Edge         `json:"edges" bson:"edges"`
	Meta  map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Report lists what validation repaired. None of it is an error.
type Report struct {
	DuplicateNodes int    `json:"duplicate_nodes"`
	DefaultedTypes int    `json:"defaulted_types"`
	DuplicateEdges int    `json:"duplicate_edges"`
	Dangling       []Edge `json:"dangling,omitempty"`
	// Conflicting lists extra contained-in edges from one subnet to
	// additional virtual networks.
	Conflicting []Edge `json:"conflicting,omitempty"`
}

// Clean reports whether validation changed nothing.
func (r Report) Clean() bool {
	return r.DuplicateNodes == 0 && r.DefaultedTypes == 0 && r.DuplicateEdges == 0 &&
		len(r.Dangling) == 0 && len(r.Conflicting) == 0
}

// Validate normalizes nodes and edges into a Graph.
//
// Nodes without an id are skipped. Duplicate ids keep their first
// occurrence. An empty type becomes TypeUnknown. Dangling edges and
// duplicate edges are dropped. A subnet keeps a single contained-in edge to a
// virtual network (the lowest target id).
func Validate(nodes []Node, edges []Edge) (Graph, Report) {
	var rep Report

	byID := make(map[string]Node, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		id := cellid.NormalizeID(n.ID)
		if id == "" {
			continue
		}
		if _, dup := byID[id]; dup {
			rep.DuplicateNodes++
			continue
		}
		n.ID = id
		if strings.TrimSpace(n.Type) == "" {
			n.Type = TypeUnknown
			rep.DefaultedTypes++
		}
		if n.Name == "" {
			n.Name = LastSegment(id)
		}
		byID[id] = n
		order = append(order, id)
	}

	slices.Sort(order)
	out := Graph{Nodes: make([]Node, 0, len(order)), Edges: make([]Edge, 0, len(edges))}
	for _, id := range order {
		out.Nodes = append(out.Nodes, byID[id])
	}

	seen := make(map[string]bool, len(edges))
	kept := make([]Edge, 0, len(edges))
	for _, e := range edges {
		e = NewEdge(e.Source, e.Target, ParseEdgeKind(string(e.Kind)))
		_, okS := byID[e.Source]
		_, okT := byID[e.Target]
		if !okS || !okT {
			rep.Dangling = append(rep.Dangling, e)
			continue
		}
		if seen[e.Key()] {
			rep.DuplicateEdges++
			continue
		}
		seen[e.Key()] = true
		kept = append(kept, e)
	}
	slices.SortFunc(kept, compareEdges)

	// One parent VNet per subnet.
	parent := make(map[string]bool)
	for _, e := range kept {
		if e.Kind != KindContainedIn {
			continue
		}
		if !byID[e.Source].Is(TypeSubnet) || !byID[e.Target].Is(TypeVirtualNetwork) {
			out.Edges = append(out.Edges, e)
			continue
		}
		if parent[e.Source] {
			rep.Conflicting = append(rep.Conflicting, e)
			continue
		}
		parent[e.Source] = true
		out.Edges = append(out.Edges, e)
	}
	for _, e := range kept {
		if e.Kind != KindContainedIn {
			out.Edges = append(out.Edges, e)
		}
	}
	slices.SortFunc(out.Edges, compareEdges)

	return out, rep
}

func compareEdges(a, b Edge) int {
	return cmp.Or(
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.Target, b.Target),
		cmp.Compare(a.Kind, b.Kind),
	)
}

// NodeIndex returns the graph's nodes keyed by id.
func (g Graph) NodeIndex() map[string]Node {
	idx := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		idx[n.ID] = n
	}
	return idx
}

// NodeCount returns the number of nodes.
func (g Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g Graph) EdgeCount() int { return len(g.Edges) }

// TypeSummary counts nodes per resource type.
func TypeSummary(nodes []Node) map[string]int {
	out := make(map[string]int)
	for _, n := range nodes {
		out[n.Type]++
	}
	return out
}
