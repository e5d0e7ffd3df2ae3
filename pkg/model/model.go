// Package model defines the resource graph shared by every stage of the
// diagram pipeline.
//
// A [Node] is one cloud resource, an [Edge] a directed relationship between
// two of them. Both are plain values: they are created once per collection
// run and never mutated afterwards. [Validate] turns raw collections into a
// [Graph] that satisfies the invariants downstream stages rely on.
package model

import (
	"strings"

	"github.com/matzehuels/azdiagram/pkg/cellid"
)

// Well-known resource types (lower-case).
const (
	TypeUnknown              = "unknown"
	TypeVirtualNetwork       = "microsoft.network/virtualnetworks"
	TypeSubnet               = "microsoft.network/virtualnetworks/subnets"
	TypeNetworkInterface     = "microsoft.network/networkinterfaces"
	TypePublicIP             = "microsoft.network/publicipaddresses"
	TypeNetworkSecurityGroup = "microsoft.network/networksecuritygroups"
	TypeLoadBalancer         = "microsoft.network/loadbalancers"
	TypeApplicationGateway   = "microsoft.network/applicationgateways"
	TypePrivateEndpoint      = "microsoft.network/privateendpoints"
	TypeNATGateway           = "microsoft.network/natgateways"
	TypeBastionHost          = "microsoft.network/bastionhosts"
	TypeFirewall             = "microsoft.network/azurefirewalls"
	TypeRouteTable           = "microsoft.network/routetables"
	TypeVNetGateway          = "microsoft.network/virtualnetworkgateways"
	TypeLocalNetworkGateway  = "microsoft.network/localnetworkgateways"
	TypeVNetPeering          = "microsoft.network/virtualnetworkpeerings"
	TypeConnection           = "microsoft.network/connections"
	TypeNetworkWatcher       = "microsoft.network/networkwatchers"
	TypeVirtualMachine       = "microsoft.compute/virtualmachines"
)

// Node is a single cloud resource.
type Node struct {
	ID            string         `json:"id" bson:"id"`
	Name          string         `json:"name" bson:"name"`
	Type          string         `json:"type" bson:"type"`
	ResourceGroup string         `json:"resourceGroup,omitempty" bson:"resource_group,omitempty"`
	Location      string         `json:"location,omitempty" bson:"location,omitempty"`
	Properties    map[string]any `json:"properties,omitempty" bson:"properties,omitempty"`
}

// Is reports whether the node has the given resource type (case-insensitive).
func (n Node) Is(resourceType string) bool {
	return strings.EqualFold(n.Type, resourceType)
}

// LowerType returns the lower-cased resource type.
func (n Node) LowerType() string {
	return strings.ToLower(n.Type)
}

// EdgeKind names a relationship between two resources.
type EdgeKind string

// Edge kinds produced by the collector.
const (
	KindContainedIn    EdgeKind = "contained-in"
	KindInSubnet       EdgeKind = "in-subnet"
	KindAttachedTo     EdgeKind = "attached-to"
	KindSecuredBy      EdgeKind = "secured-by"
	KindAssignedTo     EdgeKind = "assigned-to"
	KindConnectsTo     EdgeKind = "connects-to"
	KindAssociatedWith EdgeKind = "associated-with"
	KindPeeredWith     EdgeKind = "peered-with"
	KindConnectedTo    EdgeKind = "connected-to"
)

var kindAliases = map[string]EdgeKind{
	"subnet-member": KindInSubnet,
	"peering":       KindPeeredWith,
	"association":   KindAssociatedWith,
}

// ParseEdgeKind maps a kind name (or one of its aliases) to an EdgeKind.
// Unknown names are kept verbatim so they still render as plain connectors.
func ParseEdgeKind(s string) EdgeKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindAliases[s]; ok {
		return k
	}
	return EdgeKind(s)
}

// IsContainment reports whether the kind expresses nesting rather than a
// connection. Containment is drawn by placing one cell inside another.
func (k EdgeKind) IsContainment() bool {
	return k == KindContainedIn || k == KindInSubnet
}

// Edge is a directed relationship between two nodes.
type Edge struct {
	Source string   `json:"source" bson:"source"`
	Target string   `json:"target" bson:"target"`
	Kind   EdgeKind `json:"kind" bson:"kind"`
}

// NewEdge builds an edge with canonical endpoint ids.
func NewEdge(source, target string, kind EdgeKind) Edge {
	return Edge{
		Source: cellid.NormalizeID(source),
		Target: cellid.NormalizeID(target),
		Kind:   kind,
	}
}

// Key returns a string identifying the edge's endpoints and kind.
func (e Edge) Key() string {
	return e.Source + ">" + e.Target + ">" + string(e.Kind)
}

// LastSegment returns the final path segment of a resource id.
func LastSegment(id string) string {
	id = strings.TrimRight(id, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
