package collector

import (
	"context"
	"strings"
)

// QueryKind selects which rows a backend returns.
type QueryKind int

const (
	// QueryInventory returns every resource in scope (no properties needed).
	QueryInventory QueryKind = iota
	// QueryNetwork returns network-related resources with their properties.
	QueryNetwork
	// QueryByIDs returns the resources named in Query.IDs, regardless of scope
	// filters other than subscription.
	QueryByIDs
)

func (k QueryKind) String() string {
	switch k {
	case QueryInventory:
		return "inventory"
	case QueryNetwork:
		return "network"
	case QueryByIDs:
		return "by-ids"
	}
	return "unknown"
}

// Scope narrows a collection run. Empty fields mean "all".
type Scope struct {
	Subscription  string `json:"subscription,omitempty"`
	ResourceGroup string `json:"resourceGroup,omitempty"`
}

// Query is one request to a [Backend].
type Query struct {
	Kind  QueryKind
	Scope Scope
	Limit int

	// Types restricts QueryNetwork to these lower-case resource types.
	Types []string

	// IDs lists canonical resource ids for QueryByIDs.
	IDs []string
}

// Row is one raw inventory record as returned by the resource graph.
type Row struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	ResourceGroup string         `json:"resourceGroup"`
	Location      string         `json:"location"`
	Properties    map[string]any `json:"properties,omitempty"`
}

// VNetRef identifies a virtual network for a subnet listing.
type VNetRef struct {
	ID            string
	Name          string
	ResourceGroup string
	Subscription  string
}

// Backend fetches raw rows from an inventory source. Implementations own
// their timeouts and retries; the collector only checks ctx between calls.
type Backend interface {
	Query(ctx context.Context, q Query) ([]Row, error)
	ListSubnets(ctx context.Context, ref VNetRef) ([]Row, error)
}

// ResourceGroupLister is implemented by backends that can enumerate
// resource groups for interactive scope selection.
type ResourceGroupLister interface {
	ListResourceGroups(ctx context.Context, subscription string) ([]string, error)
}

// SubscriptionFromID extracts the subscription id from a resource id, or ""
// when the id has no /subscriptions/ segment.
func SubscriptionFromID(id string) string {
	parts := strings.Split(strings.ToLower(id), "/")
	for i, p := range parts {
		if p == "subscriptions" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
