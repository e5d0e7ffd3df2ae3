package azcli

import (
	"fmt"
	"strings"

	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/model"
)

// typeRank orders the network query so that a row limit drops leaves
// before the topology.
var typeRank = []string{
	model.TypeVirtualNetwork,
	model.TypeVNetGateway,
	model.TypeNetworkInterface,
	model.TypePublicIP,
	model.TypeLoadBalancer,
	model.TypeApplicationGateway,
	model.TypeNetworkSecurityGroup,
	model.TypeVirtualMachine,
}

// BuildQuery renders the KQL for q.
func BuildQuery(q collector.Query) string {
	var b strings.Builder
	b.WriteString("Resources")

	switch q.Kind {
	case collector.QueryByIDs:
		fmt.Fprintf(&b, "\n| where id in~ (%s)", quoteList(q.IDs))
		b.WriteString("\n| project id, name, type, resourceGroup, location, properties")
		return b.String()

	case collector.QueryInventory:
		writeScope(&b, q.Scope)
		b.WriteString("\n| project id, name, type, resourceGroup, location")
		b.WriteString("\n| order by type asc, name asc")

	case collector.QueryNetwork:
		writeScope(&b, q.Scope)
		types := q.Types
		if len(types) == 0 {
			types = collector.NetworkTypes
		}
		fmt.Fprintf(&b, "\n| where type in~ (%s)", quoteList(types))
		b.WriteString("\n| extend typeRank = case(")
		for i, t := range typeRank {
			fmt.Fprintf(&b, "type =~ %s, %d, ", quote(t), i)
		}
		b.WriteString("50)")
		b.WriteString("\n| project id, name, type, resourceGroup, location, properties")
		b.WriteString("\n| order by typeRank asc, type asc, name asc")
	}

	fmt.Fprintf(&b, "\n| limit %d", collector.ClampLimit(q.Limit))
	return b.String()
}

func writeScope(b *strings.Builder, s collector.Scope) {
	if s.ResourceGroup != "" {
		fmt.Fprintf(b, "\n| where resourceGroup =~ %s", quote(s.ResourceGroup))
	}
}

// quote renders a KQL string literal, doubling embedded single quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(items []string) string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = quote(s)
	}
	return strings.Join(out, ", ")
}
