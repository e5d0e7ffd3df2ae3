package collector

import (
	"strings"

	"github.com/matzehuels/azdiagram/pkg/model"
)

const peeringMarker = "/virtualnetworkpeerings/"

// frontendTypes expose ipConfigurations / frontendIPConfigurations that place
// them in a subnet and bind public IPs.
var frontendTypes = map[string]bool{
	model.TypeBastionHost:        true,
	model.TypeFirewall:           true,
	model.TypeVNetGateway:        true,
	model.TypeApplicationGateway: true,
	model.TypeLoadBalancer:       true,
}

// Infer derives edges from the explicit properties of one resource.
// Nothing is guessed: a relationship exists only when a property names the
// other resource's id. id must be canonical.
func Infer(id, resourceType string, props map[string]any) []model.Edge {
	var out []model.Edge
	add := func(source, target string, kind model.EdgeKind) {
		if source == "" || target == "" {
			return
		}
		out = append(out, model.NewEdge(source, target, kind))
	}

	switch t := strings.ToLower(resourceType); {
	case t == model.TypeVirtualNetwork:
		for _, sid := range refIDs(props, "subnets") {
			add(sid, id, model.KindContainedIn)
		}

	case t == model.TypeNetworkInterface:
		add(id, refID(props, "virtualMachine"), model.KindAttachedTo)
		add(id, refID(props, "networkSecurityGroup"), model.KindSecuredBy)
		for _, ipc := range objects(props, "ipConfigurations") {
			ip := object(ipc, "properties")
			add(id, refID(ip, "subnet"), model.KindInSubnet)
			add(refID(ip, "publicIPAddress"), id, model.KindAssignedTo)
		}

	case t == model.TypeVirtualMachine:
		for _, nic := range refIDs(object(props, "networkProfile"), "networkInterfaces") {
			add(nic, id, model.KindAttachedTo)
		}

	case t == model.TypeNetworkSecurityGroup:
		for _, sid := range refIDs(props, "subnets") {
			add(id, sid, model.KindSecuredBy)
		}
		for _, nic := range refIDs(props, "networkInterfaces") {
			add(nic, id, model.KindSecuredBy)
		}

	case t == model.TypePrivateEndpoint:
		add(id, refID(props, "subnet"), model.KindInSubnet)
		for _, c := range objects(props, "privateLinkServiceConnections") {
			add(id, str(object(c, "properties"), "privateLinkServiceId"), model.KindConnectsTo)
		}

	case t == model.TypeNATGateway, t == model.TypeRouteTable:
		for _, sid := range refIDs(props, "subnets") {
			add(id, sid, model.KindAssociatedWith)
		}

	case frontendTypes[t]:
		for _, key := range []string{"ipConfigurations", "frontendIPConfigurations"} {
			for _, ipc := range objects(props, key) {
				ip := object(ipc, "properties")
				add(id, refID(ip, "subnet"), model.KindInSubnet)
				add(refID(ip, "publicIPAddress"), id, model.KindAssignedTo)
			}
		}

	case t == model.TypeVNetPeering:
		if i := strings.Index(id, peeringMarker); i > 0 {
			add(id[:i], refID(props, "remoteVirtualNetwork"), model.KindPeeredWith)
		}

	case t == model.TypeConnection:
		gw1 := refID(props, "virtualNetworkGateway1")
		if gw1 != "" {
			add(gw1, refID(props, "virtualNetworkGateway2"), model.KindConnectedTo)
			add(gw1, refID(props, "localNetworkGateway2"), model.KindConnectedTo)
		}
	}
	return out
}

// Property helpers. Resource graph properties are untyped JSON, so every
// accessor tolerates missing keys and unexpected shapes.

func object(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func objects(m map[string]any, key string) []map[string]any {
	if m == nil {
		return nil
	}
	arr, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// refID reads m[key].id.
func refID(m map[string]any, key string) string {
	return str(object(m, key), "id")
}

// refIDs reads m[key][].id.
func refIDs(m map[string]any, key string) []string {
	var out []string
	for _, obj := range objects(m, key) {
		if id := str(obj, "id"); id != "" {
			out = append(out, id)
		}
	}
	return out
}
