package taxonomy

import (
	"strings"
	"testing"

	"github.com/matzehuels/azdiagram/pkg/model"
)

func TestRankInvariants(t *testing.T) {
	tbl := Default()

	pip := tbl.Rank("Microsoft.Network/publicIPAddresses")
	vnet := tbl.Rank("Microsoft.Network/virtualNetworks")
	subnet := tbl.Rank("Microsoft.Network/virtualNetworks/subnets")

	if pip >= vnet {
		t.Errorf("rank(publicip) = %d, want < rank(vnet) = %d", pip, vnet)
	}
	if subnet >= vnet {
		t.Errorf("rank(subnet) = %d, want < rank(vnet) = %d", subnet, vnet)
	}
}

func TestRankUnknownLast(t *testing.T) {
	tbl := Default()
	if got := tbl.Rank("microsoft.example/widgets"); got != len(tbl.Order) {
		t.Errorf("Rank(unknown) = %d, want %d", got, len(tbl.Order))
	}
	if got := tbl.Rank(""); got != len(tbl.Order) {
		t.Errorf("Rank(empty) = %d, want %d", got, len(tbl.Order))
	}
}

func TestLevel(t *testing.T) {
	tbl := Default()
	tests := []struct {
		typ  string
		want Level
	}{
		{"Microsoft.Network/virtualNetworks", LevelVNet},
		{model.TypeSubnet, LevelSubnet},
		{model.TypeVirtualMachine, LevelLeaf},
		{"microsoft.network/virtualnetworkgateways", LevelLeaf},
		{"", LevelLeaf},
	}
	for _, tt := range tests {
		if got := tbl.Level(tt.typ); got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestLevelProperties(t *testing.T) {
	if LevelLeaf.IsContainer() {
		t.Error("leaf should not be a container")
	}
	for _, l := range []Level{LevelSubnet, LevelVNet} {
		if !l.IsContainer() || l.IsSynthetic() {
			t.Errorf("%v: container=%v synthetic=%v", l, l.IsContainer(), l.IsSynthetic())
		}
	}
	for _, l := range []Level{LevelResourceGroup, LevelRegion, LevelCloud} {
		if !l.IsSynthetic() {
			t.Errorf("%v should be synthetic", l)
		}
	}
	if LevelVNet.String() != "vnet" || Level(99).String() != "unknown" {
		t.Error("unexpected level names")
	}
}

func TestIconLongestPrefix(t *testing.T) {
	tbl := Default()
	tests := []struct {
		typ      string
		wantPart string
		wantOK   bool
	}{
		{"Microsoft.Network/virtualNetworks", "Virtual_Networks.svg", true},
		{"MICROSOFT.NETWORK/VIRTUALNETWORKS/SUBNETS", "Subnet.svg", true},
		{"microsoft.network/virtualnetworkgateways", "Virtual_Network_Gateways.svg", true},
		{"microsoft.web/sites/slots", "App_Services.svg", true},
		{"microsoft.network/virtualnetworktaps", "", false},
		{"microsoft.example/widgets", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := tbl.Icon(tt.typ)
		if ok != tt.wantOK || !strings.HasSuffix(got, tt.wantPart) {
			t.Errorf("Icon(%q) = %q, %v; want *%s, %v", tt.typ, got, ok, tt.wantPart, tt.wantOK)
		}
	}
}

func TestWithIconsOverride(t *testing.T) {
	base := Default()
	custom := base.WithIcons(map[string]string{
		"Microsoft.Example/widgets": "img/custom/widget.svg",
		model.TypeVirtualNetwork:    "img/custom/vnet.svg",
	})

	if got, ok := custom.Icon("microsoft.example/widgets"); !ok || got != "img/custom/widget.svg" {
		t.Errorf("custom icon = %q, %v", got, ok)
	}
	if got, _ := custom.Icon(model.TypeVirtualNetwork); got != "img/custom/vnet.svg" {
		t.Errorf("override icon = %q", got)
	}
	if _, ok := base.Icon("microsoft.example/widgets"); ok {
		t.Error("WithIcons mutated the base table")
	}
}

func TestWithOrder(t *testing.T) {
	tbl := Default().WithOrder([]string{"virtualmachines", "publicipaddresses"})
	if tbl.Rank(model.TypeVirtualMachine) != 0 || tbl.Rank(model.TypePublicIP) != 1 {
		t.Error("custom order not applied")
	}
	if Default().Rank(model.TypeVirtualMachine) == 0 {
		t.Error("WithOrder mutated defaults")
	}
}

func TestLayoutOrderReturnsCopy(t *testing.T) {
	order := LayoutOrder()
	first := order[0]
	order[0] = "virtualmachines"

	if got := LayoutOrder()[0]; got != first {
		t.Errorf("LayoutOrder()[0] = %q after caller write, want %q", got, first)
	}
	if Default().Rank(model.TypeVirtualMachine) == 0 {
		t.Error("caller write reached Default()")
	}
}

func TestFallbackColorStable(t *testing.T) {
	tbl := Default()
	a := tbl.FallbackColor("Microsoft.Example/Widgets")
	b := tbl.FallbackColor("microsoft.example/widgets")
	if a != b {
		t.Errorf("FallbackColor not case-insensitive: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, "#") {
		t.Errorf("FallbackColor = %q, want a hex color", a)
	}
}

func TestShortType(t *testing.T) {
	if got := ShortType("Microsoft.Network/virtualNetworks/subnets"); got != "virtualnetworks/subnets" {
		t.Errorf("ShortType = %q", got)
	}
	if got := ShortType("unknown"); got != "unknown" {
		t.Errorf("ShortType = %q", got)
	}
}
