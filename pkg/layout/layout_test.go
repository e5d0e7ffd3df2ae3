package layout

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/matzehuels/azdiagram/pkg/hierarchy"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

const (
	vnetID = "/subscriptions/s/resourcegroups/net/providers/microsoft.network/virtualnetworks/hub"
	snetID = vnetID + "/subnets/default"
)

func tree(nodes []model.Node, edges []model.Edge) hierarchy.Tree {
	g, _ := model.Validate(nodes, edges)
	return hierarchy.Build(g, taxonomy.Default())
}

func leaves(n int, rg string) []model.Node {
	out := make([]model.Node, n)
	for i := range out {
		out[i] = model.Node{
			ID:            fmt.Sprintf("/subscriptions/s/resourcegroups/%s/providers/microsoft.compute/disks/d%03d", rg, i),
			Type:          "microsoft.compute/disks",
			ResourceGroup: rg,
			Location:      "japaneast",
		}
	}
	return out
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "vm1", "vm1"},
		{"twenty", "abcdefghijklmnopqrst", "abcdefghijklmnopqrst"},
		{"exact limit", strings.Repeat("x", 22), strings.Repeat("x", 22)},
		{"thirty", "abcdefghij0123456789ABCDEFGHIJ", "abcdefghij...CDEFGHIJ"},
		{"multibyte", strings.Repeat("あ", 10) + strings.Repeat("い", 5) + strings.Repeat("う", 8), strings.Repeat("あ", 10) + "..." + strings.Repeat("う", 8)},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in)
			if got != tt.want {
				t.Errorf("Truncate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncateLength(t *testing.T) {
	got := Truncate(strings.Repeat("a", 30))
	if n := len([]rune(got)); n != KeepHead+len(Ellipsis)+KeepTail {
		t.Errorf("truncated length = %d", n)
	}
}

func TestTruncateSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "disk (+5 more)", "disk (+5 more)"},
		{"long name", "storage-prod-eastasia-01 (+12 more)", "storage-pr...tasia-01 (+12 more)"},
		{"no suffix", strings.Repeat("s", 30), Truncate(strings.Repeat("s", 30))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateSummary(tt.in); got != tt.want {
				t.Errorf("TruncateSummary(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestColumns(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 0}, {1, 1}, {2, 2}, {3, 2}, {4, 2}, {5, 3}, {9, 3}, {10, 4}, {100, 4},
	}
	for _, tt := range tests {
		if got := Columns(tt.n, 2, 4); got != tt.want {
			t.Errorf("Columns(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestArrangeEmpty(t *testing.T) {
	l := Arrange(hierarchy.Tree{}, DefaultParams())
	if l.Root != nil || l.Width != 0 || l.Height != 0 {
		t.Errorf("empty layout = %+v", l)
	}
}

// checkEnclosure asserts every child lies inside its parent's padded area.
func checkEnclosure(t *testing.T, b *Box, p Params, scale float64) {
	t.Helper()
	pad := p.Padding[b.Level] * scale
	for _, c := range b.Children {
		if c.X < pad || c.Y < p.Header+pad {
			t.Errorf("%s: child %s at (%v,%v) inside padding", b.Key, c.Key, c.X, c.Y)
		}
		if c.Right() > b.W-pad+1e-9 || c.Bottom() > b.H-pad+1e-9 {
			t.Errorf("%s (%vx%v): child %s overflows to (%v,%v)", b.Key, b.W, b.H, c.Key, c.Right(), c.Bottom())
		}
		checkEnclosure(t, c, p, scale)
	}
}

func TestArrangeEnclosesChildren(t *testing.T) {
	nodes := append(leaves(7, "app"),
		model.Node{ID: vnetID, Type: model.TypeVirtualNetwork, ResourceGroup: "net", Location: "japaneast"},
		model.Node{ID: snetID, Type: model.TypeSubnet, ResourceGroup: "net", Location: "japaneast"},
		model.Node{ID: "nic", Type: model.TypeNetworkInterface, ResourceGroup: "net", Location: "japaneast"},
	)
	edges := []model.Edge{
		model.NewEdge(snetID, vnetID, model.KindContainedIn),
		model.NewEdge("nic", snetID, model.KindInSubnet),
	}
	p := DefaultParams()
	l := Arrange(tree(nodes, edges), p)

	if l.Root == nil || l.Root.Level != taxonomy.LevelRegion {
		t.Fatalf("root = %+v, want region", l.Root)
	}
	if l.Density != 0 || l.LeafSize != 50 {
		t.Errorf("small diagram should use the first density, got %d (%v)", l.Density, l.LeafSize)
	}
	checkEnclosure(t, l.Root, p, 1)
}

func TestArrangeGridColumns(t *testing.T) {
	l := Arrange(tree(leaves(9, "app"), nil), DefaultParams())
	rows := map[float64]int{}
	for _, c := range l.Root.Children {
		rows[c.Y]++
	}
	if len(rows) != 3 {
		t.Errorf("9 leaves should pack into 3 rows, got %v", rows)
	}
	for y, n := range rows {
		if n > 3 {
			t.Errorf("row %v has %d items, want at most 3", y, n)
		}
	}
}

func TestArrangeSmallGroupWidth(t *testing.T) {
	p := DefaultParams()
	l := Arrange(tree(leaves(3, "app"), nil), p)
	if l.Root.W > p.SmallGroupWidth {
		t.Errorf("group of 3 is %v wide, want <= %v", l.Root.W, p.SmallGroupWidth)
	}
}

func TestArrangeDegradesDensity(t *testing.T) {
	p := DefaultParams()
	l := Arrange(tree(leaves(400, "big"), nil), p)

	if l.Density == 0 {
		t.Fatal("oversized layout should move down the density ladder")
	}
	if l.LeafSize != 24 {
		t.Errorf("LeafSize = %v, want last step 24", l.LeafSize)
	}
	count := 0
	l.Root.Walk(func(b *Box) {
		if b.Level == taxonomy.LevelLeaf {
			count++
		}
	})
	if count != 400 {
		t.Errorf("layout has %d leaves, want 400 (content is never dropped)", count)
	}
}

func TestArrangeShrinksManyLeaves(t *testing.T) {
	l := Arrange(tree(leaves(41, "app"), nil), DefaultParams())
	if l.Density != 0 || l.LeafSize != 40 {
		t.Errorf("41 leaves: density %d leaf %v, want 0 and 40", l.Density, l.LeafSize)
	}
}

func TestArrangeSummaryLeaf(t *testing.T) {
	nodes := leaves(2, "app")
	nodes = append(nodes, model.Node{
		ID: "__group__abc", Name: "disk... (+5 more)", Type: "microsoft.compute/disks",
		ResourceGroup: "app", Location: "japaneast",
	})
	l := Arrange(tree(nodes, nil), DefaultParams())

	last := l.Root.Children[len(l.Root.Children)-1]
	if last.Key != "__group__abc" {
		t.Fatalf("summary should sort last among its type, got %s", last.Key)
	}
	if last.H >= l.Root.Children[0].H {
		t.Errorf("summary height %v should be shorter than a leaf %v", last.H, l.Root.Children[0].H)
	}
}

func TestArrangeSummaryLabelKeepsCount(t *testing.T) {
	nodes := []model.Node{{
		ID: "__group__long", Name: "storage-prod-eastasia-01 (+12 more)", Type: "microsoft.storage/storageaccounts",
		ResourceGroup: "app", Location: "japaneast",
	}}
	l := Arrange(tree(nodes, nil), DefaultParams())
	if got := l.Root.Label; !strings.HasSuffix(got, " (+12 more)") {
		t.Errorf("label = %q, want the count kept whole", got)
	}
}

func TestArrangeDeterministic(t *testing.T) {
	nodes := leaves(12, "app")
	a, _ := json.Marshal(Arrange(tree(nodes, nil), DefaultParams()))
	b, _ := json.Marshal(Arrange(tree(nodes, nil), DefaultParams()))
	if string(a) != string(b) {
		t.Error("layout is not deterministic")
	}
}

func TestBoxLabelTruncated(t *testing.T) {
	nodes := []model.Node{{ID: "a", Name: strings.Repeat("n", 30), Type: "t"}}
	l := Arrange(tree(nodes, nil), DefaultParams())
	if got := l.Root.Label; len(got) != 21 {
		t.Errorf("label = %q, want truncated", got)
	}
}
