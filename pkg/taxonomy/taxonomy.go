// Package taxonomy maps resource types to their place in a diagram: the
// hierarchy level they occupy, their sibling rank and their icon.
//
// A [Table] is an explicit value. The engine never consults package-level
// state; callers start from [Default] and override entries through
// configuration.
package taxonomy

import (
	"crypto/sha1"
	"encoding/binary"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/azdiagram/pkg/model"
)

// Level is a position in the fixed containment hierarchy.
type Level int

// Hierarchy levels from innermost to outermost.
const (
	LevelLeaf Level = iota
	LevelSubnet
	LevelVNet
	LevelResourceGroup
	LevelRegion
	LevelCloud
)

var levelNames = map[Level]string{
	LevelLeaf:          "leaf",
	LevelSubnet:        "subnet",
	LevelVNet:          "vnet",
	LevelResourceGroup: "resource-group",
	LevelRegion:        "region",
	LevelCloud:         "cloud",
}

// String returns the level name.
func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// IsContainer reports whether the level holds children.
func (l Level) IsContainer() bool {
	return l != LevelLeaf
}

// IsSynthetic reports whether containers at this level are created by the
// hierarchy builder rather than backed by a resource.
func (l Level) IsSynthetic() bool {
	return l >= LevelResourceGroup
}

// Table holds the type-driven lookups used by the hierarchy builder, the
// layout engine and the serializer.
type Table struct {
	// Icons maps a lower-case type prefix to a diagram icon path.
	Icons map[string]string

	// Order is the LAYOUT_ORDER rank table: lower-case type names without the
	// provider namespace, earliest first.
	Order []string

	// GenericIcon is used for unmatched types when non-empty. When empty,
	// unmatched types render as a colored box from Palette.
	GenericIcon string

	// Palette colors unmatched types deterministically.
	Palette []string

	VNetType   string
	SubnetType string

	prefixes []string
	ranks    map[string]int
}

// New builds a table and precomputes its lookup indexes.
func New(icons map[string]string, order []string) *Table {
	t := &Table{
		Icons:      make(map[string]string, len(icons)),
		Order:      slices.Clone(order),
		Palette:    slices.Clone(defaultPalette),
		VNetType:   model.TypeVirtualNetwork,
		SubnetType: model.TypeSubnet,
	}
	for k, v := range icons {
		t.Icons[strings.ToLower(strings.TrimSpace(k))] = v
	}
	t.reindex()
	return t
}

// Default returns a fresh table with the built-in icons and LAYOUT_ORDER.
func Default() *Table {
	return New(defaultIcons, layoutOrder)
}

// LayoutOrder returns a copy of the built-in LAYOUT_ORDER.
func LayoutOrder() []string {
	return slices.Clone(layoutOrder)
}

// Clone returns an independent copy that can be modified.
func (t *Table) Clone() *Table {
	c := New(t.Icons, t.Order)
	c.GenericIcon = t.GenericIcon
	c.Palette = slices.Clone(t.Palette)
	c.VNetType = t.VNetType
	c.SubnetType = t.SubnetType
	return c
}

// WithIcons returns a copy with the given icon entries added or replaced.
func (t *Table) WithIcons(overrides map[string]string) *Table {
	c := t.Clone()
	for k, v := range overrides {
		c.Icons[strings.ToLower(strings.TrimSpace(k))] = v
	}
	c.reindex()
	return c
}

// WithOrder returns a copy using a different LAYOUT_ORDER.
func (t *Table) WithOrder(order []string) *Table {
	c := t.Clone()
	c.Order = slices.Clone(order)
	c.reindex()
	return c
}

func (t *Table) reindex() {
	t.prefixes = slices.Collect(maps.Keys(t.Icons))
	slices.SortFunc(t.prefixes, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})

	t.ranks = make(map[string]int, len(t.Order))
	for i, name := range t.Order {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := t.ranks[name]; !dup {
			t.ranks[name] = i
		}
	}
}

// Level returns the hierarchy level of a resource type.
func (t *Table) Level(resourceType string) Level {
	switch strings.ToLower(resourceType) {
	case t.VNetType:
		return LevelVNet
	case t.SubnetType:
		return LevelSubnet
	}
	return LevelLeaf
}

// Rank returns the LAYOUT_ORDER position of a resource type. The provider
// namespace is ignored, so "Microsoft.Network/publicIPAddresses" ranks as
// "publicipaddresses". Types missing from the table rank after all listed
// types.
func (t *Table) Rank(resourceType string) int {
	short := ShortType(resourceType)
	if r, ok := t.ranks[short]; ok {
		return r
	}
	return len(t.Order)
}

// Icon returns the icon path for a resource type. Matching is
// case-insensitive and picks the longest table key that equals the type or is
// a path prefix of it.
func (t *Table) Icon(resourceType string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(resourceType))
	for _, p := range t.prefixes {
		if lower == p || strings.HasPrefix(lower, p+"/") {
			return t.Icons[p], true
		}
	}
	return "", false
}

// FallbackColor returns a stable palette color for an unmatched type.
func (t *Table) FallbackColor(resourceType string) string {
	if len(t.Palette) == 0 {
		return "#546E7A"
	}
	sum := sha1.Sum([]byte(strings.ToLower(resourceType)))
	idx := binary.BigEndian.Uint32(sum[:4]) % uint32(len(t.Palette))
	return t.Palette[idx]
}

// ShortType strips the provider namespace from a resource type and lower-cases it.
func ShortType(resourceType string) string {
	lower := strings.ToLower(strings.TrimSpace(resourceType))
	if i := strings.Index(lower, "/"); i >= 0 {
		return lower[i+1:]
	}
	return lower
}
