// Package layout assigns geometry to a containment tree.
//
// Layout is a single bottom-up pass: leaves get a fixed square, containers
// pack their children into a grid of two to four columns and grow to
// enclose them plus level padding and a header. If the result exceeds the
// canvas caps, the pass is repeated at the next density step. Content is
// never dropped; the last step is accepted even when still oversized.
//
// Coordinates of a [Box] are relative to its parent box, matching the way
// diagram editors position cells inside containers.
package layout

import (
	"math"

	"github.com/matzehuels/azdiagram/pkg/hierarchy"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

// Box is a positioned tree element.
type Box struct {
	Element  *hierarchy.Element `json:"-"`
	Key      string             `json:"key"`
	Level    taxonomy.Level     `json:"level"`
	Label    string             `json:"label"`
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	W        float64            `json:"width"`
	H        float64            `json:"height"`
	Children []*Box             `json:"children,omitempty"`

	// footprint height; leaves reserve a label band below the icon.
	slotH float64
}

// Right returns the right edge in parent coordinates.
func (b *Box) Right() float64 { return b.X + b.W }

// Bottom returns the bottom edge in parent coordinates.
func (b *Box) Bottom() float64 { return b.Y + b.H }

// Walk visits b and its descendants depth-first.
func (b *Box) Walk(fn func(*Box)) {
	fn(b)
	for _, c := range b.Children {
		c.Walk(fn)
	}
}

// Layout is the positioned tree.
type Layout struct {
	Root   *Box    `json:"root,omitempty"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Density is the index of the density step that was used.
	Density  int     `json:"density"`
	LeafSize float64 `json:"leaf_size"`
}

// Arrange lays out the tree. An empty tree gives an empty layout.
func Arrange(tree hierarchy.Tree, p Params) Layout {
	if tree.Root == nil {
		return Layout{}
	}
	steps := p.steps(tree.Leaves())

	var out Layout
	for i, d := range steps {
		e := engine{p: p, d: d}
		root := e.place(tree.Root)
		out = Layout{Root: root, Width: root.W, Height: root.H, Density: i, LeafSize: d.Leaf}
		if root.W <= p.CanvasMaxWidth && root.H <= p.CanvasMaxHeight {
			break
		}
	}
	return out
}

type engine struct {
	p Params
	d Density
}

func (e engine) place(el *hierarchy.Element) *Box {
	b := &Box{
		Element: el,
		Key:     el.Key,
		Level:   el.Level,
		Label:   Truncate(el.Label),
	}
	if el.Summary {
		b.Label = TruncateSummary(el.Label)
	}
	if !el.IsContainer() {
		e.sizeLeaf(b, el.Summary)
		return b
	}

	for _, c := range el.Children {
		b.Children = append(b.Children, e.place(c))
	}
	e.pack(b)
	return b
}

func (e engine) sizeLeaf(b *Box, summary bool) {
	if summary {
		b.W = e.d.Leaf * 2
		b.H = e.d.Leaf / 2
		b.slotH = b.H
		return
	}
	b.W = e.d.Leaf
	b.H = e.d.Leaf
	b.slotH = e.d.Leaf + e.d.Label
}

// pack arranges b's children in rows and sizes b around them.
func (e engine) pack(b *Box) {
	pad := e.p.Padding[b.Level] * e.d.PadScale
	gap := e.d.Gap
	n := len(b.Children)

	budget := e.p.WidthCap[b.Level]
	if n <= e.p.SmallGroupSize {
		budget = e.p.SmallGroupWidth
	}
	inner := budget - 2*pad
	cols := Columns(n, e.p.MinColumns, e.p.MaxColumns)

	var x, y, rowH, usedW float64
	inRow := 0
	for _, c := range b.Children {
		if inRow > 0 && (inRow == cols || x+c.W > inner) {
			y += rowH + gap
			x, rowH, inRow = 0, 0, 0
		}
		c.X = pad + x
		c.Y = e.p.Header + pad + y
		x += c.W + gap
		usedW = max(usedW, x-gap)
		rowH = max(rowH, c.slotH)
		inRow++
	}
	usedH := y + rowH

	b.W = max(usedW+2*pad, e.p.MinContainerWidth)
	b.H = e.p.Header + usedH + 2*pad
	b.slotH = b.H
}

// Columns returns clamp(ceil(sqrt(n)), lo, hi), never more than n.
func Columns(n, lo, hi int) int {
	if n <= 0 {
		return 0
	}
	c := int(math.Ceil(math.Sqrt(float64(n))))
	c = min(max(c, lo), hi)
	return min(c, n)
}
