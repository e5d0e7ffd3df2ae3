// Package drawio serializes a laid-out diagram as an mxfile document that
// opens in diagrams.net.
//
// The document is a flat list of mxCell elements. Containers are swimlanes;
// a cell's parent attribute names the container it sits in and its geometry
// is relative to that container. Containment edges are therefore never drawn
// as connectors.
//
// Output is deterministic: the same layout, edges and name give a
// byte-identical document, including the diagram id.
package drawio

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/xml"
	"html"
	"io"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/matzehuels/azdiagram/pkg/cellid"
	"github.com/matzehuels/azdiagram/pkg/layout"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

// Envelope constants.
const (
	Host      = "app.diagrams.net"
	Version   = "27.0.5"
	Generator = "azdiagram"

	// RootID and LayerID are the two bootstrap cells every document has.
	RootID  = "0"
	LayerID = "1"
)

// Page margins around the top-level container. The title sits in the band
// above it.
const (
	Margin      = 10
	TitleX      = 20
	TitleY      = 10
	TitleWidth  = 600
	TitleHeight = 30
	TitleBand   = 50

	minPageWidth  = 850
	minPageHeight = 1100
)

// TitleID is the id of the title cell.
var TitleID = cellid.SyntheticID("title", "")

// Document is the input of the serializer.
type Document struct {
	Name   string
	Layout layout.Layout
	Edges  []model.Edge
	Table  *taxonomy.Table
	// Assigner maps resource ids to cell ids. When nil a fresh one is
	// seeded with every resource in the layout.
	Assigner *cellid.Assigner
}

// Stats summarizes a serialized document.
type Stats struct {
	Vertices   int `json:"vertices"`
	Containers int `json:"containers"`
	Connectors int `json:"connectors"`
	// Containment edges are expressed by nesting, not drawn.
	Containment int `json:"containment"`
	// Dangling counts edges whose endpoint has no cell.
	Dangling   int `json:"dangling"`
	Duplicates int `json:"duplicates"`
	Collisions int `json:"collisions"`
}

// Build assembles the document tree.
func Build(doc Document) (*MxFile, Stats) {
	tbl := doc.Table
	if tbl == nil {
		tbl = taxonomy.Default()
	}
	b := &builder{
		tbl:      tbl,
		assigner: doc.Assigner,
		byKey:    make(map[string]string),
	}
	if b.assigner == nil {
		b.assigner = cellid.NewAssigner()
		b.assigner.AssignAll(resourceKeys(doc.Layout.Root))
	}

	b.cells = []MxCell{
		{ID: RootID},
		{ID: LayerID, Parent: RootID},
	}

	pageW, pageH := minPageWidth, minPageHeight
	if root := doc.Layout.Root; root != nil {
		b.cells = append(b.cells, MxCell{
			ID:       TitleID,
			Value:    title(doc.Name),
			Style:    titleStyle,
			Vertex:   "1",
			Parent:   LayerID,
			Geometry: geometry(TitleX, TitleY, TitleWidth, TitleHeight),
		})
		b.place(root, LayerID, Margin, TitleBand)
		b.stats.Vertices++
		pageW = max(pageW, int(root.W)+2*Margin)
		pageH = max(pageH, int(root.H)+TitleBand+Margin)
	}
	b.connect(doc.Edges)
	b.stats.Collisions = b.assigner.Collisions()

	f := &MxFile{
		Host:      Host,
		Version:   Version,
		Generator: Generator,
		Diagram: Diagram{
			Name: doc.Name,
			ID:   diagramID(doc.Name, b.cells),
			Model: MxGraphModel{
				Dx: pageW, Dy: pageH,
				Grid: 1, GridSize: 10,
				Guides: 1, Tooltips: 1, Connect: 1, Arrows: 1, Fold: 1,
				Page: 1, PageScale: 1,
				PageWidth: pageW, PageHeight: pageH,
				Root: Root{Cells: b.cells},
			},
		},
	}
	return f, b.stats
}

// Render writes the document to w.
func Render(w io.Writer, doc Document) error {
	f, _ := Build(doc)
	return Encode(w, f)
}

// Marshal returns the document as bytes.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes an assembled document with an XML declaration.
func Encode(w io.Writer, f *MxFile) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(f); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Decode parses a document, for tests and for diffing stored generations.
func Decode(r io.Reader) (*MxFile, error) {
	var f MxFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

type builder struct {
	tbl      *taxonomy.Table
	assigner *cellid.Assigner
	cells    []MxCell
	byKey    map[string]string // canonical resource id -> cell id
	stats    Stats
}

func (b *builder) cellID(box *layout.Box) string {
	el := box.Element
	if el != nil && el.Synthetic() {
		kind := el.SyntheticKind()
		if kind == "root" {
			return cellid.SyntheticID(kind, "")
		}
		return cellid.SyntheticID(kind, box.Key)
	}
	id := b.assigner.Assign(box.Key)
	b.byKey[cellid.NormalizeID(box.Key)] = id
	return id
}

func (b *builder) place(box *layout.Box, parent string, x, y float64) {
	id := b.cellID(box)
	cell := MxCell{
		ID:       id,
		Vertex:   "1",
		Parent:   parent,
		Geometry: geometry(x, y, box.W, box.H),
	}

	switch {
	case box.Level.IsContainer():
		cell.Value = containerLabel(box)
		cell.Style = containerStyle(box.Level)
		b.stats.Containers++
	case box.Element != nil && box.Element.Summary:
		cell.Value = box.Label
		cell.Style = summaryStyle
	default:
		typ := ""
		if box.Element != nil {
			typ = box.Element.Type
		}
		style, icon := leafStyle(b.tbl, typ)
		cell.Style = style
		if icon {
			cell.Value = box.Label
		} else {
			cell.Value = "<b>" + html.EscapeString(box.Label) + "</b><br><i style='font-size:9px;'>" +
				html.EscapeString(taxonomy.ShortType(typ)) + "</i>"
		}
	}
	b.cells = append(b.cells, cell)

	for _, c := range box.Children {
		b.place(c, id, c.X, c.Y)
		b.stats.Vertices++
	}
}

func (b *builder) connect(edges []model.Edge) {
	sorted := slices.Clone(edges)
	slices.SortFunc(sorted, func(x, y model.Edge) int { return cmp.Compare(x.Key(), y.Key()) })

	seen := make(map[string]bool)
	ids := make(map[string]bool)
	for _, e := range sorted {
		if e.Kind.IsContainment() {
			b.stats.Containment++
			continue
		}
		src, ok1 := b.byKey[cellid.NormalizeID(e.Source)]
		tgt, ok2 := b.byKey[cellid.NormalizeID(e.Target)]
		if !ok1 || !ok2 || src == tgt {
			b.stats.Dangling++
			continue
		}
		key := src + ">" + tgt + ">" + string(e.Kind)
		if seen[key] {
			b.stats.Duplicates++
			continue
		}
		seen[key] = true

		base := cellid.EdgeID(src, tgt, string(e.Kind))
		id := base
		for n := 2; ids[id]; n++ {
			id = base + "_" + strconv.Itoa(n)
		}
		ids[id] = true

		b.cells = append(b.cells, MxCell{
			ID:       id,
			Value:    edgeLabels[e.Kind],
			Style:    edgeStyle(e.Kind),
			Edge:     "1",
			Parent:   LayerID,
			Source:   src,
			Target:   tgt,
			Geometry: &Geometry{Relative: "1", As: "geometry"},
		})
		b.stats.Connectors++
	}
}

func containerLabel(box *layout.Box) string {
	switch box.Level {
	case taxonomy.LevelVNet:
		return "VNet: " + box.Label
	case taxonomy.LevelSubnet:
		return "Subnet: " + box.Label
	}
	return box.Label
}

func title(name string) string {
	if name == "" {
		return "Azure Environment"
	}
	return "Azure Environment: " + name
}

func geometry(x, y, w, h float64) *Geometry {
	return &Geometry{
		X:      num(x),
		Y:      num(y),
		Width:  num(w),
		Height: num(h),
		As:     "geometry",
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// diagramID derives a stable UUIDv5 from the name and the cell ids.
func diagramID(name string, cells []MxCell) string {
	h := sha256.New()
	for _, c := range cells {
		io.WriteString(h, c.ID)
		h.Write([]byte{0})
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, append([]byte(name+"\x00"), h.Sum(nil)...)).String()
}

func resourceKeys(root *layout.Box) []string {
	if root == nil {
		return nil
	}
	var keys []string
	root.Walk(func(b *layout.Box) {
		if b.Element == nil || !b.Element.Synthetic() {
			keys = append(keys, b.Key)
		}
	})
	return keys
}

// CellIDs returns the ids of all vertex cells in document order.
func (f *MxFile) CellIDs() []string {
	var out []string
	for _, c := range f.Diagram.Model.Root.Cells {
		if c.IsVertex() {
			out = append(out, c.ID)
		}
	}
	return out
}

// Lookup returns the cell with the given id.
func (f *MxFile) Lookup(id string) (MxCell, bool) {
	for _, c := range f.Diagram.Model.Root.Cells {
		if c.ID == id {
			return c, true
		}
	}
	return MxCell{}, false
}

// Count returns the number of cells whose id does not belong to the
// bootstrap pair.
func (f *MxFile) Count() int {
	n := 0
	for _, c := range f.Diagram.Model.Root.Cells {
		if c.ID != RootID && c.ID != LayerID {
			n++
		}
	}
	return n
}
