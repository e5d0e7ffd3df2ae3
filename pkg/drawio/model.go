package drawio

import "encoding/xml"

// MxFile is the document envelope.
type MxFile struct {
	XMLName   xml.Name `xml:"mxfile"`
	Host      string   `xml:"host,attr"`
	Version   string   `xml:"version,attr"`
	Generator string   `xml:"generator,attr"`
	Diagram   Diagram  `xml:"diagram"`
}

// Diagram is a single page.
type Diagram struct {
	Name  string       `xml:"name,attr"`
	ID    string       `xml:"id,attr"`
	Model MxGraphModel `xml:"mxGraphModel"`
}

// MxGraphModel holds the page settings and the flat cell list.
type MxGraphModel struct {
	Dx         int  `xml:"dx,attr"`
	Dy         int  `xml:"dy,attr"`
	Grid       int  `xml:"grid,attr"`
	GridSize   int  `xml:"gridSize,attr"`
	Guides     int  `xml:"guides,attr"`
	Tooltips   int  `xml:"tooltips,attr"`
	Connect    int  `xml:"connect,attr"`
	Arrows     int  `xml:"arrows,attr"`
	Fold       int  `xml:"fold,attr"`
	Page       int  `xml:"page,attr"`
	PageScale  int  `xml:"pageScale,attr"`
	PageWidth  int  `xml:"pageWidth,attr"`
	PageHeight int  `xml:"pageHeight,attr"`
	Math       int  `xml:"math,attr"`
	Shadow     int  `xml:"shadow,attr"`
	Root       Root `xml:"root"`
}

// Root wraps the cells.
type Root struct {
	Cells []MxCell `xml:"mxCell"`
}

// MxCell is a vertex, an edge or one of the two bootstrap cells.
type MxCell struct {
	ID       string    `xml:"id,attr"`
	Value    string    `xml:"value,attr,omitempty"`
	Style    string    `xml:"style,attr,omitempty"`
	Vertex   string    `xml:"vertex,attr,omitempty"`
	Edge     string    `xml:"edge,attr,omitempty"`
	Parent   string    `xml:"parent,attr,omitempty"`
	Source   string    `xml:"source,attr,omitempty"`
	Target   string    `xml:"target,attr,omitempty"`
	Geometry *Geometry `xml:"mxGeometry,omitempty"`
}

// Geometry positions a cell. Coordinates are strings so that zero values
// are still written out.
type Geometry struct {
	X        string `xml:"x,attr,omitempty"`
	Y        string `xml:"y,attr,omitempty"`
	Width    string `xml:"width,attr,omitempty"`
	Height   string `xml:"height,attr,omitempty"`
	Relative string `xml:"relative,attr,omitempty"`
	As       string `xml:"as,attr"`
}

// IsVertex reports whether the cell is a vertex.
func (c MxCell) IsVertex() bool { return c.Vertex == "1" }

// IsEdge reports whether the cell is a connector.
func (c MxCell) IsEdge() bool { return c.Edge == "1" }
