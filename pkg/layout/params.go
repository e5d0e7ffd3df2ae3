package layout

import "github.com/matzehuels/azdiagram/pkg/taxonomy"

// Density is one step of the size ladder. When a layout exceeds the canvas
// caps it is recomputed at the next step.
type Density struct {
	Leaf     float64 `json:"leaf"`
	Gap      float64 `json:"gap"`
	Label    float64 `json:"label"`
	PadScale float64 `json:"pad_scale"`
}

// DefaultDensities is the ladder 50 > 40 > 32 > 24 px.
var DefaultDensities = []Density{
	{Leaf: 50, Gap: 20, Label: 20, PadScale: 1.0},
	{Leaf: 40, Gap: 12, Label: 16, PadScale: 0.75},
	{Leaf: 32, Gap: 8, Label: 14, PadScale: 0.6},
	{Leaf: 24, Gap: 6, Label: 12, PadScale: 0.5},
}

// Params are the layout engine's tunables. All lengths are in diagram units
// (pixels at 100% zoom).
type Params struct {
	// LeafSize, Gap and LabelBand define the first density step; further
	// steps come from Densities[1:].
	LeafSize  float64
	Gap       float64
	LabelBand float64

	// When the tree has more than ShrinkThreshold leaves, the first step
	// uses ShrunkLeafSize and a proportionally smaller gap.
	ShrunkLeafSize  float64
	ShrinkThreshold int

	// Padding is the inner margin per container level.
	Padding map[taxonomy.Level]float64
	// Header is the container title band.
	Header float64

	// Containers with at most SmallGroupSize children are packed into
	// SmallGroupWidth; others into WidthCap for their level.
	SmallGroupSize  int
	SmallGroupWidth float64
	WidthCap        map[taxonomy.Level]float64

	// MinContainerWidth keeps container headers readable.
	MinContainerWidth float64

	MinColumns int
	MaxColumns int

	CanvasMaxWidth  float64
	CanvasMaxHeight float64

	Densities []Density
}

// DefaultParams returns the built-in parameters.
func DefaultParams() Params {
	return Params{
		LeafSize:        50,
		Gap:             20,
		LabelBand:       20,
		ShrunkLeafSize:  40,
		ShrinkThreshold: 40,
		Padding: map[taxonomy.Level]float64{
			taxonomy.LevelSubnet:        10,
			taxonomy.LevelVNet:          15,
			taxonomy.LevelResourceGroup: 20,
			taxonomy.LevelRegion:        25,
			taxonomy.LevelCloud:         30,
		},
		Header:          30,
		SmallGroupSize:  3,
		SmallGroupWidth: 200,
		WidthCap: map[taxonomy.Level]float64{
			taxonomy.LevelSubnet:        400,
			taxonomy.LevelVNet:          600,
			taxonomy.LevelResourceGroup: 800,
			taxonomy.LevelRegion:        800,
			taxonomy.LevelCloud:         1600,
		},
		MinContainerWidth: 120,
		MinColumns:        2,
		MaxColumns:        4,
		CanvasMaxWidth:    1600,
		CanvasMaxHeight:   2000,
		Densities:         DefaultDensities,
	}
}

// steps returns the density ladder with the first step taken from the
// explicit leaf/gap/label settings.
func (p Params) steps(leaves int) []Density {
	first := Density{Leaf: p.LeafSize, Gap: p.Gap, Label: p.LabelBand, PadScale: 1}
	if leaves > p.ShrinkThreshold && p.ShrunkLeafSize > 0 && p.ShrunkLeafSize < p.LeafSize {
		ratio := p.ShrunkLeafSize / p.LeafSize
		first.Leaf = p.ShrunkLeafSize
		first.Gap *= ratio
	}
	out := []Density{first}
	if len(p.Densities) > 1 {
		for _, d := range p.Densities[1:] {
			if d.Leaf < first.Leaf {
				out = append(out, d)
			}
		}
	}
	return out
}
