package drawio

import (
	"fmt"

	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

type palette struct{ fill, stroke string }

var containerColors = map[taxonomy.Level]palette{
	taxonomy.LevelCloud:         {"#E8EAF6", "#5C6BC0"},
	taxonomy.LevelRegion:        {"#E8EAF6", "#5C6BC0"},
	taxonomy.LevelResourceGroup: {"#FFF8E1", "#F9A825"},
	taxonomy.LevelVNet:          {"#E3F2FD", "#1565C0"},
	taxonomy.LevelSubnet:        {"#F1F8E9", "#558B2F"},
}

var containerFontSize = map[taxonomy.Level]int{
	taxonomy.LevelCloud:         18,
	taxonomy.LevelRegion:        16,
	taxonomy.LevelResourceGroup: 14,
	taxonomy.LevelVNet:          14,
	taxonomy.LevelSubnet:        12,
}

const (
	titleStyle = "text;html=1;align=left;verticalAlign=middle;whiteSpace=wrap;rounded=0;" +
		"fontSize=18;fontStyle=1;fontColor=#333333;fillColor=none;strokeColor=none;fontFamily=Helvetica;"

	summaryStyle = "text;html=1;align=center;verticalAlign=middle;whiteSpace=wrap;rounded=1;" +
		"fontStyle=2;fontSize=10;fontColor=#666666;dashed=1;fillColor=#FAFAFA;strokeColor=#BDBDBD;"

	edgeBase  = "edgeStyle=orthogonalEdgeStyle;rounded=1;orthogonalLoop=1;jettySize=auto;html=1;"
	edgeLabel = "fontSize=10;fontColor=#666666;"
)

func containerStyle(level taxonomy.Level) string {
	c, ok := containerColors[level]
	if !ok {
		c = containerColors[taxonomy.LevelRegion]
	}
	size := containerFontSize[level]
	if size == 0 {
		size = 14
	}
	return fmt.Sprintf("swimlane;horizontal=1;startSize=30;fontSize=%d;fontStyle=1;"+
		"fillColor=%s;strokeColor=%s;fontColor=#333333;rounded=1;shadow=0;"+
		"whiteSpace=wrap;html=1;collapsible=0;container=1;", size, c.fill, c.stroke)
}

func iconStyle(path string) string {
	return "aspect=fixed;html=1;points=[];align=center;image;fontSize=12;" +
		"image=" + path + ";verticalLabelPosition=bottom;verticalAlign=top;"
}

func boxStyle(color string) string {
	return "rounded=1;whiteSpace=wrap;html=1;fillColor=" + color +
		";strokeColor=#ffffff;fontColor=#ffffff;fontSize=11;fontFamily=Consolas;"
}

// leafStyle returns the style of a resource cell and whether it is drawn as
// an icon.
func leafStyle(tbl *taxonomy.Table, resourceType string) (string, bool) {
	if path, ok := tbl.Icon(resourceType); ok {
		return iconStyle(path), true
	}
	if tbl.GenericIcon != "" {
		return iconStyle(tbl.GenericIcon), true
	}
	return boxStyle(tbl.FallbackColor(resourceType)), false
}

func edgeStyle(kind model.EdgeKind) string {
	s := edgeBase
	switch kind {
	case model.KindPeeredWith, model.KindConnectedTo:
		s += "strokeWidth=3;strokeColor=#0078D4;dashed=1;dashPattern=8 4;"
	case model.KindSecuredBy:
		s += "strokeWidth=1;strokeColor=#E53935;dashed=1;dashPattern=4 2;"
	case model.KindAssignedTo:
		s += "strokeWidth=1;strokeColor=#0078D4;"
	case model.KindAttachedTo:
		s += "strokeWidth=2;strokeColor=#333333;"
	}
	return s + edgeLabel
}

var edgeLabels = map[model.EdgeKind]string{
	model.KindPeeredWith:  "peering",
	model.KindConnectedTo: "VPN/ER",
	model.KindSecuredBy:   "NSG",
	model.KindConnectsTo:  "PE",
}
