package mcp

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/matzehuels/azdiagram/pkg/pipeline"
)

const graphJSON = `{
  "nodes": [
    {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub",
     "name": "hub", "type": "Microsoft.Network/virtualNetworks", "resourceGroup": "net", "location": "japaneast"},
    {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/publicIPAddresses/pip1",
     "name": "pip1", "type": "Microsoft.Network/publicIPAddresses", "resourceGroup": "net", "location": "japaneast"},
    {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/publicIPAddresses/pip2",
     "name": "pip2", "type": "Microsoft.Network/publicIPAddresses", "resourceGroup": "net", "location": "japaneast"}
  ],
  "edges": [
    {"source": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/publicIPAddresses/pip1",
     "target": "/subscriptions/s1/gone", "kind": "attached-to"}
  ]
}`

func newServer() *Server {
	return NewServer(pipeline.NewRunner(nil, nil, log.New(io.Discard)))
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return text.Text
}

func TestRenderDiagram(t *testing.T) {
	s := newServer()
	res, err := s.handleRenderDiagram(context.Background(), callTool("render_diagram", map[string]any{
		"graph": graphJSON,
		"name":  "net",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	xml := resultText(t, res)
	if !strings.HasPrefix(xml, "<?xml") || !strings.Contains(xml, "<mxfile") {
		t.Errorf("not a draw.io document:\n%s", xml)
	}
}

func TestRenderDiagramErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing graph", map[string]any{}},
		{"bad graph", map[string]any{"graph": "{"}},
		{"bad name", map[string]any{"graph": graphJSON, "name": "../x"}},
	}
	s := newServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleRenderDiagram(context.Background(), callTool("render_diagram", tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if !res.IsError {
				t.Error("expected a tool error")
			}
		})
	}
}

func TestSummarizeGraph(t *testing.T) {
	s := newServer()
	res, err := s.handleSummarizeGraph(context.Background(), callTool("summarize_graph", map[string]any{"graph": graphJSON}))
	if err != nil {
		t.Fatal(err)
	}
	var sum Summary
	if err := json.Unmarshal([]byte(resultText(t, res)), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Nodes != 3 || sum.Edges != 0 || sum.Clean {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.Types) != 2 {
		t.Fatalf("types = %+v", sum.Types)
	}
	if sum.Types[0].Type != "Microsoft.Network/publicIPAddresses" || sum.Types[0].Count != 2 {
		t.Errorf("first type = %+v, want the most common type first", sum.Types[0])
	}
	if len(sum.Report.Dangling) != 1 {
		t.Errorf("dangling = %v", sum.Report.Dangling)
	}
}

func TestReadLayoutOrder(t *testing.T) {
	s := newServer()
	req := mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: layoutOrderURI}}
	got, err := s.handleReadLayoutOrder(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	content, ok := got[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", got[0])
	}
	var order []string
	if err := json.Unmarshal([]byte(content.Text), &order); err != nil {
		t.Fatal(err)
	}
	if len(order) == 0 {
		t.Error("empty layout order")
	}
}
