// Package mcp exposes the diagram pipeline to Model Context Protocol
// clients over stdio.
package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/matzehuels/azdiagram/pkg/buildinfo"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/pipeline"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

const layoutOrderURI = "azdiagram://taxonomy/layout-order"

// Server adapts a pipeline runner to MCP.
type Server struct {
	mcpServer *server.MCPServer
	runner    *pipeline.Runner
}

// NewServer creates an MCP server backed by runner.
func NewServer(runner *pipeline.Runner) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("azdiagram", buildinfo.Version),
		runner:    runner,
	}
	s.registerResources()
	s.registerTools()
	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		layoutOrderURI,
		"Resource type layout order",
		mcp.WithResourceDescription("Resource types in the order they are placed inside a container"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadLayoutOrder)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"render_diagram",
		mcp.WithDescription("Render an Azure resource graph (JSON with nodes and edges) to draw.io XML."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph JSON as written by `azdiagram collect`")),
		mcp.WithString("name", mcp.Description("Diagram name used for the page title")),
		mcp.WithBoolean("detailed", mcp.Description("Keep every leaf instead of summarizing large groups")),
	), s.handleRenderDiagram)

	s.mcpServer.AddTool(mcp.NewTool(
		"summarize_graph",
		mcp.WithDescription("Count resources per type and report validation problems in a resource graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph JSON as written by `azdiagram collect`")),
	), s.handleSummarizeGraph)
}

func (s *Server) handleReadLayoutOrder(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(taxonomy.LayoutOrder(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal layout order: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRenderDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, _, err := parseGraph(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.runner.Render(ctx, g, pipeline.Options{
		Name:     mcp.ParseString(request, "name", pipeline.DefaultName),
		Formats:  []string{pipeline.FormatDrawio},
		Detailed: mcp.ParseBoolean(request, "detailed", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(res.Artifacts[pipeline.FormatDrawio])), nil
}

// TypeCount is one row of a graph summary.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Level string `json:"level"`
}

// Summary is the result of summarize_graph.
type Summary struct {
	Nodes  int          `json:"nodes"`
	Edges  int          `json:"edges"`
	Types  []TypeCount  `json:"types"`
	Report model.Report `json:"report"`
	Clean  bool         `json:"clean"`
}

func (s *Server) handleSummarizeGraph(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, rep, err := parseGraph(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.MarshalIndent(summarize(g, rep, s.runner.Table), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func summarize(g model.Graph, rep model.Report, tbl *taxonomy.Table) Summary {
	if tbl == nil {
		tbl = taxonomy.Default()
	}
	out := Summary{Nodes: g.NodeCount(), Edges: g.EdgeCount(), Report: rep, Clean: rep.Clean()}
	for typ, n := range model.TypeSummary(g.Nodes) {
		out.Types = append(out.Types, TypeCount{Type: typ, Count: n, Level: tbl.Level(typ).String()})
	}
	slices.SortFunc(out.Types, func(a, b TypeCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Type, b.Type))
	})
	return out
}

func parseGraph(request mcp.CallToolRequest) (model.Graph, model.Report, error) {
	raw := mcp.ParseString(request, "graph", "")
	if strings.TrimSpace(raw) == "" {
		return model.Graph{}, model.Report{}, fmt.Errorf("graph is required")
	}
	g, rep, err := model.ReadGraph(strings.NewReader(raw))
	if err != nil {
		return model.Graph{}, model.Report{}, fmt.Errorf("invalid graph: %w", err)
	}
	return g, rep, nil
}
