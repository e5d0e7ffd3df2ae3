package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a graph to indented JSON bytes.
// The output is deterministic for a validated graph.
func MarshalGraph(g Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeGraphTo(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraphFile writes a graph to a JSON file.
// The file is created with 0644 permissions.
func WriteGraphFile(g Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeGraphTo(g, f)
}

// WriteGraph writes a graph as JSON to an io.Writer.
func WriteGraph(g Graph, w io.Writer) error {
	return writeGraphTo(g, w)
}

// ReadGraphFile reads a JSON file and returns the validated graph.
func ReadGraphFile(path string) (Graph, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Graph{}, Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readGraphFrom(f)
}

// ReadGraph decodes a JSON graph from an io.Reader and validates it.
func ReadGraph(r io.Reader) (Graph, Report, error) {
	return readGraphFrom(r)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeGraphTo(g Graph, w io.Writer) error {
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readGraphFrom(r io.Reader) (Graph, Report, error) {
	var data Graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return Graph{}, Report{}, fmt.Errorf("decode: %w", err)
	}
	g, rep := Validate(data.Nodes, data.Edges)
	g.Meta = data.Meta
	return g, rep, nil
}
