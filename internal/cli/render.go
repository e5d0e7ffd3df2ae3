package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/pipeline"
)

// fileExt maps output formats to file suffixes.
var fileExt = map[string]string{
	pipeline.FormatDrawio: ".drawio",
	pipeline.FormatSVG:    ".svg",
	pipeline.FormatPNG:    ".png",
	pipeline.FormatPDF:    ".pdf",
	pipeline.FormatJSON:   ".layout.json",
}

// renderOpts holds the flags shared by render and diagram.
type renderOpts struct {
	name       string
	formats    string
	output     string
	detailed   bool
	history    bool
	historyDSN string
}

func (o *renderOpts) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.name, "name", "n", "", "diagram name (default: input file name, or "+pipeline.DefaultName+")")
	f.StringVarP(&o.formats, "format", "f", "", "output format(s): drawio (default), svg, png, pdf, json (comma-separated)")
	f.StringVarP(&o.output, "output", "o", "", "output file (single format) or base path (multiple)")
	f.BoolVar(&o.detailed, "detailed", false, "draw every resource instead of summarizing large groups")
	f.BoolVar(&o.history, "history", false, "record this rendering and report what changed since the last one")
	f.StringVar(&o.historyDSN, "history-dsn", "", "history store: directory, sqlite://path or mongodb://... (default from config)")

	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{pipeline.FormatDrawio, pipeline.FormatSVG, pipeline.FormatPNG, pipeline.FormatPDF, pipeline.FormatJSON},
		cobra.ShellCompDirectiveNoFileComp))
}

// apply fills the render fields of opts.
func (o *renderOpts) apply(opts *pipeline.Options) {
	opts.Name = o.name
	opts.Formats = parseFormats(o.formats)
	opts.Detailed = o.detailed
	opts.History = o.history
}

// attachHistory opens the history store on r when --history is set.
func (c *CLI) attachHistory(ctx context.Context, r *pipeline.Runner, o *renderOpts) error {
	if !o.history {
		return nil
	}
	store, err := c.openHistory(ctx, o.historyDSN)
	if err != nil {
		return err
	}
	r.History = store
	return nil
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		ro      renderOpts
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a graph JSON file to a draw.io diagram",
		Long: `Render lays out a graph written by "azdiagram collect" and writes a
draw.io document. Use "-" to read the graph from stdin.

Previews (svg, png, pdf) are drawn with Graphviz and are meant for a quick
look; the .drawio file is the editable result.`,
		Example: `  azdiagram render net.json
  azdiagram render net.json -f drawio,svg -o diagrams/net
  azdiagram collect -g net | azdiagram render - --name net --history`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), cmd.InOrStdin(), args[0], &ro, noCache)
		},
	}

	ro.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the preview cache")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, stdin io.Reader, input string, ro *renderOpts, noCache bool) error {
	g, rep, err := readGraphInput(stdin, input)
	if err != nil {
		return err
	}
	printReport(rep)

	var opts pipeline.Options
	ro.apply(&opts)
	if opts.Name == "" {
		opts.Name = nameFromPath(input)
	}
	opts.Logger = c.Logger
	if err := opts.ValidateForRender(); err != nil {
		return err
	}

	r, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := c.attachHistory(ctx, r, ro); err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	res, err := r.Render(ctx, g, opts)
	if err != nil {
		return err
	}
	prog.done("render finished", "cells", res.Drawio.Vertices+res.Drawio.Connectors)

	return reportRender(res, opts, ro.output)
}

// readGraphInput reads graph JSON from a file, or from stdin for "-".
func readGraphInput(stdin io.Reader, input string) (model.Graph, model.Report, error) {
	if input == "-" {
		return model.ReadGraph(stdin)
	}
	return model.ReadGraphFile(input)
}

// nameFromPath derives a diagram name from an input file name.
func nameFromPath(path string) string {
	if path == "-" || path == "" {
		return pipeline.DefaultName
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outputPaths decides where each format is written. A single format goes
// to output as given; several formats share output (minus its extension)
// as base path. Without output, the diagram name is the base.
func outputPaths(output, name string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if output != "" && len(formats) == 1 {
		paths[formats[0]] = output
		return paths
	}
	base := name
	if output != "" {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}
	for _, f := range formats {
		paths[f] = base + fileExt[f]
	}
	return paths
}

// writeArtifacts writes every requested format and returns the written
// paths in format order.
func writeArtifacts(res *pipeline.Result, opts pipeline.Options, output string) ([]string, error) {
	paths := outputPaths(output, opts.Name, opts.Formats)
	written := make([]string, 0, len(opts.Formats))
	for _, f := range opts.Formats {
		data, ok := res.Artifacts[f]
		if !ok {
			continue
		}
		path := paths[f]
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return written, fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// reportRender writes the artifacts and prints the summary.
func reportRender(res *pipeline.Result, opts pipeline.Options, output string) error {
	written, err := writeArtifacts(res, opts, output)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", StyleNumber.Render(opts.Name))
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.RenderHit)
	if res.Drawio.Dangling > 0 {
		printDetail("%d connectors skipped: endpoint not drawn", res.Drawio.Dangling)
	}
	for _, p := range written {
		printFile(p)
	}
	if d := res.Changes; d != nil {
		printInfo("%s", d.Summary())
		printChanges(d.Added, d.Removed, 10)
	}
	return nil
}
