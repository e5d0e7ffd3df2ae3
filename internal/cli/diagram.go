package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/pipeline"
)

// diagramCommand creates the diagram command, which collects and renders
// in one run.
func (c *CLI) diagramCommand() *cobra.Command {
	var (
		co        collectOpts
		ro        renderOpts
		saveGraph string
	)

	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Collect Azure resources and render them in one step",
		Example: `  azdiagram diagram -g net -n net
  azdiagram diagram --pick -f drawio,svg --history`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDiagram(cmd.Context(), &co, &ro, saveGraph)
		},
	}

	co.register(cmd)
	ro.register(cmd)
	cmd.Flags().StringVar(&saveGraph, "save-graph", "", "also write the collected graph JSON to this file")

	return cmd
}

func (c *CLI) runDiagram(ctx context.Context, co *collectOpts, ro *renderOpts, saveGraph string) error {
	r, err := c.newRunner(ctx, co.skipCache())
	if err != nil {
		return err
	}
	defer r.Close()
	if err := c.attachHistory(ctx, r, ro); err != nil {
		return err
	}

	var opts pipeline.Options
	c.applyCollectOpts(co, &opts)
	ro.apply(&opts)
	if err := opts.ValidateForCollect(); err != nil {
		return err
	}
	b, err := c.newBackend(r, opts.Source, co.input)
	if err != nil {
		return err
	}
	if err := resolveScope(ctx, co, b, &opts); err != nil {
		return err
	}
	if opts.Name == "" && opts.ResourceGroup != "" {
		opts.Name = opts.ResourceGroup
	}
	if err := opts.ValidateForRender(); err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Collecting resources...")
	spinner.Start()
	res, err := r.Execute(ctx, b, opts)
	spinner.Stop()
	if err != nil {
		return err
	}
	printReport(res.Report)

	if saveGraph != "" {
		g := res.Graph
		if res.Meta != nil {
			g.Meta = res.Meta.Map()
		}
		if err := model.WriteGraphFile(g, saveGraph); err != nil {
			return err
		}
		printFile(saveGraph)
	}

	return reportRender(res, opts, ro.output)
}
