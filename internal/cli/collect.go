package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/inventory/azcli"
	"github.com/matzehuels/azdiagram/pkg/inventory/file"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/pipeline"
)

// collectOpts holds the flags shared by collect and diagram.
type collectOpts struct {
	source        string
	input         string
	subscription  string
	resourceGroup string
	pick          bool
	view          string
	limit         int
	maxRefs       int
	maxVNets      int
	noCache       bool
	refresh       bool
}

func (o *collectOpts) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.source, "source", pipeline.SourceAzCLI, "inventory source: azcli, file")
	f.StringVarP(&o.input, "input", "i", "", "snapshot file for --source file")
	f.StringVarP(&o.subscription, "subscription", "s", "", "subscription id (default: all visible subscriptions)")
	f.StringVarP(&o.resourceGroup, "resource-group", "g", "", "limit collection to one resource group")
	f.BoolVar(&o.pick, "pick", false, "choose the resource group interactively")
	f.StringVar(&o.view, "view", string(collector.ViewNetwork), "view: network, inventory")
	f.IntVar(&o.limit, "limit", 0, "maximum rows per query (default from config)")
	f.IntVar(&o.maxRefs, "max-refs", 0, "maximum referenced resources to resolve (default from config)")
	f.IntVar(&o.maxVNets, "max-vnets", 0, "maximum virtual networks to list subnets for (default from config)")
	f.BoolVar(&o.noCache, "no-cache", false, "disable the cache")
	f.BoolVar(&o.refresh, "refresh", false, "ignore cached inventory and query again")

	_ = cmd.RegisterFlagCompletionFunc("source", cobra.FixedCompletions(
		[]string{pipeline.SourceAzCLI, pipeline.SourceFile}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("view", cobra.FixedCompletions(
		[]string{string(collector.ViewNetwork), string(collector.ViewInventory)}, cobra.ShellCompDirectiveNoFileComp))
}

// skipCache reports whether collected graphs must not be cached. Cache keys
// do not include the snapshot path, so file sources are never cached.
func (o *collectOpts) skipCache() bool {
	return o.noCache || o.source == pipeline.SourceFile
}

// applyCollectOpts copies the flags into opts, filling unset limits from the config.
func (c *CLI) applyCollectOpts(o *collectOpts, opts *pipeline.Options) {
	opts.Source = o.source
	opts.View = o.view
	opts.Subscription = o.subscription
	opts.ResourceGroup = o.resourceGroup
	opts.Refresh = o.refresh
	opts.Limit = o.limit
	opts.MaxRefs = o.maxRefs
	opts.MaxVNets = o.maxVNets

	defaults := c.cfg.CollectorOptions()
	if opts.Limit == 0 {
		opts.Limit = defaults.Limit
	}
	if opts.MaxRefs == 0 {
		opts.MaxRefs = defaults.MaxRefs
	}
	if opts.MaxVNets == 0 {
		opts.MaxVNets = defaults.MaxVNets
	}
	opts.Logger = c.Logger
}

// newBackend opens the named inventory source.
func (c *CLI) newBackend(r *pipeline.Runner, source, input string) (collector.Backend, error) {
	switch source {
	case pipeline.SourceFile:
		if input == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "--input is required with --source file")
		}
		b, err := file.Open(input)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "", pipeline.SourceAzCLI:
		opts := []azcli.Option{
			azcli.WithLogger(c.Logger),
			azcli.WithCache(r.Cache, r.Keyer),
		}
		if t := c.cfg.Collector.Timeout.Duration; t > 0 {
			opts = append(opts, azcli.WithTimeout(t))
		}
		return azcli.New(opts...), nil
	default:
		return nil, pipeline.ValidateSource(source)
	}
}

// resolveScope runs the resource group picker when --pick is set.
func resolveScope(ctx context.Context, o *collectOpts, b collector.Backend, opts *pipeline.Options) error {
	if !o.pick {
		return nil
	}
	if opts.ResourceGroup != "" {
		return errors.New(errors.ErrCodeInvalidInput, "--pick and --resource-group are mutually exclusive")
	}
	lister, ok := b.(collector.ResourceGroupLister)
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "source %s cannot list resource groups", opts.Source)
	}
	rg, err := pickResourceGroup(ctx, lister, opts.Subscription)
	if err != nil {
		return err
	}
	opts.ResourceGroup = rg
	return nil
}

// collectCommand creates the collect command.
func (c *CLI) collectCommand() *cobra.Command {
	var (
		co     collectOpts
		output string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect Azure resources into a graph JSON file",
		Long: `Collect queries Azure Resource Graph through the Azure CLI (or replays a
recorded snapshot with --source file) and writes the resource graph as JSON.

The network view gathers virtual networks, subnets and the resources that
attach to them; the inventory view lists every resource in scope.`,
		Example: `  azdiagram collect -s 00000000-0000-0000-0000-000000000000 -g net -o net.json
  azdiagram collect --pick -o app.json
  azdiagram collect --source file -i snapshot.json --view inventory`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCollect(cmd.Context(), &co, output)
		},
	}

	co.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func (c *CLI) runCollect(ctx context.Context, co *collectOpts, output string) error {
	r, err := c.newRunner(ctx, co.skipCache())
	if err != nil {
		return err
	}
	defer r.Close()

	var opts pipeline.Options
	c.applyCollectOpts(co, &opts)
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

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Collecting resources...")
	spinner.Start()
	res, hit, err := r.CollectWithCacheInfo(ctx, b, opts)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done("collection finished", "view", res.Meta.View)

	g := res.Graph
	g.Meta = res.Meta.Map()
	if output == "" {
		if err := model.WriteGraph(g, os.Stdout); err != nil {
			return err
		}
	} else if err := model.WriteGraphFile(g, output); err != nil {
		return err
	}

	printSuccess("Collected %s", StyleNumber.Render(string(res.Meta.View)))
	printStats(g.NodeCount(), g.EdgeCount(), hit)
	printReport(res.Report)
	if output != "" {
		printFile(output)
		printNextStep("Render it", "azdiagram render "+output)
	}
	return nil
}

// printReport summarizes what validation dropped.
func printReport(rep model.Report) {
	if n := len(rep.Dangling); n > 0 {
		printDetail("%d relations to resources outside the scope were dropped", n)
	}
	if rep.DuplicateNodes > 0 || rep.DuplicateEdges > 0 {
		printDetail("%d duplicate resources and %d duplicate relations merged", rep.DuplicateNodes, rep.DuplicateEdges)
	}
	if n := len(rep.Conflicting); n > 0 {
		printWarning("%d subnets listed under more than one virtual network", n)
	}
}
