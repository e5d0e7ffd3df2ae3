package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/snapshot"
)

// historyCommand creates the history command and its subcommands.
func (c *CLI) historyCommand() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded generations of a diagram",
		Long: `Every "render --history" run records a generation: the cell ids of the
document and a digest of its bytes. These commands list generations and
show which resources appeared or disappeared between two of them.`,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "history store: directory, sqlite://path or mongodb://... (default from config)")

	cmd.AddCommand(c.historyListCommand(&dsn))
	cmd.AddCommand(c.historyDiffCommand(&dsn))

	return cmd
}

func (c *CLI) historyListCommand(dsn *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <name>",
		Short: "List generations of a diagram, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHistory(cmd.Context(), *dsn, func(store snapshot.Store) error {
				return runHistoryList(cmd.Context(), store, args[0], limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", snapshot.DefaultListLimit, "maximum generations to show")

	return cmd
}

func (c *CLI) historyDiffCommand(dsn *string) *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "diff <name>",
		Short: "Show what changed between two generations",
		Long: `Diff compares generation --from with generation --to. By default it
compares the latest generation with the one before it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHistory(cmd.Context(), *dsn, func(store snapshot.Store) error {
				d, err := diffGenerations(cmd.Context(), store, args[0], from, to)
				if err != nil {
					return err
				}
				printInfo("%s", d.Summary())
				printChanges(d.Added, d.Removed, 50)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "older generation (default: the one before --to)")
	cmd.Flags().IntVar(&to, "to", 0, "newer generation (default: latest)")

	return cmd
}

func (c *CLI) withHistory(ctx context.Context, dsn string, fn func(snapshot.Store) error) error {
	store, err := c.openHistory(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func runHistoryList(ctx context.Context, store snapshot.Store, name string, limit int) error {
	if err := errors.ValidateDiagramName(name); err != nil {
		return err
	}
	gens, err := store.List(ctx, name, limit)
	if err != nil {
		return err
	}
	if len(gens) == 0 {
		printInfo("No generations recorded for %s", name)
		printNextStep("Record one", "azdiagram render <graph.json> --name "+name+" --history")
		return nil
	}

	fmt.Fprintln(statusOut, StyleTitle.Render(name))
	for _, g := range gens {
		printKeyValue(fmt.Sprintf("#%d", g.Seq), fmt.Sprintf("%s  %d cells  %d resources  %s",
			g.CreatedAt.Local().Format("2006-01-02 15:04"), len(g.CellIDs), g.Nodes, g.Digest[:min(12, len(g.Digest))]))
	}
	return nil
}

// diffGenerations compares two generations of name. Zero selects the
// defaults: to is the latest generation, from the one before it.
func diffGenerations(ctx context.Context, store snapshot.Store, name string, from, to int) (snapshot.Diff, error) {
	if err := errors.ValidateDiagramName(name); err != nil {
		return snapshot.Diff{}, err
	}

	var (
		next *snapshot.Generation
		err  error
	)
	if to > 0 {
		next, err = store.Get(ctx, name, to)
	} else {
		next, err = store.Latest(ctx, name)
		if err == nil && next == nil {
			err = snapshot.ErrNotFound
		}
	}
	if err != nil {
		return snapshot.Diff{}, notFound(err, name)
	}

	if from == 0 {
		from = next.Seq - 1
	}
	var prev *snapshot.Generation
	if from > 0 {
		if prev, err = store.Get(ctx, name, from); err != nil {
			return snapshot.Diff{}, notFound(err, name)
		}
	}
	return snapshot.Compare(prev, next), nil
}

func notFound(err error, name string) error {
	if stderrors.Is(err, snapshot.ErrNotFound) {
		return errors.Wrap(errors.ErrCodeNotFound, err, "no such generation of %s", name)
	}
	return err
}
