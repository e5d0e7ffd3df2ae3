package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/azdiagram/pkg/hierarchy"
	"github.com/matzehuels/azdiagram/pkg/layout"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/observability"
)

// Arrange builds the containment tree for g and lays it out with the
// runner's taxonomy and parameters. It never fails; an empty graph yields
// an empty layout.
func (r *Runner) Arrange(ctx context.Context, g model.Graph) (hierarchy.Tree, layout.Layout) {
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, len(g.Nodes))
	start := time.Now()

	tree := hierarchy.Build(g, r.table())
	l := layout.Arrange(tree, r.Params)

	hooks.OnLayoutComplete(ctx, l.Density, time.Since(start), nil)
	r.Logger.Debug("computed layout",
		"leaves", tree.Leaves(),
		"width", l.Width,
		"height", l.Height,
		"density", l.Density)
	return tree, l
}
