// Package collector turns raw inventory rows into a validated resource graph.
//
// The collector owns no I/O. A [Backend] returns rows; the collector
// normalizes them into [model.Node] values, infers relationships from
// explicit properties ([Infer]), resolves referenced resources missing from
// the first batch, lists the subnets of each virtual network and finally
// validates the result with [model.Validate].
//
// Secondary lookups are best-effort: their failures are counted in [Meta]
// and never abort the run. Only a failure of the primary query, or a
// cancelled context, is returned as an error.
package collector

import (
	"context"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/azdiagram/pkg/cellid"
	"github.com/matzehuels/azdiagram/pkg/model"
)

// Limits.
const (
	MaxLimit        = 1000
	DefaultLimit    = 300
	DefaultMaxRefs  = 60
	DefaultMaxVNets = 30
)

// View selects what a collection run gathers.
type View string

const (
	// ViewInventory collects every resource in scope, without edges.
	ViewInventory View = "inventory"
	// ViewNetwork collects the network topology and merges the inventory.
	ViewNetwork View = "network"
)

// ParseView maps a view name to a View. ok is false for unknown names.
func ParseView(s string) (View, bool) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewNetwork:
		return ViewNetwork, true
	case ViewInventory:
		return ViewInventory, true
	}
	return "", false
}

// NetworkTypes are the core topology types. The network query requests them
// and the network filter keeps them even when no edge touches them.
var NetworkTypes = []string{
	model.TypeVirtualNetwork,
	model.TypeSubnet,
	model.TypeVNetGateway,
	model.TypeLocalNetworkGateway,
	model.TypeBastionHost,
	model.TypeNATGateway,
	model.TypeFirewall,
	model.TypeRouteTable,
	model.TypeVNetPeering,
	model.TypeNetworkSecurityGroup,
	model.TypeNetworkInterface,
	model.TypePublicIP,
	model.TypeLoadBalancer,
	model.TypeApplicationGateway,
	model.TypePrivateEndpoint,
	model.TypeConnection,
	model.TypeVirtualMachine,
}

// networkQueryTypes adds to NetworkTypes the types the network query also
// fetches but the filter keeps only when an edge touches them.
var networkQueryTypes = append(slices.Clone(NetworkTypes), model.TypeNetworkWatcher)

// Options configures [Collect]. Zero values select defaults.
type Options struct {
	View     View
	Scope    Scope
	Limit    int
	MaxRefs  int
	MaxVNets int
	Logger   *log.Logger
}

func (o Options) withDefaults() Options {
	if o.View == "" {
		o.View = ViewNetwork
	}
	o.Limit = ClampLimit(o.Limit)
	if o.MaxRefs <= 0 {
		o.MaxRefs = DefaultMaxRefs
	}
	if o.MaxVNets <= 0 {
		o.MaxVNets = DefaultMaxVNets
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// ClampLimit bounds a row limit to 1..MaxLimit. Zero selects DefaultLimit.
func ClampLimit(n int) int {
	if n == 0 {
		return DefaultLimit
	}
	return min(max(n, 1), MaxLimit)
}

// Result is the output of a collection run.
type Result struct {
	Graph  model.Graph
	Report model.Report
	Meta   Meta
}

// Collect runs one collection against b.
func Collect(ctx context.Context, b Backend, opts Options) (Result, error) {
	opts = opts.withDefaults()
	c := &run{backend: b, opts: opts, logger: opts.Logger, ids: make(map[string]bool)}
	c.meta.View = opts.View
	c.meta.Scope = opts.Scope
	c.meta.Limit = opts.Limit

	var err error
	switch opts.View {
	case ViewInventory:
		err = c.inventory(ctx)
	case ViewNetwork:
		err = c.network(ctx)
	default:
		return Result{}, &ViewError{View: opts.View}
	}
	if err != nil {
		return Result{}, err
	}

	g, rep := model.Validate(c.nodes, c.edges)
	c.meta.TypeSummary = model.TypeSummary(g.Nodes)
	c.meta.Validation = rep
	g.Meta = c.meta.Map()

	c.logger.Debug("validated graph", "nodes", g.NodeCount(), "edges", g.EdgeCount(),
		"dangling", len(rep.Dangling), "duplicates", rep.DuplicateNodes+rep.DuplicateEdges)
	return Result{Graph: g, Report: rep, Meta: c.meta}, nil
}

// ViewError reports an unknown view.
type ViewError struct{ View View }

func (e *ViewError) Error() string { return "unknown view: " + string(e.View) }

type run struct {
	backend Backend
	opts    Options
	logger  *log.Logger

	nodes []model.Node
	edges []model.Edge
	ids   map[string]bool
	meta  Meta
}

// query checks ctx before delegating to the backend.
func (c *run) query(ctx context.Context, q Query) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.backend.Query(ctx, q)
}

// addRow appends a node for r unless its id is empty or already present.
func (c *run) addRow(r Row) (model.Node, bool) {
	id := cellid.NormalizeID(r.ID)
	if id == "" || c.ids[id] {
		return model.Node{}, false
	}
	n := model.Node{
		ID:            id,
		Name:          strings.TrimSpace(r.Name),
		Type:          strings.TrimSpace(r.Type),
		ResourceGroup: strings.TrimSpace(r.ResourceGroup),
		Location:      strings.TrimSpace(r.Location),
		Properties:    r.Properties,
	}
	if n.Name == "" {
		n.Name = model.LastSegment(id)
	}
	if n.Type == "" {
		n.Type = model.TypeUnknown
	}
	c.ids[id] = true
	c.nodes = append(c.nodes, n)
	return n, true
}

func (c *run) inventory(ctx context.Context) error {
	rows, err := c.query(ctx, Query{Kind: QueryInventory, Scope: c.opts.Scope, Limit: c.opts.Limit})
	if err != nil {
		return err
	}
	for _, r := range rows {
		c.addRow(r)
	}
	c.logger.Info("collected inventory", "rows", len(rows), "nodes", len(c.nodes))
	return nil
}

func (c *run) network(ctx context.Context) error {
	rows, err := c.query(ctx, Query{
		Kind:  QueryNetwork,
		Scope: c.opts.Scope,
		Limit: c.opts.Limit,
		Types: networkQueryTypes,
	})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if n, ok := c.addRow(r); ok {
			c.edges = append(c.edges, Infer(n.ID, n.Type, n.Properties)...)
		}
	}
	c.logger.Info("collected network", "rows", len(rows), "nodes", len(c.nodes), "edges", len(c.edges))

	if err := c.resolveRefs(ctx); err != nil {
		return err
	}
	if err := c.collectSubnets(ctx); err != nil {
		return err
	}
	c.filterNetwork()
	return c.mergeInventory(ctx)
}

// resolveRefs fetches resources referenced by edges but missing from the
// rows, such as a VNet in another resource group.
func (c *run) resolveRefs(ctx context.Context) error {
	referenced := make(map[string]bool)
	for _, e := range c.edges {
		referenced[e.Source] = true
		referenced[e.Target] = true
	}
	var missing []string
	for id := range referenced {
		if !c.ids[id] {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)

	stats := &c.meta.Refs
	stats.Referenced = len(referenced)
	stats.MaxRefs = c.opts.MaxRefs
	if len(missing) == 0 {
		return nil
	}

	batch := missing[:min(len(missing), c.opts.MaxRefs)]
	stats.Queried = len(batch)
	rows, err := c.query(ctx, Query{
		Kind:  QueryByIDs,
		Scope: Scope{Subscription: c.opts.Scope.Subscription},
		Limit: len(batch),
		IDs:   batch,
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		stats.Error = err.Error()
		c.logger.Warn("reference resolution failed", "ids", len(batch), "err", err)
	}
	for _, r := range rows {
		if _, ok := c.addRow(r); ok {
			stats.Resolved++
		}
	}
	for _, id := range batch {
		if !c.ids[id] {
			stats.StillMissing++
		}
	}
	c.logger.Debug("resolved references", "queried", stats.Queried, "resolved", stats.Resolved)
	return nil
}

// collectSubnets lists the subnets of each known VNet.
func (c *run) collectSubnets(ctx context.Context) error {
	var vnets []model.Node
	for _, n := range c.nodes {
		if n.Is(model.TypeVirtualNetwork) {
			vnets = append(vnets, n)
		}
	}

	stats := &c.meta.Subnets
	stats.VNets = len(vnets)
	stats.MaxVNets = c.opts.MaxVNets

	for _, vnet := range vnets[:min(len(vnets), c.opts.MaxVNets)] {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Attempted++

		sub := c.opts.Scope.Subscription
		if sub == "" {
			sub = SubscriptionFromID(vnet.ID)
		}
		if sub == "" {
			stats.Skipped++
			continue
		}

		rows, err := c.backend.ListSubnets(ctx, VNetRef{
			ID:            vnet.ID,
			Name:          vnet.Name,
			ResourceGroup: vnet.ResourceGroup,
			Subscription:  sub,
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			stats.Failed++
			c.logger.Debug("subnet listing failed", "vnet", vnet.Name, "err", err)
			continue
		}

		prefix := vnet.ID + "/subnets/"
		for _, r := range rows {
			r.Type = model.TypeSubnet
			if r.ResourceGroup == "" {
				r.ResourceGroup = vnet.ResourceGroup
			}
			if r.Location == "" {
				r.Location = vnet.Location
			}
			sid := cellid.NormalizeID(r.ID)
			if _, ok := c.addRow(r); ok {
				stats.Added++
			}
			if strings.HasPrefix(sid, prefix) {
				c.edges = append(c.edges, model.NewEdge(sid, vnet.ID, model.KindContainedIn))
			}
		}
	}
	return nil
}

// filterNetwork keeps core topology types plus anything an edge touches.
func (c *run) filterNetwork() {
	core := make(map[string]bool, len(NetworkTypes))
	for _, t := range NetworkTypes {
		core[t] = true
	}

	keep := make(map[string]bool)
	for _, e := range c.edges {
		if c.ids[e.Source] && c.ids[e.Target] {
			keep[e.Source] = true
			keep[e.Target] = true
		}
	}
	before := len(c.nodes)
	c.nodes = slices.DeleteFunc(c.nodes, func(n model.Node) bool {
		return !keep[n.ID] && !core[n.LowerType()]
	})
	c.ids = make(map[string]bool, len(c.nodes))
	for _, n := range c.nodes {
		c.ids[n.ID] = true
	}

	c.meta.Filter = &FilterStats{NodesBefore: before, NodesAfter: len(c.nodes)}
}

// mergeInventory adds the plain inventory to a network run so the diagram
// also shows resources without network relationships.
func (c *run) mergeInventory(ctx context.Context) error {
	merge := &MergeStats{NetworkNodes: len(c.nodes)}
	c.meta.Merge = merge

	rows, err := c.query(ctx, Query{Kind: QueryInventory, Scope: c.opts.Scope, Limit: c.opts.Limit})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		merge.Error = err.Error()
		c.logger.Warn("inventory merge skipped", "err", err)
		return nil
	}
	merge.Enabled = true
	merge.InventoryNodes = len(rows)
	for _, r := range rows {
		if _, ok := c.addRow(r); ok {
			merge.Added++
		}
	}
	return nil
}
