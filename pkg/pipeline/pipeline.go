// Package pipeline runs collect → layout → render for azdiagram.
//
// The CLI, the HTTP API and the MCP server all drive diagrams through a
// [Runner], so caching, history and instrumentation behave the same way
// regardless of the entry point.
//
// # Stages
//
//  1. Collect: query an inventory backend and validate the graph
//  2. Layout: build the containment tree and compute box geometry
//  3. Render: serialize the draw.io document and optional previews
//
// Each stage can be run on its own:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Collect(ctx, backend, opts)
//	out, err := runner.Render(ctx, res.Graph, opts)
//	xml := out.Artifacts[pipeline.FormatDrawio]
package pipeline

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/drawio"
	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/layout"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/snapshot"
)

// DefaultName is the diagram name used when none is given.
const DefaultName = "azure"

// Output formats.
const (
	FormatDrawio = "drawio"
	FormatSVG    = "svg"
	FormatPNG    = "png"
	FormatPDF    = "pdf"
	// FormatJSON is the computed layout tree.
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDrawio: true,
	FormatSVG:    true,
	FormatPNG:    true,
	FormatPDF:    true,
	FormatJSON:   true,
}

// Inventory sources.
const (
	SourceAzCLI = "azcli"
	SourceFile  = "file"
)

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: drawio, svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSource checks an inventory source name.
func ValidateSource(source string) error {
	switch source {
	case SourceAzCLI, SourceFile:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidSource, "invalid source: %q (must be one of: azcli, file)", source)
}

// Options configures a pipeline run. It is also the JSON request body of
// the HTTP API.
type Options struct {
	// Collect options
	Source        string `json:"source,omitempty"`
	View          string `json:"view,omitempty"`
	Subscription  string `json:"subscription,omitempty"`
	ResourceGroup string `json:"resource_group,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	MaxRefs       int    `json:"max_refs,omitempty"`
	MaxVNets      int    `json:"max_vnets,omitempty"`
	Refresh       bool   `json:"refresh,omitempty"`

	// Render options
	Name     string   `json:"name,omitempty"`
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`
	// History records the rendered document as a new generation.
	History bool `json:"history,omitempty"`

	Logger *log.Logger `json:"-"`
}

// ValidateForCollect checks the collect options and applies defaults.
func (o *Options) ValidateForCollect() error {
	if o.Source == "" {
		o.Source = SourceAzCLI
	}
	if err := ValidateSource(o.Source); err != nil {
		return err
	}
	view, ok := collector.ParseView(o.View)
	if !ok {
		return errors.New(errors.ErrCodeInvalidView, "invalid view: %q (must be one of: network, inventory)", o.View)
	}
	o.View = string(view)
	if err := errors.ValidateSubscriptionID(o.Subscription); err != nil {
		return err
	}
	if err := errors.ValidateResourceGroup(o.ResourceGroup); err != nil {
		return err
	}
	o.setLogger()
	return nil
}

// ValidateForRender checks the render options and applies defaults.
func (o *Options) ValidateForRender() error {
	if strings.TrimSpace(o.Name) == "" {
		o.Name = DefaultName
	}
	if err := errors.ValidateDiagramName(o.Name); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatDrawio}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.setLogger()
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// CollectorOptions converts to collector options.
func (o *Options) CollectorOptions() collector.Options {
	return collector.Options{
		View:     collector.View(o.View),
		Scope:    collector.Scope{Subscription: o.Subscription, ResourceGroup: o.ResourceGroup},
		Limit:    o.Limit,
		MaxRefs:  o.MaxRefs,
		MaxVNets: o.MaxVNets,
		Logger:   o.Logger,
	}
}

// CollectKeyOpts returns cache key options for a collection. Limits are
// normalized so equivalent requests share a key.
func (o *Options) CollectKeyOpts() cache.CollectKeyOpts {
	return cache.CollectKeyOpts{
		Backend:       o.Source,
		View:          o.View,
		Subscription:  strings.ToLower(o.Subscription),
		ResourceGroup: strings.ToLower(o.ResourceGroup),
		Limit:         collector.ClampLimit(o.Limit),
		MaxRefs:       o.MaxRefs,
		MaxVNets:      o.MaxVNets,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Graph  model.Graph
	Report model.Report
	// Meta is set when the graph was collected in this run.
	Meta *collector.Meta

	// GraphHash is the content hash of the validated graph.
	GraphHash string

	Layout    layout.Layout
	Artifacts map[string][]byte
	Drawio    drawio.Stats

	// Changes is set when the run was recorded in history.
	Changes *snapshot.Diff

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains timing and size information.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	CollectTime time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks which stages hit the cache.
type CacheInfo struct {
	CollectHit bool
	// RenderHit is true when every preview format came from the cache.
	RenderHit bool
}
