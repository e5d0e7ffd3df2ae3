package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/drawio"
	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/inventory/file"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/observability"
	"github.com/matzehuels/azdiagram/pkg/snapshot"
)

const inventory = `{
  "rows": [
    {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub",
     "name": "hub", "type": "Microsoft.Network/virtualNetworks", "resourceGroup": "net", "location": "japaneast"},
    {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/networkInterfaces/nic1",
     "name": "nic1", "type": "Microsoft.Network/networkInterfaces", "resourceGroup": "net", "location": "japaneast",
     "properties": {"ipConfigurations": [{"properties": {"subnet": {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub/subnets/default"}}}]}},
    {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/publicIPAddresses/pip1",
     "name": "pip1", "type": "Microsoft.Network/publicIPAddresses", "resourceGroup": "net", "location": "japaneast"}
  ],
  "subnets": {
    "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub": [
      {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub/subnets/default", "name": "default"}
    ]
  }
}`

type countingBackend struct {
	collector.Backend
	queries int
}

func (c *countingBackend) Query(ctx context.Context, q collector.Query) ([]collector.Row, error) {
	c.queries++
	return c.Backend.Query(ctx, q)
}

func newBackend(t *testing.T) *countingBackend {
	t.Helper()
	b, err := file.Read(strings.NewReader(inventory))
	if err != nil {
		t.Fatal(err)
	}
	return &countingBackend{Backend: b}
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil, log.New(io.Discard))
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"drawio", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"SVG", true},
		{"xml", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errors.GetCode(err))
		}
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("empty formats should pass: %v", err)
	}
}

func TestValidateForCollect(t *testing.T) {
	var opts Options
	if err := opts.ValidateForCollect(); err != nil {
		t.Fatal(err)
	}
	if opts.Source != SourceAzCLI || opts.View != string(collector.ViewNetwork) || opts.Logger == nil {
		t.Errorf("defaults = %+v", opts)
	}

	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"source", Options{Source: "arm"}, errors.ErrCodeInvalidSource},
		{"view", Options{View: "topology"}, errors.ErrCodeInvalidView},
		{"subscription", Options{Subscription: "not-a-guid"}, errors.ErrCodeInvalidScope},
		{"resource group", Options{ResourceGroup: "bad/rg"}, errors.ErrCodeInvalidScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateForCollect(); !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateForRender(t *testing.T) {
	var opts Options
	if err := opts.ValidateForRender(); err != nil {
		t.Fatal(err)
	}
	if opts.Name != DefaultName || len(opts.Formats) != 1 || opts.Formats[0] != FormatDrawio {
		t.Errorf("defaults = %+v", opts)
	}

	bad := Options{Name: "../prod"}
	if err := bad.ValidateForRender(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("traversal name error = %v", err)
	}
	bad = Options{Formats: []string{"gif"}}
	if err := bad.ValidateForRender(); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad format error = %v", err)
	}
}

func TestCollectKeyOptsNormalized(t *testing.T) {
	keyer := cache.NewDefaultKeyer()
	a := Options{Source: SourceFile, View: "network", ResourceGroup: "Net"}
	b := Options{Source: SourceFile, View: "network", ResourceGroup: "net", Limit: collector.DefaultLimit}
	if keyer.CollectKey(a.CollectKeyOpts()) != keyer.CollectKey(b.CollectKeyOpts()) {
		t.Error("equivalent scopes should share a key")
	}
	c := Options{Source: SourceAzCLI, View: "network", ResourceGroup: "net"}
	if keyer.CollectKey(b.CollectKeyOpts()) == keyer.CollectKey(c.CollectKeyOpts()) {
		t.Error("different backends should not share a key")
	}
}

func TestExecuteCachesCollection(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t)
	b := newBackend(t)
	opts := Options{Source: SourceFile, Name: "prod"}

	first, err := r.Execute(ctx, b, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.CacheInfo.CollectHit {
		t.Error("first run should miss the cache")
	}
	if first.Meta == nil || first.Stats.NodeCount == 0 {
		t.Fatalf("result = %+v", first)
	}
	queries := b.queries

	second, err := r.Execute(ctx, b, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.CollectHit || b.queries != queries {
		t.Errorf("second run: hit = %v, queries %d -> %d", second.CacheInfo.CollectHit, queries, b.queries)
	}
	if !bytes.Equal(first.Artifacts[FormatDrawio], second.Artifacts[FormatDrawio]) {
		t.Error("cached collection should render the same document")
	}

	opts.Refresh = true
	if _, err := r.Execute(ctx, b, opts); err != nil {
		t.Fatal(err)
	}
	if b.queries == queries {
		t.Error("refresh should query the backend again")
	}
}

func TestRenderArtifacts(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t)
	res, err := r.Collect(ctx, newBackend(t), Options{Source: SourceFile})
	if err != nil {
		t.Fatal(err)
	}

	out, err := r.Render(ctx, res.Graph, Options{Name: "prod", Formats: []string{FormatDrawio, FormatJSON}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	f, err := drawio.Decode(bytes.NewReader(out.Artifacts[FormatDrawio]))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Diagram.Name != "prod" {
		t.Errorf("diagram name = %q", f.Diagram.Name)
	}
	if out.Drawio.Containers == 0 || f.Count() == 0 {
		t.Errorf("stats = %+v", out.Drawio)
	}
	if !strings.Contains(string(out.Artifacts[FormatJSON]), `"root"`) {
		t.Errorf("layout json = %s", out.Artifacts[FormatJSON])
	}
	if out.GraphHash == "" || out.Layout.Root == nil {
		t.Error("graph hash and layout should be set")
	}
}

func TestRenderEmptyGraph(t *testing.T) {
	out, err := newRunner(t).Render(context.Background(), model.Graph{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	f, err := drawio.Decode(bytes.NewReader(out.Artifacts[FormatDrawio]))
	if err != nil {
		t.Fatal(err)
	}
	if f.Count() != 0 {
		t.Errorf("empty graph produced %d cells", f.Count())
	}
}

func TestRenderCachesPreviews(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t)
	res, err := r.Collect(ctx, newBackend(t), Options{Source: SourceFile})
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Name: "prod", Formats: []string{FormatSVG}}

	first, err := r.Render(ctx, res.Graph, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if first.CacheInfo.RenderHit || !bytes.Contains(first.Artifacts[FormatSVG], []byte("<svg")) {
		t.Fatalf("first render: hit = %v", first.CacheInfo.RenderHit)
	}
	second, err := r.Render(ctx, res.Graph, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.RenderHit || !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("second render should come from the cache")
	}
}

func TestRenderHistory(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t)
	store, err := snapshot.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r.History = store
	res, err := r.Collect(ctx, newBackend(t), Options{Source: SourceFile})
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Name: "prod", History: true}

	first, err := r.Render(ctx, res.Graph, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Changes == nil || first.Changes.From != 0 || len(first.Changes.Added) == 0 {
		t.Fatalf("first changes = %+v", first.Changes)
	}
	second, err := r.Render(ctx, res.Graph, opts)
	if err != nil {
		t.Fatal(err)
	}
	if second.Changes.Changed || second.Changes.From != 1 || second.Changes.To != 2 {
		t.Errorf("second changes = %+v", second.Changes)
	}

	noHistory, err := r.Render(ctx, res.Graph, Options{Name: "prod"})
	if err != nil {
		t.Fatal(err)
	}
	if noHistory.Changes != nil {
		t.Error("runs without History should not record")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	stages []string
}

func (h *recordingHooks) OnCollectComplete(_ context.Context, _, _ string, _, _ int, _ time.Duration, _ error) {
	h.stages = append(h.stages, "collect")
}

func (h *recordingHooks) OnLayoutComplete(context.Context, int, time.Duration, error) {
	h.stages = append(h.stages, "layout")
}

func (h *recordingHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {
	h.stages = append(h.stages, "render")
}

func TestExecuteEmitsHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)
	t.Cleanup(observability.Reset)

	if _, err := newRunner(t).Execute(context.Background(), newBackend(t), Options{Source: SourceFile}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(h.stages, ","); got != "collect,layout,render" {
		t.Errorf("stages = %s", got)
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(nil, nil, log.New(io.Discard)).Execute(ctx, newBackend(t), Options{Source: SourceFile})
	if err == nil {
		t.Fatal("cancelled run should fail")
	}
}
