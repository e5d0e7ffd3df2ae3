package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/pipeline"
)

const snapshotJSON = `{
  "rows": [
    {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub",
     "name": "hub", "type": "Microsoft.Network/virtualNetworks", "resourceGroup": "net", "location": "japaneast"},
    {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/networkInterfaces/nic1",
     "name": "nic1", "type": "Microsoft.Network/networkInterfaces", "resourceGroup": "net", "location": "japaneast",
     "properties": {"ipConfigurations": [{"properties": {"subnet": {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub/subnets/default"}}}]}},
    {"id": "/subscriptions/s1/resourceGroups/app/providers/Microsoft.Storage/storageAccounts/st1",
     "name": "st1", "type": "Microsoft.Storage/storageAccounts", "resourceGroup": "app", "location": "japaneast"}
  ],
  "subnets": {
    "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub": [
      {"id": "/subscriptions/s1/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/hub/subnets/default", "name": "default"}
    ]
  },
  "resourceGroups": {"s1": ["app", "net"]}
}`

// isolate points config, cache and history at a temporary directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("HOME", dir)
	return dir
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	return Execute(context.Background(), io.Discard, args)
}

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "snapshot.json")
	if err := os.WriteFile(path, []byte(snapshotJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCollectRenderHistory(t *testing.T) {
	dir := isolate(t)
	snap := writeSnapshot(t, dir)
	graph := filepath.Join(dir, "graph.json")
	out := filepath.Join(dir, "out", "demo.drawio")

	if err := run(t, "collect", "--source", "file", "-i", snap, "--view", "inventory", "-o", graph); err != nil {
		t.Fatalf("collect: %v", err)
	}
	g, _, err := model.ReadGraphFile(graph)
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 3 {
		t.Errorf("collected %d nodes, want 3", g.NodeCount())
	}
	if g.Meta["view"] != "inventory" {
		t.Errorf("meta = %v", g.Meta)
	}

	for range 2 {
		if err := run(t, "render", graph, "--name", "demo", "-o", out, "--history"); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "<?xml") {
		t.Errorf("output is not XML: %.40s", data)
	}

	if err := run(t, "history", "list", "demo"); err != nil {
		t.Errorf("history list: %v", err)
	}
	if err := run(t, "history", "diff", "demo"); err != nil {
		t.Errorf("history diff: %v", err)
	}
	if err := run(t, "cache", "clear"); err != nil {
		t.Errorf("cache clear: %v", err)
	}
}

func TestDiagramMultipleFormats(t *testing.T) {
	dir := isolate(t)
	snap := writeSnapshot(t, dir)
	base := filepath.Join(dir, "net")

	err := run(t, "diagram", "--source", "file", "-i", snap, "-g", "net",
		"-f", "drawio,json", "-o", base, "--save-graph", filepath.Join(dir, "g.json"))
	if err != nil {
		t.Fatalf("diagram: %v", err)
	}
	for _, p := range []string{base + ".drawio", base + ".layout.json", filepath.Join(dir, "g.json")} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
}

func TestRenderFromStdin(t *testing.T) {
	dir := isolate(t)
	c := New(io.Discard, LogInfo)
	out := filepath.Join(dir, "stdin.drawio")

	in := strings.NewReader(`{"nodes": [{"id": "/subscriptions/s1/resourceGroups/a/providers/Microsoft.Storage/storageAccounts/st", "name": "st", "type": "Microsoft.Storage/storageAccounts"}]}`)
	ro := renderOpts{output: out}
	if err := c.runRender(context.Background(), in, "-", &ro, true); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `name="`+pipeline.DefaultName+`"`) {
		t.Errorf("diagram should be named %q:\n%s", pipeline.DefaultName, data)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"unknown view", []string{"collect", "--source", "file", "-i", "x.json", "--view", "billing"}, errors.ErrCodeInvalidView},
		{"unknown source", []string{"collect", "--source", "arm"}, errors.ErrCodeInvalidSource},
		{"missing input", []string{"collect", "--source", "file"}, errors.ErrCodeInvalidInput},
		{"missing snapshot", []string{"collect", "--source", "file", "-i", "nope.json"}, errors.ErrCodeFileNotFound},
		{"bad resource group", []string{"collect", "--source", "file", "-i", "x.json", "-g", "a/b"}, errors.ErrCodeInvalidScope},
		{"pick with group", []string{"collect", "--source", "file", "-i", "%s", "--pick", "-g", "net"}, errors.ErrCodeInvalidInput},
		{"bad format", []string{"render", "%g", "-f", "gif"}, errors.ErrCodeInvalidFormat},
		{"bad name", []string{"render", "%g", "--name", "../up"}, errors.ErrCodeInvalidInput},
		{"missing config", []string{"--config", "none.toml", "cache", "path"}, errors.ErrCodeFileNotFound},
		{"unknown generation", []string{"history", "diff", "demo"}, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			snap := writeSnapshot(t, dir)
			graph := filepath.Join(dir, "graph.json")
			if err := os.WriteFile(graph, []byte(`{"nodes": []}`), 0o644); err != nil {
				t.Fatal(err)
			}
			args := make([]string, len(tt.args))
			for i, a := range tt.args {
				args[i] = strings.NewReplacer("%s", snap, "%g", graph).Replace(a)
			}

			err := run(t, args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (%v)", got, tt.code, err)
			}
		})
	}
}

func TestExecuteReportsErrors(t *testing.T) {
	isolate(t)
	var stderr strings.Builder
	err := Execute(context.Background(), &stderr, []string{"collect", "--source", "file"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if out := stderr.String(); !strings.Contains(out, "--input is required") || strings.Contains(out, "INVALID_INPUT") {
		t.Errorf("stderr = %q, want the message without its code", out)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	for _, want := range []string{"collect", "render", "diagram", "history", "serve", "mcp", "doctor", "cache", "completion"} {
		found := false
		for _, name := range got {
			found = found || name == want
		}
		if !found {
			t.Errorf("missing command %q in %v", want, got)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{context.Canceled, ExitInterrupted},
		{errors.Wrap(errors.ErrCodeTimeout, context.Canceled, "collect"), ExitInterrupted},
		{errors.New(errors.ErrCodeInvalidView, "x"), 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		formats []string
		want    map[string]string
	}{
		{"default", "", []string{"drawio"}, map[string]string{"drawio": "net.drawio"}},
		{"single explicit", "x/diagram.xml", []string{"drawio"}, map[string]string{"drawio": "x/diagram.xml"}},
		{"multiple", "x/net.drawio", []string{"drawio", "svg", "json"}, map[string]string{
			"drawio": "x/net.drawio", "svg": "x/net.svg", "json": "x/net.layout.json",
		}},
		{"multiple default", "", []string{"drawio", "png"}, map[string]string{"drawio": "net.drawio", "png": "net.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPaths(tt.output, "net", tt.formats); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("outputPaths = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	if got := parseFormats(""); !reflect.DeepEqual(got, []string{"drawio"}) {
		t.Errorf("default = %v", got)
	}
	if got := parseFormats(" SVG, drawio,,"); !reflect.DeepEqual(got, []string{"svg", "drawio"}) {
		t.Errorf("parsed = %v", got)
	}
}

func TestNameFromPath(t *testing.T) {
	tests := map[string]string{
		"-":                pipeline.DefaultName,
		"graphs/prod.json": "prod",
		"net.graph.json":   "net.graph",
		"/tmp/x/hub-spoke": "hub-spoke",
	}
	for in, want := range tests {
		if got := nameFromPath(in); got != want {
			t.Errorf("nameFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

type staticLister []string

func (l staticLister) ListResourceGroups(context.Context, string) ([]string, error) { return l, nil }

func TestGroupPicker(t *testing.T) {
	m := NewGroupPickerModel(context.Background(), staticLister{"app", "net", "shared"}, "s1")
	if !m.loading || !strings.Contains(m.View(), "Listing resource groups") {
		t.Fatal("picker should start in the loading state")
	}

	msg := m.load()
	next, _ := m.Update(msg)
	m = next.(GroupPickerModel)
	if m.loading || len(m.Groups) != 3 {
		t.Fatalf("groups = %v, loading = %v", m.Groups, m.loading)
	}

	for _, key := range []tea.KeyType{tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyUp} {
		next, _ = m.Update(tea.KeyMsg{Type: key})
		m = next.(GroupPickerModel)
	}
	if m.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.Cursor)
	}
	if !strings.Contains(m.View(), "net") {
		t.Error("view should list the groups")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(GroupPickerModel)
	if m.Selected != "net" || cmd == nil {
		t.Errorf("selected = %q", m.Selected)
	}
}

func TestGroupPickerEmpty(t *testing.T) {
	m := NewGroupPickerModel(context.Background(), staticLister{}, "s1")
	next, cmd := m.Update(m.load())
	m = next.(GroupPickerModel)
	if !errors.Is(m.Err, errors.ErrCodeNotFound) || cmd == nil {
		t.Errorf("err = %v", m.Err)
	}
}
