package azcli

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/collector"
	azerrors "github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/retry"
)

type response struct {
	stdout string
	stderr string
	err    error
	block  bool
}

// fakeRunner answers by the first matching argument prefix and records calls.
type fakeRunner struct {
	responses map[string][]response
	calls     [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, args)
	key := strings.Join(args[:2], " ")
	queue := f.responses[key]
	if len(queue) == 0 {
		return nil, []byte("unexpected call"), errors.New("exit status 2")
	}
	r := queue[0]
	if len(queue) > 1 {
		f.responses[key] = queue[1:]
	}
	if r.block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	return []byte(r.stdout), []byte(r.stderr), r.err
}

func newClient(r *fakeRunner, opts ...Option) *Client {
	base := []Option{
		WithRunner(r),
		WithExecutable("az"),
		WithRetry(retry.Policy{Attempts: 3, Delay: time.Millisecond}),
		WithLogger(log.New(io.Discard)),
	}
	c := New(append(base, opts...)...)
	c.lookPath = func(s string) (string, error) { return "/usr/bin/" + s, nil }
	return c
}

var exitErr = errors.New("exit status 1")

func TestQueryParsesBothShapes(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"data envelope", `{"count":1,"data":[{"id":"/a","name":"a","type":"t","resourceGroup":"rg","location":"eastus"}]}`},
		{"bare array", `[{"id":"/a","name":"a","type":"t","resourceGroup":"rg","location":"eastus"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{responses: map[string][]response{"graph query": {{stdout: tt.out}}}}
			rows, err := newClient(r).Query(context.Background(), collector.Query{Kind: collector.QueryInventory})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(rows) != 1 || rows[0].ID != "/a" || rows[0].ResourceGroup != "rg" {
				t.Errorf("rows = %+v", rows)
			}
		})
	}
}

func TestQueryArguments(t *testing.T) {
	r := &fakeRunner{responses: map[string][]response{"graph query": {{stdout: `[]`}}}}
	_, err := newClient(r).Query(context.Background(), collector.Query{
		Kind:  collector.QueryNetwork,
		Scope: collector.Scope{Subscription: "sub-1", ResourceGroup: "rg"},
		Limit: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Join(r.calls[0], " ")
	for _, want := range []string{"--subscriptions sub-1", "--first 1000", "| limit 50", "resourceGroup =~ 'rg'"} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		stderr    string
		err       error
		code      azerrors.Code
		transient bool
	}{
		{"login", "ERROR: Please run 'az login' to setup account.", exitErr, azerrors.ErrCodeNotLoggedIn, false},
		{"extension", "'graph' is misspelled or not recognized. resource-graph is not an installed extension", exitErr, azerrors.ErrCodeExtensionMissing, false},
		{"throttled", "ERROR: (RateLimiting) Too Many Requests", exitErr, azerrors.ErrCodeBackendUnavailable, true},
		{"gateway", "ERROR: 503 Service Unavailable", exitErr, azerrors.ErrCodeBackendUnavailable, true},
		{"other", "ERROR: (InvalidQuery) bad KQL", exitErr, azerrors.ErrCodeBackendUnavailable, false},
		{"not installed", "", &exec.Error{Name: "az", Err: exec.ErrNotFound}, azerrors.ErrCodeBackendUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify([]string{"graph", "query"}, []byte(tt.stderr), tt.err)
			if !azerrors.Is(err, tt.code) {
				t.Errorf("classify() = %v, want code %s", err, tt.code)
			}
			if retry.IsTransient(err) != tt.transient {
				t.Errorf("transient = %v, want %v", retry.IsTransient(err), tt.transient)
			}
		})
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	r := &fakeRunner{responses: map[string][]response{"graph query": {
		{stderr: "Too Many Requests", err: exitErr},
		{stdout: `[{"id":"/a"}]`},
	}}}
	rows, err := newClient(r).Query(context.Background(), collector.Query{Kind: collector.QueryInventory})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(r.calls) != 2 || len(rows) != 1 {
		t.Errorf("calls = %d rows = %d, want one retry", len(r.calls), len(rows))
	}
}

func TestDoesNotRetryLogin(t *testing.T) {
	r := &fakeRunner{responses: map[string][]response{"graph query": {
		{stderr: "Please run 'az login'", err: exitErr},
	}}}
	_, err := newClient(r).Query(context.Background(), collector.Query{})
	if !azerrors.Is(err, azerrors.ErrCodeNotLoggedIn) || len(r.calls) != 1 {
		t.Errorf("err = %v after %d calls", err, len(r.calls))
	}
}

func TestPerCallTimeout(t *testing.T) {
	r := &fakeRunner{responses: map[string][]response{"graph query": {{block: true}}}}
	c := newClient(r, WithTimeout(5*time.Millisecond), WithRetry(retry.Policy{Attempts: 2, Delay: time.Millisecond}))
	_, err := c.Query(context.Background(), collector.Query{})
	if !azerrors.Is(err, azerrors.ErrCodeTimeout) {
		t.Errorf("err = %v, want TIMEOUT", err)
	}
	if len(r.calls) != 2 {
		t.Errorf("calls = %d, timeouts should be retried", len(r.calls))
	}
}

func TestCancelledContext(t *testing.T) {
	r := &fakeRunner{responses: map[string][]response{"graph query": {{block: true}}}}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_, err := newClient(r).Query(ctx, collector.Query{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestListSubnets(t *testing.T) {
	r := &fakeRunner{responses: map[string][]response{"network vnet": {{stdout: `[
		{"id":"/v/subnets/a","name":"a","addressPrefix":"10.0.0.0/24"},
		{"id":"/v/subnets/b","name":"b","resourceGroup":"other","type":"Microsoft.Network/virtualNetworks/subnets"}
	]`}}}}
	rows, err := newClient(r).ListSubnets(context.Background(), collector.VNetRef{Name: "v", ResourceGroup: "net", Subscription: "s"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].ResourceGroup != "net" || rows[0].Type != "microsoft.network/virtualnetworks/subnets" {
		t.Errorf("defaults not applied: %+v", rows[0])
	}
	if rows[0].Properties["addressPrefix"] != "10.0.0.0/24" {
		t.Errorf("properties = %v", rows[0].Properties)
	}
	if rows[1].ResourceGroup != "other" {
		t.Errorf("explicit resource group lost: %+v", rows[1])
	}
	args := strings.Join(r.calls[0], " ")
	if !strings.Contains(args, "--vnet-name v") || !strings.Contains(args, "--subscription s") {
		t.Errorf("args = %s", args)
	}
}

func TestListResourceGroupsCached(t *testing.T) {
	r := &fakeRunner{responses: map[string][]response{"group list": {
		{stdout: `[{"name":"zeta"},{"name":"alpha"},{"name":""}]`},
	}}}
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(r, WithCache(fc, cache.NewDefaultKeyer()))

	for range 2 {
		names, err := c.ListResourceGroups(context.Background(), "sub")
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
			t.Errorf("names = %v", names)
		}
	}
	if len(r.calls) != 1 {
		t.Errorf("az called %d times, want the second listing from cache", len(r.calls))
	}
}

func TestListSubscriptions(t *testing.T) {
	r := &fakeRunner{responses: map[string][]response{"account list": {
		{stdout: `[{"id":"1","name":"dev","isDefault":true},{"id":"","name":"broken"}]`},
	}}}
	subs, err := newClient(r).ListSubscriptions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0].Name != "dev" || !subs[0].IsDefault {
		t.Errorf("subs = %+v", subs)
	}
}

func TestPreflight(t *testing.T) {
	tests := []struct {
		name     string
		resp     map[string][]response
		wantFail string
		code     azerrors.Code
	}{
		{
			name: "ready",
			resp: map[string][]response{
				"account show":   {{stdout: `{"name":"dev","user":{"name":"me@example.com"}}`}},
				"extension list": {{stdout: `[{"name":"resource-graph","version":"2.1.0"}]`}},
			},
		},
		{
			name: "logged out",
			resp: map[string][]response{
				"account show":   {{stderr: "Please run 'az login' to setup account.", err: exitErr}},
				"extension list": {{stdout: `[{"name":"resource-graph"}]`}},
			},
			wantFail: "login",
			code:     azerrors.ErrCodeNotLoggedIn,
		},
		{
			name: "no extension",
			resp: map[string][]response{
				"account show":   {{stdout: `{}`}},
				"extension list": {{stdout: `[{"name":"account"}]`}},
			},
			wantFail: "resource-graph",
			code:     azerrors.ErrCodeExtensionMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := newClient(&fakeRunner{responses: tt.resp}).Preflight(context.Background())
			if len(checks) != 3 {
				t.Fatalf("checks = %+v", checks)
			}
			failed, ok := Failed(checks)
			if tt.wantFail == "" {
				if ok {
					t.Errorf("unexpected failure %+v", failed)
				}
				return
			}
			if !ok || failed.Name != tt.wantFail || failed.Code != tt.code {
				t.Errorf("failed = %+v, want %s (%s)", failed, tt.wantFail, tt.code)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name    string
		q       collector.Query
		want    []string
		notWant []string
	}{
		{
			name: "inventory with scope",
			q:    collector.Query{Kind: collector.QueryInventory, Scope: collector.Scope{ResourceGroup: "o'brien"}, Limit: 5000},
			want: []string{"resourceGroup =~ 'o''brien'", "| limit 1000", "order by type asc"},
		},
		{
			name:    "network default types",
			q:       collector.Query{Kind: collector.QueryNetwork},
			want:    []string{"type in~ ('microsoft.network/virtualnetworks'", "typeRank", "| limit 300", "properties"},
			notWant: []string{"resourceGroup =~"},
		},
		{
			name:    "by ids ignores limit",
			q:       collector.Query{Kind: collector.QueryByIDs, IDs: []string{"/a", "/b"}},
			want:    []string{"id in~ ('/a', '/b')"},
			notWant: []string{"limit"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildQuery(tt.q)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("query missing %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("query should not contain %q:\n%s", w, got)
				}
			}
		})
	}
}
