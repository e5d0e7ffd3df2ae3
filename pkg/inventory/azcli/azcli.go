// Package azcli is a collector backend that shells out to the Azure CLI.
//
// Inventory comes from Azure Resource Graph (`az graph query`, which needs
// the resource-graph extension); subnet listings come from
// `az network vnet subnet list`. Every invocation runs under its own
// timeout and is retried when the failure looks transient (throttling,
// timeouts, gateway errors). Authentication is whatever `az login` left
// behind; this package never handles credentials.
package azcli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/observability"
	"github.com/matzehuels/azdiagram/pkg/retry"
)

// Per-call timeouts.
const (
	QueryTimeout  = 5 * time.Minute
	SubnetTimeout = 20 * time.Second
	ListTimeout   = 30 * time.Second
)

// Runner executes a command and returns its output. The default runs real
// processes; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.Bytes(), errBuf.Bytes(), err
}

// Client implements [collector.Backend] and [collector.ResourceGroupLister].
type Client struct {
	runner  Runner
	exe     string
	timeout time.Duration
	policy  retry.Policy
	logger  *log.Logger
	cache   cache.Cache
	keyer   cache.Keyer

	lookPath func(string) (string, error)
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option { return func(c *Client) { c.runner = r } }

// WithExecutable sets the az executable path, skipping discovery.
func WithExecutable(path string) Option { return func(c *Client) { c.exe = path } }

// WithTimeout overrides the graph query timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithRetry sets the retry policy for transient failures.
func WithRetry(p retry.Policy) Option { return func(c *Client) { c.policy = p } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// WithCache caches subscription and resource group listings.
func WithCache(ch cache.Cache, k cache.Keyer) Option {
	return func(c *Client) { c.cache, c.keyer = ch, k }
}

// New creates a client. The az executable is looked up on PATH unless
// [WithExecutable] is given.
func New(opts ...Option) *Client {
	c := &Client{
		runner:  ExecRunner{},
		timeout: QueryTimeout,
		policy:  retry.DefaultPolicy,
		logger:  log.Default(),
		cache:   cache.NewNullCache(),
		keyer:   cache.NewDefaultKeyer(),

		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exe == "" {
		c.exe = FindExecutable()
	}
	return c
}

// FindExecutable returns the first az executable found on PATH, or "az".
func FindExecutable() string {
	for _, name := range []string{"az", "az.cmd", "az.exe"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return "az"
}

// run invokes az with a per-call timeout, retrying transient failures.
func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	var out []byte
	op := strings.Join(args[:min(len(args), 2)], " ")
	hooks := observability.Backend()
	err := retry.Do(ctx, c.policy, func() (err error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		hooks.OnCall(ctx, op)
		defer func() { hooks.OnResult(ctx, op, time.Since(start), err) }()

		stdout, stderr, err := c.runner.Run(callCtx, c.exe, args...)
		c.logger.Debug("az", "args", strings.Join(args[:min(len(args), 3)], " "), "took", time.Since(start).Round(time.Millisecond))
		if err == nil {
			out = stdout
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if callCtx.Err() == context.DeadlineExceeded {
			return retry.Transient(errors.Wrap(errors.ErrCodeTimeout, err,
				"az %s timed out after %s; narrow the scope with --resource-group", args[0], timeout))
		}
		return classify(args, stderr, err)
	})
	return out, err
}

var transientMarkers = []string{
	"throttl", "too many requests", "429", "temporarily unavailable",
	"timed out", "timeout", "502", "503", "504", "connection reset",
}

// classify maps a failed az invocation to a coded error.
func classify(args []string, stderr []byte, cause error) error {
	msg := strings.TrimSpace(string(stderr))
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "az login"):
		return errors.Wrap(errors.ErrCodeNotLoggedIn, cause, "not logged in to Azure; run `az login`")
	case strings.Contains(lower, "not an installed extension") || strings.Contains(lower, "resource-graph"):
		return errors.Wrap(errors.ErrCodeExtensionMissing, cause,
			"resource-graph extension not installed; run `az extension add --name resource-graph`")
	}
	var execErr *exec.Error
	if stderrors.As(cause, &execErr) {
		return errors.Wrap(errors.ErrCodeBackendUnavailable, cause, "Azure CLI not found; install it from https://aka.ms/azcli")
	}
	e := errors.Wrap(errors.ErrCodeBackendUnavailable, cause, "az %s failed: %s", args[0], firstLine(msg))
	for _, m := range transientMarkers {
		if strings.Contains(lower, m) {
			return retry.Transient(e)
		}
	}
	return e
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Query implements [collector.Backend] with a resource graph query.
func (c *Client) Query(ctx context.Context, q collector.Query) ([]collector.Row, error) {
	kql := BuildQuery(q)
	args := []string{"graph", "query", "-q", kql, "--first", "1000", "--output", "json"}
	if q.Scope.Subscription != "" {
		args = append(args, "--subscriptions", q.Scope.Subscription)
	}
	out, err := c.run(ctx, c.timeout, args...)
	if err != nil {
		return nil, err
	}
	rows, err := ParseRows(out)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("graph query", "kind", q.Kind, "rows", len(rows))
	return rows, nil
}

// ParseRows decodes `az graph query` output, which is either
// {"data": [...]} or a bare array depending on the CLI version.
func ParseRows(out []byte) ([]collector.Row, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	if out[0] == '[' {
		var rows []collector.Row
		if err := json.Unmarshal(out, &rows); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph query output")
		}
		return rows, nil
	}
	var payload struct {
		Data []collector.Row `json:"data"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph query output")
	}
	return payload.Data, nil
}

// ListSubnets implements [collector.Backend].
func (c *Client) ListSubnets(ctx context.Context, ref collector.VNetRef) ([]collector.Row, error) {
	args := []string{
		"network", "vnet", "subnet", "list",
		"--resource-group", ref.ResourceGroup,
		"--vnet-name", ref.Name,
		"--output", "json",
	}
	if ref.Subscription != "" {
		args = append(args, "--subscription", ref.Subscription)
	}
	out, err := c.run(ctx, SubnetTimeout, args...)
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode subnet list for %s", ref.Name)
	}
	rows := make([]collector.Row, 0, len(raw))
	for _, s := range raw {
		r := collector.Row{
			ID:            str(s["id"]),
			Name:          str(s["name"]),
			Type:          str(s["type"]),
			ResourceGroup: str(s["resourceGroup"]),
			Properties:    s,
		}
		if r.Type == "" {
			r.Type = model.TypeSubnet
		}
		if r.ResourceGroup == "" {
			r.ResourceGroup = ref.ResourceGroup
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// Subscription is one entry of `az account list`.
type Subscription struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// ListSubscriptions returns the subscriptions visible to the signed-in
// account.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	err := c.cached(ctx, c.keyer.ListKey("subscriptions", "all"), &subs, func() error {
		out, err := c.run(ctx, ListTimeout, "account", "list", "--output", "json")
		if err != nil {
			return err
		}
		var all []Subscription
		if err := json.Unmarshal(out, &all); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode account list")
		}
		subs = subs[:0]
		for _, s := range all {
			if s.ID != "" {
				subs = append(subs, s)
			}
		}
		return nil
	})
	return subs, err
}

// ListResourceGroups implements [collector.ResourceGroupLister]. Names are
// sorted.
func (c *Client) ListResourceGroups(ctx context.Context, subscription string) ([]string, error) {
	var names []string
	err := c.cached(ctx, c.keyer.ListKey("groups", subscription), &names, func() error {
		args := []string{"group", "list", "--output", "json"}
		if subscription != "" {
			args = append(args, "--subscription", subscription)
		}
		out, err := c.run(ctx, ListTimeout, args...)
		if err != nil {
			return err
		}
		var groups []struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(out, &groups); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode group list")
		}
		names = names[:0]
		for _, g := range groups {
			if g.Name != "" {
				names = append(names, g.Name)
			}
		}
		sort.Strings(names)
		return nil
	})
	return names, err
}

// cached reads v from the listing cache or runs fetch and stores v.
func (c *Client) cached(ctx context.Context, key string, v any, fetch func() error) error {
	if data, ok, _ := c.cache.Get(ctx, key); ok {
		if json.Unmarshal(data, v) == nil {
			return nil
		}
	}
	if err := fetch(); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, cache.TTLList)
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

var (
	_ collector.Backend             = (*Client)(nil)
	_ collector.ResourceGroupLister = (*Client)(nil)
)
