// Package file is a collector backend that replays a recorded inventory.
//
// A snapshot file is JSON, either a bare array of resource graph rows or an
// object that also carries subnet listings and resource group names:
//
//	{
//	  "rows": [{"id": "...", "name": "hub", "type": "Microsoft.Network/virtualNetworks", ...}],
//	  "subnets": {"<vnet id>": [{"id": "<vnet id>/subnets/default", "name": "default"}]},
//	  "resourceGroups": {"<subscription>": ["net", "app"]}
//	}
//
// Snapshots make collection reproducible: `azdiagram collect --source file`
// runs the same collector logic as the live backend without touching Azure.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/matzehuels/azdiagram/pkg/cellid"
	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/model"
)

// Snapshot is the decoded file.
type Snapshot struct {
	Rows           []collector.Row            `json:"rows"`
	Subnets        map[string][]collector.Row `json:"subnets,omitempty"`
	ResourceGroups map[string][]string        `json:"resourceGroups,omitempty"`
}

// Backend serves queries from a snapshot.
type Backend struct {
	snap    Snapshot
	subnets map[string][]collector.Row // canonical vnet id -> rows
}

// New wraps an in-memory snapshot.
func New(s Snapshot) *Backend {
	b := &Backend{snap: s, subnets: make(map[string][]collector.Row, len(s.Subnets))}
	for id, rows := range s.Subnets {
		b.subnets[cellid.NormalizeID(id)] = rows
	}
	return b
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (*Backend, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var s Snapshot
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &s.Rows)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode inventory snapshot")
	}
	return New(s), nil
}

// Open reads the snapshot file at path.
func Open(path string) (*Backend, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "inventory file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Query implements [collector.Backend].
func (b *Backend) Query(ctx context.Context, q collector.Query) ([]collector.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var match func(collector.Row) bool
	switch q.Kind {
	case collector.QueryByIDs:
		want := make(map[string]bool, len(q.IDs))
		for _, id := range q.IDs {
			want[cellid.NormalizeID(id)] = true
		}
		match = func(r collector.Row) bool { return want[cellid.NormalizeID(r.ID)] }
	case collector.QueryNetwork:
		types := q.Types
		if len(types) == 0 {
			types = collector.NetworkTypes
		}
		match = func(r collector.Row) bool {
			return inScope(r, q.Scope) && slices.Contains(types, strings.ToLower(r.Type))
		}
	default:
		match = func(r collector.Row) bool { return inScope(r, q.Scope) }
	}

	var out []collector.Row
	for _, r := range b.snap.Rows {
		if match(r) {
			out = append(out, r)
		}
	}
	if q.Kind != collector.QueryByIDs {
		if limit := collector.ClampLimit(q.Limit); len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}

// ListSubnets implements [collector.Backend]. A VNet without a recorded
// listing has no subnets.
func (b *Backend) ListSubnets(ctx context.Context, ref collector.VNetRef) ([]collector.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := b.subnets[cellid.NormalizeID(ref.ID)]
	out := make([]collector.Row, len(rows))
	for i, r := range rows {
		if r.Type == "" {
			r.Type = model.TypeSubnet
		}
		if r.ResourceGroup == "" {
			r.ResourceGroup = ref.ResourceGroup
		}
		out[i] = r
	}
	return out, nil
}

// ListResourceGroups implements [collector.ResourceGroupLister]. Without
// recorded names, groups are derived from the rows.
func (b *Backend) ListResourceGroups(ctx context.Context, subscription string) ([]string, error) {
	if names, ok := b.snap.ResourceGroups[subscription]; ok {
		return slices.Sorted(slices.Values(names)), nil
	}
	seen := map[string]bool{}
	var names []string
	for _, r := range b.snap.Rows {
		if subscription != "" && collector.SubscriptionFromID(r.ID) != strings.ToLower(subscription) {
			continue
		}
		if r.ResourceGroup != "" && !seen[strings.ToLower(r.ResourceGroup)] {
			seen[strings.ToLower(r.ResourceGroup)] = true
			names = append(names, r.ResourceGroup)
		}
	}
	slices.Sort(names)
	return names, nil
}

func inScope(r collector.Row, s collector.Scope) bool {
	if s.ResourceGroup != "" && !strings.EqualFold(r.ResourceGroup, s.ResourceGroup) {
		return false
	}
	if s.Subscription != "" && collector.SubscriptionFromID(r.ID) != strings.ToLower(s.Subscription) {
		return false
	}
	return true
}

var (
	_ collector.Backend             = (*Backend)(nil)
	_ collector.ResourceGroupLister = (*Backend)(nil)
)
