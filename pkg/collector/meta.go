package collector

import (
	"encoding/json"

	"github.com/matzehuels/azdiagram/pkg/model"
)

// Meta describes how a collection run went.
type Meta struct {
	View        View           `json:"view"`
	Scope       Scope          `json:"scope"`
	Limit       int            `json:"limit"`
	TypeSummary map[string]int `json:"type_summary"`
	Refs        RefStats       `json:"ref_resolution"`
	Subnets     SubnetStats    `json:"subnet_collection"`
	Filter      *FilterStats   `json:"network_filter,omitempty"`
	Merge       *MergeStats    `json:"inventory_merge,omitempty"`
	Validation  model.Report   `json:"validation"`
}

// RefStats counts best-effort reference resolution.
type RefStats struct {
	Referenced   int    `json:"referenced_total"`
	MaxRefs      int    `json:"max_refs"`
	Queried      int    `json:"queried"`
	Resolved     int    `json:"resolved"`
	StillMissing int    `json:"still_missing"`
	Error        string `json:"error,omitempty"`
}

// SubnetStats counts per-VNet subnet listings.
type SubnetStats struct {
	VNets     int `json:"vnets_total"`
	Attempted int `json:"vnets_attempted"`
	Skipped   int `json:"vnets_skipped"`
	Failed    int `json:"vnets_failed"`
	Added     int `json:"subnets_added"`
	MaxVNets  int `json:"max_vnets"`
}

// FilterStats reports the network noise filter.
type FilterStats struct {
	NodesBefore int `json:"nodes_before"`
	NodesAfter  int `json:"nodes_after"`
}

// MergeStats reports the inventory merge of a network run.
type MergeStats struct {
	Enabled        bool   `json:"enabled"`
	NetworkNodes   int    `json:"network_nodes"`
	InventoryNodes int    `json:"inventory_nodes"`
	Added          int    `json:"added"`
	Error          string `json:"error,omitempty"`
}

// Map returns the metadata as a generic JSON object, the form stored in
// [model.Graph.Meta].
func (m Meta) Map() map[string]any {
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
