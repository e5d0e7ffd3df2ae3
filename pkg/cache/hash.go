package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer builds cache keys. Implementations must be deterministic.
type Keyer interface {
	// ListKey identifies a listing such as the resource groups of a
	// subscription.
	ListKey(namespace, key string) string
	// CollectKey identifies the graph collected for a scope and view.
	CollectKey(opts CollectKeyOpts) string
	// ArtifactKey identifies a rendered document for a graph hash.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// CollectKeyOpts are the inputs that change a collection result.
type CollectKeyOpts struct {
	Backend       string `json:"backend"`
	View          string `json:"view"`
	Subscription  string `json:"subscription,omitempty"`
	ResourceGroup string `json:"resource_group,omitempty"`
	Limit         int    `json:"limit"`
	MaxRefs       int    `json:"max_refs"`
	MaxVNets      int    `json:"max_vnets"`
}

// ArtifactKeyOpts are the inputs that change a rendered document.
type ArtifactKeyOpts struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	// Params is a hash of layout parameters and taxonomy overrides.
	Params string `json:"params,omitempty"`
}

// DefaultKeyer hashes the key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ListKey returns "list:<namespace>:<key>".
func (DefaultKeyer) ListKey(namespace, key string) string {
	return "list:" + namespace + ":" + key
}

// CollectKey returns "collect:<hash>".
func (DefaultKeyer) CollectKey(opts CollectKeyOpts) string {
	return hashKey("collect", opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashJSON hashes the JSON encoding of v.
func HashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Hash(data), nil
}
