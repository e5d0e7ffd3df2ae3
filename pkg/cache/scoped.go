package cache

// ScopedKeyer wraps a Keyer with a prefix so that several tenants (for
// example one per signed-in Azure account) can share a Redis instance
// without reading each other's inventories.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "tenant:72f988bf:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ListKey generates a prefixed listing key.
func (k *ScopedKeyer) ListKey(namespace, key string) string {
	return k.prefix + k.inner.ListKey(namespace, key)
}

// CollectKey generates a prefixed collection key.
func (k *ScopedKeyer) CollectKey(opts CollectKeyOpts) string {
	return k.prefix + k.inner.CollectKey(opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(graphHash, opts)
}
