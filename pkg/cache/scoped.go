package cache

// ScopedKeyer wraps a Keyer with a prefix, isolating key namespaces.
// The compile server uses it to keep per-deployment caches from
// colliding when several instances share one Redis.
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
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SynthKey generates a prefixed key for synthesis result caching.
func (k *ScopedKeyer) SynthKey(sourceHash string, opts SynthKeyOpts) string {
	return k.prefix + k.inner.SynthKey(sourceHash, opts)
}
