package cache

// ScopedKeyer wraps a Keyer with a prefix so that several users of one
// backend (the CLI and a server sharing a Redis, say) never see each
// other's entries.
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "server:")
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

// ExportKey generates a prefixed key for an exported frame.
func (k *ScopedKeyer) ExportKey(contentHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(contentHash, opts)
}
