package cache

// ScopedKeyer wraps a Keyer with a prefix so several launcher installs can
// share one Redis without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "install:"+cache.Hash([]byte(baseDir))[:12]+":")
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

// HTTPKey generates a prefixed key for raw HTTP documents.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// ManifestKey generates a prefixed key for the version manifest.
func (k *ScopedKeyer) ManifestKey(url string) string {
	return k.prefix + k.inner.ManifestKey(url)
}

// DescriptorKey generates a prefixed key for a version descriptor.
func (k *ScopedKeyer) DescriptorKey(url string) string {
	return k.prefix + k.inner.DescriptorKey(url)
}
