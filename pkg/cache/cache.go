// Package cache stores fetched launcher metadata (the version manifest and
// version descriptors) so repeated launches do not hit the network.
//
// Artifacts themselves are never cached here: the local artifact store is its
// own cache, keyed by presence on disk. This package only holds the small
// JSON documents the launcher needs before it knows which artifacts exist.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under the launcher's cache dir (CLI default)
//   - [RedisCache]: shared cache for several launcher installs on one network
//   - [NullCache]: caching disabled
//
// # Keys
//
// Keys are produced by a [Keyer] so that every backend sees the same key
// layout. [ScopedKeyer] prefixes keys when several installs share a Redis.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Default TTLs for cached documents.
const (
	// TTLManifest is how long the version manifest is reused. New releases
	// appear upstream, so this is short.
	TTLManifest = time.Hour

	// TTLDescriptor is how long a version descriptor is reused. Published
	// descriptors do not change.
	TTLDescriptor = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the cached bytes for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer produces cache keys.
type Keyer interface {
	// HTTPKey returns the key for a raw HTTP document.
	HTTPKey(namespace, key string) string

	// ManifestKey returns the key for the version manifest at url.
	ManifestKey(url string) string

	// DescriptorKey returns the key for the version descriptor at url.
	DescriptorKey(url string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey implements Keyer.
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return fmt.Sprintf("http:%s:%s", namespace, key)
}

// ManifestKey implements Keyer.
func (DefaultKeyer) ManifestKey(url string) string {
	return hashKey("manifest", url)
}

// DescriptorKey implements Keyer.
func (DefaultKeyer) DescriptorKey(url string) string {
	return hashKey("descriptor", url)
}
