package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/craftlaunch/pkg/cache"
	"github.com/matzehuels/craftlaunch/pkg/httputil"
	"github.com/matzehuels/craftlaunch/pkg/observability"
)

// DefaultManifestURL is the upstream version manifest.
const DefaultManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

// catalogTimeout bounds catalog requests. Artifact downloads use no deadline.
const catalogTimeout = 10 * time.Second

var (
	// ErrVersionNotFound is returned when the manifest has no such version id.
	ErrVersionNotFound = errors.New("version not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// Catalog looks up versions in the upstream manifest and fetches their
// descriptors. Documents are cached through a [cache.Cache].
type Catalog struct {
	http        *http.Client
	cache       cache.Cache
	keyer       cache.Keyer
	manifestURL string
	manifestTTL time.Duration
	retry       httputil.Policy
	refresh     bool
	logger      *log.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) CatalogOption {
	return func(cat *Catalog) { cat.http = c }
}

// WithKeyer sets the cache key layout.
func WithKeyer(k cache.Keyer) CatalogOption {
	return func(cat *Catalog) { cat.keyer = k }
}

// WithRefresh bypasses cached documents (fresh responses are still stored).
func WithRefresh(refresh bool) CatalogOption {
	return func(cat *Catalog) { cat.refresh = refresh }
}

// WithManifestTTL sets how long the version manifest is reused.
func WithManifestTTL(ttl time.Duration) CatalogOption {
	return func(cat *Catalog) {
		if ttl > 0 {
			cat.manifestTTL = ttl
		}
	}
}

// WithRetry sets the retry schedule for metadata requests.
func WithRetry(p httputil.Policy) CatalogOption {
	return func(cat *Catalog) { cat.retry = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) CatalogOption {
	return func(cat *Catalog) { cat.logger = l }
}

// NewCatalog creates a catalog reading manifestURL (DefaultManifestURL if
// empty). A nil cache disables caching.
func NewCatalog(manifestURL string, c cache.Cache, opts ...CatalogOption) *Catalog {
	if manifestURL == "" {
		manifestURL = DefaultManifestURL
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	cat := &Catalog{
		http:        &http.Client{Timeout: catalogTimeout},
		cache:       c,
		keyer:       cache.NewDefaultKeyer(),
		manifestURL: manifestURL,
		manifestTTL: cache.TTLManifest,
		retry:       httputil.DefaultPolicy,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(cat)
	}
	return cat
}

// Versions returns the version manifest.
func (c *Catalog) Versions(ctx context.Context) (*VersionManifest, error) {
	var m VersionManifest
	key := c.keyer.ManifestKey(c.manifestURL)
	if err := c.cached(ctx, "manifest", key, c.manifestTTL, c.manifestURL, &m); err != nil {
		return nil, fmt.Errorf("version manifest: %w", err)
	}
	return &m, nil
}

// DescriptorURL returns the descriptor URL of the version with the given id.
func (c *Catalog) DescriptorURL(ctx context.Context, id string) (string, error) {
	m, err := c.Versions(ctx)
	if err != nil {
		return "", err
	}
	for _, v := range m.Versions {
		if v.ID == id {
			return v.URL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrVersionNotFound, id)
}

// Descriptor fetches and decodes the version descriptor at descriptorURL.
func (c *Catalog) Descriptor(ctx context.Context, descriptorURL string) (*VersionDescriptor, error) {
	var d VersionDescriptor
	key := c.keyer.DescriptorKey(descriptorURL)
	if err := c.cached(ctx, "descriptor", key, cache.TTLDescriptor, descriptorURL, &d); err != nil {
		return nil, fmt.Errorf("version descriptor: %w", err)
	}
	return &d, nil
}

// Lookup resolves id to its descriptor in one call.
func (c *Catalog) Lookup(ctx context.Context, id string) (*VersionDescriptor, error) {
	u, err := c.DescriptorURL(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Descriptor(ctx, u)
}

// cached serves v from the cache or fetches src, decodes it into v and
// stores the raw document.
func (c *Catalog) cached(ctx context.Context, keyType, key string, ttl time.Duration, src string, v any) error {
	if !c.refresh {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("cache read failed", "key", keyType, "error", err)
		}
		if ok && json.Unmarshal(data, v) == nil {
			observability.Cache().OnCacheHit(ctx, keyType)
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, keyType)
	}

	data, err := c.get(ctx, src)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", keyType, err)
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("cache write failed", "key", keyType, "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, keyType, len(data))
	}
	return nil
}

// get fetches src, retrying transport errors and 5xx responses.
func (c *Catalog) get(ctx context.Context, src string) ([]byte, error) {
	var body []byte
	err := c.retry.Do(ctx, func() error {
		var err error
		body, err = c.getOnce(ctx, src)
		return err
	})
	var re *httputil.RetryableError
	if errors.As(err, &re) {
		err = re.Err
	}
	return body, err
}

func (c *Catalog) getOnce(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	host, path := hostPath(src)
	observability.HTTP().OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, host, path, err)
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		if httputil.RetryableStatus(resp.StatusCode) {
			return nil, httputil.Retryable(err)
		}
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: not found", ErrNetwork)
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func hostPath(raw string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	return u.Host, u.Path
}
