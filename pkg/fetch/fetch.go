// Package fetch downloads single artifacts into the local store.
//
// A fetch is idempotent: when the destination already exists the task is a
// successful no-op and no request is made. The local store is the only cache
// for artifacts, so presence on disk is all that is remembered between
// launches. Files are written to a temporary sibling and renamed into place,
// so concurrent fetches of the same artifact never leave a partial file.
//
// There is no retry. Re-running a launch is the retry mechanism.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/craftlaunch/pkg/observability"
)

// ErrStatus is returned when the server answers with a non-200 status.
var ErrStatus = errors.New("unexpected HTTP status")

// Task is one artifact to acquire.
type Task struct {
	URL  string `json:"url" yaml:"url"`
	Dest string `json:"dest" yaml:"dest"`
	Name string `json:"name" yaml:"name"`
}

// Fetcher performs tasks over a shared HTTP client so connections are reused
// across workers.
type Fetcher struct {
	client *http.Client
	logger *log.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher. The default client keeps enough idle connections
// per host for a full worker pool and sets no overall deadline.
func New(opts ...Option) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 32
	f := &Fetcher{
		client: &http.Client{Transport: transport},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads t.URL to t.Dest unless t.Dest already exists.
// It reports whether a download took place.
func (f *Fetcher) Fetch(ctx context.Context, t Task) (bool, error) {
	if _, err := os.Stat(t.Dest); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(t.Dest), 0o755); err != nil {
		return false, fmt.Errorf("%s: %w", t.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", t.Name, err)
	}
	host, path := hostPath(t.URL)
	observability.HTTP().OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, host, path, err)
		return false, fmt.Errorf("%s: %w", t.Name, err)
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%s: %w: %d", t.Name, ErrStatus, resp.StatusCode)
	}
	if err := writeFile(t.Dest, resp.Body); err != nil {
		return false, fmt.Errorf("%s: %w", t.Name, err)
	}
	f.logger.Debug("fetched", "name", t.Name, "took", time.Since(start).Round(time.Millisecond))
	return true, nil
}

// writeFile streams r into a temp file next to dest and renames it into place.
func writeFile(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func hostPath(raw string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	return u.Host, u.Path
}
