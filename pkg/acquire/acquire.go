// Package acquire materializes a resolved artifact set into the local store.
//
// Libraries, the client archive, and native bundles are fetched with a
// bounded worker pool; native bundles are unpacked into the natives directory
// as soon as they are present. Assets are split in two phases:
//
//   - Phase 1: the objects the main menu needs to render (UI sounds, language
//     files, GUI textures, fonts). Fetched before Acquire returns, with
//     per-item progress.
//   - Phase 2: everything else. Started after phase 1 as a background [Job]
//     that the caller may wait for or ignore.
//
// A failing item never cancels its siblings. It is logged, counted, and
// returned in [Result.Failed] (or [Job.Failed]); the missing file may surface
// later as a game error. Acquire itself fails only when the root directories
// cannot be created.
package acquire

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/craftlaunch/pkg/errors"
	"github.com/matzehuels/craftlaunch/pkg/fetch"
	"github.com/matzehuels/craftlaunch/pkg/observability"
	"github.com/matzehuels/craftlaunch/pkg/progress"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
)

// DefaultWorkers is the size of the fetch worker pool.
const DefaultWorkers = 16

// RequiredAssets are the virtual path substrings fetched in phase 1.
var RequiredAssets = []string{
	"sounds/ui/",
	"sounds/random/click",
	"lang/",
	"textures/gui/",
	"font/",
	"minecraft/font",
	"icons/",
}

// Fetcher is the single-artifact fetch primitive.
type Fetcher interface {
	Fetch(ctx context.Context, t fetch.Task) (bool, error)
}

// ItemError is a failure to acquire one artifact.
type ItemError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e ItemError) Error() string { return fmt.Sprintf("%s: %v", e.Name, e.Err) }

// Unwrap returns the underlying error.
func (e ItemError) Unwrap() error { return e.Err }

// Code returns the error code for this error type.
func (e ItemError) Code() errs.Code { return errs.ErrCodeAcquisition }

// Stats counts the outcome of a batch.
type Stats struct {
	Fetched int `json:"fetched"` // downloaded now
	Present int `json:"present"` // already on disk
	Failed  int `json:"failed"`
}

// Result describes the prepared installation.
type Result struct {
	// Classpath lists library files in resolution order, then the client archive.
	Classpath  []string
	NativesDir string
	AssetsDir  string
	Failed     []ItemError
	Stats      Stats
	// Background fetches the phase 2 assets. Nil when there are none.
	Background *Job
}

// Scheduler runs acquisition with a fixed-size worker pool.
type Scheduler struct {
	fetcher  Fetcher
	workers  int
	required []string
	logger   *log.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRequired replaces the phase 1 substrings.
func WithRequired(substrings []string) Option {
	return func(s *Scheduler) { s.required = substrings }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates a scheduler over f.
func NewScheduler(f Fetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:  f,
		workers:  DefaultWorkers,
		required: RequiredAssets,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire fetches set into the local store and starts the background asset
// job. Progress is reported to sink, which must be safe for concurrent use.
func (s *Scheduler) Acquire(ctx context.Context, set *resolve.ArtifactSet, sink progress.Sink) (*Result, error) {
	if sink == nil {
		sink = progress.Discard
	}
	if err := s.prepareDirs(set); err != nil {
		return nil, err
	}
	start := time.Now()
	observability.Launch().OnAcquireStart(ctx, set.VersionID, set.Len())

	t := &tally{}

	// Libraries and the client archive.
	sink.Report(progress.Progress{Stage: progress.PreparingLibraries, Total: len(set.Libraries) + 1, Message: "Preparing libraries"})
	libs := append(append([]fetch.Task(nil), set.Libraries...), set.Client)
	s.fetchAll(ctx, libs, t, progress.DownloadingLibraries, sink)

	// Native bundles.
	var extracted atomic.Int64
	s.each(len(set.Natives), func(i int) {
		n := set.Natives[i]
		if s.fetchOne(ctx, n.Task, t) {
			if err := Extract(n.Task.Dest, set.NativesDir(), n.Exclude); err != nil {
				t.fail(n.Task.Name, fmt.Errorf("extract: %w", err))
				s.logger.Warn("native extraction failed", "name", n.Task.Name, "error", err)
			}
		}
		sink.Report(progress.Progress{
			Stage:   progress.ExtractingNatives,
			Current: int(extracted.Add(1)),
			Total:   len(set.Natives),
			Message: "Extracting " + n.Task.Name,
		})
	})

	// Assets, phase 1.
	now, later := Split(set.Assets, s.required)
	sink.Report(progress.Progress{Stage: progress.PreparingAssets, Total: len(now), Message: "Preparing assets"})
	mirror := set.Index.Mirror.Dir(set.Layout)
	s.fetchAssets(ctx, now, mirror, t, sink)
	sink.Report(progress.Progress{
		Stage:   progress.AssetLoadComplete,
		Current: len(now),
		Total:   len(now),
		Message: fmt.Sprintf("Loaded %d required assets, %d more in background", len(now), len(later)),
	})

	stats := t.stats()
	observability.Launch().OnAcquireComplete(ctx, set.VersionID, stats.Fetched, stats.Failed, time.Since(start))
	s.logger.Info("acquired artifacts",
		"version", set.VersionID,
		"fetched", stats.Fetched,
		"present", stats.Present,
		"failed", stats.Failed,
		"background", len(later))

	res := &Result{
		Classpath:  set.Classpath(),
		NativesDir: set.NativesDir(),
		AssetsDir:  set.AssetsDir(),
		Failed:     t.failures(),
		Stats:      stats,
	}
	if len(later) > 0 {
		res.Background = s.startBackground(ctx, set.VersionID, later, mirror)
	}
	return res, nil
}

// prepareDirs creates the root directories. This is the only systemic
// failure of acquisition.
func (s *Scheduler) prepareDirs(set *resolve.ArtifactSet) error {
	dirs := []string{
		set.Layout.Libraries(),
		set.Layout.VersionDir(set.VersionID),
		set.NativesDir(),
		set.Layout.Assets(),
		set.Layout.GameDir(),
	}
	if d := set.Index.Mirror.Dir(set.Layout); d != "" {
		dirs = append(dirs, d)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errs.Wrap(errs.ErrCodeAcquisition, err, "create directory %s", d)
		}
	}
	return nil
}

// startBackground runs phase 2 detached from ctx's cancellation.
func (s *Scheduler) startBackground(ctx context.Context, versionID string, assets []resolve.Asset, mirror string) *Job {
	j := newJob(len(assets))
	bg := context.WithoutCancel(ctx)
	go func() {
		defer close(j.done)
		start := time.Now()
		s.fetchAssets(bg, assets, mirror, j.tally, progress.SinkFunc(func(p progress.Progress) {
			j.advance(p.Current)
		}))
		stats := j.Stats()
		observability.Launch().OnBackgroundComplete(bg, versionID, stats.Fetched, stats.Failed, time.Since(start))
		s.logger.Info("background assets complete",
			"version", versionID,
			"fetched", stats.Fetched,
			"failed", stats.Failed,
			"took", time.Since(start).Round(time.Millisecond))
	}()
	return j
}

// fetchAll fetches tasks on the pool and reports stage progress per item.
func (s *Scheduler) fetchAll(ctx context.Context, tasks []fetch.Task, t *tally, stage progress.Stage, sink progress.Sink) {
	var done atomic.Int64
	s.each(len(tasks), func(i int) {
		s.fetchOne(ctx, tasks[i], t)
		sink.Report(progress.Progress{
			Stage:   stage,
			Current: int(done.Add(1)),
			Total:   len(tasks),
			Message: tasks[i].Name,
		})
	})
}

// fetchAssets fetches asset objects and mirrors each one right after its
// fetch, inside the same worker.
func (s *Scheduler) fetchAssets(ctx context.Context, assets []resolve.Asset, mirror string, t *tally, sink progress.Sink) {
	var done atomic.Int64
	s.each(len(assets), func(i int) {
		a := assets[i]
		if s.fetchOne(ctx, a.Task, t) && mirror != "" {
			if err := Mirror(a.Task.Dest, mirror, a.VirtualPath); err != nil {
				t.fail(a.VirtualPath, fmt.Errorf("mirror: %w", err))
				s.logger.Warn("asset mirror failed", "path", a.VirtualPath, "error", err)
			}
		}
		sink.Report(progress.Progress{
			Stage:   progress.DownloadingAssets,
			Current: int(done.Add(1)),
			Total:   len(assets),
			Message: a.VirtualPath,
		})
	})
}

// fetchOne fetches a single task and records the outcome. It reports whether
// the file is now present.
func (s *Scheduler) fetchOne(ctx context.Context, task fetch.Task, t *tally) bool {
	fetched, err := s.fetcher.Fetch(ctx, task)
	if err != nil {
		t.fail(task.Name, err)
		s.logger.Warn("artifact failed", "name", task.Name, "error", err)
		return false
	}
	if fetched {
		t.fetched.Add(1)
	} else {
		t.present.Add(1)
	}
	return true
}

// each calls fn for every index in [0, n) on at most s.workers goroutines
// and waits for all of them.
func (s *Scheduler) each(n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range n {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// Split partitions assets into those whose virtual path contains one of the
// required substrings and the rest, preserving order.
func Split(assets []resolve.Asset, required []string) (now, later []resolve.Asset) {
	for _, a := range assets {
		if IsRequired(a.VirtualPath, required) {
			now = append(now, a)
		} else {
			later = append(later, a)
		}
	}
	return now, later
}

// IsRequired reports whether virtualPath contains any of the substrings.
func IsRequired(virtualPath string, required []string) bool {
	for _, r := range required {
		if strings.Contains(virtualPath, r) {
			return true
		}
	}
	return false
}

// tally accumulates outcomes from concurrent workers.
type tally struct {
	fetched atomic.Int64
	present atomic.Int64

	mu     sync.Mutex
	failed []ItemError
}

func (t *tally) fail(name string, err error) {
	t.mu.Lock()
	t.failed = append(t.failed, ItemError{Name: name, Err: err})
	t.mu.Unlock()
}

func (t *tally) failures() []ItemError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ItemError(nil), t.failed...)
}

func (t *tally) stats() Stats {
	t.mu.Lock()
	failed := len(t.failed)
	t.mu.Unlock()
	return Stats{
		Fetched: int(t.fetched.Load()),
		Present: int(t.present.Load()),
		Failed:  failed,
	}
}
