// Package launch runs a complete launch attempt: look up the version, resolve
// and acquire its artifacts, pick a Java runtime, then spawn and observe the
// game.
//
// A [Launcher] allows one attempt at a time. Each attempt runs on its own
// goroutine and reports progress over a channel; the caller must drain
// [Attempt.Events] until it is closed. Errors are also left in the
// launcher's [ErrorSlot] for consumers that only poll.
package launch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/craftlaunch/pkg/acquire"
	errs "github.com/matzehuels/craftlaunch/pkg/errors"
	"github.com/matzehuels/craftlaunch/pkg/fetch"
	"github.com/matzehuels/craftlaunch/pkg/history"
	"github.com/matzehuels/craftlaunch/pkg/jvm"
	"github.com/matzehuels/craftlaunch/pkg/layout"
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/observability"
	"github.com/matzehuels/craftlaunch/pkg/platform"
	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/progress"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

// ErrLaunchInProgress is returned by Launch while another attempt runs.
var ErrLaunchInProgress = errs.New(errs.ErrCodeBusy, "a launch is already in progress")

// historyTimeout bounds the write of one history record.
const historyTimeout = 5 * time.Second

// =============================================================================
// Collaborators
// =============================================================================

// Catalog finds version descriptors.
type Catalog interface {
	DescriptorURL(ctx context.Context, id string) (string, error)
	Descriptor(ctx context.Context, descriptorURL string) (*manifest.VersionDescriptor, error)
}

// Resolver turns a descriptor into an artifact set.
type Resolver interface {
	Resolve(ctx context.Context, d *manifest.VersionDescriptor) (*resolve.ArtifactSet, error)
}

// Acquirer brings an artifact set onto disk.
type Acquirer interface {
	Acquire(ctx context.Context, set *resolve.ArtifactSet, sink progress.Sink) (*acquire.Result, error)
}

// RuntimeFinder picks a Java executable for a required major version.
type RuntimeFinder interface {
	FindCompatible(ctx context.Context, major int, strict bool) (string, bool)
}

// Runner spawns and observes the game process.
type Runner interface {
	Run(ctx context.Context, cmd supervise.Command, m *supervise.Machine) (*supervise.Outcome, error)
}

// =============================================================================
// Launcher
// =============================================================================

// Request describes one launch.
type Request struct {
	Version string          `json:"version"`
	Profile profile.Profile `json:"profile"`
	// JavaPath skips runtime matching when set.
	JavaPath string `json:"java_path,omitempty"`
}

// Result is a successful launch.
type Result struct {
	Java     string
	Command  supervise.Command
	Set      *resolve.ArtifactSet
	Acquired *acquire.Result
	Outcome  *supervise.Outcome
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithResolver replaces the artifact resolver.
func WithResolver(r Resolver) Option { return func(l *Launcher) { l.resolver = r } }

// WithAcquirer replaces the acquisition scheduler.
func WithAcquirer(a Acquirer) Option { return func(l *Launcher) { l.acquirer = a } }

// WithRuntimeFinder replaces the Java runtime matcher.
func WithRuntimeFinder(f RuntimeFinder) Option { return func(l *Launcher) { l.runtimes = f } }

// WithRunner replaces the process supervisor.
func WithRunner(r Runner) Option { return func(l *Launcher) { l.runner = r } }

// WithHistory records every attempt in s.
func WithHistory(s history.Store) Option { return func(l *Launcher) { l.history = s } }

// WithPlatform sets the platform used for the Java fallback and classpath.
func WithPlatform(p platform.Platform) Option { return func(l *Launcher) { l.platform = p } }

// WithEventBuffer sets the progress channel buffer size.
func WithEventBuffer(n int) Option { return func(l *Launcher) { l.buffer = n } }

// WithLogger sets the logger.
func WithLogger(lg *log.Logger) Option { return func(l *Launcher) { l.logger = lg } }

// Launcher runs launch attempts, one at a time.
type Launcher struct {
	layout   layout.Layout
	catalog  Catalog
	resolver Resolver
	acquirer Acquirer
	runtimes RuntimeFinder
	runner   Runner
	history  history.Store
	platform platform.Platform
	buffer   int
	logger   *log.Logger

	running atomic.Bool
	current atomic.Pointer[Attempt]
	errSlot ErrorSlot
}

// New creates a launcher for the installation at l. Collaborators that are
// not supplied as options are built with their defaults.
func New(l layout.Layout, c Catalog, opts ...Option) *Launcher {
	ln := &Launcher{
		layout:   l,
		catalog:  c,
		platform: platform.Current(),
		buffer:   64,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(ln)
	}
	var f *fetch.Fetcher
	fetcher := func() *fetch.Fetcher {
		if f == nil {
			f = fetch.New(fetch.WithLogger(ln.logger))
		}
		return f
	}
	if ln.resolver == nil {
		ln.resolver = resolve.NewResolver(l, fetcher(), resolve.WithPlatform(ln.platform), resolve.WithLogger(ln.logger))
	}
	if ln.acquirer == nil {
		ln.acquirer = acquire.NewScheduler(fetcher(), acquire.WithLogger(ln.logger))
	}
	if ln.runtimes == nil {
		ln.runtimes = jvm.NewMatcher(jvm.WithPlatform(ln.platform), jvm.WithLogger(ln.logger))
	}
	if ln.runner == nil {
		ln.runner = supervise.New(supervise.WithLogger(ln.logger))
	}
	if ln.history == nil {
		ln.history = history.NewNullStore()
	}
	return ln
}

// Errors returns the launcher's error slot.
func (l *Launcher) Errors() *ErrorSlot { return &l.errSlot }

// Running reports whether an attempt is in flight.
func (l *Launcher) Running() bool { return l.running.Load() }

// Current returns the latest attempt, or nil before the first launch.
func (l *Launcher) Current() *Attempt { return l.current.Load() }

// Launch validates req and starts an attempt. It returns ErrLaunchInProgress
// while another attempt is running. The attempt keeps running after ctx is
// cancelled only where noted by the acquisition and supervision packages.
func (l *Launcher) Launch(ctx context.Context, req Request) (*Attempt, error) {
	if err := errs.ValidateVersionID(req.Version); err != nil {
		return nil, err
	}
	if err := req.Profile.Validate(); err != nil {
		return nil, err
	}
	if !l.running.CompareAndSwap(false, true) {
		return nil, ErrLaunchInProgress
	}

	a := &Attempt{
		ID:        uuid.NewString(),
		Version:   req.Version,
		Username:  req.Profile.Username,
		StartedAt: time.Now(),
		reporter:  progress.NewReporter(l.buffer),
		done:      make(chan struct{}),
	}
	l.current.Store(a)
	l.logger.Info("launch requested", "attempt", a.ID, "version", req.Version, "username", req.Profile.Username)

	go l.run(ctx, a, req)
	return a, nil
}

func (l *Launcher) run(ctx context.Context, a *Attempt, req Request) {
	m := supervise.NewMachine(a.reporter)
	res, err := l.attempt(ctx, m, req)
	if err != nil {
		if !supervise.IsTerminal(m.State()) {
			m.Fail(err)
			observability.Launch().OnOutcome(ctx, req.Version, m.State().String(), time.Since(a.StartedAt), err)
		}
		l.errSlot.Set(err)
		l.logger.Error("launch failed", "attempt", a.ID, "state", m.State(), "err", err)
	}

	rec := history.Record{
		ID:        a.ID,
		Version:   req.Version,
		Username:  req.Profile.Username,
		StartedAt: a.StartedAt,
		Duration:  time.Since(a.StartedAt),
		Outcome:   m.State().String(),
	}
	if res != nil {
		rec.Java = res.Java
	}
	if err != nil {
		rec.Error = err.Error()
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	if herr := l.history.Append(hctx, rec); herr != nil {
		l.logger.Warn("could not record launch", "attempt", a.ID, "err", herr)
	}
	cancel()

	a.finish(m.State(), res, err)
	l.running.Store(false)
	a.reporter.Close()
	close(a.done)
}

// attempt drives the state machine up to a confirmed launch.
func (l *Launcher) attempt(ctx context.Context, m *supervise.Machine, req Request) (*Result, error) {
	if err := m.Transition(supervise.Preparing, "Fetching version data for "+req.Version); err != nil {
		return nil, err
	}

	descriptorURL, err := l.catalog.DescriptorURL(ctx, req.Version)
	if err != nil {
		if errors.Is(err, manifest.ErrVersionNotFound) {
			return nil, errs.Wrap(errs.ErrCodeVersionNotFound, err, "unknown version %s", req.Version)
		}
		return nil, errs.Wrap(errs.ErrCodeResolution, err, "find version %s", req.Version)
	}
	d, err := l.catalog.Descriptor(ctx, descriptorURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeResolution, err, "fetch descriptor for %s", req.Version)
	}
	if d.ID == "" {
		d.ID = req.Version
	}

	set, err := l.resolver.Resolve(ctx, d)
	if err != nil {
		return nil, err
	}

	sink := &stateSink{m: m}
	acquired, err := l.acquirer.Acquire(ctx, set, sink)
	if err != nil {
		return nil, err
	}
	if err := sink.advance(supervise.AssetsReady); err != nil {
		return nil, err
	}
	if n := len(acquired.Failed); n > 0 {
		l.logger.Warn("some artifacts could not be acquired", "version", set.VersionID, "failed", n)
	}

	java := l.selectJava(ctx, req, set.Runtime)
	if err := m.Transition(supervise.JavaValidated, "Using Java: "+java); err != nil {
		return nil, err
	}

	cmd := supervise.BuildCommand(supervise.LaunchSpec{
		Java:       java,
		VersionID:  set.VersionID,
		MainClass:  set.MainClass,
		Username:   req.Profile.Username,
		JVMArgs:    req.Profile.Args(),
		Classpath:  acquired.Classpath,
		NativesDir: acquired.NativesDir,
		GameDir:    l.layout.GameDir(),
		AssetsDir:  acquired.AssetsDir,
		AssetIndex: set.Index.ID,
		Platform:   l.platform,
	})
	l.logger.Debug("built command", "command", cmd.String())
	if err := m.Transition(supervise.ArgumentsBuilt, "Prepared launch arguments"); err != nil {
		return nil, err
	}

	out, err := l.runner.Run(ctx, cmd, m)
	return &Result{Java: java, Command: cmd, Set: set, Acquired: acquired, Outcome: out}, err
}

// selectJava honors an explicit path, then the matcher, then falls back to
// the bare executable name.
func (l *Launcher) selectJava(ctx context.Context, req Request, need manifest.Requirement) string {
	if req.JavaPath != "" {
		return req.JavaPath
	}
	if exe, ok := l.runtimes.FindCompatible(ctx, need.Major, need.Strict); ok {
		return exe
	}
	exe := l.platform.JavaExecutable()
	l.logger.Warn("no compatible Java found, falling back to PATH",
		"required", need.Major,
		"strict", need.Strict,
		"code", errs.ErrCodeRuntimeNotFound,
		"java", exe)
	return exe
}

// stateSink forwards acquisition progress and moves the machine through the
// acquisition states as the stages advance.
type stateSink struct {
	mu sync.Mutex
	m  *supervise.Machine
}

var acquisitionStates = []struct {
	stage progress.Stage
	state supervise.State
	msg   string
}{
	{progress.ExtractingNatives, supervise.LibrariesReady, "Libraries ready"},
	{progress.PreparingAssets, supervise.NativesReady, "Natives extracted"},
	{progress.AssetLoadComplete, supervise.AssetsReady, "Required assets ready"},
}

func (s *stateSink) Report(p progress.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range acquisitionStates {
		if p.Stage >= a.stage {
			_ = s.advanceLocked(a.state)
		}
	}
	s.m.Report(p)
}

func (s *stateSink) advance(to supervise.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(to)
}

func (s *stateSink) advanceLocked(to supervise.State) error {
	for _, a := range acquisitionStates {
		if a.state > to {
			break
		}
		if s.m.State() < a.state {
			if err := s.m.Transition(a.state, a.msg); err != nil {
				return fmt.Errorf("advance to %s: %w", a.state, err)
			}
		}
	}
	return nil
}
