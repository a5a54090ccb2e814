// Package jvm locates installed Java runtimes and picks one that fits a
// version's requirement.
//
// Candidates come from four sources, searched in order: the platform's
// well-known install roots (with extra probing for exact Java 8 installs),
// JAVA_HOME, a recursive walk of the roots, and finally the bare executable
// name resolved through PATH. Each executable is probed once with
// `-version`; executables whose version cannot be parsed are skipped.
package jvm

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/craftlaunch/pkg/platform"
)

// probeWorkers bounds concurrent `java -version` processes.
const probeWorkers = 4

// java8Updates are the update numbers tried after each exact Java 8 prefix,
// newest first.
var java8Updates = []int{
	401, 361, 351, 333, 321, 311, 301, 291, 281, 271, 261, 251, 241, 231, 221,
	211, 202, 201, 191, 181, 171, 161, 151, 141, 131, 121, 111, 101, 91, 81,
	71, 65, 60, 51, 45, 40, 31, 25, 20, 11, 5,
}

// java8Markers identify Java 8 install directories by name.
var java8Markers = []string{"jre1.8", "jdk1.8", "jre8", "jdk8"}

// Candidate is one discovered runtime.
type Candidate struct {
	Path    string `json:"path"`
	Version string `json:"version"`
	Major   int    `json:"major"`
}

// Matcher searches for runtimes on one platform.
type Matcher struct {
	platform platform.Platform
	prober   Prober
	roots    []string
	getenv   func(string) string
	logger   *log.Logger

	mu    sync.Mutex
	cache map[string]Candidate // probed path -> result; Major 0 means unusable
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithPlatform overrides the detected platform.
func WithPlatform(p platform.Platform) Option {
	return func(m *Matcher) {
		m.platform = p
		m.roots = p.SearchRoots()
	}
}

// WithProber replaces the `java -version` prober.
func WithProber(p Prober) Option {
	return func(m *Matcher) { m.prober = p }
}

// WithRoots replaces the well-known install roots.
func WithRoots(roots ...string) Option {
	return func(m *Matcher) { m.roots = roots }
}

// WithGetenv replaces os.Getenv for the JAVA_HOME lookup.
func WithGetenv(getenv func(string) string) Option {
	return func(m *Matcher) { m.getenv = getenv }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Matcher) { m.logger = l }
}

// NewMatcher creates a matcher for the current platform.
func NewMatcher(opts ...Option) *Matcher {
	p := platform.Current()
	m := &Matcher{
		platform: p,
		prober:   ExecProber{},
		roots:    p.SearchRoots(),
		getenv:   os.Getenv,
		logger:   log.Default(),
		cache:    make(map[string]Candidate),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindCompatible returns a runtime for the required major version.
//
// Under strict matching only an exact major is accepted. Otherwise an exact
// match is preferred, then the smallest major above the requirement. The
// boolean is false when nothing fits; callers then fall back to the bare
// executable name.
func (m *Matcher) FindCompatible(ctx context.Context, major int, strict bool) (string, bool) {
	var above []Candidate
	consider := func(c Candidate) bool {
		switch {
		case c.Major == major:
			return true
		case !strict && c.Major > major:
			above = append(above, c)
		}
		return false
	}

	if strict && major == 8 {
		if c, ok := m.findJava8(ctx); ok {
			m.logger.Debug("found exact Java 8", "path", c.Path)
			return c.Path, true
		}
	}

	if c, ok := m.javaHome(ctx); ok && consider(c) {
		m.logger.Debug("found java in JAVA_HOME", "path", c.Path, "version", c.Version)
		return c.Path, true
	}

	for _, c := range m.walk(ctx, m.roots) {
		if consider(c) {
			m.logger.Debug("found exact java", "path", c.Path, "version", c.Version)
			return c.Path, true
		}
	}

	if len(above) > 0 {
		sort.SliceStable(above, func(i, j int) bool { return above[i].Major < above[j].Major })
		c := above[0]
		m.logger.Debug("found compatible java", "path", c.Path, "version", c.Version, "required", major)
		return c.Path, true
	}

	if c, ok := m.probe(ctx, m.platform.JavaExecutable()); ok && (c.Major == major || (!strict && c.Major > major)) {
		m.logger.Debug("using java from PATH", "version", c.Version)
		return c.Path, true
	}
	return "", false
}

// FindAll returns every runtime found in PATH, JAVA_HOME, and the roots,
// deduplicated by resolved path and sorted by ascending major version.
func (m *Matcher) FindAll(ctx context.Context) []Candidate {
	var all []Candidate
	seen := make(map[string]bool)
	add := func(c Candidate) {
		key := resolvedPath(c.Path)
		if seen[key] {
			return
		}
		seen[key] = true
		all = append(all, c)
	}

	if c, ok := m.probe(ctx, m.platform.JavaExecutable()); ok {
		add(c)
	}
	if c, ok := m.javaHome(ctx); ok {
		add(c)
	}
	for _, c := range m.walk(ctx, m.roots) {
		add(c)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Major < all[j].Major })
	return all
}

// findJava8 probes the exact Java 8 install locations: prefix+update
// directories, then directories under the roots (and extra drives) whose
// name marks them as Java 8.
func (m *Matcher) findJava8(ctx context.Context) (Candidate, bool) {
	for _, prefix := range m.platform.Java8Prefixes() {
		for _, update := range java8Updates {
			exe := m.exeIn(prefix + strconv.Itoa(update))
			if !isFile(exe) {
				continue
			}
			if c, ok := m.probe(ctx, exe); ok && c.Major == 8 {
				return c, true
			}
		}
	}

	dirs := append([]string(nil), m.roots...)
	for _, drive := range m.platform.ExtraDrives() {
		dirs = append(dirs,
			drive+`\Program Files\Java`,
			drive+`\Program Files (x86)\Java`)
	}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || !isJava8Name(e.Name()) {
				continue
			}
			for _, exe := range m.exesUnder(filepath.Join(dir, e.Name())) {
				if c, ok := m.probe(ctx, exe); ok && c.Major == 8 {
					return c, true
				}
			}
		}
	}
	return Candidate{}, false
}

// javaHome probes $JAVA_HOME/bin/<exe>.
func (m *Matcher) javaHome(ctx context.Context) (Candidate, bool) {
	home := m.getenv("JAVA_HOME")
	if home == "" {
		return Candidate{}, false
	}
	exe := m.exeIn(home)
	if !isFile(exe) {
		return Candidate{}, false
	}
	return m.probe(ctx, exe)
}

// walk recursively collects and probes every executable under roots.
// Results keep discovery order.
func (m *Matcher) walk(ctx context.Context, roots []string) []Candidate {
	var exes []string
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() && d.Name() == m.platform.JavaExecutable() {
				exes = append(exes, path)
			}
			return nil
		})
	}

	results := make([]Candidate, len(exes))
	found := make([]bool, len(exes))
	var g errgroup.Group
	g.SetLimit(probeWorkers)
	for i, exe := range exes {
		g.Go(func() error {
			results[i], found[i] = m.probe(ctx, exe)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Candidate, 0, len(exes))
	for i := range results {
		if found[i] {
			out = append(out, results[i])
		}
	}
	return out
}

// probe returns the candidate for exe, probing it at most once.
func (m *Matcher) probe(ctx context.Context, exe string) (Candidate, bool) {
	m.mu.Lock()
	c, ok := m.cache[exe]
	m.mu.Unlock()
	if ok {
		return c, c.Major > 0
	}

	c = Candidate{Path: exe}
	v, err := m.prober.Probe(ctx, exe)
	if err != nil {
		m.logger.Debug("java probe failed", "path", exe, "error", err)
	} else if major, ok := ParseMajor(v); ok {
		c.Version, c.Major = v, major
	} else {
		m.logger.Debug("unparseable java version", "path", exe, "version", v)
	}

	if ctx.Err() == nil {
		m.mu.Lock()
		m.cache[exe] = c
		m.mu.Unlock()
	}
	return c, c.Major > 0
}

// exeIn returns <dir>/bin/<exe>.
func (m *Matcher) exeIn(dir string) string {
	return filepath.Join(dir, "bin", m.platform.JavaExecutable())
}

// exesUnder lists the executables of an install directory: bin/<exe> and,
// for macOS bundles, Contents/Home/bin/<exe>.
func (m *Matcher) exesUnder(dir string) []string {
	var out []string
	for _, exe := range []string{m.exeIn(dir), m.exeIn(filepath.Join(dir, "Contents", "Home"))} {
		if isFile(exe) {
			out = append(out, exe)
		}
	}
	return out
}

func isJava8Name(name string) bool {
	for _, marker := range java8Markers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// resolvedPath follows symlinks so aliases of one install dedupe. Bare
// executable names are kept as given.
func resolvedPath(p string) string {
	if !strings.ContainsRune(p, filepath.Separator) && !strings.ContainsRune(p, '/') {
		return p
	}
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	return filepath.Clean(p)
}
