// Package resolve turns a version descriptor into the concrete set of
// artifacts that must exist locally before the game can start.
//
// Resolution consults [ShouldInclude] for every library, fetches the asset
// index document (the only network access of this package), and emits one
// fetch task per library, native bundle, and asset object. Failing to fetch
// or parse the asset index is fatal; everything else is deferred to
// acquisition, where failures are per item.
package resolve

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/craftlaunch/pkg/errors"
	"github.com/matzehuels/craftlaunch/pkg/fetch"
	"github.com/matzehuels/craftlaunch/pkg/layout"
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/observability"
	"github.com/matzehuels/craftlaunch/pkg/platform"
)

// DefaultResourcesURL is the content-addressed asset object store.
const DefaultResourcesURL = "https://resources.download.minecraft.net"

// Fetcher is the fetch primitive the resolver needs for the asset index.
type Fetcher interface {
	Fetch(ctx context.Context, t fetch.Task) (bool, error)
}

// ArtifactSet is everything a version needs on disk.
type ArtifactSet struct {
	VersionID string               `json:"version" yaml:"version"`
	MainClass string               `json:"main_class" yaml:"main_class"`
	Client    fetch.Task           `json:"client" yaml:"client"`
	Libraries []fetch.Task         `json:"libraries" yaml:"libraries"`
	Natives   []Native             `json:"natives" yaml:"natives"`
	Index     IndexInfo            `json:"asset_index" yaml:"asset_index"`
	Assets    []Asset              `json:"assets" yaml:"assets"`
	Layout    layout.Layout        `json:"-" yaml:"-"`
	Runtime   manifest.Requirement `json:"runtime" yaml:"runtime"`
}

// Native is a native bundle and the archive entries to leave out when it is
// unpacked.
type Native struct {
	Task    fetch.Task `json:"task" yaml:"task"`
	Exclude []string   `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Asset is one asset object plus the virtual path used for mirroring.
type Asset struct {
	Task        fetch.Task `json:"task" yaml:"task"`
	VirtualPath string     `json:"virtual_path" yaml:"virtual_path"`
}

// IndexInfo describes the asset index of the set.
type IndexInfo struct {
	ID     string `json:"id" yaml:"id"`
	Path   string `json:"path" yaml:"path"`
	Mirror Mirror `json:"mirror" yaml:"mirror"`
}

// NativesDir is where native bundles are unpacked.
func (s *ArtifactSet) NativesDir() string { return s.Layout.NativesDir(s.VersionID) }

// AssetsDir is the directory passed to the game as --assetsDir: the legacy
// mirror for legacy indexes, the assets root otherwise.
func (s *ArtifactSet) AssetsDir() string {
	if s.Index.Mirror == MirrorLegacy {
		return s.Layout.Legacy()
	}
	return s.Layout.Assets()
}

// Classpath lists the library files in resolution order, then the client
// archive.
func (s *ArtifactSet) Classpath() []string {
	cp := make([]string, 0, len(s.Libraries)+1)
	for _, l := range s.Libraries {
		cp = append(cp, l.Dest)
	}
	return append(cp, s.Client.Dest)
}

// Len returns the total number of tasks in the set.
func (s *ArtifactSet) Len() int {
	return 1 + len(s.Libraries) + len(s.Natives) + len(s.Assets)
}

// Resolver builds artifact sets for one platform and base directory.
type Resolver struct {
	layout       layout.Layout
	fetcher      Fetcher
	platform     platform.Platform
	arch         string
	resourcesURL string
	logger       *log.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPlatform overrides the detected platform.
func WithPlatform(p platform.Platform) Option {
	return func(r *Resolver) { r.platform = p }
}

// WithArch overrides the "${arch}" expansion ("32" or "64").
func WithArch(arch string) Option {
	return func(r *Resolver) { r.arch = arch }
}

// WithResourcesURL sets the asset object store base URL.
func WithResourcesURL(u string) Option {
	return func(r *Resolver) {
		if u != "" {
			r.resourcesURL = strings.TrimRight(u, "/")
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver writing into l.
func NewResolver(l layout.Layout, f Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		layout:       l,
		fetcher:      f,
		platform:     platform.Current(),
		arch:         platform.Arch(),
		resourcesURL: DefaultResourcesURL,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve enumerates the artifacts of d. The asset index is fetched to
// assets/indexes/<id>.json if absent; a failure there is a resolution error.
func (r *Resolver) Resolve(ctx context.Context, d *manifest.VersionDescriptor) (*ArtifactSet, error) {
	set, err := r.resolve(ctx, d)
	if err != nil {
		observability.Launch().OnResolveComplete(ctx, d.ID, 0, 0, 0, err)
		return nil, err
	}
	observability.Launch().OnResolveComplete(ctx, d.ID, len(set.Libraries), len(set.Natives), len(set.Assets), nil)
	r.logger.Info("resolved artifacts",
		"version", d.ID,
		"libraries", len(set.Libraries),
		"natives", len(set.Natives),
		"assets", len(set.Assets),
		"mirror", set.Index.Mirror)
	return set, nil
}

func (r *Resolver) resolve(ctx context.Context, d *manifest.VersionDescriptor) (*ArtifactSet, error) {
	if err := errs.ValidateVersionID(d.ID); err != nil {
		return nil, err
	}
	set := &ArtifactSet{
		VersionID: d.ID,
		MainClass: d.MainClass,
		Layout:    r.layout,
		Runtime:   d.Runtime(),
		Client: fetch.Task{
			URL:  d.Downloads.Client.URL,
			Dest: r.layout.ClientJar(d.ID),
			Name: d.ID + ".jar",
		},
	}
	r.libraries(d, set)

	assets, index, err := r.assets(ctx, d.AssetIndex)
	if err != nil {
		return nil, err
	}
	set.Assets = assets
	set.Index = index
	return set, nil
}

// libraries fills the library and native tasks of set in descriptor order.
func (r *Resolver) libraries(d *manifest.VersionDescriptor, set *ArtifactSet) {
	nativesDir := r.layout.NativesDir(d.ID)
	for _, lib := range d.Libraries {
		if !ShouldInclude(lib.Rules, r.platform) {
			r.logger.Debug("library excluded by rules", "library", lib.Name)
			continue
		}

		if a := lib.Artifact(); a != nil {
			if err := errs.ValidateRelativePath(a.Path); err != nil {
				r.logger.Warn("skipping library", "library", lib.Name, "error", err)
			} else {
				set.Libraries = append(set.Libraries, fetch.Task{
					URL:  a.URL,
					Dest: r.layout.Library(a.Path),
					Name: a.Path,
				})
			}
		}

		classifier, ok := lib.Natives[r.platform.Name()]
		if !ok || r.platform == platform.Unknown {
			continue
		}
		classifier = strings.ReplaceAll(classifier, "${arch}", r.arch)
		a := lib.Classifier(classifier)
		if a == nil {
			continue
		}
		if err := errs.ValidateRelativePath(a.Path); err != nil {
			r.logger.Warn("skipping native bundle", "library", lib.Name, "error", err)
			continue
		}
		set.Natives = append(set.Natives, Native{
			Task: fetch.Task{
				URL:  a.URL,
				Dest: filepath.Join(nativesDir, filepath.FromSlash(a.Path)),
				Name: a.Path,
			},
			Exclude: lib.ExcludePrefixes(),
		})
	}
}

// assets fetches and parses the asset index and emits one task per object.
// Objects are sorted by virtual path so the set is deterministic.
func (r *Resolver) assets(ctx context.Context, ref manifest.AssetIndexRef) ([]Asset, IndexInfo, error) {
	info := IndexInfo{ID: ref.ID, Mirror: MirrorFor(ref.ID)}
	if err := errs.ValidateVersionID(ref.ID); err != nil {
		return nil, info, errs.Wrap(errs.ErrCodeResolution, err, "invalid asset index id")
	}
	info.Path = r.layout.AssetIndex(ref.ID)

	task := fetch.Task{URL: ref.URL, Dest: info.Path, Name: ref.ID + ".json"}
	if _, err := r.fetcher.Fetch(ctx, task); err != nil {
		return nil, info, errs.Wrap(errs.ErrCodeResolution, err, "fetch asset index %s", ref.ID)
	}
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, info, errs.Wrap(errs.ErrCodeResolution, err, "read asset index %s", ref.ID)
	}
	idx, err := manifest.ParseAssetIndex(data)
	if err != nil {
		// Drop the corrupt copy so the next launch fetches it again.
		_ = os.Remove(info.Path)
		return nil, info, errs.Wrap(errs.ErrCodeResolution, err, "parse asset index %s", ref.ID)
	}

	paths := make([]string, 0, len(idx.Objects))
	for vp := range idx.Objects {
		paths = append(paths, vp)
	}
	sort.Strings(paths)

	assets := make([]Asset, 0, len(paths))
	for _, vp := range paths {
		obj := idx.Objects[vp]
		if err := errs.ValidateObjectHash(obj.Hash); err != nil {
			r.logger.Warn("skipping asset with malformed hash", "path", vp, "error", err)
			continue
		}
		storage := obj.StoragePath()
		assets = append(assets, Asset{
			Task: fetch.Task{
				URL:  r.resourcesURL + "/" + strings.TrimPrefix(storage, "objects/"),
				Dest: r.layout.Object(storage),
				Name: vp,
			},
			VirtualPath: vp,
		})
	}
	return assets, info, nil
}
