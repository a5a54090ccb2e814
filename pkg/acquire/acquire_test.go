package acquire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/craftlaunch/pkg/fetch"
	"github.com/matzehuels/craftlaunch/pkg/layout"
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/platform"
	"github.com/matzehuels/craftlaunch/pkg/progress"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
)

const (
	clickHash = "aa11aa11aa11aa11aa11aa11aa11aa11aa11aa11"
	musicHash = "bb22bb22bb22bb22bb22bb22bb22bb22bb22bb22"
)

type fixture struct {
	srv     *httptest.Server
	release chan struct{} // closed to let the background object through
	layout  layout.Layout
	natives []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		release: make(chan struct{}),
		layout:  layout.New(t.TempDir()),
		natives: buildZip(t, map[string]string{"META-INF/MANIFEST.MF": "x", "liblwjgl.so": "so"}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"objects": {
			"minecraft/sounds/ui/button/click.ogg": {"hash": "` + clickHash + `"},
			"minecraft/music/calm1.ogg": {"hash": "` + musicHash + `"}}}`))
	})
	mux.HandleFunc("/objects/aa/"+clickHash, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("click"))
	})
	mux.HandleFunc("/objects/bb/"+musicHash, func(w http.ResponseWriter, r *http.Request) {
		<-f.release
		w.Write([]byte("music"))
	})
	mux.HandleFunc("/lib/included.jar", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("included"))
	})
	mux.HandleFunc("/lib/excluded.jar", func(w http.ResponseWriter, r *http.Request) {
		t.Error("excluded library must not be requested")
	})
	mux.HandleFunc("/client.jar", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("client"))
	})
	mux.HandleFunc("/natives-linux.jar", func(w http.ResponseWriter, r *http.Request) {
		w.Write(f.natives)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		select {
		case <-f.release:
		default:
			close(f.release)
		}
		f.srv.Close()
	})
	return f
}

func (f *fixture) descriptor(indexID string) *manifest.VersionDescriptor {
	return &manifest.VersionDescriptor{
		ID:         "1.20.4",
		Downloads:  manifest.Downloads{Client: manifest.DownloadInfo{URL: f.srv.URL + "/client.jar"}},
		AssetIndex: manifest.AssetIndexRef{ID: indexID, URL: f.srv.URL + "/index.json"},
		Libraries: []manifest.Library{
			{
				Name: "included",
				Downloads: &manifest.LibraryDownloads{
					Artifact: &manifest.Artifact{Path: "com/example/included.jar", URL: f.srv.URL + "/lib/included.jar"},
				},
			},
			{
				Name:  "excluded",
				Rules: []manifest.Rule{{Action: "disallow"}},
				Downloads: &manifest.LibraryDownloads{
					Artifact: &manifest.Artifact{Path: "com/example/excluded.jar", URL: f.srv.URL + "/lib/excluded.jar"},
				},
			},
			{
				Name:    "lwjgl-platform",
				Natives: map[string]string{"linux": "natives-linux"},
				Extract: &manifest.Extract{Exclude: []string{"META-INF/"}},
				Downloads: &manifest.LibraryDownloads{
					Classifiers: map[string]manifest.Artifact{
						"natives-linux": {Path: "org/lwjgl/natives-linux.jar", URL: f.srv.URL + "/natives-linux.jar"},
					},
				},
			},
		},
	}
}

func (f *fixture) resolve(t *testing.T, indexID string) *resolve.ArtifactSet {
	t.Helper()
	r := resolve.NewResolver(f.layout, fetch.New(),
		resolve.WithPlatform(platform.Linux),
		resolve.WithResourcesURL(f.srv.URL+"/objects"))
	set, err := r.Resolve(context.Background(), f.descriptor(indexID))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return set
}

// recorder is a concurrency-safe progress sink.
type recorder struct {
	mu     sync.Mutex
	events []progress.Progress
}

func (r *recorder) Report(p progress.Progress) {
	r.mu.Lock()
	r.events = append(r.events, p)
	r.mu.Unlock()
}

func (r *recorder) stages() map[progress.Stage]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[progress.Stage]bool)
	for _, e := range r.events {
		seen[e.Stage] = true
	}
	return seen
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestAcquireTwoPhase(t *testing.T) {
	f := newFixture(t)
	set := f.resolve(t, "12")
	rec := &recorder{}

	res, err := NewScheduler(fetch.New()).Acquire(context.Background(), set, rec)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	// Library inclusion follows the rules.
	if !exists(f.layout.Library("com/example/included.jar")) {
		t.Error("included library missing")
	}
	if exists(f.layout.Library("com/example/excluded.jar")) {
		t.Error("excluded library should not be fetched")
	}
	wantCP := []string{f.layout.Library("com/example/included.jar"), f.layout.ClientJar("1.20.4")}
	if len(res.Classpath) != len(wantCP) || res.Classpath[0] != wantCP[0] || res.Classpath[1] != wantCP[1] {
		t.Errorf("Classpath = %v, want %v", res.Classpath, wantCP)
	}

	// Natives are extracted with the exclude policy.
	if !exists(filepath.Join(res.NativesDir, "liblwjgl.so")) {
		t.Error("native library not extracted")
	}
	if exists(filepath.Join(res.NativesDir, "META-INF", "MANIFEST.MF")) {
		t.Error("excluded native entry extracted")
	}

	// Phase 1 is complete on return; phase 2 is still blocked.
	if !exists(f.layout.Object("objects/aa/" + clickHash)) {
		t.Error("required asset should be present when Acquire returns")
	}
	if exists(f.layout.Object("objects/bb/" + musicHash)) {
		t.Error("background asset should not be present yet")
	}
	if res.Background == nil {
		t.Fatal("Background job should be started")
	}
	select {
	case <-res.Background.Done():
		t.Fatal("Background job finished while its object is blocked")
	default:
	}

	close(f.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := res.Background.Wait(ctx); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if !exists(f.layout.Object("objects/bb/" + musicHash)) {
		t.Error("background asset should be present after the job")
	}
	if res.Background.Err() != nil || res.Background.Stats().Fetched != 1 {
		t.Errorf("job stats = %+v, err = %v", res.Background.Stats(), res.Background.Err())
	}
	if res.Background.Progress() != res.Background.Total() {
		t.Errorf("job progress = %d/%d", res.Background.Progress(), res.Background.Total())
	}

	seen := rec.stages()
	for _, s := range []progress.Stage{progress.DownloadingLibraries, progress.ExtractingNatives, progress.DownloadingAssets, progress.AssetLoadComplete} {
		if !seen[s] {
			t.Errorf("stage %v not reported", s)
		}
	}
	if len(res.Failed) != 0 {
		t.Errorf("Failed = %v", res.Failed)
	}
}

func TestAcquireLegacyMirror(t *testing.T) {
	f := newFixture(t)
	close(f.release)
	set := f.resolve(t, "legacy")

	res, err := NewScheduler(fetch.New(), WithWorkers(2)).Acquire(context.Background(), set, nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if err := res.Background.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, vp := range []string{"minecraft/sounds/ui/button/click.ogg", "minecraft/music/calm1.ogg"} {
		if !exists(filepath.Join(f.layout.Legacy(), filepath.FromSlash(vp))) {
			t.Errorf("%s not mirrored into legacy tree", vp)
		}
	}
	if res.AssetsDir != f.layout.Legacy() {
		t.Errorf("AssetsDir = %q, want legacy dir", res.AssetsDir)
	}
	if exists(f.layout.Resources()) {
		t.Error("resources tree should not be created for legacy index")
	}
}

func TestAcquireNoMirrorForModernIndex(t *testing.T) {
	f := newFixture(t)
	close(f.release)
	set := f.resolve(t, "1.20")

	res, err := NewScheduler(fetch.New()).Acquire(context.Background(), set, nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	<-res.Background.Done()
	if exists(f.layout.Legacy()) || exists(f.layout.Resources()) {
		t.Error("no mirror tree should exist for index 1.20")
	}
}

func TestAcquireItemFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	close(f.release)
	set := f.resolve(t, "12")
	set.Libraries = append(set.Libraries, fetch.Task{
		URL:  f.srv.URL + "/lib/missing.jar",
		Dest: f.layout.Library("com/example/missing.jar"),
		Name: "com/example/missing.jar",
	})

	res, err := NewScheduler(fetch.New()).Acquire(context.Background(), set, nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0].Name != "com/example/missing.jar" {
		t.Fatalf("Failed = %v", res.Failed)
	}
	if !exists(f.layout.Library("com/example/included.jar")) || !exists(f.layout.ClientJar("1.20.4")) {
		t.Error("sibling artifacts should still be fetched")
	}
	if res.Stats.Failed != 1 {
		t.Errorf("Stats.Failed = %d", res.Stats.Failed)
	}
}

func TestAcquireRerunFetchesNothing(t *testing.T) {
	f := newFixture(t)
	close(f.release)
	set := f.resolve(t, "12")
	s := NewScheduler(fetch.New())

	first, err := s.Acquire(context.Background(), set, nil)
	if err != nil {
		t.Fatal(err)
	}
	<-first.Background.Done()

	second, err := s.Acquire(context.Background(), set, nil)
	if err != nil {
		t.Fatal(err)
	}
	<-second.Background.Done()
	if second.Stats.Fetched != 0 || second.Background.Stats().Fetched != 0 {
		t.Errorf("second run fetched %d + %d artifacts, want 0", second.Stats.Fetched, second.Background.Stats().Fetched)
	}
}

func TestJobProgressNeverDecreases(t *testing.T) {
	j := newJob(200)

	// Reports arrive out of order, as they do from concurrent workers.
	j.advance(5)
	j.advance(3)
	if got := j.Progress(); got != 5 {
		t.Fatalf("Progress() = %d after a stale report, want 5", got)
	}

	var wg sync.WaitGroup
	for n := 200; n >= 1; n-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.advance(n)
		}()
	}
	wg.Wait()
	if got := j.Progress(); got != 200 {
		t.Errorf("Progress() = %d, want 200", got)
	}
}
