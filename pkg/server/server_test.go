package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/craftlaunch/pkg/acquire"
	"github.com/matzehuels/craftlaunch/pkg/history"
	"github.com/matzehuels/craftlaunch/pkg/jvm"
	"github.com/matzehuels/craftlaunch/pkg/launch"
	"github.com/matzehuels/craftlaunch/pkg/layout"
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/progress"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

type fakeCatalog struct{}

func (fakeCatalog) Versions(context.Context) (*manifest.VersionManifest, error) {
	return &manifest.VersionManifest{
		Latest: manifest.Latest{Release: "1.20.4"},
		Versions: []manifest.VersionInfo{
			{ID: "1.20.4", Type: "release", URL: "d/1.20.4"},
			{ID: "24w14a", Type: "snapshot", URL: "d/24w14a"},
		},
	}, nil
}

func (fakeCatalog) DescriptorURL(_ context.Context, id string) (string, error) {
	if id != "1.20.4" {
		return "", manifest.ErrVersionNotFound
	}
	return "d/" + id, nil
}

func (fakeCatalog) Descriptor(_ context.Context, u string) (*manifest.VersionDescriptor, error) {
	return &manifest.VersionDescriptor{ID: strings.TrimPrefix(u, "d/")}, nil
}

type fakeResolver struct{ layout layout.Layout }

func (f fakeResolver) Resolve(_ context.Context, d *manifest.VersionDescriptor) (*resolve.ArtifactSet, error) {
	return &resolve.ArtifactSet{VersionID: d.ID, Layout: f.layout, Runtime: d.Runtime()}, nil
}

type fakeAcquirer struct{}

func (fakeAcquirer) Acquire(_ context.Context, set *resolve.ArtifactSet, sink progress.Sink) (*acquire.Result, error) {
	sink.Report(progress.Progress{Stage: progress.AssetLoadComplete, Current: 1, Total: 1})
	return &acquire.Result{NativesDir: set.NativesDir(), AssetsDir: set.AssetsDir()}, nil
}

type fakeRuntimes struct{}

func (fakeRuntimes) FindCompatible(context.Context, int, bool) (string, bool) { return "/jdk/bin/java", true }

func (fakeRuntimes) FindAll(context.Context) []jvm.Candidate {
	return []jvm.Candidate{{Path: "/jdk8/bin/java", Version: "1.8.0_401", Major: 8}, {Path: "/jdk/bin/java", Version: "17.0.2", Major: 17}}
}

type fakeRunner struct {
	err     error
	release chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, _ supervise.Command, m *supervise.Machine) (*supervise.Outcome, error) {
	if f.release != nil {
		<-f.release
	}
	_ = m.Transition(supervise.Spawned, "started")
	if f.err != nil {
		m.Fail(f.err)
		return nil, f.err
	}
	_ = m.Transition(supervise.EarlyRunning, "running")
	_ = m.Transition(supervise.Confirmed, "confirmed")
	return &supervise.Outcome{State: supervise.Confirmed}, nil
}

type testServer struct {
	srv      *httptest.Server
	launcher *launch.Launcher
	runner   *fakeRunner
	history  *history.FileStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	l := layout.New(dir)
	profiles, err := profile.Open(l.Profiles())
	if err != nil {
		t.Fatal(err)
	}
	if err := profiles.Add(profile.New("Steve", "")); err != nil {
		t.Fatal(err)
	}
	ts := &testServer{runner: &fakeRunner{}, history: history.NewFileStore(filepath.Join(dir, "history.jsonl"))}
	logger := log.New(io.Discard)
	ts.launcher = launch.New(l, fakeCatalog{},
		launch.WithResolver(fakeResolver{layout: l}),
		launch.WithAcquirer(fakeAcquirer{}),
		launch.WithRuntimeFinder(fakeRuntimes{}),
		launch.WithRunner(ts.runner),
		launch.WithHistory(ts.history),
		launch.WithLogger(logger),
	)
	s := New(Deps{
		Launcher: ts.launcher,
		Versions: fakeCatalog{},
		Profiles: profiles,
		Runtimes: fakeRuntimes{},
		History:  ts.history,
	}, logger)
	ts.srv = httptest.NewServer(s.Handler())
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (ts *testServer) launch(t *testing.T, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.srv.URL+"/launch", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (ts *testServer) waitIdle(t *testing.T) {
	t.Helper()
	a := ts.launcher.Current()
	if a == nil {
		return
	}
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("launch did not finish")
	}
}

func TestListVersions(t *testing.T) {
	ts := newTestServer(t)
	var body struct {
		Latest   manifest.Latest        `json:"latest"`
		Versions []manifest.VersionInfo `json:"versions"`
	}
	if code := ts.get(t, "/versions?type=release", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Versions) != 1 || body.Versions[0].ID != "1.20.4" || body.Latest.Release != "1.20.4" {
		t.Errorf("body = %+v", body)
	}
}

func TestListProfilesAndJava(t *testing.T) {
	ts := newTestServer(t)
	var profiles []profile.Profile
	if code := ts.get(t, "/profiles", &profiles); code != http.StatusOK || len(profiles) != 1 || profiles[0].Username != "Steve" {
		t.Errorf("profiles = %d %+v", code, profiles)
	}
	var java []jvm.Candidate
	if code := ts.get(t, "/java", &java); code != http.StatusOK || len(java) != 2 || java[1].Major != 17 {
		t.Errorf("java = %d %+v", code, java)
	}
}

func TestLaunchFlow(t *testing.T) {
	ts := newTestServer(t)
	code, body := ts.launch(t, `{"version":"1.20.4","username":"Steve"}`)
	if code != http.StatusAccepted || body["id"] == "" {
		t.Fatalf("POST /launch = %d %v", code, body)
	}
	ts.waitIdle(t)

	var prog progressResponse
	ts.get(t, "/launch/progress", &prog)
	if prog.Running || prog.Stage != "complete" || prog.Percentage != 100 {
		t.Errorf("progress = %+v", prog)
	}
	if code := ts.get(t, "/launch/error", nil); code != http.StatusNoContent {
		t.Errorf("GET /launch/error = %d, want 204", code)
	}

	var records []history.Record
	ts.get(t, "/history?limit=5", &records)
	if len(records) != 1 || records[0].Outcome != "confirmed" {
		t.Errorf("history = %+v", records)
	}
}

func TestLaunchErrors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown profile", `{"version":"1.20.4","username":"Nobody"}`, http.StatusNotFound},
		{"invalid version", `{"version":"../x","username":"Steve"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, body := ts.launch(t, tt.body); code != tt.want {
				t.Errorf("status = %d, want %d (%v)", code, tt.want, body)
			}
		})
	}
}

func TestLaunchConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.runner.release = make(chan struct{})
	if code, _ := ts.launch(t, `{"version":"1.20.4","username":"Steve"}`); code != http.StatusAccepted {
		t.Fatalf("first launch = %d", code)
	}
	if code, _ := ts.launch(t, `{"version":"1.20.4","username":"Steve"}`); code != http.StatusConflict {
		t.Errorf("second launch = %d, want 409", code)
	}
	close(ts.runner.release)
	ts.waitIdle(t)
}

func TestLaunchErrorConsumedOnce(t *testing.T) {
	ts := newTestServer(t)
	ts.runner.err = errors.New("Minecraft crashed during startup with code 1")
	ts.launch(t, `{"version":"1.20.4","username":"Steve"}`)
	ts.waitIdle(t)

	var e errorResponse
	if code := ts.get(t, "/launch/error", &e); code != http.StatusOK {
		t.Fatalf("GET /launch/error = %d", code)
	}
	if !strings.HasPrefix(e.Message, "Minecraft exited with an error") || e.Details == "" {
		t.Errorf("error = %+v", e)
	}
	if code := ts.get(t, "/launch/error", nil); code != http.StatusNoContent {
		t.Errorf("second GET /launch/error = %d, want 204", code)
	}
}

func TestHistoryBadLimit(t *testing.T) {
	ts := newTestServer(t)
	if code := ts.get(t, "/history?limit=abc", nil); code != http.StatusBadRequest {
		t.Errorf("status = %d", code)
	}
}
