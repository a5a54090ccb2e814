package launch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/craftlaunch/pkg/errors"
	"github.com/matzehuels/craftlaunch/pkg/fetch"
	"github.com/matzehuels/craftlaunch/pkg/history"
	"github.com/matzehuels/craftlaunch/pkg/layout"
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/platform"
	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/progress"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

const iconHash = "cc33cc33cc33cc33cc33cc33cc33cc33cc33cc33"

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"versions":[{"id":"1.20.4","type":"release","url":"%s/v/1.20.4.json"}]}`, srv.URL)
	})
	mux.HandleFunc("/v/1.20.4.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"id": "1.20.4",
			"mainClass": "net.minecraft.client.main.Main",
			"downloads": {"client": {"url": "%[1]s/client.jar"}},
			"assetIndex": {"id": "12", "url": "%[1]s/index.json"},
			"javaVersion": {"component": "java-runtime-gamma", "majorVersion": 17},
			"libraries": [{"name": "com.example:lib:1", "downloads": {"artifact": {"path": "com/example/lib.jar", "url": "%[1]s/lib.jar"}}}]
		}`, srv.URL)
	})
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"objects": {"icons/icon_16x16.png": {"hash": "%s", "size": 4}}}`, iconHash)
	})
	mux.HandleFunc("/objects/cc/"+iconHash, func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("icon")) })
	mux.HandleFunc("/client.jar", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("client")) })
	mux.HandleFunc("/lib.jar", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("lib")) })
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fakeRuntimes struct {
	path string
	got  []int
}

func (f *fakeRuntimes) FindCompatible(_ context.Context, major int, strict bool) (string, bool) {
	f.got = append(f.got, major)
	return f.path, f.path != ""
}

// fakeRunner confirms the launch without spawning anything, or fails with err.
type fakeRunner struct {
	cmd     supervise.Command
	err     error
	release chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, cmd supervise.Command, m *supervise.Machine) (*supervise.Outcome, error) {
	f.cmd = cmd
	if f.release != nil {
		<-f.release
	}
	if err := m.Transition(supervise.Spawned, "started"); err != nil {
		return nil, err
	}
	if f.err != nil {
		m.Fail(f.err)
		return nil, f.err
	}
	_ = m.Transition(supervise.EarlyRunning, "running")
	_ = m.Transition(supervise.Confirmed, "confirmed")
	return &supervise.Outcome{State: supervise.Confirmed, PID: 4242}, nil
}

type env struct {
	layout   layout.Layout
	runtimes *fakeRuntimes
	runner   *fakeRunner
	history  *history.FileStore
	launcher *Launcher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := newUpstream(t)
	l := layout.New(t.TempDir())
	e := &env{
		layout:   l,
		runtimes: &fakeRuntimes{path: "/opt/jdk17/bin/java"},
		runner:   &fakeRunner{},
		history:  history.NewFileStore(l.History()),
	}
	logger := log.New(os.Stderr)
	e.launcher = New(l, manifest.NewCatalog(srv.URL+"/manifest.json", nil),
		WithPlatform(platform.Linux),
		WithResolver(resolve.NewResolver(l, fetch.New(),
			resolve.WithPlatform(platform.Linux),
			resolve.WithResourcesURL(srv.URL+"/objects"))),
		WithRuntimeFinder(e.runtimes),
		WithRunner(e.runner),
		WithHistory(e.history),
		WithLogger(logger),
	)
	return e
}

func drain(a *Attempt) []progress.Progress {
	var events []progress.Progress
	for p := range a.Events() {
		events = append(events, p)
	}
	return events
}

func waitAttempt(t *testing.T, a *Attempt) (*Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Wait(ctx)
}

func TestLaunchEndToEnd(t *testing.T) {
	e := newEnv(t)
	a, err := e.launcher.Launch(context.Background(), Request{Version: "1.20.4", Profile: profile.New("Steve", "-Xmx3G")})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	events := drain(a)
	res, err := waitAttempt(t, a)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}

	if a.State() != supervise.Confirmed {
		t.Errorf("State() = %v", a.State())
	}
	for i := 1; i < len(events); i++ {
		if events[i].Stage < events[i-1].Stage {
			t.Fatalf("stage went backwards at %d: %v -> %v", i, events[i-1].Stage, events[i].Stage)
		}
	}
	if last := events[len(events)-1]; last.Stage != progress.Complete {
		t.Errorf("last event = %+v", last)
	}

	if !slices.Equal(e.runtimes.got, []int{17}) {
		t.Errorf("runtime lookups = %v, want [17]", e.runtimes.got)
	}
	if res.Java != "/opt/jdk17/bin/java" || e.runner.cmd.Path != res.Java {
		t.Errorf("java = %q, cmd path = %q", res.Java, e.runner.cmd.Path)
	}
	args := e.runner.cmd.Args
	if !slices.Contains(args, "-Xmx3G") || slices.Contains(args, "-Xmx2G") {
		t.Errorf("profile JVM args not applied: %q", args)
	}
	i := slices.Index(args, "-cp")
	want := e.layout.Library("com/example/lib.jar") + ":" + e.layout.ClientJar("1.20.4")
	if i < 0 || args[i+1] != want {
		t.Errorf("classpath = %q, want %q", args[i+1], want)
	}

	for _, p := range []string{e.layout.ClientJar("1.20.4"), e.layout.Object("objects/cc/" + iconHash)} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s on disk: %v", filepath.Base(p), err)
		}
	}

	recs, _ := e.history.Recent(context.Background(), 0)
	if len(recs) != 1 || recs[0].ID != a.ID || recs[0].Outcome != "confirmed" || recs[0].Java != res.Java {
		t.Errorf("history = %+v", recs)
	}
	if e.launcher.Running() {
		t.Error("launcher still marked running")
	}
	if err := e.launcher.Errors().Take(); err != nil {
		t.Errorf("error slot = %v", err)
	}
}

func TestLaunchInProgress(t *testing.T) {
	e := newEnv(t)
	e.runner.release = make(chan struct{})

	a, err := e.launcher.Launch(context.Background(), Request{Version: "1.20.4", Profile: profile.New("Steve", "")})
	if err != nil {
		t.Fatal(err)
	}
	go drain(a)

	_, err = e.launcher.Launch(context.Background(), Request{Version: "1.20.4", Profile: profile.New("Alex", "")})
	if !errors.Is(err, ErrLaunchInProgress) || !errs.Is(err, errs.ErrCodeBusy) {
		t.Errorf("second Launch error = %v, want ErrLaunchInProgress", err)
	}

	close(e.runner.release)
	if _, err := waitAttempt(t, a); err != nil {
		t.Fatal(err)
	}
	b, err := e.launcher.Launch(context.Background(), Request{Version: "1.20.4", Profile: profile.New("Alex", "")})
	if err != nil {
		t.Fatalf("Launch after completion: %v", err)
	}
	go drain(b)
	_, _ = waitAttempt(t, b)
}

func TestLaunchUnknownVersion(t *testing.T) {
	e := newEnv(t)
	a, err := e.launcher.Launch(context.Background(), Request{Version: "9.9.9", Profile: profile.New("Steve", "")})
	if err != nil {
		t.Fatal(err)
	}
	events := drain(a)
	_, err = waitAttempt(t, a)
	if !errs.Is(err, errs.ErrCodeVersionNotFound) {
		t.Fatalf("err = %v, want VERSION_NOT_FOUND", err)
	}
	if a.State() != supervise.LaunchFailed {
		t.Errorf("State() = %v", a.State())
	}
	if last := events[len(events)-1]; last.Stage != progress.Complete || last.Message != err.Error() {
		t.Errorf("last event = %+v", last)
	}
	if e.runner.cmd.Path != "" {
		t.Error("runner must not be called after a resolution failure")
	}

	if got := e.launcher.Errors().Take(); !errors.Is(got, err) {
		t.Errorf("Take() = %v", got)
	}
	if got := e.launcher.Errors().Take(); got != nil {
		t.Errorf("second Take() = %v, want nil", got)
	}
	recs, _ := e.history.Recent(context.Background(), 0)
	if len(recs) != 1 || recs[0].Outcome != "launch-failed" || recs[0].Error == "" {
		t.Errorf("history = %+v", recs)
	}
}

func TestLaunchEarlyExit(t *testing.T) {
	e := newEnv(t)
	e.runner.err = &errs.EarlyExitError{ExitCode: 1, Message: "Minecraft crashed during startup with code 1"}
	a, err := e.launcher.Launch(context.Background(), Request{Version: "1.20.4", Profile: profile.New("Steve", "")})
	if err != nil {
		t.Fatal(err)
	}
	go drain(a)
	_, err = waitAttempt(t, a)
	if errs.CodeOf(err) != errs.ErrCodeEarlyExit {
		t.Fatalf("err = %v", err)
	}
	if a.State() != supervise.Crashed {
		t.Errorf("State() = %v", a.State())
	}
}

func TestLaunchJavaFallback(t *testing.T) {
	e := newEnv(t)
	e.runtimes.path = ""
	a, _ := e.launcher.Launch(context.Background(), Request{Version: "1.20.4", Profile: profile.New("Steve", "")})
	go drain(a)
	res, err := waitAttempt(t, a)
	if err != nil {
		t.Fatal(err)
	}
	if res.Java != "java" {
		t.Errorf("Java = %q, want bare executable", res.Java)
	}
}

func TestLaunchJavaOverride(t *testing.T) {
	e := newEnv(t)
	a, _ := e.launcher.Launch(context.Background(), Request{Version: "1.20.4", Profile: profile.New("Steve", ""), JavaPath: "/custom/java"})
	go drain(a)
	res, err := waitAttempt(t, a)
	if err != nil {
		t.Fatal(err)
	}
	if res.Java != "/custom/java" || len(e.runtimes.got) != 0 {
		t.Errorf("Java = %q, lookups = %v", res.Java, e.runtimes.got)
	}
}

func TestLaunchValidatesRequest(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		req  Request
	}{
		{"traversal version", Request{Version: "../1.20", Profile: profile.New("Steve", "")}},
		{"empty username", Request{Version: "1.20.4", Profile: profile.New("", "")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.launcher.Launch(context.Background(), tt.req); err == nil {
				t.Error("Launch accepted an invalid request")
			}
			if e.launcher.Running() {
				t.Error("rejected request left the launcher running")
			}
		})
	}
}

func TestErrorSlotLastWins(t *testing.T) {
	var s ErrorSlot
	s.Set(errors.New("first"))
	s.Set(nil)
	s.Set(errors.New("second"))
	if got := s.Peek(); got == nil || got.Error() != "second" {
		t.Errorf("Peek() = %v", got)
	}
	if got := s.Take(); got == nil || got.Error() != "second" {
		t.Errorf("Take() = %v", got)
	}
	if got := s.Take(); got != nil {
		t.Errorf("Take() after clear = %v", got)
	}
}
