package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/progress"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

func update(t *testing.T, m LaunchModel, msg tea.Msg) (LaunchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	lm, ok := next.(LaunchModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return lm, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestLaunchModelProgress(t *testing.T) {
	events := make(chan progress.Progress, 4)
	m := newLaunchModel("1.20.1", "Steve", events, func() finishedMsg { return finishedMsg{} })

	m, cmd := update(t, m, progressMsg{Stage: progress.DownloadingLibraries, Current: 5, Total: 10, Message: "lib.jar"})
	if cmd == nil {
		t.Fatal("progress should schedule the next read")
	}
	first := m.Percent
	if first <= 0 || m.Latest.Message != "lib.jar" || m.Events != 1 {
		t.Fatalf("after first event: %+v", m)
	}

	// An event mapping to a lower percentage does not move the bar back.
	m, _ = update(t, m, progressMsg{Stage: progress.PreparingLibraries, Total: 10})
	if m.Percent != first {
		t.Errorf("Percent = %v, want %v", m.Percent, first)
	}

	view := m.View()
	for _, want := range []string{"1.20.1", "Steve", "preparing-libraries"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestLaunchModelReadsChannel(t *testing.T) {
	events := make(chan progress.Progress, 1)
	events <- progress.Progress{Stage: progress.ValidatingJava, Message: "java"}
	done := finishedMsg{state: supervise.Confirmed}
	m := newLaunchModel("1.20.1", "Steve", events, func() finishedMsg { return done })

	if msg := m.Init()(); msg != tea.Msg(progressMsg{Stage: progress.ValidatingJava, Message: "java"}) {
		t.Fatalf("first message = %#v", msg)
	}
	close(events)
	if msg := m.Init()(); msg != tea.Msg(done) {
		t.Fatalf("message after close = %#v, want finishedMsg", msg)
	}
}

func TestLaunchModelFinished(t *testing.T) {
	tests := []struct {
		name        string
		msg         finishedMsg
		wantPercent float64
	}{
		{"confirmed", finishedMsg{state: supervise.Confirmed}, 100},
		{"crashed", finishedMsg{state: supervise.Crashed, err: errors.New("boom")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newLaunchModel("1.8.9", "Alex", nil, nil)
			m, cmd := update(t, m, tt.msg)
			if !isQuit(cmd) {
				t.Error("finish should quit the program")
			}
			if !m.Finished || m.State != tt.msg.state || m.Err != tt.msg.err {
				t.Errorf("model = %+v", m)
			}
			if m.Percent != tt.wantPercent {
				t.Errorf("Percent = %v, want %v", m.Percent, tt.wantPercent)
			}
		})
	}
}

func TestLaunchModelAbort(t *testing.T) {
	m := newLaunchModel("1.8.9", "Alex", nil, nil)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.Aborted || !isQuit(cmd) {
		t.Errorf("q should abort and quit, got aborted=%v", m.Aborted)
	}
}

func TestRenderBar(t *testing.T) {
	for _, pct := range []float64{-5, 0, 42, 100, 150} {
		bar := renderBar(pct, 20)
		cells := strings.Count(bar, "█") + strings.Count(bar, "░")
		if cells != 20 {
			t.Errorf("renderBar(%v) has %d cells, want 20", pct, cells)
		}
	}
}

func TestProfileListModel(t *testing.T) {
	profiles := []profile.Profile{profile.New("Steve", ""), profile.New("Alex", "-Xmx1G")}
	var m tea.Model = NewProfileListModel(profiles)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	pm := m.(ProfileListModel)
	if pm.Selected == nil || pm.Selected.Username != "Alex" {
		t.Fatalf("Selected = %+v, want Alex", pm.Selected)
	}
	if !isQuit(cmd) {
		t.Error("enter should quit the picker")
	}
	if view := pm.View(); !strings.Contains(view, "-Xmx1G") {
		t.Errorf("View() missing JVM args: %q", view)
	}
}
