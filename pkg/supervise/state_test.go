package supervise

import (
	"errors"
	"sync"
	"testing"

	"github.com/matzehuels/craftlaunch/pkg/progress"
)

type recorder struct {
	mu     sync.Mutex
	events []progress.Progress
}

func (r *recorder) Report(p progress.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *recorder) stages() []progress.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Stage, len(r.events))
	for i, e := range r.events {
		out[i] = e.Stage
	}
	return out
}

func (r *recorder) last() progress.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

var happyPath = []State{Preparing, LibrariesReady, NativesReady, AssetsReady, JavaValidated, ArgumentsBuilt, Spawned, EarlyRunning, Confirmed}

func TestMachineHappyPath(t *testing.T) {
	rec := &recorder{}
	m := NewMachine(rec)
	for _, s := range happyPath {
		if err := m.Transition(s, s.String()); err != nil {
			t.Fatalf("Transition(%v): %v", s, err)
		}
	}
	if m.State() != Confirmed || !IsTerminal(m.State()) {
		t.Errorf("State() = %v", m.State())
	}
	stages := rec.stages()
	for i := 1; i < len(stages); i++ {
		if stages[i] < stages[i-1] {
			t.Errorf("stage decreased at %d: %v", i, stages)
		}
	}
	if stages[len(stages)-1] != progress.Complete {
		t.Errorf("last stage = %v", stages[len(stages)-1])
	}
}

func TestMachineRejectsSkips(t *testing.T) {
	tests := []struct {
		name string
		path []State
		next State
	}{
		{"skip to spawned", []State{Preparing}, Spawned},
		{"confirm before running", []State{Preparing, LibrariesReady, NativesReady, AssetsReady, JavaValidated, ArgumentsBuilt, Spawned}, Confirmed},
		{"crash before spawn", []State{Preparing}, Crashed},
		{"back to idle", []State{Preparing}, Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(nil)
			for _, s := range tt.path {
				if err := m.Transition(s, ""); err != nil {
					t.Fatal(err)
				}
			}
			before := m.State()
			if err := m.Transition(tt.next, ""); err == nil {
				t.Errorf("Transition(%v) from %v succeeded", tt.next, before)
			}
			if m.State() != before {
				t.Errorf("state changed to %v", m.State())
			}
		})
	}
}

func TestMachineFail(t *testing.T) {
	boom := errors.New("boom")

	rec := &recorder{}
	m := NewMachine(rec)
	_ = m.Transition(Preparing, "")
	if got := m.Fail(boom); got != LaunchFailed {
		t.Errorf("Fail before spawn = %v, want LaunchFailed", got)
	}
	if last := rec.last(); last.Stage != progress.Complete || last.Message != "boom" {
		t.Errorf("last event = %+v", last)
	}
	if !errors.Is(m.Err(), boom) {
		t.Errorf("Err() = %v", m.Err())
	}

	m = NewMachine(nil)
	for _, s := range happyPath[:7] {
		_ = m.Transition(s, "")
	}
	if got := m.Fail(boom); got != Crashed {
		t.Errorf("Fail after spawn = %v, want Crashed", got)
	}
	if got := m.Fail(errors.New("again")); got != Crashed {
		t.Errorf("second Fail = %v", got)
	}
	if !errors.Is(m.Err(), boom) {
		t.Errorf("first error must be kept, got %v", m.Err())
	}
}

func TestStateString(t *testing.T) {
	if EarlyRunning.String() != "early-running" {
		t.Errorf("String() = %q", EarlyRunning.String())
	}
	if State(42).String() != "state(42)" {
		t.Errorf("String() = %q", State(42).String())
	}
}
