package supervise

import (
	"fmt"
	"sync"

	"github.com/matzehuels/craftlaunch/pkg/progress"
)

// State is a phase of one launch attempt.
type State int

const (
	Idle State = iota
	Preparing
	LibrariesReady
	NativesReady
	AssetsReady
	JavaValidated
	ArgumentsBuilt
	Spawned
	EarlyRunning
	Confirmed
	Crashed
	LaunchFailed
)

var stateNames = [...]string{
	Idle:           "idle",
	Preparing:      "preparing",
	LibrariesReady: "libraries-ready",
	NativesReady:   "natives-ready",
	AssetsReady:    "assets-ready",
	JavaValidated:  "java-validated",
	ArgumentsBuilt: "arguments-built",
	Spawned:        "spawned",
	EarlyRunning:   "early-running",
	Confirmed:      "confirmed",
	Crashed:        "crashed",
	LaunchFailed:   "launch-failed",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// IsTerminal reports whether the state ends the attempt.
func IsTerminal(s State) bool {
	switch s {
	case Confirmed, Crashed, LaunchFailed:
		return true
	default:
		return false
	}
}

// stageOf is the progress stage announced on entering each state.
var stageOf = map[State]progress.Stage{
	Preparing:      progress.PreparingLibraries,
	LibrariesReady: progress.ExtractingNatives,
	NativesReady:   progress.PreparingAssets,
	AssetsReady:    progress.AssetLoadComplete,
	JavaValidated:  progress.ValidatingJava,
	ArgumentsBuilt: progress.BuildingArguments,
	Spawned:        progress.ProcessStarted,
	EarlyRunning:   progress.LaunchingGame,
	Confirmed:      progress.Complete,
	Crashed:        progress.Complete,
	LaunchFailed:   progress.Complete,
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case Idle:
		return to == Preparing
	case Preparing:
		return to == LibrariesReady || to == LaunchFailed
	case LibrariesReady:
		return to == NativesReady || to == LaunchFailed
	case NativesReady:
		return to == AssetsReady || to == LaunchFailed
	case AssetsReady:
		return to == JavaValidated || to == LaunchFailed
	case JavaValidated:
		return to == ArgumentsBuilt || to == LaunchFailed
	case ArgumentsBuilt:
		return to == Spawned || to == LaunchFailed
	case Spawned:
		return to == EarlyRunning || to == Crashed
	case EarlyRunning:
		return to == Confirmed || to == Crashed
	default:
		return false
	}
}

// Machine tracks the state of one launch attempt and emits a progress event
// on every transition. It is safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	state State
	sink  progress.Sink
	err   error
}

// NewMachine returns a machine in Idle reporting to sink.
func NewMachine(sink progress.Sink) *Machine {
	if sink == nil {
		sink = progress.Discard
	}
	return &Machine{sink: sink}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that ended the attempt, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Transition moves to the next state and reports message at that state's
// stage. Disallowed transitions return an error and change nothing.
func (m *Machine) Transition(to State, message string) error {
	m.mu.Lock()
	from := m.state
	if !isAllowedTransition(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("disallowed launch transition: %s -> %s", from, to)
	}
	m.state = to
	m.mu.Unlock()

	m.sink.Report(progress.Progress{Stage: stageOf[to], Current: 1, Total: 1, Message: message})
	return nil
}

// Fail ends the attempt: Crashed once the process exists, LaunchFailed
// before that. The Complete event carries the error text.
func (m *Machine) Fail(err error) State {
	m.mu.Lock()
	to := LaunchFailed
	if m.state == Spawned || m.state == EarlyRunning {
		to = Crashed
	}
	if IsTerminal(m.state) {
		to = m.state
	} else {
		m.state = to
		m.err = err
	}
	m.mu.Unlock()

	m.sink.Report(progress.Progress{Stage: progress.Complete, Current: 1, Total: 1, Message: err.Error()})
	return to
}

// Report forwards an intermediate progress event without changing state.
func (m *Machine) Report(p progress.Progress) { m.sink.Report(p) }
