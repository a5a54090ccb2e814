// Package progress defines the launch progress events sent from the launcher
// to whatever renders them (the terminal UI, the local API).
//
// Events travel over a typed channel. [Reporter] is the producer side: it
// enforces that stages never move backwards within one launch attempt and
// never blocks the launch goroutine on a slow consumer.
package progress

import (
	"fmt"
	"sync"
)

// Stage is an ordered launch phase.
type Stage int

const (
	PreparingLibraries Stage = iota
	DownloadingLibraries
	ExtractingNatives
	PreparingAssets
	DownloadingAssets
	AssetLoadComplete
	ValidatingJava
	BuildingArguments
	StartingProcess
	ProcessStarted
	LaunchingGame
	Complete
)

var stageNames = [...]string{
	PreparingLibraries:   "preparing-libraries",
	DownloadingLibraries: "downloading-libraries",
	ExtractingNatives:    "extracting-natives",
	PreparingAssets:      "preparing-assets",
	DownloadingAssets:    "downloading-assets",
	AssetLoadComplete:    "asset-load-complete",
	ValidatingJava:       "validating-java",
	BuildingArguments:    "building-arguments",
	StartingProcess:      "starting-process",
	ProcessStarted:       "process-started",
	LaunchingGame:        "launching-game",
	Complete:             "complete",
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText implements encoding.TextMarshaler so stages serialize by name.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// stageRange holds the [base, next) percentage sub-range of each stage.
var stageRange = [...][2]float64{
	PreparingLibraries:   {0, 10},
	DownloadingLibraries: {10, 20},
	ExtractingNatives:    {20, 30},
	PreparingAssets:      {30, 40},
	DownloadingAssets:    {40, 50},
	AssetLoadComplete:    {50, 60},
	ValidatingJava:       {60, 70},
	BuildingArguments:    {70, 80},
	StartingProcess:      {80, 90},
	ProcessStarted:       {90, 95},
	LaunchingGame:        {95, 100},
	Complete:             {100, 100},
}

// Range returns the [base, next) percentage sub-range of the stage.
func (s Stage) Range() (base, next float64) {
	if s < 0 || int(s) >= len(stageRange) {
		return 100, 100
	}
	r := stageRange[s]
	return r[0], r[1]
}

// Progress is one launch progress event.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Percentage maps the event onto [0, 100]. Each stage owns a fixed sub-range
// which is interpolated linearly by Current/Total. Current is clamped to
// Total, and a zero Total yields the stage's base value.
func (p Progress) Percentage() float64 {
	base, next := p.Stage.Range()
	if p.Total <= 0 {
		return base
	}
	current := min(max(p.Current, 0), p.Total)
	pct := base + float64(current)/float64(p.Total)*(next-base)
	return min(pct, 100)
}

// Sink receives progress events. Implementations must be safe for
// concurrent use; workers report from many goroutines.
type Sink interface {
	Report(Progress)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Progress)

// Report calls f(p).
func (f SinkFunc) Report(p Progress) { f(p) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Progress) {})

// Reporter sends events on a channel while keeping stages monotonic.
// Events with a stage lower than the highest stage already reported are
// raised to that stage. When the channel buffer is full, intermediate
// events are dropped rather than blocking the sender; Complete events and
// stage changes always block until delivered.
type Reporter struct {
	mu     sync.Mutex
	ch     chan Progress
	stage  Stage
	last   Progress
	closed bool
}

// NewReporter creates a reporter with a buffered channel of the given size.
func NewReporter(buffer int) *Reporter {
	return &Reporter{ch: make(chan Progress, max(buffer, 1))}
}

// Events returns the receive side of the channel. It is closed by Close.
func (r *Reporter) Events() <-chan Progress { return r.ch }

// Report implements Sink.
func (r *Reporter) Report(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	stageChanged := p.Stage > r.stage
	if p.Stage < r.stage {
		p.Stage = r.stage
	} else {
		r.stage = p.Stage
	}
	r.last = p

	if stageChanged || p.Stage == Complete {
		r.ch <- p
		return
	}
	select {
	case r.ch <- p:
	default:
	}
}

// Last returns the most recent event passed to Report.
func (r *Reporter) Last() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Close closes the event channel. Reports after Close are dropped.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
}
