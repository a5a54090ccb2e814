// Package supervise starts the game runtime and watches its first seconds.
//
// A launch is only reported as successful once the process has survived a
// short observation window. Early stderr output is matched against known
// fatal signatures so that common failures (wrong Java version, JVM that
// cannot start, missing natives) surface with a readable message instead of
// a bare exit code.
package supervise

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/craftlaunch/pkg/errors"
	"github.com/matzehuels/craftlaunch/pkg/observability"
	"github.com/matzehuels/craftlaunch/pkg/progress"
)

// Options tunes the observation window.
type Options struct {
	ObserveSteps   int           `toml:"observe_steps"`
	StepInterval   time.Duration `toml:"step_interval"`
	CleanExitSteps int           `toml:"clean_exit_steps"`
	StderrLines    int           `toml:"stderr_lines"`
	StderrWindow   time.Duration `toml:"stderr_window"`
}

// DefaultOptions returns five one-second steps, treating a clean exit in the
// first two as a failure, and captures up to ten stderr lines.
func DefaultOptions() Options {
	return Options{
		ObserveSteps:   5,
		StepInterval:   time.Second,
		CleanExitSteps: 2,
		StderrLines:    10,
		StderrWindow:   time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ObserveSteps <= 0 {
		o.ObserveSteps = d.ObserveSteps
	}
	if o.StepInterval <= 0 {
		o.StepInterval = d.StepInterval
	}
	if o.CleanExitSteps < 0 {
		o.CleanExitSteps = 0
	}
	if o.StderrLines <= 0 {
		o.StderrLines = d.StderrLines
	}
	if o.StderrWindow <= 0 {
		o.StderrWindow = o.StepInterval
	}
	return o
}

// Outcome describes a process that passed the observation window.
type Outcome struct {
	State    State
	PID      int
	Stderr   string
	Duration time.Duration

	process *os.Process
	exited  chan struct{}
	code    int
}

// Exited is closed once the process ends.
func (o *Outcome) Exited() <-chan struct{} { return o.exited }

// Wait blocks until the process ends or ctx is done and returns its exit code.
func (o *Outcome) Wait(ctx context.Context) (int, error) {
	select {
	case <-o.exited:
		return o.code, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Kill terminates the process.
func (o *Outcome) Kill() error {
	if o.process == nil {
		return nil
	}
	err := o.process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithOptions replaces the observation tunables.
func WithOptions(o Options) Option {
	return func(s *Supervisor) { s.opts = o.withDefaults() }
}

// WithStdout sends the game's standard output to w. By default it is discarded.
func WithStdout(w io.Writer) Option {
	return func(s *Supervisor) { s.stdout = w }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// Supervisor spawns and observes runtime processes.
type Supervisor struct {
	opts   Options
	stdout io.Writer
	logger *log.Logger
}

// New creates a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{opts: DefaultOptions()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// exit is the result of cmd.Wait.
type exit struct {
	code int
	err  error
	at   time.Time
}

// Run spawns cmd and observes it. The machine must be in ArgumentsBuilt.
// Run returns a *errors.SpawnError when the process cannot be started and a
// *errors.EarlyExitError when it dies inside the observation window; in both
// cases the machine ends in a failure state. A process that outlives the
// window is left running and returned as an Outcome.
func (s *Supervisor) Run(ctx context.Context, cmd Command, m *Machine) (*Outcome, error) {
	m.Report(progress.Progress{Stage: progress.StartingProcess, Current: 0, Total: 1, Message: "Starting Minecraft"})

	c := exec.Command(cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdout = s.stdout
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, s.fail(ctx, m, cmd, &errs.SpawnError{Kind: errs.SpawnOther, Executable: cmd.Path, Err: err}, 0)
	}
	if err := c.Start(); err != nil {
		return nil, s.fail(ctx, m, cmd, &errs.SpawnError{Kind: spawnKind(err), Executable: cmd.Path, Err: err}, 0)
	}

	start := time.Now()
	pid := c.Process.Pid
	s.logger.Info("process spawned", "java", cmd.Path, "pid", pid)
	observability.Launch().OnSpawn(ctx, cmd.Path, pid)
	if err := m.Transition(Spawned, fmt.Sprintf("Process started (pid %d)", pid)); err != nil {
		_ = c.Process.Kill()
		return nil, err
	}

	lines := make(chan string, s.opts.StderrLines)
	read := make(chan struct{})
	go func() {
		defer close(read)
		readStderr(stderr, lines, s.opts.StderrLines)
	}()

	exited := make(chan exit, 1)
	done := make(chan struct{})
	out := &Outcome{PID: pid, process: c.Process, exited: done}
	go func() {
		// Wait closes the pipe, so stderr must be read to EOF first.
		<-read
		err := c.Wait()
		code := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else if err != nil {
			code = -1
		}
		out.code = code
		exited <- exit{code: code, err: err, at: time.Now()}
		close(done)
	}()

	captured := collect(lines, s.opts.StderrLines, s.opts.StderrWindow)
	text := strings.Join(captured, "\n")
	if sig, msg, ok := Classify(text); ok {
		e := &errs.EarlyExitError{ExitCode: -1, Signature: sig, Message: msg, Stderr: text}
		return nil, s.fail(ctx, m, cmd, e, time.Since(start))
	}

	if err := m.Transition(EarlyRunning, "Launching game"); err != nil {
		return nil, err
	}

	select {
	case x := <-exited:
		captured = append(captured, drain(lines, s.opts.StderrLines-len(captured))...)
		text = strings.Join(captured, "\n")
		return nil, s.fail(ctx, m, cmd, s.earlyExit(x, start, text), x.at.Sub(start))
	case <-time.After(time.Until(start.Add(time.Duration(s.opts.ObserveSteps) * s.opts.StepInterval))):
	}

	out.State = Confirmed
	out.Stderr = text
	out.Duration = time.Since(start)
	if err := m.Transition(Confirmed, "Minecraft is running"); err != nil {
		return nil, err
	}
	s.logger.Info("launch confirmed", "pid", pid, "observed", out.Duration.Round(time.Millisecond))
	observability.Launch().OnOutcome(ctx, cmd.Path, Confirmed.String(), out.Duration, nil)
	return out, nil
}

// earlyExit classifies a process that ended inside the window. Step is
// counted from spawn: an exit at 0.4s with 1s steps happened in step 1.
func (s *Supervisor) earlyExit(x exit, start time.Time, stderr string) error {
	elapsed := x.at.Sub(start)
	step := int(elapsed/s.opts.StepInterval) + 1
	if sig, msg, ok := Classify(stderr); ok {
		return &errs.EarlyExitError{ExitCode: x.code, Signature: sig, Message: msg, Stderr: stderr}
	}
	if x.code != 0 {
		return &errs.EarlyExitError{
			ExitCode: x.code,
			Message:  fmt.Sprintf("Minecraft crashed during startup with code %d", x.code),
			Stderr:   stderr,
		}
	}
	if step <= s.opts.CleanExitSteps {
		return &errs.EarlyExitError{
			Message: "Minecraft ended unexpectedly but cleanly (exit code 0)",
			Stderr:  stderr,
		}
	}
	return &errs.EarlyExitError{
		Message: fmt.Sprintf("Minecraft exited after %s", elapsed.Round(time.Millisecond)),
		Stderr:  stderr,
	}
}

func (s *Supervisor) fail(ctx context.Context, m *Machine, cmd Command, err error, d time.Duration) error {
	state := m.Fail(err)
	s.logger.Error("launch failed", "java", cmd.Path, "state", state, "err", err)
	observability.Launch().OnOutcome(ctx, cmd.Path, state.String(), d, err)
	return err
}

// spawnKind maps a start error onto a SpawnKind.
func spawnKind(err error) errs.SpawnKind {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return errs.SpawnMissingExecutable
	case errors.Is(err, fs.ErrPermission):
		return errs.SpawnPermissionDenied
	case errors.Is(err, syscall.EAGAIN):
		return errs.SpawnResourceExhausted
	case errors.Is(err, syscall.ENOMEM):
		return errs.SpawnMemoryExhausted
	default:
		return errs.SpawnOther
	}
}

// readStderr forwards the first limit lines to out and discards the rest so
// the child never blocks on a full pipe. out is closed at EOF.
func readStderr(r io.Reader, out chan<- string, limit int) {
	defer close(out)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		if n < limit {
			out <- sc.Text()
			n++
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

// collect gathers up to limit lines. It stops early at EOF, on the first
// fatal signature, or when window elapses.
func collect(lines <-chan string, limit int, window time.Duration) []string {
	var got []string
	timer := time.NewTimer(window)
	defer timer.Stop()
	for len(got) < limit {
		select {
		case l, ok := <-lines:
			if !ok {
				return got
			}
			got = append(got, l)
			if _, _, fatal := Classify(strings.Join(got, "\n")); fatal {
				return got
			}
		case <-timer.C:
			return got
		}
	}
	return got
}

// drain takes whatever the reader delivered before EOF, up to limit lines.
func drain(lines <-chan string, limit int) []string {
	var got []string
	for len(got) < limit {
		l, ok := <-lines
		if !ok {
			break
		}
		got = append(got, l)
	}
	return got
}

// =============================================================================
// Stderr signatures
// =============================================================================

type signature struct {
	name    string
	match   func(string) bool
	message string
}

func containsAny(needles ...string) func(string) bool {
	return func(s string) bool {
		for _, n := range needles {
			if strings.Contains(s, n) {
				return true
			}
		}
		return false
	}
}

var signatures = []signature{
	{
		name:    "unsupported-class-version",
		match:   containsAny("UnsupportedClassVersionError"),
		message: "Incompatible Java version. Minecraft requires a newer Java version.",
	},
	{
		name:    "jvm-creation",
		match:   containsAny("Could not create the Java Virtual Machine", "Error occurred during initialization of VM"),
		message: "Could not create Java Virtual Machine. You may need to adjust memory settings or install Java.",
	},
	{
		name:    "out-of-memory",
		match:   containsAny("OutOfMemoryError"),
		message: "Java ran out of memory. Try allocating more memory to Java or close other applications.",
	},
	{
		name: "natives",
		match: func(s string) bool {
			return strings.Contains(s, "natives") && containsAny("failed to load", "no such file")(strings.ToLower(s))
		},
		message: "Failed to load native libraries. Try redownloading the game.",
	},
}

// Classify matches captured stderr against the known fatal signatures.
func Classify(stderr string) (name, message string, ok bool) {
	if stderr == "" {
		return "", "", false
	}
	for _, sig := range signatures {
		if sig.match(stderr) {
			return sig.name, sig.message, true
		}
	}
	return "", "", false
}
