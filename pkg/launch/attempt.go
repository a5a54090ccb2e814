package launch

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/craftlaunch/pkg/progress"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

// Attempt is one running or finished launch.
type Attempt struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	Username  string    `json:"username"`
	StartedAt time.Time `json:"started_at"`

	reporter *progress.Reporter
	done     chan struct{}

	mu     sync.Mutex
	state  supervise.State
	result *Result
	err    error
}

// Events returns the progress channel. It is closed when the attempt ends.
func (a *Attempt) Events() <-chan progress.Progress { return a.reporter.Events() }

// Last returns the most recent progress event.
func (a *Attempt) Last() progress.Progress { return a.reporter.Last() }

// Done is closed when the attempt ends.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// State returns the final state once Done is closed, Idle before.
func (a *Attempt) State() supervise.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Wait blocks until the attempt ends or ctx is done.
func (a *Attempt) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-a.done:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.result, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Attempt) finish(state supervise.State, res *Result, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = state
	a.result = res
	a.err = err
}
