package acquire

import (
	"context"
	"errors"
	"sync/atomic"
)

// Job is the background phase 2 asset fetch. It runs to completion on its
// own; callers may wait for it, poll it, or drop it.
type Job struct {
	total    int
	done     chan struct{}
	progress atomic.Int64
	tally    *tally
}

func newJob(total int) *Job {
	return &Job{total: total, done: make(chan struct{}), tally: &tally{}}
}

// Done is closed when every item has been attempted.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Total is the number of assets in the job.
func (j *Job) Total() int { return j.total }

// Progress is the number of assets attempted so far.
func (j *Job) Progress() int { return int(j.progress.Load()) }

// advance raises the progress counter to n. Workers report out of order, so
// a smaller n never lowers it.
func (j *Job) advance(n int) {
	for {
		cur := j.progress.Load()
		if int64(n) <= cur || j.progress.CompareAndSwap(cur, int64(n)) {
			return
		}
	}
}

// Stats returns the outcome counters so far.
func (j *Job) Stats() Stats { return j.tally.stats() }

// Failed returns the per-item failures so far.
func (j *Job) Failed() []ItemError { return j.tally.failures() }

// Err joins the per-item failures, or returns nil if there were none.
func (j *Job) Err() error {
	failed := j.Failed()
	if len(failed) == 0 {
		return nil
	}
	list := make([]error, len(failed))
	for i, f := range failed {
		list[i] = f
	}
	return errors.Join(list...)
}
