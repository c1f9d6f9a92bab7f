// Package tasks runs cancellable, progress-reporting units of work and
// fans their lifecycle out to listeners.
//
// A Manager starts each Callable on its own goroutine and assigns it a
// sequential task id. Listeners observe creation, progress and
// termination; all callbacks for all tasks are delivered in order from
// a single dispatch goroutine.
package tasks

import (
	"context"
	"sync/atomic"
)

// Callable is the unit of work a task runs. It reports completion
// percentage through p and must return promptly once ctx is done.
type Callable[V any] func(ctx context.Context, p *Progress) (V, error)

// Progress carries the percent-complete value from a running callable
// to task listeners. Values are clamped to [0, 100].
type Progress struct {
	pct    atomic.Int32
	notify func(pct int)
}

// Set records the current completion percentage. Setting the same value
// again does not notify listeners.
func (p *Progress) Set(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if p.pct.Swap(int32(pct)) == int32(pct) {
		return
	}
	if p.notify != nil {
		p.notify(pct)
	}
}

// Value returns the last percentage set by the callable.
func (p *Progress) Value() int {
	return int(p.pct.Load())
}

// State is a task's lifecycle phase.
type State int32

const (
	StateRunning State = iota
	StateFinished
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	}
	return "unknown"
}

// Task is one submitted unit of work. Tasks are created by
// Manager.Start and move from running to exactly one of the terminal
// states: finished, failed or canceled.
type Task[V any] struct {
	id          int64
	name        string
	description string
	meta        map[string]string

	progress *Progress
	cancel   context.CancelFunc
	state    atomic.Int32

	// result and err are written once, before done is closed
	done   chan struct{}
	result V
	err    error
}

// ID returns the task's sequential id, unique within its manager.
func (t *Task[V]) ID() int64 { return t.id }

// Name returns the name the task was started with.
func (t *Task[V]) Name() string { return t.name }

// Description returns the description the task was started with.
func (t *Task[V]) Description() string { return t.description }

// Meta returns the metadata the task was started with. The returned map
// is the task's own copy; callers must not mutate it.
func (t *Task[V]) Meta() map[string]string { return t.meta }

// Progress returns the task's progress holder.
func (t *Task[V]) Progress() *Progress { return t.progress }

// State returns the task's current lifecycle phase.
func (t *Task[V]) State() State { return State(t.state.Load()) }

// Done is closed once the task reaches a terminal state.
func (t *Task[V]) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop by canceling its context. The callable
// decides when to actually return; a callable that completes despite
// the cancellation still terminates as finished.
func (t *Task[V]) Cancel() { t.cancel() }

// Wait blocks until the task terminates or ctx is done, and returns the
// task's result.
func (t *Task[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
