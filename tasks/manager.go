package tasks

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Listener receives task lifecycle callbacks. Nil fields are skipped.
//
// All callbacks for all tasks are invoked in submission order from a
// single goroutine, so a slow listener delays every other one, and
// callbacks must not block on the manager they are registered with.
type Listener[V any] struct {
	Created  func(t *Task[V])
	Progress func(t *Task[V], pct int)
	Finished func(t *Task[V], result V)
	Failed   func(t *Task[V], err error)
	Canceled func(t *Task[V])
}

type eventKind int

const (
	eventCreated eventKind = iota
	eventProgress
	eventFinished
	eventFailed
	eventCanceled
)

type event[V any] struct {
	kind   eventKind
	task   *Task[V]
	pct    int
	result V
	err    error
}

type registeredListener[V any] struct {
	id int64
	l  Listener[V]
}

type managerOptions struct {
	logger     *zap.Logger
	maxWorkers int
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*managerOptions)

// WithLogger sets the logger. The default is zap.NewNop().
func WithLogger(l *zap.Logger) ManagerOption {
	return func(o *managerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxWorkers caps how many callables run at once. Tasks started
// beyond the cap wait for a free slot; their context can cancel the
// wait. Zero or negative means no cap.
func WithMaxWorkers(n int) ManagerOption {
	return func(o *managerOptions) {
		o.maxWorkers = n
	}
}

// Manager starts tasks, tracks the live ones and dispatches lifecycle
// events to listeners.
type Manager[V any] struct {
	log     *zap.Logger
	lastID  atomic.Int64
	workers chan struct{}

	mu        sync.Mutex
	tasks     map[int64]*Task[V]
	listeners []registeredListener[V]
	lastLisID int64
	down      bool

	wg             sync.WaitGroup
	events         chan event[V]
	dispatcherDone chan struct{}
}

const eventQueueSize = 256

// NewManager returns a manager ready to start tasks. It owns a dispatch
// goroutine that runs until Shutdown.
func NewManager[V any](opts ...ManagerOption) *Manager[V] {
	opt := managerOptions{logger: zap.NewNop()}
	for _, o := range opts {
		o(&opt)
	}
	m := &Manager[V]{
		log:            opt.logger,
		tasks:          map[int64]*Task[V]{},
		events:         make(chan event[V], eventQueueSize),
		dispatcherDone: make(chan struct{}),
	}
	if opt.maxWorkers > 0 {
		m.workers = make(chan struct{}, opt.maxWorkers)
	}
	go m.dispatch()
	return m
}

// Start submits c and returns its task without waiting for it to run.
// Task ids are sequential, starting at 1. meta may be nil; it is copied.
//
// Start panics if the manager has been shut down or c is nil.
func (m *Manager[V]) Start(name, description string, c Callable[V], meta map[string]string) *Task[V] {
	if c == nil {
		panic("tasks: callable is nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task[V]{
		id:          m.lastID.Add(1),
		name:        name,
		description: description,
		meta:        copyMeta(meta),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	t.progress = &Progress{
		notify: func(pct int) {
			m.post(event[V]{kind: eventProgress, task: t, pct: pct})
		},
	}

	m.mu.Lock()
	if m.down {
		m.mu.Unlock()
		cancel()
		panic("tasks: manager has been shut down")
	}
	m.tasks[t.id] = t
	m.wg.Add(1)
	m.mu.Unlock()

	m.post(event[V]{kind: eventCreated, task: t})
	m.log.Debug("task created", zap.Int64("id", t.id), zap.String("name", name))

	go m.run(ctx, t, c)
	return t
}

// Get returns the live task with the given id, or nil once it has
// terminated.
func (m *Manager[V]) Get(id int64) *Task[V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

// Tasks returns the live tasks ordered by id.
func (m *Manager[V]) Tasks() []*Task[V] {
	m.mu.Lock()
	ts := make([]*Task[V], 0, len(m.tasks))
	for _, t := range m.tasks {
		ts = append(ts, t)
	}
	m.mu.Unlock()
	sort.Slice(ts, func(i, j int) bool { return ts[i].id < ts[j].id })
	return ts
}

// Cancel cancels the live task with the given id and reports whether
// such a task existed.
func (m *Manager[V]) Cancel(id int64) bool {
	m.mu.Lock()
	t := m.tasks[id]
	m.mu.Unlock()
	if t == nil {
		return false
	}
	t.cancel()
	return true
}

// AddListener registers l and returns a handle for RemoveListener.
func (m *Manager[V]) AddListener(l Listener[V]) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLisID++
	m.listeners = append(m.listeners, registeredListener[V]{id: m.lastLisID, l: l})
	return m.lastLisID
}

// RemoveListener unregisters the listener with the given handle.
func (m *Manager[V]) RemoveListener(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rl := range m.listeners {
		if rl.id == id {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// Shutdown cancels all live tasks, waits for their callables to return
// and for every queued event to reach the listeners, then stops the
// dispatch goroutine. Starting a task afterwards panics. If ctx expires
// first, Shutdown returns its error and draining continues in the
// background. Shutting down twice is a no-op.
func (m *Manager[V]) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.down {
		m.mu.Unlock()
		select {
		case <-m.dispatcherDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.down = true
	for _, t := range m.tasks {
		t.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(m.events)
		<-m.dispatcherDone
		close(done)
	}()
	select {
	case <-done:
		m.log.Debug("manager shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes one callable and turns its outcome into a terminal event.
func (m *Manager[V]) run(ctx context.Context, t *Task[V], c Callable[V]) {
	defer m.wg.Done()

	if m.workers != nil {
		select {
		case m.workers <- struct{}{}:
			defer func() { <-m.workers }()
		case <-ctx.Done():
			var zero V
			m.terminate(t, zero, ctx.Err())
			return
		}
	}
	m.log.Debug("task started", zap.Int64("id", t.id), zap.String("name", t.name))
	v, err := m.invoke(ctx, t, c)
	m.terminate(t, v, err)
}

// invoke runs the callable, turning a panic into a failure.
func (m *Manager[V]) invoke(ctx context.Context, t *Task[V], c Callable[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task panicked: %v", r)
		}
	}()
	return c(ctx, t.progress)
}

func (m *Manager[V]) terminate(t *Task[V], v V, err error) {
	m.mu.Lock()
	delete(m.tasks, t.id)
	m.mu.Unlock()

	switch {
	case err == nil:
		t.result = v
		t.state.Store(int32(StateFinished))
		close(t.done)
		m.post(event[V]{kind: eventFinished, task: t, result: v})
		m.log.Debug("task finished", zap.Int64("id", t.id), zap.String("name", t.name))
	case errors.Is(err, context.Canceled):
		t.err = err
		t.state.Store(int32(StateCanceled))
		close(t.done)
		m.post(event[V]{kind: eventCanceled, task: t})
		m.log.Debug("task canceled", zap.Int64("id", t.id), zap.String("name", t.name))
	default:
		t.err = err
		t.state.Store(int32(StateFailed))
		close(t.done)
		m.post(event[V]{kind: eventFailed, task: t, err: err})
		m.log.Warn("task failed", zap.Int64("id", t.id), zap.String("name", t.name), zap.Error(err))
	}
}

// post hands an event to the dispatch goroutine. It blocks when the
// queue is full rather than drop lifecycle events.
func (m *Manager[V]) post(ev event[V]) {
	m.events <- ev
}

func (m *Manager[V]) dispatch() {
	defer close(m.dispatcherDone)
	for ev := range m.events {
		m.mu.Lock()
		ls := append([]registeredListener[V](nil), m.listeners...)
		m.mu.Unlock()

		for _, rl := range ls {
			l := rl.l
			switch ev.kind {
			case eventCreated:
				if l.Created != nil {
					l.Created(ev.task)
				}
			case eventProgress:
				if l.Progress != nil {
					l.Progress(ev.task, ev.pct)
				}
			case eventFinished:
				if l.Finished != nil {
					l.Finished(ev.task, ev.result)
				}
			case eventFailed:
				if l.Failed != nil {
					l.Failed(ev.task, ev.err)
				}
			case eventCanceled:
				if l.Canceled != nil {
					l.Canceled(ev.task)
				}
			}
		}
	}
}

func copyMeta(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	c := make(map[string]string, len(meta))
	for k, v := range meta {
		c[k] = v
	}
	return c
}
