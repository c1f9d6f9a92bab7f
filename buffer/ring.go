package buffer

import (
	"fmt"
	"iter"
	"sync"
)

// Ring is an in-memory buffer with fixed capacity that overwrites its
// oldest element once full. It implements the same interfaces as
// FileBuffer; indexes count from the oldest retained element, so the
// index of a given element shifts as old ones are overwritten.
type Ring[E any] struct {
	mu    sync.RWMutex
	elems []E
	head  int
	n     int
}

var (
	_ Buffer[int]   = (*Ring[int])(nil)
	_ Appender[int] = (*Ring[int])(nil)
	_ Resetter      = (*Ring[int])(nil)
)

// NewRing returns an empty ring holding at most capacity elements.
// Panics if capacity < 1.
func NewRing[E any](capacity int) *Ring[E] {
	if capacity < 1 {
		panic(fmt.Sprintf("ring capacity must be positive, got %d", capacity))
	}
	return &Ring[E]{elems: make([]E, capacity)}
}

// Capacity returns the maximum number of retained elements.
func (r *Ring[E]) Capacity() int {
	return len(r.elems)
}

// Size returns the number of retained elements.
func (r *Ring[E]) Size() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(r.n)
}

// Get returns the element at index, 0 being the oldest retained one.
func (r *Ring[E]) Get(index uint64) (E, bool) {
	var zero E
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index >= uint64(r.n) {
		return zero, false
	}
	return r.elems[(r.head+int(index))%len(r.elems)], true
}

// Add appends e, overwriting the oldest element when full. It never
// fails; the error return satisfies Appender.
func (r *Ring[E]) Add(e E) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(e)
	return nil
}

// AddAll appends the elements in order under one lock acquisition.
func (r *Ring[E]) AddAll(elements ...E) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range elements {
		r.add(e)
	}
	return nil
}

func (r *Ring[E]) add(e E) {
	if r.n < len(r.elems) {
		r.elems[(r.head+r.n)%len(r.elems)] = e
		r.n++
		return
	}
	r.elems[r.head] = e
	r.head = (r.head + 1) % len(r.elems)
}

// Reset discards all elements. Slots are zeroed so the ring doesn't pin
// memory of discarded elements.
func (r *Ring[E]) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.elems)
	r.head = 0
	r.n = 0
	return nil
}

// IsFull reports whether the next Add will overwrite the oldest element.
func (r *Ring[E]) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.n == len(r.elems)
}

// All returns an iterator from the oldest to the newest element.
func (r *Ring[E]) All() iter.Seq2[uint64, E] {
	return iterate[E](r)
}

// Iterator returns a cursor positioned before the oldest element.
func (r *Ring[E]) Iterator() *Iterator[E] {
	return NewIterator[E](r)
}
