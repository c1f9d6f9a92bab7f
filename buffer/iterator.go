package buffer

import "iter"

// iterate implements All on top of Size and Get: walk indexes upward,
// re-reading the size before each step so elements appended during
// iteration are visible, and skip indexes whose element can't be read.
func iterate[E any](b Buffer[E]) iter.Seq2[uint64, E] {
	return func(yield func(uint64, E) bool) {
		for i := uint64(0); i < b.Size(); i++ {
			e, ok := b.Get(i)
			if !ok {
				continue
			}
			if !yield(i, e) {
				return
			}
		}
	}
}

// Iterator is a stateful cursor over a buffer, for callers that want
// explicit stepping instead of ranging over All:
//
//	it := buf.Iterator()
//	for it.Next() {
//		use(it.Index(), it.Value())
//	}
type Iterator[E any] struct {
	buf  Buffer[E]
	next uint64
	idx  uint64
	cur  E
}

// NewIterator returns a cursor positioned before the first element of b.
func NewIterator[E any](b Buffer[E]) *Iterator[E] {
	return &Iterator[E]{buf: b}
}

// Next advances to the next readable element, skipping any that can't
// be read, and reports whether one was found. The buffer size is
// re-read on every step, so elements appended after the cursor was
// created are reachable too.
func (it *Iterator[E]) Next() bool {
	for it.next < it.buf.Size() {
		i := it.next
		it.next++
		e, ok := it.buf.Get(i)
		if !ok {
			continue
		}
		it.idx = i
		it.cur = e
		return true
	}
	return false
}

// Value returns the element Next advanced to. Only valid after a Next
// call that returned true.
func (it *Iterator[E]) Value() E { return it.cur }

// Index returns the buffer index of Value.
func (it *Iterator[E]) Index() uint64 { return it.idx }
